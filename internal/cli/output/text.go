package output

import (
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/yndnr/respkv/internal/cli/connection"
)

// TextFormatter renders replies the way redis-cli does on a terminal.
type TextFormatter struct{}

// Format writes data followed by a newline.
func (f *TextFormatter) Format(w io.Writer, data any) error {
	switch v := data.(type) {
	case nil:
		return nil
	case connection.Reply:
		_, err := io.WriteString(w, ReplyText(v)+"\n")
		return err
	case KeyValues:
		return v.Table().Render(w)
	case []KeyValues:
		return ListTable(v).Render(w)
	case *Table:
		return v.Render(w)
	case string:
		_, err := io.WriteString(w, v+"\n")
		return err
	}

	if t, ok := structToTable(reflect.ValueOf(data)); ok {
		return t.Render(w)
	}
	_, err := fmt.Fprintln(w, data)
	return err
}

// ReplyText renders one reply without a trailing newline.
func ReplyText(r connection.Reply) string {
	switch r.Kind {
	case connection.KindStatus:
		return r.Str
	case connection.KindError:
		return "(error) " + r.Str
	case connection.KindInteger:
		return "(integer) " + strconv.Itoa(r.Int)
	case connection.KindBulk:
		return strconv.Quote(r.Str)
	case connection.KindNull:
		return "(nil)"
	case connection.KindArray:
		if len(r.Elements) == 0 {
			return "(empty array)"
		}
		lines := make([]string, len(r.Elements))
		for i, e := range r.Elements {
			lines[i] = strconv.Itoa(i+1) + ") " + ReplyText(e)
		}
		return strings.Join(lines, "\n")
	default:
		return ""
	}
}

// plain converts values with a custom text form into data the JSON and
// YAML encoders handle directly.
func plain(data any) any {
	if r, ok := data.(connection.Reply); ok {
		return r.Value()
	}
	return data
}

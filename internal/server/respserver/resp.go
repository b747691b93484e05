package respserver

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Protocol limits.
const (
	// MaxArrayLen limits the number of elements in a request array.
	MaxArrayLen = 1024

	// MaxBulkLen limits the size of a single bulk string (512MB).
	MaxBulkLen = 512 * 1024 * 1024

	// maxHeaderDigits bounds the significant digits of a count or length
	// field. Leading zeros do not count.
	maxHeaderDigits = 10

	// maxHeaderField bounds the raw size of a count or length field, so a
	// run of leading zeros cannot grow the read buffer without end.
	maxHeaderField = 64 * 1024
)

var (
	ErrProtocol      = errors.New("resp: protocol error")
	ErrLimitExceeded = errors.New("resp: limit exceeded")

	// ErrIncomplete reports that the buffer ends before the frame does.
	// It is the only error after which more input may fix the frame.
	ErrIncomplete = errors.New("resp: incomplete frame")

	ErrInvalidEncoding = errors.New("resp: invalid encoding")
)

// Command is one decoded request. Element 0 is the verb.
type Command [][]byte

// Name returns the upper-cased verb.
func (c Command) Name() string {
	if len(c) == 0 {
		return ""
	}
	return normalizeCommandName(c[0])
}

// Args returns the arguments following the verb.
func (c Command) Args() [][]byte {
	if len(c) == 0 {
		return nil
	}
	return c[1:]
}

// ParseFrame decodes the first frame in buf. On success n is the number of
// bytes the frame occupies. The returned arguments alias buf.
//
// ParseFrame never reads past len(buf); a strict prefix of a valid frame
// yields ErrIncomplete.
func ParseFrame(buf []byte) (cmd Command, n int, err error) {
	if len(buf) == 0 {
		return nil, 0, ErrIncomplete
	}
	if buf[0] != '*' {
		return nil, 0, fmt.Errorf("%w: expected '*', got %q", ErrProtocol, buf[0])
	}

	count, pos, err := parseLength(buf, 1, MaxArrayLen, "array length")
	if err != nil {
		return nil, 0, err
	}
	if count == 0 {
		return nil, 0, fmt.Errorf("%w: empty command", ErrProtocol)
	}

	cmd = make(Command, 0, count)
	for i := 0; i < count; i++ {
		if pos >= len(buf) {
			return nil, 0, ErrIncomplete
		}
		if buf[pos] != '$' {
			return nil, 0, fmt.Errorf("%w: expected '$', got %q", ErrProtocol, buf[pos])
		}

		size, start, err := parseLength(buf, pos+1, MaxBulkLen, "bulk length")
		if err != nil {
			return nil, 0, err
		}

		end := start + size
		if len(buf) < end+2 {
			if len(buf) > end && buf[end] != '\r' {
				return nil, 0, fmt.Errorf("%w: invalid bulk terminator", ErrProtocol)
			}
			return nil, 0, ErrIncomplete
		}
		if buf[end] != '\r' || buf[end+1] != '\n' {
			return nil, 0, fmt.Errorf("%w: invalid bulk terminator", ErrProtocol)
		}

		cmd = append(cmd, buf[start:end:end])
		pos = end + 2
	}

	return cmd, pos, nil
}

// parseLength reads a decimal field starting at pos and terminated by CRLF.
// It returns the value and the offset just past the CRLF.
func parseLength(buf []byte, pos, limit int, what string) (int, int, error) {
	n, digits, seen := 0, 0, false
	for i := pos; i < len(buf); i++ {
		if i-pos > maxHeaderField {
			return 0, 0, fmt.Errorf("%w: %s field too long", ErrLimitExceeded, what)
		}
		c := buf[i]
		switch {
		case c >= '0' && c <= '9':
			seen = true
			if n == 0 && c == '0' {
				continue
			}
			digits++
			if digits > maxHeaderDigits {
				return 0, 0, fmt.Errorf("%w: %s has too many digits", ErrLimitExceeded, what)
			}
			n = n*10 + int(c-'0')
			if n > limit {
				return 0, 0, fmt.Errorf("%w: %s exceeds limit %d", ErrLimitExceeded, what, limit)
			}
		case c == '\r':
			if !seen {
				return 0, 0, fmt.Errorf("%w: missing %s", ErrProtocol, what)
			}
			if i+1 >= len(buf) {
				return 0, 0, ErrIncomplete
			}
			if buf[i+1] != '\n' {
				return 0, 0, fmt.Errorf("%w: missing CRLF after %s", ErrProtocol, what)
			}
			return n, i + 2, nil
		default:
			return 0, 0, fmt.Errorf("%w: invalid character %q in %s", ErrProtocol, c, what)
		}
	}
	return 0, 0, ErrIncomplete
}

// ReplyKind identifies the wire type of a Reply.
type ReplyKind uint8

const (
	KindStatus ReplyKind = iota + 1
	KindBulk
	KindNull
	KindError
	KindInteger
)

// Reply is a single response value.
type Reply struct {
	Kind ReplyKind
	Str  string
	Bulk []byte
	Int  int64
}

func StatusReply(s string) Reply {
	return Reply{Kind: KindStatus, Str: s}
}

func BulkReply(b []byte) Reply {
	return Reply{Kind: KindBulk, Bulk: b}
}

func BulkStringReply(s string) Reply {
	return Reply{Kind: KindBulk, Bulk: []byte(s)}
}

func NullReply() Reply {
	return Reply{Kind: KindNull}
}

func ErrorReply(msg string) Reply {
	return Reply{Kind: KindError, Str: msg}
}

func IntegerReply(n int64) Reply {
	return Reply{Kind: KindInteger, Int: n}
}

// IsError reports whether r is an error reply.
func (r Reply) IsError() bool {
	return r.Kind == KindError
}

// WriteReply encodes r into w. The caller flushes.
func WriteReply(w *bufio.Writer, r Reply) error {
	switch r.Kind {
	case KindStatus:
		return WriteSimpleString(w, r.Str)
	case KindBulk:
		if r.Bulk == nil {
			return WriteBulk(w, []byte{})
		}
		return WriteBulk(w, r.Bulk)
	case KindNull:
		return WriteNullBulk(w)
	case KindError:
		return WriteError(w, r.Str)
	case KindInteger:
		return WriteInteger(w, r.Int)
	default:
		return fmt.Errorf("resp: unknown reply kind %d", r.Kind)
	}
}

// lineSafe replaces CR and LF so a status or error line cannot be split.
func lineSafe(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' {
			return ' '
		}
		return r
	}, s)
}

func WriteSimpleString(w *bufio.Writer, s string) error {
	_, err := w.WriteString("+" + lineSafe(s) + "\r\n")
	return err
}

func WriteError(w *bufio.Writer, s string) error {
	_, err := w.WriteString("-" + lineSafe(s) + "\r\n")
	return err
}

func WriteInteger(w *bufio.Writer, n int64) error {
	_, err := w.WriteString(":" + strconv.FormatInt(n, 10) + "\r\n")
	return err
}

func WriteNullBulk(w *bufio.Writer) error {
	_, err := w.WriteString("$-1\r\n")
	return err
}

func WriteBulk(w *bufio.Writer, b []byte) error {
	if b == nil {
		return WriteNullBulk(w)
	}
	if _, err := w.WriteString("$" + strconv.Itoa(len(b)) + "\r\n"); err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	_, err := w.WriteString("\r\n")
	return err
}

func WriteBulkString(w *bufio.Writer, s string) error {
	return WriteBulk(w, []byte(s))
}

func normalizeCommandName(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	// Uppercase ASCII without allocating for already uppercased tokens.
	if bytes.ContainsAny(b, "abcdefghijklmnopqrstuvwxyz") {
		return strings.ToUpper(string(b))
	}
	return string(b)
}

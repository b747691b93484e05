package connection

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
	"github.com/tidwall/resp"
)

// Kind identifies the type of a reply.
type Kind string

const (
	KindStatus  Kind = "status"
	KindError   Kind = "error"
	KindInteger Kind = "integer"
	KindBulk    Kind = "bulk"
	KindNull    Kind = "null"
	KindArray   Kind = "array"
)

// Reply is a decoded server reply.
type Reply struct {
	Kind     Kind
	Str      string
	Int      int
	Elements []Reply
}

// ServerError is an error reply returned by the server.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

// IsServerError reports whether err is an error reply.
func IsServerError(err error) bool {
	var se *ServerError
	return errors.As(err, &se)
}

// Err returns the reply as a *ServerError when it is an error reply.
func (r Reply) Err() error {
	if r.Kind == KindError {
		return &ServerError{Message: r.Str}
	}
	return nil
}

// Value returns the reply as plain data for serialization: a string,
// an int, nil, a slice, or a map with an "error" key.
func (r Reply) Value() any {
	switch r.Kind {
	case KindStatus, KindBulk:
		return r.Str
	case KindInteger:
		return r.Int
	case KindError:
		return map[string]string{"error": r.Str}
	case KindArray:
		return lo.Map(r.Elements, func(e Reply, _ int) any { return e.Value() })
	default:
		return nil
	}
}

func fromValue(v resp.Value) (Reply, error) {
	switch v.Type() {
	case resp.SimpleString:
		return Reply{Kind: KindStatus, Str: v.String()}, nil
	case resp.Error:
		return Reply{Kind: KindError, Str: v.String()}, nil
	case resp.Integer:
		return Reply{Kind: KindInteger, Int: v.Integer()}, nil
	case resp.BulkString:
		if v.IsNull() {
			return Reply{Kind: KindNull}, nil
		}
		return Reply{Kind: KindBulk, Str: v.String()}, nil
	case resp.Array:
		if v.IsNull() {
			return Reply{Kind: KindNull}, nil
		}
		elems := make([]Reply, 0, len(v.Array()))
		for _, e := range v.Array() {
			r, err := fromValue(e)
			if err != nil {
				return Reply{}, err
			}
			elems = append(elems, r)
		}
		return Reply{Kind: KindArray, Elements: elems}, nil
	default:
		return Reply{}, fmt.Errorf("connection: unsupported reply type %q", v.Type())
	}
}

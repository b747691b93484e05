package confloader

import (
	"errors"

	"github.com/knadh/koanf/maps"
)

// ErrReadBytesNotSupported is returned when ReadBytes is called on an
// override provider.
var ErrReadBytesNotSupported = errors.New("confloader: overrides have no byte form")

// overrideProvider serves dotted keys such as "server.resp.addr" as a nested
// map. Nil and empty string values are dropped, so unset flags leave lower
// layers alone.
type overrideProvider map[string]any

func (o overrideProvider) ReadBytes() ([]byte, error) {
	return nil, ErrReadBytesNotSupported
}

func (o overrideProvider) Read() (map[string]any, error) {
	flat := make(map[string]any, len(o))
	for k, v := range o {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		flat[k] = v
	}
	return maps.Unflatten(flat, "."), nil
}

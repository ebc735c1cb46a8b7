package format

import (
	"fmt"
	"slices"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/arloliu/lastvalue/types"
)

// UTC is the time-key registered by Default.
const UTC = "utc"

// Registry maps time-keys to parsers. It is safe for concurrent use.
type Registry struct {
	parsers *xsync.Map[string, types.Parser]
}

// Compile-time assertion that Registry implements FormatResolver.
var _ types.FormatResolver = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsers: xsync.NewMap[string, types.Parser]()}
}

// Default returns a registry with the "utc" time-key reading the "utc" field as
// epoch milliseconds or an RFC 3339 timestamp.
func Default() *Registry {
	r := NewRegistry()
	r.Register(UTC, NumberOrTime(UTC))

	return r
}

// Register associates a parser with a time-key, replacing any previous one.
//
// Parameters:
//   - timeKey: Time-key the parser handles
//   - parser: Parser for that time-key; nil removes the registration
func (r *Registry) Register(timeKey string, parser types.Parser) {
	if parser == nil {
		r.parsers.Delete(timeKey)
		return
	}
	r.parsers.Store(timeKey, parser)
}

// Parser returns the parser registered for timeKey.
func (r *Registry) Parser(timeKey string) (types.Parser, bool) {
	return r.parsers.Load(timeKey)
}

// MustParser is like Parser but returns ErrUnknownTimeKey for unregistered keys.
func (r *Registry) MustParser(timeKey string) (types.Parser, error) {
	p, ok := r.parsers.Load(timeKey)
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownTimeKey, timeKey)
	}

	return p, nil
}

// Keys returns the registered time-keys in sorted order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, r.parsers.Size())
	r.parsers.Range(func(key string, _ types.Parser) bool {
		keys = append(keys, key)
		return true
	})
	slices.Sort(keys)

	return keys
}

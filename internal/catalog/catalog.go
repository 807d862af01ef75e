// Package catalog maps wire-level event type names onto payload types so
// that dispatch code never needs a string-to-type conditional chain.
//
// A Catalog is populated once by the composition root:
//
//	c := catalog.New()
//	catalog.Register[calling.CallConnected](c)
//	catalog.Register[calling.CallDisconnected](c)
//
// and consulted once per incoming event:
//
//	h, ok := c.Resolve("Microsoft.Communication.CallConnected")
//
// Names are stored and looked up with the vendor namespace Prefix removed,
// so the prefixed and bare forms of a name are interchangeable.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Prefix is the vendor namespace carried by communication-service event
// type names on the wire.
const Prefix = "Microsoft.Communication."

// ErrDuplicate is the panic value (wrapped) raised by a strict catalog when
// a name is registered twice.
var ErrDuplicate = errors.New("catalog: duplicate registration")

// Normalize strips the vendor Prefix from name, if present.
func Normalize(name string) string {
	return strings.TrimPrefix(name, Prefix)
}

// Catalog is a name → TypeHandle table. The zero value is not usable; call
// New. It is safe for concurrent use, although registration is expected to
// finish before the first Resolve.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]TypeHandle
	strict  bool
	logger  zerolog.Logger
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithStrict makes duplicate registrations panic instead of silently
// replacing the earlier entry.
func WithStrict(strict bool) Option {
	return func(c *Catalog) { c.strict = strict }
}

// WithLogger sets the logger used to report replaced registrations.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Catalog) { c.logger = logger }
}

// New creates an empty catalog.
func New(opts ...Option) *Catalog {
	c := &Catalog{
		entries: make(map[string]TypeHandle),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds T under its own type name and returns c for chaining.
//
// This is a package-level function because Go does not allow generic
// methods on non-generic receiver types.
func Register[T any](c *Catalog) *Catalog {
	return c.Add(HandleOf[T]())
}

// RegisterAs adds T under an explicit name, for payload types whose Go name
// differs from the wire name.
func RegisterAs[T any](c *Catalog, name string) *Catalog {
	return c.Add(HandleOf[T]().Named(name))
}

// Add stores h under its normalized name and returns c for chaining. An
// existing entry with the same name is replaced, unless the catalog is
// strict, in which case Add panics. Add also panics on a zero handle or a
// handle without a name; both are programming errors at composition time.
func (c *Catalog) Add(h TypeHandle) *Catalog {
	if h.IsZero() {
		panic("catalog: nil type handle")
	}
	name := Normalize(h.name)
	if name == "" {
		panic(fmt.Sprintf("catalog: type %s has no name; use RegisterAs", h.typ))
	}
	h.name = name

	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.entries[name]; ok {
		if c.strict {
			panic(fmt.Errorf("%w: %q already maps to %s", ErrDuplicate, name, prev.typ))
		}
		c.logger.Debug().
			Str("event", name).
			Stringer("previous", prev.typ).
			Stringer("type", h.typ).
			Msg("replacing catalog entry")
	}
	c.entries[name] = h
	return c
}

// Resolve returns the handle registered for rawName. rawName may carry the
// vendor Prefix. An unknown name yields the zero handle and false.
func (c *Catalog) Resolve(rawName string) (TypeHandle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.entries[Normalize(rawName)]
	return h, ok
}

// Get returns the payload type registered for name, or nil.
func (c *Catalog) Get(name string) reflect.Type {
	h, ok := c.Resolve(name)
	if !ok {
		return nil
	}
	return h.typ
}

// Names returns all registered names in sorted order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered names.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// DecodeFunc turns a raw JSON payload into a pointer to a fresh value of
// the handle's type.
type DecodeFunc func(data []byte) (any, error)

// TypeHandle identifies one registered payload shape.
type TypeHandle struct {
	name   string
	typ    reflect.Type
	decode DecodeFunc
}

// HandleOf returns the handle for T, named after T's Go type name.
func HandleOf[T any]() TypeHandle {
	typ := reflect.TypeFor[T]()
	return TypeHandle{
		name: typ.Name(),
		typ:  typ,
		decode: func(data []byte) (any, error) {
			v := new(T)
			if len(data) > 0 {
				if err := json.Unmarshal(data, v); err != nil {
					return nil, fmt.Errorf("unmarshal %s: %w", typ, err)
				}
			}
			return v, nil
		},
	}
}

// Named returns a copy of h registered under name.
func (h TypeHandle) Named(name string) TypeHandle {
	h.name = name
	return h
}

// Name returns the normalized name the handle was registered under.
func (h TypeHandle) Name() string { return h.name }

// Type returns the payload type.
func (h TypeHandle) Type() reflect.Type { return h.typ }

// IsZero reports whether h is the zero handle.
func (h TypeHandle) IsZero() bool { return h.typ == nil }

// Decode unmarshals data into a new *T. An empty payload yields a pointer
// to the zero value.
func (h TypeHandle) Decode(data []byte) (any, error) {
	if h.decode == nil {
		return nil, errors.New("catalog: decode on zero type handle")
	}
	return h.decode(data)
}

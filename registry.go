package tobytes

import (
	"fmt"
	"sort"
	"sync"
)

// EncodeFunc produces the opaque payload bytes for a custom-type
// instance. The Engine handle lets the codec recurse into nested
// tobytes messages (spec.md §4.2, §9 "recursive engine handle").
type EncodeFunc func(engine *Engine, value interface{}) ([]byte, error)

// DecodeFunc consumes a custom-type payload and produces the decoded
// Go value that becomes Object.Custom.
type DecodeFunc func(engine *Engine, payload []byte) (interface{}, error)

// FallbackHandler dispatches every type-id within a namespace to a
// single function pair, for namespaces that don't partition cleanly
// by type-id (spec.md §4.2 "single function dispatches the whole
// namespace").
type FallbackHandler struct {
	Encode func(engine *Engine, typeID uint64, value interface{}) ([]byte, error)
	Decode func(engine *Engine, typeID uint64, payload []byte) (interface{}, error)
}

// Codec bundles the encode/decode pair registered for one (namespace,
// type-id).
type Codec struct {
	Encode EncodeFunc
	Decode DecodeFunc
}

type namespaceEntry struct {
	codecs   map[uint64]Codec
	fallback *FallbackHandler
}

// Registry is the process- or encoder-scoped catalog of namespaces,
// each holding a type-id → Codec mapping plus an optional namespace
// fallback handler. It is read-mostly: concurrent Lookup/ListNamespaces
// calls are always safe; Register concurrent with an in-flight
// encode/decode is undefined per spec.md §5 — callers should freeze
// the registry (stop registering) before sharing it across goroutines
// that are actively encoding or decoding.
type Registry struct {
	mu         sync.RWMutex
	namespaces map[string]*namespaceEntry
	byGoType   map[string]typeKey
}

// NewRegistry returns an empty registry with no namespaces.
func NewRegistry() *Registry {
	return &Registry{namespaces: make(map[string]*namespaceEntry)}
}

func (r *Registry) entry(namespace string) *namespaceEntry {
	e, ok := r.namespaces[namespace]
	if !ok {
		e = &namespaceEntry{codecs: make(map[uint64]Codec)}
		r.namespaces[namespace] = e
	}
	return e
}

// Register adds a codec for (namespace, typeID). Registering the same
// pair twice fails with *AlreadyRegistered.
func (r *Registry) Register(namespace string, typeID uint64, codec Codec) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entry(namespace)
	if _, exists := e.codecs[typeID]; exists {
		return &AlreadyRegistered{Namespace: namespace, TypeID: typeID}
	}
	e.codecs[typeID] = codec
	return nil
}

// RegisterNamespaceFallback installs a handler that catches every
// type-id in namespace not otherwise claimed by Register. Only one
// fallback handler may be installed per namespace; a second call
// replaces the first (the spec does not define duplicate-fallback
// semantics, so this mirrors ordinary map assignment rather than
// erroring).
func (r *Registry) RegisterNamespaceFallback(namespace string, handler FallbackHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entry(namespace).fallback = &handler
}

// Lookup finds the codec registered for (namespace, typeID), falling
// back to the namespace's FallbackHandler (wrapped as a Codec) if one
// exists. Returns *NotFound if neither resolves.
func (r *Registry) Lookup(namespace string, typeID uint64) (Codec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.namespaces[namespace]
	if !ok {
		return Codec{}, &NotFound{Namespace: namespace, TypeID: typeID}
	}
	if c, ok := e.codecs[typeID]; ok {
		return c, nil
	}
	if e.fallback != nil {
		fb := e.fallback
		return Codec{
			Encode: func(engine *Engine, value interface{}) ([]byte, error) {
				return fb.Encode(engine, typeID, value)
			},
			Decode: func(engine *Engine, payload []byte) (interface{}, error) {
				return fb.Decode(engine, typeID, payload)
			},
		}, nil
	}
	return Codec{}, &NotFound{Namespace: namespace, TypeID: typeID}
}

// HasNamespace reports whether namespace has been registered, either
// via Register or RegisterNamespaceFallback.
func (r *Registry) HasNamespace(namespace string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.namespaces[namespace]
	return ok
}

// ListNamespaces returns the set of registered namespace names, per
// spec.md §4.2's "reflective accessor". Order is sorted for
// deterministic test assertions; the spec only requires set equality
// (Testable Property 8).
func (r *Registry) ListNamespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.namespaces))
	for name := range r.namespaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unregister removes every codec and fallback handler for namespace.
// Not required by spec.md §4.2 ("unregister is not required... if
// provided, must be race-safe with in-flight encodings") — guarded by
// the same RWMutex as Register, so it is race-safe in that sense, but
// per spec §5 callers still should not mutate a registry shared with
// an in-flight operation.
func (r *Registry) Unregister(namespace string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.namespaces, namespace)
}

// typeKey is the value side of the optional reverse index byGoType:
// given a Go value, find which (namespace, type-id) it should encode
// as. Entries are added by RegisterType. This mirrors the Python
// Codec's `_type_map` (type → (namespace, type_id, codec)).
type typeKey struct {
	namespace string
	typeID    uint64
}

// RegisterType additionally indexes codec under the dynamic Go type of
// sample, so that the Encoder can find the codec for a Custom(value)
// object from value's type alone. Values still have to be wrapped in
// Custom() to be encoded. sample is used only for its type name (as
// printed by %T); its value is discarded.
func (r *Registry) RegisterType(namespace string, typeID uint64, sample interface{}, codec Codec) error {
	if err := r.Register(namespace, typeID, codec); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byGoType == nil {
		r.byGoType = make(map[string]typeKey)
	}
	r.byGoType[goTypeName(sample)] = typeKey{namespace: namespace, typeID: typeID}
	return nil
}

// LookupByGoValue finds the (namespace, typeID, Codec) registered via
// RegisterType for the dynamic type of value.
func (r *Registry) LookupByGoValue(value interface{}) (namespace string, typeID uint64, codec Codec, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, found := r.byGoType[goTypeName(value)]
	if !found {
		return "", 0, Codec{}, false
	}
	e, found := r.namespaces[key.namespace]
	if !found {
		// The namespace was unregistered after RegisterType.
		return "", 0, Codec{}, false
	}
	c, found := e.codecs[key.typeID]
	return key.namespace, key.typeID, c, found
}

func goTypeName(v interface{}) string {
	return fmt.Sprintf("%T", v)
}

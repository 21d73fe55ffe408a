package tobytes

import (
	"bytes"
)

// Session bundles a Registry and Policy behind the convenience API a
// caller actually reaches for: Dumps/Loads pairs taking and returning
// bytes. It mirrors the Python implementation's `Codec` class, which
// pre-registers a set of default namespaces at construction and
// exposes ClearNamespaces as an escape hatch (SPEC_FULL.md's
// SUPPLEMENTED FEATURES #1).
type Session struct {
	Registry *Registry
	Policy   *Policy
}

// New returns a Session with the spec-default policy and every
// registered default namespace applied: when the contrib package is
// imported, that is "core" (uuid/blob) and "time" (time.Time). Call
// ClearNamespaces to start from an empty registry instead.
func New() *Session {
	c := &Session{
		Registry: NewRegistry(),
		Policy:   NewPolicy(),
	}
	registerDefaultNamespaces(c.Registry)
	return c
}

// defaultNamespaceRegistrars is populated by the contrib package's
// init-time registration hooks (one per codec file: see the init()
// functions in contrib/uuidcodec.go, contrib/blobcodec.go, and
// contrib/timecodec.go), so that importing contrib is what actually
// wires the "core" and "time" namespaces into every Session built with
// New. A tobytes-only caller that never imports contrib gets a Session
// with no default namespaces beyond whatever it registers itself.
var defaultNamespaceRegistrars []func(*Registry)

// RegisterDefaultNamespace lets a codec package (contrib) contribute a
// registration hook that every later New call applies. It is
// not meant to be called from application code.
func RegisterDefaultNamespace(fn func(*Registry)) {
	defaultNamespaceRegistrars = append(defaultNamespaceRegistrars, fn)
}

func registerDefaultNamespaces(r *Registry) {
	for _, fn := range defaultNamespaceRegistrars {
		fn(r)
	}
}

// ClearNamespaces removes every registered namespace, including the
// contrib defaults. Equivalent to starting from NewRegistry() directly.
func (c *Session) ClearNamespaces() {
	for _, name := range c.Registry.ListNamespaces() {
		c.Registry.Unregister(name)
	}
}

// Dumps encodes obj into a new tobytes message.
func (c *Session) Dumps(obj Object) ([]byte, error) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, c.Registry, c.Policy)
	if err := enc.Encode(obj); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Loads decodes a single tobytes message from data.
func (c *Session) Loads(data []byte) (Object, error) {
	dec := NewDecoder(bytes.NewReader(data), c.Registry, c.Policy)
	return dec.Decode()
}

package tobytes

import "bytes"

// Engine is the recursive handle passed into every custom-type codec
// invocation, per spec.md §9 ("do not rely on ambient state"). A
// codec that needs to encode or decode a nested tobytes message calls
// back into Engine rather than reaching for a package-level Codec or
// goroutine-local state; that nested call always gets a fresh,
// independent set of scoping stacks (spec.md §4.3: custom-type
// payloads are independent messages).
type Engine struct {
	registry *Registry
	policy   *Policy
}

// newEngine builds an Engine bound to the given registry and policy.
// Decoder and Encoder each hold one and hand it to codecs they invoke.
func newEngine(registry *Registry, policy *Policy) *Engine {
	return &Engine{registry: registry, policy: policy}
}

// DecodeNested decodes payload as a complete, independent tobytes
// message, with its own empty intern frame and an empty namespace-id
// stack (spec.md §4.3). Codecs use this to unwrap a custom-type
// payload that is itself a tobytes message (spec.md S5).
func (e *Engine) DecodeNested(payload []byte) (Object, error) {
	d := NewDecoder(bytes.NewReader(payload), e.registry, e.policy)
	return d.Decode()
}

// EncodeNested encodes obj as a complete, independent tobytes message
// and returns its bytes, using the same registry and policy as the
// enclosing operation but fresh scoping stacks.
func (e *Engine) EncodeNested(obj Object) ([]byte, error) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, e.registry, e.policy)
	if err := enc.Encode(obj); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Registry exposes the underlying registry so a codec can itself
// perform a Lookup (e.g. a namespace whose payload format is a
// dispatch table keyed by an inner type tag).
func (e *Engine) Registry() *Registry { return e.registry }

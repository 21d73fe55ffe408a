package tobytes

import (
	"bytes"
	"io"
	"sort"

	"github.com/stestagg/tobytes/internal/wire"
)

// Encoder walks a user Object and writes a single tobytes message.
// Like Decoder, it is single-use: construct one per message.
type Encoder struct {
	registry *Registry
	policy   *Policy
	engine   *Engine
	out      io.Writer
}

// NewEncoder returns an Encoder writing to w, dispatching custom
// types through registry and applying policy's optional intern/
// namespace-id optimizations.
func NewEncoder(w io.Writer, registry *Registry, policy *Policy) *Encoder {
	return &Encoder{
		registry: registry,
		policy:   policy,
		engine:   newEngine(registry, policy),
		out:      w,
	}
}

// Encode writes obj as a complete tobytes message.
func (e *Encoder) Encode(obj Object) (err error) {
	defer decodePanicToErr(&err)

	ctx := &encodeCtx{enc: e, ns: NewNamespaceStack()}

	nsFrames := ctx.planNamespaceSubstitution(obj)
	for _, f := range nsFrames {
		ctx.ns.Push(f.id, f.name)
	}

	var core []byte
	if e.policy.EnableInterning {
		core = ctx.encodeWithInterning(obj)
	} else {
		core = ctx.encode(obj)
	}

	for i := len(nsFrames) - 1; i >= 0; i-- {
		core = wrapExt(extIDNamespaceID, arrayOf3(strBytes(nsFrames[i].name), uintBytes(nsFrames[i].id), core))
	}

	if _, werr := e.out.Write(core); werr != nil {
		panic(wrapStructuralError(KindMalformedMsgPack, werr, "writing encoded output"))
	}
	return nil
}

// encodeCtx holds the per-operation state threaded through the
// recursive encode: the namespace-id stack (so custom-type encoding
// can consult an active substitution) and, when interning is enabled,
// the intern table under construction.
type encodeCtx struct {
	enc    *Encoder
	ns     *NamespaceStack
	intern *internBuilder
}

// encode renders obj to its complete msgpack bytes, consulting the
// active intern table (if any) first.
func (c *encodeCtx) encode(obj Object) []byte {
	if c.intern != nil {
		if bs, ok := c.intern.resolve(obj, c); ok {
			return bs
		}
	}
	return c.renderRaw(obj)
}

// renderRaw writes obj's own structure, recursing through c.encode
// for every child so nested candidates still get a chance to dedup.
func (c *encodeCtx) renderRaw(obj Object) []byte {
	switch obj.Kind {
	case KObjNil:
		return tokenBytes(wire.Token{Kind: wire.KindNil})
	case KObjBool:
		return tokenBytes(wire.Token{Kind: wire.KindBool, Bool: obj.Bool})
	case KObjInt:
		return tokenBytes(wire.Token{Kind: wire.KindInt, Int: obj.Int})
	case KObjUint:
		return tokenBytes(wire.Token{Kind: wire.KindUint, Uint: obj.Uint})
	case KObjFloat32:
		return tokenBytes(wire.Token{Kind: wire.KindFloat32, Float32: obj.Float32})
	case KObjFloat64:
		return tokenBytes(wire.Token{Kind: wire.KindFloat64, Float64: obj.Float64})
	case KObjStr:
		return tokenBytes(wire.Token{Kind: wire.KindStr, Str: obj.Str})
	case KObjBin:
		return tokenBytes(wire.Token{Kind: wire.KindBin, Bin: obj.Bin})
	case KObjArray:
		var buf bytes.Buffer
		w := wire.NewWriter(&buf)
		if err := w.Write(wire.Token{Kind: wire.KindArrayHeader, Len: len(obj.Array)}); err != nil {
			panic(wrapStructuralError(KindMalformedMsgPack, err, "writing array header"))
		}
		for _, item := range obj.Array {
			buf.Write(c.encode(item))
		}
		return buf.Bytes()
	case KObjMap:
		var buf bytes.Buffer
		w := wire.NewWriter(&buf)
		if err := w.Write(wire.Token{Kind: wire.KindMapHeader, Len: len(obj.Map)}); err != nil {
			panic(wrapStructuralError(KindMalformedMsgPack, err, "writing map header"))
		}
		for _, entry := range obj.Map {
			buf.Write(c.encode(entry.Key))
			buf.Write(c.encode(entry.Value))
		}
		return buf.Bytes()
	case KObjCustom:
		return c.renderCustom(obj)
	case KObjOpaqueRaw:
		return c.renderOpaqueRaw(obj)
	default:
		panic(newStructuralError(KindMalformedMsgPack, "cannot encode object kind %v", obj.Kind))
	}
}

func (c *encodeCtx) renderCustom(obj Object) []byte {
	namespace, typeID, codec, ok := c.enc.registry.LookupByGoValue(obj.Custom)
	if !ok {
		substitute, perr := c.resolveUnregisteredType(obj.Custom)
		if perr != nil {
			panic(perr)
		}
		return c.encode(substitute)
	}
	payload, cerr := codec.Encode(c.enc.engine, obj.Custom)
	if cerr != nil {
		panic(newCodecFault(namespace, typeID, cerr))
	}
	var nsField []byte
	if id, ok := c.ns.ResolveName(namespace); ok {
		nsField = uintBytes(id)
	} else {
		nsField = strBytes(namespace)
	}
	return wrapExt(extIDCustomType, arrayOf3(nsField, uintBytes(typeID), binBytes(payload)))
}

func (c *encodeCtx) resolveUnregisteredType(value interface{}) (Object, error) {
	switch c.enc.policy.OnUnregisteredType {
	case ActionCustomHandler:
		if c.enc.policy.OnUnregisteredTypeHandler == nil {
			return Object{}, newStructuralError(KindCodecFault, "ActionCustomHandler selected but OnUnregisteredTypeHandler is nil")
		}
		return c.enc.policy.OnUnregisteredTypeHandler(value)
	default:
		return Object{}, newStructuralError(KindUnregisteredType, "no codec registered for Go type %T", value)
	}
}

// renderOpaqueRaw re-emits the original ext 0x08 envelope verbatim,
// satisfying spec.md's Testable Property 6 (re-encoding an opaque
// value reproduces the original bytes exactly).
func (c *encodeCtx) renderOpaqueRaw(obj Object) []byte {
	var nsField []byte
	if obj.Raw.Namespace.IsID {
		nsField = uintBytes(obj.Raw.Namespace.ID)
	} else {
		nsField = strBytes(obj.Raw.Namespace.Name)
	}
	return wrapExt(extIDCustomType, arrayOf3(nsField, uintBytes(obj.Raw.TypeID), binBytes(obj.Raw.Payload)))
}

// --- namespace-id substitution planning ---

type plannedFrame struct {
	id   uint64
	name string
}

// planNamespaceSubstitution decides, for the whole message, which
// namespace strings are worth wrapping in ext 0x07 envelopes. This
// implementation operates at whole-message granularity (it either
// wraps the entire encoded body in a namespace's binding or it
// doesn't) rather than computing a minimal per-subtree scope, which
// spec.md §4.5 leaves implementation-defined; see DESIGN.md.
func (c *encodeCtx) planNamespaceSubstitution(root Object) []plannedFrame {
	if !c.enc.policy.EnableNamespaceIDSubstitution {
		return nil
	}
	counts := map[string]int{}
	countNamespaces(root, c.enc.registry, counts)

	threshold := c.enc.policy.NamespaceIDThreshold
	if threshold <= 0 {
		threshold = 2
	}
	names := make([]string, 0, len(counts))
	for name, n := range counts {
		if n >= threshold {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	frames := make([]plannedFrame, len(names))
	for i, name := range names {
		frames[i] = plannedFrame{id: uint64(i), name: name}
	}
	return frames
}

func countNamespaces(obj Object, registry *Registry, counts map[string]int) {
	switch obj.Kind {
	case KObjArray:
		for _, item := range obj.Array {
			countNamespaces(item, registry, counts)
		}
	case KObjMap:
		for _, entry := range obj.Map {
			countNamespaces(entry.Key, registry, counts)
			countNamespaces(entry.Value, registry, counts)
		}
	case KObjCustom:
		if namespace, _, _, ok := registry.LookupByGoValue(obj.Custom); ok {
			counts[namespace]++
		}
	case KObjOpaqueRaw:
		if !obj.Raw.Namespace.IsID {
			counts[obj.Raw.Namespace.Name]++
		}
	}
}

// --- wire-level byte helpers ---

func tokenBytes(tok wire.Token) []byte {
	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	if err := w.Write(tok); err != nil {
		panic(wrapStructuralError(KindMalformedMsgPack, err, "encoding token"))
	}
	return buf.Bytes()
}

func strBytes(s string) []byte   { return tokenBytes(wire.Token{Kind: wire.KindStr, Str: s}) }
func uintBytes(u uint64) []byte  { return tokenBytes(wire.Token{Kind: wire.KindUint, Uint: u}) }
func binBytes(b []byte) []byte   { return tokenBytes(wire.Token{Kind: wire.KindBin, Bin: b}) }

func arrayOf3(a, b, c []byte) []byte {
	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	if err := w.Write(wire.Token{Kind: wire.KindArrayHeader, Len: 3}); err != nil {
		panic(wrapStructuralError(KindMalformedMsgPack, err, "encoding array header"))
	}
	buf.Write(a)
	buf.Write(b)
	buf.Write(c)
	return buf.Bytes()
}

func wrapExt(id int8, payload []byte) []byte {
	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	if err := w.WriteExt(id, payload); err != nil {
		panic(wrapStructuralError(KindMalformedMsgPack, err, "encoding ext envelope"))
	}
	return buf.Bytes()
}

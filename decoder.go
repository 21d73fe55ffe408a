package tobytes

import (
	"bytes"
	"io"

	"github.com/stestagg/tobytes/internal/wire"
)

const (
	extIDInternTable = 6
	extIDNamespaceID = 7
	extIDCustomType  = 8
)

// Decoder drives the msgpack adapter to produce a single Object,
// recognizing the three reserved ext ids and maintaining the two
// scoping stacks across the lifetime of one decode operation
// (spec.md §4.4). A Decoder is single-use: construct one per message.
type Decoder struct {
	registry *Registry
	policy   *Policy
	intern   *InternStack
	ns       *NamespaceStack
	engine   *Engine
	root     *wire.Reader
}

// NewDecoder returns a Decoder reading one tobytes message from r,
// resolving custom types against registry and applying policy for
// unknowns.
func NewDecoder(r io.Reader, registry *Registry, policy *Policy) *Decoder {
	return &Decoder{
		registry: registry,
		policy:   policy,
		intern:   NewInternStack(),
		ns:       NewNamespaceStack(),
		engine:   newEngine(registry, policy),
		root:     wire.NewReader(r),
	}
}

// Decode reads and returns the single top-level Object encoded in the
// message, following the teacher's panic-at-leaves /
// recover-at-the-boundary idiom: internal helpers panic with an
// already-typed *StructuralError, *PolicyError, or *CodecFault, and
// this method is the only place that recovers.
func (d *Decoder) Decode() (obj Object, err error) {
	defer decodePanicToErr(&err)
	return d.decodeObject(d.root), nil
}

func decodePanicToErr(errp *error) {
	if r := recover(); r != nil {
		if e, ok := r.(error); ok {
			*errp = e
			return
		}
		panic(r)
	}
}

func (d *Decoder) decodeObject(r *wire.Reader) Object {
	tok, err := r.Next()
	if err != nil {
		panic(wrapStructuralError(KindMalformedMsgPack, err, "reading next token"))
	}
	return d.decodeToken(r, tok)
}

func (d *Decoder) decodeToken(r *wire.Reader, tok wire.Token) Object {
	switch tok.Kind {
	case wire.KindNil:
		return Nil()
	case wire.KindBool:
		return Bool(tok.Bool)
	case wire.KindInt:
		return Int(tok.Int)
	case wire.KindUint:
		return Uint(tok.Uint)
	case wire.KindFloat32:
		return Float32Val(tok.Float32)
	case wire.KindFloat64:
		return Float64Val(tok.Float64)
	case wire.KindStr:
		return Str(tok.Str)
	case wire.KindBin:
		return Bin(tok.Bin)
	case wire.KindArrayHeader:
		items := make([]Object, tok.Len)
		for i := range items {
			items[i] = d.decodeObject(r)
		}
		return Object{Kind: KObjArray, Array: items}
	case wire.KindMapHeader:
		entries := make([]MapEntry, tok.Len)
		for i := range entries {
			key := d.decodeObject(r)
			val := d.decodeObject(r)
			entries[i] = MapEntry{Key: key, Value: val}
		}
		return Object{Kind: KObjMap, Map: entries}
	case wire.KindExt:
		return d.decodeExt(tok)
	default:
		panic(newStructuralError(KindMalformedMsgPack, "unhandled token kind %v", tok.Kind))
	}
}

func (d *Decoder) decodeExt(tok wire.Token) Object {
	switch tok.ExtID {
	case extIDInternTable:
		return d.decodeInternEnvelope(tok.Bin)
	case extIDNamespaceID:
		return d.decodeNamespaceIDMapping(tok.Bin)
	case extIDCustomType:
		return d.decodeCustomType(tok.Bin)
	default:
		panic(newStructuralError(KindDisallowedExtension, "ext id %d is not one of {6, 7, 8}", tok.ExtID))
	}
}

// decodeInternEnvelope disambiguates and decodes ext 0x06. The first
// msgpack token of the payload is an array head for a table, a
// non-negative integer head for a reference; anything else is
// *MalformedInternEnvelope (spec.md §4.4).
func (d *Decoder) decodeInternEnvelope(payload []byte) Object {
	sub := wire.NewReader(bytes.NewReader(payload))
	first, err := sub.Next()
	if err != nil {
		panic(wrapStructuralError(KindMalformedInternEnvelope, err, "reading intern envelope head"))
	}
	switch {
	case first.Kind == wire.KindArrayHeader:
		return d.decodeInternTable(sub, first)
	case isUintLike(first):
		idx := mustUintLike(first)
		obj, err := d.intern.Resolve(idx)
		if err != nil {
			panic(err)
		}
		return obj
	default:
		panic(newStructuralError(KindMalformedInternEnvelope, "payload head is %v, want array or uint", first.Kind))
	}
}

func (d *Decoder) decodeInternTable(sub *wire.Reader, outer wire.Token) Object {
	if outer.Len != 2 {
		panic(newStructuralError(KindMalformedInternEnvelope, "table envelope has %d elements, want 2", outer.Len))
	}
	if err := d.intern.Push(); err != nil {
		panic(err)
	}
	defer d.intern.Pop()

	entriesHead, err := sub.Next()
	if err != nil {
		panic(wrapStructuralError(KindMalformedInternEnvelope, err, "reading entries array head"))
	}
	if entriesHead.Kind != wire.KindArrayHeader {
		panic(newStructuralError(KindMalformedInternEnvelope, "entries field is %v, want array", entriesHead.Kind))
	}
	for i := 0; i < entriesHead.Len; i++ {
		entry := d.decodeObject(sub)
		d.intern.Append(entry)
	}
	return d.decodeObject(sub)
}

// decodeNamespaceIDMapping decodes ext 0x07's `[str namespace, uint id,
// object body]` payload, pushing the binding for the lexical extent of
// body and popping it on return (spec.md §3, §4.3).
func (d *Decoder) decodeNamespaceIDMapping(payload []byte) Object {
	sub := wire.NewReader(bytes.NewReader(payload))
	head, err := sub.Next()
	if err != nil || head.Kind != wire.KindArrayHeader || head.Len != 3 {
		panic(wrapStructuralError(KindMalformedMsgPack, err, "malformed namespace-id mapping envelope"))
	}
	nameTok, err := sub.Next()
	if err != nil || nameTok.Kind != wire.KindStr {
		panic(wrapStructuralError(KindMalformedMsgPack, err, "namespace-id mapping: namespace field is not a string"))
	}
	idTok, err := sub.Next()
	if err != nil || !isUintLike(idTok) {
		panic(wrapStructuralError(KindMalformedMsgPack, err, "namespace-id mapping: id field is not a uint"))
	}
	id := mustUintLike(idTok)

	d.ns.Push(id, nameTok.Str)
	defer d.ns.Pop()
	return d.decodeObject(sub)
}

// decodeCustomType decodes ext 0x08's `[str|uint namespace_or_id,
// uint type_id, bin payload]` envelope, resolving an integer
// namespace-id against the active NamespaceStack (*UnknownNamespaceId
// if unbound — always fatal, per spec.md §4.6), then dispatching to
// the Registry and applying Policy for anything it can't resolve.
func (d *Decoder) decodeCustomType(payload []byte) Object {
	sub := wire.NewReader(bytes.NewReader(payload))
	head, err := sub.Next()
	if err != nil || head.Kind != wire.KindArrayHeader || head.Len != 3 {
		panic(wrapStructuralError(KindMalformedMsgPack, err, "malformed custom-type envelope"))
	}
	nsTok, err := sub.Next()
	if err != nil {
		panic(wrapStructuralError(KindMalformedMsgPack, err, "reading custom-type namespace field"))
	}

	var ref NamespaceRef
	var namespace string
	switch {
	case nsTok.Kind == wire.KindStr:
		namespace = nsTok.Str
		ref = NameRef(namespace)
	case isUintLike(nsTok):
		id := mustUintLike(nsTok)
		name, ok := d.ns.Resolve(id)
		if !ok {
			panic(newStructuralError(KindUnknownNamespaceId, "namespace id %d is not bound in the active namespace-id stack", id))
		}
		namespace = name
		ref = IDRef(id, name)
	default:
		panic(newStructuralError(KindMalformedMsgPack, "custom-type namespace field is %v, want str or uint", nsTok.Kind))
	}

	typeIDTok, err := sub.Next()
	if err != nil || !isUintLike(typeIDTok) {
		panic(wrapStructuralError(KindMalformedMsgPack, err, "custom-type type-id field is not a uint"))
	}
	typeID := mustUintLike(typeIDTok)

	bytesTok, err := sub.Next()
	if err != nil || bytesTok.Kind != wire.KindBin {
		panic(wrapStructuralError(KindMalformedMsgPack, err, "custom-type payload field is not bin"))
	}
	body := bytesTok.Bin

	if !d.registry.HasNamespace(namespace) {
		obj, err := d.policy.resolveUnknownNamespace(ref, typeID, body)
		if err != nil {
			panic(err)
		}
		return obj
	}

	codec, err := d.registry.Lookup(namespace, typeID)
	if err != nil {
		obj, perr := d.policy.resolveUnknownType(namespace, typeID, body)
		if perr != nil {
			panic(perr)
		}
		return obj
	}

	value, cerr := codec.Decode(d.engine, body)
	if cerr != nil {
		panic(newCodecFault(namespace, typeID, cerr))
	}
	return Custom(value)
}

func isUintLike(tok wire.Token) bool {
	return tok.Kind == wire.KindUint || (tok.Kind == wire.KindInt && tok.Int >= 0)
}

func mustUintLike(tok wire.Token) uint64 {
	if tok.Kind == wire.KindUint {
		return tok.Uint
	}
	if tok.Kind == wire.KindInt && tok.Int >= 0 {
		return uint64(tok.Int)
	}
	panic(newStructuralError(KindMalformedMsgPack, "token %v is not a non-negative integer", tok.Kind))
}

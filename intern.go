package tobytes

import (
	"bytes"
	"encoding/binary"
	"math"
	"reflect"

	"github.com/zeebo/blake3"
)

// internFrame is the decode-side state for one active ext 0x06 table:
// the growing list of decoded entries, visible to later entries and to
// body per spec.md §4.4's state machine (Entries(i) → Body → Done).
type internFrame struct {
	entries []Object
}

// InternStack enforces spec.md §4.3's "at most one active frame"
// invariant during decode: pushing a second table while one is active
// is *NestedInternTable. Entering a custom-type payload starts a
// brand new Decoder with its own InternStack (intern state does not
// inherit across that boundary, per spec.md §4.3), so this type itself
// never needs to represent more than one frame.
type InternStack struct {
	active *internFrame
}

// NewInternStack returns a stack with no active frame.
func NewInternStack() *InternStack { return &InternStack{} }

// Push starts a new intern-table frame. Returns *StructuralError with
// KindNestedInternTable if a frame is already active.
func (s *InternStack) Push() error {
	if s.active != nil {
		return newStructuralError(KindNestedInternTable, "a 0x06 table is already active on this decode path")
	}
	s.active = &internFrame{}
	return nil
}

// Append records a newly decoded entry, making it visible to
// subsequent entries (index len-1 after this call) and to body.
func (s *InternStack) Append(obj Object) {
	s.active.entries = append(s.active.entries, obj)
}

// Len reports how many entries are currently visible — the "i" of
// Entries(i) in spec.md §4.4's state machine.
func (s *InternStack) Len() int {
	if s.active == nil {
		return 0
	}
	return len(s.active.entries)
}

// Resolve returns the entry bound at index in the active frame.
// *StructuralError with KindNoInternFrame if no frame is active;
// KindForwardInternRef if index is out of the currently-visible range.
func (s *InternStack) Resolve(index uint64) (Object, error) {
	if s.active == nil {
		return Object{}, newStructuralError(KindNoInternFrame, "intern reference with no enclosing table")
	}
	if index >= uint64(len(s.active.entries)) {
		return Object{}, newStructuralError(KindForwardInternRef, "index %d >= %d entries currently available", index, len(s.active.entries))
	}
	return s.active.entries[index], nil
}

// Pop discards the active frame; its entries fall out of scope, per
// the lifecycle rule in spec.md §3 ("destroyed when body has been
// fully decoded").
func (s *InternStack) Pop() {
	s.active = nil
}

// Active reports whether a frame is currently pushed.
func (s *InternStack) Active() bool { return s.active != nil }

// InternEquality compares two candidate subtrees for encoder-side
// interning eligibility. The default (DefaultInternEquality) treats
// interning as operating over whole subtrees, using canonical msgpack
// bytes as the comparison key (spec.md §9's open question (a) and
// design note on default equality). Callers can substitute a custom
// predicate via Policy.InternEquality.
type InternEquality func(a, b Object) bool

// DefaultInternEquality is Object.Equal: structural equality of the
// Object tree, under which an Int and a Uint holding the same integer
// are equal and custom-type instances compare via their own Equal
// method if present, else Go ==. The encoder does not call it when
// Policy.InternEquality is nil; that path groups candidates by
// byte-identical canonicalBytes, which keeps Int and Uint apart.
func DefaultInternEquality(a, b Object) bool {
	return a.Equal(b)
}

// internKey is a BLAKE3 digest of a candidate's canonical bytes. The
// encoder's intern pre-pass (intern_builder.go) does not use it: its
// maps are keyed on the canonical bytes themselves.
type internKey [32]byte

func computeInternKey(canonicalBytes []byte) internKey {
	h := blake3.New()
	h.Write(canonicalBytes)
	var out internKey
	copy(out[:], h.Sum(nil))
	return out
}

// canonicalBytes renders obj as canonical msgpack bytes for the
// purposes of intern-equality hashing and the default equality
// predicate. Map key order is preserved as constructed (spec.md §9
// open question (c)): this module does not sort map keys, so two Map
// objects built with the same keys in different orders are NOT
// considered equal by DefaultInternEquality. See DESIGN.md.
//
// c supplies the registry/engine a KObjCustom value needs to
// canonicalize by its actual codec-encoded payload (or, under
// ByIdentity, by Go identity) rather than by its bare tag; c may be
// nil for calls that are known never to reach a KObjCustom subtree.
func canonicalBytes(obj Object, c *encodeCtx) []byte {
	var buf bytes.Buffer
	writeCanonical(&buf, obj, c)
	return buf.Bytes()
}

func writeCanonical(buf *bytes.Buffer, obj Object, c *encodeCtx) {
	var scratch [8]byte
	switch obj.Kind {
	case KObjNil:
		buf.WriteByte(0)
	case KObjBool:
		buf.WriteByte(1)
		if obj.Bool {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case KObjInt:
		buf.WriteByte(2)
		binary.BigEndian.PutUint64(scratch[:], uint64(obj.Int))
		buf.Write(scratch[:])
	case KObjUint:
		buf.WriteByte(3)
		binary.BigEndian.PutUint64(scratch[:], obj.Uint)
		buf.Write(scratch[:])
	case KObjFloat32:
		buf.WriteByte(4)
		binary.BigEndian.PutUint32(scratch[:4], math.Float32bits(obj.Float32))
		buf.Write(scratch[:4])
	case KObjFloat64:
		buf.WriteByte(5)
		binary.BigEndian.PutUint64(scratch[:], math.Float64bits(obj.Float64))
		buf.Write(scratch[:])
	case KObjStr:
		buf.WriteByte(6)
		writeCanonicalLen(buf, len(obj.Str))
		buf.WriteString(obj.Str)
	case KObjBin:
		buf.WriteByte(7)
		writeCanonicalLen(buf, len(obj.Bin))
		buf.Write(obj.Bin)
	case KObjArray:
		buf.WriteByte(8)
		writeCanonicalLen(buf, len(obj.Array))
		for _, elem := range obj.Array {
			writeCanonical(buf, elem, c)
		}
	case KObjMap:
		buf.WriteByte(9)
		writeCanonicalLen(buf, len(obj.Map))
		for _, entry := range obj.Map {
			writeCanonical(buf, entry.Key, c)
			writeCanonical(buf, entry.Value, c)
		}
	case KObjCustom:
		buf.WriteByte(10)
		writeCanonicalCustom(buf, obj, c)
	case KObjOpaqueRaw:
		buf.WriteByte(11)
		buf.WriteString(obj.Raw.Namespace.String())
		writeCanonicalLen(buf, int(obj.Raw.TypeID))
		buf.Write(obj.Raw.Payload)
	}
}

// writeCanonicalCustom extends a KObjCustom's canonical bytes with
// the wrapped Go value's registered namespace/type-id plus either its
// codec-encoded payload (ByEquality, and the ByIdentity fallback for
// values with no notion of identity distinct from their content) or a
// pointer identity (ByIdentity, when the value actually is a pointer
// kind). Without this, every custom value canonicalized to the same
// bare tag byte and collided in the intern dedup map regardless of
// what it wrapped.
func writeCanonicalCustom(buf *bytes.Buffer, obj Object, c *encodeCtx) {
	if c == nil {
		// No encoder context: nothing more can be said about the
		// wrapped value without its codec. Every live encode path
		// supplies a non-nil c; this is only reached by canonicalBytes
		// callers that don't deal in custom values at all.
		return
	}
	namespace, typeID, codec, ok := c.enc.registry.LookupByGoValue(obj.Custom)
	if !ok {
		// Unregistered: rendering will fail later with
		// KindUnregisteredType anyway, so the tag byte already written
		// is all the canonicalization this gets.
		return
	}
	writeCanonicalLen(buf, len(namespace))
	buf.WriteString(namespace)
	writeCanonicalLen(buf, int(typeID))

	if obj.InternMode == ByIdentity {
		if key, ok := identityBytes(obj.Custom); ok {
			buf.WriteByte('i')
			buf.Write(key)
			return
		}
	}
	payload, err := codec.Encode(c.enc.engine, obj.Custom)
	if err != nil {
		return
	}
	buf.WriteByte('e')
	writeCanonicalLen(buf, len(payload))
	buf.Write(payload)
}

// identityBytes returns a key standing for value's Go identity —
// a pointer address for pointer, channel, and function values — or
// ok=false for every other kind, which has no identity distinct from
// its content.
func identityBytes(value interface{}) ([]byte, bool) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		if rv.IsNil() {
			return nil, false
		}
		var scratch [8]byte
		binary.BigEndian.PutUint64(scratch[:], uint64(rv.Pointer()))
		return scratch[:], true
	default:
		return nil, false
	}
}

func writeCanonicalLen(buf *bytes.Buffer, n int) {
	var scratch [8]byte
	binary.BigEndian.PutUint64(scratch[:], uint64(n))
	buf.Write(scratch[:])
}

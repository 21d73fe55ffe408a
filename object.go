package tobytes

import "fmt"

// ObjectKind discriminates the cases of the Object tagged variant: the
// msgpack primitive families, the two container shapes, a decoded
// custom-type instance, and the opaque-raw fallback for unresolved
// custom types. This is the polymorphic object model spec.md §9 asks
// for, represented as a tagged variant rather than an interface
// hierarchy so that Equal and the default intern-equality predicate
// can pattern-match exhaustively.
type ObjectKind int

const (
	KObjNil ObjectKind = iota
	KObjBool
	KObjInt
	KObjUint
	KObjFloat32
	KObjFloat64
	KObjStr
	KObjBin
	KObjArray
	KObjMap
	KObjCustom
	KObjOpaqueRaw
)

// MapEntry is one key/value pair of a Map object. Order is preserved
// from the wire (and from construction) since tobytes does not impose
// canonical map-key ordering on the wire; see DESIGN.md for the
// canonicalization chosen for intern equality.
type MapEntry struct {
	Key   Object
	Value Object
}

// NamespaceRef identifies which form a custom-type envelope's
// namespace field took on the wire: a literal namespace string, or an
// integer id resolved through the namespace-id stack (spec.md §4.4).
// It is exposed on OpaqueRaw so that re-emitting the value reproduces
// the same form.
type NamespaceRef struct {
	IsID      bool
	Name      string
	ID        uint64
	hasNsName bool // ID form additionally resolved to this namespace string
}

// NameRef builds a NamespaceRef carrying a literal namespace string.
func NameRef(name string) NamespaceRef { return NamespaceRef{Name: name} }

// IDRef builds a NamespaceRef carrying a namespace-id, resolved (for
// bookkeeping purposes) against the string it was bound to at decode
// time.
func IDRef(id uint64, resolvedName string) NamespaceRef {
	return NamespaceRef{IsID: true, ID: id, Name: resolvedName, hasNsName: resolvedName != ""}
}

func (n NamespaceRef) String() string {
	if n.IsID {
		return fmt.Sprintf("#%d(%s)", n.ID, n.Name)
	}
	return n.Name
}

// OpaqueRaw is the fallback object produced when policy resolves an
// unknown namespace or unknown type-id to "as_raw" instead of failing.
// It carries enough information to re-emit the original ext 0x08
// envelope byte-for-byte; see spec.md §7.
type OpaqueRaw struct {
	Namespace NamespaceRef
	TypeID    uint64
	Payload   []byte
}

// Object is the logical value tobytes hands to and receives from the
// caller: msgpack primitives, ordered sequences, key/value mappings,
// decoded custom-type instances, and opaque raw fallbacks.
type Object struct {
	Kind    ObjectKind
	Bool    bool
	Int     int64
	Uint    uint64
	Float32 float32
	Float64 float64
	Str     string
	Bin     []byte
	Array   []Object
	Map     []MapEntry

	// Custom holds the arbitrary Go value produced by a registered
	// decode function for a KObjCustom object — e.g. a uuid.UUID, a
	// time.Time, or a nested Object tree for a custom type whose
	// codec itself calls back into the engine. The engine does not
	// interpret this value further; see Registry and the recursive
	// engine handle in spec.md §9.
	Custom interface{}

	// Raw is non-nil only for KObjOpaqueRaw.
	Raw *OpaqueRaw

	// ForceIntern and InternMode implement the by_identity/by_equality
	// Intern() wrapper of the Python and Rust prior implementations
	// (see SPEC_FULL.md's SUPPLEMENTED FEATURES). They are additive
	// fields on Object rather than a new tagged case so that the
	// decoder — which never sets them — is unaffected: a decoded
	// Object always has ForceIntern == false.
	ForceIntern bool
	InternMode  EqualityMode
}

// EqualityMode selects how the encoder builds the intern dedup key of
// a KObjCustom value (see writeCanonicalCustom). It has no effect on
// other kinds, which are always grouped by their canonical bytes (or
// by the caller's InternEquality predicate).
type EqualityMode int

const (
	// ByIdentity keys a KObjCustom value holding a pointer, channel or
	// function by its address, so only the same underlying Go value
	// shares an entry; any other custom value has no identity distinct
	// from its content and is keyed by its codec-encoded payload, as
	// under ByEquality (documented in DESIGN.md).
	ByIdentity EqualityMode = iota
	// ByEquality keys a KObjCustom value by its registered namespace,
	// type-id and codec-encoded payload, so values that encode to the
	// same bytes share an entry.
	ByEquality
)

// Interned marks obj as an explicit interning candidate: the encoder
// includes it in the intern table even if it would not otherwise pass
// the repeat-count/cost-model heuristic (spec.md §9's "encoder MAY";
// Interned is the caller opting in unconditionally). Equality mode
// defaults to ByIdentity, matching the Python/Rust Intern wrapper.
func Interned(obj Object) Object {
	obj.ForceIntern = true
	obj.InternMode = ByIdentity
	return obj
}

// InternedWithEquality is Interned with an explicit EqualityMode.
func InternedWithEquality(obj Object, mode EqualityMode) Object {
	obj.ForceIntern = true
	obj.InternMode = mode
	return obj
}

func Nil() Object                    { return Object{Kind: KObjNil} }
func Bool(b bool) Object             { return Object{Kind: KObjBool, Bool: b} }
func Int(i int64) Object             { return Object{Kind: KObjInt, Int: i} }
func Uint(u uint64) Object           { return Object{Kind: KObjUint, Uint: u} }
func Float32Val(f float32) Object    { return Object{Kind: KObjFloat32, Float32: f} }
func Float64Val(f float64) Object    { return Object{Kind: KObjFloat64, Float64: f} }
func Str(s string) Object            { return Object{Kind: KObjStr, Str: s} }
func Bin(b []byte) Object            { return Object{Kind: KObjBin, Bin: b} }
func Array(items ...Object) Object   { return Object{Kind: KObjArray, Array: items} }
func MapOf(entries ...MapEntry) Object {
	return Object{Kind: KObjMap, Map: entries}
}
func Custom(v interface{}) Object { return Object{Kind: KObjCustom, Custom: v} }
func OpaqueRawVal(r OpaqueRaw) Object {
	return Object{Kind: KObjOpaqueRaw, Raw: &r}
}

// IsNil reports whether o is the nil object.
func (o Object) IsNil() bool { return o.Kind == KObjNil }

func (o ObjectKind) String() string {
	switch o {
	case KObjNil:
		return "nil"
	case KObjBool:
		return "bool"
	case KObjInt:
		return "int"
	case KObjUint:
		return "uint"
	case KObjFloat32:
		return "float32"
	case KObjFloat64:
		return "float64"
	case KObjStr:
		return "str"
	case KObjBin:
		return "bin"
	case KObjArray:
		return "array"
	case KObjMap:
		return "map"
	case KObjCustom:
		return "custom"
	case KObjOpaqueRaw:
		return "opaque_raw"
	default:
		return "unknown"
	}
}

// Equal is the default user-level equality used by tests and by
// DefaultInternEquality: structural equality over the Object
// tree. Int and Uint values that denote the same mathematical integer
// compare equal across kinds, matching msgpack's "natural minimal
// encoding" guarantee (spec.md §6) rather than requiring callers to
// track which width the wire happened to choose.
func (o Object) Equal(other Object) bool {
	if ov, ok := asInteger(o); ok {
		if ow, ok2 := asInteger(other); ok2 {
			// Across kinds, a negative value is never the same integer:
			// a Uint above MaxInt64 wraps negative in asInteger.
			return ov == ow && (o.Kind == other.Kind || ov >= 0)
		}
	}
	if o.Kind != other.Kind {
		return false
	}
	switch o.Kind {
	case KObjNil:
		return true
	case KObjBool:
		return o.Bool == other.Bool
	case KObjFloat32:
		return o.Float32 == other.Float32
	case KObjFloat64:
		return o.Float64 == other.Float64
	case KObjStr:
		return o.Str == other.Str
	case KObjBin:
		return bytesEqual(o.Bin, other.Bin)
	case KObjArray:
		if len(o.Array) != len(other.Array) {
			return false
		}
		for i := range o.Array {
			if !o.Array[i].Equal(other.Array[i]) {
				return false
			}
		}
		return true
	case KObjMap:
		if len(o.Map) != len(other.Map) {
			return false
		}
		for i := range o.Map {
			if !o.Map[i].Key.Equal(other.Map[i].Key) || !o.Map[i].Value.Equal(other.Map[i].Value) {
				return false
			}
		}
		return true
	case KObjCustom:
		if eq, ok := o.Custom.(interface{ Equal(interface{}) bool }); ok {
			return eq.Equal(other.Custom)
		}
		return o.Custom == other.Custom
	case KObjOpaqueRaw:
		return o.Raw.Namespace == other.Raw.Namespace &&
			o.Raw.TypeID == other.Raw.TypeID &&
			bytesEqual(o.Raw.Payload, other.Raw.Payload)
	default:
		return false
	}
}

// asInteger normalizes KObjInt/KObjUint into a common comparable form
// so 42 (encoded as Int) and 42 (encoded as Uint) are Equal.
func asInteger(o Object) (int64, bool) {
	switch o.Kind {
	case KObjInt:
		return o.Int, true
	case KObjUint:
		return int64(o.Uint), true
	default:
		return 0, false
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

package tobytes

// UnknownAction selects how the engine responds to an unknown
// namespace or unknown type-id within a known namespace, per
// spec.md §4.6.
type UnknownAction int

const (
	// ActionError fails the decode with the corresponding PolicyError.
	ActionError UnknownAction = iota
	// ActionAsRaw produces an OpaqueRaw object instead of failing.
	ActionAsRaw
	// ActionCustomHandler invokes a caller-supplied handler.
	ActionCustomHandler
)

// UnknownNamespaceHandler is invoked when ActionCustomHandler is
// selected for an unknown namespace. It receives the namespace
// reference, type-id, and raw payload, and returns the Object to
// substitute in the decoded tree.
type UnknownNamespaceHandler func(ns NamespaceRef, typeID uint64, payload []byte) (Object, error)

// UnknownTypeHandler is the known-namespace analogue of
// UnknownNamespaceHandler.
type UnknownTypeHandler func(namespace string, typeID uint64, payload []byte) (Object, error)

// Policy configures how the Decoder responds to namespaces and
// type-ids it cannot resolve, and how the Encoder builds intern tables
// and namespace-id substitutions. The zero value is NOT ready to use;
// call NewPolicy for spec-compliant defaults.
type Policy struct {
	// OnUnknownNamespace governs a 0x08 envelope whose namespace is
	// not registered at all. Default: ActionError.
	OnUnknownNamespace UnknownAction
	// OnUnknownNamespaceHandler is consulted when OnUnknownNamespace
	// is ActionCustomHandler.
	OnUnknownNamespaceHandler UnknownNamespaceHandler

	// OnUnknownType governs a 0x08 envelope whose namespace is known
	// but whose type-id has no codec and no fallback handler.
	// Default: ActionError. Per spec.md §4.6 this MAY be made
	// unconditional (always ActionError) by a stricter configuration;
	// this implementation honors whatever is set here.
	OnUnknownType UnknownAction
	// OnUnknownTypeHandler is consulted when OnUnknownType is
	// ActionCustomHandler.
	OnUnknownTypeHandler UnknownTypeHandler

	// InternEquality decides whether two candidate subtrees the
	// encoder is considering for interning are "the same" for
	// dedup purposes. Default: nil, under which the encoder groups
	// candidates by byte-identical canonical bytes.
	InternEquality InternEquality

	// EnableInterning turns on the encoder's intern pre-pass.
	// Default: false — an encoder with no configuration never
	// builds an intern table, matching spec.md's "MAY perform a
	// pre-pass" (opt-in, not implied).
	EnableInterning bool

	// EnableNamespaceIDSubstitution turns on ext 0x07 wrapping.
	// Default: false.
	EnableNamespaceIDSubstitution bool

	// NamespaceIDThreshold is the minimum number of occurrences of a
	// namespace string within the whole message before the encoder considers
	// wrapping it in a 0x07 envelope, when
	// EnableNamespaceIDSubstitution is true. Zero means "use the
	// encoder's built-in default threshold" (see encoder.go).
	NamespaceIDThreshold int

	// OnUnregisteredType governs a KObjCustom value with no codec
	// registered for its Go type. Default: ActionError.
	OnUnregisteredType UnknownAction
	// OnUnregisteredTypeHandler is consulted when OnUnregisteredType
	// is ActionCustomHandler; it returns a substitute Object to encode
	// in place of the unregistered value.
	OnUnregisteredTypeHandler func(value interface{}) (Object, error)
}

// NewPolicy returns the spec-default policy: unknown namespaces,
// unknown types, and unregistered Go values are fatal errors,
// interning and namespace-id substitution are both disabled. Leaving
// InternEquality nil means the encoder uses its fast canonical-bytes
// path; set it explicitly to opt into the slower, general
// user-predicate path (see intern_builder.go).
func NewPolicy() *Policy {
	return &Policy{
		OnUnknownNamespace: ActionError,
		OnUnknownType:      ActionError,
		OnUnregisteredType: ActionError,
	}
}

// resolveUnknownNamespace applies p.OnUnknownNamespace. namespace is
// the string or id form as seen on the wire (NamespaceRef), already
// failed to resolve against the registry.
func (p *Policy) resolveUnknownNamespace(ns NamespaceRef, typeID uint64, payload []byte) (Object, error) {
	switch p.OnUnknownNamespace {
	case ActionAsRaw:
		return OpaqueRawVal(OpaqueRaw{Namespace: ns, TypeID: typeID, Payload: payload}), nil
	case ActionCustomHandler:
		if p.OnUnknownNamespaceHandler == nil {
			return Object{}, newStructuralError(KindCodecFault, "ActionCustomHandler selected but OnUnknownNamespaceHandler is nil")
		}
		return p.OnUnknownNamespaceHandler(ns, typeID, payload)
	default:
		return Object{}, newPolicyError(KindUnknownNamespace, ns.String(), typeID, "unknown namespace")
	}
}

func (p *Policy) resolveUnknownType(namespace string, typeID uint64, payload []byte) (Object, error) {
	switch p.OnUnknownType {
	case ActionAsRaw:
		return OpaqueRawVal(OpaqueRaw{Namespace: NameRef(namespace), TypeID: typeID, Payload: payload}), nil
	case ActionCustomHandler:
		if p.OnUnknownTypeHandler == nil {
			return Object{}, newStructuralError(KindCodecFault, "ActionCustomHandler selected but OnUnknownTypeHandler is nil")
		}
		return p.OnUnknownTypeHandler(namespace, typeID, payload)
	default:
		return Object{}, newPolicyError(KindUnknownTypeId, namespace, typeID, "unknown type-id in known namespace")
	}
}

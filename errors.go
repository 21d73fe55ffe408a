package tobytes

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a structural, policy, or codec failure per the
// engine's error taxonomy. Kinds never change meaning between releases;
// new kinds may be appended.
type ErrorKind int

const (
	KindMalformedMsgPack ErrorKind = iota
	KindDisallowedExtension
	KindMalformedInternEnvelope
	KindNestedInternTable
	KindNoInternFrame
	KindForwardInternRef
	KindCyclicInternGraph
	KindUnknownNamespace
	KindUnknownNamespaceId
	KindUnknownTypeId
	KindUnregisteredType
	KindCodecFault
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformedMsgPack:
		return "MalformedMsgPack"
	case KindDisallowedExtension:
		return "DisallowedExtension"
	case KindMalformedInternEnvelope:
		return "MalformedInternEnvelope"
	case KindNestedInternTable:
		return "NestedInternTable"
	case KindNoInternFrame:
		return "NoInternFrame"
	case KindForwardInternRef:
		return "ForwardInternRef"
	case KindCyclicInternGraph:
		return "CyclicInternGraph"
	case KindUnknownNamespace:
		return "UnknownNamespace"
	case KindUnknownNamespaceId:
		return "UnknownNamespaceId"
	case KindUnknownTypeId:
		return "UnknownTypeId"
	case KindUnregisteredType:
		return "UnregisteredType"
	case KindCodecFault:
		return "CodecFault"
	default:
		return "Unknown"
	}
}

// StructuralError reports a violation of the wire grammar or the
// scoping-stack invariants: malformed framing, a disallowed extension
// id, a broken intern table, an out-of-range reference, and so on.
// These are never policy-mediated; they are always fatal to the
// message being decoded.
type StructuralError struct {
	Kind ErrorKind
	Msg  string
	Err  error // wrapped cause, if any
}

func (e *StructuralError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tobytes: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("tobytes: %s: %s", e.Kind, e.Msg)
}

func (e *StructuralError) Unwrap() error { return e.Err }

func newStructuralError(kind ErrorKind, format string, args ...interface{}) *StructuralError {
	return &StructuralError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func wrapStructuralError(kind ErrorKind, err error, format string, args ...interface{}) *StructuralError {
	return &StructuralError{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// PolicyError reports an unknown namespace or type-id that the
// configured Policy declined to resolve. Unlike StructuralError, a
// PolicyError's disposition is caller-configurable: the default is
// fatal, but a Policy may instead produce an OpaqueRaw value and avoid
// raising this at all.
type PolicyError struct {
	Kind      ErrorKind
	Namespace string
	TypeID    uint64
	Msg       string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("tobytes: %s: namespace=%q type=%d: %s", e.Kind, e.Namespace, e.TypeID, e.Msg)
}

func newPolicyError(kind ErrorKind, namespace string, typeID uint64, format string, args ...interface{}) *PolicyError {
	return &PolicyError{Kind: kind, Namespace: namespace, TypeID: typeID, Msg: fmt.Sprintf(format, args...)}
}

// CodecFault wraps an error returned by a user-registered codec, with
// the namespace/type-id context attached. A panic raised inside a
// codec is not converted into a CodecFault.
type CodecFault struct {
	Namespace string
	TypeID    uint64
	Err       error
}

func (e *CodecFault) Error() string {
	return fmt.Sprintf("tobytes: CodecFault: namespace=%q type=%d: %v", e.Namespace, e.TypeID, e.Err)
}

func (e *CodecFault) Unwrap() error { return e.Err }

func newCodecFault(namespace string, typeID uint64, err error) *CodecFault {
	return &CodecFault{Namespace: namespace, TypeID: typeID, Err: err}
}

// AlreadyRegistered is returned by Registry.Register when a (namespace,
// type-id) pair has already been claimed.
type AlreadyRegistered struct {
	Namespace string
	TypeID    uint64
}

func (e *AlreadyRegistered) Error() string {
	return fmt.Sprintf("tobytes: namespace %q type %d already registered", e.Namespace, e.TypeID)
}

// NotFound is returned by Registry.Lookup when no codec or fallback
// handler is registered for the given (namespace, type-id).
type NotFound struct {
	Namespace string
	TypeID    uint64
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("tobytes: no codec for namespace %q type %d", e.Namespace, e.TypeID)
}

// ErrorKindOf reports the ErrorKind carried by err, if it is (or
// wraps) a *StructuralError or *PolicyError produced by this package.
func ErrorKindOf(err error) (ErrorKind, bool) {
	var se *StructuralError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	var pe *PolicyError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}

/*
Package tobytes implements a msgpack-compatible binary serialization
format with three reserved extension ids layered on top of the
ordinary msgpack grammar:

  - ext 0x06, an intern table, lets repeated subtrees be written once
    and referenced by index afterward.
  - ext 0x07, a namespace-id mapping, lets a verbose namespace string
    be substituted for a small integer for the lexical extent of a
    message body.
  - ext 0x08, a custom type envelope, carries a namespace, a type-id,
    and an opaque payload, dispatched through a Registry of
    caller-supplied codecs.

Any plain msgpack decoder that does not understand extension types 6,
7, and 8 will still decode the rest of a tobytes message; only values
that actually use those three ids require a tobytes-aware reader.

Usage

	c := tobytes.New()
	data, err := c.Dumps(tobytes.Array(tobytes.Str("hi"), tobytes.Int(1)))
	obj, err := c.Loads(data)

Extension Support

Custom Go types are wired in through a Registry, keyed by a namespace
string and a per-namespace type-id:

	reg := tobytes.NewRegistry()
	reg.RegisterType("core", 1, uuid.UUID{}, tobytes.Codec{
		Encode: encodeUUID,
		Decode: decodeUUID,
	})

A Codec's Encode/Decode functions receive an *Engine, which is how a
codec recurses into a nested tobytes message without reaching for
package-level state: every nested call gets its own independent intern
and namespace-id stacks, per the scoping rules in the wire format.

Handling Errors

Internal decode and encode helpers panic with an already-typed error
(*StructuralError, *PolicyError, or *CodecFault); Decoder.Decode and
Encoder.Encode are the only places that recover, converting the panic
back into a returned error. Unknown namespaces and unknown type-ids
inside a known namespace are policy-mediated — see Policy — while
malformed framing and broken intern-table invariants are always fatal.

Code Organization

decoder.go and encoder.go are the two entry points; object.go defines
the Object tagged-variant tree they produce and consume. registry.go
and policy.go configure custom-type dispatch and unknown-value
handling. intern.go and intern_builder.go implement the two sides of
the intern table; namespacestack.go implements the namespace-id
binding stack. engine.go is the recursive handle passed into codecs.
The wire-level msgpack token reader/writer lives in internal/wire and
is not part of the public API.
*/
package tobytes

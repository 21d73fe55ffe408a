package tobytes

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func roundTripObject(t *testing.T, registry *Registry, policy *Policy, obj Object) Object {
	t.Helper()
	if registry == nil {
		registry = NewRegistry()
	}
	if policy == nil {
		policy = NewPolicy()
	}

	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf, registry, policy).Encode(obj))

	got, err := NewDecoder(bytes.NewReader(buf.Bytes()), registry, policy).Decode()
	require.NoError(t, err)
	return got
}

func TestEncodeDecodePrimitivesRoundTrip(t *testing.T) {
	cases := []Object{
		Nil(), Bool(true), Bool(false),
		Int(-1), Int(-12345),
		Uint(0), Uint(999999),
		Float32Val(1.5), Float64Val(3.1415926535),
		Str(""), Str("hello"),
		Bin(nil), Bin([]byte{1, 2, 3}),
	}
	for _, c := range cases {
		got := roundTripObject(t, nil, nil, c)
		require.True(t, c.Equal(got), "round trip mismatch for %v", c)
	}
}

func TestEncodeDecodeNestedContainersRoundTrip(t *testing.T) {
	obj := Array(
		Str("a"),
		Array(Int(1), Int(2), Int(3)),
		MapOf(MapEntry{Key: Str("k"), Value: Bool(true)}),
	)
	got := roundTripObject(t, nil, nil, obj)
	require.True(t, obj.Equal(got))
}

// TestDecodedTreeStructuralDiff uses go-cmp instead of Object.Equal so
// a failure reports exactly which field of which subtree diverged,
// rather than a bare true/false.
func TestDecodedTreeStructuralDiff(t *testing.T) {
	obj := Array(
		Str("a"),
		Array(Int(1), Int(2), Int(3)),
		MapOf(MapEntry{Key: Str("k"), Value: Bool(true)}),
	)
	got := roundTripObject(t, nil, nil, obj)

	// Int(1) decodes back as Int (msgpack has no separate "uint" tag
	// for small non-negative values), so Uint is expected to be the
	// zero value on both sides; no unexported fields exist on Object
	// or MapEntry so no cmpopts.IgnoreUnexported is needed here.
	if diff := cmp.Diff(obj, got, cmpopts.EquateComparable()); diff != "" {
		t.Fatalf("decoded tree differs from original (-want +got):\n%s", diff)
	}
}

// TestInterningProducesSharedEntryForFirstOccurrence matches spec.md's
// S2 walkthrough: the very first occurrence of a repeated value also
// becomes a reference into the intern table, not just the second.
func TestInterningProducesSharedEntryForFirstOccurrence(t *testing.T) {
	policy := NewPolicy()
	policy.EnableInterning = true

	registry := NewRegistry()
	obj := Array(Str("hi"), Str("hi"))

	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf, registry, policy).Encode(obj))

	sub := bytes.NewReader(buf.Bytes())
	dec := NewDecoder(sub, registry, policy)
	got, err := dec.Decode()
	require.NoError(t, err)
	require.True(t, obj.Equal(got))

	// The encoded form must actually contain exactly one ext 0x06
	// table wrapping the whole message, i.e. the first byte pair is
	// an ext header, not a bare array header for ["hi","hi"].
	require.Greater(t, len(buf.Bytes()), 0)
	require.NotEqual(t, byte(0x92), buf.Bytes()[0], "plain fixarray(2) would indicate interning did not activate")
}

func TestInterningBelowThresholdLeavesMessageUnwrapped(t *testing.T) {
	policy := NewPolicy()
	policy.EnableInterning = true
	registry := NewRegistry()

	obj := Array(Str("only-once"), Int(1))
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf, registry, policy).Encode(obj))

	require.Equal(t, byte(0x92), buf.Bytes()[0], "a tree with no repeats should not be wrapped in an intern table")
}

func TestForceInternedWrapsSingleOccurrence(t *testing.T) {
	policy := NewPolicy()
	policy.EnableInterning = true
	registry := NewRegistry()

	obj := Array(Interned(Str("only-once")), Int(1))
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf, registry, policy).Encode(obj))

	require.NotEqual(t, byte(0x92), buf.Bytes()[0], "Interned() must force inclusion even below the natural threshold")

	got, err := NewDecoder(bytes.NewReader(buf.Bytes()), registry, policy).Decode()
	require.NoError(t, err)
	require.True(t, Array(Str("only-once"), Int(1)).Equal(got))
}

func TestCustomTypeRoundTrip(t *testing.T) {
	type point struct{ X, Y int }
	registry := NewRegistry()
	require.NoError(t, registry.RegisterType("geo", 1, point{}, Codec{
		Encode: func(_ *Engine, v interface{}) ([]byte, error) {
			p := v.(point)
			return []byte{byte(p.X), byte(p.Y)}, nil
		},
		Decode: func(_ *Engine, payload []byte) (interface{}, error) {
			return point{X: int(payload[0]), Y: int(payload[1])}, nil
		},
	}))

	policy := NewPolicy()
	obj := Custom(point{X: 3, Y: 4})
	got := roundTripObject(t, registry, policy, obj)
	require.Equal(t, KObjCustom, got.Kind)
	require.Equal(t, point{X: 3, Y: 4}, got.Custom)
}

// TestInternedDistinctCustomValuesDoNotCollide guards against two
// distinct registered custom values of the same Go type sharing an
// intern table entry: before custom-value canonicalization accounted
// for the wrapped value, every KObjCustom collapsed to the same dedup
// key and the second value silently decoded back as the first.
func TestInternedDistinctCustomValuesDoNotCollide(t *testing.T) {
	type point struct{ X, Y int }
	registry := NewRegistry()
	require.NoError(t, registry.RegisterType("geo", 1, point{}, Codec{
		Encode: func(_ *Engine, v interface{}) ([]byte, error) {
			p := v.(point)
			return []byte{byte(p.X), byte(p.Y)}, nil
		},
		Decode: func(_ *Engine, payload []byte) (interface{}, error) {
			return point{X: int(payload[0]), Y: int(payload[1])}, nil
		},
	}))

	policy := NewPolicy()
	policy.EnableInterning = true

	a := point{X: 1, Y: 2}
	b := point{X: 3, Y: 4}
	obj := Array(Interned(Custom(a)), Custom(b))

	got := roundTripObject(t, registry, policy, obj)
	require.Equal(t, KObjArray, got.Kind)
	require.Len(t, got.Array, 2)
	require.Equal(t, a, got.Array[0].Custom)
	require.Equal(t, b, got.Array[1].Custom)
}

func TestNamespaceIDSubstitutionRoundTrip(t *testing.T) {
	type tag struct{ N int }
	registry := NewRegistry()
	require.NoError(t, registry.RegisterType("very-long-namespace-name", 1, tag{}, Codec{
		Encode: func(_ *Engine, v interface{}) ([]byte, error) { return []byte{byte(v.(tag).N)}, nil },
		Decode: func(_ *Engine, payload []byte) (interface{}, error) { return tag{N: int(payload[0])}, nil },
	}))

	policy := NewPolicy()
	policy.EnableNamespaceIDSubstitution = true
	policy.NamespaceIDThreshold = 2

	obj := Array(Custom(tag{N: 1}), Custom(tag{N: 2}), Custom(tag{N: 3}))

	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf, registry, policy).Encode(obj))

	got, err := NewDecoder(bytes.NewReader(buf.Bytes()), registry, policy).Decode()
	require.NoError(t, err)
	require.Equal(t, KObjArray, got.Kind)
	require.Len(t, got.Array, 3)
	for i, want := range []int{1, 2, 3} {
		require.Equal(t, tag{N: want}, got.Array[i].Custom)
	}
}

func TestUnregisteredTypeIsFatalByDefault(t *testing.T) {
	registry := NewRegistry()
	policy := NewPolicy()

	var buf bytes.Buffer
	err := NewEncoder(&buf, registry, policy).Encode(Custom("not registered anywhere"))
	require.Error(t, err)

	kind, ok := ErrorKindOf(err)
	require.True(t, ok)
	require.Equal(t, KindUnregisteredType, kind)
}

func TestOpaqueRawReencodesVerbatim(t *testing.T) {
	registry := NewRegistry()
	policy := NewPolicy()
	policy.OnUnknownNamespace = ActionAsRaw

	// Build a custom-type message against one registry, decode it
	// with a registry that knows nothing about "mystery" to obtain an
	// OpaqueRaw, then re-encode it and confirm the bytes are
	// unchanged (spec.md's Testable Property 6).
	knowing := NewRegistry()
	require.NoError(t, knowing.RegisterType("mystery", 7, 0, Codec{
		Encode: func(_ *Engine, v interface{}) ([]byte, error) { return []byte{byte(v.(int))}, nil },
		Decode: func(_ *Engine, payload []byte) (interface{}, error) { return int(payload[0]), nil },
	}))

	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf, knowing, NewPolicy()).Encode(Custom(7)))
	original := append([]byte(nil), buf.Bytes()...)

	decoded, err := NewDecoder(bytes.NewReader(original), registry, policy).Decode()
	require.NoError(t, err)
	require.Equal(t, KObjOpaqueRaw, decoded.Kind)

	var reencoded bytes.Buffer
	require.NoError(t, NewEncoder(&reencoded, registry, policy).Encode(decoded))
	require.Equal(t, original, reencoded.Bytes())
}

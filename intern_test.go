package tobytes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInternStackPushAppendResolve(t *testing.T) {
	s := NewInternStack()
	require.NoError(t, s.Push())

	s.Append(Str("hi"))
	s.Append(Int(1))
	require.Equal(t, 2, s.Len())

	obj, err := s.Resolve(0)
	require.NoError(t, err)
	require.True(t, obj.Equal(Str("hi")))

	s.Pop()
	require.False(t, s.Active())
}

func TestInternStackNestedTableRejected(t *testing.T) {
	s := NewInternStack()
	require.NoError(t, s.Push())
	err := s.Push()

	kind, ok := ErrorKindOf(err)
	require.True(t, ok)
	require.Equal(t, KindNestedInternTable, kind)
}

func TestInternStackNoFrameActive(t *testing.T) {
	s := NewInternStack()
	_, err := s.Resolve(0)

	kind, ok := ErrorKindOf(err)
	require.True(t, ok)
	require.Equal(t, KindNoInternFrame, kind)
}

func TestInternStackForwardReferenceRejected(t *testing.T) {
	s := NewInternStack()
	require.NoError(t, s.Push())
	s.Append(Str("only entry"))

	_, err := s.Resolve(1)
	kind, ok := ErrorKindOf(err)
	require.True(t, ok)
	require.Equal(t, KindForwardInternRef, kind)
}

func TestDefaultInternEqualityStructural(t *testing.T) {
	require.True(t, DefaultInternEquality(Str("x"), Str("x")))
	require.False(t, DefaultInternEquality(Str("x"), Str("y")))
	require.True(t, DefaultInternEquality(Array(Int(1), Int(2)), Array(Int(1), Int(2))))
}

func TestCanonicalBytesDistinguishesKinds(t *testing.T) {
	// A Str and a Bin with the same payload must not collide under the
	// canonical-bytes key, since they are different ObjectKinds.
	require.NotEqual(t, canonicalBytes(Str("x"), nil), canonicalBytes(Bin([]byte("x")), nil))
}

func TestComputeInternKeyStable(t *testing.T) {
	a := computeInternKey(canonicalBytes(Array(Str("x"), Int(1)), nil))
	b := computeInternKey(canonicalBytes(Array(Str("x"), Int(1)), nil))
	require.Equal(t, a, b)

	c := computeInternKey(canonicalBytes(Array(Str("x"), Int(2)), nil))
	require.NotEqual(t, a, c)
}

func TestCanonicalBytesDistinguishesCustomValues(t *testing.T) {
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
	engine := newEngine(registry, policy)
	ctx := &encodeCtx{enc: &Encoder{registry: registry, policy: policy, engine: engine}}

	a := canonicalBytes(Custom(point{X: 1, Y: 2}), ctx)
	b := canonicalBytes(Custom(point{X: 3, Y: 4}), ctx)
	require.NotEqual(t, a, b, "distinct custom values must not canonicalize to the same bytes")

	repeat := canonicalBytes(Custom(point{X: 1, Y: 2}), ctx)
	require.Equal(t, a, repeat, "equal custom values must canonicalize identically")
}

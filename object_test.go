package tobytes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObjectEqualCrossKindInteger(t *testing.T) {
	require.True(t, Int(42).Equal(Uint(42)))
	require.True(t, Uint(42).Equal(Int(42)))
	require.False(t, Int(-1).Equal(Uint(0)))
}

func TestObjectEqualContainers(t *testing.T) {
	a := Array(Str("x"), Int(1), Array(Bool(true)))
	b := Array(Str("x"), Uint(1), Array(Bool(true)))
	require.True(t, a.Equal(b))

	c := Array(Str("x"), Int(2))
	require.False(t, a.Equal(c))
}

func TestObjectEqualMapOrderSensitive(t *testing.T) {
	m1 := MapOf(MapEntry{Key: Str("a"), Value: Int(1)}, MapEntry{Key: Str("b"), Value: Int(2)})
	m2 := MapOf(MapEntry{Key: Str("b"), Value: Int(2)}, MapEntry{Key: Str("a"), Value: Int(1)})
	require.False(t, m1.Equal(m2), "map equality is order-sensitive by design; see DESIGN.md")
}

func TestInternedSetsForceFlag(t *testing.T) {
	o := Interned(Str("shared"))
	require.True(t, o.ForceIntern)
	require.Equal(t, ByIdentity, o.InternMode)

	o2 := InternedWithEquality(Str("shared"), ByEquality)
	require.True(t, o2.ForceIntern)
	require.Equal(t, ByEquality, o2.InternMode)
}

func TestNamespaceRefString(t *testing.T) {
	require.Equal(t, "core", NameRef("core").String())
	require.Equal(t, "#3(core)", IDRef(3, "core").String())
}

func TestIsNil(t *testing.T) {
	require.True(t, Nil().IsNil())
	require.False(t, Int(0).IsNil())
}

package tobytes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNamespaceStackPushPopResolve(t *testing.T) {
	s := NewNamespaceStack()
	_, ok := s.Resolve(1)
	require.False(t, ok)

	s.Push(1, "core")
	name, ok := s.Resolve(1)
	require.True(t, ok)
	require.Equal(t, "core", name)

	s.Pop()
	_, ok = s.Resolve(1)
	require.False(t, ok)
}

func TestNamespaceStackInnerShadowsOuter(t *testing.T) {
	s := NewNamespaceStack()
	s.Push(1, "core")
	s.Push(1, "time")

	name, ok := s.Resolve(1)
	require.True(t, ok)
	require.Equal(t, "time", name, "inner binding must shadow the outer one for the same id")

	s.Pop()
	name, ok = s.Resolve(1)
	require.True(t, ok)
	require.Equal(t, "core", name, "popping the inner frame restores the outer binding")
}

func TestNamespaceStackResolveName(t *testing.T) {
	s := NewNamespaceStack()
	s.Push(3, "core")

	id, ok := s.ResolveName("core")
	require.True(t, ok)
	require.Equal(t, uint64(3), id)

	_, ok = s.ResolveName("time")
	require.False(t, ok)
}

func TestNamespaceStackDepth(t *testing.T) {
	s := NewNamespaceStack()
	require.Equal(t, 0, s.Depth())
	s.Push(1, "core")
	s.Push(2, "time")
	require.Equal(t, 2, s.Depth())
}

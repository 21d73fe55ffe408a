package contrib

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/stestagg/tobytes"
)

func TestDefaultNamespacesRegisteredOnNew(t *testing.T) {
	c := tobytes.New()
	names := c.Registry.ListNamespaces()
	require.Contains(t, names, CoreNamespace)
	require.Contains(t, names, TimeNamespace)
}

func TestClearNamespacesRemovesContribDefaults(t *testing.T) {
	c := tobytes.New()
	c.ClearNamespaces()
	require.Empty(t, c.Registry.ListNamespaces())
}

func TestUUIDRoundTrip(t *testing.T) {
	c := tobytes.New()
	id := uuid.New()

	data, err := c.Dumps(tobytes.Custom(id))
	require.NoError(t, err)

	obj, err := c.Loads(data)
	require.NoError(t, err)
	require.Equal(t, id, obj.Custom)
}

func TestTimeRoundTrip(t *testing.T) {
	c := tobytes.New()
	now := time.Now().UTC().Truncate(time.Second)

	data, err := c.Dumps(tobytes.Custom(now))
	require.NoError(t, err)

	obj, err := c.Loads(data)
	require.NoError(t, err)
	got, ok := obj.Custom.(time.Time)
	require.True(t, ok)
	require.True(t, now.Equal(got))
}

func TestBlobRoundTrip(t *testing.T) {
	c := tobytes.New()
	payload := []byte("the quick brown fox jumps over the lazy dog, repeated: " +
		"the quick brown fox jumps over the lazy dog")

	data, err := c.Dumps(tobytes.Custom(payload))
	require.NoError(t, err)

	obj, err := c.Loads(data)
	require.NoError(t, err)
	require.Equal(t, payload, obj.Custom)
}

package tobytes

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	vmsgpack "github.com/vmihailenco/msgpack/v5"
)

// TestPlainValuesDecodeUnderStandardMsgpack validates spec.md's
// Testable Property 1: a message that uses none of the reserved ext
// ids is ordinary msgpack, decodable by an unrelated standard library.
func TestPlainValuesDecodeUnderStandardMsgpack(t *testing.T) {
	obj := Array(
		Str("hello"),
		Int(-7),
		Uint(12345),
		Bool(true),
		Nil(),
		MapOf(MapEntry{Key: Str("k"), Value: Array(Int(1), Int(2), Int(3))}),
	)

	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf, NewRegistry(), NewPolicy()).Encode(obj))

	var generic interface{}
	require.NoError(t, vmsgpack.Unmarshal(buf.Bytes(), &generic))

	top, ok := generic.([]interface{})
	require.True(t, ok)
	require.Equal(t, "hello", top[0])
	require.EqualValues(t, -7, top[1])
	require.EqualValues(t, 12345, top[2])
	require.Equal(t, true, top[3])
	require.Nil(t, top[4])
}

// TestStandardMsgpackSkipsExtensionEnvelope cross-checks that a
// message using tobytes' reserved ext id 8 is still syntactically
// valid msgpack — a generic decoder can skip over it as a raw
// extension value, copying its bytes, even without tobytes-aware
// semantics to interpret its meaning.
func TestStandardMsgpackSkipsExtensionEnvelope(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.RegisterType("core", 1, 0, Codec{
		Encode: func(_ *Engine, v interface{}) ([]byte, error) { return []byte{byte(v.(int))}, nil },
		Decode: func(_ *Engine, payload []byte) (interface{}, error) { return int(payload[0]), nil },
	}))

	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf, registry, NewPolicy()).Encode(Custom(5)))

	var raw vmsgpack.RawMessage
	require.NoError(t, vmsgpack.Unmarshal(buf.Bytes(), &raw))
	require.Equal(t, buf.Bytes(), []byte(raw))
}

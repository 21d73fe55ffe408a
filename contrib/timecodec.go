package contrib

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/stestagg/tobytes"
)

// TimeNamespace carries time.Time values, separate from CoreNamespace
// so an application can drop time support (ClearNamespaces, then
// re-register only "core") without losing uuid/blob handling.
const TimeNamespace = "time"

// TimeTypeID is time's only type-id.
const TimeTypeID = 1

func init() {
	tobytes.RegisterDefaultNamespace(registerTime)
}

func registerTime(r *tobytes.Registry) {
	if err := r.RegisterType(TimeNamespace, TimeTypeID, time.Time{}, tobytes.Codec{
		Encode: encodeTime,
		Decode: decodeTime,
	}); err != nil {
		panic(err)
	}
}

// encodeTime delegates to vmihailenco/msgpack's own time.Time
// marshaling rather than reinventing a wire format for timestamps;
// the payload is that library's encoding of t, not a nested tobytes
// message.
func encodeTime(_ *tobytes.Engine, value interface{}) ([]byte, error) {
	t := value.(time.Time)
	return msgpack.Marshal(t)
}

func decodeTime(_ *tobytes.Engine, payload []byte) (interface{}, error) {
	var t time.Time
	if err := msgpack.Unmarshal(payload, &t); err != nil {
		return nil, err
	}
	return t, nil
}

// Package contrib bundles ready-made custom-type codecs for the
// "core" and "time" namespaces, registered into every Session built
// with tobytes.New via RegisterDefaultNamespace. Importing contrib is
// what actually wires these namespaces in; tobytes itself has no
// compile-time dependency on this package.
package contrib

import (
	"github.com/google/uuid"

	"github.com/stestagg/tobytes"
)

// CoreNamespace is where this package's uuid and compressed-blob types
// live. Applications that want a different namespace name for their
// own uuid handling should register directly against a Registry
// instead of relying on the default.
const CoreNamespace = "core"

// UUIDTypeID is core's type-id for a 16-byte uuid.UUID, the canonical
// "user class" example of a custom type.
const UUIDTypeID = 1

func init() {
	tobytes.RegisterDefaultNamespace(registerUUID)
}

func registerUUID(r *tobytes.Registry) {
	// RegisterType never fails for distinct (namespace, type-id)
	// pairs that this package itself controls; ignoring the error
	// here would hide an actual programming mistake, so it panics
	// instead of being silently dropped.
	if err := r.RegisterType(CoreNamespace, UUIDTypeID, uuid.UUID{}, tobytes.Codec{
		Encode: encodeUUID,
		Decode: decodeUUID,
	}); err != nil {
		panic(err)
	}
}

func encodeUUID(_ *tobytes.Engine, value interface{}) ([]byte, error) {
	id := value.(uuid.UUID)
	b, err := id.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return b, nil
}

func decodeUUID(_ *tobytes.Engine, payload []byte) (interface{}, error) {
	var id uuid.UUID
	if err := id.UnmarshalBinary(payload); err != nil {
		return nil, err
	}
	return id, nil
}

package contrib

import (
	"github.com/klauspost/compress/zstd"

	"github.com/stestagg/tobytes"
)

// BlobTypeID is core's type-id for a zstd-compressed opaque byte
// blob: a custom type whose payload is not itself structured data,
// unlike uuid or time, exercising the registry's "Custom holds
// whatever the codec produces" path with a plain []byte result.
const BlobTypeID = 2

func init() {
	tobytes.RegisterDefaultNamespace(registerBlob)
}

func registerBlob(r *tobytes.Registry) {
	if err := r.RegisterType(CoreNamespace, BlobTypeID, []byte(nil), tobytes.Codec{
		Encode: encodeBlob,
		Decode: decodeBlob,
	}); err != nil {
		panic(err)
	}
}

func encodeBlob(_ *tobytes.Engine, value interface{}) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(value.([]byte), nil), nil
}

func decodeBlob(_ *tobytes.Engine, payload []byte) (interface{}, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(payload, nil)
}

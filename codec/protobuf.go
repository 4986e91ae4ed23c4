package codec

import "google.golang.org/protobuf/proto"

// Protobuf serializes proto-typed spec-constant messages. Note that protobuf
// encoding is not canonical across library versions; pin the runtime if blobs
// must stay stable across binaries.
type Protobuf[T proto.Message] struct {
	new func() T // constructor for a concrete message
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return proto.Marshal(v)
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.new()
	err := proto.Unmarshal(b, m)
	return m, err
}

package codec

import "encoding/json"

// JSON serializes values with encoding/json. Struct fields encode in
// declaration order, so struct-shaped constant sets are stable; maps are not.
type JSON[V any] struct{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}

// Package codec serializes specialization-constant values into the blobs
// kpcache keys programs by. Because the blob participates in cache-key
// equality, the encoding should be canonical: equal constant sets must yield
// byte-identical blobs. CBOR in deterministic mode is the recommended
// default; the other codecs exist for callers whose constant values already
// live in those formats.
package codec

// Codec encodes/decodes values V to []byte.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

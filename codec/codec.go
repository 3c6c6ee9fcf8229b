// Package codec turns cache keys into text and cache values into framed,
// type-tagged bytes.
//
// Value codecs (Codec[V]) only serialize; Framed and Registry add the type tag
// that lets a reader detect (or dispatch on) the shape of a stored value.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// KeyCodec maps cache keys to the text keys used by the store.
// DecodeKey(EncodeKey(k)) must return k.
type KeyCodec[K any] interface {
	EncodeKey(K) (string, error)
	DecodeKey(string) (K, error)
}

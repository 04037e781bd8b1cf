package lzw

import "fmt"

// Codec pairs an encoder and decoder over one alphabet and configuration,
// and adds framed serialization on top.
type Codec[T comparable] struct {
	encoder *Encoder[T]
	decoder *Decoder[T]
	opts    []Option
}

// NewCodec creates a codec for alphabet with the provided options.
func NewCodec[T comparable](alphabet *Alphabet[T], opts ...Option) (*Codec[T], error) {
	enc, err := NewEncoder(alphabet, opts...)
	if err != nil {
		return nil, err
	}
	dec, err := NewDecoder(alphabet, opts...)
	if err != nil {
		return nil, err
	}
	return &Codec[T]{
		encoder: enc,
		decoder: dec,
		opts:    append([]Option(nil), opts...),
	}, nil
}

// Alphabet returns the codec's alphabet.
func (c *Codec[T]) Alphabet() *Alphabet[T] {
	return c.encoder.Alphabet()
}

// Compress returns the code sequence for symbols.
func (c *Codec[T]) Compress(symbols []T) ([]Code, error) {
	return c.encoder.Compress(symbols)
}

// Decompress returns the symbols encoded by codes.
func (c *Codec[T]) Decompress(codes []Code) ([]T, error) {
	return c.decoder.Decompress(codes)
}

// Marshal compresses symbols and frames the codes.
func (c *Codec[T]) Marshal(symbols []T) ([]byte, error) {
	codes, err := c.encoder.Compress(symbols)
	if err != nil {
		return nil, err
	}
	return EncodeCodes(codes, c.Alphabet().Size(), c.opts...)
}

// Unmarshal parses a frame produced by Marshal and decompresses it.
// The frame must have been produced over an alphabet of the same size and
// with the same maximum code width.
func (c *Codec[T]) Unmarshal(data []byte) ([]T, error) {
	f, err := DecodeCodes(data)
	if err != nil {
		return nil, err
	}
	if f.AlphabetSize != c.Alphabet().Size() {
		return nil, fmt.Errorf("%w: frame has %d symbols, codec has %d", ErrAlphabetMismatch, f.AlphabetSize, c.Alphabet().Size())
	}
	if f.MaxCodeWidth != c.decoder.width {
		return nil, fmt.Errorf("%w: frame code width %d, codec code width %d", ErrCodeWidth, f.MaxCodeWidth, c.decoder.width)
	}
	return c.decoder.Decompress(f.Codes)
}

package lzw

// Decoder rebuilds symbol sequences from codes produced by an Encoder over
// the same alphabet and code width.
//
// Like Encoder, a Decoder carries no state between calls and is safe for
// concurrent use.
type Decoder[T comparable] struct {
	alphabet *Alphabet[T]
	config   Config
	width    uint8
}

// NewDecoder creates a decoder for alphabet with the given options.
func NewDecoder[T comparable](alphabet *Alphabet[T], opts ...Option) (*Decoder[T], error) {
	if alphabet == nil {
		return nil, ErrEmptyAlphabet
	}
	cfg := newConfig(opts)
	width := resolveCodeWidth(cfg)
	if err := checkCodeWidth(alphabet.Size(), width); err != nil {
		return nil, err
	}
	return &Decoder[T]{alphabet: alphabet, config: cfg, width: width}, nil
}

// Alphabet returns the decoder's alphabet.
func (d *Decoder[T]) Alphabet() *Alphabet[T] {
	return d.alphabet
}

// Decompress returns the symbols encoded by codes.
//
// The first code must name an alphabet symbol, otherwise an
// *EmptyAlphabetResolutionError is returned. Every later code must either
// be known or be exactly the next code to be assigned (the self-reference
// case); anything else fails with an *InvalidCodeError. On error no symbols
// are returned.
func (d *Decoder[T]) Decompress(codes []Code) ([]T, error) {
	if len(codes) == 0 {
		return []T{}, nil
	}

	state := newDecoderState(d.alphabet.Size(), d.width, d.config.ExpansionCache, d.config.Observer)
	indices := make([]uint32, 0, len(codes)*2)
	var err error
	for _, code := range codes {
		indices, err = state.next(indices, code)
		if err != nil {
			return nil, err
		}
	}

	out := make([]T, len(indices))
	for i, idx := range indices {
		out[i] = d.alphabet.symbols[idx]
	}
	return out, nil
}

// Decompress decompresses codes over alphabet.
func Decompress[T comparable](codes []Code, alphabet *Alphabet[T], opts ...Option) ([]T, error) {
	dec, err := NewDecoder(alphabet, opts...)
	if err != nil {
		return nil, err
	}
	return dec.Decompress(codes)
}

// DecompressBytes decompresses codes over the byte alphabet.
func DecompressBytes(codes []Code, opts ...Option) ([]byte, error) {
	return Decompress(codes, ByteAlphabet(), opts...)
}

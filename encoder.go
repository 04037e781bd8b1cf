package lzw

// Encoder compresses symbol sequences over a fixed alphabet.
//
// An Encoder holds configuration only. Every Compress call grows its own
// dictionary from the bare alphabet and discards it on return, so one
// Encoder may be used from many goroutines at once.
type Encoder[T comparable] struct {
	alphabet *Alphabet[T]
	config   Config
	width    uint8
}

// NewEncoder creates an encoder for alphabet with the given options.
func NewEncoder[T comparable](alphabet *Alphabet[T], opts ...Option) (*Encoder[T], error) {
	if alphabet == nil {
		return nil, ErrEmptyAlphabet
	}
	cfg := newConfig(opts)
	width := resolveCodeWidth(cfg)
	if err := checkCodeWidth(alphabet.Size(), width); err != nil {
		return nil, err
	}
	return &Encoder[T]{alphabet: alphabet, config: cfg, width: width}, nil
}

// Alphabet returns the encoder's alphabet.
func (e *Encoder[T]) Alphabet() *Alphabet[T] {
	return e.alphabet
}

// Compress returns the code sequence for symbols.
//
// The accumulated string is extended greedily while it stays in the
// dictionary. On the first miss the code of the longest known prefix is
// emitted, the prefix plus the new symbol is added under the next free code
// and the new symbol starts the next accumulation. The final accumulation
// is flushed without adding an entry.
//
// Returns an *UnknownSymbolError and no codes if any symbol is outside the
// alphabet. An empty input yields an empty result.
func (e *Encoder[T]) Compress(symbols []T) ([]Code, error) {
	if len(symbols) == 0 {
		return []Code{}, nil
	}
	indices, err := e.alphabet.indices(symbols)
	if err != nil {
		return nil, err
	}

	state := newEncoderState(e.alphabet.Size(), e.width, e.config.Observer)
	codes := make([]Code, 0, len(symbols)/2+1)
	codes = state.feed(codes, indices)
	return state.flush(codes), nil
}

// Compress compresses symbols over alphabet.
func Compress[T comparable](symbols []T, alphabet *Alphabet[T], opts ...Option) ([]Code, error) {
	enc, err := NewEncoder(alphabet, opts...)
	if err != nil {
		return nil, err
	}
	return enc.Compress(symbols)
}

// CompressBytes compresses data over the byte alphabet.
func CompressBytes(data []byte, opts ...Option) ([]Code, error) {
	return Compress(data, ByteAlphabet(), opts...)
}

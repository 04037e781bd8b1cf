package lzw

// Alphabet is the fixed, ordered set of symbols known to both sides of a
// code stream. Symbol i owns code i. An Alphabet is immutable once built and
// may be shared freely between goroutines.
type Alphabet[T comparable] struct {
	symbols []T
	codes   map[T]Code
	// dense lookup for byte alphabets, nil otherwise
	byteCodes *[256]int32
}

// NewAlphabet builds an alphabet assigning code i to symbols[i].
func NewAlphabet[T comparable](symbols []T) (*Alphabet[T], error) {
	if len(symbols) == 0 {
		return nil, ErrEmptyAlphabet
	}
	if uint64(len(symbols)) > uint64(MaxCode) {
		return nil, ErrCodeWidth
	}

	a := &Alphabet[T]{
		symbols: append([]T(nil), symbols...),
		codes:   make(map[T]Code, len(symbols)),
	}
	for i, s := range a.symbols {
		if first, ok := a.codes[s]; ok {
			return nil, &DuplicateSymbolError{Symbol: s, First: int(first), Second: i}
		}
		a.codes[s] = Code(i)
	}

	if bs, ok := any(a.symbols).([]byte); ok {
		var dense [256]int32
		for i := range dense {
			dense[i] = -1
		}
		for i, b := range bs {
			dense[b] = int32(i)
		}
		a.byteCodes = &dense
	}
	return a, nil
}

func mustAlphabet[T comparable](symbols []T) *Alphabet[T] {
	a, err := NewAlphabet(symbols)
	if err != nil {
		panic(err)
	}
	return a
}

func byteRange(lo, hi int) []byte {
	out := make([]byte, 0, hi-lo+1)
	for b := lo; b <= hi; b++ {
		out = append(out, byte(b))
	}
	return out
}

var (
	byteAlphabet           = mustAlphabet(byteRange(0, 255))
	asciiAlphabet          = mustAlphabet(byteRange(0, 127))
	printableASCIIAlphabet = mustAlphabet(byteRange(32, 126))
)

// ByteAlphabet returns the alphabet of all 256 byte values, code == byte value.
func ByteAlphabet() *Alphabet[byte] { return byteAlphabet }

// ASCIIAlphabet returns the alphabet of bytes 0..127, code == byte value.
func ASCIIAlphabet() *Alphabet[byte] { return asciiAlphabet }

// PrintableASCIIAlphabet returns the alphabet of bytes 32..126 (space to
// tilde). Code 0 is the space character.
func PrintableASCIIAlphabet() *Alphabet[byte] { return printableASCIIAlphabet }

// RuneAlphabet builds an alphabet of the distinct runes of s, in order of
// first appearance.
func RuneAlphabet(s string) (*Alphabet[rune], error) {
	seen := make(map[rune]struct{})
	var runes []rune
	for _, r := range s {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		runes = append(runes, r)
	}
	return NewAlphabet(runes)
}

// Size returns the number of symbols.
func (a *Alphabet[T]) Size() int {
	return len(a.symbols)
}

// Code returns the code reserved for sym.
func (a *Alphabet[T]) Code(sym T) (Code, bool) {
	c, ok := a.codes[sym]
	return c, ok
}

// Symbol returns the symbol owning code c.
func (a *Alphabet[T]) Symbol(c Code) (T, bool) {
	if uint64(c) >= uint64(len(a.symbols)) {
		var zero T
		return zero, false
	}
	return a.symbols[c], true
}

// Symbols returns a copy of the symbols in code order.
func (a *Alphabet[T]) Symbols() []T {
	return append([]T(nil), a.symbols...)
}

// indices maps every input symbol to its code as a symbol index.
// The lookup runs once up front so a failing input never produces output.
func (a *Alphabet[T]) indices(input []T) ([]uint32, error) {
	out := make([]uint32, len(input))
	if a.byteCodes != nil {
		bs := any(input).([]byte)
		for i, b := range bs {
			c := a.byteCodes[b]
			if c < 0 {
				return nil, &UnknownSymbolError{Position: i, Symbol: b}
			}
			out[i] = uint32(c)
		}
		return out, nil
	}
	for i, s := range input {
		c, ok := a.codes[s]
		if !ok {
			return nil, &UnknownSymbolError{Position: i, Symbol: s}
		}
		out[i] = uint32(c)
	}
	return out, nil
}

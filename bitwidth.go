package lzw

import "math/bits"

// MaxCodeAt returns the largest code that can legally appear at position in
// a code stream over an alphabet of alphabetSize symbols, with codes capped
// at maxWidth bits (0 = unbounded).
//
// The first code names a symbol. Before code i (i > 0) the decoder has added
// i-1 entries, so code i is at most the next code to be assigned, unless the
// dictionary is already full.
func MaxCodeAt(position, alphabetSize int, maxWidth uint8) Code {
	maxCode := uint64(alphabetSize) - 1
	if position > 0 {
		maxCode = uint64(alphabetSize) + uint64(position) - 1
	}
	if limit := dictionaryCapacity(maxWidth) - 1; maxCode > limit {
		maxCode = limit
	}
	return Code(maxCode)
}

// CodeWidth returns the number of bits used to frame the code at position.
// Widths grow by one bit each time the dictionary crosses a power of two and
// stop growing once the dictionary is full.
func CodeWidth(position, alphabetSize int, maxWidth uint8) uint8 {
	return widthFor(MaxCodeAt(position, alphabetSize, maxWidth))
}

func widthFor(maxCode Code) uint8 {
	w := bits.Len32(uint32(maxCode))
	if w == 0 {
		return 1
	}
	return uint8(w)
}

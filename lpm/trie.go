// Package lpm provides the longest prefix matching structure for LZW compression.
package lpm

// Trie is a prefix trie over symbol indices.
//
// Codes 0..alphabetSize-1 are the roots, one per alphabet symbol. Every other
// node is identified by its code and reached from its prefix code through a
// single trailing symbol. Children live in one flat map keyed by the packed
// (prefix, symbol) pair, so a lookup never walks more than one edge.
//
// IMPORTANT: codes above the roots must be inserted sequentially!
type Trie struct {
	children     map[uint64]uint32 // prefix<<32 | symbol → child code
	alphabetSize uint32
	next         uint64
}

// New creates a trie holding only the alphabetSize root codes.
func New(alphabetSize int) *Trie {
	return &Trie{
		children:     make(map[uint64]uint32, 4096),
		alphabetSize: uint32(alphabetSize),
		next:         uint64(alphabetSize),
	}
}

func edgeKey(prefix, symbol uint32) uint64 {
	return uint64(prefix)<<32 | uint64(symbol)
}

// Insert adds the node prefix+symbol under code.
// It reports false when code is not the next sequential code or the edge
// already exists; the trie is left unchanged in that case.
func (t *Trie) Insert(prefix, symbol, code uint32) bool {
	if uint64(code) != t.next || symbol >= t.alphabetSize || uint64(prefix) >= t.next {
		return false
	}
	key := edgeKey(prefix, symbol)
	if _, ok := t.children[key]; ok {
		return false
	}
	t.children[key] = code
	t.next++
	return true
}

// Child returns the code reached from prefix through symbol.
func (t *Trie) Child(prefix, symbol uint32) (uint32, bool) {
	code, ok := t.children[edgeKey(prefix, symbol)]
	return code, ok
}

// Len returns the number of codes in the trie, roots included.
func (t *Trie) Len() int {
	return int(t.next)
}

// FindLongestMatch finds the longest known sequence at the start of symbols.
//
// Returns the code of that sequence and how many symbols it covers. ok is
// false for empty input or when the first symbol is not a root.
func (t *Trie) FindLongestMatch(symbols []uint32) (uint32, int, bool) {
	if len(symbols) == 0 || symbols[0] >= t.alphabetSize {
		return 0, 0, false
	}

	code := symbols[0]
	length := 1
	for length < len(symbols) {
		child, ok := t.children[edgeKey(code, symbols[length])]
		if !ok {
			break
		}
		code = child
		length++
	}
	return code, length, true
}

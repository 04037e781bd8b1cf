package lzw

import (
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/seiflotfy/lzw/lpm"
)

// encoderState is the dictionary and accumulator of one compress run.
//
// Symbols are handled as alphabet indices. The accumulated string S is
// carried as the code of S, which is valid because every prefix of a known
// string is itself known.
type encoderState struct {
	trie      *lpm.Trie
	capacity  uint64
	full      bool
	prefix    uint32 // code of S
	prefixLen int    // symbols in S, 0 when S is empty
	pos       int
	observer  Observer
}

func newEncoderState(alphabetSize int, width uint8, observer Observer) *encoderState {
	capacity := dictionaryCapacity(width)
	return &encoderState{
		trie:     lpm.New(alphabetSize),
		capacity: capacity,
		full:     uint64(alphabetSize) >= capacity,
		observer: observer,
	}
}

// push consumes one symbol and appends the code it completes, if any, to dst.
func (s *encoderState) push(dst []Code, symbol uint32) []Code {
	pos := s.pos
	s.pos++

	if s.prefixLen == 0 {
		s.prefix = symbol
		s.prefixLen = 1
		return dst
	}
	if child, ok := s.trie.Child(s.prefix, symbol); ok {
		s.prefix = child
		s.prefixLen++
		return dst
	}

	dst = s.emit(dst, pos)
	if !s.full {
		code := uint32(s.trie.Len())
		if !s.trie.Insert(s.prefix, symbol, code) {
			panic(fmt.Sprintf("lzw: dictionary rejected code %d for prefix %d + symbol %d", code, s.prefix, symbol))
		}
		s.notify(EventEntryInserted, pos, Code(code), s.prefixLen+1)
		if uint64(s.trie.Len()) >= s.capacity {
			s.full = true
			s.notify(EventDictionaryFull, pos, Code(code), s.trie.Len())
		}
	}
	s.prefix = symbol
	s.prefixLen = 1
	return dst
}

// feed pushes every symbol. Once the dictionary is frozen, whole matches
// are taken from the trie in one walk instead of one edge per symbol.
func (s *encoderState) feed(dst []Code, symbols []uint32) []Code {
	for i := 0; i < len(symbols); {
		from, ok := s.matchFrom(symbols, i)
		if !ok {
			dst = s.push(dst, symbols[i])
			i++
			continue
		}
		code, n, ok := s.trie.FindLongestMatch(symbols[from:])
		if !ok {
			panic(fmt.Sprintf("lzw: symbol %d outside alphabet", symbols[from]))
		}
		end := from + n
		s.pos += end - i
		s.prefix, s.prefixLen = code, n
		i = end
		if i < len(symbols) {
			// symbols[i] missed; push would emit at its position
			dst = s.emit(dst, s.pos)
			s.prefixLen = 0
		}
	}
	return dst
}

// matchFrom reports where a trie walk covering the accumulation and
// symbols[i:] starts. Only a frozen dictionary with at most one pending
// symbol, held in symbols[i-1], qualifies.
func (s *encoderState) matchFrom(symbols []uint32, i int) (int, bool) {
	switch {
	case !s.full:
		return 0, false
	case s.prefixLen == 0:
		return i, true
	case s.prefixLen == 1 && i > 0 && symbols[i-1] == s.prefix:
		return i - 1, true
	}
	return 0, false
}

// flush appends the code for a non-empty S and resets the accumulator.
// The dictionary is not extended.
func (s *encoderState) flush(dst []Code) []Code {
	if s.prefixLen == 0 {
		return dst
	}
	dst = s.emit(dst, s.pos)
	s.prefixLen = 0
	return dst
}

func (s *encoderState) emit(dst []Code, pos int) []Code {
	s.notify(EventCodeEmitted, pos, Code(s.prefix), s.prefixLen)
	return append(dst, Code(s.prefix))
}

// size returns the number of codes in the dictionary.
func (s *encoderState) size() int {
	return s.trie.Len()
}

func (s *encoderState) notify(kind EventKind, pos int, code Code, length int) {
	if s.observer == nil {
		return
	}
	s.observer.OnEvent(Event{Kind: kind, Position: pos, Code: code, Length: length})
}

// entry is one decoder dictionary slot, stored as a backreference plus one
// trailing symbol. Roots point at themselves.
type entry struct {
	prefix uint32 // code of the entry without its last symbol
	last   uint32 // trailing symbol index
	first  uint32 // leading symbol index
	length uint32
}

// decoderState is the dictionary of one decompress run.
type decoderState struct {
	entries      []entry
	alphabetSize int
	capacity     uint64
	full         bool
	prev         uint32 // code decoded last
	hasPrev      bool
	pos          int
	observer     Observer
	cache        *lru.Cache[uint32, []uint32]
}

func newDecoderState(alphabetSize int, width uint8, cacheSize int, observer Observer) *decoderState {
	capacity := dictionaryCapacity(width)
	s := &decoderState{
		entries:      make([]entry, alphabetSize, alphabetSize+4096),
		alphabetSize: alphabetSize,
		capacity:     capacity,
		full:         uint64(alphabetSize) >= capacity,
		observer:     observer,
	}
	for i := range s.entries {
		s.entries[i] = entry{prefix: uint32(i), last: uint32(i), first: uint32(i), length: 1}
	}
	if cacheSize > 0 {
		// lru.New only fails for a non-positive size.
		s.cache, _ = lru.New[uint32, []uint32](cacheSize)
	}
	return s
}

// next resolves one code and appends its symbols to dst.
// On error dst is returned unchanged.
func (s *decoderState) next(dst []uint32, code Code) ([]uint32, error) {
	pos := s.pos

	if !s.hasPrev {
		if uint64(code) >= uint64(s.alphabetSize) {
			return dst, &EmptyAlphabetResolutionError{Code: code, AlphabetSize: s.alphabetSize}
		}
		s.pos++
		s.prev = uint32(code)
		s.hasPrev = true
		s.notify(EventCodeResolved, pos, code, 1)
		return append(dst, uint32(code)), nil
	}

	next := uint64(len(s.entries))
	start := len(dst)
	switch {
	case uint64(code) < next:
		dst = s.expand(dst, uint32(code))
	case uint64(code) == next && !s.full:
		// Self-reference: the encoder used the entry it had just created,
		// which can only be S + S[0].
		dst = s.expand(dst, s.prev)
		dst = append(dst, s.entries[s.prev].first)
	default:
		return dst, &InvalidCodeError{Position: pos, Code: code, Next: Code(next)}
	}
	s.pos++
	s.notify(EventCodeResolved, pos, code, len(dst)-start)

	if !s.full {
		prev := s.entries[s.prev]
		s.entries = append(s.entries, entry{
			prefix: s.prev,
			last:   dst[start],
			first:  prev.first,
			length: prev.length + 1,
		})
		s.notify(EventEntryInserted, pos, Code(next), int(prev.length+1))
		if uint64(len(s.entries)) >= s.capacity {
			s.full = true
			s.notify(EventDictionaryFull, pos, Code(next), len(s.entries))
		}
	}
	s.prev = uint32(code)
	return dst, nil
}

// expand appends the symbols of code to dst by walking its prefix chain.
func (s *decoderState) expand(dst []uint32, code uint32) []uint32 {
	n := int(s.entries[code].length)
	cacheable := s.cache != nil && n >= minCacheLen
	if cacheable {
		if seq, ok := s.cache.Get(code); ok {
			return append(dst, seq...)
		}
	}

	start := len(dst)
	dst = slices.Grow(dst, n)[:start+n]
	c := code
	for i := start + n - 1; i >= start; i-- {
		e := &s.entries[c]
		dst[i] = e.last
		c = e.prefix
	}

	if cacheable {
		s.cache.Add(code, slices.Clone(dst[start:]))
	}
	return dst
}

// size returns the number of codes in the dictionary.
func (s *decoderState) size() int {
	return len(s.entries)
}

func (s *decoderState) notify(kind EventKind, pos int, code Code, length int) {
	if s.observer == nil {
		return
	}
	s.observer.OnEvent(Event{Kind: kind, Position: pos, Code: code, Length: length})
}

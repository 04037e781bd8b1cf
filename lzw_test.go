package lzw

import (
	"bytes"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// ============================================================================
// Helper Functions
// ============================================================================

func mustCompress(t testing.TB, data []byte, opts ...Option) []Code {
	t.Helper()
	codes, err := CompressBytes(data, opts...)
	require.NoError(t, err)
	return codes
}

func roundTrip(t testing.TB, data []byte, opts ...Option) []Code {
	t.Helper()
	codes := mustCompress(t, data, opts...)
	got, err := DecompressBytes(codes, opts...)
	require.NoError(t, err)
	require.Equal(t, data, got)
	return codes
}

// logLines generates n log-like lines with shared structure and varying fields.
func logLines(n int, seed int64) []byte {
	rng := rand.New(rand.NewSource(seed))
	levels := []string{"INFO", "WARN", "ERROR", "DEBUG"}
	paths := []string{"/api/v1/users", "/api/v1/orders", "/healthz", "/api/v2/search"}
	var buf bytes.Buffer
	for i := 0; i < n; i++ {
		buf.WriteString("2024-05-0")
		buf.WriteByte(byte('1' + rng.Intn(9)))
		buf.WriteString(" ")
		buf.WriteString(levels[rng.Intn(len(levels))])
		buf.WriteString(" request path=")
		buf.WriteString(paths[rng.Intn(len(paths))])
		buf.WriteString(" status=")
		buf.WriteString([]string{"200", "404", "500"}[rng.Intn(3)])
		buf.WriteString(" latency_ms=")
		buf.WriteByte(byte('0' + rng.Intn(10)))
		buf.WriteByte(byte('0' + rng.Intn(10)))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// ============================================================================
// Encoder
// ============================================================================

func TestCompressRegressionVector(t *testing.T) {
	require := require.New(t)

	codes := mustCompress(t, []byte("ABABABABA"))
	// 256 = "AB", 257 = "BA", 258 = "ABA", 259 = "ABAB" (never emitted)
	require.Equal([]Code{65, 66, 256, 258, 257}, codes)

	got, err := DecompressBytes(codes)
	require.NoError(err)
	require.Equal("ABABABABA", string(got))
}

func TestCompressEmpty(t *testing.T) {
	require := require.New(t)

	codes, err := CompressBytes(nil)
	require.NoError(err)
	require.Empty(codes)

	codes, err = CompressBytes([]byte{})
	require.NoError(err)
	require.Empty(codes)

	got, err := DecompressBytes(nil)
	require.NoError(err)
	require.Empty(got)
}

func TestCompressSingleSymbol(t *testing.T) {
	require := require.New(t)

	for _, b := range []byte{0, 'x', 255} {
		codes := mustCompress(t, []byte{b})
		require.Equal([]Code{Code(b)}, codes)
	}

	alpha := PrintableASCIIAlphabet()
	codes, err := Compress([]byte("~"), alpha)
	require.NoError(err)
	want, ok := alpha.Code('~')
	require.True(ok)
	require.Equal([]Code{want}, codes)
}

func TestCompressNoRepetition(t *testing.T) {
	require := require.New(t)

	input := []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	codes := roundTrip(t, input)
	require.Len(codes, len(input))
	for i, b := range input {
		require.Equal(Code(b), codes[i])
	}
}

func TestCompressRepetitionShrinks(t *testing.T) {
	input := bytes.Repeat([]byte("abc"), 1000)
	codes := roundTrip(t, input)
	require.Less(t, len(codes), len(input)/10)
}

func TestCompressUnknownSymbol(t *testing.T) {
	require := require.New(t)

	codes, err := Compress([]byte{'a', 'b', 'c', 200, 'd'}, ASCIIAlphabet())
	require.Nil(codes)
	require.ErrorIs(err, ErrUnknownSymbol)

	var unknown *UnknownSymbolError
	require.True(errors.As(err, &unknown))
	require.Equal(3, unknown.Position)
	require.Equal(byte(200), unknown.Symbol)
}

func TestCompressGenericAlphabet(t *testing.T) {
	require := require.New(t)

	alpha, err := NewAlphabet([]string{"red", "green", "blue"})
	require.NoError(err)

	input := []string{"red", "red", "blue", "red", "red", "blue", "red", "red", "blue", "green"}
	codes, err := Compress(input, alpha)
	require.NoError(err)
	require.Less(len(codes), len(input))

	got, err := Decompress(codes, alpha)
	require.NoError(err)
	require.Equal(input, got)

	_, err = Compress([]string{"red", "purple"}, alpha)
	var unknown *UnknownSymbolError
	require.ErrorAs(err, &unknown)
	require.Equal(1, unknown.Position)
	require.Equal("purple", unknown.Symbol)
}

func TestCompressRuneAlphabet(t *testing.T) {
	require := require.New(t)

	text := "über straße über straße über straße"
	alpha, err := RuneAlphabet(text)
	require.NoError(err)

	input := []rune(text)
	codes, err := Compress(input, alpha)
	require.NoError(err)

	got, err := Decompress(codes, alpha)
	require.NoError(err)
	require.Equal(text, string(got))
}

func TestEncoderReuse(t *testing.T) {
	require := require.New(t)

	enc, err := NewEncoder(ByteAlphabet())
	require.NoError(err)

	first, err := enc.Compress([]byte("ABABABABA"))
	require.NoError(err)
	second, err := enc.Compress([]byte("ABABABABA"))
	require.NoError(err)
	// each call starts from the bare alphabet
	require.Equal(first, second)
}

func TestNewEncoderErrors(t *testing.T) {
	require := require.New(t)

	_, err := NewEncoder[byte](nil)
	require.ErrorIs(err, ErrEmptyAlphabet)

	_, err = NewEncoder(ByteAlphabet(), WithMaxCodeWidth(7))
	require.ErrorIs(err, ErrCodeWidth)

	_, err = NewDecoder(ByteAlphabet(), WithMaxCodeWidth(7))
	require.ErrorIs(err, ErrCodeWidth)

	_, err = NewEncoder(ASCIIAlphabet(), WithMaxCodeWidth(7))
	require.NoError(err)
}

// ============================================================================
// Decoder
// ============================================================================

func TestDecompressSelfReference(t *testing.T) {
	require := require.New(t)

	// "aaaa": 256 is used by the encoder right after creating it.
	codes := mustCompress(t, []byte("aaaa"))
	require.Equal([]Code{'a', 256, 'a'}, codes)

	got, err := DecompressBytes(codes)
	require.NoError(err)
	require.Equal("aaaa", string(got))
}

func TestDecompressInvalidCode(t *testing.T) {
	require := require.New(t)

	tests := []struct {
		name  string
		codes []Code
		pos   int
		code  Code
		next  Code
	}{
		{"far beyond dictionary", []Code{65, 66, 300}, 2, 300, 257},
		{"one past self reference", []Code{65, 66, 258}, 2, 258, 257},
		{"second code past next", []Code{65, 257}, 1, 257, 256},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecompressBytes(tt.codes)
			require.Nil(got)
			require.ErrorIs(err, ErrInvalidCode)

			var invalid *InvalidCodeError
			require.ErrorAs(err, &invalid)
			require.Equal(tt.pos, invalid.Position)
			require.Equal(tt.code, invalid.Code)
			require.Equal(tt.next, invalid.Next)
		})
	}
}

func TestDecompressFirstCodeOutsideAlphabet(t *testing.T) {
	require := require.New(t)

	got, err := DecompressBytes([]Code{256, 65})
	require.Nil(got)
	require.ErrorIs(err, ErrEmptyAlphabetResolution)

	var resolution *EmptyAlphabetResolutionError
	require.ErrorAs(err, &resolution)
	require.Equal(Code(256), resolution.Code)
	require.Equal(256, resolution.AlphabetSize)

	_, err = Decompress([]Code{95}, PrintableASCIIAlphabet())
	require.ErrorIs(err, ErrEmptyAlphabetResolution)
}

func TestDecompressExpansionCache(t *testing.T) {
	input := logLines(2000, 7)
	codes := mustCompress(t, input)

	for _, size := range []int{1, 8, 256} {
		got, err := DecompressBytes(codes, WithExpansionCache(size))
		require.NoError(t, err)
		require.Equal(t, input, got)
	}
}

// ============================================================================
// Round trips
// ============================================================================

func TestRoundTripVarious(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	random := make([]byte, 50000)
	rng.Read(random)

	inputs := map[string][]byte{
		"text":       []byte(strings.Repeat("the quick brown fox jumps over the lazy dog ", 200)),
		"single run": bytes.Repeat([]byte{0}, 10000),
		"random":     random,
		"logs":       logLines(1000, 3),
		"all bytes":  byteRange(0, 255),
	}
	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			roundTrip(t, input)
			roundTrip(t, input, WithMaxCodeWidth(9))
			roundTrip(t, input, WithMaxCodeWidth(12))
		})
	}
}

func TestMaxCodeWidthFreezesDictionary(t *testing.T) {
	require := require.New(t)

	input := logLines(500, 11)
	codes := roundTrip(t, input, WithMaxCodeWidth(10))
	for _, c := range codes {
		require.Less(c, Code(1<<10))
	}

	// decoding with a different width loses lockstep
	_, err := DecompressBytes(codes, WithMaxCodeWidth(9))
	require.Error(err)
}

func TestMaxCodeWidthEqualToAlphabet(t *testing.T) {
	require := require.New(t)

	// 8 bits hold exactly the byte alphabet, nothing is ever learned
	input := []byte("ABABABABA")
	codes := roundTrip(t, input, WithMaxCodeWidth(8))
	require.Len(codes, len(input))
}

func TestMaxCodeWidthSmallAlphabet(t *testing.T) {
	require := require.New(t)

	alpha, err := NewAlphabet([]byte("ab"))
	require.NoError(err)

	// capacity 4: "aa" = 2 and "aaa" = 3, then frozen
	codes, err := Compress([]byte("aaaa"), alpha, WithMaxCodeWidth(2))
	require.NoError(err)
	require.Equal([]Code{0, 2, 0}, codes)

	got, err := Decompress(codes, alpha, WithMaxCodeWidth(2))
	require.NoError(err)
	require.Equal("aaaa", string(got))

	// next code is 4 but the dictionary is full
	_, err = Decompress([]Code{0, 2, 0, 4}, alpha, WithMaxCodeWidth(2))
	require.ErrorIs(err, ErrInvalidCode)

	input := []byte("abbabababbbbaaababababbbabaabababab")
	codes, err = Compress(input, alpha, WithMaxCodeWidth(2))
	require.NoError(err)
	got, err = Decompress(codes, alpha, WithMaxCodeWidth(2))
	require.NoError(err)
	require.Equal(input, got)
}

func TestMonotonicDictionaryGrowth(t *testing.T) {
	require := require.New(t)

	input := logLines(200, 5)
	state := newEncoderState(256, 0, nil)
	prev := state.size()
	var codes []Code
	for _, b := range input {
		codes = state.push(codes, uint32(b))
		size := state.size()
		require.GreaterOrEqual(size, prev)
		require.LessOrEqual(size-prev, 1)
		prev = size
	}
	codes = state.flush(codes)
	// one entry per emitted code except the final flush
	require.Equal(256+len(codes)-1, state.size())

	dec := newDecoderState(256, 0, 0, nil)
	var out []uint32
	for _, c := range codes {
		var err error
		out, err = dec.next(out, c)
		require.NoError(err)
	}
	require.Equal(state.size(), dec.size())
	require.Len(out, len(input))
}

func TestConcurrentUse(t *testing.T) {
	enc, err := NewEncoder(ByteAlphabet())
	require.NoError(t, err)
	dec, err := NewDecoder(ByteAlphabet(), WithExpansionCache(32))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			input := logLines(300, seed)
			codes, err := enc.Compress(input)
			if err != nil {
				errs <- err
				return
			}
			got, err := dec.Decompress(codes)
			if err != nil {
				errs <- err
				return
			}
			if !bytes.Equal(input, got) {
				errs <- errors.New("round trip mismatch")
			}
		}(int64(i))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}

func TestFrozenFastPathMatchesPush(t *testing.T) {
	input := logLines(400, 13)
	symbols := make([]uint32, len(input))
	for i, b := range input {
		symbols[i] = uint32(b)
	}

	for _, width := range []uint8{8, 9, 11} {
		var want []Event
		slow := newEncoderState(256, width, ObserverFunc(func(e Event) { want = append(want, e) }))
		var wantCodes []Code
		for _, s := range symbols {
			wantCodes = slow.push(wantCodes, s)
		}
		wantCodes = slow.flush(wantCodes)

		for _, chunk := range []int{1, 5, 333, len(symbols)} {
			var got []Event
			fast := newEncoderState(256, width, ObserverFunc(func(e Event) { got = append(got, e) }))
			var codes []Code
			for off := 0; off < len(symbols); off += chunk {
				codes = fast.feed(codes, symbols[off:min(off+chunk, len(symbols))])
			}
			codes = fast.flush(codes)

			require.Equal(t, wantCodes, codes, "width %d chunk %d", width, chunk)
			require.Equal(t, want, got, "width %d chunk %d", width, chunk)
		}
	}
}

func TestEncoderDictionaryOutOfSync(t *testing.T) {
	state := newEncoderState(2, 0, nil)
	// accumulate a code the trie never assigned
	state.prefix, state.prefixLen = 9, 1
	require.Panics(t, func() { state.push(nil, 1) })
}

// Package lzw implements Lempel-Ziv-Welch dictionary compression over
// arbitrary alphabets.
//
// # Overview
//
// LZW replaces repeated substrings with codes into a dictionary that both
// sides build on the fly. The encoder starts from the alphabet alone and adds
// one entry for every code it emits; the decoder replays the code stream and
// adds the same entries in the same order, so the dictionary itself is never
// transmitted.
//
// Symbols are any comparable Go type. An Alphabet fixes the symbols and
// reserves codes 0..A-1 for them; learned entries take codes from A upward.
//
// # Basic Usage
//
//	codes, err := lzw.CompressBytes([]byte("ABABABABA"))
//	// codes == [65 66 256 258 257]
//	data, err := lzw.DecompressBytes(codes)
//
//	// Any alphabet
//	alpha, _ := lzw.NewAlphabet([]string{"red", "green", "blue"})
//	codes, err = lzw.Compress([]string{"red", "red", "blue"}, alpha)
//
// # Code Width
//
// WithMaxCodeWidth caps the dictionary at 1<<bits codes. Once full, the
// dictionary freezes on both sides and compression continues with the
// entries learned so far. Without a cap the dictionary grows with the input.
//
// # Framing
//
// Codes are abstract integers. EncodeCodes and DecodeCodes turn them into a
// self-describing byte frame where each code takes only as many bits as the
// dictionary size at its position allows. NewWriter and NewReader stream
// bytes through the same packing.
//
// # Errors
//
// Every failure is all-or-nothing: no partial output is returned.
// Use errors.Is with ErrUnknownSymbol, ErrInvalidCode and
// ErrEmptyAlphabetResolution, or errors.As with the matching error types for
// positions and codes.
//
// # Concurrency
//
// Encoders, decoders and codecs keep no state between calls and may be
// shared between goroutines. Writer and Reader are not safe for concurrent use.
package lzw

package lzw

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownSymbol matches any *UnknownSymbolError.
	ErrUnknownSymbol = errors.New("lzw: unknown symbol")
	// ErrInvalidCode matches any *InvalidCodeError.
	ErrInvalidCode = errors.New("lzw: invalid code")
	// ErrEmptyAlphabetResolution matches any *EmptyAlphabetResolutionError.
	ErrEmptyAlphabetResolution = errors.New("lzw: first code outside alphabet")
	// ErrEmptyAlphabet indicates an alphabet was built from no symbols.
	ErrEmptyAlphabet = errors.New("lzw: empty alphabet")
	// ErrDuplicateSymbol matches any *DuplicateSymbolError.
	ErrDuplicateSymbol = errors.New("lzw: duplicate symbol")
	// ErrCodeWidth indicates a maximum code width too narrow for the alphabet.
	ErrCodeWidth = errors.New("lzw: code width too small for alphabet")
	// ErrCorruptFrame indicates a framed code stream failed validation.
	ErrCorruptFrame = errors.New("lzw: corrupt frame")
	// ErrAlphabetMismatch indicates a frame was produced over a different alphabet.
	ErrAlphabetMismatch = errors.New("lzw: alphabet mismatch")
)

// UnknownSymbolError reports an input symbol outside the configured alphabet.
type UnknownSymbolError struct {
	Position int // index of the symbol in the input
	Symbol   any
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("lzw: unknown symbol %v at position %d", e.Symbol, e.Position)
}

// Is matches ErrUnknownSymbol.
func (e *UnknownSymbolError) Is(target error) bool {
	return target == ErrUnknownSymbol
}

// InvalidCodeError reports a code resolvable neither by direct lookup nor by
// the self-reference rule.
type InvalidCodeError struct {
	Position int  // index of the code in the stream
	Code     Code // offending code
	Next     Code // next code the decoder would have assigned
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("lzw: invalid code %d at position %d (next code %d)", e.Code, e.Position, e.Next)
}

// Is matches ErrInvalidCode.
func (e *InvalidCodeError) Is(target error) bool {
	return target == ErrInvalidCode
}

// EmptyAlphabetResolutionError reports a first code that does not name an
// alphabet symbol.
type EmptyAlphabetResolutionError struct {
	Code         Code
	AlphabetSize int
}

func (e *EmptyAlphabetResolutionError) Error() string {
	return fmt.Sprintf("lzw: first code %d outside alphabet of size %d", e.Code, e.AlphabetSize)
}

// Is matches ErrEmptyAlphabetResolution.
func (e *EmptyAlphabetResolutionError) Is(target error) bool {
	return target == ErrEmptyAlphabetResolution
}

// DuplicateSymbolError reports a symbol listed twice when building an alphabet.
type DuplicateSymbolError struct {
	Symbol any
	First  int
	Second int
}

func (e *DuplicateSymbolError) Error() string {
	return fmt.Sprintf("lzw: symbol %v listed at %d and %d", e.Symbol, e.First, e.Second)
}

// Is matches ErrDuplicateSymbol.
func (e *DuplicateSymbolError) Is(target error) bool {
	return target == ErrDuplicateSymbol
}

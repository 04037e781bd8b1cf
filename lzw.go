package lzw

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// Code identifies either an alphabet symbol or a learned dictionary entry.
type Code uint32

const (
	// MaxCode is the largest code any dictionary can assign.
	MaxCode = Code(math.MaxUint32)

	maxCodeWidth = uint8(32) // maxCodeWidth is the widest supported code in bits
	minCacheLen  = 16        // entries shorter than this are cheaper to walk than to cache
)

// Config holds configuration shared by the encoder, decoder and framing.
type Config struct {
	MaxCodeWidth   uint8    // Maximum code width in bits (0 = unbounded)
	Observer       Observer // Receives dictionary events (nil = none)
	ExpansionCache int      // Decoder LRU size for expanded entries (0 = disabled)
	DisableFlate   bool     // Never flate-compress framed code streams
}

// Option is a functional option for configuring encoders and decoders.
type Option func(*Config)

// WithMaxCodeWidth caps codes at the given bit width, freezing the dictionary
// once 1<<bits codes exist. Valid range is [1, 32]; larger values are clamped
// and 0 removes the cap.
func WithMaxCodeWidth(bits uint8) Option {
	return func(c *Config) {
		c.MaxCodeWidth = bits
	}
}

// WithObserver attaches an observer to every compress and decompress call.
func WithObserver(o Observer) Option {
	return func(c *Config) {
		c.Observer = o
	}
}

// WithLogger logs dictionary events to l at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		if l == nil {
			c.Observer = nil
			return
		}
		c.Observer = NewLogObserver(l)
	}
}

// WithExpansionCache keeps up to n recently expanded entries per decode call.
func WithExpansionCache(n int) Option {
	return func(c *Config) {
		c.ExpansionCache = n
	}
}

// WithFlate controls whether framed code streams may be flate-compressed.
// Enabled by default.
func WithFlate(enabled bool) Option {
	return func(c *Config) {
		c.DisableFlate = !enabled
	}
}

func newConfig(opts []Option) Config {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func resolveCodeWidth(cfg Config) uint8 {
	if cfg.MaxCodeWidth > maxCodeWidth {
		return maxCodeWidth
	}
	return cfg.MaxCodeWidth
}

// dictionaryCapacity is the number of codes a dictionary may hold for the
// given width, alphabet included.
func dictionaryCapacity(width uint8) uint64 {
	if width == 0 {
		return uint64(MaxCode) + 1
	}
	return uint64(1) << width
}

func checkCodeWidth(alphabetSize int, width uint8) error {
	if uint64(alphabetSize) > dictionaryCapacity(width) {
		return fmt.Errorf("%w: %d symbols need more than %d bits", ErrCodeWidth, alphabetSize, width)
	}
	return nil
}

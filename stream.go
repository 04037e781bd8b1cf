package lzw

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/icza/bitio"
	"go.uber.org/multierr"
)

const (
	streamMagic   = "LZWS"
	streamVersion = uint8(1)
	streamSymbols = 256
)

var errWriterClosed = errors.New("lzw: write to closed writer")

// Writer compresses bytes written to it and writes the code stream to an
// underlying writer.
//
// The stream is a 6 byte header ("LZWS", version, max code width) followed by
// codes packed MSB-first at the positional width given by CodeWidth. Bytes
// may be written in any chunking; the dictionary carries across Write calls.
// Close must be called to flush the final code.
type Writer struct {
	w           io.Writer
	bw          *bitio.Writer
	state       *encoderState
	width       uint8
	pos         int // codes written so far
	codes       []Code
	syms        []uint32
	wroteHeader bool
	closed      bool
	err         error
}

// NewWriter returns a Writer compressing to w. Only WithMaxCodeWidth and
// WithObserver/WithLogger apply. A width too small for the byte alphabet is
// reported by the first Write or Close.
func NewWriter(w io.Writer, opts ...Option) *Writer {
	cfg := newConfig(opts)
	z := &Writer{
		w:     w,
		width: resolveCodeWidth(cfg),
	}
	if err := checkCodeWidth(streamSymbols, z.width); err != nil {
		z.err = err
		return z
	}
	z.bw = bitio.NewWriter(w)
	z.state = newEncoderState(streamSymbols, z.width, cfg.Observer)
	return z
}

func (z *Writer) writeHeader() error {
	if z.wroteHeader {
		return nil
	}
	z.wroteHeader = true
	hdr := make([]byte, 0, len(streamMagic)+2)
	hdr = append(hdr, streamMagic...)
	hdr = append(hdr, streamVersion, z.width)
	_, err := z.bw.Write(hdr)
	return err
}

func (z *Writer) writeCodes(codes []Code) error {
	for _, code := range codes {
		if err := z.bw.WriteBits(uint64(code), CodeWidth(z.pos, streamSymbols, z.width)); err != nil {
			return err
		}
		z.pos++
	}
	return nil
}

// Write compresses p. Codes are written as soon as they are complete; the
// last accumulated string stays pending until Close.
func (z *Writer) Write(p []byte) (int, error) {
	if z.err != nil {
		return 0, z.err
	}
	if z.closed {
		return 0, errWriterClosed
	}
	if err := z.writeHeader(); err != nil {
		z.err = err
		return 0, err
	}

	syms := z.syms[:0]
	for _, b := range p {
		syms = append(syms, uint32(b))
	}
	z.syms = syms
	codes := z.state.feed(z.codes[:0], syms)
	z.codes = codes
	if err := z.writeCodes(codes); err != nil {
		z.err = err
		return 0, err
	}
	return len(p), nil
}

// Close flushes the pending code and any buffered bits. It does not close
// the underlying writer.
func (z *Writer) Close() error {
	if z.closed {
		return z.err
	}
	z.closed = true
	if z.err != nil {
		return z.err
	}

	err := z.writeHeader()
	if err == nil {
		err = z.writeCodes(z.state.flush(z.codes[:0]))
	}
	// bit writer is flushed even when the last code failed
	z.err = multierr.Combine(err, z.bw.Close())
	return z.err
}

// Reader decompresses a stream produced by Writer.
type Reader struct {
	src   *countingReader
	br    *bitio.Reader
	state *decoderState
	width uint8
	pos   int
	bits  uint64 // header and complete codes consumed so far
	buf   []uint32 // symbols of the current code
	off   int
	err   error
}

// countingReader counts the bytes the bit reader pulls from the source.
// It is both an io.Reader and an io.ByteReader so bitio reads it directly
// instead of adding a buffer of its own.
type countingReader struct {
	r interface {
		io.Reader
		io.ByteReader
	}
	n uint64
}

func newCountingReader(r io.Reader) *countingReader {
	if rb, ok := r.(interface {
		io.Reader
		io.ByteReader
	}); ok {
		return &countingReader{r: rb}
	}
	return &countingReader{r: bufio.NewReader(r)}
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += uint64(n)
	return n, err
}

func (c *countingReader) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err == nil {
		c.n++
	}
	return b, err
}

// NewReader reads the stream header from r and returns a Reader.
// WithObserver/WithLogger and WithExpansionCache apply; the code width is
// taken from the stream.
func NewReader(r io.Reader, opts ...Option) (*Reader, error) {
	cfg := newConfig(opts)
	src := newCountingReader(r)
	br := bitio.NewReader(src)

	var hdr [len(streamMagic) + 2]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return nil, corruptf("read stream header: %w", err)
	}
	if string(hdr[:4]) != streamMagic {
		return nil, corruptf("invalid stream magic: %q", string(hdr[:4]))
	}
	if hdr[4] != streamVersion {
		return nil, corruptf("unsupported stream version: %d", hdr[4])
	}
	width := hdr[5]
	if width > maxCodeWidth {
		return nil, corruptf("invalid max code width: %d", width)
	}
	if err := checkCodeWidth(streamSymbols, width); err != nil {
		return nil, corruptf("%w", err)
	}

	return &Reader{
		src:   src,
		br:    br,
		bits:  uint64(len(hdr)) * 8,
		state: newDecoderState(streamSymbols, width, cfg.ExpansionCache, cfg.Observer),
		width: width,
	}, nil
}

// Read decompresses into p.
//
// The stream ends where fewer than 8 bits remain, which is all the padding
// Writer ever adds. A partial code of 8 bits or more means the stream was
// truncated and fails with ErrCorruptFrame wrapping io.ErrUnexpectedEOF.
// Any failure is permanent.
func (z *Reader) Read(p []byte) (int, error) {
	for {
		if z.off < len(z.buf) {
			n := 0
			for n < len(p) && z.off < len(z.buf) {
				p[n] = byte(z.buf[z.off])
				n++
				z.off++
			}
			return n, nil
		}
		if z.err != nil {
			return 0, z.err
		}
		if len(p) == 0 {
			return 0, nil
		}
		z.fill()
	}
}

// fill decodes the next code into buf.
func (z *Reader) fill() {
	z.buf = z.buf[:0]
	z.off = 0

	width := CodeWidth(z.pos, streamSymbols, z.width)
	v, err := z.br.ReadBits(width)
	if err != nil {
		if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			z.err = fmt.Errorf("read code %d: %w", z.pos, err)
			return
		}
		// the source is drained, so every byte it held has been counted
		if left := z.src.n*8 - z.bits; left >= 8 {
			z.err = corruptf("code %d cut short with %d bits left: %w", z.pos, left, io.ErrUnexpectedEOF)
			return
		}
		z.err = io.EOF
		return
	}
	z.bits += uint64(width)

	z.buf, err = z.state.next(z.buf, Code(v))
	if err != nil {
		z.err = err
		return
	}
	z.pos++
}

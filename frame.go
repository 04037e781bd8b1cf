package lzw

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/icza/bitio"
	"github.com/klauspost/compress/flate"
	"go.uber.org/multierr"
)

const (
	frameMagic   = "LZWC"
	frameVersion = uint16(1)

	stageHeader = "header"
	stageCodes  = "codes"

	stageCodesParamPacked      = uint8(1) // codes bit-packed at their positional width
	stageCodesParamPackedFlate = uint8(2) // flate(packed codes)

	maxFrameStages       = 64
	maxStagePayloadBytes = 1 << 30 // 1 GiB
)

// Wire format (version 1):
//
//	magic[4] = "LZWC"
//	version  = uint16 little-endian
//	stageCnt = uint16 little-endian
//	repeat stageCnt times:
//	  nameLen  = uint8
//	  paramLen = uint16 little-endian
//	  dataLen  = uint32 little-endian
//	  name     = nameLen bytes
//	  params   = paramLen bytes
//	  payload  = dataLen bytes
//
// Required stage names:
//
//	header: uvarint alphabet size, uint8 max code width, uvarint code count
//	codes:  codes MSB-first, code i written with CodeWidth(i, ...) bits
//
// Unknown stages are skipped via dataLen framing.
type wireStageHeader struct {
	name     string
	paramLen uint16
	dataLen  uint32
}

// Frame is a code stream together with what a decoder needs to read it back.
type Frame struct {
	Codes        []Code
	AlphabetSize int
	MaxCodeWidth uint8 // 0 = unbounded

	disableFlate bool
}

// NewFrame wraps codes produced over an alphabet of alphabetSize symbols.
// Only WithMaxCodeWidth and WithFlate affect a frame.
func NewFrame(codes []Code, alphabetSize int, opts ...Option) *Frame {
	cfg := newConfig(opts)
	return &Frame{
		Codes:        codes,
		AlphabetSize: alphabetSize,
		MaxCodeWidth: resolveCodeWidth(cfg),
		disableFlate: cfg.DisableFlate,
	}
}

// EncodeCodes serializes codes into the framed wire format.
func EncodeCodes(codes []Code, alphabetSize int, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := NewFrame(codes, alphabetSize, opts...).WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeCodes parses a frame produced by EncodeCodes.
func DecodeCodes(data []byte) (*Frame, error) {
	var f Frame
	r := bytes.NewReader(data)
	if _, err := f.ReadFrom(r); err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, corruptf("%d trailing bytes after frame", r.Len())
	}
	return &f, nil
}

// corruptf wraps ErrCorruptFrame. A %w verb in format keeps its cause
// reachable through errors.Is.
func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrCorruptFrame}, args...)...)
}

func writeBytes(w io.Writer, b []byte) (int64, error) {
	n, err := w.Write(b)
	if err == nil && n != len(b) {
		err = io.ErrShortWrite
	}
	return int64(n), err
}

func writeStage(w io.Writer, name string, params []byte, payload []byte) (int64, error) {
	if len(name) == 0 || len(name) > 255 {
		return 0, fmt.Errorf("invalid stage name length: %d", len(name))
	}
	if len(params) > int(^uint16(0)) {
		return 0, fmt.Errorf("stage params too large for %q: %d", name, len(params))
	}
	if len(payload) > maxStagePayloadBytes {
		return 0, fmt.Errorf("stage payload too large for %q: %d", name, len(payload))
	}

	hdr := make([]byte, 0, 7+len(name))
	hdr = append(hdr, uint8(len(name)))
	hdr = binary.LittleEndian.AppendUint16(hdr, uint16(len(params)))
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(len(payload)))
	hdr = append(hdr, name...)

	var total int64
	for _, b := range [][]byte{hdr, params, payload} {
		n, err := writeBytes(w, b)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func readStageHeader(r io.Reader) (wireStageHeader, int64, error) {
	var fixed [7]byte
	n, err := io.ReadFull(r, fixed[:])
	total := int64(n)
	if err != nil {
		return wireStageHeader{}, total, err
	}

	nameLen := fixed[0]
	if nameLen == 0 {
		return wireStageHeader{}, total, fmt.Errorf("stage name length must be > 0")
	}
	paramLen := binary.LittleEndian.Uint16(fixed[1:3])
	dataLen := binary.LittleEndian.Uint32(fixed[3:7])
	if dataLen > uint32(maxStagePayloadBytes) {
		return wireStageHeader{}, total, fmt.Errorf("stage payload too large: %d", dataLen)
	}

	nameBytes := make([]byte, int(nameLen))
	n, err = io.ReadFull(r, nameBytes)
	total += int64(n)
	if err != nil {
		return wireStageHeader{}, total, err
	}

	return wireStageHeader{
		name:     string(nameBytes),
		paramLen: paramLen,
		dataLen:  dataLen,
	}, total, nil
}

// wireStage is one stage as read from the wire. payload is nil for stages
// this version does not know; their bytes are discarded.
type wireStage struct {
	name    string
	params  []byte
	payload []byte
}

func knownStage(name string) bool {
	return name == stageHeader || name == stageCodes
}

// readStage reads the next stage. Payloads grow with the bytes actually
// present, so a lying dataLen cannot force a large allocation.
func readStage(r io.Reader) (wireStage, int64, error) {
	hdr, total, err := readStageHeader(r)
	if err != nil {
		return wireStage{}, total, fmt.Errorf("read stage header: %w", err)
	}
	st := wireStage{name: hdr.name, params: make([]byte, int(hdr.paramLen))}

	n, err := io.ReadFull(r, st.params)
	total += int64(n)
	if err != nil {
		return st, total, fmt.Errorf("read stage %q params: %w", st.name, err)
	}

	if !knownStage(st.name) {
		skipped, err := io.CopyN(io.Discard, r, int64(hdr.dataLen))
		total += skipped
		if err != nil {
			return st, total, fmt.Errorf("skip unknown stage %q: %w", st.name, err)
		}
		return st, total, nil
	}

	st.payload, err = io.ReadAll(io.LimitReader(r, int64(hdr.dataLen)))
	total += int64(len(st.payload))
	if err == nil && len(st.payload) != int(hdr.dataLen) {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		return st, total, fmt.Errorf("read stage %q payload: %w", st.name, err)
	}
	return st, total, nil
}

func validateFrame(f *Frame) error {
	if f.AlphabetSize <= 0 {
		return fmt.Errorf("%w: alphabet size %d", ErrEmptyAlphabet, f.AlphabetSize)
	}
	if uint64(f.AlphabetSize) > uint64(MaxCode) {
		return fmt.Errorf("%w: alphabet size %d", ErrCodeWidth, f.AlphabetSize)
	}
	if f.MaxCodeWidth > maxCodeWidth {
		return fmt.Errorf("invalid max code width: %d", f.MaxCodeWidth)
	}
	if err := checkCodeWidth(f.AlphabetSize, f.MaxCodeWidth); err != nil {
		return err
	}
	for i, code := range f.Codes {
		if code <= MaxCodeAt(i, f.AlphabetSize, f.MaxCodeWidth) {
			continue
		}
		if i == 0 {
			return &EmptyAlphabetResolutionError{Code: code, AlphabetSize: f.AlphabetSize}
		}
		next := min(uint64(f.AlphabetSize)+uint64(i)-1, dictionaryCapacity(f.MaxCodeWidth))
		return &InvalidCodeError{Position: i, Code: code, Next: Code(next)}
	}
	return nil
}

func encodeHeaderStage(f *Frame) []byte {
	payload := make([]byte, 0, 2*binary.MaxVarintLen64+1)
	payload = binary.AppendUvarint(payload, uint64(f.AlphabetSize))
	payload = append(payload, f.MaxCodeWidth)
	payload = binary.AppendUvarint(payload, uint64(len(f.Codes)))
	return payload
}

// decodeHeaderStage fills the frame geometry and returns the announced code count.
func decodeHeaderStage(dst *Frame, payload []byte) (uint64, error) {
	alphabetSize, n := binary.Uvarint(payload)
	if n <= 0 {
		return 0, fmt.Errorf("malformed alphabet size")
	}
	payload = payload[n:]
	if len(payload) < 1 {
		return 0, fmt.Errorf("missing max code width")
	}
	width := payload[0]
	payload = payload[1:]
	count, n := binary.Uvarint(payload)
	if n <= 0 {
		return 0, fmt.Errorf("malformed code count")
	}
	if n != len(payload) {
		return 0, fmt.Errorf("header trailing bytes: %d", len(payload)-n)
	}
	if alphabetSize == 0 || alphabetSize > uint64(MaxCode) {
		return 0, fmt.Errorf("invalid alphabet size: %d", alphabetSize)
	}
	if width > maxCodeWidth {
		return 0, fmt.Errorf("invalid max code width: %d", width)
	}
	dst.AlphabetSize = int(alphabetSize)
	dst.MaxCodeWidth = width
	return count, nil
}

// packedSize returns the number of bytes count codes occupy once packed.
// ok is false when that exceeds the stage payload limit.
func packedSize(count uint64, alphabetSize int, maxWidth uint8) (size uint64, ok bool) {
	// every code takes at least one bit, so this bounds the loop below
	if count > maxStagePayloadBytes*8 {
		return 0, false
	}
	if count == 0 {
		return 0, true
	}

	bits := uint64(CodeWidth(0, alphabetSize, maxWidth))
	capacity := dictionaryCapacity(maxWidth)
	// widths only change where the largest legal code crosses a power of two
	for pos := uint64(1); pos < count; {
		w := CodeWidth(int(pos), alphabetSize, maxWidth)
		end := count
		if limit := uint64(1) << w; limit < capacity {
			// first position whose largest code is 1<<w
			end = min(count, limit+1-uint64(alphabetSize))
		}
		bits += uint64(w) * (end - pos)
		pos = end
	}

	size = (bits + 7) / 8
	return size, size <= maxStagePayloadBytes
}

func packCodes(f *Frame) ([]byte, error) {
	var buf bytes.Buffer
	w := bitio.NewWriter(&buf)
	for i, code := range f.Codes {
		if err := w.WriteBits(uint64(code), CodeWidth(i, f.AlphabetSize, f.MaxCodeWidth)); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	if buf.Len() > maxStagePayloadBytes {
		return nil, fmt.Errorf("packed codes too large: %d", buf.Len())
	}
	return buf.Bytes(), nil
}

// unpackCodes reads count codes from payload. The payload length must match
// the packed size exactly; it is checked before anything is allocated.
func unpackCodes(payload []byte, count uint64, alphabetSize int, maxWidth uint8) ([]Code, error) {
	want, ok := packedSize(count, alphabetSize, maxWidth)
	if !ok {
		return nil, fmt.Errorf("code count %d exceeds payload limit", count)
	}
	if want != uint64(len(payload)) {
		return nil, fmt.Errorf("codes payload is %d bytes, %d codes need %d", len(payload), count, want)
	}

	r := bitio.NewReader(bytes.NewReader(payload))
	codes := make([]Code, count)
	for i := range codes {
		v, err := r.ReadBits(CodeWidth(i, alphabetSize, maxWidth))
		if err != nil {
			return nil, fmt.Errorf("read code %d: %w", i, err)
		}
		codes[i] = Code(v)
	}
	return codes, nil
}

func encodeCodesStage(f *Frame) ([]byte, uint8, error) {
	raw, err := packCodes(f)
	if err != nil {
		return nil, 0, err
	}
	if f.disableFlate {
		return raw, stageCodesParamPacked, nil
	}

	deflated, err := deflate(raw)
	if err != nil {
		return nil, 0, err
	}
	if len(deflated) < len(raw) {
		return deflated, stageCodesParamPackedFlate, nil
	}
	return raw, stageCodesParamPacked, nil
}

func decodeCodesStage(dst *Frame, params []byte, payload []byte, count uint64) error {
	if len(params) != 1 {
		return fmt.Errorf("codes stage expects 1 param byte, got %d", len(params))
	}
	want, ok := packedSize(count, dst.AlphabetSize, dst.MaxCodeWidth)
	if !ok {
		return fmt.Errorf("code count %d exceeds payload limit", count)
	}

	switch params[0] {
	case stageCodesParamPacked:
	case stageCodesParamPackedFlate:
		raw, err := inflate(payload, want)
		if err != nil {
			return err
		}
		payload = raw
	default:
		return fmt.Errorf("unsupported codes encoding: %d", params[0])
	}

	codes, err := unpackCodes(payload, count, dst.AlphabetSize, dst.MaxCodeWidth)
	if err != nil {
		return err
	}
	dst.Codes = codes
	return nil
}

func deflate(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(raw) / 2)
	fw, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	_, err = fw.Write(raw)
	// the writer is closed even after a failed write
	if err = multierr.Append(err, fw.Close()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// inflate expands payload, failing once the output passes limit bytes.
func inflate(payload []byte, limit uint64) ([]byte, error) {
	fr := flate.NewReader(bytes.NewReader(payload))
	defer fr.Close()

	raw, err := io.ReadAll(io.LimitReader(fr, int64(limit)+1))
	if err != nil {
		return nil, err
	}
	if uint64(len(raw)) > limit {
		return nil, fmt.Errorf("flate payload expands beyond %d bytes", limit)
	}
	return raw, nil
}

// WriteTo serializes the frame to an io.Writer.
func (f *Frame) WriteTo(w io.Writer) (int64, error) {
	if err := validateFrame(f); err != nil {
		return 0, fmt.Errorf("invalid frame: %w", err)
	}

	codesPayload, codesParam, err := encodeCodesStage(f)
	if err != nil {
		return 0, err
	}
	stages := []wireStage{
		{name: stageHeader, payload: encodeHeaderStage(f)},
		{name: stageCodes, params: []byte{codesParam}, payload: codesPayload},
	}

	head := make([]byte, 0, len(frameMagic)+4)
	head = append(head, frameMagic...)
	head = binary.LittleEndian.AppendUint16(head, frameVersion)
	head = binary.LittleEndian.AppendUint16(head, uint16(len(stages)))
	total, err := writeBytes(w, head)
	if err != nil {
		return total, err
	}

	for _, st := range stages {
		n, err := writeStage(w, st.name, st.params, st.payload)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ReadFrom deserializes a frame from an io.Reader.
// Every failure wraps ErrCorruptFrame unless the codes themselves are out of
// range, which reports *InvalidCodeError or *EmptyAlphabetResolutionError.
func (f *Frame) ReadFrom(r io.Reader) (int64, error) {
	var head [len(frameMagic) + 4]byte
	n, err := io.ReadFull(r, head[:])
	total := int64(n)
	if err != nil {
		return total, corruptf("read frame head: %w", err)
	}
	if string(head[:4]) != frameMagic {
		return total, corruptf("invalid frame magic: %q", string(head[:4]))
	}
	if version := binary.LittleEndian.Uint16(head[4:6]); version != frameVersion {
		return total, corruptf("unsupported frame version: %d", version)
	}
	stageCount := binary.LittleEndian.Uint16(head[6:8])
	if stageCount == 0 || stageCount > maxFrameStages {
		return total, corruptf("invalid stage count: %d", stageCount)
	}

	known := make(map[string]wireStage, 2)
	for i := 0; i < int(stageCount); i++ {
		offset := total
		st, n, err := readStage(r)
		total += n
		if err != nil {
			return total, corruptf("stage %d at offset %d: %w", i, offset, err)
		}
		if !knownStage(st.name) {
			continue
		}
		if _, dup := known[st.name]; dup {
			return total, corruptf("duplicate stage %q at offset %d", st.name, offset)
		}
		known[st.name] = st
	}

	header, ok := known[stageHeader]
	if !ok {
		return total, corruptf("missing required stage %q", stageHeader)
	}
	codes, ok := known[stageCodes]
	if !ok {
		return total, corruptf("missing required stage %q", stageCodes)
	}

	var tmp Frame
	count, err := decodeHeaderStage(&tmp, header.payload)
	if err != nil {
		return total, corruptf("decode stage %q: %w", stageHeader, err)
	}
	if err := decodeCodesStage(&tmp, codes.params, codes.payload, count); err != nil {
		return total, corruptf("decode stage %q: %w", stageCodes, err)
	}
	if err := validateFrame(&tmp); err != nil {
		return total, err
	}

	*f = tmp
	return total, nil
}

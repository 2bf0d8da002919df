package core

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// Constants for the container frame format
const (
	FrameMagic      uint32 = 19911106 // Marker stored in the first four bytes
	FrameHeaderSize        = 8        // Magic + original length
)

var (
	ErrShortFrame    = errors.New("frame shorter than header")
	ErrBadMagic      = errors.New("frame magic mismatch")
	ErrFrameTooLarge = errors.New("original length exceeds uint32")
)

// FrameHeader is the fixed prefix of a container frame.
type FrameHeader struct {
	Magic       uint32
	OriginalLen uint32
}

// EncodeFrame wraps a compressed payload in the container format.
//
// The layout is little-endian and must never change:
//
//	offset 0: uint32 magic (19911106)
//	offset 4: uint32 length of the uncompressed input
//	offset 8: compressed payload
func EncodeFrame(rawLen uint32, compressed []byte) []byte {
	out := make([]byte, FrameHeaderSize+len(compressed))
	binary.LittleEndian.PutUint32(out[0:4], FrameMagic)
	binary.LittleEndian.PutUint32(out[4:8], rawLen)
	copy(out[FrameHeaderSize:], compressed)
	return out
}

// DecodeFrame splits a container frame into the original length and payload.
// The payload aliases b.
func DecodeFrame(b []byte) (uint32, []byte, error) {
	if len(b) < FrameHeaderSize {
		return 0, nil, ErrShortFrame
	}
	if magic := binary.LittleEndian.Uint32(b[0:4]); magic != FrameMagic {
		return 0, nil, fmt.Errorf("%w: got %d", ErrBadMagic, magic)
	}
	return binary.LittleEndian.Uint32(b[4:8]), b[FrameHeaderSize:], nil
}

// FrameLength converts a byte count to the header's length field.
func FrameLength(n int64) (uint32, error) {
	if n < 0 || n > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d", ErrFrameTooLarge, n)
	}
	return uint32(n), nil
}

// WriteFrame streams a frame header followed by the compressed payload to w.
// It returns the number of bytes written.
func WriteFrame(w io.Writer, rawLen uint32, compressed io.Reader) (int64, error) {
	hdr := FrameHeader{Magic: FrameMagic, OriginalLen: rawLen}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return 0, fmt.Errorf("write frame header: %w", err)
	}
	n, err := io.Copy(w, compressed)
	if err != nil {
		return FrameHeaderSize + n, fmt.Errorf("write frame payload: %w", err)
	}
	return FrameHeaderSize + n, nil
}

// ReadFrameHeader reads and validates the frame header at the start of r.
func ReadFrameHeader(r io.Reader) (FrameHeader, error) {
	var hdr FrameHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return hdr, ErrShortFrame
		}
		return hdr, fmt.Errorf("read frame header: %w", err)
	}
	if hdr.Magic != FrameMagic {
		return hdr, fmt.Errorf("%w: got %d", ErrBadMagic, hdr.Magic)
	}
	return hdr, nil
}

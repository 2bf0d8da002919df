package codec

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"pubtools/pkg/core"

	"github.com/pierrec/lz4/v4"
)

const lz4FrameMagic = 0x184D2204

// FrameReport describes a framed asset.
type FrameReport struct {
	Header         core.FrameHeader
	CompressedSize int64 // Payload bytes after the header
	LZ4            bool  // Payload is an LZ4 frame
	Decoded        int64 // Bytes produced by decompressing the payload
}

// InspectFrame reads a container frame from r. When the payload is an LZ4
// frame it is decompressed and its length checked against the header.
func InspectFrame(r io.Reader) (FrameReport, error) {
	var report FrameReport

	br := bufio.NewReader(r)
	hdr, err := core.ReadFrameHeader(br)
	if err != nil {
		return report, err
	}
	report.Header = hdr

	peek, _ := br.Peek(4)
	if len(peek) < 4 || binary.LittleEndian.Uint32(peek) != lz4FrameMagic {
		n, err := io.Copy(io.Discard, br)
		if err != nil {
			return report, fmt.Errorf("read payload: %w", err)
		}
		report.CompressedSize = n
		return report, nil
	}
	report.LZ4 = true

	counter := &countingReader{r: br}
	zr := lz4.NewReader(counter)
	n, err := io.Copy(io.Discard, zr)
	report.Decoded = n
	if err != nil {
		return report, fmt.Errorf("decompress payload: %w", err)
	}
	// Drain anything after the LZ4 end mark so the size covers the payload.
	if _, err := io.Copy(io.Discard, counter); err != nil {
		return report, fmt.Errorf("read payload: %w", err)
	}
	report.CompressedSize = counter.n
	if uint64(n) != uint64(hdr.OriginalLen) {
		return report, fmt.Errorf("decoded %d bytes, header says %d", n, hdr.OriginalLen)
	}
	return report, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

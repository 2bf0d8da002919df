// Package codec provides the compressors and encryptors the pipeline calls:
// an in-process LZ4 frame compressor and external-command collaborators.
package codec

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/pierrec/lz4/v4"
)

const copyBufferSize = 32 * 1024

// lz4Levels maps the 0-9 scale of the lz4 command line tool.
var lz4Levels = [...]lz4.CompressionLevel{
	lz4.Fast, lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4,
	lz4.Level5, lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9,
}

// LZ4Compressor writes LZ4 frames with block and content checksums.
type LZ4Compressor struct {
	level lz4.CompressionLevel
}

// NewLZ4Compressor returns a compressor for level 0 (fast) to 9 (best).
func NewLZ4Compressor(level int) (*LZ4Compressor, error) {
	if level < 0 || level >= len(lz4Levels) {
		return nil, fmt.Errorf("lz4 level %d out of range 0-%d", level, len(lz4Levels)-1)
	}
	return &LZ4Compressor{level: lz4Levels[level]}, nil
}

// Compress streams src through an LZ4 writer into dst.
func (c *LZ4Compressor) Compress(ctx context.Context, fsys billy.Filesystem, src, dst string) error {
	in, err := fsys.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	info, err := fsys.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	out, err := fsys.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	zw := lz4.NewWriter(out)
	if err := zw.Apply(
		lz4.CompressionLevelOption(c.level),
		lz4.BlockChecksumOption(true),
		lz4.ChecksumOption(true),
		lz4.SizeOption(uint64(info.Size())),
	); err != nil {
		return fmt.Errorf("configure lz4 writer: %w", err)
	}

	buf := make([]byte, copyBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := in.Read(buf)
		if n > 0 {
			if _, werr := zw.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write compressed %s: %w", src, werr)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", src, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close lz4 writer %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}
	return nil
}

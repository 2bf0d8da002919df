package core

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5"
)

// CompressStage frames compress-eligible assets in place.
type CompressStage struct {
	fsys       billy.Filesystem
	compressor Compressor
}

// NewCompressStage returns a stage that runs compressor over files in fsys.
func NewCompressStage(fsys billy.Filesystem, compressor Compressor) *CompressStage {
	return &CompressStage{fsys: fsys, compressor: compressor}
}

// Process compresses one file and replaces it with the framed result. It
// reports false when the file is not compress-eligible. Until the final
// rename the file at path is unmodified, and no temp survives a failure.
func (s *CompressStage) Process(ctx context.Context, path string) (Event, bool, error) {
	class := Classify(path)
	if !class.CompressEligible() {
		return Event{}, false, nil
	}

	pending := newPendingReplacement(s.fsys, path)
	ev, err := s.process(ctx, pending, path)
	if err != nil {
		if abandonErr := pending.abandon(); abandonErr != nil {
			err = errors.Join(err, ioError(StageCompress, path, abandonErr))
		}
		return Event{}, true, err
	}
	ev.Class = class
	return ev, true, nil
}

func (s *CompressStage) process(ctx context.Context, pending *pendingReplacement, path string) (Event, error) {
	compressed, err := pending.tempPath("lz4")
	if err != nil {
		return Event{}, ioError(StageCompress, path, err)
	}
	if err := s.compressor.Compress(ctx, s.fsys, path, compressed); err != nil {
		return Event{}, compressionError(path, err)
	}

	info, err := s.fsys.Stat(path)
	if err != nil {
		return Event{}, ioError(StageCompress, path, fmt.Errorf("stat original: %w", err))
	}
	rawLen, err := FrameLength(info.Size())
	if err != nil {
		return Event{}, ioError(StageCompress, path, err)
	}

	framed, err := pending.tempPath("frame")
	if err != nil {
		return Event{}, ioError(StageCompress, path, err)
	}
	written, err := s.writeFrame(framed, rawLen, compressed)
	if err != nil {
		return Event{}, ioError(StageCompress, path, err)
	}

	if err := pending.commit(framed); err != nil {
		return Event{}, ioError(StageCompress, path, err)
	}
	return Event{
		Stage:    StageCompress,
		Path:     path,
		Output:   path,
		BytesIn:  info.Size(),
		BytesOut: written,
	}, nil
}

// writeFrame streams the compressor output into a framed temp file.
func (s *CompressStage) writeFrame(dst string, rawLen uint32, compressed string) (int64, error) {
	in, err := s.fsys.Open(compressed)
	if err != nil {
		return 0, fmt.Errorf("open compressed %s: %w", compressed, err)
	}
	defer in.Close()

	out, err := s.fsys.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create frame %s: %w", dst, err)
	}
	n, err := WriteFrame(out, rawLen, in)
	if err != nil {
		_ = out.Close()
		return 0, err
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("close frame %s: %w", dst, err)
	}
	return n, nil
}

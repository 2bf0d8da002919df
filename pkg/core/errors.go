package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for matching with errors.Is. Every error returned by the
// walker, the stages and the pipeline is a *Error of one of these kinds.
var (
	ErrIO                = errors.New("i/o failure")
	ErrCompressionFailed = errors.New("compression failed")
	ErrEncryptionFailed  = errors.New("encryption failed")
	ErrAlreadyRun        = errors.New("pipeline already run")
)

// Kind classifies a pipeline failure.
type Kind int

const (
	KindIO Kind = iota
	KindCompression
	KindEncryption
)

func (k Kind) sentinel() error {
	switch k {
	case KindCompression:
		return ErrCompressionFailed
	case KindEncryption:
		return ErrEncryptionFailed
	default:
		return ErrIO
	}
}

// Error describes the failure that aborted a run.
type Error struct {
	Kind  Kind
	Stage Stage
	Path  string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Path)
	}
	if e.Stage != StageNone {
		msg = fmt.Sprintf("%s stage: %s", e.Stage, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func ioError(stage Stage, path string, err error) error {
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	return &Error{Kind: KindIO, Stage: stage, Path: path, Err: err}
}

func compressionError(path string, err error) error {
	return &Error{Kind: KindCompression, Stage: StageCompress, Path: path, Err: err}
}

func encryptionError(path string, err error) error {
	return &Error{Kind: KindEncryption, Stage: StageEncrypt, Path: path, Err: err}
}

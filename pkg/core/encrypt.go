package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-billy/v5"
)

// EncryptStage encrypts encrypt-eligible assets, in place or into the
// compiled sibling for Lua scripts.
type EncryptStage struct {
	fsys      billy.Filesystem
	encryptor Encryptor
}

// NewEncryptStage returns a stage that runs encryptor over files in fsys.
func NewEncryptStage(fsys billy.Filesystem, encryptor Encryptor) *EncryptStage {
	return &EncryptStage{fsys: fsys, encryptor: encryptor}
}

// Process encrypts one file. It reports false when the file is not
// encrypt-eligible. When the output path differs from path, the encryptor
// writes a temp that replaces the output, and path is removed only after
// that commit. A failure leaves both path and any existing output as they
// were.
func (s *EncryptStage) Process(ctx context.Context, path string) (Event, bool, error) {
	class := Classify(path)
	if !class.EncryptEligible() {
		return Event{}, false, nil
	}

	info, err := s.fsys.Stat(path)
	if err != nil {
		return Event{}, true, ioError(StageEncrypt, path, fmt.Errorf("stat input: %w", err))
	}

	output := EncryptOutputPath(path)
	if output == path {
		if err := s.encryptor.Encrypt(ctx, s.fsys, path, path); err != nil {
			return Event{}, true, encryptionError(path, err)
		}
	} else if err := s.encryptTo(ctx, path, output); err != nil {
		return Event{}, true, err
	}

	ev := Event{
		Stage:   StageEncrypt,
		Path:    path,
		Output:  output,
		Class:   class,
		BytesIn: info.Size(),
	}
	if out, err := s.fsys.Stat(output); err == nil {
		ev.BytesOut = out.Size()
	}
	return ev, true, nil
}

func (s *EncryptStage) encryptTo(ctx context.Context, path, output string) error {
	pending := newPendingReplacement(s.fsys, output)
	temp, err := pending.tempPath("enc")
	if err != nil {
		return ioError(StageEncrypt, path, err)
	}
	if err := s.encryptor.Encrypt(ctx, s.fsys, path, temp); err != nil {
		err = encryptionError(path, err)
		if abandonErr := pending.abandon(); abandonErr != nil {
			err = errors.Join(err, ioError(StageEncrypt, path, abandonErr))
		}
		return err
	}
	if err := pending.commit(temp); err != nil {
		if abandonErr := pending.abandon(); abandonErr != nil {
			err = errors.Join(err, abandonErr)
		}
		return ioError(StageEncrypt, path, err)
	}
	if err := s.fsys.Remove(path); err != nil {
		return ioError(StageEncrypt, path, fmt.Errorf("remove source: %w", err))
	}
	return nil
}

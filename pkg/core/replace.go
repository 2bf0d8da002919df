package core

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
)

// pendingReplacement tracks the temp files of one file transform until the
// result is committed onto the final path or abandoned. Temp names start
// with a dot so a temp left behind by a crash classifies as unrecognised and
// is never picked up by a later run.
type pendingReplacement struct {
	fsys  billy.Filesystem
	final string
	temps []string
}

func newPendingReplacement(fsys billy.Filesystem, final string) *pendingReplacement {
	return &pendingReplacement{fsys: fsys, final: final}
}

// tempPath reserves a temp path next to the final path. A stale file from an
// earlier crashed run is removed first.
func (p *pendingReplacement) tempPath(tag string) (string, error) {
	name := fmt.Sprintf(".%s.%s.tmp", filepath.Base(p.final), tag)
	temp := filepath.Join(filepath.Dir(p.final), name)
	if err := removeIfExists(p.fsys, temp); err != nil {
		return "", fmt.Errorf("clear stale temp %s: %w", temp, err)
	}
	p.temps = append(p.temps, temp)
	return temp, nil
}

// commit removes every temp except from, then renames from onto the final
// path. The rename is the commit point.
func (p *pendingReplacement) commit(from string) error {
	for _, temp := range p.temps {
		if temp == from {
			continue
		}
		if err := removeIfExists(p.fsys, temp); err != nil {
			return fmt.Errorf("remove temp %s: %w", temp, err)
		}
	}
	if err := p.fsys.Rename(from, p.final); err != nil {
		return fmt.Errorf("rename %s onto %s: %w", from, p.final, err)
	}
	p.temps = nil
	return nil
}

// abandon removes all temps and leaves the final path untouched. It returns
// the first removal error, if any.
func (p *pendingReplacement) abandon() error {
	var errs []error
	for _, temp := range p.temps {
		if err := removeIfExists(p.fsys, temp); err != nil {
			errs = append(errs, fmt.Errorf("remove temp %s: %w", temp, err))
		}
	}
	p.temps = nil
	return errors.Join(errs...)
}

func removeIfExists(fsys billy.Filesystem, path string) error {
	err := fsys.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

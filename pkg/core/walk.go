package core

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// VisitFunc is called once per regular file found by Walk.
type VisitFunc func(path string) error

// SkipFunc is told about entries Walk does not visit: symbolic links and
// other non-regular files.
type SkipFunc func(path string, mode os.FileMode)

// Walk visits every regular file under root in directory listing order.
// Each directory is listed once before its entries are visited, so files
// created by visit during the walk are not seen by the same pass. The first
// error from listing a directory or from visit aborts the walk. Symbolic
// links are not followed; a root that is itself a link is an error, since
// walking it would visit nothing.
func Walk(fsys billy.Filesystem, root string, visit VisitFunc) error {
	return walk(fsys, root, visit, nil)
}

func walk(fsys billy.Filesystem, root string, visit VisitFunc, skip SkipFunc) error {
	info, err := fsys.Stat(root)
	if err != nil {
		return ioError(StageNone, root, fmt.Errorf("stat root: %w", err))
	}
	if !info.IsDir() {
		return ioError(StageNone, root, errors.New("root is not a directory"))
	}
	if linfo, err := fsys.Lstat(root); err == nil && linfo.Mode()&os.ModeSymlink != 0 {
		return ioError(StageNone, root, errors.New("root is a symbolic link"))
	}

	err = util.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return ioError(StageNone, path, fmt.Errorf("walk: %w", err))
		}
		if info.IsDir() {
			return nil
		}
		if !info.Mode().IsRegular() {
			if skip != nil {
				skip(path, info.Mode())
			}
			return nil
		}
		return visit(path)
	})
	if err != nil {
		return ioError(StageNone, root, err)
	}
	return nil
}

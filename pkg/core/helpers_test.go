package core

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/require"
)

var errInjected = errors.New("injected failure")

// fakeCompressPrefix marks output of the fake compressor.
var fakeCompressPrefix = []byte("LZ:")

// fakeCompressor prefixes the input so tests can tell compressed bytes apart.
func fakeCompressor(failOn string) CompressorFunc {
	return func(_ context.Context, fsys billy.Filesystem, src, dst string) error {
		if src == failOn {
			// Leave a partial temp behind like a crashed tool would.
			_ = util.WriteFile(fsys, dst, []byte("partial"), 0o644)
			return errInjected
		}
		data, err := util.ReadFile(fsys, src)
		if err != nil {
			return err
		}
		return util.WriteFile(fsys, dst, append(append([]byte{}, fakeCompressPrefix...), data...), 0o644)
	}
}

// xorEncrypt is a reversible stand-in cipher.
func xorEncrypt(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ 0x5A
	}
	return out
}

type encryptCall struct {
	src, dst string
	input    []byte
}

// fakeEncryptor records every call and XORs src into dst.
type fakeEncryptor struct {
	failOn string
	calls  []encryptCall
}

func (f *fakeEncryptor) Encrypt(_ context.Context, fsys billy.Filesystem, src, dst string) error {
	data, err := util.ReadFile(fsys, src)
	if err != nil {
		return err
	}
	f.calls = append(f.calls, encryptCall{src: src, dst: dst, input: data})
	if src == f.failOn {
		if dst != src {
			_ = util.WriteFile(fsys, dst, []byte("partial"), 0o644)
		}
		return errInjected
	}
	return util.WriteFile(fsys, dst, xorEncrypt(data), 0o644)
}

func newTree(t *testing.T, files map[string]string) billy.Filesystem {
	t.Helper()
	fsys := memfs.New()
	for name, content := range files {
		require.NoError(t, util.WriteFile(fsys, name, []byte(content), 0o644))
	}
	return fsys
}

func readFile(t *testing.T, fsys billy.Filesystem, name string) []byte {
	t.Helper()
	data, err := util.ReadFile(fsys, name)
	require.NoError(t, err)
	return data
}

func exists(fsys billy.Filesystem, name string) bool {
	_, err := fsys.Stat(name)
	return err == nil
}

// listFiles returns every regular file in the tree, sorted.
func listFiles(t *testing.T, fsys billy.Filesystem) []string {
	t.Helper()
	var files []string
	require.NoError(t, Walk(fsys, ".", func(path string) error {
		files = append(files, path)
		return nil
	}))
	sort.Strings(files)
	return files
}

func frameOf(raw []byte) []byte {
	return EncodeFrame(uint32(len(raw)), append(append([]byte{}, fakeCompressPrefix...), raw...))
}

func isFramed(data []byte) bool {
	_, _, err := DecodeFrame(data)
	return err == nil
}

func hasTemp(files []string) bool {
	for _, f := range files {
		if strings.HasSuffix(f, ".tmp") {
			return true
		}
	}
	return false
}

type recordingObserver struct {
	started  []Stage
	finished map[Stage]int
	events   []Event
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{finished: map[Stage]int{}}
}

func (r *recordingObserver) StageStarted(s Stage)             { r.started = append(r.started, s) }
func (r *recordingObserver) FileCommitted(ev Event)           { r.events = append(r.events, ev) }
func (r *recordingObserver) StageFinished(s Stage, files int) { r.finished[s] = files }

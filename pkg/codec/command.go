package codec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
)

// Placeholders expanded in command templates.
const (
	PlaceholderSrc = "{src}"
	PlaceholderDst = "{dst}"
	PlaceholderKey = "{key}"
)

// maxStderr bounds how much tool output is kept for error messages.
const maxStderr = 4096

// Command is an argv template for an external tool. Paths handed to the
// tool are resolved against the root of the billy filesystem, so the
// filesystem must be backed by the OS.
type Command struct {
	Args    []string
	KeyFile string // Substituted for {key}
}

// Validate checks that the template names a program and both paths.
func (c Command) Validate() error {
	if len(c.Args) == 0 || strings.TrimSpace(c.Args[0]) == "" {
		return errors.New("command template is empty")
	}
	joined := strings.Join(c.Args, " ")
	for _, ph := range []string{PlaceholderSrc, PlaceholderDst} {
		if !strings.Contains(joined, ph) {
			return fmt.Errorf("command template %q lacks %s", joined, ph)
		}
	}
	return nil
}

// Expand substitutes the placeholders in every argument.
func (c Command) Expand(src, dst string) []string {
	r := strings.NewReplacer(PlaceholderSrc, src, PlaceholderDst, dst, PlaceholderKey, c.KeyFile)
	args := make([]string, len(c.Args))
	for i, arg := range c.Args {
		args[i] = r.Replace(arg)
	}
	return args
}

// ExecError reports a tool that could not be started or exited non-zero.
type ExecError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("%s: %v", filepath.Base(e.Args[0]), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ExecError) Unwrap() error { return e.Err }

// run executes the expanded template with stderr captured for the error.
func (c Command) run(ctx context.Context, fsys billy.Filesystem, src, dst string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	args := c.Expand(osPath(fsys, src), osPath(fsys, dst))

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Stdout = &stderr

	if err := cmd.Run(); err != nil {
		out := strings.TrimSpace(stderr.String())
		if len(out) > maxStderr {
			out = out[len(out)-maxStderr:]
		}
		return &ExecError{Args: args, Stderr: out, Err: err}
	}
	return nil
}

func osPath(fsys billy.Filesystem, name string) string {
	return filepath.Join(fsys.Root(), name)
}

// CommandCompressor runs an external compressor such as the lz4 CLI.
type CommandCompressor struct {
	Command Command
}

func (c CommandCompressor) Compress(ctx context.Context, fsys billy.Filesystem, src, dst string) error {
	return c.Command.run(ctx, fsys, src, dst)
}

// CommandEncryptor runs an external encryptor with the configured key file.
// For in-place encryption the tool receives the same path twice.
type CommandEncryptor struct {
	Command Command
}

func (c CommandEncryptor) Encrypt(ctx context.Context, fsys billy.Filesystem, src, dst string) error {
	return c.Command.run(ctx, fsys, src, dst)
}

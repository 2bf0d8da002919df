package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-git/go-billy/v5"
)

// State is the position of a pipeline in its run.
type State int

const (
	StateStart State = iota
	StateCompressing
	StateEncrypting
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateCompressing:
		return "compressing"
	case StateEncrypting:
		return "encrypting"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Legal transitions. Encrypting is only reachable from a completed
// compress pass, which keeps framing ahead of encryption.
var transitions = map[State][]State{
	StateStart:       {StateCompressing},
	StateCompressing: {StateEncrypting, StateAborted},
	StateEncrypting:  {StateDone, StateAborted},
}

// Options configures a Pipeline.
type Options struct {
	Compressor Compressor
	Encryptor  Encryptor
	Observer   Observer     // Optional
	Logger     *slog.Logger // Optional
}

// Pipeline runs the compress pass over the whole tree, then the encrypt pass
// over the whole tree. A Pipeline runs once.
type Pipeline struct {
	fsys     billy.Filesystem
	root     string
	compress *CompressStage
	encrypt  *EncryptStage
	observer Observer
	log      *slog.Logger

	state State
	err   error
}

// New returns a pipeline over root in fsys.
func New(fsys billy.Filesystem, root string, opts Options) *Pipeline {
	p := &Pipeline{
		fsys:     fsys,
		root:     root,
		compress: NewCompressStage(fsys, opts.Compressor),
		encrypt:  NewEncryptStage(fsys, opts.Encryptor),
		observer: opts.Observer,
		log:      opts.Logger,
	}
	if p.observer == nil {
		p.observer = nopObserver{}
	}
	if p.log == nil {
		p.log = slog.New(slog.DiscardHandler)
	}
	return p
}

// State returns the current state.
func (p *Pipeline) State() State { return p.state }

// Err returns the error that aborted the run, if any.
func (p *Pipeline) Err() error { return p.err }

// Run executes both passes. The first failure aborts the run; files
// committed before it stay transformed.
func (p *Pipeline) Run(ctx context.Context) error {
	if p.state != StateStart {
		return ErrAlreadyRun
	}

	p.transition(StateCompressing)
	if err := p.runStage(ctx, StageCompress, p.compress.Process); err != nil {
		return p.abort(err)
	}

	p.transition(StateEncrypting)
	if err := p.runStage(ctx, StageEncrypt, p.encrypt.Process); err != nil {
		return p.abort(err)
	}

	p.transition(StateDone)
	return nil
}

type processFunc func(ctx context.Context, path string) (Event, bool, error)

func (p *Pipeline) runStage(ctx context.Context, stage Stage, process processFunc) error {
	p.observer.StageStarted(stage)
	p.log.Info("stage started", "stage", stage.String(), "root", p.root)

	files := 0
	skip := func(path string, mode os.FileMode) {
		p.log.Debug("skipping non-regular entry", "stage", stage.String(), "path", path, "mode", mode.String())
	}
	err := walk(p.fsys, p.root, func(path string) error {
		ev, handled, err := process(ctx, path)
		if err != nil {
			return err
		}
		if !handled {
			if Classify(path) == ClassUnrecognized {
				p.log.Debug("skipping unrecognized asset", "stage", stage.String(), "path", path)
			}
			return nil
		}
		files++
		p.log.Debug("file committed", "stage", stage.String(), "path", ev.Path, "output", ev.Output,
			"bytes_in", ev.BytesIn, "bytes_out", ev.BytesOut)
		p.observer.FileCommitted(ev)
		return nil
	}, skip)
	if err != nil {
		var pe *Error
		if errors.As(err, &pe) && pe.Stage == StageNone {
			pe.Stage = stage
		}
		return err
	}

	p.observer.StageFinished(stage, files)
	p.log.Debug("stage finished", "stage", stage.String(), "files", files)
	return nil
}

func (p *Pipeline) abort(err error) error {
	p.err = err
	p.transition(StateAborted)
	p.log.Error("pipeline aborted", "state", p.state.String(), "error", err)
	return err
}

func (p *Pipeline) transition(next State) {
	for _, allowed := range transitions[p.state] {
		if allowed == next {
			p.state = next
			return
		}
	}
	panic(fmt.Sprintf("pipeline: illegal transition %s -> %s", p.state, next))
}

// Action is the planned treatment of one file.
type Action struct {
	Path     string
	Class    ExtensionClass
	Compress bool
	Encrypt  bool
	Output   string // Final path after both passes
}

// Plan walks the tree once and reports what Run would do, without touching
// any file.
func (p *Pipeline) Plan() ([]Action, error) {
	var actions []Action
	err := Walk(p.fsys, p.root, func(path string) error {
		class := Classify(path)
		a := Action{
			Path:     path,
			Class:    class,
			Compress: class.CompressEligible(),
			Encrypt:  class.EncryptEligible(),
			Output:   path,
		}
		if a.Encrypt {
			a.Output = EncryptOutputPath(path)
		}
		actions = append(actions, a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return actions, nil
}

// Package lib runs the asset pipeline over an OS directory with the
// collaborators, lock, logging and observers a command line run needs.
package lib

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"pubtools/pkg/codec"
	"pubtools/pkg/config"
	"pubtools/pkg/core"
	"pubtools/pkg/progress"
	"pubtools/pkg/report"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// ErrLocked is returned when another run holds the tree's lock file.
var ErrLocked = errors.New("asset tree is locked by another run")

// Options configures Process.
type Options struct {
	Config           *config.Config // Defaults when nil
	Logger           *slog.Logger   // Discarded when nil
	DryRun           bool
	ProgressInterval time.Duration

	// Overrides for the collaborators built from Config.
	Compressor core.Compressor
	Encryptor  core.Encryptor
}

// Result describes a finished run.
type Result struct {
	RunID   string
	Root    string
	State   core.State
	Plan    []core.Action // Set for dry runs
	Summary *report.Summary
}

// Process runs the pipeline over the directory root. A dry run only plans.
func Process(ctx context.Context, root string, opts Options) (*Result, error) {
	cfg := opts.Config
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	// Work on the link target: the walk does not follow links, and the
	// lock must guard the real tree whichever name a run uses for it.
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", abs)
	}

	compressor, encryptor, err := collaborators(cfg, opts)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log = log.With("run_id", runID)
	res := &Result{RunID: runID, Root: abs, Summary: report.NewSummary()}

	fsys := osfs.New(abs)
	tracker := progress.New(log, opts.ProgressInterval)
	observers := core.Observers{tracker, res.Summary}

	if opts.DryRun {
		plan, err := core.New(fsys, ".", core.Options{Logger: log}).Plan()
		if err != nil {
			return nil, err
		}
		res.Plan = plan
		return res, nil
	}

	if cfg.Run.Lock {
		lock := flock.New(config.LockPath(abs))
		locked, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if !locked {
			return nil, fmt.Errorf("%w: %s", ErrLocked, lock.Path())
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				log.Warn("release lock failed", "error", err)
			}
		}()
	}

	var (
		store    *report.Store
		recorder *report.Recorder
	)
	if cfg.Run.Report != "" {
		store, err = report.Open(ctx, cfg.Run.Report)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		if err := store.BeginRun(ctx, runID, abs, time.Now()); err != nil {
			return nil, err
		}
		recorder = store.Recorder(ctx, runID)
		observers = append(observers, recorder)
	}

	pipeline := core.New(fsys, ".", core.Options{
		Compressor: compressor,
		Encryptor:  encryptor,
		Observer:   observers,
		Logger:     log,
	})

	if plan, err := pipeline.Plan(); err == nil {
		expectPlan(tracker, plan)
	}

	log.Info("run started", "root", abs)
	tracker.Start()
	runErr := pipeline.Run(ctx)
	tracker.Stop()
	res.State = pipeline.State()

	if store != nil {
		if err := recorder.Err(); err != nil {
			log.Warn("run report incomplete", "error", err)
		}
		// The ledger outlives a cancelled run.
		if err := store.FinishRun(context.WithoutCancel(ctx), runID, res.State, runErr); err != nil {
			log.Warn("record run state failed", "error", err)
		}
	}

	if runErr != nil {
		return res, runErr
	}
	log.Info("run finished",
		"compressed", res.Summary.Files(core.StageCompress),
		"encrypted", res.Summary.Files(core.StageEncrypt))
	return res, nil
}

func expectPlan(tracker *progress.Tracker, plan []core.Action) {
	var compress, encrypt int
	for _, a := range plan {
		if a.Compress {
			compress++
		}
		if a.Encrypt {
			encrypt++
		}
	}
	tracker.Expect(core.StageCompress, compress)
	tracker.Expect(core.StageEncrypt, encrypt)
}

func collaborators(cfg *config.Config, opts Options) (core.Compressor, core.Encryptor, error) {
	compressor := opts.Compressor
	if compressor == nil {
		c, err := NewCompressor(cfg.Compressor)
		if err != nil {
			return nil, nil, err
		}
		compressor = c
	}
	encryptor := opts.Encryptor
	if encryptor == nil {
		e, err := NewEncryptor(cfg.Encryptor)
		if err != nil {
			return nil, nil, err
		}
		encryptor = e
	}
	return compressor, encryptor, nil
}

// NewCompressor builds the compressor selected by cfg.
func NewCompressor(cfg config.Compressor) (core.Compressor, error) {
	switch cfg.Mode {
	case config.ModeLZ4, "":
		c, err := codec.NewLZ4Compressor(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("compressor: %w", err)
		}
		return c, nil
	case config.ModeCommand:
		cmd := codec.Command{Args: cfg.Command}
		if err := cmd.Validate(); err != nil {
			return nil, fmt.Errorf("compressor: %w", err)
		}
		return codec.CommandCompressor{Command: cmd}, nil
	default:
		return nil, fmt.Errorf("compressor: unknown mode %q", cfg.Mode)
	}
}

// NewEncryptor builds the external encryptor described by cfg. A relative
// key file is resolved against the working directory, since the tool runs
// with absolute asset paths.
func NewEncryptor(cfg config.Encryptor) (core.Encryptor, error) {
	key := cfg.KeyFile
	if key != "" && !filepath.IsAbs(key) {
		abs, err := filepath.Abs(key)
		if err != nil {
			return nil, fmt.Errorf("resolve key file: %w", err)
		}
		key = abs
	}
	cmd := codec.Command{Args: cfg.Command, KeyFile: key}
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("encryptor: %w", err)
	}
	return codec.CommandEncryptor{Command: cmd}, nil
}

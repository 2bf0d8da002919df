// Package progress reports pipeline progress as periodic log lines.
package progress

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"pubtools/pkg/core"
)

// DefaultInterval is how often a running Tracker logs.
const DefaultInterval = time.Second

// Tracker counts committed files and bytes per stage. It implements
// core.Observer; counters are atomic so the ticker goroutine only reads.
type Tracker struct {
	log      *slog.Logger
	interval time.Duration

	stage     atomic.Int32
	files     atomic.Int64
	bytesIn   atomic.Uint64
	expected  [3]atomic.Int64 // Per core.Stage
	startedAt atomic.Int64    // UnixNano of the current stage start

	mu      sync.Mutex
	done    chan struct{}
	stopped chan struct{}
}

// New returns a Tracker that logs through log every interval once started.
func New(log *slog.Logger, interval time.Duration) *Tracker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Tracker{log: log, interval: interval}
}

// Expect sets the number of files a stage is planned to commit, enabling
// percentages and an ETA.
func (t *Tracker) Expect(stage core.Stage, files int) {
	if int(stage) < len(t.expected) {
		t.expected[stage].Store(int64(files))
	}
}

// Start launches the periodic logger. Calling Start twice is a no-op.
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done != nil {
		return
	}
	t.done = make(chan struct{})
	t.stopped = make(chan struct{})
	go t.loop(t.done, t.stopped)
}

// Stop ends the periodic logger and waits for it to exit.
func (t *Tracker) Stop() {
	t.mu.Lock()
	done, stopped := t.done, t.stopped
	t.done, t.stopped = nil, nil
	t.mu.Unlock()
	if done == nil {
		return
	}
	close(done)
	<-stopped
}

func (t *Tracker) StageStarted(stage core.Stage) {
	t.files.Store(0)
	t.bytesIn.Store(0)
	t.startedAt.Store(time.Now().UnixNano())
	t.stage.Store(int32(stage))
}

func (t *Tracker) FileCommitted(ev core.Event) {
	t.files.Add(1)
	if ev.BytesIn > 0 {
		t.bytesIn.Add(uint64(ev.BytesIn))
	}
}

func (t *Tracker) StageFinished(stage core.Stage, files int) {
	elapsed := time.Since(time.Unix(0, t.startedAt.Load()))
	secs := elapsed.Seconds()
	if secs < 0.001 {
		secs = 0.001
	}
	bytes := t.bytesIn.Load()
	t.log.Info("stage complete",
		"stage", stage.String(),
		"files", files,
		"size", formatSize(bytes),
		"elapsed", elapsed.Round(time.Millisecond),
		"rate", formatRate(uint64(float64(bytes)/secs)),
	)
	t.stage.Store(int32(core.StageNone))
}

// Snapshot is the current state of a Tracker.
type Snapshot struct {
	Stage    core.Stage
	Files    int64
	Expected int64
	Bytes    uint64
}

// Snapshot reads the counters.
func (t *Tracker) Snapshot() Snapshot {
	stage := core.Stage(t.stage.Load())
	s := Snapshot{Stage: stage, Files: t.files.Load(), Bytes: t.bytesIn.Load()}
	if int(stage) < len(t.expected) {
		s.Expected = t.expected[stage].Load()
	}
	return s
}

func (t *Tracker) loop(done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	var prevBytes uint64
	for {
		select {
		case <-ticker.C:
			s := t.Snapshot()
			if s.Stage == core.StageNone {
				prevBytes = 0
				continue
			}
			rate := uint64(float64(s.Bytes-min(prevBytes, s.Bytes)) / t.interval.Seconds())
			prevBytes = s.Bytes
			t.log.Info("progress", t.attrs(s, rate)...)
		case <-done:
			return
		}
	}
}

func (t *Tracker) attrs(s Snapshot, rate uint64) []any {
	attrs := []any{
		"stage", s.Stage.String(),
		"files", s.Files,
		"size", formatSize(s.Bytes),
		"rate", formatRate(rate),
	}
	if s.Expected <= 0 {
		return attrs
	}
	attrs = append(attrs, "total", s.Expected,
		"percent", fmt.Sprintf("%.1f", float64(s.Files)/float64(s.Expected)*100))

	elapsed := time.Since(time.Unix(0, t.startedAt.Load())).Seconds()
	if s.Files > 0 && s.Files < s.Expected && elapsed > 0 {
		perFile := elapsed / float64(s.Files)
		attrs = append(attrs, "eta", formatETA(perFile*float64(s.Expected-s.Files)))
	}
	return attrs
}

func formatETA(seconds float64) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%.0f seconds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%.1f minutes", seconds/60)
	default:
		return fmt.Sprintf("%.1f hours", seconds/3600)
	}
}

// formatSize returns a human-readable size string
func formatSize(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func formatRate(bytesPerSec uint64) string {
	return formatSize(bytesPerSec) + "/s"
}

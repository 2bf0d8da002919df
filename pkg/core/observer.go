package core

// Stage names a pass of the pipeline.
type Stage int

const (
	StageNone Stage = iota
	StageCompress
	StageEncrypt
)

func (s Stage) String() string {
	switch s {
	case StageCompress:
		return "compress"
	case StageEncrypt:
		return "encrypt"
	default:
		return "none"
	}
}

// Event describes one committed file transform.
type Event struct {
	Stage    Stage
	Path     string // Input path
	Output   string // Path holding the result; differs from Path for Lua scripts
	Class    ExtensionClass
	BytesIn  int64
	BytesOut int64
}

// Observer receives pipeline progress. Observers must not touch the tree.
type Observer interface {
	StageStarted(stage Stage)
	FileCommitted(ev Event)
	StageFinished(stage Stage, files int)
}

// Observers fans out to every member.
type Observers []Observer

func (o Observers) StageStarted(stage Stage) {
	for _, obs := range o {
		obs.StageStarted(stage)
	}
}

func (o Observers) FileCommitted(ev Event) {
	for _, obs := range o {
		obs.FileCommitted(ev)
	}
}

func (o Observers) StageFinished(stage Stage, files int) {
	for _, obs := range o {
		obs.StageFinished(stage, files)
	}
}

type nopObserver struct{}

func (nopObserver) StageStarted(Stage)       {}
func (nopObserver) FileCommitted(Event)      {}
func (nopObserver) StageFinished(Stage, int) {}

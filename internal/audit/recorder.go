package audit

import (
	"context"
	"time"

	"github.com/nerrad567/doorman/internal/access"
)

// writeTimeout bounds a single insert so a locked database cannot stall
// the door.
const writeTimeout = 2 * time.Second

// Logger defines the logging interface used by the recorder.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Recorder writes protocol events to a Repository.
type Recorder struct {
	repo   Repository
	siteID string
	logger Logger
}

var _ access.Recorder = (*Recorder)(nil)

// NewRecorder creates an audit recorder for siteID.
func NewRecorder(repo Repository, siteID string) *Recorder {
	return &Recorder{repo: repo, siteID: siteID, logger: noopLogger{}}
}

// SetLogger sets the logger for write failures.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// Record implements access.Recorder.
func (r *Recorder) Record(ctx context.Context, ev access.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	e := EntryFromEvent(r.siteID, ev)
	if err := r.repo.Create(ctx, &e); err != nil {
		r.logger.Warn("recording access event failed", "kind", ev.Kind, "error", err)
	}
}

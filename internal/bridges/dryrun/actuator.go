// Package dryrun provides an actuator that only logs, for installations
// where the door hardware is not wired yet.
package dryrun

import (
	"sync/atomic"

	"github.com/nerrad567/doorman/internal/access"
)

// Logger defines the logging interface used by the actuator.
type Logger interface {
	Info(msg string, args ...any)
}

// Actuator records each open request in the log instead of moving a lock.
type Actuator struct {
	logger Logger
	site   string
	opens  atomic.Int64
}

var _ access.Actuator = (*Actuator)(nil)

// NewActuator creates a dry-run actuator for site.
func NewActuator(logger Logger, site string) *Actuator {
	return &Actuator{logger: logger, site: site}
}

// Open implements access.Actuator. It never fails.
func (a *Actuator) Open() error {
	n := a.opens.Add(1)
	a.logger.Info("door opened (dry run)", "site", a.site, "opens", n)
	return nil
}

// Opens returns how many times Open has been called.
func (a *Actuator) Opens() int64 {
	return a.opens.Load()
}

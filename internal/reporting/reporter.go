package reporting

import (
	"fmt"
	"time"
)

// Stage is how far a module has progressed through bring-up.
type Stage string

const (
	StageInitializing Stage = "Initializing"
	StageInitialized  Stage = "Initialized"
	StageFailed       Stage = "Failed"
	// StageReady marks the side itself once its readiness flag is set.
	StageReady Stage = "Ready"
)

// String makes Stage satisfy the fmt.Stringer interface.
func (s Stage) String() string {
	return string(s)
}

// ModuleUpdate is one lifecycle transition of a module, or of a whole side
// when Module is empty.
type ModuleUpdate struct {
	Timestamp time.Time
	// Side is "Authority" or "Dependent".
	Side   string
	Module string
	Stage  Stage
	// Elapsed is set on side-level updates.
	Elapsed time.Duration
	Err     error
}

// String provides a simple string representation for debugging the update itself.
func (u ModuleUpdate) String() string {
	return fmt.Sprintf("Update(TS: %s, Side: %s, Module: %s, Stage: %s, Err: %v)",
		u.Timestamp.Format(time.RFC3339), u.Side, u.Module, u.Stage, u.Err)
}

// Reporter receives module updates. Implementations must be safe for
// concurrent use: init-phase updates arrive from many goroutines at once.
type Reporter interface {
	Report(update ModuleUpdate)
}

// StatefulReporter is a Reporter that also keeps the latest stage of every
// module it has seen.
type StatefulReporter interface {
	Reporter
	StateStore() *StateStore
}

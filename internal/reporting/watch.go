package reporting

import (
	"sort"
	"time"

	"lifectl/internal/lifecycle"
	"lifectl/internal/orchestrator"
)

const (
	SideAuthority = "Authority"
	SideDependent = "Dependent"
)

// named is satisfied by both module variants.
type named interface {
	ModuleName() string
}

func watch[M named](side string, initializing, initialized *lifecycle.Signal[M], r Reporter) func() {
	stopInitializing := initializing.Subscribe(func(m M) {
		r.Report(ModuleUpdate{Timestamp: time.Now(), Side: side, Module: m.ModuleName(), Stage: StageInitializing})
	})
	stopInitialized := initialized.Subscribe(func(m M) {
		r.Report(ModuleUpdate{Timestamp: time.Now(), Side: side, Module: m.ModuleName(), Stage: StageInitialized})
	})
	return func() {
		stopInitializing()
		stopInitialized()
	}
}

// WatchAuthority forwards the authority's service lifecycle to r. The
// returned function stops forwarding.
func WatchAuthority(a *orchestrator.Authority, r Reporter) func() {
	return watch(SideAuthority, a.OnServiceInitializing(), a.OnServiceInitialized(), r)
}

// WatchDependent forwards the dependent's controller lifecycle to r.
func WatchDependent(d *orchestrator.Dependent, r Reporter) func() {
	return watch(SideDependent, d.OnControllerInitializing(), d.OnControllerInitialized(), r)
}

// ReportStart reports the outcome of a side's Start: one failure per
// module in initErrors, then the side itself.
func ReportStart(r Reporter, side string, elapsed time.Duration, initErrors map[string]error, startErr error) {
	names := make([]string, 0, len(initErrors))
	for name := range initErrors {
		names = append(names, name)
	}
	sort.Strings(names)

	now := time.Now()
	for _, name := range names {
		r.Report(ModuleUpdate{Timestamp: now, Side: side, Module: name, Stage: StageFailed, Err: initErrors[name]})
	}

	stage := StageReady
	if startErr != nil {
		stage = StageFailed
	}
	r.Report(ModuleUpdate{Timestamp: now, Side: side, Stage: stage, Elapsed: elapsed, Err: startErr})
}

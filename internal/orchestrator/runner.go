package orchestrator

import (
	"context"
	"fmt"
	"runtime/pprof"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"lifectl/internal/future"
	"lifectl/internal/lifecycle"
	"lifectl/internal/module"
	"lifectl/internal/readiness"
	"lifectl/pkg/logging"
)

const (
	stateIdle int32 = iota
	stateStarting
	stateStarted
	// stateAborted is terminal: ctx ended the init phase after it began.
	stateAborted
)

// runner is the init/start protocol both sides share. M is the module
// variant of the side.
type runner[M module.Module] struct {
	side string
	gate readiness.Gate

	onInitializing *lifecycle.Signal[M]
	onInitialized  *lifecycle.Signal[M]

	// beforeInit runs after Start has claimed the runner and before the
	// staged set is read.
	beforeInit func(ctx context.Context) error
	// afterInit runs once a module's Init hook has succeeded; its failure
	// fails the module.
	afterInit func(ctx context.Context, m M) error

	mu         sync.Mutex
	registered bool
	staged     map[string]M
	ready      map[string]M
	initErrors map[string]error

	state   atomic.Int32
	started chan struct{}
}

func newRunner[M module.Module](side string, gate readiness.Gate) *runner[M] {
	return &runner[M]{
		side:           side,
		gate:           gate,
		onInitializing: lifecycle.NewSignal[M](side + ".initializing"),
		onInitialized:  lifecycle.NewSignal[M](side + ".initialized"),
		ready:          make(map[string]M),
		initErrors:     make(map[string]error),
		started:        make(chan struct{}),
	}
}

// register stages batch. It may succeed at most once per runner.
func (r *runner[M]) register(op string, batch []M) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Start claims the runner under mu, so a batch staged here is always
	// seen by the init phase.
	if err := stateError(op, r.state.Load()); err != nil {
		return err
	}
	if r.registered {
		return usage(op, ErrAlreadyRegistered, "")
	}

	staged := make(map[string]M, len(batch))
	for i, m := range batch {
		if isNilModule(m) {
			return usage(op, ErrInvalidModule, "entry %d is nil", i)
		}
		name := m.ModuleName()
		if name == "" {
			return usage(op, ErrInvalidModule, "entry %d has no name", i)
		}
		if _, exists := staged[name]; exists {
			return usage(op, ErrDuplicateName, "%q", name)
		}
		staged[name] = m
	}

	r.staged = staged
	r.registered = true

	logging.Debug(r.side, "Registered %d %s modules", len(staged), r.side)
	return nil
}

// Start runs the init phase, flips readiness and dispatches the start phase.
// It returns the elapsed time of the whole sequence.
func (r *runner[M]) Start(ctx context.Context) (time.Duration, error) {
	r.mu.Lock()
	claimed := r.state.CompareAndSwap(stateIdle, stateStarting)
	current := r.state.Load()
	r.mu.Unlock()
	if !claimed {
		return 0, stateError("start", current)
	}

	begin := time.Now()

	if r.beforeInit != nil {
		if err := r.beforeInit(ctx); err != nil {
			r.mu.Lock()
			r.state.Store(stateIdle)
			r.mu.Unlock()
			return time.Since(begin), err
		}
	}

	if err := r.initPhase(ctx); err != nil {
		r.state.Store(stateAborted)
		return time.Since(begin), fmt.Errorf("init phase interrupted: %w", err)
	}

	// The local flag flips before the gate is persisted: anyone released by
	// the gate already sees this side as started. It stays flipped even if
	// persisting fails.
	r.state.Store(stateStarted)
	close(r.started)
	gateErr := r.gate.Set(ctx)

	r.startPhase(ctx)

	elapsed := time.Since(begin)
	if gateErr != nil {
		logging.Error(r.side, gateErr, "Failed to persist readiness flag %s", r.gate.Name())
		return elapsed, fmt.Errorf("failed to set readiness flag %s: %w", r.gate.Name(), gateErr)
	}

	logging.Info(r.side, "Started %d modules in %s", r.readyCount(), elapsed)
	return elapsed, nil
}

// stateError maps a state that rules out op onto its usage error.
func stateError(op string, state int32) error {
	switch state {
	case stateStarted:
		return usage(op, ErrAlreadyStarted, "")
	case stateStarting:
		return usage(op, ErrStartInProgress, "")
	case stateAborted:
		return usage(op, ErrStartAborted, "")
	}
	return nil
}

// Started reports whether Start has flipped the readiness flag.
func (r *runner[M]) Started() bool {
	return r.state.Load() == stateStarted
}

// OnStart waits for Start to complete and returns how long it waited.
func (r *runner[M]) OnStart(ctx context.Context) (time.Duration, error) {
	if r.Started() {
		return 0, nil
	}

	begin := time.Now()
	select {
	case <-r.started:
		return time.Since(begin), nil
	case <-ctx.Done():
		return time.Since(begin), ctx.Err()
	}
}

// initPhase initializes every staged module concurrently and waits for all
// of them. A failing module is logged and recorded; it never stops the
// others. The returned error is non-nil only if ctx ended the wait.
func (r *runner[M]) initPhase(ctx context.Context) error {
	r.mu.Lock()
	pending := make([]M, 0, len(r.staged))
	for _, m := range r.staged {
		pending = append(pending, m)
	}
	r.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	logging.Debug(r.side, "Initializing %d modules", len(pending))

	futures := make([]*future.Future[M], 0, len(pending))
	for _, m := range pending {
		futures = append(futures, future.Go(ctx, func(ctx context.Context) (M, error) {
			return m, r.initModule(ctx, m)
		}))
	}

	results, err := future.AllSettled(ctx, futures...)
	if err != nil {
		return err
	}

	for i, result := range results {
		if result.OK() {
			continue
		}
		name := pending[i].ModuleName()
		logging.Warn(r.side, "Module %s failed to initialize: %v", name, result.Err)

		r.mu.Lock()
		r.initErrors[name] = result.Err
		r.mu.Unlock()
	}
	return nil
}

func (r *runner[M]) initModule(ctx context.Context, m M) error {
	name := m.ModuleName()

	r.onInitializing.Emit(m)

	if hook := m.InitHook(); hook != nil {
		var err error
		pprof.Do(ctx, pprof.Labels("module", name, "phase", "init"), func(ctx context.Context) {
			err = hook(ctx)
		})
		if err != nil {
			return fmt.Errorf("init %s: %w", name, err)
		}
	}

	if r.afterInit != nil {
		if err := r.afterInit(ctx, m); err != nil {
			return fmt.Errorf("init %s: %w", name, err)
		}
	}

	r.mu.Lock()
	r.ready[name] = m
	delete(r.staged, name)
	r.mu.Unlock()

	r.onInitialized.Emit(m)
	logging.Debug(r.side, "Module %s initialized", name)
	return nil
}

// startPhase dispatches every ready module's Start hook on its own
// goroutine and returns without waiting. Start hooks outlive the caller's
// ctx; only its values are kept.
func (r *runner[M]) startPhase(ctx context.Context) {
	detached := context.WithoutCancel(ctx)

	r.mu.Lock()
	ready := make([]M, 0, len(r.ready))
	for _, m := range r.ready {
		ready = append(ready, m)
	}
	r.mu.Unlock()

	for _, m := range ready {
		hook := m.StartHook()
		if hook == nil {
			continue
		}
		name := m.ModuleName()
		side := r.side

		future.Spawn(func() {
			pprof.Do(detached, pprof.Labels("module", name, "phase", "start"), func(ctx context.Context) {
				if err := hook(ctx); err != nil {
					logging.Error(side, err, "Module %s start returned an error", name)
				}
			})
		})
	}
}

// lookup returns a ready module by name.
func (r *runner[M]) lookup(op, name string) (M, error) {
	var zero M
	if !r.Started() {
		return zero, usage(op, ErrNotStarted, "%q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.ready[name]
	if !ok {
		return zero, usage(op, ErrNotFound, "%q", name)
	}
	return m, nil
}

func isNilModule(m module.Module) bool {
	switch v := m.(type) {
	case *module.Service:
		return v == nil
	case *module.Controller:
		return v == nil
	}
	return m == nil
}

func (r *runner[M]) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.ready))
	for name := range r.ready {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *runner[M]) readyCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ready)
}

func (r *runner[M]) errors() map[string]error {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]error, len(r.initErrors))
	for name, err := range r.initErrors {
		out[name] = err
	}
	return out
}

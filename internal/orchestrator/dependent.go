package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"lifectl/internal/lifecycle"
	"lifectl/internal/module"
	"lifectl/internal/readiness"
	"lifectl/internal/transport"
	"lifectl/pkg/logging"
)

const subsystemDependent = "Dependent"

// DependentConfig holds the collaborators of a Dependent.
type DependentConfig struct {
	// AuthorityGate is the authority's readiness flag. Required.
	AuthorityGate readiness.Gate
	// Directory is where the authority publishes. Required.
	Directory transport.Directory
	// Gate is this side's own readiness flag.
	// Default: an in-memory flag named readiness.DependentStarted.
	Gate readiness.Gate
}

// Dependent waits for the authority, discovers its published services and
// then brings up its own controllers.
type Dependent struct {
	runner        *runner[*module.Controller]
	authorityGate readiness.Gate
	directory     transport.Directory

	// discoverMu serializes Discover; servicesMu guards services so lookups
	// never wait behind a discovery in progress.
	discoverMu sync.Mutex
	servicesMu sync.RWMutex
	services   map[string]transport.Endpoint
}

// NewDependent creates a dependent orchestrator.
func NewDependent(cfg DependentConfig) (*Dependent, error) {
	if cfg.AuthorityGate == nil {
		return nil, errors.New("dependent requires the authority readiness gate")
	}
	if cfg.Directory == nil {
		return nil, errors.New("dependent requires a transport directory")
	}
	if cfg.Gate == nil {
		cfg.Gate = readiness.NewFlag(readiness.DependentStarted)
	}

	d := &Dependent{
		runner:        newRunner[*module.Controller](subsystemDependent, cfg.Gate),
		authorityGate: cfg.AuthorityGate,
		directory:     cfg.Directory,
	}
	d.runner.beforeInit = d.Discover
	return d, nil
}

// RegisterControllers stages the controllers to bring up on Start.
func (d *Dependent) RegisterControllers(controllers ...*module.Controller) error {
	return d.runner.register("register controllers", controllers)
}

// RegisterControllerMap stages controllers given as a name-keyed map. Each
// controller's own Name is authoritative; a nil map is rejected.
func (d *Dependent) RegisterControllerMap(controllers map[string]*module.Controller) error {
	if controllers == nil {
		return usage("register controllers", ErrNotCollection, "nil map")
	}

	keys := make([]string, 0, len(controllers))
	for key := range controllers {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	batch := make([]*module.Controller, 0, len(controllers))
	for _, key := range keys {
		batch = append(batch, controllers[key])
	}
	return d.runner.register("register controllers", batch)
}

// Discover waits for the authority readiness flag, then enumerates every
// endpoint published under the service namespace. Once it has succeeded
// later calls return immediately.
func (d *Dependent) Discover(ctx context.Context) error {
	d.discoverMu.Lock()
	defer d.discoverMu.Unlock()

	if d.discovered() {
		return nil
	}

	begin := time.Now()
	logging.Info(subsystemDependent, "Waiting for %s", d.authorityGate.Name())
	if err := d.authorityGate.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for %s: %w", d.authorityGate.Name(), err)
	}

	endpoints, err := d.directory.DiscoverAll(ctx, transport.NamespaceService)
	if err != nil {
		return fmt.Errorf("failed to discover services: %w", err)
	}

	// nil marks "not discovered yet", so an empty namespace is stored as an
	// empty map.
	if endpoints == nil {
		endpoints = make(map[string]transport.Endpoint)
	}

	d.servicesMu.Lock()
	d.services = endpoints
	d.servicesMu.Unlock()

	logging.Info(subsystemDependent, "Discovered %d services after %s", len(endpoints), time.Since(begin))
	return nil
}

func (d *Dependent) discovered() bool {
	d.servicesMu.RLock()
	defer d.servicesMu.RUnlock()
	return d.services != nil
}

// Start discovers the authority's services, initializes every controller,
// flips this side's readiness flag and dispatches the Start hooks.
func (d *Dependent) Start(ctx context.Context) (time.Duration, error) {
	return d.runner.Start(ctx)
}

// Started reports whether Start has completed its init phase.
func (d *Dependent) Started() bool {
	return d.runner.Started()
}

// OnStart blocks until Start has flipped the readiness flag.
func (d *Dependent) OnStart(ctx context.Context) (time.Duration, error) {
	return d.runner.OnStart(ctx)
}

// Controller returns an initialized controller by name. Callers must not
// mutate it.
func (d *Dependent) Controller(name string) (*module.Controller, error) {
	return d.runner.lookup("controller", name)
}

// Controllers returns the names of all initialized controllers, sorted.
func (d *Dependent) Controllers() []string {
	return d.runner.names()
}

// Service returns a discovered remote service. It is usable as soon as
// discovery has finished, independent of this side's own Start.
func (d *Dependent) Service(name string) (transport.Endpoint, error) {
	d.servicesMu.RLock()
	defer d.servicesMu.RUnlock()

	if d.services == nil {
		return nil, usage("service", ErrNotDiscovered, "%q", name)
	}
	ep, ok := d.services[name]
	if !ok {
		return nil, usage("service", ErrNotFound, "%q", name)
	}
	return ep, nil
}

// Services returns the names of all discovered services, sorted.
func (d *Dependent) Services() []string {
	d.servicesMu.RLock()
	defer d.servicesMu.RUnlock()

	names := make([]string, 0, len(d.services))
	for name := range d.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InitErrors returns the init failures of the last Start, keyed by name.
func (d *Dependent) InitErrors() map[string]error {
	return d.runner.errors()
}

// OnControllerInitializing fires before a controller's Init hook runs.
func (d *Dependent) OnControllerInitializing() *lifecycle.Signal[*module.Controller] {
	return d.runner.onInitializing
}

// OnControllerInitialized fires once a controller has moved to the ready set.
func (d *Dependent) OnControllerInitialized() *lifecycle.Signal[*module.Controller] {
	return d.runner.onInitialized
}

// Gate returns this side's readiness flag.
func (d *Dependent) Gate() readiness.Gate {
	return d.runner.gate
}

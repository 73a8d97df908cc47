package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"lifectl/internal/lifecycle"
	"lifectl/internal/module"
	"lifectl/internal/readiness"
	"lifectl/internal/transport"
	"lifectl/pkg/logging"
)

const subsystemAuthority = "Authority"

// AuthorityConfig holds the collaborators of an Authority. Zero values get
// in-process defaults.
type AuthorityConfig struct {
	// Gate is flipped once every service has initialized.
	// Default: an in-memory flag named readiness.AuthorityStarted.
	Gate readiness.Gate
	// Directory receives the remote surface of every service.
	// Default: a fresh transport.Registry.
	Directory transport.Directory
}

// Authority owns the canonical services and publishes their remote
// surfaces before signalling readiness.
type Authority struct {
	runner    *runner[*module.Service]
	directory transport.Directory
}

// NewAuthority creates an authority orchestrator.
func NewAuthority(cfg AuthorityConfig) *Authority {
	if cfg.Gate == nil {
		cfg.Gate = readiness.NewFlag(readiness.AuthorityStarted)
	}
	if cfg.Directory == nil {
		cfg.Directory = transport.NewRegistry()
	}

	a := &Authority{
		runner:    newRunner[*module.Service](subsystemAuthority, cfg.Gate),
		directory: cfg.Directory,
	}
	a.runner.afterInit = a.publish
	return a
}

// RegisterServices stages the services to bring up on Start.
func (a *Authority) RegisterServices(services ...*module.Service) error {
	return a.runner.register("register services", services)
}

// RegisterServiceMap stages services given as a name-keyed map. Each
// service's own Name is authoritative; a nil map is rejected.
func (a *Authority) RegisterServiceMap(services map[string]*module.Service) error {
	if services == nil {
		return usage("register services", ErrNotCollection, "nil map")
	}

	keys := make([]string, 0, len(services))
	for key := range services {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	batch := make([]*module.Service, 0, len(services))
	for _, key := range keys {
		batch = append(batch, services[key])
	}
	return a.runner.register("register services", batch)
}

// Start initializes every service, publishes remote surfaces, flips the
// authority readiness flag and dispatches the services' Start hooks.
func (a *Authority) Start(ctx context.Context) (time.Duration, error) {
	return a.runner.Start(ctx)
}

// Started reports whether Start has completed its init phase.
func (a *Authority) Started() bool {
	return a.runner.Started()
}

// OnStart blocks until Start has flipped the readiness flag.
func (a *Authority) OnStart(ctx context.Context) (time.Duration, error) {
	return a.runner.OnStart(ctx)
}

// Service returns an initialized service by name. Callers must not mutate it.
func (a *Authority) Service(name string) (*module.Service, error) {
	return a.runner.lookup("service", name)
}

// Services returns the names of all initialized services, sorted.
func (a *Authority) Services() []string {
	return a.runner.names()
}

// InitErrors returns the init failures of the last Start, keyed by name.
func (a *Authority) InitErrors() map[string]error {
	return a.runner.errors()
}

// OnServiceInitializing fires before a service's Init hook runs.
func (a *Authority) OnServiceInitializing() *lifecycle.Signal[*module.Service] {
	return a.runner.onInitializing
}

// OnServiceInitialized fires once a service has moved to the ready set.
func (a *Authority) OnServiceInitialized() *lifecycle.Signal[*module.Service] {
	return a.runner.onInitialized
}

// Gate returns the authority readiness flag.
func (a *Authority) Gate() readiness.Gate {
	return a.runner.gate
}

// Directory returns where remote surfaces are published.
func (a *Authority) Directory() transport.Directory {
	return a.directory
}

func (a *Authority) publish(ctx context.Context, s *module.Service) error {
	if !s.HasRemote() {
		return nil
	}

	b := transport.NewBuilder(s.Name, s.Middleware)
	for member, fn := range s.Remote {
		if err := b.Add(member, fn); err != nil {
			return fmt.Errorf("failed to build remote surface: %w", err)
		}
	}

	if err := a.directory.Publish(ctx, transport.NamespaceService, s.Name, b.Build()); err != nil {
		return fmt.Errorf("failed to publish remote surface: %w", err)
	}

	logging.Debug(subsystemAuthority, "Published %d remote members of %s", len(s.Remote), s.Name)
	return nil
}

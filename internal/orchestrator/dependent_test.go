package orchestrator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"lifectl/internal/module"
	"lifectl/internal/readiness"
	"lifectl/internal/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ping(ctx context.Context, args map[string]any) (any, error) {
	return "pong", nil
}

func newPair(t *testing.T) (*Authority, *Dependent) {
	t.Helper()

	a := NewAuthority(AuthorityConfig{})
	d, err := NewDependent(DependentConfig{
		AuthorityGate: a.Gate(),
		Directory:     a.Directory(),
	})
	require.NoError(t, err)
	return a, d
}

func TestNewDependent_RequiresCollaborators(t *testing.T) {
	_, err := NewDependent(DependentConfig{Directory: transport.NewRegistry()})
	assert.Error(t, err)

	_, err = NewDependent(DependentConfig{AuthorityGate: readiness.NewFlag(readiness.AuthorityStarted)})
	assert.Error(t, err)

	d, err := NewDependent(DependentConfig{
		AuthorityGate: readiness.NewFlag(readiness.AuthorityStarted),
		Directory:     transport.NewRegistry(),
	})
	require.NoError(t, err)
	assert.Equal(t, readiness.DependentStarted, d.Gate().Name())
}

func TestDependent_Scenario(t *testing.T) {
	// register {A: {init: incrementCounter}, B: {}}, start, look both up
	a, d := newPair(t)
	_, err := a.Start(context.Background())
	require.NoError(t, err)

	var counter atomic.Int32
	b := &module.Controller{Name: "B"}
	require.NoError(t, d.RegisterControllerMap(map[string]*module.Controller{
		"A": {Name: "A", Init: func(ctx context.Context) error {
			counter.Add(1)
			return nil
		}},
		"B": b,
	}))

	_, err = d.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), counter.Load())
	assert.True(t, d.Started())

	got, err := d.Controller("B")
	require.NoError(t, err)
	assert.Same(t, b, got)

	_, err = d.Controller("C")
	assert.ErrorIs(t, err, ErrUsage)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{"A", "B"}, d.Controllers())
}

func TestDependent_WaitsForAuthority(t *testing.T) {
	a, d := newPair(t)
	require.NoError(t, a.RegisterServices(&module.Service{
		Name:   "X",
		Remote: map[string]transport.Member{"ping": ping},
	}))

	var authorityStartedAtInit atomic.Bool
	require.NoError(t, d.RegisterControllers(&module.Controller{
		Name: "HUD",
		Init: func(ctx context.Context) error {
			authorityStartedAtInit.Store(a.Started())
			return nil
		},
	}))

	done := make(chan error, 1)
	go func() {
		_, err := d.Start(context.Background())
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	assert.False(t, d.Started(), "dependent started before the authority")

	_, err := a.Start(context.Background())
	require.NoError(t, err)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitTimeout):
		t.Fatal("dependent never started")
	}

	assert.True(t, authorityStartedAtInit.Load())

	svc, err := d.Service("X")
	require.NoError(t, err)
	result, err := svc.Call(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.Equal(t, "pong", result)
}

func TestDependent_AuthorityStartedDuringSlowGateSet(t *testing.T) {
	flag := readiness.NewFlag(readiness.AuthorityStarted)
	reg := transport.NewRegistry()
	a := NewAuthority(AuthorityConfig{Gate: slowGate{Flag: flag, delay: 50 * time.Millisecond}, Directory: reg})
	require.NoError(t, a.RegisterServices(&module.Service{Name: "X"}))

	d, err := NewDependent(DependentConfig{AuthorityGate: flag, Directory: reg})
	require.NoError(t, err)

	var authorityStartedAtInit atomic.Bool
	require.NoError(t, d.RegisterControllers(&module.Controller{
		Name: "HUD",
		Init: func(ctx context.Context) error {
			authorityStartedAtInit.Store(a.Started())
			return nil
		},
	}))

	go func() { _, _ = a.Start(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	_, err = d.Start(ctx)
	require.NoError(t, err)
	assert.True(t, authorityStartedAtInit.Load())
}

// emptyDirectory answers discovery with a nil map.
type emptyDirectory struct{}

func (emptyDirectory) Publish(ctx context.Context, namespace, name string, ep transport.Endpoint) error {
	return nil
}

func (emptyDirectory) DiscoverAll(ctx context.Context, namespace string) (map[string]transport.Endpoint, error) {
	return nil, nil
}

func TestDependent_EmptyDiscovery(t *testing.T) {
	gate := readiness.NewFlag(readiness.AuthorityStarted)
	require.NoError(t, gate.Set(context.Background()))

	d, err := NewDependent(DependentConfig{AuthorityGate: gate, Directory: emptyDirectory{}})
	require.NoError(t, err)

	_, err = d.Start(context.Background())
	require.NoError(t, err)

	_, err = d.Service("X")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrNotDiscovered)
	assert.Empty(t, d.Services())
}

func TestDependent_ControllersCallServicesAtStart(t *testing.T) {
	a, d := newPair(t)
	require.NoError(t, a.RegisterServices(&module.Service{
		Name:   "X",
		Remote: map[string]transport.Member{"ping": ping},
	}))

	answers := make(chan any, 1)
	require.NoError(t, d.RegisterControllers(&module.Controller{
		Name: "Pinger",
		Start: func(ctx context.Context) error {
			svc, err := d.Service("X")
			if err != nil {
				return err
			}
			answer, err := svc.Call(ctx, "ping", nil)
			if err != nil {
				return err
			}
			answers <- answer
			return nil
		},
	}))

	_, err := a.Start(context.Background())
	require.NoError(t, err)
	_, err = d.Start(context.Background())
	require.NoError(t, err)

	select {
	case answer := <-answers:
		assert.Equal(t, "pong", answer)
	case <-time.After(waitTimeout):
		t.Fatal("controller start hook never called the service")
	}
}

func TestDependent_ServiceBeforeDiscovery(t *testing.T) {
	_, d := newPair(t)

	_, err := d.Service("X")
	assert.ErrorIs(t, err, ErrUsage)
	assert.ErrorIs(t, err, ErrNotDiscovered)
	assert.Empty(t, d.Services())
}

func TestDependent_DiscoverWithoutStart(t *testing.T) {
	a, d := newPair(t)
	require.NoError(t, a.RegisterServices(
		&module.Service{Name: "X", Remote: map[string]transport.Member{"ping": ping}},
		&module.Service{Name: "Y", Remote: map[string]transport.Member{"ping": ping}},
	))
	_, err := a.Start(context.Background())
	require.NoError(t, err)

	require.NoError(t, d.Discover(context.Background()))
	require.NoError(t, d.Discover(context.Background()), "discover is idempotent")

	assert.Equal(t, []string{"X", "Y"}, d.Services())
	_, err = d.Service("Z")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = d.Controller("anything")
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestDependent_StartCancelledWhileWaiting(t *testing.T) {
	a, d := newPair(t)
	require.NoError(t, d.RegisterControllers(&module.Controller{Name: "HUD"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := d.Start(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, d.Started())

	// the failed wait leaves the dependent startable
	_, err = a.Start(context.Background())
	require.NoError(t, err)

	_, err = d.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, d.Started())
}

func TestDependent_UsageViolations(t *testing.T) {
	a, d := newPair(t)

	err := d.RegisterControllerMap(nil)
	assert.ErrorIs(t, err, ErrNotCollection)

	err = d.RegisterControllers(&module.Controller{Name: "A"}, &module.Controller{Name: "A"})
	assert.ErrorIs(t, err, ErrDuplicateName)

	require.NoError(t, d.RegisterControllers(&module.Controller{Name: "A"}))
	err = d.RegisterControllers(&module.Controller{Name: "B"})
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	_, err = a.Start(context.Background())
	require.NoError(t, err)
	_, err = d.Start(context.Background())
	require.NoError(t, err)

	_, err = d.Start(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestDependent_OverInProcessMCP(t *testing.T) {
	reg := transport.NewRegistry()
	a := NewAuthority(AuthorityConfig{Directory: reg})
	require.NoError(t, a.RegisterServices(&module.Service{
		Name: "X",
		Remote: map[string]transport.Member{
			"ping": ping,
			"double": func(ctx context.Context, args map[string]any) (any, error) {
				n, _ := args["n"].(float64)
				return n * 2, nil
			},
		},
	}))
	_, err := a.Start(context.Background())
	require.NoError(t, err)

	remote, err := transport.DialInProcess(context.Background(), reg.MCPServer())
	require.NoError(t, err)
	defer remote.Close()

	d, err := NewDependent(DependentConfig{
		AuthorityGate: a.Gate(),
		Directory:     remote,
	})
	require.NoError(t, err)
	require.NoError(t, d.RegisterControllers())

	_, err = d.Start(context.Background())
	require.NoError(t, err)

	svc, err := d.Service("X")
	require.NoError(t, err)
	assert.Equal(t, []string{"double", "ping"}, svc.Members())

	result, err := svc.Call(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.Equal(t, "pong", result)

	result, err = svc.Call(context.Background(), "double", map[string]any{"n": 21})
	require.NoError(t, err)
	assert.Equal(t, float64(42), result)
}

func TestDependent_GatesOverFileBackend(t *testing.T) {
	dir := t.TempDir()
	reg := transport.NewRegistry()

	a := NewAuthority(AuthorityConfig{
		Gate:      readiness.NewFileFlag(dir, readiness.AuthorityStarted),
		Directory: reg,
	})
	require.NoError(t, a.RegisterServices(&module.Service{
		Name:   "X",
		Remote: map[string]transport.Member{"ping": ping},
	}))

	// a separate handle on the same marker, as a second process would hold
	d, err := NewDependent(DependentConfig{
		AuthorityGate: readiness.NewFileFlag(dir, readiness.AuthorityStarted),
		Directory:     reg,
		Gate:          readiness.NewFileFlag(dir, readiness.DependentStarted),
	})
	require.NoError(t, err)
	require.NoError(t, d.RegisterControllers(&module.Controller{Name: "HUD"}))

	done := make(chan error, 1)
	go func() {
		_, err := d.Start(context.Background())
		done <- err
	}()

	_, err = a.Start(context.Background())
	require.NoError(t, err)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitTimeout):
		t.Fatal("dependent never observed the file marker")
	}

	set, err := d.Gate().IsSet(context.Background())
	require.NoError(t, err)
	assert.True(t, set)
}

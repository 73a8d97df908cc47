package app

import (
	"context"
	"fmt"

	"lifectl/internal/config"
	"lifectl/internal/future"
	"lifectl/internal/module"
	"lifectl/internal/orchestrator"
	"lifectl/internal/readiness"
	"lifectl/internal/reporting"
	"lifectl/internal/transport"
	"lifectl/pkg/logging"
)

// runAuthorityMode serves the published services over SSE and marks the
// authority ready, then holds until ctx is done.
func runAuthorityMode(ctx context.Context, cfg *Config, reporter reporting.Reporter) error {
	lc := cfg.LifectlConfig

	g, err := newGates(lc.Readiness)
	if err != nil {
		return err
	}
	if err := claim(ctx, g.authority); err != nil {
		return err
	}

	reg := transport.NewRegistry()
	srv, err := serve(ctx, lc.Transport, reg)
	if err != nil {
		return err
	}
	defer stopServer(srv)

	if _, err := startAuthority(ctx, lc, g.authority, reg, reporter); err != nil {
		return err
	}

	logging.Info("CLI", "Authority started. Press Ctrl+C to stop.")
	<-ctx.Done()
	return nil
}

// runDependentMode waits for an authority in another process, dials its
// published services and brings up the controllers.
func runDependentMode(ctx context.Context, cfg *Config, reporter reporting.Reporter) error {
	lc := cfg.LifectlConfig

	g, err := newGates(lc.Readiness)
	if err != nil {
		return err
	}
	if err := claim(ctx, g.dependent); err != nil {
		return err
	}

	if err := waitForAuthority(ctx, lc.Transport, g.authority); err != nil {
		return err
	}

	dir, err := dialDirectory(ctx, lc.Transport, nil)
	if err != nil {
		return err
	}
	defer dir.Close()

	if _, err := startDependent(ctx, cfg, g, dir, reporter); err != nil {
		return err
	}

	logging.Info("CLI", "Dependent started. Press Ctrl+C to stop.")
	<-ctx.Done()
	return nil
}

// runBothMode runs the authority and the dependent in one process. The
// dependent still goes through the MCP bridge to reach the services.
func runBothMode(ctx context.Context, cfg *Config, reporter reporting.Reporter) error {
	lc := cfg.LifectlConfig

	g, err := newGates(lc.Readiness)
	if err != nil {
		return err
	}
	if err := claim(ctx, g.authority, g.dependent); err != nil {
		return err
	}

	reg := transport.NewRegistry()
	if lc.Transport.Mode == config.TransportModeSSE {
		srv, err := serve(ctx, lc.Transport, reg)
		if err != nil {
			return err
		}
		defer stopServer(srv)
	}

	services, err := BuildServices(lc.Services)
	if err != nil {
		return err
	}
	authority := future.Go(ctx, func(ctx context.Context) (*orchestrator.Authority, error) {
		return startBuiltAuthority(ctx, services, g.authority, reg, reporter)
	})

	if err := waitForAuthority(ctx, lc.Transport, g.authority); err != nil {
		select {
		case <-authority.Done():
			if result := authority.Settle(); !result.OK() {
				return fmt.Errorf("authority failed to start: %w", result.Err)
			}
		default:
		}
		return err
	}

	dir, err := dialDirectory(ctx, lc.Transport, reg)
	if err != nil {
		return err
	}
	defer dir.Close()

	if _, err := startDependent(ctx, cfg, g, dir, reporter); err != nil {
		return err
	}
	// the authority has passed its readiness flag, so only its reporting is left
	if result := authority.Settle(); !result.OK() {
		logging.Warn("CLI", "Authority reported a start error: %v", result.Err)
	}

	logging.Info("CLI", "Both sides started. Press Ctrl+C to stop.")
	<-ctx.Done()
	return nil
}

func startAuthority(ctx context.Context, lc *config.LifectlConfig, gate readiness.Gate, reg *transport.Registry, reporter reporting.Reporter) (*orchestrator.Authority, error) {
	services, err := BuildServices(lc.Services)
	if err != nil {
		return nil, err
	}
	return startBuiltAuthority(ctx, services, gate, reg, reporter)
}

func startBuiltAuthority(ctx context.Context, services []*module.Service, gate readiness.Gate, reg *transport.Registry, reporter reporting.Reporter) (*orchestrator.Authority, error) {
	a := orchestrator.NewAuthority(orchestrator.AuthorityConfig{Gate: gate, Directory: reg})
	stopWatching := reporting.WatchAuthority(a, reporter)
	defer stopWatching()

	if err := a.RegisterServices(services...); err != nil {
		return nil, err
	}

	elapsed, err := a.Start(ctx)
	reporting.ReportStart(reporter, reporting.SideAuthority, elapsed, a.InitErrors(), err)
	if err != nil {
		return a, fmt.Errorf("failed to start authority: %w", err)
	}
	return a, nil
}

func startDependent(ctx context.Context, cfg *Config, g gates, dir transport.Directory, reporter reporting.Reporter) (*orchestrator.Dependent, error) {
	d, err := orchestrator.NewDependent(orchestrator.DependentConfig{
		AuthorityGate: g.authority,
		Directory:     dir,
		Gate:          g.dependent,
	})
	if err != nil {
		return nil, err
	}

	stopWatching := reporting.WatchDependent(d, reporter)
	defer stopWatching()

	controllers := BuildControllers(cfg.LifectlConfig.Controllers, d.Service, cfg.OnCallResult)
	if err := d.RegisterControllers(controllers...); err != nil {
		return nil, err
	}

	elapsed, err := d.Start(ctx)
	reporting.ReportStart(reporter, reporting.SideDependent, elapsed, d.InitErrors(), err)
	if err != nil {
		return d, fmt.Errorf("failed to start dependent: %w", err)
	}
	return d, nil
}

// waitForAuthority bounds the wait for the authority flag by the configured
// discovery timeout.
func waitForAuthority(ctx context.Context, tc config.TransportConfig, gate readiness.Gate) error {
	waitCtx := ctx
	if tc.DiscoveryTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, tc.DiscoveryTimeout)
		defer cancel()
	}

	logging.Info("CLI", "Waiting for the authority (%s)", gate.Name())
	if err := gate.Wait(waitCtx); err != nil {
		return fmt.Errorf("authority did not become ready: %w", err)
	}
	return nil
}

// dialDirectory connects the dependent to the published services. The
// in-process mode needs the registry of the same process.
func dialDirectory(ctx context.Context, tc config.TransportConfig, reg *transport.Registry) (*transport.RemoteDirectory, error) {
	switch tc.Mode {
	case config.TransportModeInProcess:
		if reg == nil {
			return nil, fmt.Errorf("the inprocess transport needs the authority in the same process")
		}
		return transport.DialInProcess(ctx, reg.MCPServer())
	case config.TransportModeSSE:
		return transport.DialSSE(ctx, transport.ServerConfig{Host: tc.Host, Port: tc.Port}.SSEURL())
	}
	return nil, fmt.Errorf("unknown transport mode %q", tc.Mode)
}

func serve(ctx context.Context, tc config.TransportConfig, reg *transport.Registry) (*transport.Server, error) {
	srv := transport.NewServer(reg, transport.ServerConfig{Host: tc.Host, Port: tc.Port})
	if err := srv.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start transport server: %w", err)
	}
	return srv, nil
}

func stopServer(srv *transport.Server) {
	if err := srv.Stop(context.Background()); err != nil {
		logging.Warn("CLI", "Failed to stop transport server: %v", err)
	}
}

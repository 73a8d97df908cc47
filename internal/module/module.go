// Package module defines the named units the orchestrators bring up:
// services on the authority side and controllers on the dependent side.
package module

import (
	"context"

	"lifectl/internal/transport"
)

// Hook is an optional lifecycle procedure of a module.
type Hook func(ctx context.Context) error

// Module is the view of a module the lifecycle protocol needs.
type Module interface {
	ModuleName() string
	InitHook() Hook
	StartHook() Hook
}

// Service is an authority-side module. Its Remote members are published
// for the dependent side once Init has completed.
type Service struct {
	Name  string
	Init  Hook
	Start Hook

	// Remote is the surface exposed across the boundary, keyed by member name.
	Remote map[string]transport.Member
	// Middleware wraps every call into Remote. Optional.
	Middleware *transport.Middleware
}

func (s *Service) ModuleName() string { return s.Name }
func (s *Service) InitHook() Hook     { return s.Init }
func (s *Service) StartHook() Hook    { return s.Start }

// HasRemote reports whether the service exposes anything remotely.
func (s *Service) HasRemote() bool {
	return len(s.Remote) > 0
}

// Controller is a dependent-side module.
type Controller struct {
	Name  string
	Init  Hook
	Start Hook
}

func (c *Controller) ModuleName() string { return c.Name }
func (c *Controller) InitHook() Hook     { return c.Init }
func (c *Controller) StartHook() Hook    { return c.Start }

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// LifectlConfig is the top-level configuration structure for lifectl.
type LifectlConfig struct {
	GlobalSettings GlobalSettings         `yaml:"globalSettings"`
	Readiness      ReadinessConfig        `yaml:"readiness"`
	Transport      TransportConfig        `yaml:"transport"`
	Services       []ServiceDefinition    `yaml:"services,omitempty"`
	Controllers    []ControllerDefinition `yaml:"controllers,omitempty"`
}

// GlobalSettings holds settings shared by every command.
type GlobalSettings struct {
	LogLevel string `yaml:"logLevel,omitempty"` // debug, info, warn or error
}

// ReadinessBackend selects where readiness flags are persisted.
type ReadinessBackend string

const (
	ReadinessBackendMemory    ReadinessBackend = "memory"
	ReadinessBackendFile      ReadinessBackend = "file"
	ReadinessBackendConfigMap ReadinessBackend = "configmap"
)

// ReadinessConfig configures the readiness flags of both sides.
type ReadinessConfig struct {
	Backend ReadinessBackend `yaml:"backend,omitempty"`
	// Dir holds the marker files of the file backend.
	Dir string `yaml:"dir,omitempty"`
	// Namespace, Kubeconfig and Context configure the configmap backend.
	// An empty Kubeconfig falls back to the in-cluster config, then the
	// default loading rules.
	Namespace  string `yaml:"namespace,omitempty"`
	Kubeconfig string `yaml:"kubeconfig,omitempty"`
	Context    string `yaml:"context,omitempty"`
}

// TransportMode selects how the dependent reaches published services.
type TransportMode string

const (
	TransportModeInProcess TransportMode = "inprocess"
	TransportModeSSE       TransportMode = "sse"
)

// TransportConfig configures the MCP bridge between the sides.
type TransportConfig struct {
	Mode TransportMode `yaml:"mode,omitempty"`
	Host string        `yaml:"host,omitempty"` // Host to bind to or dial (default: localhost)
	Port int           `yaml:"port,omitempty"` // Port of the SSE endpoint (default: 8090)
	// DiscoveryTimeout bounds how long the dependent waits for the authority.
	DiscoveryTimeout time.Duration `yaml:"discoveryTimeout,omitempty"`
}

// MemberKind names one of the built-in remote member implementations.
type MemberKind string

const (
	MemberKindEcho  MemberKind = "echo"  // returns its arguments
	MemberKindPing  MemberKind = "ping"  // returns "pong"
	MemberKindTime  MemberKind = "time"  // returns the current time, RFC 3339
	MemberKindUpper MemberKind = "upper" // upper-cases the "text" argument
)

// MemberDefinition is one remotely callable member of a service.
type MemberDefinition struct {
	Name string     `yaml:"name"`
	Kind MemberKind `yaml:"kind"`
}

// ServiceDefinition declares an authority-side service.
type ServiceDefinition struct {
	Name    string             `yaml:"name"`
	Members []MemberDefinition `yaml:"members,omitempty"`
	// InitDelay simulates slow initialization.
	InitDelay time.Duration `yaml:"initDelay,omitempty"`
	// FailInit makes Init fail with this message.
	FailInit string `yaml:"failInit,omitempty"`
	// ReadOnly rejects calls carrying a "write" argument.
	ReadOnly bool `yaml:"readOnly,omitempty"`
}

// CallDefinition is a remote call a controller makes when it starts.
type CallDefinition struct {
	Service string         `yaml:"service"`
	Member  string         `yaml:"member"`
	Args    map[string]any `yaml:"args,omitempty"`
}

// ControllerDefinition declares a dependent-side controller.
type ControllerDefinition struct {
	Name      string           `yaml:"name"`
	Calls     []CallDefinition `yaml:"calls,omitempty"`
	InitDelay time.Duration    `yaml:"initDelay,omitempty"`
}

// Validate reports every problem in the configuration at once.
func (c LifectlConfig) Validate() error {
	var errs []error

	switch c.Readiness.Backend {
	case ReadinessBackendMemory, ReadinessBackendFile, ReadinessBackendConfigMap:
	default:
		errs = append(errs, fmt.Errorf("readiness.backend: unknown backend %q", c.Readiness.Backend))
	}
	if c.Readiness.Backend == ReadinessBackendFile && c.Readiness.Dir == "" {
		errs = append(errs, errors.New("readiness.dir: required for the file backend"))
	}
	if c.Readiness.Backend == ReadinessBackendConfigMap && c.Readiness.Namespace == "" {
		errs = append(errs, errors.New("readiness.namespace: required for the configmap backend"))
	}

	switch c.Transport.Mode {
	case TransportModeInProcess, TransportModeSSE:
	default:
		errs = append(errs, fmt.Errorf("transport.mode: unknown mode %q", c.Transport.Mode))
	}
	if c.Transport.Port < 0 || c.Transport.Port > 65535 {
		errs = append(errs, fmt.Errorf("transport.port: %d out of range", c.Transport.Port))
	}

	seen := make(map[string]bool)
	for i, svc := range c.Services {
		if svc.Name == "" {
			errs = append(errs, fmt.Errorf("services[%d]: name is required", i))
			continue
		}
		if seen[svc.Name] {
			errs = append(errs, fmt.Errorf("services[%d]: duplicate name %q", i, svc.Name))
		}
		seen[svc.Name] = true
		for j, m := range svc.Members {
			if m.Name == "" || strings.Contains(m.Name, ".") {
				errs = append(errs, fmt.Errorf("services[%d].members[%d]: invalid name %q", i, j, m.Name))
			}
			switch m.Kind {
			case MemberKindEcho, MemberKindPing, MemberKindTime, MemberKindUpper:
			default:
				errs = append(errs, fmt.Errorf("services[%d].members[%d]: unknown kind %q", i, j, m.Kind))
			}
		}
	}

	seen = make(map[string]bool)
	for i, ctrl := range c.Controllers {
		if ctrl.Name == "" {
			errs = append(errs, fmt.Errorf("controllers[%d]: name is required", i))
			continue
		}
		if seen[ctrl.Name] {
			errs = append(errs, fmt.Errorf("controllers[%d]: duplicate name %q", i, ctrl.Name))
		}
		seen[ctrl.Name] = true
		for j, call := range ctrl.Calls {
			if call.Service == "" || call.Member == "" {
				errs = append(errs, fmt.Errorf("controllers[%d].calls[%d]: service and member are required", i, j))
			}
		}
	}

	return errors.Join(errs...)
}

package config

import "time"

const (
	DefaultHost             = "localhost"
	DefaultPort             = 8090
	DefaultNamespace        = "default"
	DefaultDiscoveryTimeout = 2 * time.Minute
	DefaultReadinessDir     = ".lifectl/state"
)

// GetDefaultConfig returns the configuration lifectl runs with when no
// file overrides it: in-memory readiness, in-process transport and a small
// set of demo modules.
func GetDefaultConfig() LifectlConfig {
	return LifectlConfig{
		GlobalSettings: GlobalSettings{
			LogLevel: "info",
		},
		Readiness: ReadinessConfig{
			Backend:   ReadinessBackendMemory,
			Dir:       DefaultReadinessDir,
			Namespace: DefaultNamespace,
		},
		Transport: TransportConfig{
			Mode:             TransportModeInProcess,
			Host:             DefaultHost,
			Port:             DefaultPort,
			DiscoveryTimeout: DefaultDiscoveryTimeout,
		},
		Services: []ServiceDefinition{
			{
				Name: "Clock",
				Members: []MemberDefinition{
					{Name: "now", Kind: MemberKindTime},
					{Name: "ping", Kind: MemberKindPing},
				},
			},
			{
				Name: "Echo",
				Members: []MemberDefinition{
					{Name: "echo", Kind: MemberKindEcho},
					{Name: "shout", Kind: MemberKindUpper},
				},
			},
		},
		Controllers: []ControllerDefinition{
			{
				Name:  "Heartbeat",
				Calls: []CallDefinition{{Service: "Clock", Member: "ping"}},
			},
			{
				Name: "Greeter",
				Calls: []CallDefinition{
					{Service: "Echo", Member: "shout", Args: map[string]any{"text": "hello"}},
				},
			},
		},
	}
}

// Package config provides configuration management for lifectl.
//
// Configuration is loaded from multiple YAML sources and merged in order,
// with later sources overriding earlier ones.
//
// # Configuration Layers
//
//  1. Default Configuration (embedded in binary)
//     - In-memory readiness, in-process transport and demo modules
//
//  2. User Configuration (~/.config/lifectl/config.yaml)
//     - User-specific settings that apply to all projects
//
//  3. Project Configuration (./.lifectl/config.yaml)
//     - Project-specific settings in the current directory
//
// LoadConfigFromPath skips layers 2 and 3 and applies a single explicit file
// over the defaults.
//
// # Configuration Structure
//
//	globalSettings:
//	  logLevel: debug
//
//	readiness:
//	  backend: file          # memory, file or configmap
//	  dir: /tmp/lifectl
//	  namespace: lifectl     # configmap backend
//	  kubeconfig: ~/.kube/config
//
//	transport:
//	  mode: sse              # inprocess or sse
//	  host: localhost
//	  port: 8090
//	  discoveryTimeout: 30s
//
//	services:
//	  - name: Clock
//	    initDelay: 200ms
//	    members:
//	      - name: now
//	        kind: time       # echo, ping, time or upper
//
//	controllers:
//	  - name: Heartbeat
//	    calls:
//	      - service: Clock
//	        member: now
//
// # Merging Behavior
//
// Scalar settings in a later layer override earlier ones when they are set.
// Services and controllers are merged by name: an entry with an existing
// name replaces it, any other entry is appended.
//
// # Validation
//
// The merged configuration is validated once every layer is applied. All
// problems are reported together.
package config

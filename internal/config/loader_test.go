package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create a temporary config file
func createTempConfigFile(t *testing.T, dir string, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, configFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// mockConfigPaths points both optional layers into dir for the duration of the test.
func mockConfigPaths(t *testing.T, dir string) {
	t.Helper()
	originalHome := osUserHomeDir
	originalGetwd := osGetwd
	t.Cleanup(func() {
		osUserHomeDir = originalHome
		osGetwd = originalGetwd
	})

	osUserHomeDir = func() (string, error) { return filepath.Join(dir, "home"), nil }
	osGetwd = func() (string, error) { return filepath.Join(dir, "project"), nil }
}

func TestLoadConfig_DefaultOnly(t *testing.T) {
	mockConfigPaths(t, t.TempDir())

	loaded, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), loaded)
}

func TestLoadConfig_UserOverride(t *testing.T) {
	tempDir := t.TempDir()
	mockConfigPaths(t, tempDir)

	createTempConfigFile(t, filepath.Join(tempDir, "home", userConfigDir), `
globalSettings:
  logLevel: debug
readiness:
  backend: file
  dir: /tmp/lifectl-test
transport:
  port: 9999
  discoveryTimeout: 15s
services:
  - name: Clock
    initDelay: 100ms
    members:
      - name: now
        kind: time
  - name: Ledger
    members:
      - name: echo
        kind: echo
`)

	loaded, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "debug", loaded.GlobalSettings.LogLevel)
	assert.Equal(t, ReadinessBackendFile, loaded.Readiness.Backend)
	assert.Equal(t, "/tmp/lifectl-test", loaded.Readiness.Dir)
	assert.Equal(t, 9999, loaded.Transport.Port)
	assert.Equal(t, DefaultHost, loaded.Transport.Host, "unset scalars keep their default")
	assert.Equal(t, 15*time.Second, loaded.Transport.DiscoveryTimeout)

	require.Len(t, loaded.Services, 3)
	assert.Equal(t, "Clock", loaded.Services[0].Name)
	assert.Equal(t, 100*time.Millisecond, loaded.Services[0].InitDelay)
	assert.Len(t, loaded.Services[0].Members, 1, "same-named service is replaced")
	assert.Equal(t, "Echo", loaded.Services[1].Name)
	assert.Equal(t, "Ledger", loaded.Services[2].Name)
}

func TestLoadConfig_ProjectOverridesUser(t *testing.T) {
	tempDir := t.TempDir()
	mockConfigPaths(t, tempDir)

	createTempConfigFile(t, filepath.Join(tempDir, "home", userConfigDir), `
transport:
  mode: sse
  port: 7000
`)
	createTempConfigFile(t, filepath.Join(tempDir, "project", projectConfigDir), `
transport:
  port: 7001
controllers:
  - name: Heartbeat
    calls:
      - service: Echo
        member: echo
        args:
          n: 1
`)

	loaded, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, TransportModeSSE, loaded.Transport.Mode)
	assert.Equal(t, 7001, loaded.Transport.Port)

	require.Len(t, loaded.Controllers, 2)
	assert.Equal(t, "Heartbeat", loaded.Controllers[0].Name)
	assert.Equal(t, "Echo", loaded.Controllers[0].Calls[0].Service)
	assert.Equal(t, map[string]any{"n": 1}, loaded.Controllers[0].Calls[0].Args)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	tempDir := t.TempDir()
	mockConfigPaths(t, tempDir)

	createTempConfigFile(t, filepath.Join(tempDir, "project", projectConfigDir), "services: [unterminated")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project config")
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	tempDir := t.TempDir()
	mockConfigPaths(t, tempDir)

	createTempConfigFile(t, filepath.Join(tempDir, "project", projectConfigDir), "")

	loaded, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), loaded)
}

func TestLoadConfigFromPath(t *testing.T) {
	path := createTempConfigFile(t, t.TempDir(), `
readiness:
  backend: configmap
  namespace: lifectl-system
`)

	loaded, err := LoadConfigFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, ReadinessBackendConfigMap, loaded.Readiness.Backend)
	assert.Equal(t, "lifectl-system", loaded.Readiness.Namespace)
	assert.Len(t, loaded.Services, 2)

	_, err = LoadConfigFromPath(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *LifectlConfig)
		wantErr []string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *LifectlConfig) {},
		},
		{
			name:    "unknown backend",
			mutate:  func(c *LifectlConfig) { c.Readiness.Backend = "etcd" },
			wantErr: []string{"readiness.backend"},
		},
		{
			name: "file backend without dir",
			mutate: func(c *LifectlConfig) {
				c.Readiness.Backend = ReadinessBackendFile
				c.Readiness.Dir = ""
			},
			wantErr: []string{"readiness.dir"},
		},
		{
			name:    "unknown transport",
			mutate:  func(c *LifectlConfig) { c.Transport.Mode = "grpc" },
			wantErr: []string{"transport.mode"},
		},
		{
			name: "bad members and duplicates reported together",
			mutate: func(c *LifectlConfig) {
				c.Services = append(c.Services,
					ServiceDefinition{Name: "Clock"},
					ServiceDefinition{Name: "Bad", Members: []MemberDefinition{{Name: "a.b", Kind: "teleport"}}},
				)
			},
			wantErr: []string{"duplicate name \"Clock\"", "invalid name \"a.b\"", "unknown kind \"teleport\""},
		},
		{
			name: "call without member",
			mutate: func(c *LifectlConfig) {
				c.Controllers = append(c.Controllers, ControllerDefinition{
					Name:  "Broken",
					Calls: []CallDefinition{{Service: "Clock"}},
				})
			},
			wantErr: []string{"service and member are required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestGetUserConfigDir(t *testing.T) {
	tempDir := t.TempDir()
	mockConfigPaths(t, tempDir)

	dir, err := GetUserConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tempDir, "home", userConfigDir), dir)
}

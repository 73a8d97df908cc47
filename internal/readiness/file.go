package readiness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"lifectl/pkg/logging"

	"github.com/fsnotify/fsnotify"
)

const markerSuffix = ".ready"

// marker is the on-disk record of a FileFlag.
type marker struct {
	Name    string    `json:"name"`
	Started bool      `json:"started"`
	SetAt   time.Time `json:"setAt,omitempty"`
	PID     int       `json:"pid"`
}

// FileFlag is a Gate persisted as a JSON marker file in dir.
type FileFlag struct {
	name string
	dir  string
	path string

	once   sync.Once
	setErr error
}

// NewFileFlag creates a gate stored at dir/<name>.ready.
func NewFileFlag(dir, name string) *FileFlag {
	return &FileFlag{
		name: name,
		dir:  dir,
		path: filepath.Join(dir, name+markerSuffix),
	}
}

func (f *FileFlag) Name() string {
	return f.name
}

// Path returns the marker file location.
func (f *FileFlag) Path() string {
	return f.path
}

func (f *FileFlag) IsSet(ctx context.Context) (bool, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", f.path, err)
	}

	var m marker
	if err := json.Unmarshal(data, &m); err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", f.path, err)
	}
	return m.Started, nil
}

// Claim overwrites any marker left by a previous run with an unset one.
func (f *FileFlag) Claim(ctx context.Context) error {
	return f.write(marker{Name: f.name, Started: false, PID: os.Getpid()})
}

func (f *FileFlag) Set(ctx context.Context) error {
	f.once.Do(func() {
		f.setErr = f.write(marker{Name: f.name, Started: true, SetAt: time.Now().UTC(), PID: os.Getpid()})
		if f.setErr == nil {
			logging.Debug("Readiness", "Flag %s set at %s", f.name, f.path)
		}
	})
	return f.setErr
}

// write replaces the marker atomically so readers never see a partial file.
func (f *FileFlag) write(m marker) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", f.dir, err)
	}

	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, "."+f.name+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp marker: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp marker: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

func (f *FileFlag) Wait(ctx context.Context) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", f.dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// The directory is watched, not the file: the file may not exist yet and
	// is replaced by rename on every write.
	if err := watcher.Add(f.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", f.dir, err)
	}

	if set, err := f.IsSet(ctx); err != nil || set {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher for %s closed", f.dir)
			}
			if filepath.Clean(event.Name) != filepath.Clean(f.path) {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			set, err := f.IsSet(ctx)
			if err != nil {
				logging.Warn("Readiness", "Ignoring unreadable marker %s: %v", f.path, err)
				continue
			}
			if set {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher for %s closed", f.dir)
			}
			return fmt.Errorf("watching %s: %w", f.dir, err)
		}
	}
}

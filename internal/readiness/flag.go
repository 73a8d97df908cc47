package readiness

import (
	"context"
	"sync"
	"sync/atomic"

	"lifectl/pkg/logging"
)

// Flag is the in-memory Gate.
type Flag struct {
	name    string
	set     atomic.Bool
	once    sync.Once
	changed chan struct{}
}

// NewFlag creates an unset flag.
func NewFlag(name string) *Flag {
	return &Flag{
		name:    name,
		changed: make(chan struct{}),
	}
}

func (f *Flag) Name() string {
	return f.name
}

// Started is the synchronous form of IsSet.
func (f *Flag) Started() bool {
	return f.set.Load()
}

func (f *Flag) IsSet(ctx context.Context) (bool, error) {
	return f.set.Load(), nil
}

func (f *Flag) Set(ctx context.Context) error {
	f.once.Do(func() {
		f.set.Store(true)
		close(f.changed)
		logging.Debug("Readiness", "Flag %s set", f.name)
	})
	return nil
}

// Changed is closed when the flag transitions to true.
func (f *Flag) Changed() <-chan struct{} {
	return f.changed
}

func (f *Flag) Wait(ctx context.Context) error {
	select {
	case <-f.changed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

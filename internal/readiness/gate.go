// Package readiness implements the one-shot "all modules on this side are
// initialized" flag both sides of the boundary coordinate on.
//
// A Gate starts unset, is set exactly once and never resets. Wait always
// subscribes to change notification before checking the current value, so
// a transition between the check and the subscription cannot be missed.
//
// Three backends exist:
//
//   - Flag keeps the value in memory, for both sides living in one process.
//   - FileFlag persists it as a marker file and watches it with fsnotify,
//     for processes sharing a host.
//   - ConfigMapFlag persists it in a Kubernetes ConfigMap and watches it
//     through the API server, for processes on different hosts.
package readiness

import "context"

// Well-known attribute names of the two readiness flags.
const (
	AuthorityStarted = "lifectl.authority.started"
	DependentStarted = "lifectl.dependent.started"
)

// Gate is a persisted boolean with a one-shot change notification.
type Gate interface {
	// Name returns the attribute name of the flag.
	Name() string

	// IsSet reports the current value.
	IsSet(ctx context.Context) (bool, error)

	// Set flips the flag to true. Only the first call has an effect.
	Set(ctx context.Context) error

	// Wait blocks until the flag is true or ctx is done.
	Wait(ctx context.Context) error
}

// Claimer is implemented by persisted gates. The owning side claims the
// flag when it loads, writing false over whatever an earlier run left.
type Claimer interface {
	Claim(ctx context.Context) error
}

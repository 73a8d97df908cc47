package transport

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// NamespaceService is the well-known namespace authority services publish
// their remote surface under.
const NamespaceService = "service"

var (
	// ErrUnknownMember is returned when calling a member an endpoint does not expose.
	ErrUnknownMember = errors.New("unknown member")
	// ErrRejected is returned when an inbound guard refuses a call.
	ErrRejected = errors.New("call rejected by inbound middleware")
	// ErrReadOnly is returned by directories that can only discover.
	ErrReadOnly = errors.New("directory is read-only")
	// ErrRemote wraps errors reported by the far side of a remote call.
	ErrRemote = errors.New("remote call failed")
)

// Member is a single exported operation of a remote surface.
type Member func(ctx context.Context, args map[string]any) (any, error)

// Endpoint is a named, callable remote surface.
type Endpoint interface {
	Name() string
	Members() []string
	Call(ctx context.Context, member string, args map[string]any) (any, error)
}

// Builder assembles a LocalEndpoint. Members are appended before Build;
// the builder cannot be reused afterwards.
type Builder struct {
	name       string
	middleware Middleware
	members    map[string]Member
	built      bool
}

// NewBuilder starts an endpoint bound to name. mw may be nil.
func NewBuilder(name string, mw *Middleware) *Builder {
	b := &Builder{
		name:    name,
		members: make(map[string]Member),
	}
	if mw != nil {
		b.middleware = mw.clone()
	}
	return b
}

// Add registers an exported member on the endpoint under construction.
func (b *Builder) Add(member string, fn Member) error {
	switch {
	case b.built:
		return fmt.Errorf("endpoint %s already built", b.name)
	case member == "":
		return fmt.Errorf("endpoint %s: member name is empty", b.name)
	case strings.Contains(member, "."):
		return fmt.Errorf("endpoint %s: member name %q must not contain '.'", b.name, member)
	case fn == nil:
		return fmt.Errorf("endpoint %s: member %s has no implementation", b.name, member)
	}
	if _, exists := b.members[member]; exists {
		return fmt.Errorf("endpoint %s: member %s already added", b.name, member)
	}
	b.members[member] = fn
	return nil
}

// Build freezes the builder into an endpoint.
func (b *Builder) Build() *LocalEndpoint {
	b.built = true
	return &LocalEndpoint{
		name:       b.name,
		middleware: b.middleware,
		members:    b.members,
	}
}

// LocalEndpoint is an endpoint whose members run in this process.
type LocalEndpoint struct {
	name       string
	middleware Middleware
	members    map[string]Member
}

// Name returns the endpoint's name.
func (e *LocalEndpoint) Name() string {
	return e.name
}

// Members returns the exported member names, sorted.
func (e *LocalEndpoint) Members() []string {
	names := make([]string, 0, len(e.members))
	for name := range e.members {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call runs member through the inbound guards, the member itself and the
// outbound transforms, in that order.
func (e *LocalEndpoint) Call(ctx context.Context, member string, args map[string]any) (any, error) {
	fn, ok := e.members[member]
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", e.name, member, ErrUnknownMember)
	}

	args, err := e.middleware.inbound(ctx, member, args)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w: %v", e.name, member, ErrRejected, err)
	}

	result, err := fn(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", e.name, member, err)
	}

	return e.middleware.outbound(ctx, member, result)
}

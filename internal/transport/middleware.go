package transport

import (
	"context"
	"fmt"
)

// InboundGuard inspects a call before it reaches the member. It may return
// replacement arguments; a non-nil error rejects the call.
type InboundGuard func(ctx context.Context, member string, args map[string]any) (map[string]any, error)

// OutboundTransform rewrites a member's result before it is returned.
type OutboundTransform func(ctx context.Context, member string, result any) (any, error)

// Middleware is the ordered guard/transform chain of an endpoint.
type Middleware struct {
	Inbound  []InboundGuard
	Outbound []OutboundTransform
}

func (m Middleware) clone() Middleware {
	return Middleware{
		Inbound:  append([]InboundGuard(nil), m.Inbound...),
		Outbound: append([]OutboundTransform(nil), m.Outbound...),
	}
}

func (m Middleware) inbound(ctx context.Context, member string, args map[string]any) (map[string]any, error) {
	if args == nil {
		args = map[string]any{}
	}
	for i, guard := range m.Inbound {
		next, err := guard(ctx, member, args)
		if err != nil {
			return nil, fmt.Errorf("guard %d: %w", i, err)
		}
		if next != nil {
			args = next
		}
	}
	return args, nil
}

func (m Middleware) outbound(ctx context.Context, member string, result any) (any, error) {
	for i, transform := range m.Outbound {
		next, err := transform(ctx, member, result)
		if err != nil {
			return nil, fmt.Errorf("transform %d on %s: %w", i, member, err)
		}
		result = next
	}
	return result, nil
}

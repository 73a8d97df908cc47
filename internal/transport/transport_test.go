package transport

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ping(ctx context.Context, args map[string]any) (any, error) {
	return "pong", nil
}

func echo(ctx context.Context, args map[string]any) (any, error) {
	return args, nil
}

func TestBuilder_Add(t *testing.T) {
	b := NewBuilder("Clock", nil)

	require.NoError(t, b.Add("ping", ping))
	assert.Error(t, b.Add("ping", ping), "duplicate member")
	assert.Error(t, b.Add("", ping), "empty member")
	assert.Error(t, b.Add("a.b", ping), "dotted member")
	assert.Error(t, b.Add("nil", nil), "nil implementation")

	ep := b.Build()
	assert.Error(t, b.Add("late", ping), "add after build")
	assert.Equal(t, "Clock", ep.Name())
	assert.Equal(t, []string{"ping"}, ep.Members())
}

func TestLocalEndpoint_Call(t *testing.T) {
	b := NewBuilder("Echo", nil)
	require.NoError(t, b.Add("echo", echo))
	ep := b.Build()

	result, err := ep.Call(context.Background(), "echo", map[string]any{"msg": "hi"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"msg": "hi"}, result)

	_, err = ep.Call(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, ErrUnknownMember)
}

func TestLocalEndpoint_MiddlewareOrder(t *testing.T) {
	var trail []string
	mw := &Middleware{
		Inbound: []InboundGuard{
			func(ctx context.Context, member string, args map[string]any) (map[string]any, error) {
				trail = append(trail, "in1")
				return map[string]any{"n": 1}, nil
			},
			func(ctx context.Context, member string, args map[string]any) (map[string]any, error) {
				trail = append(trail, "in2")
				assert.Equal(t, 1, args["n"])
				return nil, nil
			},
		},
		Outbound: []OutboundTransform{
			func(ctx context.Context, member string, result any) (any, error) {
				trail = append(trail, "out1")
				return strings.ToUpper(result.(string)), nil
			},
			func(ctx context.Context, member string, result any) (any, error) {
				trail = append(trail, "out2")
				return result.(string) + "!", nil
			},
		},
	}

	b := NewBuilder("Svc", mw)
	require.NoError(t, b.Add("ping", func(ctx context.Context, args map[string]any) (any, error) {
		trail = append(trail, "member")
		return "pong", nil
	}))

	result, err := b.Build().Call(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.Equal(t, "PONG!", result)
	assert.Equal(t, []string{"in1", "in2", "member", "out1", "out2"}, trail)
}

func TestLocalEndpoint_GuardRejects(t *testing.T) {
	called := false
	mw := &Middleware{
		Inbound: []InboundGuard{
			func(ctx context.Context, member string, args map[string]any) (map[string]any, error) {
				return nil, errors.New("denied")
			},
		},
	}
	b := NewBuilder("Svc", mw)
	require.NoError(t, b.Add("ping", func(ctx context.Context, args map[string]any) (any, error) {
		called = true
		return nil, nil
	}))

	_, err := b.Build().Call(context.Background(), "ping", nil)
	assert.ErrorIs(t, err, ErrRejected)
	assert.False(t, called)
}

func TestRegistry_PublishAndDiscover(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()

	b := NewBuilder("Clock", nil)
	require.NoError(t, b.Add("ping", ping))
	ep := b.Build()

	require.NoError(t, reg.Publish(ctx, NamespaceService, "Clock", ep))
	assert.Error(t, reg.Publish(ctx, NamespaceService, "Clock", ep), "duplicate publish")
	assert.Error(t, reg.Publish(ctx, NamespaceService, "Nil", nil))

	all, err := reg.DiscoverAll(ctx, NamespaceService)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Same(t, ep, all["Clock"])

	other, err := reg.DiscoverAll(ctx, "controller")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSplitToolName(t *testing.T) {
	tests := []struct {
		tool   string
		name   string
		member string
		ok     bool
	}{
		{tool: "service.Clock.ping", name: "Clock", member: "ping", ok: true},
		{tool: "service.game.Clock.ping", name: "game.Clock", member: "ping", ok: true},
		{tool: "other.Clock.ping", ok: false},
		{tool: "service.Clock", ok: false},
		{tool: "service.Clock.", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			name, member, ok := splitToolName(NamespaceService, tt.tool)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.name, name)
				assert.Equal(t, tt.member, member)
			}
		})
	}
}

func TestRemoteDirectory_InProcess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := NewRegistry()

	b := NewBuilder("Clock", nil)
	require.NoError(t, b.Add("ping", ping))
	require.NoError(t, b.Add("fail", func(ctx context.Context, args map[string]any) (any, error) {
		return nil, errors.New("boom")
	}))
	require.NoError(t, reg.Publish(ctx, NamespaceService, "Clock", b.Build()))

	eb := NewBuilder("Echo", nil)
	require.NoError(t, eb.Add("echo", echo))
	require.NoError(t, reg.Publish(ctx, NamespaceService, "Echo", eb.Build()))

	dir, err := DialInProcess(ctx, reg.MCPServer())
	require.NoError(t, err)
	defer dir.Close()

	assert.ErrorIs(t, dir.Publish(ctx, NamespaceService, "x", nil), ErrReadOnly)

	all, err := dir.DiscoverAll(ctx, NamespaceService)
	require.NoError(t, err)
	require.Len(t, all, 2)

	clock := all["Clock"]
	require.NotNil(t, clock)
	assert.Equal(t, []string{"fail", "ping"}, clock.Members())

	result, err := clock.Call(ctx, "ping", nil)
	require.NoError(t, err)
	assert.Equal(t, "pong", result)

	_, err = clock.Call(ctx, "fail", nil)
	assert.ErrorIs(t, err, ErrRemote)
	assert.Contains(t, err.Error(), "boom")

	_, err = clock.Call(ctx, "nope", nil)
	assert.ErrorIs(t, err, ErrUnknownMember)

	result, err = all["Echo"].Call(ctx, "echo", map[string]any{"n": 2})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": float64(2)}, result)
}

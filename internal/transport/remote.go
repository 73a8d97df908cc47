package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"lifectl/pkg/logging"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const clientName = "lifectl-dependent"

// RemoteDirectory discovers endpoints published by a Registry on the other
// side of an MCP connection. It cannot publish.
type RemoteDirectory struct {
	client *client.Client
}

// DialSSE connects to a registry served with Serve. ctx bounds the lifetime
// of the SSE stream, not just the handshake.
func DialSSE(ctx context.Context, url string) (*RemoteDirectory, error) {
	c, err := client.NewSSEMCPClient(url)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSE client: %w", err)
	}
	return connect(ctx, c)
}

// DialInProcess connects to an MCP server living in the same process.
func DialInProcess(ctx context.Context, srv *server.MCPServer) (*RemoteDirectory, error) {
	c, err := client.NewInProcessClient(srv)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-process client: %w", err)
	}
	return connect(ctx, c)
}

func connect(ctx context.Context, c *client.Client) (*RemoteDirectory, error) {
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start client: %w", err)
	}

	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{
		Name:    clientName,
		Version: serverVersion,
	}
	if _, err := c.Initialize(ctx, req); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("initialization failed: %w", err)
	}

	return &RemoteDirectory{client: c}, nil
}

// Publish always fails; remote surfaces are published by the authority.
func (d *RemoteDirectory) Publish(ctx context.Context, namespace, name string, ep Endpoint) error {
	return ErrReadOnly
}

// DiscoverAll lists the remote tools and groups them back into endpoints.
func (d *RemoteDirectory) DiscoverAll(ctx context.Context, namespace string) (map[string]Endpoint, error) {
	result, err := d.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list remote tools: %w", err)
	}

	members := make(map[string][]string)
	for _, tool := range result.Tools {
		name, member, ok := splitToolName(namespace, tool.Name)
		if !ok {
			continue
		}
		members[name] = append(members[name], member)
	}

	out := make(map[string]Endpoint, len(members))
	for name, list := range members {
		sort.Strings(list)
		out[name] = &remoteEndpoint{
			namespace: namespace,
			name:      name,
			members:   list,
			client:    d.client,
		}
	}

	logging.Debug("Transport", "Discovered %d remote endpoints under %s", len(out), namespace)
	return out, nil
}

// Close shuts the underlying client down.
func (d *RemoteDirectory) Close() error {
	return d.client.Close()
}

type remoteEndpoint struct {
	namespace string
	name      string
	members   []string
	client    *client.Client
}

func (e *remoteEndpoint) Name() string {
	return e.name
}

func (e *remoteEndpoint) Members() []string {
	return append([]string(nil), e.members...)
}

// Call invokes the member's tool. Results travel as JSON, so numbers come
// back as float64 and structs as map[string]any.
func (e *remoteEndpoint) Call(ctx context.Context, member string, args map[string]any) (any, error) {
	idx := sort.SearchStrings(e.members, member)
	if idx == len(e.members) || e.members[idx] != member {
		return nil, fmt.Errorf("%s.%s: %w", e.name, member, ErrUnknownMember)
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = ToolName(e.namespace, e.name, member)
	req.Params.Arguments = args

	result, err := e.client.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", e.name, member, err)
	}
	if result == nil {
		return nil, fmt.Errorf("%s.%s: empty result", e.name, member)
	}

	text := resultText(result)
	if result.IsError {
		return nil, fmt.Errorf("%w: %s", ErrRemote, text)
	}
	if text == "" {
		return nil, nil
	}

	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return nil, errors.Join(fmt.Errorf("%s.%s: undecodable result", e.name, member), err)
	}
	return decoded, nil
}

func resultText(result *mcp.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		if textContent, ok := mcp.AsTextContent(content); ok {
			parts = append(parts, textContent.Text)
		}
	}
	return strings.Join(parts, "\n")
}

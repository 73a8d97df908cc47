package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"lifectl/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName    = "lifectl-transport"
	serverVersion = "1.0.0"
)

// Directory publishes endpoints by name under a namespace and enumerates
// them again.
type Directory interface {
	Publish(ctx context.Context, namespace, name string, ep Endpoint) error
	DiscoverAll(ctx context.Context, namespace string) (map[string]Endpoint, error)
}

// Registry is the in-process Directory. Every published member is also
// mirrored as a tool on an MCP server so the namespace can be reached from
// another process through Serve or DialInProcess.
type Registry struct {
	namespaces map[string]map[string]Endpoint
	server     *server.MCPServer
	mu         sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		namespaces: make(map[string]map[string]Endpoint),
		server: server.NewMCPServer(
			serverName,
			serverVersion,
			server.WithToolCapabilities(true),
		),
	}
}

// Publish makes ep discoverable as name under namespace.
func (r *Registry) Publish(ctx context.Context, namespace, name string, ep Endpoint) error {
	if ep == nil {
		return fmt.Errorf("publish %s/%s: nil endpoint", namespace, name)
	}

	r.mu.Lock()
	entries, ok := r.namespaces[namespace]
	if !ok {
		entries = make(map[string]Endpoint)
		r.namespaces[namespace] = entries
	}
	if _, exists := entries[name]; exists {
		r.mu.Unlock()
		return fmt.Errorf("endpoint %s already published under %s", name, namespace)
	}
	entries[name] = ep
	r.mu.Unlock()

	tools := make([]server.ServerTool, 0, len(ep.Members()))
	for _, member := range ep.Members() {
		tools = append(tools, memberTool(namespace, name, member, ep))
	}
	if len(tools) > 0 {
		r.server.AddTools(tools...)
	}

	logging.Debug("Transport", "Published %s/%s with %d members", namespace, name, len(tools))
	return nil
}

// DiscoverAll returns every endpoint currently published under namespace.
func (r *Registry) DiscoverAll(ctx context.Context, namespace string) (map[string]Endpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Endpoint, len(r.namespaces[namespace]))
	for name, ep := range r.namespaces[namespace] {
		out[name] = ep
	}
	return out, nil
}

// MCPServer returns the MCP server mirroring the registry.
func (r *Registry) MCPServer() *server.MCPServer {
	return r.server
}

// ToolName is the MCP tool name a member is exposed as.
func ToolName(namespace, name, member string) string {
	return namespace + "." + name + "." + member
}

// splitToolName reverses ToolName for tools within namespace. Member names
// never contain '.', so the endpoint name is everything up to the last one.
func splitToolName(namespace, tool string) (name, member string, ok bool) {
	rest, found := strings.CutPrefix(tool, namespace+".")
	if !found {
		return "", "", false
	}
	idx := strings.LastIndex(rest, ".")
	if idx <= 0 || idx == len(rest)-1 {
		return "", "", false
	}
	return rest[:idx], rest[idx+1:], true
}

func memberTool(namespace, name, member string, ep Endpoint) server.ServerTool {
	tool := mcp.NewTool(ToolName(namespace, name, member),
		mcp.WithDescription(fmt.Sprintf("Calls %s on %s", member, name)),
	)

	return server.ServerTool{
		Tool: tool,
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			result, err := ep.Call(ctx, member, req.GetArguments())
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			data, err := json.Marshal(result)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("failed to encode result of %s: %v", member, err)), nil
			}
			return mcp.NewToolResultText(string(data)), nil
		},
	}
}

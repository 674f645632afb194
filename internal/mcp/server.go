package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/plan-assist-core/server/internal/agent/graph/tools"
	logx "github.com/plan-assist-core/server/pkg/logger"
)

const (
	ServerName    = "jio-plan-tools"
	ServerVersion = "1.0.0"
)

// PlanToolServer exposes the plan-catalog tools over MCP.
type PlanToolServer struct {
	mcpServer *server.MCPServer
	registry  *tools.Registry
}

// NewPlanToolServer registers every tool of the registry, reusing each eino
// tool schema as the MCP input schema.
func NewPlanToolServer(ctx context.Context, registry *tools.Registry) (*PlanToolServer, error) {
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &PlanToolServer{mcpServer: mcpServer, registry: registry}

	infos, err := registry.Infos(ctx)
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if err := s.registerTool(info); err != nil {
			return nil, err
		}
	}
	logx.Debug().Int("tools", len(infos)).Msg("MCP plan tool server ready")
	return s, nil
}

func (s *PlanToolServer) registerTool(info *schema.ToolInfo) error {
	schemaJSON := []byte(`{"type":"object","properties":{}}`)
	if info.ParamsOneOf != nil {
		js, err := info.ParamsOneOf.ToJSONSchema()
		if err != nil {
			return fmt.Errorf("schema for tool %s: %w", info.Name, err)
		}
		if schemaJSON, err = json.Marshal(js); err != nil {
			return fmt.Errorf("marshal schema for tool %s: %w", info.Name, err)
		}
	}
	s.mcpServer.AddTool(mcp.NewToolWithRawSchema(info.Name, info.Desc, schemaJSON), s.createToolHandler(info.Name))
	return nil
}

func (s *PlanToolServer) createToolHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}

		out, err := s.registry.Invoke(ctx, name, string(args))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Tool execution failed: %v", err)), nil
		}
		return mcp.NewToolResultText(out), nil
	}
}

// MCPServer returns the underlying server for transports.
func (s *PlanToolServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio blocks serving MCP over stdin/stdout.
func (s *PlanToolServer) ServeStdio() error {
	logx.Info().Msg("Serving plan tools over MCP stdio")
	return server.ServeStdio(s.mcpServer)
}

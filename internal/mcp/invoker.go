package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	errx "github.com/plan-assist-core/server/internal/core/error"
)

// InProcessInvoker calls the plan tools through an MCP client connected to
// the server in the same process. It satisfies tools.Invoker.
type InProcessInvoker struct {
	client *client.Client
}

func NewInProcessInvoker(ctx context.Context, s *PlanToolServer) (*InProcessInvoker, error) {
	c, err := client.NewInProcessClient(s.MCPServer())
	if err != nil {
		return nil, fmt.Errorf("create in-process MCP client: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("start MCP client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "plan-assist-orchestrator", Version: ServerVersion}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("initialize MCP session: %w", err)
	}
	return &InProcessInvoker{client: c}, nil
}

func (i *InProcessInvoker) Invoke(ctx context.Context, name, argumentsInJSON string) (string, error) {
	var args map[string]any
	if argumentsInJSON != "" {
		if err := json.Unmarshal([]byte(argumentsInJSON), &args); err != nil {
			return "", errx.WrapTool(name, fmt.Errorf("decode arguments: %w", err))
		}
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := i.client.CallTool(ctx, req)
	if err != nil {
		return "", errx.WrapTool(name, err)
	}

	text := resultText(res)
	if res.IsError {
		return "", errx.WrapTool(name, errors.New(text))
	}
	return text, nil
}

func resultText(res *mcp.CallToolResult) string {
	var sb strings.Builder
	for _, c := range res.Content {
		if tc, ok := mcp.AsTextContent(c); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}

func (i *InProcessInvoker) Close() error {
	return i.client.Close()
}

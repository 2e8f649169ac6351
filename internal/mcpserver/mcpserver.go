// Package mcpserver exposes MyMolt's gated tool registry over MCP. Every
// inbound CallTool passes through the SIGIL Gatekeeper before reaching a
// tool; tools are not additionally wrapped in a Security Wrapper here —
// the Gatekeeper's rate limiting and audit trail is the MCP-specific gate,
// while the Security Wrapper governs direct (non-MCP) tool invocation.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpsdk "github.com/mark3labs/mcp-go/server"

	"github.com/mymolt/mymolt/internal/gatekeeper"
	"github.com/mymolt/mymolt/internal/telemetry"
	"github.com/mymolt/mymolt/internal/tools"
)

// maxOutputBytes caps a single tool result before truncation.
const maxOutputBytes = 1 << 20

// Server is MyMolt's MCP front door.
type Server struct {
	version    string
	registry   *tools.Registry
	gatekeeper *gatekeeper.Gatekeeper
	telemetry  *telemetry.Collector
}

// New builds a Server around a tool registry and gatekeeper.
func New(version string, registry *tools.Registry, gk *gatekeeper.Gatekeeper, tel *telemetry.Collector) *Server {
	return &Server{version: version, registry: registry, gatekeeper: gk, telemetry: tel}
}

// Serve starts the MCP server on stdio and blocks until the client
// disconnects.
func (s *Server) Serve() error {
	srv := mcpsdk.NewMCPServer(
		"mymolt",
		s.version,
		mcpsdk.WithRecovery(),
		mcpsdk.WithToolCapabilities(false),
	)

	s.registerTools(srv)

	return mcpsdk.ServeStdio(srv)
}

func (s *Server) registerTools(srv *mcpsdk.MCPServer) {
	for _, name := range s.registry.Names() {
		srv.AddTool(
			mcp.NewTool(name,
				mcp.WithDescription(fmt.Sprintf("MyMolt tool: %s", name)),
				mcp.WithString("args_json",
					mcp.Description("JSON-encoded arguments for the tool"),
				),
			),
			s.handleCallTool(name),
		)
	}
}

func (s *Server) handleCallTool(name string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if s.telemetry != nil {
			s.telemetry.RecordCall(name)
		}

		if err := s.gatekeeper.GateRequest(ctx, name); err != nil {
			if s.telemetry != nil {
				s.telemetry.RecordDenied(name)
			}
			return mcp.NewToolResultError(err.Error()), nil
		}

		tool, ok := s.registry.Get(name)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown tool %q", name)), nil
		}

		argsJSON := request.GetString("args_json", "{}")
		result, err := tool.Execute(ctx, json.RawMessage(argsJSON))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !result.Success {
			return mcp.NewToolResultError(result.Error), nil
		}
		return mcp.NewToolResultText(truncate(result.Output)), nil
	}
}

func truncate(s string) string {
	if len(s) <= maxOutputBytes {
		return s
	}
	return s[:maxOutputBytes] + "\n... [truncated: output exceeded 1MB limit]"
}

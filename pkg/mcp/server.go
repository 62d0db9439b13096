package mcp

import (
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/mcp/tools"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/services"
)

// Deps are the services the read tools are served from.
type Deps struct {
	Catalog  services.CatalogService
	Clusters services.ClusterService
	DB       tools.Pinger
}

// Server wraps the mcp-go MCPServer with the data hub's read tools.
type Server struct {
	mcp    *server.MCPServer
	logger *zap.Logger
}

// NewServer creates an MCP server with every tool registered and tool calls logged.
func NewServer(name, version string, deps Deps, logger *zap.Logger) *Server {
	mcpServer := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
		server.WithHooks(NewCallLogger(logger).Hooks()),
	)

	tools.RegisterHealthTool(mcpServer, version, deps.DB)
	if deps.Catalog != nil {
		tools.RegisterCatalogTools(mcpServer, &tools.CatalogToolDeps{CatalogService: deps.Catalog, Logger: logger})
	}
	if deps.Clusters != nil {
		tools.RegisterClusterTools(mcpServer, &tools.ClusterToolDeps{ClusterService: deps.Clusters, Logger: logger})
	}

	return &Server{
		mcp:    mcpServer,
		logger: logger,
	}
}

// MCP returns the underlying MCPServer.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// NewStreamableHTTPServer creates an HTTP transport server wrapping this MCP server.
// The HTTP mux handles routing to /mcp, so no endpoint path is configured here.
func (s *Server) NewStreamableHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s.mcp,
		server.WithStateLess(true),
	)
}

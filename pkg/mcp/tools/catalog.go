package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/services"
)

// CatalogToolDeps contains dependencies for the attribute catalog tools.
type CatalogToolDeps struct {
	CatalogService services.CatalogService
	Logger         *zap.Logger
}

// RegisterCatalogTools adds list_project_attributes, get_site_attributes
// and get_project_catalog.
func RegisterCatalogTools(s *server.MCPServer, deps *CatalogToolDeps) {
	registerListProjectAttributesTool(s, deps)
	registerGetSiteAttributesTool(s, deps)
	registerGetProjectCatalogTool(s, deps)
}

func readOnly(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	opts = append([]mcp.ToolOption{mcp.WithDescription(description)}, opts...)
	opts = append(opts,
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
	return mcp.NewTool(name, opts...)
}

func projectIDParam() mcp.ToolOption {
	return mcp.WithNumber("project_id", mcp.Required(), mcp.Description("Project ID"))
}

func registerListProjectAttributesTool(s *server.MCPServer, deps *CatalogToolDeps) {
	tool := readOnly("list_project_attributes",
		"List the attributes recorded for a project, in display order, with their value types.",
		projectIDParam(),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projectID, bad := requireID(req, "project_id")
		if bad != nil {
			return bad, nil
		}

		attrs, err := deps.CatalogService.ListAttributes(ctx, projectID)
		if err != nil {
			if result := serviceErrorResult(err); result != nil {
				return result, nil
			}
			deps.Logger.Error("list_project_attributes failed", zap.Int64("project_id", projectID), zap.Error(err))
			return nil, err
		}

		return jsonResult(map[string]any{
			"project_id": projectID,
			"attributes": attrs,
			"count":      len(attrs),
		})
	})
}

func registerGetSiteAttributesTool(s *server.MCPServer, deps *CatalogToolDeps) {
	tool := readOnly("get_site_attributes",
		"Get every project attribute's current value for one site. Multi-valued attributes are joined with \", \".",
		projectIDParam(),
		mcp.WithNumber("site_id", mcp.Required(), mcp.Description("Site ID")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projectID, bad := requireID(req, "project_id")
		if bad != nil {
			return bad, nil
		}
		siteID, bad := requireID(req, "site_id")
		if bad != nil {
			return bad, nil
		}

		site, err := deps.CatalogService.GetSiteAttributes(ctx, projectID, siteID)
		if err != nil {
			if result := serviceErrorResult(err); result != nil {
				return result, nil
			}
			deps.Logger.Error("get_site_attributes failed",
				zap.Int64("project_id", projectID), zap.Int64("site_id", siteID), zap.Error(err))
			return nil, err
		}
		return jsonResult(site)
	})
}

func registerGetProjectCatalogTool(s *server.MCPServer, deps *CatalogToolDeps) {
	tool := readOnly("get_project_catalog",
		"Get one page of a project's sites with all attributes resolved.",
		projectIDParam(),
		mcp.WithNumber("offset", mcp.Description("Sites to skip (default: 0)")),
		mcp.WithNumber("limit", mcp.Description("Sites per page (server default and maximum apply)")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projectID, bad := requireID(req, "project_id")
		if bad != nil {
			return bad, nil
		}

		page, err := deps.CatalogService.GetCatalog(ctx, projectID, optionalInt(req, "offset", 0), optionalInt(req, "limit", 0))
		if err != nil {
			if result := serviceErrorResult(err); result != nil {
				return result, nil
			}
			deps.Logger.Error("get_project_catalog failed", zap.Int64("project_id", projectID), zap.Error(err))
			return nil, err
		}
		return jsonResult(page)
	})
}

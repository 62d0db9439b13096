package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/services"
)

// ClusterToolDeps contains dependencies for the clustering tool.
type ClusterToolDeps struct {
	ClusterService services.ClusterService
	Logger         *zap.Logger
}

// RegisterClusterTools adds get_project_clusters.
func RegisterClusterTools(s *server.MCPServer, deps *ClusterToolDeps) {
	tool := readOnly("get_project_clusters",
		"Group a project's sites into grid cells for map display. Returns per-cell counts, centroids, sample site IDs and the overall bounding box.",
		projectIDParam(),
		mcp.WithNumber("cell_size", mcp.Description("Grid cell size in degrees (server default when omitted)")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projectID, bad := requireID(req, "project_id")
		if bad != nil {
			return bad, nil
		}
		cellSize, _ := getOptionalFloat(req, "cell_size")

		result, err := deps.ClusterService.GetClusters(ctx, projectID, cellSize)
		if err != nil {
			if res := serviceErrorResult(err); res != nil {
				return res, nil
			}
			deps.Logger.Error("get_project_clusters failed", zap.Int64("project_id", projectID), zap.Error(err))
			return nil, err
		}
		return jsonResult(result)
	})
}

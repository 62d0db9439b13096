package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/services"
)

// ClusterHandler serves grid-aggregated site locations.
type ClusterHandler struct {
	clusterService services.ClusterService
	logger         *zap.Logger
}

// NewClusterHandler creates a new cluster handler.
func NewClusterHandler(clusterService services.ClusterService, logger *zap.Logger) *ClusterHandler {
	return &ClusterHandler{clusterService: clusterService, logger: logger}
}

// RegisterRoutes registers the cluster handler's routes on the given mux.
func (h *ClusterHandler) RegisterRoutes(mux *http.ServeMux, protect Protect) {
	mux.Handle("GET /api/projects/{pid}/clusters", protect(http.HandlerFunc(h.Get)))
}

// Get handles GET /api/projects/{pid}/clusters?cell_size=
func (h *ClusterHandler) Get(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}
	cellSize, ok := queryFloat(w, r, "cell_size", 0, h.logger)
	if !ok {
		return
	}

	result, err := h.clusterService.GetClusters(r.Context(), projectID, cellSize)
	if err != nil {
		writeServiceError(w, h.logger, "get_clusters", err, zap.Int64("project_id", projectID))
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

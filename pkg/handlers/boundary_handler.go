package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/services"
)

// IntersectingSitesResponse for POST /api/sites/intersecting
type IntersectingSitesResponse struct {
	SiteIDs []int64 `json:"site_ids"`
	Count   int     `json:"count"`
}

// BoundaryHandler answers "which sites intersect this shape" queries.
type BoundaryHandler struct {
	boundaryService services.BoundaryService
	maxBytes        int64
	logger          *zap.Logger
}

// NewBoundaryHandler creates a new boundary handler.
func NewBoundaryHandler(boundaryService services.BoundaryService, maxBytes int64, logger *zap.Logger) *BoundaryHandler {
	return &BoundaryHandler{boundaryService: boundaryService, maxBytes: maxBytes, logger: logger}
}

// RegisterRoutes registers the boundary handler's routes on the given mux.
func (h *BoundaryHandler) RegisterRoutes(mux *http.ServeMux, protect Protect) {
	mux.Handle("POST /api/sites/intersecting", protect(http.HandlerFunc(h.Intersecting)))
}

// Intersecting handles POST /api/sites/intersecting
func (h *BoundaryHandler) Intersecting(w http.ResponseWriter, r *http.Request) {
	upload, ok := receiveArchive(w, r, h.maxBytes, h.logger)
	if !ok {
		return
	}
	defer upload.remove()

	ids, err := h.boundaryService.FindIntersecting(r.Context(), upload.Path)
	if err != nil {
		writeServiceError(w, h.logger, "boundary_query", err, zap.String("filename", upload.Filename))
		return
	}
	if ids == nil {
		ids = []int64{}
	}

	resp := IntersectingSitesResponse{SiteIDs: ids, Count: len(ids)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: resp}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

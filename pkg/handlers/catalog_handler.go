package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/services"
)

// CatalogHandler serves a project's attribute catalog.
type CatalogHandler struct {
	catalogService services.CatalogService
	logger         *zap.Logger
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(catalogService services.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService, logger: logger}
}

// RegisterRoutes registers the catalog handler's routes on the given mux.
func (h *CatalogHandler) RegisterRoutes(mux *http.ServeMux, protect Protect) {
	mux.Handle("GET /api/projects/{pid}/attributes", protect(http.HandlerFunc(h.Get)))
}

// Get handles GET /api/projects/{pid}/attributes?offset=&limit=
// Out-of-range paging values are clamped by the service.
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}
	offset, ok := queryInt(w, r, "offset", 0, h.logger)
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit", 0, h.logger)
	if !ok {
		return
	}

	page, err := h.catalogService.GetCatalog(r.Context(), projectID, offset, limit)
	if err != nil {
		writeServiceError(w, h.logger, "get_catalog", err, zap.Int64("project_id", projectID))
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: page}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/auth"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/models"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/services"
)

// Protect wraps a handler that requires authentication.
type Protect func(http.Handler) http.Handler

// NoAuth passes requests through unchanged.
func NoAuth(next http.Handler) http.Handler { return next }

// ImportHandler serves archive uploads.
type ImportHandler struct {
	importService services.ImportService
	maxBytes      int64
	logger        *zap.Logger
}

// NewImportHandler creates a new import handler.
func NewImportHandler(importService services.ImportService, maxBytes int64, logger *zap.Logger) *ImportHandler {
	return &ImportHandler{
		importService: importService,
		maxBytes:      maxBytes,
		logger:        logger,
	}
}

// RegisterRoutes registers the import handler's routes on the given mux.
func (h *ImportHandler) RegisterRoutes(mux *http.ServeMux, protect Protect) {
	mux.Handle("POST /api/imports", protect(http.HandlerFunc(h.Create)))
}

// Create handles POST /api/imports.
// The import keeps running if the client disconnects; it commits or rolls back on its own.
func (h *ImportHandler) Create(w http.ResponseWriter, r *http.Request) {
	upload, ok := receiveArchive(w, r, h.maxBytes, h.logger)
	if !ok {
		return
	}
	defer upload.remove()

	ctx := models.WithHTTPProvenance(r.Context(), auth.OwnerFromContext(r.Context()))
	result, err := h.importService.Import(ctx, services.ImportRequest{
		ArchivePath:      upload.Path,
		Name:             r.FormValue("name"),
		OriginalFilename: upload.Filename,
	})
	if err != nil {
		writeServiceError(w, h.logger, "import", err, zap.String("filename", upload.Filename))
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

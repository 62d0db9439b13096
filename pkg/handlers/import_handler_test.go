package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/apperrors"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/auth"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/models"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/services"
)

func TestImportHandler_Create_Success(t *testing.T) {
	svc := &mockImportService{result: &models.ImportResult{
		RunID:           uuid.New(),
		ProjectID:       7,
		ProjectName:     "Landmarks",
		EntitiesCreated: 2,
		AttributeNames:  []string{"height"},
	}}
	h := NewImportHandler(svc, 1<<20, zap.NewNop())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux, NoAuth)

	req := multipartRequest(t, "/api/imports", "landmarks.ZIP", []byte("zip-bytes"), map[string]string{"name": "Landmarks"})
	claims := &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}, Email: "r@example.com"}
	req = req.WithContext(context.WithValue(req.Context(), auth.ClaimsKey, claims))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Success bool                `json:"success"`
		Data    models.ImportResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, int64(7), resp.Data.ProjectID)

	assert.Equal(t, "Landmarks", svc.req.Name)
	assert.Equal(t, "landmarks.ZIP", svc.req.OriginalFilename)
	assert.True(t, strings.HasSuffix(svc.req.ArchivePath, ".zip"))
	assert.Equal(t, []byte("zip-bytes"), svc.content)
	require.True(t, svc.provOK)
	assert.Equal(t, models.SourceHTTP, svc.prov.Source)
	assert.Equal(t, "r@example.com", svc.prov.Owner)

	_, err := os.Stat(svc.req.ArchivePath)
	assert.True(t, os.IsNotExist(err), "temp upload must be removed")
}

func TestImportHandler_Create_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"malformed", fmt.Errorf("%w: no .shp", apperrors.ErrMalformedInput), http.StatusBadRequest, "malformed_input"},
		{"empty", fmt.Errorf("%w: nothing", apperrors.ErrEmptyInput), http.StatusBadRequest, "empty_input"},
		{"store failure", &services.ImportError{Stage: models.StageGeometries, Err: fmt.Errorf("boom")}, http.StatusInternalServerError, "import_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewImportHandler(&mockImportService{err: tt.err}, 1<<20, zap.NewNop())
			rec := httptest.NewRecorder()
			h.Create(rec, multipartRequest(t, "/api/imports", "a.zip", []byte("x"), nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body["error"])
		})
	}
}

func TestImportHandler_Create_StageInMessage(t *testing.T) {
	err := &services.ImportError{Stage: models.StageValues, Err: fmt.Errorf("connection reset")}
	h := NewImportHandler(&mockImportService{err: err}, 1<<20, zap.NewNop())
	rec := httptest.NewRecorder()
	h.Create(rec, multipartRequest(t, "/api/imports", "a.zip", []byte("x"), nil))

	assert.Contains(t, rec.Body.String(), "attribute_values")
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestImportHandler_Create_MissingArchive(t *testing.T) {
	svc := &mockImportService{}
	h := NewImportHandler(svc, 1<<20, zap.NewNop())
	rec := httptest.NewRecorder()
	h.Create(rec, multipartRequest(t, "/api/imports", "", nil, map[string]string{"name": "x"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing_archive")
	assert.Empty(t, svc.req.ArchivePath)
}

func TestImportHandler_Create_NotMultipart(t *testing.T) {
	h := NewImportHandler(&mockImportService{}, 1<<20, zap.NewNop())
	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/imports", strings.NewReader("{}")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportHandler_Create_TooLarge(t *testing.T) {
	h := NewImportHandler(&mockImportService{}, 64, zap.NewNop())
	rec := httptest.NewRecorder()
	h.Create(rec, multipartRequest(t, "/api/imports", "a.zip", make([]byte, 4096), nil))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestArchiveExt(t *testing.T) {
	assert.Equal(t, ".zip", archiveExt("a.ZIP"))
	assert.Equal(t, ".geojson", archiveExt("b.GeoJSON"))
	assert.Equal(t, ".json", archiveExt("c.json"))
	assert.Equal(t, ".zip", archiveExt("d.exe"))
	assert.Equal(t, ".zip", archiveExt(""))
}

package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/models"
	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/services"
)

// ============================================================================
// Mock Implementations
// ============================================================================

type mockImportService struct {
	result  *models.ImportResult
	err     error
	req     services.ImportRequest
	content []byte
	provOK  bool
	prov    models.ProvenanceContext
}

func (m *mockImportService) Import(ctx context.Context, req services.ImportRequest) (*models.ImportResult, error) {
	m.req = req
	m.content, _ = os.ReadFile(req.ArchivePath)
	m.prov, m.provOK = models.GetProvenance(ctx)
	return m.result, m.err
}

type mockBoundaryService struct {
	ids []int64
	err error
}

func (m *mockBoundaryService) FindIntersecting(ctx context.Context, archivePath string) ([]int64, error) {
	return m.ids, m.err
}

type mockCatalogService struct {
	page      *models.CatalogPage
	err       error
	projectID int64
	offset    int
	limit     int
}

func (m *mockCatalogService) ListAttributes(ctx context.Context, projectID int64) ([]*models.AttributeDefinition, error) {
	return nil, m.err
}

func (m *mockCatalogService) GetCatalog(ctx context.Context, projectID int64, offset, limit int) (*models.CatalogPage, error) {
	m.projectID, m.offset, m.limit = projectID, offset, limit
	return m.page, m.err
}

func (m *mockCatalogService) GetSiteAttributes(ctx context.Context, projectID, siteID int64) (*models.SiteAttributes, error) {
	return nil, m.err
}

type mockClusterService struct {
	result   *models.ClusterResult
	err      error
	cellSize float64
}

func (m *mockClusterService) GetClusters(ctx context.Context, projectID int64, cellSize float64) (*models.ClusterResult, error) {
	m.cellSize = cellSize
	return m.result, m.err
}

// multipartRequest builds a POST with an "archive" file part and extra fields.
func multipartRequest(t *testing.T, target, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		part, err := mw.CreateFormFile("archive", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

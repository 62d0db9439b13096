package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	archiveField = "archive"
	// multipartMemory is how much of an upload is buffered in memory before
	// spilling to disk.
	multipartMemory = 32 << 20
)

// uploadedArchive is a multipart upload persisted to a temp file.
type uploadedArchive struct {
	Path     string
	Filename string
}

func (u *uploadedArchive) remove() {
	_ = os.Remove(u.Path)
}

// receiveArchive stores the "archive" part of a multipart request in a temp
// file. The caller must call remove on the result. On failure an error
// response has been written.
func receiveArchive(w http.ResponseWriter, r *http.Request, maxBytes int64, logger *zap.Logger) (*uploadedArchive, bool) {
	if maxBytes > 0 {
		if r.ContentLength > maxBytes {
			writeUploadError(w, http.StatusRequestEntityTooLarge, "archive_too_large",
				fmt.Sprintf("Archive exceeds %d bytes", maxBytes), logger)
			return nil, false
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeUploadError(w, http.StatusRequestEntityTooLarge, "archive_too_large",
				fmt.Sprintf("Archive exceeds %d bytes", tooLarge.Limit), logger)
			return nil, false
		}
		writeUploadError(w, http.StatusBadRequest, "invalid_request", "Expected a multipart form upload", logger)
		return nil, false
	}

	file, header, err := r.FormFile(archiveField)
	if err != nil {
		writeUploadError(w, http.StatusBadRequest, "missing_archive", "Multipart field \"archive\" is required", logger)
		return nil, false
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "rdh-upload-*"+archiveExt(header.Filename))
	if err != nil {
		logger.Error("Failed to create temp file for upload", zap.Error(err))
		writeUploadError(w, http.StatusInternalServerError, "upload_failed", "Failed to store upload", logger)
		return nil, false
	}
	upload := &uploadedArchive{Path: tmp.Name(), Filename: filepath.Base(header.Filename)}

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		upload.remove()
		logger.Error("Failed to store upload", zap.Error(err))
		writeUploadError(w, http.StatusInternalServerError, "upload_failed", "Failed to store upload", logger)
		return nil, false
	}
	if err := tmp.Close(); err != nil {
		upload.remove()
		logger.Error("Failed to store upload", zap.Error(err))
		writeUploadError(w, http.StatusInternalServerError, "upload_failed", "Failed to store upload", logger)
		return nil, false
	}
	return upload, true
}

// archiveExt keeps the extensions the archive reader dispatches on.
func archiveExt(filename string) string {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".geojson", ".json", ".zip":
		return ext
	default:
		return ".zip"
	}
}

func writeUploadError(w http.ResponseWriter, status int, code, message string, logger *zap.Logger) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}

package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"

	"github.com/nutrilog/nutrilog/internal/conf"
	"github.com/nutrilog/nutrilog/internal/diskmanager"
	"github.com/nutrilog/nutrilog/internal/errors"
	"github.com/nutrilog/nutrilog/internal/ingest"
	"github.com/nutrilog/nutrilog/internal/logger"
)

// Upload error messages shown to the client
const (
	MsgNoFilePart     = "No file part in the request"
	MsgNoFileSelected = "No file selected"
	MsgFileNotAllowed = "File type not allowed. Please upload a CSV file."
	MsgServerBusy     = "Server is busy processing another upload"
)

const (
	uploadFormField  = "file"
	uploadFilePerms  = 0o600
	validationPrefix = "Validation error: "
	processingPrefix = "Error processing file: "
)

// index serves the upload page.
func (s *Server) index(c echo.Context) error {
	page, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		return s.HandleError(c, err, "Upload page unavailable", http.StatusInternalServerError)
	}
	return c.HTMLBlob(http.StatusOK, page)
}

// grafanaRedirect sends the browser to the dashboard.
func (s *Server) grafanaRedirect(c echo.Context) error {
	return c.Redirect(http.StatusFound, s.config.DashboardURL)
}

// healthCheck handles the server health check endpoint.
func (s *Server) healthCheck(c echo.Context) error {
	uptime := time.Since(s.startTime)

	health := map[string]any{
		"status":         "ok",
		"name":           s.settings.Main.Name,
		"version":        s.build.GetVersion(),
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      time.Now().Format(time.RFC3339),
	}

	if used, ok := s.uploadDiskUsage(); ok {
		health["upload_disk_used_percent"] = used
	}

	return c.JSON(http.StatusOK, health)
}

const diskUsageCacheKey = "upload_disk_used_percent"

// uploadDiskUsage reports how full the upload directory's filesystem is.
// The directory is created lazily, so it may not exist yet.
func (s *Server) uploadDiskUsage() (float64, bool) {
	if cached, found := s.statsCache.Get(diskUsageCacheKey); found {
		if used, ok := cached.(float64); ok {
			return used, true
		}
	}

	used, err := diskmanager.GetDiskUsage(s.config.UploadDir)
	if err != nil {
		s.log.Debug("Disk usage unavailable", logger.Error(err))
		return 0, false
	}
	s.statsCache.Set(diskUsageCacheKey, used, cache.DefaultExpiration)
	return used, true
}

// uploadFile accepts a CSV export, stages it on disk and runs the ingest
// pipeline on it. The staged file is always removed.
func (s *Server) uploadFile(c echo.Context) error {
	fileHeader, err := c.FormFile(uploadFormField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			if form, ferr := c.MultipartForm(); ferr == nil && len(form.Value[uploadFormField]) > 0 {
				return s.HandleError(c, nil, MsgNoFileSelected, http.StatusBadRequest)
			}
			return s.HandleError(c, nil, MsgNoFilePart, http.StatusBadRequest)
		}
		return s.HandleError(c, err, MsgNoFilePart, http.StatusBadRequest)
	}

	if fileHeader.Filename == "" {
		return s.HandleError(c, nil, MsgNoFileSelected, http.StatusBadRequest)
	}
	if !s.config.allowedFile(fileHeader.Filename) {
		s.log.Warn("File type not allowed", logger.String("filename", fileHeader.Filename))
		return s.HandleError(c, nil, MsgFileNotAllowed, http.StatusBadRequest)
	}

	ctx := c.Request().Context()
	if err := s.uploads.Acquire(ctx, 1); err != nil {
		return s.HandleError(c, err, MsgServerBusy, http.StatusServiceUnavailable)
	}
	defer s.uploads.Release(1)

	originalName := secureFilename(fileHeader.Filename)
	path, err := s.stageUpload(fileHeader, originalName)
	if err != nil {
		return s.handleUploadFailure(c, err, processingPrefix+err.Error(), http.StatusInternalServerError)
	}
	defer s.removeStaged(path)

	result, err := s.processStaged(ctx, path, originalName)
	if err != nil {
		code := statusFor(err)
		prefix := processingPrefix
		if code == http.StatusBadRequest {
			prefix = validationPrefix
		}
		return s.handleUploadFailure(c, err, prefix+err.Error(), code)
	}

	return c.JSON(http.StatusOK, result)
}

// processStaged runs the ingester, converting a panic into an error.
func (s *Server) processStaged(ctx context.Context, path, filename string) (result *ingest.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("%v", r).
				Component("api").
				Category(errors.CategoryProcessing).
				Build()
		}
	}()
	return s.ingester.ProcessFile(ctx, path, filename)
}

// stageUpload saves the upload as <uuid>_<name> in the upload directory.
func (s *Server) stageUpload(fh *multipart.FileHeader, name string) (string, error) {
	if err := conf.EnsureDir(s.config.UploadDir); err != nil {
		return "", err
	}

	src, err := fh.Open()
	if err != nil {
		return "", errors.New(err).
			Component("api").
			Category(errors.CategoryFileIO).
			Context("operation", "open_upload").
			Build()
	}
	defer func() { _ = src.Close() }()

	path := filepath.Join(s.config.UploadDir, fmt.Sprintf("%s_%s", uuid.New().String(), name))
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, uploadFilePerms)
	if err != nil {
		return "", errors.New(err).
			Component("api").
			Category(errors.CategoryFileIO).
			Context("operation", "create_staged_file").
			Build()
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		s.removeStaged(path)
		return "", errors.New(err).
			Component("api").
			Category(errors.CategoryFileIO).
			FileContext(path, fh.Size).
			Context("operation", "write_staged_file").
			Build()
	}
	if err := dst.Close(); err != nil {
		s.removeStaged(path)
		return "", errors.New(err).
			Component("api").
			Category(errors.CategoryFileIO).
			Context("operation", "close_staged_file").
			Build()
	}
	return path, nil
}

func (s *Server) removeStaged(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.log.Warn("Failed to remove staged upload",
			logger.String("path", path),
			logger.Error(err))
	}
}

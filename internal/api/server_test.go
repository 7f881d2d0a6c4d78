package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutrilog/nutrilog/internal/conf"
	"github.com/nutrilog/nutrilog/internal/errors"
	"github.com/nutrilog/nutrilog/internal/ingest"
	"github.com/nutrilog/nutrilog/internal/logger"
	"github.com/nutrilog/nutrilog/internal/observability"
	"github.com/nutrilog/nutrilog/internal/observability/metrics"
	"github.com/nutrilog/nutrilog/internal/testutil"
)

type stagedCall struct {
	path     string
	filename string
	content  []byte
}

type stubIngester struct {
	mu        sync.Mutex
	calls     []stagedCall
	result    *ingest.Result
	err       error
	panicWith any
}

func (s *stubIngester) ProcessFile(_ context.Context, path, filename string) (*ingest.Result, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.calls = append(s.calls, stagedCall{path: path, filename: filename, content: content})
	s.mu.Unlock()

	if s.panicWith != nil {
		panic(s.panicWith)
	}
	return s.result, s.err
}

func (s *stubIngester) lastCall(t *testing.T) stagedCall {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.calls, "ingester was not called")
	return s.calls[len(s.calls)-1]
}

func (s *stubIngester) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func newTestServer(t *testing.T, ing Ingester, mutate func(*conf.Settings), opts ...ServerOption) (*Server, string) {
	t.Helper()

	uploadDir := t.TempDir()
	settings := &conf.Settings{}
	settings.Main.Name = "nutrilog-test"
	settings.Upload.Dir = uploadDir
	settings.Dashboard.URL = "http://grafana.local/d/nutrition"
	if mutate != nil {
		mutate(settings)
	}

	opts = append([]ServerOption{WithLogger(logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil))}, opts...)
	s, err := New(settings, ing, opts...)
	require.NoError(t, err)
	return s, uploadDir
}

func uploadRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staged uploads must be removed")
}

var stagedName = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}_export\.csv$`)

func TestUploadSuccess(t *testing.T) {
	t.Parallel()

	ing := &stubIngester{result: &ingest.Result{
		Success:         true,
		Message:         "File uploaded and processed successfully. 3 records inserted. Data for 2 users processed successfully.",
		Filename:        "export.csv",
		UsersProcessed:  2,
		UserIDs:         []int64{7, 9},
		RecordsInserted: 3,
	}}
	s, uploadDir := newTestServer(t, ing, nil)

	content := []byte("7,2024-01-01,\"{\"\"Calories\"\": 2000}\"\n")
	rec := serve(s, uploadRequest(t, "file", "export.csv", content))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "export.csv", body["filename"])
	assert.InDelta(t, 2, body["users_processed"], 0)
	assert.Equal(t, []any{float64(7), float64(9)}, body["users_processed_details"])
	assert.InDelta(t, 3, body["records_inserted"], 0)
	assert.Contains(t, body["message"], "3 records inserted")

	call := ing.lastCall(t)
	assert.Equal(t, "export.csv", call.filename)
	assert.Equal(t, content, call.content)
	assert.Equal(t, uploadDir, filepath.Dir(call.path))
	assert.Regexp(t, stagedName, filepath.Base(call.path))

	_, err := os.Stat(call.path)
	assert.True(t, os.IsNotExist(err))
	assertDirEmpty(t, uploadDir)
}

func TestUploadSanitizesFilename(t *testing.T) {
	t.Parallel()

	ing := &stubIngester{result: &ingest.Result{Success: true}}
	s, uploadDir := newTestServer(t, ing, nil)

	rec := serve(s, uploadRequest(t, "file", "my food log.csv", []byte("1,2024-01-01,x\n")))
	require.Equal(t, http.StatusOK, rec.Code)

	call := ing.lastCall(t)
	assert.Equal(t, "my_food_log.csv", call.filename)
	assert.True(t, strings.HasSuffix(call.path, "_my_food_log.csv"))
	assertDirEmpty(t, uploadDir)
}

func TestUploadRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		request func(t *testing.T) *http.Request
		message string
	}{
		{
			name: "no file part",
			request: func(t *testing.T) *http.Request {
				var body bytes.Buffer
				w := multipart.NewWriter(&body)
				require.NoError(t, w.WriteField("comment", "hello"))
				require.NoError(t, w.Close())
				req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
				req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
				return req
			},
			message: MsgNoFilePart,
		},
		{
			name: "not multipart",
			request: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("1,2024-01-01,x"))
				req.Header.Set(echo.HeaderContentType, "text/csv")
				return req
			},
			message: MsgNoFilePart,
		},
		{
			name: "empty filename",
			request: func(t *testing.T) *http.Request {
				return uploadRequest(t, "file", "", []byte("1,2024-01-01,x\n"))
			},
			message: MsgNoFileSelected,
		},
		{
			name: "wrong extension",
			request: func(t *testing.T) *http.Request {
				return uploadRequest(t, "file", "notes.txt", []byte("hello"))
			},
			message: MsgFileNotAllowed,
		},
		{
			name: "no extension",
			request: func(t *testing.T) *http.Request {
				return uploadRequest(t, "file", "export", []byte("hello"))
			},
			message: MsgFileNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ing := &stubIngester{}
			s, uploadDir := newTestServer(t, ing, nil)

			rec := serve(s, tt.request(t))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.message, resp.Message)
			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Len(t, resp.CorrelationID, 8)

			assert.Zero(t, ing.callCount())
			assertDirEmpty(t, uploadDir)
		})
	}
}

func TestUploadValidationError(t *testing.T) {
	t.Parallel()

	ing := &stubIngester{err: errors.ValidationError("CSV file must have at least 3 columns")}
	s, uploadDir := newTestServer(t, ing, nil)

	rec := serve(s, uploadRequest(t, "file", "export.csv", []byte("1,2024-01-01\n")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeError(t, rec)
	assert.Equal(t, "Validation error: CSV file must have at least 3 columns", resp.Message)
	assert.Equal(t, "Validation error: CSV file must have at least 3 columns", resp.Error)
	assertDirEmpty(t, uploadDir)
}

func TestUploadProcessingError(t *testing.T) {
	t.Parallel()

	dbErr := errors.New(errors.NewStd("database is locked")).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Build()
	ing := &stubIngester{err: dbErr}
	s, uploadDir := newTestServer(t, ing, nil)

	rec := serve(s, uploadRequest(t, "file", "export.csv", []byte("1,2024-01-01,x\n")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	resp := decodeError(t, rec)
	assert.Equal(t, "Error processing file: database is locked", resp.Message)
	assert.Equal(t, resp.Message, resp.Error)
	assert.Equal(t, 1, ing.callCount())
	assertDirEmpty(t, uploadDir)
}

func TestUploadIngesterPanic(t *testing.T) {
	t.Parallel()

	ing := &stubIngester{panicWith: "boom"}
	s, uploadDir := newTestServer(t, ing, nil)

	rec := serve(s, uploadRequest(t, "file", "export.csv", []byte("1,2024-01-01,x\n")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	resp := decodeError(t, rec)
	assert.Equal(t, "Error processing file: boom", resp.Message)
	assert.Equal(t, resp.Message, resp.Error)
	assertDirEmpty(t, uploadDir)
}

func TestUploadBodyLimit(t *testing.T) {
	t.Parallel()

	ing := &stubIngester{}
	s, _ := newTestServer(t, ing, func(settings *conf.Settings) {
		settings.Upload.MaxSize = 1024
	})

	rec := serve(s, uploadRequest(t, "file", "export.csv", bytes.Repeat([]byte("x"), 4096)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, http.StatusRequestEntityTooLarge, decodeError(t, rec).Code)
	assert.Zero(t, ing.callCount())
}

func TestUploadRateLimit(t *testing.T) {
	t.Parallel()

	ing := &stubIngester{result: &ingest.Result{Success: true}}
	s, _ := newTestServer(t, ing, func(settings *conf.Settings) {
		settings.WebServer.RateLimit = 0.001
		settings.WebServer.RateBurst = 1
	})

	first := serve(s, uploadRequest(t, "file", "export.csv", []byte("1,2024-01-01,x\n")))
	assert.Equal(t, http.StatusOK, first.Code)

	second := serve(s, uploadRequest(t, "file", "export.csv", []byte("1,2024-01-01,x\n")))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, 1, ing.callCount())
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, &stubIngester{}, nil)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/health", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "nutrilog-test", body["name"])
	assert.Equal(t, "unknown", body["version"])
	assert.Contains(t, body, "upload_disk_used_percent")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestHealthCheckUsesCachedDiskUsage(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, &stubIngester{}, func(settings *conf.Settings) {
		settings.Upload.Dir = filepath.Join(t.TempDir(), "not-created")
	})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/health", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotContains(t, body, "upload_disk_used_percent")

	s.statsCache.Set(diskUsageCacheKey, 42.5, cache.DefaultExpiration)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/health", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	body = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.InDelta(t, 42.5, body["upload_disk_used_percent"], 0.001)
}

func TestGrafanaRedirect(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, &stubIngester{}, nil)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/grafana", http.NoBody))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://grafana.local/d/nutrition", rec.Header().Get(echo.HeaderLocation))
}

func TestIndexPage(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, &stubIngester{}, nil)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMETextHTML)
	assert.Contains(t, rec.Body.String(), `name="file"`)
}

func TestCORSHeaders(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, &stubIngester{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/health", http.NoBody)
	req.Header.Set(echo.HeaderOrigin, "http://example.com")
	rec := serve(s, req)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	m, err := observability.NewMetrics()
	require.NoError(t, err)
	m.Ingest.RecordRows(metrics.RowsUpserted, 2)

	s, _ := newTestServer(t, &stubIngester{}, nil, WithMetrics(m))
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "nutrilog_records_upserted_total 2")
}

func TestMetricsEndpointAbsentWithoutMetrics(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, &stubIngester{}, nil)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, decodeError(t, rec).Code)
}

func TestNewRequiresIngester(t *testing.T) {
	t.Parallel()

	_, err := New(&conf.Settings{}, nil)
	assert.Error(t, err)
}

type blockingIngester struct {
	started   chan struct{}
	release   chan struct{}
	active    atomic.Int32
	maxActive atomic.Int32
}

func (b *blockingIngester) ProcessFile(context.Context, string, string) (*ingest.Result, error) {
	n := b.active.Add(1)
	for {
		prev := b.maxActive.Load()
		if n <= prev || b.maxActive.CompareAndSwap(prev, n) {
			break
		}
	}
	b.started <- struct{}{}
	<-b.release
	b.active.Add(-1)
	return &ingest.Result{Success: true}, nil
}

func TestUploadsAreSerialized(t *testing.T) {
	t.Parallel()

	ing := &blockingIngester{
		started: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	s, _ := newTestServer(t, ing, nil)

	codes := make([]int, 2)
	var wg sync.WaitGroup
	for i := range codes {
		req := uploadRequest(t, "file", "export.csv", []byte("1,2024-01-01,x\n"))
		wg.Go(func() {
			codes[i] = serve(s, req).Code
		})
	}

	testutil.WaitForChannel(t, ing.started, testutil.DefaultTestTimeout, "first upload did not reach the ingester")
	testutil.RequireNoSignal(t, ing.started, testutil.ShortTestTimeout, "second upload ran while the first was in progress")

	close(ing.release)
	wg.Wait()

	assert.Equal(t, []int{http.StatusOK, http.StatusOK}, codes)
	assert.Equal(t, int32(1), ing.maxActive.Load())
}

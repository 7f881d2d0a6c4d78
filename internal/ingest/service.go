// Package ingest runs the CSV pipeline: extract records, derive metrics and
// upsert them into the datastore.
package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nutrilog/nutrilog/internal/conf"
	"github.com/nutrilog/nutrilog/internal/datastore"
	"github.com/nutrilog/nutrilog/internal/errors"
	"github.com/nutrilog/nutrilog/internal/logger"
	"github.com/nutrilog/nutrilog/internal/observability/metrics"
	"github.com/nutrilog/nutrilog/internal/parser"
	"github.com/nutrilog/nutrilog/internal/transform"
)

// MsgNoData is returned when parsing yields no records.
const MsgNoData = "No valid data found in the CSV file after parsing"

// Result summarizes a successful ingest.
type Result struct {
	Success         bool    `json:"success"`
	Message         string  `json:"message"`
	Filename        string  `json:"filename"`
	UsersProcessed  int     `json:"users_processed"`
	UserIDs         []int64 `json:"users_processed_details"`
	RecordsInserted int     `json:"records_inserted"`
	DegradedRows    int     `json:"degraded_rows"`
}

// Service wires the parser, deriver and datastore together.
type Service struct {
	store    datastore.Interface
	settings conf.IngestSettings
	metrics  metrics.Recorder
	log      logger.Logger
}

// NewService creates an ingest service. A nil recorder disables metrics.
func NewService(store datastore.Interface, settings conf.IngestSettings, recorder metrics.Recorder) *Service {
	if recorder == nil {
		recorder = metrics.NopRecorder{}
	}
	return &Service{
		store:    store,
		settings: settings,
		metrics:  recorder,
		log:      logger.Global().Module("ingest"),
	}
}

// ProcessFile opens path and runs Process on it. filename is the name
// reported back to the caller.
func (s *Service) ProcessFile(ctx context.Context, path, filename string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.FileError(err, path, 0)
	}
	defer func() {
		if err := f.Close(); err != nil {
			s.log.Warn("Failed to close uploaded file", logger.Error(err))
		}
	}()

	return s.Process(ctx, f, filename)
}

// Process ingests one CSV document. Validation failures are returned as
// errors in errors.CategoryValidation; anything else is a server-side failure.
func (s *Service) Process(ctx context.Context, r io.Reader, filename string) (result *Result, err error) {
	start := time.Now()
	log := s.log.WithContext(ctx).With(logger.String("filename", filename))

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("Panic while processing file", logger.Any("panic", rec))
			result, err = nil, errors.Newf("panic: %v", rec).
				Component("ingest").
				Category(errors.CategoryProcessing).
				Priority(errors.PriorityHigh).
				Build()
		}
		s.recordOutcome(err, time.Since(start))
	}()

	log.Info("Parsing CSV file")
	parseStart := time.Now()
	batch, err := parser.Parse(r, parser.WithHeader(s.settings.HeaderRow))
	s.metrics.RecordDuration(metrics.OpParse, time.Since(parseStart).Seconds())
	if err != nil {
		s.metrics.RecordError(metrics.OpParse, categoryOf(err))
		log.Error("Validation error", logger.Error(err))
		return nil, err
	}
	s.metrics.RecordRows(metrics.RowsDegraded, batch.Degraded)

	if len(batch.Records) == 0 {
		log.Error("Validation error", logger.String("error", MsgNoData))
		return nil, errors.ValidationError(MsgNoData)
	}

	users := batch.UserIDs()
	log.Info("Found data for users",
		logger.Int("users", len(users)),
		logger.String("user_ids", joinIDs(users)))

	log.Info("Transforming data")
	deriveStart := time.Now()
	derived := transform.DeriveWith(batch, transform.Options{PropagateMissing: s.settings.PropagateMissing})
	s.metrics.RecordDuration(metrics.OpDerive, time.Since(deriveStart).Seconds())

	log.Info("Inserting data into database")
	upsertStart := time.Now()
	written, err := s.store.UpsertRecords(ctx, derived.Records)
	s.metrics.RecordDuration(metrics.OpUpsert, time.Since(upsertStart).Seconds())
	if err != nil {
		s.metrics.RecordError(metrics.OpUpsert, categoryOf(err))
		log.Error("Error processing file", logger.Error(err))
		return nil, err
	}
	s.metrics.RecordRows(metrics.RowsUpserted, written)

	return &Result{
		Success:         true,
		Message:         successMessage(written, users),
		Filename:        filename,
		UsersProcessed:  len(users),
		UserIDs:         users,
		RecordsInserted: written,
		DegradedRows:    batch.Degraded,
	}, nil
}

func (s *Service) recordOutcome(err error, elapsed time.Duration) {
	s.metrics.RecordDuration(metrics.OpUpload, elapsed.Seconds())
	switch {
	case err == nil:
		s.metrics.RecordOperation(metrics.OpUpload, metrics.StatusSuccess)
	case errors.IsValidation(err):
		s.metrics.RecordOperation(metrics.OpUpload, metrics.StatusRejected)
	default:
		s.metrics.RecordOperation(metrics.OpUpload, metrics.StatusError)
	}
}

// successMessage mirrors the summary shown to the uploader.
func successMessage(written int, users []int64) string {
	var summary string
	if len(users) == 1 {
		summary = fmt.Sprintf("Data for user ID %d processed successfully.", users[0])
	} else {
		summary = fmt.Sprintf("Data for %d users processed successfully.", len(users))
	}
	return fmt.Sprintf("File uploaded and processed successfully. %d records inserted. %s", written, summary)
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ", ")
}

func categoryOf(err error) string {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return ee.GetCategory()
	}
	return string(errors.CategoryGeneric)
}

package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutrilog/nutrilog/internal/conf"
	"github.com/nutrilog/nutrilog/internal/datastore"
	"github.com/nutrilog/nutrilog/internal/errors"
	"github.com/nutrilog/nutrilog/internal/observability/metrics"
	"github.com/nutrilog/nutrilog/internal/parser"
)

func csvOf(t *testing.T, rows ...[]string) string {
	t.Helper()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.WriteAll(rows))
	return buf.String()
}

func openStore(t *testing.T) datastore.Interface {
	t.Helper()

	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "ingest.db")

	store := datastore.New(settings)
	require.NoError(t, store.Open())
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

var jan1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestProcessEndToEnd(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openStore(t)
	recorder := metrics.NewTestRecorder()
	svc := NewService(store, conf.IngestSettings{}, recorder)

	input := csvOf(t,
		[]string{"7", "2024-01-01", `{"Calories": 2000, "Carbs": 250, "Fat": 70, "Protein": 100}`},
		[]string{"7", "2024-01-02", `[{"name": "Calories", "value": "650"}]`},
		[]string{"9", "2024-01-01", `{"meal": 1, "dishes": "broken"}`},
	)

	res, err := svc.Process(ctx, strings.NewReader(input), "export.csv")
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "export.csv", res.Filename)
	assert.Equal(t, 3, res.RecordsInserted)
	assert.Equal(t, 2, res.UsersProcessed)
	assert.Equal(t, []int64{7, 9}, res.UserIDs)
	assert.Equal(t, 1, res.DegradedRows)
	assert.Equal(t, "File uploaded and processed successfully. 3 records inserted. Data for 2 users processed successfully.", res.Message)

	rec, err := store.GetRecord(ctx, 7, jan1)
	require.NoError(t, err)
	assert.Equal(t, parser.Float64(1000), rec.CarbsCalories)
	assert.Equal(t, parser.Float64(630), rec.FatCalories)
	assert.Equal(t, parser.Float64(400), rec.ProteinCalories)
	assert.Nil(t, rec.NetCalories, "no exercise column in this export")

	rec, err = store.GetRecord(ctx, 9, jan1)
	require.NoError(t, err)
	assert.Nil(t, rec.Calories)
	assert.Equal(t, parser.Float64(0), rec.CarbsCalories, "missing macros count as zero")

	assert.Equal(t, 1, recorder.GetOperationCount(metrics.OpUpload, metrics.StatusSuccess))
	assert.Equal(t, 3, recorder.GetRows(metrics.RowsUpserted))
	assert.Equal(t, 1, recorder.GetRows(metrics.RowsDegraded))
	assert.Len(t, recorder.GetDurations(metrics.OpUpsert), 1)
}

func TestProcessReuploadIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openStore(t)
	svc := NewService(store, conf.IngestSettings{}, nil)

	input := csvOf(t,
		[]string{"7", "01-01-2024", `{"Sugar": 12}`},
		[]string{"7", "02-01-2024", `{"Sugar": 8}`},
	)

	for range 2 {
		res, err := svc.Process(ctx, strings.NewReader(input), "a.csv")
		require.NoError(t, err)
		assert.Equal(t, 2, res.RecordsInserted)
		assert.Equal(t, "File uploaded and processed successfully. 2 records inserted. Data for user ID 7 processed successfully.", res.Message)
	}

	count, err := store.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	rec, err := store.GetRecord(ctx, 7, time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, parser.Float64(8), rec.Sugar)
}

func TestProcessValidationErrorPersistsNothing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openStore(t)
	recorder := metrics.NewTestRecorder()
	svc := NewService(store, conf.IngestSettings{}, recorder)

	_, err := svc.Process(ctx, strings.NewReader("7,2024-01-01\n"), "narrow.csv")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), parser.MsgTooFewColumns)

	count, err := store.CountRecords(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.Equal(t, 1, recorder.GetOperationCount(metrics.OpUpload, metrics.StatusRejected))
	assert.Equal(t, 1, recorder.GetErrorCount(metrics.OpParse, string(errors.CategoryValidation)))
}

func TestProcessHeaderOnlyWithHeaderRow(t *testing.T) {
	t.Parallel()
	svc := NewService(openStore(t), conf.IngestSettings{HeaderRow: true}, nil)

	_, err := svc.Process(context.Background(), strings.NewReader("user,date,data\n"), "h.csv")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestProcessPropagateMissing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openStore(t)
	svc := NewService(store, conf.IngestSettings{PropagateMissing: true}, nil)

	_, err := svc.Process(ctx, strings.NewReader(csvOf(t, []string{"3", "2024-01-01", `{"Fat": 2}`})), "p.csv")
	require.NoError(t, err)

	rec, err := store.GetRecord(ctx, 3, jan1)
	require.NoError(t, err)
	assert.Nil(t, rec.CarbsCalories)
	assert.Equal(t, parser.Float64(18), rec.FatCalories)
}

type failingStore struct {
	datastore.Interface
	err error
}

func (f failingStore) UpsertRecords(context.Context, []parser.Record) (int, error) {
	return 0, f.err
}

func TestProcessDatastoreFailure(t *testing.T) {
	t.Parallel()

	dbErr := errors.New(errors.NewStd("connection reset")).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Build()
	recorder := metrics.NewTestRecorder()
	svc := NewService(failingStore{err: dbErr}, conf.IngestSettings{}, recorder)

	res, err := svc.Process(context.Background(), strings.NewReader(csvOf(t, []string{"1", "2024-01-01", "x"})), "f.csv")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.False(t, errors.IsValidation(err))
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))
	assert.Equal(t, 1, recorder.GetOperationCount(metrics.OpUpload, metrics.StatusError))
	assert.Equal(t, 1, recorder.GetErrorCount(metrics.OpUpsert, string(errors.CategoryDatabase)))
}

type panickingStore struct{ datastore.Interface }

func (panickingStore) UpsertRecords(context.Context, []parser.Record) (int, error) {
	panic("driver exploded")
}

func TestProcessRecoversFromPanic(t *testing.T) {
	t.Parallel()
	svc := NewService(panickingStore{}, conf.IngestSettings{}, nil)

	_, err := svc.Process(context.Background(), strings.NewReader(csvOf(t, []string{"1", "2024-01-01", "x"})), "f.csv")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryProcessing))
	assert.Contains(t, err.Error(), "panic: driver exploded")
}

func TestProcessFile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewService(openStore(t), conf.IngestSettings{}, nil)

	path := filepath.Join(t.TempDir(), "upload.csv")
	require.NoError(t, os.WriteFile(path, []byte(csvOf(t, []string{"4", "2024-01-01", `{"Protein": 30}`})), 0o600))

	res, err := svc.ProcessFile(ctx, path, "upload.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, res.RecordsInserted)

	_, err = svc.ProcessFile(ctx, filepath.Join(t.TempDir(), "missing.csv"), "missing.csv")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}

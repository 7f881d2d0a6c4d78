package errors

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderSetsFields(t *testing.T) {
	t.Parallel()

	ee := New(fmt.Errorf("boom")).
		Component("datastore").
		Category(CategoryDatabase).
		Priority(PriorityHigh).
		Context("operation", "upsert").
		Build()

	assert.Equal(t, "boom", ee.Error())
	assert.Equal(t, "datastore", ee.GetComponent())
	assert.Equal(t, CategoryDatabase, ee.Category)
	assert.Equal(t, PriorityHigh, ee.GetPriority())
	assert.Equal(t, "upsert", ee.GetContext()["operation"])
}

func TestInvalidPriorityFallsBackToMedium(t *testing.T) {
	t.Parallel()

	ee := New(fmt.Errorf("x")).Priority("urgent").Build()
	assert.Equal(t, PriorityMedium, ee.Priority)
}

func TestCategoryDetection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		component string
		want      ErrorCategory
	}{
		{"validation message", fmt.Errorf("invalid date"), "", CategoryValidation},
		{"timeout message", fmt.Errorf("context deadline exceeded"), "", CategoryTimeout},
		{"datastore component", fmt.Errorf("disk I/O"), "datastore", CategoryDatabase},
		{"parser component", fmt.Errorf("bad row"), "parser", CategoryFileParsing},
		{"generic", fmt.Errorf("something"), "", CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ee := New(tt.err).Component(tt.component).Build()
			assert.Equal(t, tt.want, ee.Category)
		})
	}
}

func TestCategoryInheritedFromWrappedError(t *testing.T) {
	t.Parallel()

	inner := ValidationError("too few columns")
	outer := New(fmt.Errorf("parse: %w", inner)).Build()

	assert.Equal(t, CategoryValidation, outer.Category)
	assert.True(t, IsValidation(outer))
	assert.True(t, Is(outer, inner))
}

func TestIsCategory(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("wrapped: %w", New(fmt.Errorf("db down")).Category(CategoryDatabase).Build())
	assert.True(t, IsCategory(err, CategoryDatabase))
	assert.False(t, IsCategory(err, CategoryValidation))
	assert.False(t, IsCategory(fmt.Errorf("plain"), CategoryDatabase))
}

func TestGetContextReturnsCopy(t *testing.T) {
	t.Parallel()

	ee := New(fmt.Errorf("x")).Context("k", "v").Build()
	ctx := ee.GetContext()
	require.NotNil(t, ctx)
	ctx["k"] = "changed"

	assert.Equal(t, "v", ee.GetContext()["k"])
}

func TestFileContext(t *testing.T) {
	t.Parallel()

	ee := FileError(fmt.Errorf("cannot open"), "/tmp/upload/export.CSV", 2048)
	assert.Equal(t, CategoryFileIO, ee.Category)
	assert.Equal(t, "csv", ee.GetContext()["file_extension"])
	assert.Equal(t, "small", ee.GetContext()["file_size_category"])
}

func TestTimingContext(t *testing.T) {
	t.Parallel()

	ee := New(fmt.Errorf("deadlock")).
		Component("datastore").
		Timing("upsert_transaction", 1500*time.Millisecond).
		Build()

	assert.Equal(t, "upsert_transaction", ee.GetContext()["operation"])
	assert.Equal(t, int64(1500), ee.GetContext()["duration_ms"])
	assert.Equal(t, "deadlock", ee.GetMessage())
}

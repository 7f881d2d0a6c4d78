package diskmanager

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutrilog/nutrilog/internal/errors"
)

func TestGetDiskUsage(t *testing.T) {
	t.Parallel()

	percent, err := GetDiskUsage(t.TempDir())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, percent, 0.0)
	assert.LessOrEqual(t, percent, 100.0)
}

func TestGetDetailedDiskUsage(t *testing.T) {
	t.Parallel()

	info, err := GetDetailedDiskUsage(t.TempDir())
	require.NoError(t, err)
	assert.Positive(t, info.TotalBytes)
	assert.LessOrEqual(t, info.UsedBytes, info.TotalBytes)
}

func TestGetDiskUsageMissingPath(t *testing.T) {
	t.Parallel()

	_, err := GetDiskUsage(filepath.Join(t.TempDir(), "does", "not", "exist"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}

// age.go age based cleanup of staged uploads
package diskmanager

import (
	"os"
	"time"

	"github.com/nutrilog/nutrilog/internal/errors"
	"github.com/nutrilog/nutrilog/internal/logger"
)

// DefaultMaxStagedAge is how long a staged upload may linger before it is
// treated as left over from an interrupted request.
const DefaultMaxStagedAge = time.Hour

// AgeBasedCleanup removes staged uploads in dir last modified more than
// maxAge before now. It returns the number of files removed.
func AgeBasedCleanup(dir string, allowedExts []string, maxAge time.Duration, now time.Time) (int, error) {
	log := logger.Global().Module("diskmanager")

	files, err := GetStagedFiles(dir, allowedExts)
	if err != nil {
		return 0, errors.New(err).
			Component("diskmanager").
			Category(errors.CategoryFileIO).
			Context("operation", "list_staged_uploads").
			Context("dir", dir).
			Build()
	}

	cutoff := now.Add(-maxAge)
	removed := 0
	for _, file := range files {
		if !file.ModTime.Before(cutoff) {
			continue
		}

		if err := os.Remove(file.Path); err != nil {
			if !os.IsNotExist(err) {
				log.Warn("Failed to remove stale upload",
					logger.String("path", file.Path),
					logger.Error(err))
			}
			continue
		}

		removed++
		log.Debug("Removed stale upload",
			logger.String("path", file.Path),
			logger.String("upload_id", file.UploadID.String()),
			logger.Duration("age", now.Sub(file.ModTime)))
	}

	if removed > 0 {
		log.Info("Cleaned up stale uploads",
			logger.Int("removed", removed),
			logger.String("dir", dir))
	}

	return removed, nil
}

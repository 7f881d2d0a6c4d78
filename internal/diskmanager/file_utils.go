// file_utils.go - staged upload file handling
package diskmanager

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileInfo holds information about a staged upload
type FileInfo struct {
	Path     string
	UploadID uuid.UUID
	Name     string // sanitized client filename
	ModTime  time.Time
	Size     int64
}

// GetStagedFiles returns the staged uploads directly inside baseDir whose
// extension is in allowedExts. Files not named <uuid>_<name> are ignored so
// that nothing else placed in the directory is ever touched.
func GetStagedFiles(baseDir string, allowedExts []string) ([]FileInfo, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read upload directory: %w", err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(entry.Name()), "."))
		if !slices.Contains(allowedExts, ext) {
			continue
		}

		fileInfo, ok := parseFileInfo(entry.Name())
		if !ok {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// removed concurrently
			continue
		}
		fileInfo.Path = filepath.Join(baseDir, entry.Name())
		fileInfo.ModTime = info.ModTime()
		fileInfo.Size = info.Size()
		files = append(files, fileInfo)
	}

	return files, nil
}

// parseFileInfo splits a staged file name into its upload ID and client name.
func parseFileInfo(name string) (FileInfo, bool) {
	idPart, rest, found := strings.Cut(name, "_")
	if !found || rest == "" {
		return FileInfo{}, false
	}

	id, err := uuid.Parse(idPart)
	if err != nil {
		return FileInfo{}, false
	}

	return FileInfo{UploadID: id, Name: rest}, true
}

package diskmanager

import (
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/nutrilog/nutrilog/internal/errors"
)

// DiskSpaceInfo holds the size of the filesystem containing a path.
type DiskSpaceInfo struct {
	TotalBytes  uint64
	UsedBytes   uint64
	UsedPercent float64
}

// GetDiskUsage returns the disk usage percentage for the given path
func GetDiskUsage(path string) (float64, error) {
	info, err := GetDetailedDiskUsage(path)
	if err != nil {
		return 0, err
	}
	return info.UsedPercent, nil
}

// GetDetailedDiskUsage returns the total and used space of the filesystem
// containing path.
func GetDetailedDiskUsage(path string) (DiskSpaceInfo, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return DiskSpaceInfo{}, errors.New(err).
			Component("diskmanager").
			Category(errors.CategoryFileIO).
			Context("operation", "disk_usage").
			Build()
	}

	return DiskSpaceInfo{
		TotalBytes:  usage.Total,
		UsedBytes:   usage.Used,
		UsedPercent: usage.UsedPercent,
	}, nil
}

package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

var startedAt = time.Now()

// SysHealth represents real-time process metrics for the health endpoint
// and the admin report.
type SysHealth struct {
	AllocMB      uint64 `json:"alloc_mb"`
	SysMB        uint64 `json:"sys_mb"`
	NumGC        uint32 `json:"num_gc"`
	Goroutines   int    `json:"goroutines"`
	Uptime       string `json:"uptime"`
	DataDiskSize string `json:"data_disk_size"`
}

// GetSysHealth collects real-time health data. dataPath is the directory
// holding the database.
func GetSysHealth(dataPath string) SysHealth {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SysHealth{
		AllocMB:      m.Alloc / 1024 / 1024,
		SysMB:        m.Sys / 1024 / 1024,
		NumGC:        m.NumGC,
		Goroutines:   runtime.NumGoroutine(),
		Uptime:       time.Since(startedAt).Round(time.Second).String(),
		DataDiskSize: formatBytes(dirSize(dataPath)),
	}
}

func dirSize(path string) int64 {
	var size int64
	_ = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size
}

func formatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

package health

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Snapshot represents real-time process and storage health.
type Snapshot struct {
	Status       string `json:"status"`
	Uptime       string `json:"uptime"`
	AllocMB      uint64 `json:"alloc_mb"`
	SysMB        uint64 `json:"sys_mb"`
	NumGC        uint32 `json:"num_gc"`
	Goroutines   int    `json:"goroutines"`
	Backend      string `json:"backend"`
	DataDiskSize string `json:"data_disk_size,omitempty"`
}

var started = time.Now()

// Collect gathers a snapshot. dataPath is the on-disk location of the list
// storage; it is skipped when empty.
func Collect(backend, dataPath string) Snapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	s := Snapshot{
		Status:     "ok",
		Uptime:     time.Since(started).Round(time.Second).String(),
		AllocMB:    m.Alloc / 1024 / 1024,
		SysMB:      m.Sys / 1024 / 1024,
		NumGC:      m.NumGC,
		Goroutines: runtime.NumGoroutine(),
		Backend:    backend,
	}
	if dataPath != "" {
		s.DataDiskSize = FormatBytes(dirSize(dataPath))
	}
	return s
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

// FormatBytes renders a byte count using binary units.
func FormatBytes(size int64) string {
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

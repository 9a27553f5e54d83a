package observability

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

// ProcessStats is the payload of the debug endpoint.
type ProcessStats struct {
	PID           int32   `json:"pid"`
	Status        string  `json:"status"`
	CPUPercent    float64 `json:"cpu_percent"`
	RSSBytes      uint64  `json:"rss_bytes"`
	NumThreads    int32   `json:"num_threads"`
	Goroutines    int     `json:"goroutines"`
	AllocMemMb    uint64  `json:"alloc_mem_mb"`
	NumGC         uint32  `json:"num_gc"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// CollectProcessStats reads the resource usage of the current process. Go runtime figures are always
// filled, OS figures only when gopsutil could read them.
func CollectProcessStats(startedAt time.Time) (ProcessStats, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	stats := ProcessStats{
		PID:           int32(os.Getpid()),
		Goroutines:    runtime.NumGoroutine(),
		AllocMemMb:    m.Alloc / 1024 / 1024,
		NumGC:         m.NumGC,
		UptimeSeconds: time.Since(startedAt).Seconds(),
	}

	p, err := process.NewProcess(stats.PID)
	if err != nil {
		return stats, err
	}
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return stats, err
	}
	stats.RSSBytes = memInfo.RSS

	if stats.CPUPercent, err = p.CPUPercent(); err != nil {
		return stats, err
	}
	if stats.NumThreads, err = p.NumThreads(); err != nil {
		return stats, err
	}
	if stats.Status, err = p.Status(); err != nil {
		return stats, err
	}
	return stats, nil
}

package api

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/tphakala/proctor-go/internal/logger"
)

const (
	serviceName      = "Proctor AI"
	healthyStatus    = "healthy"
	snapshotKey      = "system"
	snapshotLifetime = 5 * time.Second
)

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status        string          `json:"status"`
	Service       string          `json:"service"`
	Version       string          `json:"version,omitempty"`
	UptimeSeconds float64         `json:"uptime_seconds"`
	Timestamp     string          `json:"timestamp"`
	System        *SystemSnapshot `json:"system,omitempty"`
}

// SystemSnapshot holds host and process figures. Sampling them costs a few
// syscalls, so snapshots are cached briefly.
type SystemSnapshot struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	ProcessRSS    uint64  `json:"process_rss_bytes"`
	Goroutines    int     `json:"goroutines"`
	NumCPU        int     `json:"num_cpu"`
	SpoolFree     uint64  `json:"spool_free_bytes"` // free space where uploads are spooled
}

type healthReporter struct {
	version   string
	startTime time.Time
	cache     *cache.Cache
	sample    func() (*SystemSnapshot, error)
}

func newHealthReporter(version, spoolDir string) *healthReporter {
	return &healthReporter{
		version:   version,
		startTime: time.Now(),
		cache:     cache.New(snapshotLifetime, 2*snapshotLifetime),
		sample: func() (*SystemSnapshot, error) {
			return sampleSystem(spoolDir)
		},
	}
}

func (h *healthReporter) report() HealthResponse {
	resp := HealthResponse{
		Status:        healthyStatus,
		Service:       serviceName,
		Version:       h.version,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		Timestamp:     time.Now().Format(time.RFC3339),
	}

	if cached, ok := h.cache.Get(snapshotKey); ok {
		resp.System = cached.(*SystemSnapshot)
		return resp
	}

	snapshot, err := h.sample()
	if err != nil {
		// Health stays green; missing host figures are not an outage
		GetLogger().Debug("System snapshot unavailable", logger.Error(err))
		return resp
	}
	h.cache.SetDefault(snapshotKey, snapshot)
	resp.System = snapshot
	return resp
}

func sampleSystem(spoolDir string) (*SystemSnapshot, error) {
	snapshot := &SystemSnapshot{
		Goroutines: runtime.NumGoroutine(),
		NumCPU:     runtime.NumCPU(),
	}

	percents, err := cpu.Percent(0, false)
	if err != nil {
		return nil, err
	}
	if len(percents) > 0 {
		snapshot.CPUPercent = percents[0]
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil, err
	}
	snapshot.MemoryPercent = vm.UsedPercent

	proc, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // pid fits int32
	if err != nil {
		return nil, err
	}
	if info, err := proc.MemoryInfo(); err == nil {
		snapshot.ProcessRSS = info.RSS
	}

	// Video uploads are spooled here; a full disk fails them with 500
	free, err := diskFreeSpace(spoolDir)
	if err != nil {
		GetLogger().Debug("Spool free space unavailable", logger.String("dir", spoolDir), logger.Error(err))
	} else {
		snapshot.SpoolFree = free
	}

	return snapshot, nil
}

// healthCheck handles GET /health
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, s.health.report())
}

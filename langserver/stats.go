package langserver

import (
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/teranos/bufkit/errors"
)

// ProcessStats is a snapshot of the server process.
type ProcessStats struct {
	PID        int           `json:"pid"`
	RSSBytes   uint64        `json:"rss_bytes"`
	CPUPercent float64       `json:"cpu_percent"`
	Uptime     time.Duration `json:"uptime"`
	Restarts   int           `json:"restarts"`
}

// Stats samples the running server. It returns ErrNotRunning when no
// process is up.
func (m *Manager) Stats() (ProcessStats, error) {
	m.mu.Lock()
	client := m.client
	started := m.started
	restarts := m.restarts
	m.mu.Unlock()

	if client == nil {
		return ProcessStats{Restarts: restarts}, ErrNotRunning
	}

	pid := client.PID()
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return ProcessStats{}, errors.Wrapf(err, "failed to inspect buf lsp process %d", pid)
	}

	stats := ProcessStats{
		PID:      pid,
		Uptime:   time.Since(started),
		Restarts: restarts,
	}
	if mem, err := proc.MemoryInfo(); err == nil {
		stats.RSSBytes = mem.RSS
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	}
	return stats, nil
}

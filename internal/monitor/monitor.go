// Package monitor publishes a periodic snapshot of the bridge host (CPU,
// RAM, disk) to MQTT so the stack's dashboard can spot a struggling
// Raspberry Pi before readings start to lag.
package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

const statsTopic = "logs/room-bridge/stats"

// HostStats is one snapshot of the machine the bridge runs on.
type HostStats struct {
	CPULoad float64 `json:"cpu_load"`

	RAMUsedMB  float64 `json:"ram_used_mb"`
	RAMTotalMB float64 `json:"ram_total_mb"`

	DiskUsedGB  float64 `json:"disk_used_gb"`
	DiskTotalGB float64 `json:"disk_total_gb"`
}

type Monitor struct {
	client   mqtt.Client
	logger   *slog.Logger
	interval time.Duration
}

func NewMonitor(client mqtt.Client, logger *slog.Logger, interval time.Duration) *Monitor {
	return &Monitor{client: client, logger: logger, interval: interval}
}

// Run publishes stats until the context ends. Meant to be started as a
// goroutine from main.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := collect(m.logger)
			payload, err := json.Marshal(stats)
			if err != nil {
				m.logger.Error("Cannot marshal host stats", "error", err)
				continue
			}
			// Fire-and-forget, same as log lines.
			m.client.Publish(statsTopic, 0, false, payload)
		}
	}
}

// collect gathers what it can; a failing probe is logged and leaves its
// fields zero rather than aborting the whole snapshot.
func collect(logger *slog.Logger) HostStats {
	var stats HostStats

	// One-second sampling window, averaged over all cores.
	percentages, err := cpu.Percent(time.Second, false)
	if err == nil && len(percentages) > 0 {
		stats.CPULoad = percentages[0]
	} else {
		logger.Error("Cannot read CPU stats", "error", err)
	}

	if vMem, err := mem.VirtualMemory(); err == nil {
		// Total - Available, so Linux page cache does not count as
		// used memory.
		stats.RAMUsedMB = float64(vMem.Total-vMem.Available) / 1024.0 / 1024.0
		stats.RAMTotalMB = float64(vMem.Total) / 1024.0 / 1024.0
	} else {
		logger.Error("Cannot read RAM stats", "error", err)
	}

	if usage, err := disk.Usage("/"); err == nil {
		stats.DiskUsedGB = float64(usage.Used) / 1024.0 / 1024.0 / 1024.0
		stats.DiskTotalGB = float64(usage.Total) / 1024.0 / 1024.0 / 1024.0
	} else {
		logger.Error("Cannot read disk stats", "error", err)
	}

	return stats
}

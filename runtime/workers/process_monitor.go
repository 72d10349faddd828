package workers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"presence-chat/contract"
	"time"

	"github.com/shirou/gopsutil/process"
)

var _ contract.Worker = (*ProcessMonitorWorker)(nil)

// ProcessSample is one resource reading of the server process.
type ProcessSample struct {
	PID    int32
	Status string
	CPU    float64
	RAM    float32
	RSS    uint64
}

// ProcessMonitorWorker periodically logs the CPU and memory usage of the
// running server.
type ProcessMonitorWorker struct {
	log      *slog.Logger
	interval time.Duration
	pid      int32
}

func NewProcessMonitorWorker(log *slog.Logger, interval time.Duration) *ProcessMonitorWorker {
	return &ProcessMonitorWorker{log: log, interval: interval, pid: int32(os.Getpid())}
}

func (w *ProcessMonitorWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping process monitor")
			return nil
		case <-ticker.C:
			sample, err := w.Sample()
			if err != nil {
				w.log.Warn("Process sampling failed", "pid", w.pid, "error", err)
				continue
			}
			w.log.Info("Process usage",
				"pid", sample.PID,
				"status", sample.Status,
				"cpu_percent", sample.CPU,
				"ram_percent", sample.RAM,
				"rss_bytes", sample.RSS)
		}
	}
}

// Sample reads the current usage of the monitored process.
func (w *ProcessMonitorWorker) Sample() (ProcessSample, error) {
	p, err := process.NewProcess(w.pid)
	if err != nil {
		return ProcessSample{}, fmt.Errorf("retrieving process %d: %w", w.pid, err)
	}
	status, err := p.Status()
	if err != nil {
		return ProcessSample{}, fmt.Errorf("finding process status: %w", err)
	}
	cpu, err := p.CPUPercent()
	if err != nil {
		return ProcessSample{}, fmt.Errorf("finding process cpu usage: %w", err)
	}
	ram, err := p.MemoryPercent()
	if err != nil {
		return ProcessSample{}, fmt.Errorf("finding process ram usage: %w", err)
	}
	memory, err := p.MemoryInfo()
	if err != nil {
		return ProcessSample{}, fmt.Errorf("finding process memory info: %w", err)
	}
	return ProcessSample{PID: w.pid, Status: status, CPU: cpu, RAM: ram, RSS: memory.RSS}, nil
}

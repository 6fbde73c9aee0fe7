package workers

import (
	"context"
	"log/slog"
	goruntime "runtime"
	"time"

	"github.com/shirou/gopsutil/process"

	"pulse-lab/observability"
)

// ConnectionCounter is the slice of the registry the reporter needs.
type ConnectionCounter interface {
	ConnectionCount() int
}

// TelemetryReporter periodically refreshes the system gauges: live
// connections, goroutines, process memory and CPU.
type TelemetryReporter struct {
	log      *slog.Logger
	registry ConnectionCounter
	metrics  *observability.Metrics
	interval time.Duration
	proc     *process.Process
}

func NewTelemetryReporter(log *slog.Logger, registry ConnectionCounter,
	metrics *observability.Metrics, interval time.Duration, pid int) *TelemetryReporter {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		// Gauges fall back to runtime-only numbers.
		log.Warn("process handle unavailable", "pid", pid, "error", err)
		proc = nil
	}
	return &TelemetryReporter{
		log:      log,
		registry: registry,
		metrics:  metrics,
		interval: interval,
		proc:     proc,
	}
}

func (w *TelemetryReporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping telemetry")
			return nil
		case <-ticker.C:
			w.report()
		}
	}
}

func (w *TelemetryReporter) report() {
	w.metrics.ConnectedPeers.Set(float64(w.registry.ConnectionCount()))
	w.metrics.GoroutineCount.Set(float64(goruntime.NumGoroutine()))

	if w.proc == nil {
		return
	}
	if memInfo, err := w.proc.MemoryInfo(); err == nil {
		w.metrics.ProcessMemoryMB.Set(float64(memInfo.RSS) / (1024 * 1024))
	}
	if cpuPercent, err := w.proc.CPUPercent(); err == nil {
		w.metrics.ProcessCPU.Set(cpuPercent)
	}
}

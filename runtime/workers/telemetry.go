package workers

import (
	"context"
	"log/slog"
	"os"
	goruntime "runtime"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Counter is anything able to report how many live items it holds.
type Counter interface {
	Count() int
}

// Snapshot is one telemetry sample of the server process.
type Snapshot struct {
	At         time.Time
	Sessions   int
	Rooms      int
	Goroutines int
	RSS        uint64
	CPUPercent float64
}

// TelemetryWorker samples the process and the chat engine at a fixed interval
// and logs the result.
type TelemetryWorker struct {
	log            *slog.Logger
	metricInterval time.Duration
	sessions       Counter
	rooms          Counter
	last           atomic.Pointer[Snapshot]
}

func NewTelemetryWorker(log *slog.Logger, metricInterval time.Duration, sessions, rooms Counter) *TelemetryWorker {
	return &TelemetryWorker{log: log, metricInterval: metricInterval, sessions: sessions, rooms: rooms}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping telemetry")
			return nil
		case <-ticker.C:
			snapshot := w.sample(proc)
			w.last.Store(&snapshot)
			w.log.Info("Telemetry",
				"sessions", snapshot.Sessions,
				"rooms", snapshot.Rooms,
				"goroutines", snapshot.Goroutines,
				"rss_bytes", snapshot.RSS,
				"cpu_percent", snapshot.CPUPercent)
		}
	}
}

// sample never fails: a process metric that cannot be read is left at zero.
func (w *TelemetryWorker) sample(proc *process.Process) Snapshot {
	snapshot := Snapshot{
		At:         time.Now().UTC(),
		Sessions:   w.sessions.Count(),
		Rooms:      w.rooms.Count(),
		Goroutines: goruntime.NumGoroutine(),
	}
	if mem, err := proc.MemoryInfo(); err == nil {
		snapshot.RSS = mem.RSS
	} else {
		w.log.Debug("Error while finding process memory", "err", err)
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		snapshot.CPUPercent = cpu
	} else {
		w.log.Debug("Error while finding process cpu usage", "err", err)
	}
	return snapshot
}

// Last returns the most recent sample, if one was taken.
func (w *TelemetryWorker) Last() (Snapshot, bool) {
	snapshot := w.last.Load()
	if snapshot == nil {
		return Snapshot{}, false
	}
	return *snapshot, true
}

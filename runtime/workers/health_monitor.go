package workers

import (
	"chatcode/contract"
	"context"
	"log/slog"
	"os"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

var _ contract.Worker = (*HealthMonitor)(nil)

type NamedChannel struct {
	Name    string
	Channel any
}

type QueueStats struct {
	Name     string
	Length   int
	Capacity int
}

// FillPercent is 0 for an unbuffered channel.
func (q QueueStats) FillPercent() int {
	if q.Capacity == 0 {
		return 0
	}
	return q.Length * 100 / q.Capacity
}

type HealthSample struct {
	At         time.Time
	Queues     []QueueStats
	RSSBytes   uint64
	CPUPercent float64
}

// HealthMonitor periodically samples the fill level of the internal queues
// and the resource usage of the process. Reading len and cap of a channel
// does not block its users.
type HealthMonitor struct {
	log       *slog.Logger
	channels  []NamedChannel
	interval  time.Duration
	threshold int
	latest    atomic.Pointer[HealthSample]
}

// NewHealthMonitor warns when a queue is filled above threshold percent.
func NewHealthMonitor(log *slog.Logger, channels []NamedChannel, interval time.Duration, threshold int) *HealthMonitor {
	return &HealthMonitor{log: log, channels: channels, interval: interval, threshold: threshold}
}

// Latest returns the last sample, false before the first tick.
func (m *HealthMonitor) Latest() (HealthSample, bool) {
	s := m.latest.Load()
	if s == nil {
		return HealthSample{}, false
	}
	return *s, true
}

func (m *HealthMonitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		m.log.Warn("Process stats unavailable", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			m.log.Debug("Stopping health monitor")
			return nil
		case <-ticker.C:
			sample := m.sample(p)
			m.latest.Store(&sample)
			m.report(sample)
		}
	}
}

func (m *HealthMonitor) sample(p *process.Process) HealthSample {
	sample := HealthSample{At: time.Now().UTC()}
	for _, nc := range m.channels {
		v := reflect.ValueOf(nc.Channel)
		if v.Kind() != reflect.Chan {
			m.log.Error("Provided object is not a channel", "name", nc.Name)
			continue
		}
		sample.Queues = append(sample.Queues, QueueStats{Name: nc.Name, Length: v.Len(), Capacity: v.Cap()})
	}
	if p == nil {
		return sample
	}
	if mem, err := p.MemoryInfo(); err == nil {
		sample.RSSBytes = mem.RSS
	}
	if cpu, err := p.CPUPercent(); err == nil {
		sample.CPUPercent = cpu
	}
	return sample
}

func (m *HealthMonitor) report(sample HealthSample) {
	for _, q := range sample.Queues {
		if q.FillPercent() >= m.threshold {
			m.log.Warn("Queue filling up", "queue", q.Name, "length", q.Length, "capacity", q.Capacity)
		}
	}
	m.log.Debug("Health sample", "rss_bytes", sample.RSSBytes, "cpu_percent", sample.CPUPercent, "queues", len(sample.Queues))
}

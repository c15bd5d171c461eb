package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestHealthMonitor_Samples_Queues_And_Process(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Given a queue filled at 75%
	queue := make(chan int, 4)
	queue <- 1
	queue <- 2
	queue <- 3
	monitor := NewHealthMonitor(logs.GetLoggerFromLevel(slog.LevelDebug),
		[]NamedChannel{{Name: "changes", Channel: queue}, {Name: "not a channel", Channel: 42}},
		10*time.Millisecond, 50)

	_, ok := monitor.Latest()
	req.False(ok)

	// When the monitor ticks
	go func() { _ = monitor.Run(ctx) }()
	req.Eventually(func() bool {
		_, ok := monitor.Latest()
		return ok
	}, time.Second, 5*time.Millisecond)

	// Then the queue is reported and the invalid entry skipped
	sample, _ := monitor.Latest()
	req.Len(sample.Queues, 1)
	req.Equal(QueueStats{Name: "changes", Length: 3, Capacity: 4}, sample.Queues[0])
	req.Equal(75, sample.Queues[0].FillPercent())
	req.NotZero(sample.RSSBytes)
}

func TestQueueStats_Unbuffered(t *testing.T) {
	require.Zero(t, QueueStats{Name: "sync"}.FillPercent())
}

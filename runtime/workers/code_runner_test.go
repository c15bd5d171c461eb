package workers

import (
	"chatcode/domain/chat"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestCodeRunnerWorker_Replies_After_Delay(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	jobs := make(chan chat.CodeJob, 1)
	worker := NewCodeRunnerWorker(jobs, 30*time.Millisecond, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	// Given a python run with some input
	job := chat.NewCodeJob(chat.RunCodeCommand{
		Room: "room-1", UserID: "alice", Language: chat.Python, Code: `print("hi")`, Input: "42",
	})
	start := time.Now()

	// When it is queued
	jobs <- job

	// Then the canned output comes back after the delay
	select {
	case run := <-job.Reply:
		req.GreaterOrEqual(time.Since(start), 30*time.Millisecond)
		req.Equal("Python Output:\nHello, world!\n\nInput received: 42", run.Output)
		req.Equal(chat.RoomID("room-1"), run.Room)
	case <-time.After(time.Second):
		req.Fail("no reply")
	}
}

func TestCodeRunnerWorker_Stops_With_Context(t *testing.T) {
	req := require.New(t)
	jobs := make(chan chat.CodeJob)
	worker := NewCodeRunnerWorker(jobs, time.Hour, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- worker.Run(ctx) }()

	cancel()
	req.ErrorIs(<-done, context.Canceled)
}

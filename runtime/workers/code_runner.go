package workers

import (
	"chatcode/contract"
	"chatcode/domain/chat"
	"context"
	"log/slog"
	"time"
)

var _ contract.Worker = (*CodeRunnerWorker)(nil)

// CodeRunnerWorker answers queued code runs after a fixed delay with a canned
// output. Nothing is interpreted or executed.
type CodeRunnerWorker struct {
	jobs  chan chat.CodeJob
	delay time.Duration
	log   *slog.Logger
}

func NewCodeRunnerWorker(jobs chan chat.CodeJob, delay time.Duration, log *slog.Logger) *CodeRunnerWorker {
	return &CodeRunnerWorker{jobs: jobs, delay: delay, log: log}
}

func (w *CodeRunnerWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case job, ok := <-w.jobs:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.delay):
			}
			cmd := job.Command
			w.log.Debug("Code run completed", "room", cmd.Room, "language", cmd.Language)
			job.Reply <- chat.CodeRun{
				Room:     cmd.Room,
				UserID:   cmd.UserID,
				Language: cmd.Language,
				Output:   chat.SimulatedOutput(cmd.Language, cmd.Input),
			}
		}
	}
}

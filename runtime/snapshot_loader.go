package runtime

import (
	"chatcode/contract"
	"chatcode/domain/feed"
	"chatcode/errors"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"
)

// SnapshotLoader performs the initial bulk fetch of a feed, bounded by a timeout.
// Every failure is classified as ErrNotFound, ErrTimeout or ErrNetwork.
type SnapshotLoader struct {
	log     *slog.Logger
	fetcher contract.SnapshotFetcher
	timeout time.Duration
}

func NewSnapshotLoader(log *slog.Logger, fetcher contract.SnapshotFetcher, timeout time.Duration) *SnapshotLoader {
	return &SnapshotLoader{log: log, fetcher: fetcher, timeout: timeout}
}

func (l *SnapshotLoader) Load(ctx context.Context, filter feed.Filter) ([]feed.Item, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	start := time.Now()
	items, err := l.fetcher.FetchSnapshot(ctx, filter)
	if err != nil {
		return nil, classify(filter, err)
	}
	l.log.Debug("Snapshot loaded",
		"topic", filter.Topic(),
		"items", len(items),
		"duration_ms", time.Since(start).Milliseconds())
	return items, nil
}

func classify(filter feed.Filter, err error) error {
	switch {
	case stderrors.Is(err, errors.ErrNotFound):
		return fmt.Errorf("%w: %s", errors.ErrNotFound, filter.Topic())
	case stderrors.Is(err, context.DeadlineExceeded), stderrors.Is(err, errors.ErrTimeout):
		return fmt.Errorf("%w: %s", errors.ErrTimeout, filter.Topic())
	case stderrors.Is(err, errors.ErrNetwork):
		return err
	default:
		return fmt.Errorf("%w: %s: %v", errors.ErrNetwork, filter.Topic(), err)
	}
}

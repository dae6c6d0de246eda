// Package cleanup は期限切れセッションの定期削除ジョブを提供する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ExpiredDeleter は期限切れセッションを削除するストアのインターフェース。
// session.Storeが実装する。
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// SweptRecorder は削除件数を記録するインターフェース。
// metrics.Collectorが実装する。
type SweptRecorder interface {
	RecordSessionsSwept(count int)
}

// SessionSweeper は期限切れセッションを定期的に削除するジョブ。
// 削除は冪等で、対象がない場合もエラーにならない。
type SessionSweeper struct {
	store    ExpiredDeleter
	recorder SweptRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewSessionSweeper は新しいSessionSweeperを生成する。recorderはnilでもよい。
func NewSessionSweeper(store ExpiredDeleter, recorder SweptRecorder, logger *slog.Logger) *SessionSweeper {
	return &SessionSweeper{
		store:    store,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Run は期限切れセッションを1回削除する。
func (s *SessionSweeper) Run(ctx context.Context) error {
	start := time.Now()

	deleted, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		s.logger.Error("session sweep failed",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to sweep expired sessions: %w", err)
	}

	if s.recorder != nil {
		s.recorder.RecordSessionsSwept(deleted)
	}

	level := slog.LevelDebug
	if deleted > 0 {
		level = slog.LevelInfo
	}
	s.logger.Log(ctx, level, "session sweep completed",
		slog.Int("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
	)

	return nil
}

// Start はintervalごとにRunを実行し、ctxがキャンセルされるまでブロックする。
// 失敗はログに記録し、次の周期で再試行する。
func (s *SessionSweeper) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.Run(ctx)
		}
	}
}

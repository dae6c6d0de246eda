package auth

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ProviderGate は起動時にディスカバリしたIdentityProviderを保持する。
// ディスカバリ完了前はProviderがfalseを返し、ログイン処理は503になる。
type ProviderGate struct {
	current atomic.Pointer[providerHolder]
	onReady func(bool)
}

type providerHolder struct {
	provider IdentityProvider
}

// NewProviderGate は未準備状態のProviderGateを生成する。
// onReadyが指定されていれば準備状態が変わるたびに呼び出す。
func NewProviderGate(onReady func(bool)) *ProviderGate {
	g := &ProviderGate{onReady: onReady}
	g.notify(false)
	return g
}

// Set はプロバイダーを公開し、準備完了状態にする。
func (g *ProviderGate) Set(p IdentityProvider) {
	g.current.Store(&providerHolder{provider: p})
	g.notify(true)
}

// Provider は準備完了していればプロバイダーを返す。
func (g *ProviderGate) Provider() (IdentityProvider, bool) {
	h := g.current.Load()
	if h == nil {
		return nil, false
	}
	return h.provider, true
}

// Ready は準備完了しているかを返す。
func (g *ProviderGate) Ready() bool {
	return g.current.Load() != nil
}

func (g *ProviderGate) notify(ready bool) {
	if g.onReady != nil {
		g.onReady(ready)
	}
}

// DiscoveryConfig はディスカバリの再試行設定。
type DiscoveryConfig struct {
	AttemptTimeout time.Duration // 1回の試行のタイムアウト
	MaxElapsed     time.Duration // 再試行を打ち切るまでの合計時間
}

// Discover はdiscoverが成功するまで指数バックオフで再試行し、成功したらプロバイダーを公開する。
// ctxがキャンセルされるかMaxElapsedを超えた場合はエラーを返す。その場合ゲートは未準備のまま。
func (g *ProviderGate) Discover(
	ctx context.Context,
	discover func(ctx context.Context) (IdentityProvider, error),
	cfg DiscoveryConfig,
	logger *slog.Logger,
) error {
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 10 * time.Second
	}
	if cfg.MaxElapsed <= 0 {
		cfg.MaxElapsed = 5 * time.Minute
	}

	attempt := 0
	operation := func() (IdentityProvider, error) {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, cfg.AttemptTimeout)
		defer cancel()
		return discover(attemptCtx)
	}

	provider, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(cfg.MaxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("identity provider discovery failed, retrying",
				slog.String("error", err.Error()),
				slog.Int("attempt", attempt),
				slog.Duration("retry_in", next),
			)
		}),
	)
	if err != nil {
		logger.Error("identity provider discovery gave up",
			slog.String("error", err.Error()),
			slog.Int("attempts", attempt),
		)
		return err
	}

	g.Set(provider)
	logger.Info("identity provider ready", slog.Int("attempts", attempt))
	return nil
}

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/labpractice/internal/model"
)

// CookieName はセッションIDを運ぶCookie名。
const CookieName = "session_id"

// Config はセッションCookieの設定を保持する。
type Config struct {
	MaxAge time.Duration
	Secure bool
	Domain string
}

// Manager はCookieとStoreを仲介し、セッションの読み込み・保存・ID再発行・破棄を行う。
type Manager struct {
	store Store
	codec *Codec
	cfg   Config
	now   func() time.Time
}

// NewManager はManagerを生成する。
func NewManager(store Store, codec *Codec, cfg Config) *Manager {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 24 * time.Hour
	}
	return &Manager{store: store, codec: codec, cfg: cfg, now: time.Now}
}

// Load はリクエストのCookieが指すセッションを読み込む。
// Cookieがない、署名が不正、ストアに存在しない場合はnilを返す。
func (m *Manager) Load(r *http.Request) *Session {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	id, err := m.codec.Decode(cookie.Value)
	if err != nil {
		slog.Debug("rejected session cookie", slog.String("error", err.Error()))
		return nil
	}

	s, err := m.store.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.Error("failed to load session", slog.String("error", err.Error()))
		}
		return nil
	}
	return s
}

// LoadOrNew はリクエストのセッションを返す。
// コンテキストに読み込み済みのセッションがあればそれを優先し、なければ未保存の新規セッションを生成する。
func (m *Manager) LoadOrNew(r *http.Request) *Session {
	if s := FromContext(r.Context()); s != nil {
		return s
	}
	if s := m.Load(r); s != nil {
		return s
	}
	now := m.now()
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(m.cfg.MaxAge),
	}
}

// Save はセッションの有効期限を延長して保存し、Cookieを書き込む。
func (m *Manager) Save(ctx context.Context, w http.ResponseWriter, s *Session) error {
	s.ExpiresAt = m.now().Add(m.cfg.MaxAge)
	if err := m.store.Save(ctx, s); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	value, err := m.codec.Encode(s.ID, s.ExpiresAt)
	if err != nil {
		return err
	}
	m.setCookie(w, value, int(m.cfg.MaxAge.Seconds()))
	return nil
}

// Renew はセッションIDを再発行して保存する。
// ログイン成功時に呼び出し、ログイン前のIDを無効化する。
func (m *Manager) Renew(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if err := m.store.Delete(ctx, s.ID); err != nil {
		return fmt.Errorf("failed to delete previous session: %w", err)
	}
	s.ID = uuid.NewString()
	return m.Save(ctx, w, s)
}

// Destroy はセッションを削除し、Cookieを無効化する。
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if s != nil {
		if err := m.store.Delete(ctx, s.ID); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
	}
	m.setCookie(w, "", -1)
	return nil
}

// Middleware はCookieからセッションを読み込み、リクエストコンテキストに格納する。
// セッションがなくてもリクエストは通過させる。認証の要否はauthzミドルウェアが判断する。
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s := m.Load(r); s != nil {
			r = r.WithContext(ContextWithSession(r.Context(), s))
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Manager) setCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Domain:   m.cfg.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

type contextKey struct{}

// ContextWithSession はコンテキストにセッションを格納する。
func ContextWithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext はコンテキストからセッションを取り出す。存在しない場合はnilを返す。
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}

// UserFromContext はログイン済みユーザーのスナップショットを返す。
func UserFromContext(ctx context.Context) (*model.User, bool) {
	s := FromContext(ctx)
	if s == nil || !s.State.Authenticated() {
		return nil, false
	}
	return s.State.User, true
}

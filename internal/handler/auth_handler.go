// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/labpractice/internal/auth"
	"github.com/hitoshi/labpractice/internal/metrics"
	"github.com/hitoshi/labpractice/internal/middleware"
	"github.com/hitoshi/labpractice/internal/model"
	"github.com/hitoshi/labpractice/internal/session"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// BeginLogin はセッション状態にPKCE verifierとstateを記録し、認可URLを返す。
	BeginLogin(state *session.State) (string, error)
	// CompleteLogin はコールバックを処理し、成功時のみセッション状態をログイン済みに遷移させる。
	CompleteLogin(ctx context.Context, state *session.State, params auth.CallbackParams) (*model.User, error)
}

// LoginRecorder はログイン結果を記録するインターフェース。
// metrics.Collectorが実装する。
type LoginRecorder interface {
	RecordLogin(outcome string)
	RecordLoginLatency(duration time.Duration)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	// FrontendURL はログイン成功後のリダイレクト先。
	FrontendURL string
}

// AuthHandler はOIDCログインフローのHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	sessions *session.Manager
	recorder LoginRecorder
	config   AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。recorderはnilでもよい。
func NewAuthHandler(service AuthServiceInterface, sessions *session.Manager, recorder LoginRecorder, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		sessions: sessions,
		recorder: recorder,
		config:   config,
	}
}

// Login はOIDC認可コード+PKCEフローを開始する。
// GET /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.LoadOrNew(r)

	authURL, err := h.service.BeginLogin(&sess.State)
	if err != nil {
		if errors.Is(err, auth.ErrServiceUnavailable) {
			slog.Warn("login attempted before identity provider is ready")
			middleware.WriteErrorResponse(w, http.StatusServiceUnavailable, model.NewServiceUnavailableError())
			return
		}
		slog.Error("failed to begin login", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	if err := h.sessions.Save(r.Context(), w, sess); err != nil {
		slog.Error("failed to persist pending login", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback はIdPからのリダイレクトを処理する。
// 成功時はセッションIDを再発行し、フロントエンドへリダイレクトする。
// GET /auth/callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()
	params := auth.CallbackParams{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}

	sess := h.sessions.LoadOrNew(r)
	user, err := h.service.CompleteLogin(r.Context(), &sess.State, params)
	if err != nil {
		h.writeCallbackError(w, err)
		h.recordLatency(start)
		return
	}

	if err := h.sessions.Renew(r.Context(), w, sess); err != nil {
		slog.Error("login callback failed",
			slog.String("stage", "session"),
			slog.String("error", err.Error()),
		)
		h.record(metrics.LoginFailed)
		middleware.WriteErrorResponse(w, http.StatusInternalServerError, model.NewAuthenticationError())
		h.recordLatency(start)
		return
	}

	slog.Info("login succeeded",
		slog.String("user_id", user.Subject),
		slog.String("role", string(user.Role)),
	)
	h.record(metrics.LoginSuccess)
	h.recordLatency(start)
	http.Redirect(w, r, h.config.FrontendURL, http.StatusFound)
}

// Logout はセッションを破棄する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(r.Context(), w, session.FromContext(r.Context())); err != nil {
		// ストアからの削除に失敗してもCookieは無効化済み
		slog.Error("failed to destroy session", slog.String("error", err.Error()))
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeCallbackError はログイン失敗を段階に応じたステータスで返す。
// 失敗した段階はログにのみ記録する。
func (h *AuthHandler) writeCallbackError(w http.ResponseWriter, err error) {
	stage := auth.Stage(err)

	switch {
	case errors.Is(err, auth.ErrServiceUnavailable):
		slog.Warn("login callback failed", slog.String("stage", stage))
		h.record(metrics.LoginUnavailable)
		middleware.WriteErrorResponse(w, http.StatusServiceUnavailable, model.NewServiceUnavailableError())
	case errors.Is(err, auth.ErrMissingVerifier):
		slog.Warn("login callback failed", slog.String("stage", stage))
		h.record(metrics.LoginRejected)
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingVerifierError())
	case errors.Is(err, auth.ErrStateMismatch):
		slog.Warn("login callback failed", slog.String("stage", stage))
		h.record(metrics.LoginRejected)
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewStateMismatchError())
	default:
		slog.Error("login callback failed",
			slog.String("stage", stage),
			slog.String("error", err.Error()),
		)
		h.record(metrics.LoginFailed)
		middleware.WriteErrorResponse(w, http.StatusInternalServerError, model.NewAuthenticationError())
	}
}

func (h *AuthHandler) record(outcome string) {
	if h.recorder != nil {
		h.recorder.RecordLogin(outcome)
	}
}

func (h *AuthHandler) recordLatency(start time.Time) {
	if h.recorder != nil {
		h.recorder.RecordLoginLatency(time.Since(start))
	}
}

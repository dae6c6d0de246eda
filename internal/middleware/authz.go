// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/labpractice/internal/auth"
	"github.com/hitoshi/labpractice/internal/model"
	"github.com/hitoshi/labpractice/internal/session"
)

// DenialRecorder は認可拒否を記録するインターフェース。
// metrics.Collectorが実装する。
type DenialRecorder interface {
	RecordAuthzDenied(reason string)
}

// Authz はセッションのユーザーとロールでリクエストを制限するミドルウェアを生成する。
// セッションはsession.Manager.Middlewareで事前にコンテキストへ読み込まれている必要がある。
type Authz struct {
	recorder DenialRecorder
}

// NewAuthz はAuthzを生成する。recorderはnilでもよい。
func NewAuthz(recorder DenialRecorder) *Authz {
	return &Authz{recorder: recorder}
}

// RequireAuthenticated はログイン済みのリクエストのみ通過させる。
// 未ログインの場合は401を返す。
func (a *Authz) RequireAuthenticated() func(next http.Handler) http.Handler {
	return a.RequireRole()
}

// RequireRole はrolesのいずれかを持つログイン済みユーザーのリクエストのみ通過させる。
// 未ログインは401 UNAUTHENTICATED、ロール不一致は403 FORBIDDENを返す。
func (a *Authz) RequireRole(roles ...model.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var state *session.State
			if s := session.FromContext(r.Context()); s != nil {
				state = &s.State
			}

			err := auth.Authorize(state, roles...)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, auth.ErrUnauthenticated):
				a.record("unauthenticated")
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
			case errors.Is(err, auth.ErrForbidden):
				a.record("forbidden")
				slog.Warn("role not permitted",
					slog.String("user_id", state.User.Subject),
					slog.String("role", string(state.User.Role)),
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
			default:
				WriteInternalServerError(w)
			}
		})
	}
}

func (a *Authz) record(reason string) {
	if a.recorder != nil {
		a.recorder.RecordAuthzDenied(reason)
	}
}

package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/labpractice/internal/middleware"
	"github.com/hitoshi/labpractice/internal/model"
	"github.com/hitoshi/labpractice/internal/session"
)

// UserFinder はユーザーハンドラーが必要とするリポジトリインターフェース。
type UserFinder interface {
	FindBySubject(ctx context.Context, subject string) (*model.User, error)
}

// UserHandler はログインユーザー情報のHTTPハンドラー。
type UserHandler struct {
	users UserFinder
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(users UserFinder) *UserHandler {
	return &UserHandler{
		users: users,
	}
}

// Me はセッションのユーザーに対応する保存済みのユーザー行を返す。
// GET /api/user/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	current, ok := session.UserFromContext(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	user, err := h.users.FindBySubject(r.Context(), current.Subject)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if user == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError())
		return
	}

	middleware.WriteJSON(w, http.StatusOK, user)
}

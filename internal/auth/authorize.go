package auth

import (
	"slices"

	"github.com/hitoshi/labpractice/internal/model"
	"github.com/hitoshi/labpractice/internal/session"
)

// Authorize はセッション状態がrolesのいずれかを持つログイン済みユーザーかを判定する。
// rolesが空の場合はログイン済みであれば許可する。
// 未ログインはErrUnauthenticated、ロール不一致はErrForbiddenを返す。セッション状態は変更しない。
func Authorize(state *session.State, roles ...model.Role) error {
	if !state.Authenticated() {
		return ErrUnauthenticated
	}
	if len(roles) == 0 {
		return nil
	}
	if !slices.Contains(roles, state.User.Role) {
		return ErrForbidden
	}
	return nil
}

package auth

import (
	"strings"

	"github.com/hitoshi/labpractice/internal/model"
)

const (
	instructorEmailPrefix = "docente@"
	studentEmailPrefix    = "estudiante@"
)

// DeriveRole はメールアドレスのローカル部からロールを決定する。
// "docente@" で始まればDocente、それ以外（"estudiante@" を含む）はEstudianteになる。
// 比較は大文字小文字を区別し、前後の空白も除去しない。
// Administradorはメールからは導出しない。
func DeriveRole(email string) model.Role {
	switch {
	case strings.HasPrefix(email, instructorEmailPrefix):
		return model.RoleInstructor
	case strings.HasPrefix(email, studentEmailPrefix):
		return model.RoleStudent
	default:
		return model.RoleStudent
	}
}

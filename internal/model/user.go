// Package model はドメインモデルを定義する。
package model

// Role はプラットフォーム上のロールを表す。
// DBのrol_plataforma列にはこの文字列がそのまま保存される。
type Role string

const (
	// RoleStudent は学生ロール。ロール判定できない場合の既定値でもある。
	RoleStudent Role = "Estudiante"
	// RoleInstructor は教員ロール。
	RoleInstructor Role = "Docente"
	// RoleAdministrator は管理者ロール。ログインでは付与されず、DBで直接設定する。
	RoleAdministrator Role = "Administrador"
)

// Valid はロールが定義済みの値かどうかを返す。
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdministrator:
		return true
	default:
		return false
	}
}

// User はサービス利用ユーザーを表す。
// IdPのsubject識別子が永続的なキーで、メール・表示名・ロールはログインのたびに上書きされる。
type User struct {
	Subject string `json:"id_msentra_id"`
	Email   string `json:"correo"`
	Name    string `json:"nombre"`
	Role    Role   `json:"rol_plataforma"`
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/labpractice/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// Upsert はsubjectをキーにユーザーを作成または更新する。
// INSERT ... ON CONFLICT の1文で行うため、同時ログインでも重複行や更新の取りこぼしは起きない。
func (r *PostgresUserRepo) Upsert(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO usuarios (id_msentra_id, correo, nombre, rol_plataforma)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id_msentra_id) DO UPDATE
		 SET correo = EXCLUDED.correo,
		     nombre = EXCLUDED.nombre,
		     rol_plataforma = EXCLUDED.rol_plataforma`,
		user.Subject, user.Email, user.Name, string(user.Role),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// FindBySubject はIdPのsubjectでユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindBySubject(ctx context.Context, subject string) (*model.User, error) {
	var (
		user  model.User
		email sql.NullString
		name  sql.NullString
		role  sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id_msentra_id, correo, nombre, rol_plataforma FROM usuarios WHERE id_msentra_id = $1`,
		subject,
	).Scan(&user.Subject, &email, &name, &role)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by subject: %w", err)
	}

	user.Email = email.String
	user.Name = name.String
	user.Role = model.Role(role.String)
	return &user, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)

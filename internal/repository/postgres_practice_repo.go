package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hitoshi/labpractice/internal/model"
)

const practiceColumns = `id_practica, titulo, descripcion, estado, fecha_publicacion, fecha_cierre,
	configuracion_simulacion, rubrica_id, creado_por_id`

// PostgresPracticeRepo はPostgreSQLを使用した実習リポジトリ。
type PostgresPracticeRepo struct {
	db *sql.DB
}

// NewPostgresPracticeRepo はPostgresPracticeRepoを生成する。
func NewPostgresPracticeRepo(db *sql.DB) *PostgresPracticeRepo {
	return &PostgresPracticeRepo{db: db}
}

// List は実習を公開日の新しい順に返す。
func (r *PostgresPracticeRepo) List(ctx context.Context) ([]model.Practice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+practiceColumns+` FROM practicas ORDER BY fecha_publicacion DESC, id_practica DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list practices: %w", err)
	}
	defer rows.Close()

	practices := []model.Practice{}
	for rows.Next() {
		p, err := scanPractice(rows)
		if err != nil {
			return nil, err
		}
		practices = append(practices, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate practices: %w", err)
	}
	return practices, nil
}

// FindByID は指定IDの実習を取得する。見つからない場合はnilを返す。
func (r *PostgresPracticeRepo) FindByID(ctx context.Context, id int64) (*model.Practice, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+practiceColumns+` FROM practicas WHERE id_practica = $1`,
		id,
	)
	return scanOptionalPractice(row)
}

// Create は実習を作成する。
// 状態が未指定の場合はDB側の既定値（borrador）を使う。
func (r *PostgresPracticeRepo) Create(ctx context.Context, practice *model.Practice) (*model.Practice, error) {
	var status any
	if practice.Status != "" {
		status = string(practice.Status)
	}

	row := r.db.QueryRowContext(ctx,
		`INSERT INTO practicas (titulo, descripcion, estado, fecha_cierre, configuracion_simulacion, rubrica_id, creado_por_id)
		 VALUES ($1, $2, COALESCE($3, 'borrador'), $4, $5, $6, $7)
		 RETURNING `+practiceColumns,
		practice.Title, practice.Description, status, practice.ClosesAt,
		jsonArg(practice.SimulationConfig), practice.RubricID, practice.CreatedBy,
	)
	created, err := scanPractice(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create practice: %w", err)
	}
	return created, nil
}

// Update は指定されたフィールドのみ更新する。見つからない場合はnilを返す。
func (r *PostgresPracticeRepo) Update(ctx context.Context, id int64, patch model.PracticePatch) (*model.Practice, error) {
	var status any
	if patch.Status != nil {
		status = string(*patch.Status)
	}

	row := r.db.QueryRowContext(ctx,
		`UPDATE practicas
		 SET titulo = COALESCE($1, titulo),
		     descripcion = COALESCE($2, descripcion),
		     estado = COALESCE($3, estado),
		     fecha_cierre = COALESCE($4, fecha_cierre),
		     configuracion_simulacion = COALESCE($5, configuracion_simulacion),
		     rubrica_id = COALESCE($6, rubrica_id)
		 WHERE id_practica = $7
		 RETURNING `+practiceColumns,
		patch.Title, patch.Description, status, patch.ClosesAt,
		jsonArg(patch.SimulationConfig), patch.RubricID, id,
	)
	return scanOptionalPractice(row)
}

// Close は実習をcerradaにする。見つからない場合はnilを返す。
func (r *PostgresPracticeRepo) Close(ctx context.Context, id int64) (*model.Practice, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE practicas SET estado = 'cerrada' WHERE id_practica = $1 RETURNING `+practiceColumns,
		id,
	)
	return scanOptionalPractice(row)
}

func scanOptionalPractice(row rowScanner) (*model.Practice, error) {
	p, err := scanPractice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func scanPractice(row rowScanner) (*model.Practice, error) {
	var (
		p           model.Practice
		status      string
		description sql.NullString
		closesAt    sql.NullTime
		config      []byte
		rubricID    sql.NullInt64
		createdBy   sql.NullString
	)
	err := row.Scan(
		&p.ID, &p.Title, &description, &status, &p.PublishedAt, &closesAt,
		&config, &rubricID, &createdBy,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan practice: %w", err)
	}

	p.Status = model.PracticeStatus(status)
	p.Description = nullStringPtr(description)
	p.ClosesAt = nullTimePtr(closesAt)
	if len(config) > 0 {
		p.SimulationConfig = json.RawMessage(config)
	}
	p.RubricID = nullInt64Ptr(rubricID)
	p.CreatedBy = nullStringPtr(createdBy)
	return &p, nil
}

// compile-time interface check
var _ PracticeRepository = (*PostgresPracticeRepo)(nil)

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/labpractice/internal/model"
)

const reportColumns = `i.id_informe, i.id_practica, i.id_usuario, i.id_simulacion, i.titulo, i.archivo_url,
	i.contenido_texto, i.estado, i.fecha_entrega, i.nota, i.retroalimentacion`

// PostgresReportRepo はPostgreSQLを使用したレポートリポジトリ。
type PostgresReportRepo struct {
	db *sql.DB
}

// NewPostgresReportRepo はPostgresReportRepoを生成する。
func NewPostgresReportRepo(db *sql.DB) *PostgresReportRepo {
	return &PostgresReportRepo{db: db}
}

// Create はレポートを作成する。
func (r *PostgresReportRepo) Create(ctx context.Context, report *model.Report) (*model.Report, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO informes AS i (id_practica, id_usuario, id_simulacion, titulo, archivo_url, contenido_texto, estado)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+reportColumns,
		report.PracticeID, report.UserID, report.SimulationID, report.Title,
		report.FileURL, report.Content, string(report.Status),
	)
	created, err := scanReport(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	return created, nil
}

// ListByUser は指定ユーザーのレポートを実習タイトル付きで返す。
func (r *PostgresReportRepo) ListByUser(ctx context.Context, userID string) ([]model.StudentReport, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reportColumns+`, p.titulo
		 FROM informes i
		 JOIN practicas p ON p.id_practica = i.id_practica
		 WHERE i.id_usuario = $1
		 ORDER BY i.fecha_entrega DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports by user: %w", err)
	}
	defer rows.Close()

	reports := []model.StudentReport{}
	for rows.Next() {
		var sr model.StudentReport
		rep, err := scanReport(rows, &sr.PracticeTitle)
		if err != nil {
			return nil, err
		}
		sr.Report = *rep
		reports = append(reports, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}
	return reports, nil
}

// ListByPractice は指定実習のレポートを提出者の氏名・メール付きで返す。
func (r *PostgresReportRepo) ListByPractice(ctx context.Context, practiceID int64) ([]model.PracticeReport, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reportColumns+`, COALESCE(u.nombre, ''), COALESCE(u.correo, '')
		 FROM informes i
		 JOIN usuarios u ON u.id_msentra_id = i.id_usuario
		 WHERE i.id_practica = $1
		 ORDER BY i.fecha_entrega DESC`,
		practiceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports by practice: %w", err)
	}
	defer rows.Close()

	reports := []model.PracticeReport{}
	for rows.Next() {
		var pr model.PracticeReport
		rep, err := scanReport(rows, &pr.StudentName, &pr.StudentEmail)
		if err != nil {
			return nil, err
		}
		pr.Report = *rep
		reports = append(reports, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}
	return reports, nil
}

// Grade はレポートを採点済みにする。見つからない場合はnilを返す。
func (r *PostgresReportRepo) Grade(ctx context.Context, id int64, grade float64, feedback *string) (*model.Report, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE informes AS i
		 SET nota = $1,
		     retroalimentacion = COALESCE($2, i.retroalimentacion),
		     estado = 'calificado'
		 WHERE i.id_informe = $3
		 RETURNING `+reportColumns,
		grade, feedback, id,
	)
	graded, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to grade report: %w", err)
	}
	return graded, nil
}

// scanReport はreportColumnsの順で1行を読み取る。extraは後続の列の格納先。
func scanReport(row rowScanner, extra ...any) (*model.Report, error) {
	var (
		rep          model.Report
		status       string
		simulationID sql.NullInt64
		title        sql.NullString
		fileURL      sql.NullString
		content      sql.NullString
		grade        sql.NullFloat64
		feedback     sql.NullString
	)
	dest := []any{
		&rep.ID, &rep.PracticeID, &rep.UserID, &simulationID, &title, &fileURL,
		&content, &status, &rep.SubmittedAt, &grade, &feedback,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan report: %w", err)
	}

	rep.Status = model.ReportStatus(status)
	rep.SimulationID = nullInt64Ptr(simulationID)
	rep.Title = nullStringPtr(title)
	rep.FileURL = nullStringPtr(fileURL)
	rep.Content = nullStringPtr(content)
	rep.Grade = nullFloat64Ptr(grade)
	rep.Feedback = nullStringPtr(feedback)
	return &rep, nil
}

// compile-time interface check
var _ ReportRepository = (*PostgresReportRepo)(nil)

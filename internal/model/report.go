package model

import "time"

// ReportStatus はレポートの状態を表す。
type ReportStatus string

const (
	ReportDraft     ReportStatus = "borrador"
	ReportSubmitted ReportStatus = "entregado"
	ReportGraded    ReportStatus = "calificado"
)

// Report は学生が実習に対して提出するレポートを表す。
type Report struct {
	ID           int64        `json:"id_informe"`
	PracticeID   int64        `json:"id_practica"`
	UserID       string       `json:"id_usuario"`
	SimulationID *int64       `json:"id_simulacion"`
	Title        *string      `json:"titulo"`
	FileURL      *string      `json:"archivo_url"`
	Content      *string      `json:"contenido_texto"`
	Status       ReportStatus `json:"estado"`
	SubmittedAt  time.Time    `json:"fecha_entrega"`
	Grade        *float64     `json:"nota"`
	Feedback     *string      `json:"retroalimentacion"`
}

// StudentReport は学生本人のレポート一覧の1行を表す。実習タイトルを含む。
type StudentReport struct {
	Report
	PracticeTitle string `json:"titulo_practica"`
}

// PracticeReport は実習ごとのレポート一覧の1行を表す。提出者の氏名とメールを含む。
type PracticeReport struct {
	Report
	StudentName  string `json:"nombre_estudiante"`
	StudentEmail string `json:"correo_estudiante"`
}

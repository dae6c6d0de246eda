package model

import (
	"encoding/json"
	"time"
)

// PracticeStatus は実習の公開状態を表す。
type PracticeStatus string

const (
	PracticeDraft     PracticeStatus = "borrador"
	PracticePublished PracticeStatus = "publicada"
	PracticeClosed    PracticeStatus = "cerrada"
)

// Valid は状態が定義済みの値かどうかを返す。
func (s PracticeStatus) Valid() bool {
	switch s {
	case PracticeDraft, PracticePublished, PracticeClosed:
		return true
	default:
		return false
	}
}

// Practice は教員が作成する実習課題を表す。
type Practice struct {
	ID               int64           `json:"id_practica"`
	Title            string          `json:"titulo"`
	Description      *string         `json:"descripcion"`
	Status           PracticeStatus  `json:"estado"`
	PublishedAt      time.Time       `json:"fecha_publicacion"`
	ClosesAt         *time.Time      `json:"fecha_cierre"`
	SimulationConfig json.RawMessage `json:"configuracion_simulacion"`
	RubricID         *int64          `json:"rubrica_id"`
	CreatedBy        *string         `json:"creado_por_id"`
}

// PracticePatch は実習の部分更新を表す。nilのフィールドは変更しない。
type PracticePatch struct {
	Title            *string
	Description      *string
	Status           *PracticeStatus
	ClosesAt         *time.Time
	SimulationConfig json.RawMessage
	RubricID         *int64
}

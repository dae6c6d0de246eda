package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/labpractice/internal/middleware"
	"github.com/hitoshi/labpractice/internal/model"
	"github.com/hitoshi/labpractice/internal/practice"
	"github.com/hitoshi/labpractice/internal/session"
)

// PracticeServiceInterface は実習ハンドラーが必要とするサービスインターフェース。
type PracticeServiceInterface interface {
	List(ctx context.Context) ([]model.Practice, error)
	Get(ctx context.Context, id int64) (*model.Practice, error)
	Create(ctx context.Context, creator *model.User, in practice.CreateInput) (*model.Practice, error)
	Update(ctx context.Context, id int64, patch model.PracticePatch) (*model.Practice, error)
	Close(ctx context.Context, id int64) (*model.Practice, error)
}

// PracticeHandler は実習管理のHTTPハンドラー。
type PracticeHandler struct {
	service PracticeServiceInterface
}

// NewPracticeHandler はPracticeHandlerを生成する。
func NewPracticeHandler(service PracticeServiceInterface) *PracticeHandler {
	return &PracticeHandler{
		service: service,
	}
}

// practiceRequest は実習の作成・更新リクエストのボディ。
// 更新時は指定されたフィールドのみ反映する。
type practiceRequest struct {
	Titulo                  *string         `json:"titulo"`
	Descripcion             *string         `json:"descripcion"`
	Estado                  *string         `json:"estado"`
	FechaCierre             *time.Time      `json:"fecha_cierre"`
	ConfiguracionSimulacion json.RawMessage `json:"configuracion_simulacion"`
	RubricaID               *int64          `json:"rubrica_id"`
}

func (req practiceRequest) status() *model.PracticeStatus {
	if req.Estado == nil {
		return nil
	}
	s := model.PracticeStatus(*req.Estado)
	return &s
}

// List は実習一覧を返す。
// GET /api/practicas
func (h *PracticeHandler) List(w http.ResponseWriter, r *http.Request) {
	practices, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, practices)
}

// Get は実習の詳細を返す。
// GET /api/practicas/{id}
func (h *PracticeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, p)
}

// Create は実習を作成する。
// POST /api/practicas
func (h *PracticeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req practiceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	if req.Titulo == nil {
		handleServiceError(w, r, model.NewMissingFieldError("titulo"))
		return
	}

	creator, _ := session.UserFromContext(r.Context())
	created, err := h.service.Create(r.Context(), creator, practice.CreateInput{
		Title:            *req.Titulo,
		Description:      req.Descripcion,
		Status:           req.status(),
		ClosesAt:         req.FechaCierre,
		SimulationConfig: req.ConfiguracionSimulacion,
		RubricID:         req.RubricaID,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, created)
}

// Update は実習を部分更新する。
// PATCH /api/practicas/{id}
func (h *PracticeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	var req practiceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	updated, err := h.service.Update(r.Context(), id, model.PracticePatch{
		Title:            req.Titulo,
		Description:      req.Descripcion,
		Status:           req.status(),
		ClosesAt:         req.FechaCierre,
		SimulationConfig: req.ConfiguracionSimulacion,
		RubricID:         req.RubricaID,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, updated)
}

// Close は実習を締め切る。
// POST /api/practicas/{id}/cerrar
func (h *PracticeHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	closed, err := h.service.Close(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, closed)
}

package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/labpractice/internal/middleware"
	"github.com/hitoshi/labpractice/internal/model"
	"github.com/hitoshi/labpractice/internal/report"
	"github.com/hitoshi/labpractice/internal/session"
)

// ReportServiceInterface はレポートハンドラーが必要とするサービスインターフェース。
type ReportServiceInterface interface {
	Submit(ctx context.Context, userID string, practiceID int64, in report.SubmitInput) (*model.Report, error)
	ListMine(ctx context.Context, userID string) ([]model.StudentReport, error)
	ListForPractice(ctx context.Context, practiceID int64) ([]model.PracticeReport, error)
	Grade(ctx context.Context, reportID int64, in report.GradeInput) (*model.Report, error)
}

// ReportHandler はレポート提出・採点のHTTPハンドラー。
type ReportHandler struct {
	service ReportServiceInterface
}

// NewReportHandler はReportHandlerを生成する。
func NewReportHandler(service ReportServiceInterface) *ReportHandler {
	return &ReportHandler{
		service: service,
	}
}

// submitReportRequest はレポート提出リクエストのボディ。
type submitReportRequest struct {
	Titulo         *string `json:"titulo"`
	ArchivoURL     *string `json:"archivo_url"`
	ContenidoTexto *string `json:"contenido_texto"`
	IDSimulacion   *int64  `json:"id_simulacion"`
}

// gradeReportRequest は採点リクエストのボディ。
type gradeReportRequest struct {
	Nota              *float64 `json:"nota"`
	Retroalimentacion *string  `json:"retroalimentacion"`
}

// Submit は学生のレポートを提出する。
// POST /api/practicas/{id}/informes
func (h *ReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	user, ok := session.UserFromContext(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	practiceID, err := parseIDParam(r, "id")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	var req submitReportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	created, err := h.service.Submit(r.Context(), user.Subject, practiceID, report.SubmitInput{
		Title:        req.Titulo,
		FileURL:      req.ArchivoURL,
		Content:      req.ContenidoTexto,
		SimulationID: req.IDSimulacion,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, created)
}

// ListMine は学生自身のレポート一覧を返す。
// GET /api/mis-informes
func (h *ReportHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	user, ok := session.UserFromContext(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	reports, err := h.service.ListMine(r.Context(), user.Subject)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, reports)
}

// ListForPractice は実習に提出されたレポート一覧を返す。
// GET /api/practicas/{id}/informes
func (h *ReportHandler) ListForPractice(w http.ResponseWriter, r *http.Request) {
	practiceID, err := parseIDParam(r, "id")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	reports, err := h.service.ListForPractice(r.Context(), practiceID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, reports)
}

// Grade はレポートを採点する。
// PUT /api/informes/{id}/calificar
func (h *ReportHandler) Grade(w http.ResponseWriter, r *http.Request) {
	reportID, err := parseIDParam(r, "id")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	var req gradeReportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	graded, err := h.service.Grade(r.Context(), reportID, report.GradeInput{
		Grade:    req.Nota,
		Feedback: req.Retroalimentacion,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, graded)
}

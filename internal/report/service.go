// Package report はレポートの提出と採点のドメインロジックを提供する。
package report

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hitoshi/labpractice/internal/model"
	"github.com/hitoshi/labpractice/internal/repository"
	"github.com/hitoshi/labpractice/internal/security"
)

// 評点の範囲。NUMERIC(5,2)に収まる値のみ受け付ける。
// 999.99を超える値は丸めで1000.00になりうるため上限は閉区間で判定する。
const (
	minGrade = 0
	maxGrade = 999.99
)

// SubmitInput はレポート提出の入力値。
type SubmitInput struct {
	Title        *string
	FileURL      *string
	Content      *string
	SimulationID *int64
}

// GradeInput は採点の入力値。
type GradeInput struct {
	Grade    *float64
	Feedback *string
}

// Service はレポートのサービス層。
type Service struct {
	reports   repository.ReportRepository
	practices repository.PracticeRepository
	sanitizer security.ContentSanitizerService
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	reports repository.ReportRepository,
	practices repository.PracticeRepository,
	sanitizer security.ContentSanitizerService,
) *Service {
	return &Service{
		reports:   reports,
		practices: practices,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// Submit は学生のレポートを提出する。
// 実習が存在しない場合はPRACTICE_NOT_FOUND、締め切り済みの場合はPRACTICE_CLOSEDを返す。
// archivo_urlとcontenido_textoの少なくとも一方が必要。
func (s *Service) Submit(ctx context.Context, userID string, practiceID int64, in SubmitInput) (*model.Report, error) {
	p, err := s.practices.FindByID(ctx, practiceID)
	if err != nil {
		return nil, fmt.Errorf("実習の取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewPracticeNotFoundError(practiceID)
	}
	if p.Status == model.PracticeClosed || (p.ClosesAt != nil && s.now().After(*p.ClosesAt)) {
		return nil, model.NewPracticeClosedError(practiceID)
	}

	rep := &model.Report{
		PracticeID:   practiceID,
		UserID:       userID,
		SimulationID: in.SimulationID,
		Title:        trimOptional(in.Title),
		Status:       model.ReportSubmitted,
	}

	if fileURL := trimOptional(in.FileURL); fileURL != nil {
		normalized, err := security.ValidateAttachmentURL(*fileURL)
		if err != nil {
			return nil, model.NewInvalidURLError(err.Error())
		}
		rep.FileURL = &normalized
	}
	if in.Content != nil {
		if clean := s.sanitizer.Sanitize(*in.Content); clean != "" {
			rep.Content = &clean
		}
	}
	if rep.FileURL == nil && rep.Content == nil {
		return nil, model.NewEmptyReportError()
	}

	created, err := s.reports.Create(ctx, rep)
	if err != nil {
		return nil, fmt.Errorf("レポートの提出に失敗しました: %w", err)
	}
	return created, nil
}

// ListMine は学生自身のレポートを実習タイトル付きで返す。
func (s *Service) ListMine(ctx context.Context, userID string) ([]model.StudentReport, error) {
	reports, err := s.reports.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("レポート一覧の取得に失敗しました: %w", err)
	}
	return reports, nil
}

// ListForPractice は実習に提出されたレポートを提出者情報付きで返す。
func (s *Service) ListForPractice(ctx context.Context, practiceID int64) ([]model.PracticeReport, error) {
	p, err := s.practices.FindByID(ctx, practiceID)
	if err != nil {
		return nil, fmt.Errorf("実習の取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewPracticeNotFoundError(practiceID)
	}

	reports, err := s.reports.ListByPractice(ctx, practiceID)
	if err != nil {
		return nil, fmt.Errorf("レポート一覧の取得に失敗しました: %w", err)
	}
	return reports, nil
}

// Grade はレポートを採点する。
// 評点は0以上999.99以下。フィードバックが空の場合は既存の値を保持する。
func (s *Service) Grade(ctx context.Context, reportID int64, in GradeInput) (*model.Report, error) {
	if in.Grade == nil {
		return nil, model.NewMissingFieldError("nota")
	}
	grade := *in.Grade
	if math.IsNaN(grade) || grade < minGrade || grade > maxGrade {
		return nil, model.NewInvalidGradeError()
	}

	var feedback *string
	if in.Feedback != nil {
		if clean := s.sanitizer.Sanitize(*in.Feedback); clean != "" {
			feedback = &clean
		}
	}

	graded, err := s.reports.Grade(ctx, reportID, grade, feedback)
	if err != nil {
		return nil, fmt.Errorf("レポートの採点に失敗しました: %w", err)
	}
	if graded == nil {
		return nil, model.NewReportNotFoundError(reportID)
	}
	return graded, nil
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

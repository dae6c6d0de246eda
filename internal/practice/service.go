// Package practice は実習管理のドメインロジックを提供する。
package practice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/labpractice/internal/model"
	"github.com/hitoshi/labpractice/internal/repository"
	"github.com/hitoshi/labpractice/internal/security"
)

// 実習タイトルの最大文字数。
const maxTitleLength = 255

// CreateInput は実習作成の入力値。
type CreateInput struct {
	Title            string
	Description      *string
	Status           *model.PracticeStatus
	ClosesAt         *time.Time
	SimulationConfig json.RawMessage
	RubricID         *int64
}

// Service は実習管理のサービス層。
type Service struct {
	repo      repository.PracticeRepository
	sanitizer security.ContentSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.PracticeRepository, sanitizer security.ContentSanitizerService) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
	}
}

// List は実習一覧を公開日の新しい順に返す。
func (s *Service) List(ctx context.Context) ([]model.Practice, error) {
	practices, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("実習一覧の取得に失敗しました: %w", err)
	}
	return practices, nil
}

// Get は指定IDの実習を返す。存在しない場合はPRACTICE_NOT_FOUNDを返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.Practice, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("実習の取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewPracticeNotFoundError(id)
	}
	return p, nil
}

// Create は実習を作成する。creatorは作成者として記録される。
func (s *Service) Create(ctx context.Context, creator *model.User, in CreateInput) (*model.Practice, error) {
	title, err := validateTitle(in.Title)
	if err != nil {
		return nil, err
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, model.NewInvalidStatusError(string(*in.Status))
	}

	p := &model.Practice{
		Title:            title,
		Description:      s.sanitizeOptional(in.Description),
		ClosesAt:         in.ClosesAt,
		SimulationConfig: normalizeJSON(in.SimulationConfig),
		RubricID:         in.RubricID,
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	if creator != nil {
		subject := creator.Subject
		p.CreatedBy = &subject
	}

	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("実習の作成に失敗しました: %w", err)
	}
	return created, nil
}

// Update は指定されたフィールドのみ更新する。
func (s *Service) Update(ctx context.Context, id int64, patch model.PracticePatch) (*model.Practice, error) {
	if patch.Title != nil {
		title, err := validateTitle(*patch.Title)
		if err != nil {
			return nil, err
		}
		patch.Title = &title
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, model.NewInvalidStatusError(string(*patch.Status))
	}
	patch.Description = s.sanitizeOptional(patch.Description)
	patch.SimulationConfig = normalizeJSON(patch.SimulationConfig)

	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("実習の更新に失敗しました: %w", err)
	}
	if updated == nil {
		return nil, model.NewPracticeNotFoundError(id)
	}
	return updated, nil
}

// Close は実習をcerradaにする。すでにcerradaの場合もそのまま返す。
func (s *Service) Close(ctx context.Context, id int64) (*model.Practice, error) {
	closed, err := s.repo.Close(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("実習の締め切りに失敗しました: %w", err)
	}
	if closed == nil {
		return nil, model.NewPracticeNotFoundError(id)
	}
	return closed, nil
}

func validateTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", model.NewMissingFieldError("titulo")
	}
	if len([]rune(title)) > maxTitleLength {
		return "", model.NewInvalidRequestError()
	}
	return title, nil
}

func (s *Service) sanitizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	clean := s.sanitizer.Sanitize(*v)
	return &clean
}

// normalizeJSON はJSONのnullを未指定として扱う。
func normalizeJSON(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	return raw
}

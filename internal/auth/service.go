// Package auth はOIDC認可コード+PKCEによるログインフローとロールによる認可判定を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/labpractice/internal/model"
	"github.com/hitoshi/labpractice/internal/repository"
	"github.com/hitoshi/labpractice/internal/session"
)

// CallbackParams はIdPから /auth/callback に渡されるクエリパラメータ。
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// Service はログインフローのビジネスロジックを提供する。
// セッション状態の読み書きは呼び出し元が行い、Serviceは渡されたStateを遷移させるだけ。
type Service struct {
	gate     *ProviderGate
	userRepo repository.UserRepository
	now      func() time.Time
}

// NewService はServiceを生成する。
func NewService(gate *ProviderGate, userRepo repository.UserRepository) *Service {
	return &Service{
		gate:     gate,
		userRepo: userRepo,
		now:      time.Now,
	}
}

// BeginLogin はPKCEのverifierとstateを生成してセッション状態に記録し、認可URLを返す。
// IdPが未準備の場合はErrServiceUnavailableを返し、セッション状態は変更しない。
func (s *Service) BeginLogin(state *session.State) (string, error) {
	provider, ok := s.gate.Provider()
	if !ok {
		return "", ErrServiceUnavailable
	}

	pkce := NewPKCE()
	oauthState, err := NewState()
	if err != nil {
		return "", err
	}

	state.BeginLogin(session.PendingLogin{
		Verifier:  pkce.Verifier,
		State:     oauthState,
		StartedAt: s.now(),
	})

	return provider.AuthCodeURL(oauthState, pkce.Challenge), nil
}

// CompleteLogin はコールバックを処理し、ログイン済みユーザーを返す。
// 処理は 交換 → ロール導出 → upsert → 再読込 → セッション状態更新 の順に行う。
// いずれかの段階で失敗した場合、セッション状態は一切変更しない。
func (s *Service) CompleteLogin(ctx context.Context, state *session.State, params CallbackParams) (*model.User, error) {
	// 1. 前提条件の確認
	provider, ok := s.gate.Provider()
	if !ok {
		return nil, ErrServiceUnavailable
	}
	if state.Pending == nil || state.Pending.Verifier == "" {
		return nil, ErrMissingVerifier
	}
	if params.State != state.Pending.State {
		return nil, ErrStateMismatch
	}
	if params.Error != "" {
		return nil, &TokenExchangeError{Err: fmt.Errorf("provider returned %s: %s", params.Error, params.ErrorDescription)}
	}
	if params.Code == "" {
		return nil, &TokenExchangeError{Err: errors.New("authorization code is missing")}
	}

	// 2. 認可コードをトークンに交換
	claims, err := provider.Exchange(ctx, params.Code, state.Pending.Verifier)
	if err != nil {
		var exchangeErr *TokenExchangeError
		if errors.As(err, &exchangeErr) {
			return nil, err
		}
		return nil, &TokenExchangeError{Err: err}
	}

	// 3. ロールを導出してupsert
	user := &model.User{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Role:    DeriveRole(claims.Email),
	}
	if err := s.userRepo.Upsert(ctx, user); err != nil {
		return nil, &StorageError{Stage: "upsert", Err: err}
	}

	// 4. 正となるDBの行を再読込
	stored, err := s.userRepo.FindBySubject(ctx, claims.Subject)
	if err != nil {
		return nil, &StorageError{Stage: "read_back", Err: err}
	}
	if stored == nil {
		return nil, &StorageError{Stage: "read_back", Err: fmt.Errorf("user %s not found after upsert", claims.Subject)}
	}

	// 5. セッション状態をログイン済みに遷移
	state.CompleteLogin(*stored)

	slog.Info("user logged in",
		slog.String("user_id", stored.Subject),
		slog.String("role", string(stored.Role)),
	)
	return stored, nil
}

// Ready はIdPのディスカバリが完了しているかを返す。
func (s *Service) Ready() bool {
	return s.gate.Ready()
}

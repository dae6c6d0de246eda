// Package session はCookieで識別するサーバー側セッションを提供する。
// セッションにはログイン途中のPKCE verifierと、ログイン済みユーザーのスナップショットを保持する。
package session

import (
	"time"

	"github.com/hitoshi/labpractice/internal/model"
)

// PendingLogin は /auth/login から /auth/callback までの間に保持するログイン情報。
// verifierは発行したstateと対で保存し、同じセッションのコールバックでのみ使用できる。
type PendingLogin struct {
	Verifier  string
	State     string
	StartedAt time.Time
}

// State はセッションに格納する型付きの状態。
// ログイン済みかどうかはUserの有無のみで判定する。
type State struct {
	Pending *PendingLogin
	User    *model.User
}

// BeginLogin はログイン開始を記録する。既存のPendingは上書きされる。
// ログイン済みユーザーはコールバック成功まで保持したままにする。
func (s *State) BeginLogin(p PendingLogin) {
	s.Pending = &p
}

// CompleteLogin はログイン完了を記録する。
// ユーザーのスナップショットを保存し、Pendingを破棄する。
func (s *State) CompleteLogin(u model.User) {
	s.User = &u
	s.Pending = nil
}

// Authenticated はセッションがログイン済みユーザーを保持しているかを返す。
func (s *State) Authenticated() bool {
	return s != nil && s.User != nil && s.User.Subject != ""
}

func (s State) clone() State {
	out := State{}
	if s.Pending != nil {
		p := *s.Pending
		out.Pending = &p
	}
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	return out
}

// Session はストアに保存される1件のセッション。
type Session struct {
	ID        string
	State     State
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired はセッションが指定時刻に失効しているかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

func (s *Session) clone() *Session {
	out := *s
	out.State = s.State.clone()
	return &out
}

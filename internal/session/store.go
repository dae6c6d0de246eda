package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotFound はセッションが存在しないか失効している場合に返す。
var ErrNotFound = errors.New("session not found")

// Store はセッションの永続化を抽象化するインターフェース。
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// MemoryStore はプロセス内のmapにセッションを保持するStore実装。
// 出し入れの際に値をコピーするため、並行リクエスト間で状態を共有しない。
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore は空のMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Get はIDに対応するセッションのコピーを返す。
// 存在しないか失効済みの場合はErrNotFoundを返す。
func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok || s.Expired(m.now()) {
		return nil, ErrNotFound
	}
	return s.clone(), nil
}

// Save はセッションのコピーを保存する。同じIDの既存セッションは置き換える。
func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("session id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.ID] = s.clone()
	return nil
}

// Delete はセッションを削除する。存在しない場合もエラーにしない。
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

// DeleteExpired は指定時刻で失効しているセッションを削除し、削除件数を返す。
func (m *MemoryStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

// Len は保持しているセッション数を返す。失効済みも含む。
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

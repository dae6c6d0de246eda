package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrServiceUnavailable はIdPのディスカバリが未完了の場合に返す。時間をおいて再試行できる。
	ErrServiceUnavailable = errors.New("identity provider is not ready")
	// ErrMissingVerifier はセッションにログイン途中の情報がない状態でコールバックが呼ばれた場合に返す。
	ErrMissingVerifier = errors.New("no pending login in session")
	// ErrStateMismatch はコールバックのstateがセッションに保存したstateと一致しない場合に返す。
	ErrStateMismatch = errors.New("callback state does not match pending login")
	// ErrUnauthenticated はセッションにログイン済みユーザーがない場合に返す。
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrForbidden はログイン済みだがロールが許可されていない場合に返す。
	ErrForbidden = errors.New("role not permitted")
)

// DiscoveryError はIdPメタデータの取得に失敗したことを表す。
type DiscoveryError struct {
	Issuer string
	Err    error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("failed to discover identity provider %s: %v", e.Issuer, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// TokenExchangeError は認可コードの交換またはIDトークンの検証に失敗したことを表す。
type TokenExchangeError struct {
	Err error
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed: %v", e.Err)
}

func (e *TokenExchangeError) Unwrap() error { return e.Err }

// StorageError はログイン処理中のユーザー保存・再読込に失敗したことを表す。
// Stageには失敗した段階（upsert, read_back）が入る。
type StorageError struct {
	Stage string
	Err   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("user storage failed at %s: %v", e.Stage, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Stage はエラーが発生したログイン処理の段階名を返す。ログ出力用。
func Stage(err error) string {
	var storageErr *StorageError
	var exchangeErr *TokenExchangeError
	switch {
	case errors.Is(err, ErrServiceUnavailable):
		return "readiness"
	case errors.Is(err, ErrMissingVerifier):
		return "pending_login"
	case errors.Is(err, ErrStateMismatch):
		return "state"
	case errors.As(err, &exchangeErr):
		return "exchange"
	case errors.As(err, &storageErr):
		return storageErr.Stage
	default:
		return "unknown"
	}
}

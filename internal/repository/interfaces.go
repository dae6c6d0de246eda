// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/labpractice/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Upsert はsubjectをキーにユーザーを作成または更新する。
	// 既存行のメール・表示名・ロールは入力値で上書きされる。単一の原子的な書き込みで行う。
	Upsert(ctx context.Context, user *model.User) error

	// FindBySubject はIdPのsubjectでユーザーを取得する。見つからない場合はnilを返す。
	FindBySubject(ctx context.Context, subject string) (*model.User, error)
}

// PracticeRepository は実習データの永続化インターフェース。
type PracticeRepository interface {
	// List は実習を公開日の新しい順に返す。
	List(ctx context.Context) ([]model.Practice, error)

	// FindByID は指定IDの実習を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Practice, error)

	// Create は実習を作成し、採番されたIDと既定値を反映して返す。
	Create(ctx context.Context, practice *model.Practice) (*model.Practice, error)

	// Update は指定されたフィールドのみ更新する。見つからない場合はnilを返す。
	Update(ctx context.Context, id int64, patch model.PracticePatch) (*model.Practice, error)

	// Close は実習をcerradaにする。見つからない場合はnilを返す。
	Close(ctx context.Context, id int64) (*model.Practice, error)
}

// ReportRepository はレポートデータの永続化インターフェース。
type ReportRepository interface {
	// Create はレポートを作成し、採番されたIDと提出日時を反映して返す。
	Create(ctx context.Context, report *model.Report) (*model.Report, error)

	// ListByUser は指定ユーザーのレポートを提出日時の新しい順に返す。
	ListByUser(ctx context.Context, userID string) ([]model.StudentReport, error)

	// ListByPractice は指定実習のレポートを提出日時の新しい順に返す。
	ListByPractice(ctx context.Context, practiceID int64) ([]model.PracticeReport, error)

	// Grade はレポートを採点済みにする。feedbackがnilの場合は既存のフィードバックを保持する。
	// 見つからない場合はnilを返す。
	Grade(ctx context.Context, id int64, grade float64, feedback *string) (*model.Report, error)
}

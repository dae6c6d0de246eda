// Package logger はJSON構造化ログの初期化を提供する。
package logger

import (
	"io"
	"log/slog"
	"os"
)

// ServiceName は全ログレコードに付与するservice属性の値。
const ServiceName = "labpractice"

// グローバルロガーの出力レベル。設定読み込み後にSetLevelで変更する。
var level = new(slog.LevelVar)

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
// 出力にはservice属性を付与する。
func Setup(w io.Writer, leveler slog.Leveler) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: leveler,
	})
	return slog.New(handler).With(slog.String("service", ServiceName))
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定する。
// 本番ではos.Stdoutを渡すことを想定している。レベルの初期値はINFO。
func SetupDefault(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	slog.SetDefault(Setup(w, level))
}

// SetLevel はグローバルロガーの出力レベルを変更する。
func SetLevel(l slog.Level) {
	level.Set(l)
}

// Command labpractice は実習管理バックエンドのエントリーポイント。
//
// サブコマンド:
//
//	serve        APIサーバーを起動する（既定）
//	migrate      データベースマイグレーションを適用する
//	healthcheck  /health を確認する（Dockerヘルスチェック用）
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/labpractice/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "labpractice: %v\n", err)
		os.Exit(1)
	}
}

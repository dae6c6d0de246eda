package app

import (
	"fmt"
	"io"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandMigrate はデータベースマイグレーションを適用して終了することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は稼働中のサーバーの /health を確認することを示す。
	// シェルのないdistrolessイメージでのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
	// CommandHelp は使い方を表示することを示す。
	CommandHelp Command = "help"
)

const usage = `usage: labpractice [command]

commands:
  serve        start the API server (default)
  migrate      apply database migrations and exit
  healthcheck  probe /health on SERVER_PORT (default 3000)
  help         show this message
`

// ParseCommand はコマンドライン引数の先頭からサブコマンドを解析する。
// 引数が空または未知のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch arg := args[0]; arg {
	case "-h", "--help":
		return CommandHelp
	default:
		switch cmd := Command(arg); cmd {
		case CommandMigrate, CommandHealthcheck, CommandHelp:
			return cmd
		}
		return CommandServe
	}
}

func printUsage(w io.Writer) error {
	_, err := fmt.Fprint(w, usage)
	return err
}

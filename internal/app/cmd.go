package app

// Command は単一バイナリの起動モードを表す。
// APIサーバーとクリーンアップワーカーを同じイメージから起動できるようにする。
type Command string

const (
	// CommandServe はAPIサーバーとして起動する。
	CommandServe Command = "serve"
	// CommandWorker はクリーンアップワーカーとして起動する。
	CommandWorker Command = "worker"
	// CommandMigrate はマイグレーションを適用して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを1回実行して終了する。
	// シェルを持たないdistrolessイメージのHEALTHCHECKから呼ばれる。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand は先頭のコマンドライン引数をサブコマンドとして解釈する。
// 引数なし・未知の値はいずれもserveにフォールバックする。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "worker":
		return CommandWorker
	case "serve":
		return CommandServe
	case "migrate":
		return CommandMigrate
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}

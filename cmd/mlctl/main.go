// MLサービスのコマンドラインクライアント。
//
// 使い方:
//
//	mlctl health
//	mlctl embed "hello" "world"
//	mlctl refactor --instruction "rename x" --code-file main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/nao1215/polyscale/pkg/httpclient"
)

// CLI はコマンドライン定義。
type CLI struct {
	Health   HealthCmd   `cmd:"" help:"ヘルスチェックを実行する。"`
	Version  VersionCmd  `cmd:"" help:"サービス名とバージョンを表示する。"`
	Embed    EmbedCmd    `cmd:"" help:"文字列の埋め込みベクトルを取得する。"`
	Refactor RefactorCmd `cmd:"" help:"コードのリファクタリングパッチを取得する。"`

	URL       string        `help:"MLサービスのベースURL。" env:"MLSERVICE_URL" default:"http://localhost:8000"`
	Timeout   time.Duration `help:"リクエストのタイムアウト。" default:"30s"`
	RequestID string        `name:"request-id" help:"X-Request-IDとして送信するID。"`
}

// runContext は各サブコマンドに渡す実行時情報。
type runContext struct {
	ctx    context.Context
	client *httpclient.Client
	out    io.Writer
}

// HealthCmd はヘルスチェックを実行する。
type HealthCmd struct{}

func (c *HealthCmd) Run(rc *runContext) error {
	res, err := rc.client.Health(rc.ctx)
	if err != nil {
		return err
	}
	return printJSON(rc.out, res)
}

// VersionCmd はサービス名とバージョンを表示する。
type VersionCmd struct{}

func (c *VersionCmd) Run(rc *runContext) error {
	res, err := rc.client.Version(rc.ctx)
	if err != nil {
		return err
	}
	return printJSON(rc.out, res)
}

// EmbedCmd は埋め込みベクトルを取得する。
type EmbedCmd struct {
	Texts []string `arg:"" optional:"" help:"埋め込み対象の文字列。"`
}

func (c *EmbedCmd) Run(rc *runContext) error {
	res, err := rc.client.Embed(rc.ctx, c.Texts)
	if err != nil {
		return err
	}
	return printJSON(rc.out, res)
}

// RefactorCmd はリファクタリングパッチを取得する。
type RefactorCmd struct {
	Instruction string `required:"" help:"リファクタリングの指示。"`
	Code        string `help:"対象のソースコード。" xor:"source"`
	CodeFile    string `name:"code-file" help:"対象のソースコードを読み込むファイル。\"-\"で標準入力。" xor:"source"`
}

func (c *RefactorCmd) Run(rc *runContext) error {
	code := c.Code
	if c.CodeFile != "" {
		b, err := readSource(c.CodeFile)
		if err != nil {
			return err
		}
		code = string(b)
	}

	res, err := rc.client.Refactor(rc.ctx, code, c.Instruction)
	if err != nil {
		return err
	}
	return printJSON(rc.out, res)
}

// readSource はpathからソースコードを読み込む。"-"の場合は標準入力から読む。
func readSource(path string) ([]byte, error) {
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("標準入力の読み込みに失敗: %w", err)
		}
		return b, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ソースファイルの読み込みに失敗: %w", err)
	}
	return b, nil
}

// printJSON はvをインデント付きJSONとして出力する。
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("結果の出力に失敗: %w", err)
	}
	return nil
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("mlctl"),
		kong.Description("PolyScale MLサービスのクライアント。"),
		kong.UsageOnError(),
	)

	ctx := context.Background()
	if cli.RequestID != "" {
		ctx = httpclient.WithRequestID(ctx, cli.RequestID)
	}
	rc := &runContext{
		ctx:    ctx,
		client: httpclient.New(cli.URL, httpclient.WithTimeout(cli.Timeout)),
		out:    os.Stdout,
	}

	err := kctx.Run(rc)
	var apiErr *httpclient.APIError
	if errors.As(err, &apiErr) && len(apiErr.Details) > 0 {
		for _, d := range apiErr.Details {
			fmt.Fprintf(os.Stderr, "  %s: %s (expected %s)\n", d.Field, d.Message, d.Expected)
		}
	}
	kctx.FatalIfErrorf(err)
}

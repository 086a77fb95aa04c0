// MLサービスのエントリポイント。
// 埋め込み（/embed）とリファクタリング（/refactor）のAPIを提供する。
// 現バージョンはどちらもプレースホルダー実装で、モデルは後から差し替える。
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/polyscale/internal/config"
	"github.com/nao1215/polyscale/internal/mlservice"
)

func main() {
	configFile := flag.String("config", "", "設定ファイルのパス")
	envFile := flag.String("env-file", "", ".envファイルのパス")
	flag.Parse()

	cfg, err := config.Load(config.Options{ConfigFile: *configFile, EnvFile: *envFile})
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}
	gin.SetMode(cfg.Server.Mode)

	server, err := mlservice.NewServer(*cfg)
	if err != nil {
		log.Fatalf("MLサーバーの初期化に失敗: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("MLサービスを起動します: %s", cfg.Server.Addr())
	if err := server.Run(ctx); err != nil {
		log.Fatalf("MLサービスの起動に失敗: %v", err)
	}
	log.Printf("MLサービスを停止しました")
}

// リレーサービスのエントリポイント。
// 1inch APIへのリクエスト転送とWorldIDの証明検証を担当する。
// 設定は.envファイルと環境変数から読み込む。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/inchrelay/internal/config"
	"github.com/nao1215/inchrelay/internal/logging"
	"github.com/nao1215/inchrelay/internal/relay"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "relay: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}

	logger, err := logging.New(os.Stdout, cfg.LogLevel, !cfg.IsProduction())
	if err != nil {
		return err
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	for _, w := range cfg.Warnings() {
		logger.Warn().Msg(w)
	}

	server, err := relay.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize relay server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().Msgf("Server running on http://localhost:%s", cfg.Port)
	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("failed to run relay service: %w", err)
	}
	logger.Info().Msg("Server exiting")
	return nil
}

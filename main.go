package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"todoke/internal/admin"
	"todoke/internal/config"
	"todoke/internal/logger"
	"todoke/internal/server"
)

func main() {
	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("ロガーの作成に失敗しました: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	// サーバーを作成
	srv, err := server.New(cfg, lg)
	if err != nil {
		lg.Fatal("サーバーの作成に失敗しました", zap.Error(err))
	}

	// コンテキストを作成
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Admin.Enabled {
		adm, err := admin.New(cfg.Admin, srv, lg)
		if err != nil {
			lg.Fatal("管理APIサーバーの作成に失敗しました", zap.Error(err))
		}
		go func() {
			if err := adm.Start(ctx); err != nil {
				lg.Error("管理APIサーバーが停止しました", zap.Error(err))
			}
		}()
	}

	// サーバーを起動
	if err := srv.Start(ctx); err != nil {
		lg.Fatal("サーバーの起動に失敗しました", zap.Error(err))
	}
}

// Package main はTodoke静的ファイルサーバーコマンドの実装です
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"todoke/internal/admin"
	"todoke/internal/config"
	"todoke/internal/logger"
	"todoke/internal/server"
)

func main() {
	// コマンドラインオプション
	var (
		root       = flag.String("path", "", "配信するディレクトリ (必須)")
		port       int
		threads    int
		showDirs   = flag.Bool("d", false, "index.html のないディレクトリの一覧を表示する")
		compress   = flag.Bool("c", false, "gzipのサイドカーがなければその場で作成する")
		sendGzip   = flag.Bool("g", false, "クライアントが受け入れる場合にgzipで送信する")
		configPath = flag.String("config", "", "設定ファイル (.yaml / .yml / .toml)")
		adminPort  = flag.Int("admin-port", 0, "管理APIのポート (0で無効)")
		help       = flag.Bool("help", false, "ヘルプを表示")
	)
	flag.IntVar(&port, "p", 0, "サーバーのポート (デフォルト: 8085)")
	flag.IntVar(&port, "port", 0, "サーバーのポート (デフォルト: 8085)")
	flag.IntVar(&threads, "t", 0, "ワーカー数 (デフォルト: 1)")
	flag.IntVar(&threads, "threads", 0, "ワーカー数 (デフォルト: 1)")

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("Todoke")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  server -path <ディレクトリ> [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	// 設定を読み込む
	cfg := config.FromEnv()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadFile(*configPath)
		if err != nil {
			log.Fatalf("設定の読み込みに失敗しました: %v", err)
		}
	}

	// コマンドラインオプションで設定を上書き
	if *root != "" {
		cfg.Server.Root = *root
	} else if *configPath == "" {
		fmt.Fprintln(os.Stderr, "-path は必須です")
		flag.Usage()
		os.Exit(2)
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if threads != 0 {
		cfg.Server.Workers = threads
	}
	if *showDirs {
		cfg.Features.ShowDirectoryListing = true
	}
	if *compress {
		cfg.Features.CompressOnFly = true
	}
	if *sendGzip {
		cfg.Features.SendCompressedIfAccepted = true
	}
	if *adminPort != 0 {
		cfg.Admin.Enabled = true
		cfg.Admin.Port = *adminPort
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("設定の検証に失敗しました: %v", err)
	}

	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("ロガーの作成に失敗しました: %v", err)
	}
	defer func() { _ = lg.Sync() }()

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
	lg.Info("Todoke サーバーを起動します", zap.String("address", cfg.ServerAddress()))
	if err := srv.Start(ctx); err != nil {
		lg.Fatal("サーバーの起動に失敗しました", zap.Error(err))
	}
}

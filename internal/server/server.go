package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"todoke/internal/compress"
	"todoke/internal/config"
	"todoke/internal/pool"
	"todoke/internal/resource"
)

// accept エラー後の待ち時間。失敗が続くと倍々に延ばす
const (
	minAcceptRetryDelay = 5 * time.Millisecond
	maxAcceptRetryDelay = 1 * time.Second
)

// Server は静的ファイルサーバーを管理する構造体
type Server struct {
	config   *config.Config
	logger   *zap.Logger
	resolver *resource.Resolver
	policy   *compress.Policy
	pool     *pool.Pool
	stats    *Stats

	notFoundPath    string
	defaultNotFound []byte
	startedAt       time.Time

	// 接続読み込みの設定
	maxRequestBytes int
	drainTimeout    time.Duration

	mu           sync.Mutex
	listener     net.Listener
	shuttingDown bool
	shutdownOnce sync.Once
	shutdownErr  error
}

// Status はサーバーの現在の状態
type Status struct {
	Address   string               `json:"address"`
	Running   bool                 `json:"running"`
	Root      string               `json:"root"`
	StartedAt time.Time            `json:"started_at"`
	Features  config.FeatureConfig `json:"features"`
	Pool      pool.Stats           `json:"pool"`
	Stats     StatsSnapshot        `json:"stats"`
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	resolver, err := resource.NewResolver(cfg.Server.Root, cfg.Features.ShowDirectoryListing)
	if err != nil {
		return nil, fmt.Errorf("リゾルバーの作成に失敗: %w", err)
	}

	return &Server{
		config:          cfg,
		logger:          logger,
		resolver:        resolver,
		policy:          compress.NewPolicy(cfg.Features.SendCompressedIfAccepted, cfg.Features.CompressOnFly, logger),
		pool:            pool.New(cfg.Server.Workers, cfg.Server.QueueSize, logger),
		stats:           &Stats{},
		notFoundPath:    cfg.NotFoundPagePath(),
		defaultNotFound: getDefaultNotFoundHTML(),
		maxRequestBytes: defaultMaxRequestBytes,
		drainTimeout:    defaultDrainTimeout,
	}, nil
}

// Start はサーバーを起動し、コンテキストのキャンセルかシグナルを受けるまでブロックする
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.ServerAddress())
	if err != nil {
		return fmt.Errorf("ポートの待ち受けに失敗: %w", err)
	}

	// シャットダウン用のチャンネル
	serveCh := make(chan error, 1)

	go func() {
		s.logger.Info("サーバーを起動しています",
			zap.String("address", ln.Addr().String()),
			zap.String("root", s.resolver.Root()),
			zap.Int("workers", s.config.Server.Workers),
		)
		serveCh <- s.Serve(ctx, ln)
	}()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-ctx.Done():
		s.logger.Info("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		s.logger.Info("シグナルを受信しました", zap.String("signal", sig.String()))
	case err := <-serveCh:
		return multierr.Append(err, s.Shutdown())
	}

	return s.Shutdown()
}

// Serve は ln で接続を受け付け、ワーカープールで処理する
// ln が閉じられるまで戻らない
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.shuttingDown {
		s.mu.Unlock()
		_ = ln.Close()
		return pool.ErrClosed
	}
	s.listener = ln
	if s.startedAt.IsZero() {
		s.startedAt = time.Now()
	}
	s.mu.Unlock()

	var retryDelay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isShuttingDown() || errors.Is(err, net.ErrClosed) {
				return nil
			}

			// fd 枯渇などは一時的なものとして待ち受けを続ける
			if retryDelay == 0 {
				retryDelay = minAcceptRetryDelay
			} else {
				retryDelay = min(retryDelay*2, maxAcceptRetryDelay)
			}
			s.stats.acceptErrors.Add(1)
			s.logger.Warn("接続の受け付けに失敗しました", zap.Error(err), zap.Duration("retry_in", retryDelay))

			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		retryDelay = 0

		s.stats.connections.Add(1)

		// 満杯の間はここでブロックし、受け付けを止める
		if err := s.pool.Submit(ctx, func() { s.handleConnection(conn) }); err != nil {
			_ = conn.Close()
			if errors.Is(err, pool.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("接続処理の投入に失敗: %w", err)
		}
	}
}

// Shutdown は待ち受けを止め、処理中の接続が終わるまで待つ
func (s *Server) Shutdown() error {
	s.shutdownOnce.Do(func() {
		s.logger.Info("サーバーをシャットダウンしています...")

		s.mu.Lock()
		s.shuttingDown = true
		ln := s.listener
		s.mu.Unlock()

		if ln != nil {
			if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				s.shutdownErr = fmt.Errorf("待ち受けソケットのクローズに失敗: %w", err)
			}
		}

		s.pool.Close()
		s.logger.Info("サーバーが正常にシャットダウンされました")
	})

	return s.shutdownErr
}

// Addr は待ち受け中のアドレスを返す
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Status は現在の状態を返す
func (s *Server) Status() Status {
	s.mu.Lock()
	startedAt := s.startedAt
	var address string
	if s.listener != nil {
		address = s.listener.Addr().String()
	}
	running := s.listener != nil && !s.shuttingDown
	s.mu.Unlock()

	return Status{
		Address:   address,
		Running:   running,
		Root:      s.resolver.Root(),
		StartedAt: startedAt,
		Features:  s.config.Features,
		Pool:      s.pool.Stats(),
		Stats:     s.stats.Snapshot(),
	}
}

func (s *Server) isShuttingDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shuttingDown
}

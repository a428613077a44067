// Package admin は配信サーバーの状態を返す管理用HTTPサーバーを提供する
//
// 静的ファイルの配信とは別ポートで待ち受け、ヘルスチェックと集計値を返す。
package admin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"todoke/internal/config"
	"todoke/internal/generated"
	"todoke/internal/server"
)

const shutdownTimeout = 5 * time.Second

// StatusProvider は配信サーバーの状態を返す
type StatusProvider interface {
	Status() server.Status
}

// Server は管理APIサーバー
type Server struct {
	config     config.AdminConfig
	provider   StatusProvider
	logger     *zap.Logger
	swagger    *openapi3.T
	engine     *gin.Engine
	httpServer *http.Server
}

// New は新しい管理APIサーバーを作成する
func New(cfg config.AdminConfig, provider StatusProvider, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	swagger, err := generated.GetSwagger()
	if err != nil {
		return nil, fmt.Errorf("OpenAPI定義の読み込みに失敗: %w", err)
	}
	// 定義中のサーバーURLは実際の待ち受け先と一致しないため消す
	swagger.Servers = nil

	s := &Server{
		config:   cfg,
		provider: provider,
		logger:   logger,
		swagger:  swagger,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())
	generated.RegisterHandlers(engine, s)
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, generated.ErrorResponse{Error: "not found"})
	})
	s.engine = engine

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s, nil
}

// Handler はルーティング済みのハンドラーを返す
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start は管理APIサーバーを起動し、コンテキストがキャンセルされるまでブロックする
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("管理ポートの待ち受けに失敗: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve は ln で管理APIを提供する
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("管理APIサーバーを起動しています", zap.String("address", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("管理APIサーバーの起動に失敗: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("管理APIサーバーのシャットダウンに失敗: %w", err)
	}
	s.logger.Info("管理APIサーバーが正常にシャットダウンされました")
	return nil
}

// requestLogger はリクエストごとにアクセスログを出すミドルウェア
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Debug("管理APIリクエスト",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

package apihttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"botledger/internal/journal"
	"botledger/internal/ledger"
	"botledger/internal/logger"
	"botledger/internal/processor"
	"botledger/internal/store"
)

// Ledger 是 HTTP 层依赖的账本运行时接口，由 processor.Processor 实现。
type Ledger interface {
	ProgramID() ledger.PublicKey
	Submit(ctx context.Context, tx *ledger.Transaction) (processor.Receipt, error)
	Airdrop(ctx context.Context, to ledger.PublicKey, lamports uint64) (processor.Receipt, error)
	Account(ctx context.Context, addr ledger.PublicKey) (*store.Account, error)
	Bot(ctx context.Context, authority ledger.PublicKey) (ledger.PublicKey, *ledger.BotRecord, error)
	History(ctx context.Context, authority ledger.PublicKey, limit int) ([]journal.Entry, error)
}

// BotLister 由支持索引查询的存储实现（gormstore）。
type BotLister interface {
	BotViews(ctx context.Context, limit int) ([]ledger.BotView, error)
}

// Server 提供账本的 JSON API。
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig 描述 HTTP 服务依赖。
type ServerConfig struct {
	Addr   string
	Ledger Ledger
	// Bots is optional; GET /api/v1/bots is only mounted when set.
	Bots BotLister
}

// NewServer 构建 HTTP server。
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Ledger == nil {
		return nil, errors.New("http server requires a ledger")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8899"
	}
	schemas, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "program_id": cfg.Ledger.ProgramID()})
	})
	api := newRouter(cfg.Ledger, cfg.Bots, schemas)
	api.Register(router.Group("/api/v1"))

	return &Server{addr: cfg.Addr, router: router}, nil
}

// requestLogger 记录每个请求的状态码与耗时。
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			path += "?" + q
		}
		c.Next()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s",
			c.Request.Method, path, c.Writer.Status(), c.ClientIP(), time.Since(start))
	}
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Handler exposes the router for httptest.
func (s *Server) Handler() http.Handler { return s.router }

// Start 启动 HTTP 服务，直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Infof("HTTP API listening on %s", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

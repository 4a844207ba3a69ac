package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"botledger/internal/config"
	"botledger/internal/feed"
	"botledger/internal/ledger"
	"botledger/internal/logger"
	"botledger/internal/processor"
	"botledger/internal/store"
	apihttp "botledger/internal/transport/http/api"
	"botledger/internal/venue"
)

// App 负责应用级编排：账本运行时、HTTP API 与可选的 keeper。
type App struct {
	cfg    *config.Config
	store  store.AccountStore
	proc   *processor.Processor
	router *venue.Router
	http   *apihttp.Server
	keeper *feed.Keeper

	keeperAuthority ledger.PublicKey
	Summary         *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *config.Config, opts ...AppBuilderOption) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return NewAppBuilder(cfg, opts...).Build(context.Background())
}

// Run 启动所有服务，直到 ctx 取消或任一服务出错。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil || a.proc == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}

	a.proc.Start()
	defer a.close()

	group, ctx := errgroup.WithContext(ctx)
	if a.http != nil {
		group.Go(func() error {
			if err := a.http.Start(ctx); err != nil {
				return fmt.Errorf("http server error: %w", err)
			}
			return nil
		})
	}
	if a.keeper != nil {
		group.Go(func() error {
			return a.keeper.Run(ctx)
		})
	}
	return group.Wait()
}

// close stops the processor, which also closes the journal, then the store.
func (a *App) close() {
	a.proc.Stop()
	if err := a.store.Close(); err != nil {
		logger.Warnf("close account store: %v", err)
	}
}

// Processor exposes the ledger runtime (for tests and embedding).
func (a *App) Processor() *processor.Processor {
	if a == nil {
		return nil
	}
	return a.proc
}

// Router exposes the venue router.
func (a *App) Router() *venue.Router {
	if a == nil {
		return nil
	}
	return a.router
}

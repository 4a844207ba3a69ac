package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"botledger/internal/config"
	"botledger/internal/feed"
	"botledger/internal/journal"
	"botledger/internal/ledger"
	"botledger/internal/logger"
	"botledger/internal/processor"
	"botledger/internal/store"
	"botledger/internal/store/gormstore"
	"botledger/internal/store/memory"
	apihttp "botledger/internal/transport/http/api"
	"botledger/internal/venue"
)

type AppBuilder struct {
	cfg *config.Config

	storeFn   func(config.StoreConfig, ledger.PublicKey) (store.AccountStore, error)
	journalFn func(config.JournalConfig) (journal.Journal, error)
	httpFn    func(config.AppConfig, apihttp.Ledger, apihttp.BotLister) (*apihttp.Server, error)
	pricesFn  func(config.KeeperConfig) feed.PriceSource
}

type AppBuilderOption func(*AppBuilder)

// WithPriceSource replaces the Binance feed, for tests and dry runs.
func WithPriceSource(src feed.PriceSource) AppBuilderOption {
	return func(b *AppBuilder) {
		b.pricesFn = func(config.KeeperConfig) feed.PriceSource { return src }
	}
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:       cfg,
		storeFn:   buildStore,
		journalFn: buildJournal,
		httpFn:    buildHTTPServer,
		pricesFn:  buildPriceSource,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := b.cfg
	programID, err := cfg.Ledger.ProgramKey()
	if err != nil {
		return nil, err
	}
	st, err := b.storeFn(cfg.Store, programID)
	if err != nil {
		return nil, fmt.Errorf("open account store: %w", err)
	}
	jr, err := b.journalFn(cfg.Journal)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("open journal: %w", err)
	}

	proc := processor.New(st, processor.Config{
		ProgramID:    programID,
		Params:       cfg.Ledger.Params(),
		InboxSize:    cfg.Ledger.InboxSize,
		AllowAirdrop: cfg.Ledger.AllowAirdrop,
	}, processor.WithJournal(jr))
	replayed, err := proc.Recover(ctx)
	if err != nil {
		_ = jr.Close()
		_ = st.Close()
		return nil, fmt.Errorf("replay journal: %w", err)
	}

	router := venue.NewRouter(proc)
	if err := registerVenues(router, cfg.Venues); err != nil {
		_ = jr.Close()
		_ = st.Close()
		return nil, err
	}

	var lister apihttp.BotLister
	if l, ok := st.(apihttp.BotLister); ok {
		lister = l
	}
	server, err := b.httpFn(cfg.App, proc, lister)
	if err != nil {
		_ = jr.Close()
		_ = st.Close()
		return nil, err
	}

	app := &App{
		cfg:    cfg,
		store:  st,
		proc:   proc,
		router: router,
		http:   server,
	}
	if cfg.Keeper.Enabled {
		kp, created, err := loadOrCreateKeypair(cfg.Keeper.KeypairPath)
		if err != nil {
			_ = jr.Close()
			_ = st.Close()
			return nil, fmt.Errorf("load keeper keypair: %w", err)
		}
		if created {
			logger.Infof("generated keeper keypair %s -> %s", kp.PublicKey(), cfg.Keeper.KeypairPath)
		}
		var swapper feed.Swapper
		if cfg.Keeper.AutoTrade {
			swapper = router
		}
		app.keeper = feed.NewKeeper(cfg.Keeper, kp, b.pricesFn(cfg.Keeper), proc, swapper)
		app.keeperAuthority = kp.PublicKey()
	}
	app.Summary = newStartupSummary(cfg, programID, replayed, app.keeperAuthority)
	return app, nil
}

func buildStore(cfg config.StoreConfig, programID ledger.PublicKey) (store.AccountStore, error) {
	switch cfg.Driver {
	case config.StoreSQLite:
		return gormstore.NewGormStore(cfg.Path, programID)
	default:
		return memory.New(), nil
	}
}

func buildJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Driver {
	case config.JournalFile:
		return journal.NewFileJournal(cfg.Path)
	case config.JournalSQLite:
		return journal.NewSQLiteJournal(cfg.Path)
	default:
		return journal.Nop{}, nil
	}
}

func buildHTTPServer(cfg config.AppConfig, l apihttp.Ledger, bots apihttp.BotLister) (*apihttp.Server, error) {
	return apihttp.NewServer(apihttp.ServerConfig{Addr: cfg.HTTPAddr, Ledger: l, Bots: bots})
}

func buildPriceSource(cfg config.KeeperConfig) feed.PriceSource {
	return feed.NewBinanceSource(cfg.BinanceBaseURL, 0)
}

func registerVenues(r *venue.Router, cfg config.VenuesConfig) error {
	if cfg.Jupiter.Enabled {
		c, err := venue.NewJupiterClient(cfg.Jupiter)
		if err != nil {
			return err
		}
		r.Register(c)
	}
	if cfg.Raydium.Enabled {
		c, err := venue.NewRaydiumClient(cfg.Raydium)
		if err != nil {
			return err
		}
		r.Register(c)
	}
	return nil
}

func loadOrCreateKeypair(path string) (ledger.Keypair, bool, error) {
	kp, err := ledger.LoadKeypair(path)
	if err == nil {
		return kp, false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return ledger.Keypair{}, false, err
	}
	kp, err = ledger.NewKeypair()
	if err != nil {
		return ledger.Keypair{}, false, err
	}
	if err := kp.Save(path); err != nil {
		return ledger.Keypair{}, false, err
	}
	return kp, true, nil
}

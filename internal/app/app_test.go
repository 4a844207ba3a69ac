package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botledger/internal/config"
	"botledger/internal/ledger"
)

type fixedPrices struct{}

func (fixedPrices) Prices(_ context.Context, symbols ...string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(symbols))
	for _, s := range symbols {
		out[s] = decimal.NewFromInt(1)
	}
	return out, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		App: config.AppConfig{Env: "test", LogLevel: "warn", HTTPAddr: "127.0.0.1:0"},
		Ledger: config.LedgerConfig{
			ProgramID:               ledger.DefaultProgramID,
			DCAIntervalSeconds:      ledger.DefaultDCAInterval,
			MinTradeIntervalSeconds: ledger.DefaultMinTradeInterval,
			InboxSize:               10,
			AllowAirdrop:            true,
		},
		Store:   config.StoreConfig{Driver: config.StoreMemory},
		Journal: config.JournalConfig{Driver: config.JournalFile, Path: filepath.Join(dir, "journal.jsonl")},
		Venues: config.VenuesConfig{
			Jupiter: config.VenueConfig{Enabled: true, BaseURL: "http://127.0.0.1:1", TimeoutSeconds: 1},
		},
		Keeper: config.KeeperConfig{
			Enabled:         true,
			KeypairPath:     filepath.Join(dir, "keys", "keeper.json"),
			IntervalSeconds: 1,
			SymbolA:         "SOLUSDT",
			SymbolB:         "USDCUSDT",
			PriceDecimals:   6,
			Venue:           "jupiter",
		},
	}
}

func TestBuildRecoversJournal(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	a, err := NewApp(cfg, WithPriceSource(fixedPrices{}))
	require.NoError(t, err)
	require.NotNil(t, a.keeper)
	assert.ElementsMatch(t, []string{"jupiter"}, a.Router().Venues())
	assert.Equal(t, 0, a.Summary.Replayed)

	kp, err := ledger.LoadKeypair(cfg.Keeper.KeypairPath)
	require.NoError(t, err)
	assert.Equal(t, a.keeperAuthority, kp.PublicKey())

	p := a.Processor()
	p.Start()
	_, err = p.Airdrop(ctx, kp.PublicKey(), ledger.LamportsPerSOL)
	require.NoError(t, err)
	bot, _, err := ledger.BotAddress(kp.PublicKey(), p.ProgramID())
	require.NoError(t, err)
	tx, err := ledger.NewTransaction(ledger.InstrInitializeBot, kp.PublicKey(), bot, ledger.InitializeParams{
		Strategy:       ledger.Strategy{Type: ledger.DCA, TokenA: ledger.PublicKey{1}, TokenB: ledger.PublicKey{2}, TradeAmount: 5},
		InitialBalance: 100,
	})
	require.NoError(t, err)
	tx.Sign(kp)
	_, err = p.Submit(ctx, tx)
	require.NoError(t, err)
	a.close()

	b, err := NewApp(cfg, WithPriceSource(fixedPrices{}))
	require.NoError(t, err)
	t.Cleanup(b.close)
	assert.Equal(t, 2, b.Summary.Replayed)
	assert.Equal(t, kp.PublicKey(), b.keeperAuthority)

	_, rec, err := b.Processor().Bot(ctx, kp.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(100), rec.Balance)
	assert.Equal(t, ledger.DCA, rec.Strategy.Type)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Keeper.Enabled = false
	a, err := NewApp(cfg)
	require.NoError(t, err)
	assert.Nil(t, a.keeper)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestBuildRejectsBadVenue(t *testing.T) {
	cfg := testConfig(t)
	cfg.Venues.Raydium = config.VenueConfig{Enabled: true, BaseURL: "http://127.0.0.1:1", PoolCoinTokenAccount: "0OIl"}
	_, err := NewApp(cfg)
	assert.Error(t, err)
}

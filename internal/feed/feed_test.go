package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"botledger/internal/config"
	"botledger/internal/journal"
	"botledger/internal/ledger"
	"botledger/internal/processor"
	"botledger/internal/store/memory"
	"botledger/internal/venue"
)

type staticPrices map[string]decimal.Decimal

func (s staticPrices) Prices(_ context.Context, symbols ...string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(symbols))
	for _, sym := range symbols {
		px, ok := s[sym]
		if !ok {
			return nil, errors.New("no price for " + sym)
		}
		out[sym] = px
	}
	return out, nil
}

type mockSwapper struct {
	mock.Mock
}

func (m *mockSwapper) Swap(ctx context.Context, signer ledger.Keypair, req venue.SwapRequest) (venue.SwapResult, error) {
	args := m.Called(ctx, signer, req)
	return args.Get(0).(venue.SwapResult), args.Error(1)
}

func keeperConfig() config.KeeperConfig {
	return config.KeeperConfig{
		Enabled:         true,
		IntervalSeconds: 1,
		SymbolA:         "SOLUSDT",
		SymbolB:         "USDCUSDT",
		PriceDecimals:   6,
		AutoTrade:       true,
		Venue:           venue.Jupiter,
	}
}

type harness struct {
	p     *processor.Processor
	owner ledger.Keypair
	bot   ledger.PublicKey
}

func newHarness(t *testing.T, initialize bool) *harness {
	t.Helper()
	p := processor.New(memory.New(), processor.Config{AllowAirdrop: true})
	p.Start()
	t.Cleanup(p.Stop)
	owner, err := ledger.NewKeypair()
	require.NoError(t, err)
	bot, _, err := ledger.BotAddress(owner.PublicKey(), p.ProgramID())
	require.NoError(t, err)
	h := &harness{p: p, owner: owner, bot: bot}
	if !initialize {
		return h
	}
	ctx := context.Background()
	_, err = p.Airdrop(ctx, owner.PublicKey(), ledger.LamportsPerSOL)
	require.NoError(t, err)
	h.send(t, ledger.InstrInitializeBot, ledger.InitializeParams{
		Strategy: ledger.Strategy{
			Type:          ledger.GridTrading,
			TokenA:        ledger.PublicKey{1},
			TokenB:        ledger.PublicKey{2},
			BuyThreshold:  9500,
			SellThreshold: 10500,
			MaxSlippage:   50,
			TradeAmount:   1_000,
		},
		InitialBalance: 10_000,
	})
	return h
}

func (h *harness) send(t *testing.T, instr ledger.InstructionType, params any) {
	t.Helper()
	tx, err := ledger.NewTransaction(instr, h.owner.PublicKey(), h.bot, params)
	require.NoError(t, err)
	tx.Sign(h.owner)
	r, err := h.p.Submit(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, journal.StatusOK, r.Status)
}

func TestKeeperBuySignalRoutesSwap(t *testing.T) {
	h := newHarness(t, true)
	sw := &mockSwapper{}
	sw.On("Swap", mock.Anything, h.owner, venue.SwapRequest{Venue: venue.Jupiter, Direction: ledger.Buy}).
		Return(venue.SwapResult{MinimumAmountOut: 1}, nil).Once()

	prices := staticPrices{"SOLUSDT": decimal.RequireFromString("0.9"), "USDCUSDT": decimal.RequireFromString("1.0")}
	k := NewKeeper(keeperConfig(), h.owner, prices, h.p, sw)

	res, err := k.Tick(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Skipped)
	assert.Equal(t, ledger.SignalBuy, res.Signal.Kind)
	assert.Equal(t, uint64(9000), res.Signal.Ratio)
	assert.True(t, res.CanTrade)
	require.NotNil(t, res.Swap)
	sw.AssertExpectations(t)
}

func TestKeeperSellSignal(t *testing.T) {
	h := newHarness(t, true)
	sw := &mockSwapper{}
	sw.On("Swap", mock.Anything, h.owner, venue.SwapRequest{Venue: venue.Jupiter, Direction: ledger.Sell}).
		Return(venue.SwapResult{}, nil).Once()

	prices := staticPrices{"SOLUSDT": decimal.RequireFromString("1.2"), "USDCUSDT": decimal.RequireFromString("1")}
	k := NewKeeper(keeperConfig(), h.owner, prices, h.p, sw)
	res, err := k.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ledger.SignalSell, res.Signal.Kind)
	sw.AssertExpectations(t)
}

func TestKeeperNoSignalNoSwap(t *testing.T) {
	h := newHarness(t, true)
	sw := &mockSwapper{}
	prices := staticPrices{"SOLUSDT": decimal.RequireFromString("1.0"), "USDCUSDT": decimal.RequireFromString("1.0")}
	k := NewKeeper(keeperConfig(), h.owner, prices, h.p, sw)

	res, err := k.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ledger.SignalNone, res.Signal.Kind)
	assert.Nil(t, res.Swap)
	sw.AssertNotCalled(t, "Swap", mock.Anything, mock.Anything, mock.Anything)
}

func TestKeeperAutoTradeOff(t *testing.T) {
	h := newHarness(t, true)
	sw := &mockSwapper{}
	cfg := keeperConfig()
	cfg.AutoTrade = false
	prices := staticPrices{"SOLUSDT": decimal.RequireFromString("0.5"), "USDCUSDT": decimal.RequireFromString("1")}
	k := NewKeeper(cfg, h.owner, prices, h.p, sw)

	res, err := k.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ledger.SignalBuy, res.Signal.Kind)
	assert.Nil(t, res.Swap)
	sw.AssertNotCalled(t, "Swap", mock.Anything, mock.Anything, mock.Anything)
}

func TestKeeperSkipsMissingAndPausedBot(t *testing.T) {
	h := newHarness(t, false)
	k := NewKeeper(keeperConfig(), h.owner, staticPrices{}, h.p, nil)
	res, err := k.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bot not initialized", res.Skipped)

	h = newHarness(t, true)
	h.send(t, ledger.InstrPauseBot, nil)
	k = NewKeeper(keeperConfig(), h.owner, staticPrices{}, h.p, nil)
	res, err = k.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bot paused", res.Skipped)
}

func TestKeeperPriceError(t *testing.T) {
	h := newHarness(t, true)
	k := NewKeeper(keeperConfig(), h.owner, staticPrices{"SOLUSDT": decimal.NewFromInt(1)}, h.p, nil)
	_, err := k.Tick(context.Background())
	assert.Error(t, err)
}

func TestToUnits(t *testing.T) {
	u, err := ToUnits(decimal.RequireFromString("145.2345678"), 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(145234567), u)

	_, err = ToUnits(decimal.Zero, 6)
	assert.Error(t, err)
	_, err = ToUnits(decimal.RequireFromString("0.0000001"), 6)
	assert.Error(t, err)
}

func TestBinanceSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/price", r.URL.Path)
		_, _ = w.Write([]byte(`[{"symbol":"SOLUSDT","price":"145.23000000"},{"symbol":"USDCUSDT","price":"1.00010000"}]`))
	}))
	defer srv.Close()

	src := NewBinanceSource(srv.URL, 0)
	px, err := src.Prices(context.Background(), "SOL/USDT", "usdcusdt")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("145.23").Equal(px["SOLUSDT"]))
	assert.True(t, decimal.RequireFromString("1.0001").Equal(px["USDCUSDT"]))
}

func TestBinanceSourceMissingSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"symbol":"SOLUSDT","price":"145.23"}`))
	}))
	defer srv.Close()

	src := NewBinanceSource(srv.URL, 0)
	_, err := src.Prices(context.Background(), "SOLUSDT", "USDCUSDT")
	assert.Error(t, err)
}

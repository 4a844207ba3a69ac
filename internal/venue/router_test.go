package venue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"botledger/internal/journal"
	"botledger/internal/ledger"
	"botledger/internal/processor"
)

type mockSubmitter struct {
	mock.Mock
}

func (m *mockSubmitter) Submit(ctx context.Context, tx *ledger.Transaction) (processor.Receipt, error) {
	args := m.Called(ctx, tx)
	return args.Get(0).(processor.Receipt), args.Error(1)
}

func (m *mockSubmitter) Bot(ctx context.Context, authority ledger.PublicKey) (ledger.PublicKey, *ledger.BotRecord, error) {
	args := m.Called(ctx, authority)
	rec, _ := args.Get(1).(*ledger.BotRecord)
	return args.Get(0).(ledger.PublicKey), rec, args.Error(2)
}

type stubQuoter struct {
	name  string
	quote Quote
	err   error
	got   []QuoteRequest
}

func (s *stubQuoter) Name() string { return s.name }

func (s *stubQuoter) Quote(_ context.Context, req QuoteRequest) (Quote, error) {
	s.got = append(s.got, req)
	q := s.quote
	q.AmountIn = req.AmountIn
	return q, s.err
}

func testSigner(t *testing.T) ledger.Keypair {
	t.Helper()
	seed := make([]byte, 32)
	seed[0] = 7
	kp, err := ledger.KeypairFromSeed(seed)
	require.NoError(t, err)
	return kp
}

func testBot(t *testing.T, signer ledger.Keypair, active bool) (ledger.PublicKey, *ledger.BotRecord) {
	t.Helper()
	addr, bump, err := ledger.BotAddress(signer.PublicKey(), ledger.MustPublicKey(ledger.DefaultProgramID))
	require.NoError(t, err)
	rec := &ledger.BotRecord{
		Authority: signer.PublicKey(),
		Bump:      bump,
		IsActive:  active,
		Strategy: ledger.Strategy{
			Type:        ledger.GridTrading,
			TokenA:      ledger.MustPublicKey("So11111111111111111111111111111111111111112"),
			TokenB:      ledger.MustPublicKey("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"),
			MaxSlippage: 100,
			TradeAmount: 2000,
		},
	}
	return addr, rec
}

func TestRouterSubmitsJupiterSwap(t *testing.T) {
	signer := testSigner(t)
	addr, rec := testBot(t, signer, true)
	sub := &mockSubmitter{}
	sub.On("Bot", mock.Anything, signer.PublicKey()).Return(addr, rec, nil)

	var submitted *ledger.Transaction
	sub.On("Submit", mock.Anything, mock.AnythingOfType("*ledger.Transaction")).
		Run(func(args mock.Arguments) { submitted = args.Get(1).(*ledger.Transaction) }).
		Return(processor.Receipt{Slot: 3, Status: journal.StatusOK}, nil)

	q := &stubQuoter{name: Jupiter, quote: Quote{Venue: Jupiter, AmountOut: 1500}}
	r := NewRouter(sub, q)

	res, err := r.Swap(context.Background(), signer, SwapRequest{Venue: "Jupiter", Direction: ledger.Buy})
	require.NoError(t, err)
	require.Len(t, q.got, 1)
	assert.Equal(t, rec.Strategy.TokenB.String(), q.got[0].InputMint)
	assert.Equal(t, rec.Strategy.TokenA.String(), q.got[0].OutputMint)
	assert.Equal(t, uint64(2000), q.got[0].AmountIn)
	assert.Equal(t, uint16(100), q.got[0].SlippageBps)
	assert.Equal(t, uint64(1485), res.MinimumAmountOut)
	assert.True(t, res.Outcome.Success)

	require.NotNil(t, submitted)
	assert.Equal(t, ledger.InstrJupiterSwap, submitted.Instruction)
	assert.Equal(t, addr, submitted.Account)
	require.NoError(t, submitted.Verify())
	var params ledger.JupiterSwapParams
	require.NoError(t, submitted.DecodePayload(&params))
	assert.Equal(t, uint64(2000), params.AmountIn)
	assert.Equal(t, uint64(1500), params.Outcome.AmountOut)
	sub.AssertExpectations(t)
}

func TestRouterReportsFailedFill(t *testing.T) {
	signer := testSigner(t)
	addr, rec := testBot(t, signer, true)
	sub := &mockSubmitter{}
	sub.On("Bot", mock.Anything, signer.PublicKey()).Return(addr, rec, nil)
	sub.On("Submit", mock.Anything, mock.Anything).Return(processor.Receipt{Status: journal.StatusOK}, nil)

	r := NewRouter(sub, &stubQuoter{name: Jupiter, quote: Quote{AmountOut: 1500}})
	res, err := r.Swap(context.Background(), signer, SwapRequest{Venue: Jupiter, Direction: ledger.Sell, AmountIn: 10, MinimumAmountOut: 1600})
	require.NoError(t, err)
	assert.False(t, res.Outcome.Success)
	assert.Zero(t, res.Outcome.AmountOut)
	assert.Equal(t, uint64(1600), res.MinimumAmountOut)
}

func TestRouterPausedBotSkipsVenue(t *testing.T) {
	signer := testSigner(t)
	addr, rec := testBot(t, signer, false)
	sub := &mockSubmitter{}
	sub.On("Bot", mock.Anything, signer.PublicKey()).Return(addr, rec, nil)

	q := &stubQuoter{name: Jupiter}
	r := NewRouter(sub, q)
	_, err := r.Swap(context.Background(), signer, SwapRequest{Venue: Jupiter})
	assert.ErrorIs(t, err, ledger.ErrBotNotActive)
	assert.Empty(t, q.got)
	sub.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestRouterZeroAmount(t *testing.T) {
	signer := testSigner(t)
	addr, rec := testBot(t, signer, true)
	rec.Strategy.TradeAmount = 0
	sub := &mockSubmitter{}
	sub.On("Bot", mock.Anything, signer.PublicKey()).Return(addr, rec, nil)

	r := NewRouter(sub, &stubQuoter{name: Jupiter})
	_, err := r.Swap(context.Background(), signer, SwapRequest{Venue: Jupiter})
	assert.ErrorIs(t, err, ledger.ErrTradeAmountTooSmall)
}

func TestRouterUnknownVenue(t *testing.T) {
	r := NewRouter(&mockSubmitter{})
	_, err := r.Swap(context.Background(), testSigner(t), SwapRequest{Venue: "orca"})
	assert.Error(t, err)
}

func TestRouterRaydiumParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"outputAmount":"900","otherAmountThreshold":"890","routePlan":[{"poolId":"58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2"}]}}`))
	}))
	defer srv.Close()

	cfg := venueConfig(srv.URL)
	cfg.PoolPcTokenAccount = "HLmqeL62xR1QoZ1HKKbXRrdN1p3phKpxRMb2VVopvBBz"
	rc, err := NewRaydiumClient(cfg)
	require.NoError(t, err)

	signer := testSigner(t)
	addr, rec := testBot(t, signer, true)
	sub := &mockSubmitter{}
	sub.On("Bot", mock.Anything, signer.PublicKey()).Return(addr, rec, nil)
	var submitted *ledger.Transaction
	sub.On("Submit", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { submitted = args.Get(1).(*ledger.Transaction) }).
		Return(processor.Receipt{Status: journal.StatusOK}, nil)

	r := NewRouter(sub, rc)
	res, err := r.Swap(context.Background(), signer, SwapRequest{Venue: Raydium})
	require.NoError(t, err)
	assert.Equal(t, uint64(890), res.MinimumAmountOut)

	require.NotNil(t, submitted)
	assert.Equal(t, ledger.InstrRaydiumSwap, submitted.Instruction)
	var params ledger.RaydiumSwapParams
	require.NoError(t, submitted.DecodePayload(&params))
	assert.Equal(t, "58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2", params.PoolCoinTokenAccount.String())
	assert.Equal(t, cfg.PoolPcTokenAccount, params.PoolPcTokenAccount.String())
	assert.True(t, params.Outcome.Success)
}

func TestRouterReturnsProgramError(t *testing.T) {
	signer := testSigner(t)
	addr, rec := testBot(t, signer, true)
	sub := &mockSubmitter{}
	sub.On("Bot", mock.Anything, signer.PublicKey()).Return(addr, rec, nil)
	sub.On("Submit", mock.Anything, mock.Anything).
		Return(processor.Receipt{Status: journal.StatusFailed, Error: ledger.ErrBotNotActive}, nil)

	r := NewRouter(sub, &stubQuoter{name: Jupiter, quote: Quote{AmountOut: 10}})
	res, err := r.Swap(context.Background(), signer, SwapRequest{Venue: Jupiter})
	assert.ErrorIs(t, err, ledger.ErrBotNotActive)
	assert.Equal(t, journal.StatusFailed, res.Receipt.Status)
}

package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botledger/internal/journal"
	"botledger/internal/ledger"
	"botledger/internal/processor"
	"botledger/internal/store"
	"botledger/internal/store/gormstore"
	"botledger/internal/store/memory"
)

type testEnv struct {
	t     *testing.T
	p     *processor.Processor
	h     http.Handler
	owner ledger.Keypair
	bot   ledger.PublicKey
}

func newTestEnv(t *testing.T, st store.AccountStore, bots BotLister, allowAirdrop bool) *testEnv {
	t.Helper()
	p := processor.New(st, processor.Config{AllowAirdrop: allowAirdrop})
	p.Start()
	t.Cleanup(p.Stop)

	srv, err := NewServer(ServerConfig{Ledger: p, Bots: bots})
	require.NoError(t, err)

	owner, err := ledger.NewKeypair()
	require.NoError(t, err)
	bot, _, err := ledger.BotAddress(owner.PublicKey(), p.ProgramID())
	require.NoError(t, err)
	return &testEnv{t: t, p: p, h: srv.Handler(), owner: owner, bot: bot}
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	switch v := body.(type) {
	case nil:
	case []byte:
		buf.Write(v)
	default:
		require.NoError(e.t, json.NewEncoder(&buf).Encode(v))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) signed(instr ledger.InstructionType, params any) *ledger.Transaction {
	e.t.Helper()
	tx, err := ledger.NewTransaction(instr, e.owner.PublicKey(), e.bot, params)
	require.NoError(e.t, err)
	tx.Sign(e.owner)
	return tx
}

func (e *testEnv) fundAndInit() {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/v1/airdrop", map[string]any{"address": e.owner.PublicKey().String(), "sol": "2"})
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(http.MethodPost, "/api/v1/transactions", e.signed(ledger.InstrInitializeBot, ledger.InitializeParams{
		Strategy: ledger.Strategy{
			Type:          ledger.GridTrading,
			TokenA:        ledger.PublicKey{1},
			TokenB:        ledger.PublicKey{2},
			BuyThreshold:  9500,
			SellThreshold: 10500,
			TradeAmount:   100,
		},
		InitialBalance: 5_000,
	}))
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t, memory.New(), nil, false)
	rec := e.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ledger.DefaultProgramID)
}

func TestSubmitAndReadBot(t *testing.T) {
	e := newTestEnv(t, memory.New(), nil, true)
	e.fundAndInit()

	rec := e.do(http.MethodGet, "/api/v1/bots/"+e.owner.PublicKey().String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view ledger.BotView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, e.bot, view.Address)
	assert.True(t, view.IsActive)
	assert.Equal(t, uint64(5_000), view.Balance)

	rec = e.do(http.MethodPost, "/api/v1/transactions", e.signed(ledger.InstrUpdatePrice, ledger.PriceObservation{TokenAPrice: 90, TokenBPrice: 100}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var receipt processor.Receipt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipt))
	assert.Equal(t, journal.StatusOK, receipt.Status)
	var sig ledger.Signal
	require.NoError(t, json.Unmarshal(receipt.ReturnData, &sig))
	assert.Equal(t, ledger.SignalBuy, sig.Kind)
	assert.NotEmpty(t, receipt.Logs)
}

func TestSubmitErrorStatuses(t *testing.T) {
	e := newTestEnv(t, memory.New(), nil, true)
	e.fundAndInit()

	// program error: paused bot cannot trade
	rec := e.do(http.MethodPost, "/api/v1/transactions", e.signed(ledger.InstrPauseBot, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	failed := e.signed(ledger.InstrExecuteTrade, ledger.TradeParams{Amount: 10})
	rec = e.do(http.MethodPost, "/api/v1/transactions", failed)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, ledger.ErrBotNotActive.Code, body.Code)
	require.NotNil(t, body.Receipt)
	assert.Equal(t, journal.StatusFailed, body.Receipt.Status)

	// replayed signature
	tx := e.signed(ledger.InstrResumeBot, nil)
	rec = e.do(http.MethodPost, "/api/v1/transactions", tx)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(http.MethodPost, "/api/v1/transactions", tx)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// a failed transaction stays used up once the bot is active again
	rec = e.do(http.MethodPost, "/api/v1/transactions", failed)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// tampered payload
	tx = e.signed(ledger.InstrWithdrawFunds, ledger.WithdrawParams{Amount: 1})
	tx.Payload = json.RawMessage(`{"amount":2}`)
	rec = e.do(http.MethodPost, "/api/v1/transactions", tx)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// somebody else's bot
	other, err := ledger.NewKeypair()
	require.NoError(t, err)
	tx, err = ledger.NewTransaction(ledger.InstrPauseBot, other.PublicKey(), e.bot, nil)
	require.NoError(t, err)
	tx.Sign(other)
	rec = e.do(http.MethodPost, "/api/v1/transactions", tx)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSubmitRejectsMalformedBodies(t *testing.T) {
	e := newTestEnv(t, memory.New(), nil, true)
	cases := map[string][]byte{
		"not json":          []byte(`{`),
		"unknown field":     []byte(`{"id":"x","instruction":"pause_bot","authority":"11111111111111111111111111111111","account":"11111111111111111111111111111111","signature":"1111111111111111111111111111111111111111111111111111111111111111","extra":1}`),
		"bad instruction":   []byte(`{"id":"x","instruction":"mint","authority":"11111111111111111111111111111111","account":"11111111111111111111111111111111","signature":"1111111111111111111111111111111111111111111111111111111111111111"}`),
		"missing signature": []byte(`{"id":"x","instruction":"pause_bot","authority":"11111111111111111111111111111111","account":"11111111111111111111111111111111"}`),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := e.do(http.MethodPost, "/api/v1/transactions", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestBotNotFoundAndBadKey(t *testing.T) {
	e := newTestEnv(t, memory.New(), nil, false)
	rec := e.do(http.MethodGet, "/api/v1/bots/"+e.owner.PublicKey().String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(http.MethodGet, "/api/v1/bots/not-a-key", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAccountView(t *testing.T) {
	e := newTestEnv(t, memory.New(), nil, true)
	e.fundAndInit()

	rec := e.do(http.MethodGet, "/api/v1/accounts/"+e.bot.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view AccountView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, e.p.ProgramID(), view.Owner)
	assert.Equal(t, ledger.RentExemptMinimum(ledger.BotRecordSize), view.Lamports)
	require.NotNil(t, view.Bot)
	assert.Equal(t, uint64(5_000), view.Bot.Balance)

	rec = e.do(http.MethodGet, "/api/v1/accounts/"+e.owner.PublicKey().String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view = AccountView{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Nil(t, view.Bot)
	assert.Equal(t, ledger.SystemProgramID, view.Owner)
}

func TestHistory(t *testing.T) {
	e := newTestEnv(t, memory.New(), nil, true)
	j, err := journal.NewFileJournal(filepath.Join(t.TempDir(), "j.jsonl"))
	require.NoError(t, err)
	p := processor.New(memory.New(), processor.Config{AllowAirdrop: true}, processor.WithJournal(j))
	p.Start()
	t.Cleanup(p.Stop)
	srv, err := NewServer(ServerConfig{Ledger: p})
	require.NoError(t, err)
	e.p, e.h = p, srv.Handler()
	e.fundAndInit()
	e.do(http.MethodPost, "/api/v1/transactions", e.signed(ledger.InstrPauseBot, nil))

	rec := e.do(http.MethodGet, "/api/v1/bots/"+e.owner.PublicKey().String()+"/transactions?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Transactions []journal.Entry `json:"transactions"`
		Count        int             `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.GreaterOrEqual(t, body.Count, 2)
	assert.Equal(t, ledger.InstrPauseBot, body.Transactions[0].Type)
}

func TestAirdrop(t *testing.T) {
	e := newTestEnv(t, memory.New(), nil, false)
	rec := e.do(http.MethodPost, "/api/v1/airdrop", map[string]any{"address": e.owner.PublicKey().String(), "lamports": 10})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	e = newTestEnv(t, memory.New(), nil, true)
	rec = e.do(http.MethodPost, "/api/v1/airdrop", map[string]any{"address": e.owner.PublicKey().String()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodPost, "/api/v1/airdrop", map[string]any{"address": e.owner.PublicKey().String(), "sol": "1.5"})
	require.Equal(t, http.StatusOK, rec.Code)
	acct, err := e.p.Account(context.Background(), e.owner.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000_000), acct.Lamports)
}

func TestListBotsWithGormStore(t *testing.T) {
	programID := ledger.MustPublicKey(ledger.DefaultProgramID)
	gs, err := gormstore.NewGormStore(filepath.Join(t.TempDir(), "ledger.db"), programID)
	require.NoError(t, err)
	t.Cleanup(func() { _ = gs.Close() })

	e := newTestEnv(t, gs, gs, true)
	e.fundAndInit()

	rec := e.do(http.MethodGet, "/api/v1/bots?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Bots  []ledger.BotView `json:"bots"`
		Count int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, e.bot, body.Bots[0].Address)
}

func TestListBotsNotMountedWithoutLister(t *testing.T) {
	e := newTestEnv(t, memory.New(), nil, false)
	rec := e.do(http.MethodGet, "/api/v1/bots", nil)
	assert.NotEqual(t, http.StatusOK, rec.Code)
}

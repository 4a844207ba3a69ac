package processor

import (
	"context"
	"crypto/sha512"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"botledger/internal/journal"
	"botledger/internal/ledger"
	"botledger/internal/logger"
	"botledger/internal/store"

	"github.com/google/uuid"
)

var (
	ErrStopped         = errors.New("processor is stopped")
	ErrAirdropDisabled = errors.New("airdrop is disabled")
)

type Config struct {
	ProgramID    ledger.PublicKey
	Params       ledger.Params
	InboxSize    int
	AllowAirdrop bool
}

type Option func(*Processor)

func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

func WithJournal(j journal.Journal) Option {
	return func(p *Processor) {
		if j != nil {
			p.journal = j
		}
	}
}

func WithRegistry(r *HandlerRegistry) Option {
	return func(p *Processor) {
		if r != nil {
			p.registry = r
		}
	}
}

// Processor is the single writer of the ledger.
//
// Submissions are queued on msgCh and applied one at a time by runLoop, so
// transitions on the same record apply in submission order and never
// interleave. Each transition runs inside one store unit of work and is
// appended to the journal after it commits.
type Processor struct {
	cfg      Config
	store    store.AccountStore
	journal  journal.Journal
	registry *HandlerRegistry
	now      func() time.Time

	// slot is only touched by the run loop, or by Recover before Start.
	slot uint64

	msgCh    chan envelope
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(st store.AccountStore, cfg Config, opts ...Option) *Processor {
	if cfg.ProgramID.IsZero() {
		cfg.ProgramID = ledger.MustPublicKey(ledger.DefaultProgramID)
	}
	if cfg.Params == (ledger.Params{}) {
		cfg.Params = ledger.DefaultParams()
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = 100
	}
	p := &Processor{
		cfg:     cfg,
		store:   st,
		journal: journal.Nop{},
		now:     time.Now,
		msgCh:   make(chan envelope, cfg.InboxSize),
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.registry == nil {
		p.registry = NewHandlerRegistry()
		p.registry.RegisterDefaultHandlers()
	}
	return p
}

func (p *Processor) ProgramID() ledger.PublicKey { return p.cfg.ProgramID }

func (p *Processor) Params() ledger.Params { return p.cfg.Params }

func (p *Processor) Start() {
	p.wg.Add(1)
	go p.runLoop()
}

// Stop ends the run loop. Callers still waiting get ErrStopped.
func (p *Processor) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
	p.wg.Wait()
	if err := p.journal.Close(); err != nil {
		logger.Warnf("Processor: journal close failed: %v", err)
	}
}

// Submit queues tx and waits for its receipt. A failed transaction returns
// both the receipt and the ledger error.
func (p *Processor) Submit(ctx context.Context, tx *ledger.Transaction) (Receipt, error) {
	if tx == nil {
		return Receipt{}, ledger.ErrInvalidInstruction
	}
	return p.send(ctx, envelope{tx: tx})
}

// Airdrop credits lamports to an address. Only available when enabled.
func (p *Processor) Airdrop(ctx context.Context, to ledger.PublicKey, lamports uint64) (Receipt, error) {
	if !p.cfg.AllowAirdrop {
		return Receipt{}, ErrAirdropDisabled
	}
	return p.send(ctx, envelope{airdrop: &airdropRequest{id: uuid.NewString(), to: to, lamports: lamports}})
}

func (p *Processor) send(ctx context.Context, env envelope) (Receipt, error) {
	env.replyCh = make(chan reply, 1)
	select {
	case p.msgCh <- env:
	case <-ctx.Done():
		return Receipt{}, ctx.Err()
	case <-p.stopCh:
		return Receipt{}, ErrStopped
	}
	select {
	case r := <-env.replyCh:
		return r.receipt, r.err
	case <-ctx.Done():
		return Receipt{}, ctx.Err()
	case <-p.stopCh:
		return Receipt{}, ErrStopped
	}
}

func (p *Processor) runLoop() {
	defer p.wg.Done()
	logger.Infof("Processor started (program %s)", p.cfg.ProgramID)
	for {
		select {
		case env := <-p.msgCh:
			p.handleEnvelope(env)
		case <-p.stopCh:
			logger.Infof("Processor stopping")
			return
		}
	}
}

func (p *Processor) handleEnvelope(env envelope) {
	var (
		receipt Receipt
		err     error
	)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Processor panic: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("panic: %v", r)
		}
		env.replyCh <- reply{receipt: receipt, err: err}
		close(env.replyCh)
		if dur := time.Since(start); dur > 100*time.Millisecond {
			logger.Warnf("Slow transaction took %v", dur)
		}
	}()

	ctx := context.Background()
	switch {
	case env.tx != nil:
		receipt, err = p.execute(ctx, env.tx, p.now().Unix(), replayInfo{})
	case env.airdrop != nil:
		receipt, err = p.airdrop(ctx, *env.airdrop, p.now().Unix(), replayInfo{})
	}
}

func airdropSignature(id string) ledger.Signature {
	var sig ledger.Signature
	sum := sha512.Sum512([]byte("airdrop:" + id))
	copy(sig[:], sum[:])
	return sig
}

// replayInfo is set when a journal entry is being re-applied. Replayed
// transitions keep their recorded slot and are not journaled again.
type replayInfo struct {
	active bool
	slot   uint64
}

func (p *Processor) nextSlot(r replayInfo) uint64 {
	if r.active {
		if r.slot > p.slot {
			p.slot = r.slot
		}
		return r.slot
	}
	p.slot++
	return p.slot
}

// execute applies one transaction. unixTime is the clock reading the
// transition observes.
func (p *Processor) execute(ctx context.Context, tx *ledger.Transaction, unixTime int64, replay replayInfo) (Receipt, error) {
	receipt := Receipt{Signature: tx.Signature, Status: journal.StatusFailed}
	fail := func(err error) (Receipt, error) {
		if le, ok := ledger.AsError(err); ok {
			receipt.Error = le
		}
		return receipt, err
	}

	if err := tx.Verify(); err != nil {
		return fail(err)
	}
	handler, ok := p.registry.Get(tx.Instruction)
	if !ok {
		return fail(fmt.Errorf("%w: unknown instruction %q", ledger.ErrInvalidInstruction, tx.Instruction))
	}

	uow, err := p.store.Begin(ctx)
	if err != nil {
		return fail(fmt.Errorf("begin: %w", err))
	}
	if err := uow.MarkProcessed(ctx, tx.Signature); err != nil {
		_ = uow.Rollback()
		return fail(err)
	}

	plog := logger.NewProgramLog(shortSig(tx.Signature))
	plog.Emit(fmt.Sprintf("Program %s invoke", p.cfg.ProgramID))
	plog.Logf("Instruction: %s", tx.Instruction)
	hctx := &HandlerContext{
		ctx:       ctx,
		uow:       uow,
		env:       ledger.Env{Now: unixTime, Params: p.cfg.Params, Log: plog},
		programID: p.cfg.ProgramID,
		log:       plog,
	}

	ret, herr := handler.Handle(hctx, tx)
	if herr == nil && ret != nil {
		raw, mErr := json.Marshal(ret)
		if mErr != nil {
			herr = fmt.Errorf("encode return data: %w", mErr)
		} else {
			receipt.ReturnData = raw
		}
	}
	if herr == nil {
		if err := uow.Commit(); err != nil {
			herr = fmt.Errorf("commit: %w", err)
		}
	} else {
		if err := uow.Rollback(); err != nil {
			logger.Warnf("Processor: rollback %s: %v", tx.Signature, err)
		}
		if err := p.consumeSignature(ctx, tx.Signature); err != nil {
			logger.Warnf("Processor: consume failed signature %s: %v", tx.Signature, err)
		}
	}

	receipt.Slot = p.nextSlot(replay)
	if herr != nil {
		plog.Emit(fmt.Sprintf("Program %s failed: %v", p.cfg.ProgramID, herr))
		receipt.ReturnData = nil
	} else {
		plog.Emit(fmt.Sprintf("Program %s success", p.cfg.ProgramID))
		receipt.Status = journal.StatusOK
	}
	receipt.Logs = plog.Lines()

	if !replay.active {
		entry := &journal.Entry{
			Signature: tx.Signature,
			ID:        tx.ID,
			Type:      tx.Instruction,
			Authority: tx.Authority,
			Account:   tx.Account,
			Payload:   tx.Payload,
			UnixTime:  unixTime,
			Slot:      receipt.Slot,
			Status:    receipt.Status,
		}
		if herr != nil {
			entry.ErrorMsg = herr.Error()
			if le, ok := ledger.AsError(herr); ok {
				entry.ErrorCode = uint32(le.Code)
			}
		}
		p.appendJournal(ctx, entry)
	}

	if herr != nil {
		logger.Debugf("Processor: %s %s failed: %v", tx.Instruction, tx.Signature, herr)
		return fail(herr)
	}
	logger.Debugf("Processor: %s %s ok (slot %d)", tx.Instruction, tx.Signature, receipt.Slot)
	return receipt, nil
}

// consumeSignature marks sig processed in a unit of its own. A transaction
// that reached its handler uses up its signature whether or not it succeeded.
func (p *Processor) consumeSignature(ctx context.Context, sig ledger.Signature) error {
	uow, err := p.store.Begin(ctx)
	if err != nil {
		return err
	}
	if err := uow.MarkProcessed(ctx, sig); err != nil {
		_ = uow.Rollback()
		return err
	}
	return uow.Commit()
}

func (p *Processor) airdrop(ctx context.Context, req airdropRequest, unixTime int64, replay replayInfo) (Receipt, error) {
	sig := airdropSignature(req.id)
	receipt := Receipt{Signature: sig, Status: journal.StatusFailed}

	uow, err := p.store.Begin(ctx)
	if err != nil {
		return receipt, err
	}
	apply := func() error {
		if err := uow.MarkProcessed(ctx, sig); err != nil {
			return err
		}
		acct, err := uow.Get(ctx, req.to)
		if errors.Is(err, ledger.ErrAccountNotFound) {
			acct, err = &store.Account{Address: req.to, Owner: ledger.SystemProgramID}, nil
		}
		if err != nil {
			return err
		}
		if acct.Lamports, err = ledger.CheckedAdd(acct.Lamports, req.lamports); err != nil {
			return err
		}
		return uow.Put(ctx, acct)
	}
	if err := apply(); err != nil {
		_ = uow.Rollback()
		if le, ok := ledger.AsError(err); ok {
			receipt.Error = le
		}
		return receipt, err
	}
	if err := uow.Commit(); err != nil {
		return receipt, err
	}
	receipt.Slot = p.nextSlot(replay)
	receipt.Status = journal.StatusOK
	receipt.Logs = []string{fmt.Sprintf("Airdropped %s SOL to %s", ledger.FormatSOL(req.lamports), req.to)}

	if !replay.active {
		payload, _ := json.Marshal(AirdropParams{Lamports: req.lamports})
		p.appendJournal(ctx, &journal.Entry{
			Signature: sig,
			ID:        req.id,
			Type:      journal.TypeAirdrop,
			Account:   req.to,
			Payload:   payload,
			UnixTime:  unixTime,
			Slot:      receipt.Slot,
			Status:    journal.StatusOK,
		})
	}
	logger.Infof("Processor: airdropped %d lamports to %s", req.lamports, req.to)
	return receipt, nil
}

// appendJournal runs after commit; the store is the source of truth, so a
// journal failure is logged and the transaction still succeeds.
func (p *Processor) appendJournal(ctx context.Context, e *journal.Entry) {
	if err := p.journal.Append(ctx, e); err != nil {
		logger.Errorf("Processor: journal append %s failed: %v", e.Signature, err)
	}
}

// Recover re-applies every successful journal entry in order using the
// recorded clock readings. Failed entries only use up their signature. Entries whose signature the store already holds
// are skipped, so it is safe on both empty and persistent stores. Must be
// called before Start.
func (p *Processor) Recover(ctx context.Context) (int, error) {
	entries, err := p.journal.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load journal: %w", err)
	}
	applied := 0
	for _, e := range entries {
		if e.Slot > p.slot {
			p.slot = e.Slot
		}
		if e.Status != journal.StatusOK {
			if e.Type != journal.TypeAirdrop {
				if err := p.consumeSignature(ctx, e.Signature); err != nil && !errors.Is(err, ledger.ErrDuplicateTransaction) {
					return applied, fmt.Errorf("journal entry %d: %w", e.Seq, err)
				}
			}
			continue
		}
		replay := replayInfo{active: true, slot: e.Slot}
		if e.Type == journal.TypeAirdrop {
			var params AirdropParams
			if err := json.Unmarshal(e.Payload, &params); err != nil {
				return applied, fmt.Errorf("journal entry %d: %w", e.Seq, err)
			}
			_, err = p.airdrop(ctx, airdropRequest{id: e.ID, to: e.Account, lamports: params.Lamports}, e.UnixTime, replay)
		} else {
			_, err = p.execute(ctx, e.Transaction(), e.UnixTime, replay)
		}
		switch {
		case err == nil:
			applied++
		case errors.Is(err, ledger.ErrDuplicateTransaction):
		default:
			return applied, fmt.Errorf("replay entry %d (%s): %w", e.Seq, e.Type, err)
		}
	}
	logger.Infof("Processor: recovered %d of %d journal entries, slot %d", applied, len(entries), p.slot)
	return applied, nil
}

// Account reads committed account state.
func (p *Processor) Account(ctx context.Context, addr ledger.PublicKey) (*store.Account, error) {
	return p.store.Account(ctx, addr)
}

// Bot returns the committed record for authority and its address.
func (p *Processor) Bot(ctx context.Context, authority ledger.PublicKey) (ledger.PublicKey, *ledger.BotRecord, error) {
	addr, _, err := ledger.BotAddress(authority, p.cfg.ProgramID)
	if err != nil {
		return ledger.PublicKey{}, nil, err
	}
	acct, err := p.store.Account(ctx, addr)
	if err != nil {
		return addr, nil, err
	}
	if acct.Owner != p.cfg.ProgramID {
		return addr, nil, ledger.ErrAccountNotFound
	}
	rec, err := ledger.DecodeBotRecord(acct.Data)
	if err != nil {
		return addr, nil, err
	}
	return addr, rec, nil
}

// History lists journaled transactions touching authority or its record.
func (p *Processor) History(ctx context.Context, authority ledger.PublicKey, limit int) ([]journal.Entry, error) {
	entries, err := p.journal.List(ctx, authority, 0)
	if err != nil {
		return nil, err
	}
	addr, _, err := ledger.BotAddress(authority, p.cfg.ProgramID)
	if err != nil {
		return nil, err
	}
	bot, err := p.journal.List(ctx, addr, 0)
	if err != nil {
		return nil, err
	}
	return mergeNewestFirst(entries, bot, limit), nil
}

func mergeNewestFirst(a, b []journal.Entry, limit int) []journal.Entry {
	seen := make(map[int64]struct{}, len(a)+len(b))
	out := make([]journal.Entry, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		var e journal.Entry
		if j >= len(b) || (i < len(a) && a[i].Seq >= b[j].Seq) {
			e = a[i]
			i++
		} else {
			e = b[j]
			j++
		}
		if _, ok := seen[e.Seq]; ok {
			continue
		}
		seen[e.Seq] = struct{}{}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func shortSig(sig ledger.Signature) string {
	s := sig.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

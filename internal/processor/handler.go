package processor

import (
	"context"
	"errors"
	"fmt"

	"botledger/internal/ledger"
	"botledger/internal/logger"
	"botledger/internal/store"
)

// InstructionHandler applies one instruction type. A returned error aborts
// the whole transaction; the return value becomes the receipt's return data.
type InstructionHandler interface {
	Type() ledger.InstructionType
	Handle(ctx *HandlerContext, tx *ledger.Transaction) (any, error)
}

// HandlerContext is the view of the runtime a handler gets: the open unit of
// work, the clock reading and the program log for this transaction.
type HandlerContext struct {
	ctx       context.Context
	uow       store.UnitOfWork
	env       ledger.Env
	programID ledger.PublicKey
	log       *logger.ProgramLog
}

func (c *HandlerContext) Env() ledger.Env { return c.env }

func (c *HandlerContext) Logf(format string, v ...any) { c.log.Logf(format, v...) }

// wallet returns the account at addr, or an empty system account.
func (c *HandlerContext) wallet(addr ledger.PublicKey) (*store.Account, error) {
	acct, err := c.uow.Get(c.ctx, addr)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return &store.Account{Address: addr, Owner: ledger.SystemProgramID}, nil
	}
	return acct, err
}

// loadBot resolves the bot record addressed by tx and enforces that the
// signer is the record's authority and the address is its derived one.
func (c *HandlerContext) loadBot(tx *ledger.Transaction) (*store.Account, *ledger.BotRecord, error) {
	acct, err := c.uow.Get(c.ctx, tx.Account)
	if err != nil {
		return nil, nil, err
	}
	if acct.Owner != c.programID {
		return nil, nil, fmt.Errorf("%w: account %s is not a bot record", ledger.ErrInvalidAccountData, tx.Account)
	}
	rec, err := ledger.DecodeBotRecord(acct.Data)
	if err != nil {
		return nil, nil, err
	}
	if rec.Authority != tx.Authority {
		return nil, nil, ledger.ErrUnauthorized
	}
	if !ledger.VerifyBotAddress(tx.Account, tx.Authority, rec.Bump, c.programID) {
		return nil, nil, fmt.Errorf("%w: address seeds mismatch", ledger.ErrUnauthorized)
	}
	return acct, rec, nil
}

func (c *HandlerContext) saveBot(acct *store.Account, rec *ledger.BotRecord) error {
	data, err := ledger.EncodeBotRecord(rec)
	if err != nil {
		return err
	}
	out := acct.Clone()
	out.Data = data
	return c.uow.Put(c.ctx, out)
}

// mutateBot runs fn on a copy of the record and stores it only if fn
// succeeds.
func (c *HandlerContext) mutateBot(tx *ledger.Transaction, fn func(rec *ledger.BotRecord) error) error {
	acct, rec, err := c.loadBot(tx)
	if err != nil {
		return err
	}
	next := rec.Clone()
	if err := fn(next); err != nil {
		return err
	}
	return c.saveBot(acct, next)
}

// transfer moves lamports between two accounts inside the unit of work.
func (c *HandlerContext) transfer(from, to *store.Account, lamports uint64) error {
	if from.Address == to.Address {
		if from.Lamports < lamports {
			return ledger.ErrInsufficientFunds
		}
		return nil
	}
	debited, err := ledger.CheckedSub(from.Lamports, lamports)
	if err != nil {
		return fmt.Errorf("%w: %d lamports < %d", ledger.ErrInsufficientFunds, from.Lamports, lamports)
	}
	credited, err := ledger.CheckedAdd(to.Lamports, lamports)
	if err != nil {
		return err
	}
	src, dst := from.Clone(), to.Clone()
	src.Lamports, dst.Lamports = debited, credited
	if err := c.uow.Put(c.ctx, src); err != nil {
		return err
	}
	return c.uow.Put(c.ctx, dst)
}

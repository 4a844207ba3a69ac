package store

import (
	"context"

	"botledger/internal/ledger"
)

// Account is one addressable balance plus its opaque data.
type Account struct {
	Address  ledger.PublicKey `json:"address"`
	Owner    ledger.PublicKey `json:"owner"`
	Lamports uint64           `json:"lamports"`
	Data     []byte           `json:"data,omitempty"`
}

func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	out := *a
	if a.Data != nil {
		out.Data = append([]byte(nil), a.Data...)
	}
	return &out
}

// UnitOfWork defines a transaction scope. Writes are invisible outside the
// unit until Commit; Rollback discards them.
type UnitOfWork interface {
	// Get returns ledger.ErrAccountNotFound when the address has no account.
	Get(ctx context.Context, addr ledger.PublicKey) (*Account, error)
	Put(ctx context.Context, acct *Account) error
	// MarkProcessed fails with ledger.ErrDuplicateTransaction for a
	// signature that was already committed.
	MarkProcessed(ctx context.Context, sig ledger.Signature) error
	Commit() error
	Rollback() error
}

// AccountStore is the entry point for account persistence.
type AccountStore interface {
	Begin(ctx context.Context) (UnitOfWork, error)
	// Account reads committed state.
	Account(ctx context.Context, addr ledger.PublicKey) (*Account, error)
	Close() error
}

package journal

import (
	"context"
	"encoding/json"

	"botledger/internal/ledger"
)

type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// TypeAirdrop marks dev-mode lamport credits; they have no signer.
const TypeAirdrop ledger.InstructionType = "airdrop"

// Entry is one processed submission. Failed entries are kept for history
// and skipped on replay.
type Entry struct {
	Seq       int64                  `json:"seq"`
	Signature ledger.Signature       `json:"signature"`
	ID        string                 `json:"id"`
	Type      ledger.InstructionType `json:"type"`
	Authority ledger.PublicKey       `json:"authority"`
	Account   ledger.PublicKey       `json:"account"`
	Payload   json.RawMessage        `json:"payload,omitempty"`
	UnixTime  int64                  `json:"unix_time"`
	Slot      uint64                 `json:"slot"`
	Status    Status                 `json:"status"`
	ErrorCode uint32                 `json:"error_code,omitempty"`
	ErrorMsg  string                 `json:"error_msg,omitempty"`
}

// Transaction rebuilds the signed transaction the entry was made from.
func (e Entry) Transaction() *ledger.Transaction {
	return &ledger.Transaction{
		ID:          e.ID,
		Instruction: e.Type,
		Authority:   e.Authority,
		Account:     e.Account,
		Payload:     append(json.RawMessage(nil), e.Payload...),
		Signature:   e.Signature,
	}
}

// Journal is the append-only transaction history.
type Journal interface {
	// Append assigns e.Seq.
	Append(ctx context.Context, e *Entry) error
	// List returns the newest entries touching authority first. A zero
	// authority lists everything.
	List(ctx context.Context, authority ledger.PublicKey, limit int) ([]Entry, error)
	// LoadAll returns every entry in append order.
	LoadAll(ctx context.Context) ([]Entry, error)
	Close() error
}

func matches(e Entry, authority ledger.PublicKey) bool {
	return authority.IsZero() || e.Authority == authority || e.Account == authority
}

// Nop discards everything.
type Nop struct{}

func (Nop) Append(context.Context, *Entry) error { return nil }

func (Nop) List(context.Context, ledger.PublicKey, int) ([]Entry, error) { return nil, nil }

func (Nop) LoadAll(context.Context) ([]Entry, error) { return nil, nil }

func (Nop) Close() error { return nil }

package memory

import (
	"context"
	"errors"
	"sync"

	"botledger/internal/ledger"
	"botledger/internal/store"
)

var errUnitClosed = errors.New("unit of work already closed")

// Store keeps accounts in process memory. Staged writes are applied under
// the lock at commit.
type Store struct {
	mu        sync.RWMutex
	accounts  map[ledger.PublicKey]*store.Account
	processed map[ledger.Signature]struct{}
}

var _ store.AccountStore = (*Store)(nil)

func New() *Store {
	return &Store{
		accounts:  make(map[ledger.PublicKey]*store.Account),
		processed: make(map[ledger.Signature]struct{}),
	}
}

func (s *Store) Begin(ctx context.Context) (store.UnitOfWork, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &unit{
		s:      s,
		writes: make(map[ledger.PublicKey]*store.Account),
		sigs:   make(map[ledger.Signature]struct{}),
	}, nil
}

func (s *Store) Account(_ context.Context, addr ledger.PublicKey) (*store.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[addr]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	return acct.Clone(), nil
}

// Len is the number of committed accounts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

func (s *Store) Close() error { return nil }

type unit struct {
	s      *Store
	writes map[ledger.PublicKey]*store.Account
	sigs   map[ledger.Signature]struct{}
	closed bool
}

func (u *unit) Get(ctx context.Context, addr ledger.PublicKey) (*store.Account, error) {
	if u.closed {
		return nil, errUnitClosed
	}
	if acct, ok := u.writes[addr]; ok {
		return acct.Clone(), nil
	}
	return u.s.Account(ctx, addr)
}

func (u *unit) Put(_ context.Context, acct *store.Account) error {
	if u.closed {
		return errUnitClosed
	}
	u.writes[acct.Address] = acct.Clone()
	return nil
}

func (u *unit) MarkProcessed(_ context.Context, sig ledger.Signature) error {
	if u.closed {
		return errUnitClosed
	}
	if _, ok := u.sigs[sig]; ok {
		return ledger.ErrDuplicateTransaction
	}
	u.s.mu.RLock()
	_, seen := u.s.processed[sig]
	u.s.mu.RUnlock()
	if seen {
		return ledger.ErrDuplicateTransaction
	}
	u.sigs[sig] = struct{}{}
	return nil
}

func (u *unit) Commit() error {
	if u.closed {
		return errUnitClosed
	}
	u.closed = true
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for sig := range u.sigs {
		if _, ok := u.s.processed[sig]; ok {
			return ledger.ErrDuplicateTransaction
		}
	}
	for sig := range u.sigs {
		u.s.processed[sig] = struct{}{}
	}
	for addr, acct := range u.writes {
		u.s.accounts[addr] = acct
	}
	return nil
}

func (u *unit) Rollback() error {
	u.closed = true
	u.writes = nil
	u.sigs = nil
	return nil
}

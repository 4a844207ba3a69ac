package memory

import (
	"context"
	"testing"

	"botledger/internal/ledger"
	"botledger/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStagedWritesInvisibleUntilCommit(t *testing.T) {
	ctx := context.Background()
	s := New()
	addr := ledger.PublicKey{1}

	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.Put(ctx, &store.Account{Address: addr, Lamports: 10}))

	got, err := uow.Get(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), got.Lamports)

	_, err = s.Account(ctx, addr)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	require.NoError(t, uow.Commit())
	got, err = s.Account(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), got.Lamports)
}

func TestRollbackDiscards(t *testing.T) {
	ctx := context.Background()
	s := New()
	uow, _ := s.Begin(ctx)
	require.NoError(t, uow.Put(ctx, &store.Account{Address: ledger.PublicKey{2}, Lamports: 1}))
	require.NoError(t, uow.MarkProcessed(ctx, ledger.Signature{9}))
	require.NoError(t, uow.Rollback())
	assert.Zero(t, s.Len())

	uow, _ = s.Begin(ctx)
	assert.NoError(t, uow.MarkProcessed(ctx, ledger.Signature{9}))
	assert.NoError(t, uow.Commit())
}

func TestDuplicateSignature(t *testing.T) {
	ctx := context.Background()
	s := New()
	sig := ledger.Signature{7}

	uow, _ := s.Begin(ctx)
	require.NoError(t, uow.MarkProcessed(ctx, sig))
	assert.ErrorIs(t, uow.MarkProcessed(ctx, sig), ledger.ErrDuplicateTransaction)
	require.NoError(t, uow.Commit())

	uow, _ = s.Begin(ctx)
	assert.ErrorIs(t, uow.MarkProcessed(ctx, sig), ledger.ErrDuplicateTransaction)
}

func TestReturnedAccountsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	addr := ledger.PublicKey{3}
	uow, _ := s.Begin(ctx)
	acct := &store.Account{Address: addr, Data: []byte{1, 2}}
	require.NoError(t, uow.Put(ctx, acct))
	acct.Data[0] = 9
	require.NoError(t, uow.Commit())

	got, err := s.Account(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, got.Data)
	got.Data[1] = 9
	again, _ := s.Account(ctx, addr)
	assert.Equal(t, []byte{1, 2}, again.Data)
}

package ledger

import "fmt"

// NewBotRecord builds the initial record for authority. Address collision is
// checked by the caller that owns the store.
func NewBotRecord(authority PublicKey, bump uint8, strategy Strategy, initialBalance uint64, env Env) (*BotRecord, error) {
	if !strategy.Type.Valid() {
		return nil, ErrInvalidStrategy
	}
	rec := &BotRecord{
		Authority:          authority,
		IsActive:           true,
		Strategy:           strategy.Clone(),
		Balance:            initialBalance,
		LastTradeTimestamp: 0,
		CreatedAt:          env.Now,
		Bump:               bump,
	}
	env.logf("Trading bot initialized for authority %s", authority)
	return rec, nil
}

// Pause and Resume are idempotent.
func Pause(rec *BotRecord, env Env) {
	rec.IsActive = false
	env.logf("Trading bot paused")
}

func Resume(rec *BotRecord, env Env) {
	rec.IsActive = true
	env.logf("Trading bot resumed")
}

// UpdateStrategy replaces the strategy wholesale. Threshold ordering is not
// validated.
func UpdateStrategy(rec *BotRecord, s Strategy, env Env) error {
	if !s.Type.Valid() {
		return ErrInvalidStrategy
	}
	rec.Strategy = s.Clone()
	env.logf("Strategy updated to %s", s.Type)
	return nil
}

// Withdraw debits the logical balance after checking both the logical
// balance and the lamports actually held by the record account. Moving the
// lamports is the caller's job and must happen in the same commit.
func Withdraw(rec *BotRecord, custody, amount uint64, env Env) error {
	if rec.Balance < amount {
		return fmt.Errorf("%w: balance %d < %d", ErrInsufficientFunds, rec.Balance, amount)
	}
	if custody < amount {
		return fmt.Errorf("%w: account holds %d lamports < %d", ErrInsufficientFunds, custody, amount)
	}
	next, err := CheckedSub(rec.Balance, amount)
	if err != nil {
		return err
	}
	rec.Balance = next
	env.logf("Withdrawn %d lamports", amount)
	return nil
}

package processor

import (
	"encoding/json"

	"botledger/internal/journal"
	"botledger/internal/ledger"
)

// Receipt is what a submitter gets back for one transaction.
type Receipt struct {
	Signature  ledger.Signature `json:"signature"`
	Slot       uint64           `json:"slot"`
	Status     journal.Status   `json:"status"`
	ReturnData json.RawMessage  `json:"return_data,omitempty"`
	Logs       []string         `json:"logs"`
	Error      *ledger.Error    `json:"error,omitempty"`
}

// AirdropParams is the journaled payload of a dev credit.
type AirdropParams struct {
	Lamports uint64 `json:"lamports"`
}

// CheckResult is the return data of check_strategy.
type CheckResult struct {
	CanTrade bool `json:"can_trade"`
}

type airdropRequest struct {
	id       string
	to       ledger.PublicKey
	lamports uint64
}

type reply struct {
	receipt Receipt
	err     error
}

// envelope is one unit of work for the run loop.
type envelope struct {
	tx      *ledger.Transaction
	airdrop *airdropRequest
	replyCh chan reply
}

package ledger

import (
	"errors"
	"fmt"
)

// ErrorCode follows the program error numbering: custom program errors start
// at 6000, runtime errors live below.
type ErrorCode uint32

const programErrorOffset ErrorCode = 6000

// Error is a structured failure that aborts a transaction.
type Error struct {
	Code ErrorCode `json:"code"`
	Name string    `json:"name"`
	Msg  string    `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Msg)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// IsProgramError reports whether the code belongs to the bot program rather
// than the runtime.
func (e *Error) IsProgramError() bool { return e.Code >= programErrorOffset }

func programError(ordinal ErrorCode, name, msg string) *Error {
	return &Error{Code: programErrorOffset + ordinal, Name: name, Msg: msg}
}

func runtimeError(code ErrorCode, name, msg string) *Error {
	return &Error{Code: code, Name: name, Msg: msg}
}

var (
	ErrBotNotActive         = programError(0, "BotNotActive", "Trading bot is not active")
	ErrInsufficientFunds    = programError(1, "InsufficientFunds", "Insufficient funds")
	ErrInvalidStrategy      = programError(2, "InvalidStrategy", "Invalid strategy parameters")
	ErrTradeAmountTooSmall  = programError(3, "TradeAmountTooSmall", "Trade amount too small")
	ErrTradeAmountTooLarge  = programError(4, "TradeAmountTooLarge", "Trade amount too large")
	ErrSlippageExceeded     = programError(5, "SlippageExceeded", "Slippage exceeded")
	ErrPriceThresholdNotMet = programError(6, "PriceThresholdNotMet", "Price threshold not met")
	ErrUnauthorized         = programError(7, "Unauthorized", "Unauthorized access")
)

var (
	ErrInvalidInstruction   = runtimeError(1, "InvalidInstruction", "Instruction is malformed")
	ErrInvalidSignature     = runtimeError(2, "InvalidSignature", "Transaction signature verification failed")
	ErrDuplicateTransaction = runtimeError(3, "DuplicateTransaction", "Transaction has already been processed")
	ErrAccountAlreadyInUse  = runtimeError(4, "AccountAlreadyInUse", "Account already in use")
	ErrAccountNotFound      = runtimeError(5, "AccountNotFound", "Account not found")
	ErrInvalidAccountData   = runtimeError(6, "InvalidAccountData", "Account data is invalid")
	ErrAccountDataTooSmall  = runtimeError(7, "AccountDataTooSmall", "Account data too small for record")
	ErrArithmeticOverflow   = runtimeError(8, "ArithmeticOverflow", "Arithmetic overflow")
)

var allErrors = []*Error{
	ErrBotNotActive, ErrInsufficientFunds, ErrInvalidStrategy, ErrTradeAmountTooSmall,
	ErrTradeAmountTooLarge, ErrSlippageExceeded, ErrPriceThresholdNotMet, ErrUnauthorized,
	ErrInvalidInstruction, ErrInvalidSignature, ErrDuplicateTransaction, ErrAccountAlreadyInUse,
	ErrAccountNotFound, ErrInvalidAccountData, ErrAccountDataTooSmall, ErrArithmeticOverflow,
}

// AsError extracts the ledger error from a wrapped chain.
func AsError(err error) (*Error, bool) {
	var le *Error
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// ErrorByCode returns the sentinel with the given code.
func ErrorByCode(code ErrorCode) (*Error, bool) {
	for _, e := range allErrors {
		if e.Code == code {
			return e, true
		}
	}
	return nil, false
}

package apihttp

import (
	"context"
	"errors"
	"net/http"

	"botledger/internal/ledger"
	"botledger/internal/processor"
)

// statusFor maps a ledger failure onto an HTTP status.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ledger.ErrInvalidSignature), errors.Is(err, ledger.ErrInvalidInstruction):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrUnauthorized), errors.Is(err, processor.ErrAirdropDisabled):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrDuplicateTransaction), errors.Is(err, ledger.ErrAccountAlreadyInUse):
		return http.StatusConflict
	case errors.Is(err, processor.ErrStopped), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	if _, ok := ledger.AsError(err); ok {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

type errorBody struct {
	Error   string             `json:"error"`
	Code    ledger.ErrorCode   `json:"code,omitempty"`
	Name    string             `json:"name,omitempty"`
	Receipt *processor.Receipt `json:"receipt,omitempty"`
}

func newErrorBody(err error, receipt *processor.Receipt) errorBody {
	body := errorBody{Error: err.Error(), Receipt: receipt}
	if le, ok := ledger.AsError(err); ok {
		body.Code = le.Code
		body.Name = le.Name
	}
	return body
}

package processor

import (
	"botledger/internal/ledger"
	"botledger/internal/logger"
)

// HandlerRegistry maps instruction types to handlers.
type HandlerRegistry struct {
	handlers map[ledger.InstructionType]InstructionHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		handlers: make(map[ledger.InstructionType]InstructionHandler),
	}
}

// Register replaces any handler already registered for the same type.
func (r *HandlerRegistry) Register(h InstructionHandler) {
	if h == nil {
		return
	}
	r.handlers[h.Type()] = h
}

func (r *HandlerRegistry) Get(t ledger.InstructionType) (InstructionHandler, bool) {
	h, ok := r.handlers[t]
	return h, ok
}

func (r *HandlerRegistry) RegisterDefaultHandlers() {
	r.Register(&InitializeBotHandler{})
	r.Register(&UpdateStrategyHandler{})
	r.Register(&ExecuteTradeHandler{})
	r.Register(&PauseBotHandler{})
	r.Register(&ResumeBotHandler{})
	r.Register(&WithdrawFundsHandler{})
	r.Register(&JupiterSwapHandler{})
	r.Register(&RaydiumSwapHandler{})
	r.Register(&UpdatePriceHandler{})
	r.Register(&CheckStrategyHandler{})
	r.Register(&SystemTransferHandler{})
	logger.Debugf("Processor: registered %d instruction handlers", len(r.handlers))
}

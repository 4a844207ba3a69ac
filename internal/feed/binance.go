// Package feed pulls token prices from an exchange and keeps a bot's
// strategy evaluated against them.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"

	"botledger/internal/pkg/symbol"
)

// PriceSource returns the last traded price for each requested symbol.
type PriceSource interface {
	Prices(ctx context.Context, symbols ...string) (map[string]decimal.Decimal, error)
}

// BinanceSource reads spot ticker prices through the go-binance SDK.
type BinanceSource struct {
	client *binance.Client
}

func NewBinanceSource(baseURL string, timeout time.Duration) *BinanceSource {
	client := binance.NewClient("", "")
	if base := strings.TrimRight(strings.TrimSpace(baseURL), "/"); base != "" {
		client.BaseURL = base
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client.HTTPClient = &http.Client{Timeout: timeout}
	return &BinanceSource{client: client}
}

func (s *BinanceSource) Prices(ctx context.Context, symbols ...string) (map[string]decimal.Decimal, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("symbols are required")
	}
	clean := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		sym = symbol.ToBinance(sym)
		if sym == "" {
			return nil, fmt.Errorf("empty symbol")
		}
		clean = append(clean, sym)
	}
	svc := s.client.NewListPricesService()
	if len(clean) == 1 {
		svc = svc.Symbol(clean[0])
	} else {
		svc = svc.Symbols(clean)
	}
	rows, err := svc.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance prices: %w", err)
	}
	out := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		px, err := decimal.NewFromString(row.Price)
		if err != nil {
			return nil, fmt.Errorf("binance price %s=%q: %w", row.Symbol, row.Price, err)
		}
		out[row.Symbol] = px
	}
	for _, sym := range clean {
		if _, ok := out[sym]; !ok {
			return nil, fmt.Errorf("binance returned no price for %s", sym)
		}
	}
	return out, nil
}

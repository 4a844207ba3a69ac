// Package symbol normalises exchange trading pair names.
package symbol

import (
	"strings"
)

type Symbol struct {
	Base  string
	Quote string
}

// Pair is the slash form, e.g. SOL/USDT.
func (s Symbol) Pair() string {
	if s.Base == "" || s.Quote == "" {
		return ""
	}
	return s.Base + "/" + s.Quote
}

// Binance is the concatenated form, e.g. SOLUSDT.
func (s Symbol) Binance() string {
	if s.Base == "" || s.Quote == "" {
		return ""
	}
	return s.Base + s.Quote
}

var quoteCurrencies = []string{"USDT", "USDC", "FDUSD", "BUSD", "TUSD", "BTC", "ETH", "BNB", "SOL"}

// Parse accepts "SOL/USDT", "sol-usdt", "SOLUSDT" and "SOL/USDT:USDT".
func Parse(s string) Symbol {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Symbol{}
	}
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	for _, sep := range []string{"/", "-", "_"} {
		if parts := strings.SplitN(s, sep, 2); len(parts) == 2 {
			return Symbol{Base: strings.TrimSpace(parts[0]), Quote: strings.TrimSpace(parts[1])}
		}
	}
	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return Symbol{Base: s[:len(s)-len(quote)], Quote: quote}
		}
	}
	return Symbol{}
}

// ToBinance returns the exchange form of s, or s upper-cased when it does
// not look like a pair.
func ToBinance(s string) string {
	if b := Parse(s).Binance(); b != "" {
		return b
	}
	return strings.ToUpper(strings.TrimSpace(s))
}

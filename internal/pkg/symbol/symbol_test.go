package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	cases := map[string]Symbol{
		"SOL/USDT":      {Base: "SOL", Quote: "USDT"},
		"sol-usdc":      {Base: "SOL", Quote: "USDC"},
		"SOLUSDT":       {Base: "SOL", Quote: "USDT"},
		"ETH/USDT:USDT": {Base: "ETH", Quote: "USDT"},
		"JUPSOL":        {Base: "JUP", Quote: "SOL"},
		"":              {},
		"USDT":          {},
	}
	for in, want := range cases {
		assert.Equal(t, want, Parse(in), in)
	}
}

func TestToBinance(t *testing.T) {
	assert.Equal(t, "SOLUSDT", ToBinance("sol/usdt"))
	assert.Equal(t, "USDCUSDT", ToBinance("USDC/USDT"))
	assert.Equal(t, "WEIRD", ToBinance(" weird "))
	assert.Equal(t, "SOL/USDT", Parse("SOLUSDT").Pair())
}

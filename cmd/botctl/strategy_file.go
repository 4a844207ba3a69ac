package main

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"botledger/internal/ledger"
)

// strategyFile is the on-disk form of a strategy:
//
//	strategy_type: grid_trading
//	token_a: So11111111111111111111111111111111111111112
//	token_b: EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v
//	buy_threshold: 9500
//	sell_threshold: 10500
//	max_slippage: 50
//	trade_amount: 1000000
//	stop_loss: 500000        # optional
type strategyFile struct {
	StrategyType  string  `yaml:"strategy_type"`
	TokenA        string  `yaml:"token_a"`
	TokenB        string  `yaml:"token_b"`
	BuyThreshold  uint64  `yaml:"buy_threshold"`
	SellThreshold uint64  `yaml:"sell_threshold"`
	MaxSlippage   uint16  `yaml:"max_slippage"`
	TradeAmount   uint64  `yaml:"trade_amount"`
	StopLoss      *uint64 `yaml:"stop_loss"`
	TakeProfit    *uint64 `yaml:"take_profit"`
}

func readStrategyFile(path string) (ledger.Strategy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ledger.Strategy{}, fmt.Errorf("read strategy file: %w", err)
	}
	return parseStrategy(raw)
}

func parseStrategy(raw []byte) (ledger.Strategy, error) {
	var f strategyFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return ledger.Strategy{}, fmt.Errorf("parse strategy file: %w", err)
	}
	typ, err := ledger.ParseStrategyType(f.StrategyType)
	if err != nil {
		return ledger.Strategy{}, err
	}
	a, err := ledger.PublicKeyFromBase58(f.TokenA)
	if err != nil {
		return ledger.Strategy{}, fmt.Errorf("token_a: %w", err)
	}
	b, err := ledger.PublicKeyFromBase58(f.TokenB)
	if err != nil {
		return ledger.Strategy{}, fmt.Errorf("token_b: %w", err)
	}
	return ledger.Strategy{
		Type:          typ,
		TokenA:        a,
		TokenB:        b,
		BuyThreshold:  f.BuyThreshold,
		SellThreshold: f.SellThreshold,
		MaxSlippage:   f.MaxSlippage,
		TradeAmount:   f.TradeAmount,
		StopLoss:      f.StopLoss,
		TakeProfit:    f.TakeProfit,
	}, nil
}

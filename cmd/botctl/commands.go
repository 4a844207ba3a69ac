package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"botledger/internal/ledger"
)

func newFlags(name string) *flag.FlagSet {
	return flag.NewFlagSet("botctl "+name, flag.ContinueOnError)
}

func runKeygen(_ context.Context, g *globals, args []string) error {
	fs := newFlags("keygen")
	out := fs.String("out", g.keypair, "output file")
	force := fs.Bool("force", false, "overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := os.Stat(*out); err == nil && !*force {
		return fmt.Errorf("%s exists, pass -force to overwrite", *out)
	}
	kp, err := ledger.NewKeypair()
	if err != nil {
		return err
	}
	if err := kp.Save(*out); err != nil {
		return err
	}
	fmt.Printf("wrote %s\npubkey: %s\n", *out, kp.PublicKey())
	return nil
}

func runPubkey(_ context.Context, g *globals, _ []string) error {
	kp, err := ledger.LoadKeypair(g.keypair)
	if err != nil {
		return err
	}
	fmt.Println(kp.PublicKey())
	return nil
}

func runAddress(_ context.Context, g *globals, args []string) error {
	fs := newFlags("address")
	authority := fs.String("authority", "", "authority public key (default: signer)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	auth, err := resolveAuthority(g, *authority)
	if err != nil {
		return err
	}
	addr, bump, err := botAddress(g, auth)
	if err != nil {
		return err
	}
	fmt.Printf("%s (bump %d)\n", addr, bump)
	return nil
}

func runAirdrop(ctx context.Context, g *globals, args []string) error {
	fs := newFlags("airdrop")
	to := fs.String("to", "", "recipient (default: signer)")
	sol := fs.String("sol", "1", "amount in SOL")
	if err := fs.Parse(args); err != nil {
		return err
	}
	addr, err := resolveAuthority(g, *to)
	if err != nil {
		return err
	}
	c, err := newAPIClient(g)
	if err != nil {
		return err
	}
	raw, err := c.do(ctx, http.MethodPost, "/api/v1/airdrop", map[string]string{"address": addr.String(), "sol": *sol})
	if err != nil {
		return err
	}
	printJSON(raw)
	return nil
}

func runInit(ctx context.Context, g *globals, args []string) error {
	fs := newFlags("init")
	file := fs.String("strategy", "strategy.yaml", "strategy YAML file")
	balance := fs.Uint64("balance", 0, "initial balance (token units)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := readStrategyFile(*file)
	if err != nil {
		return err
	}
	return submit(ctx, g, ledger.InstrInitializeBot, ledger.InitializeParams{Strategy: s, InitialBalance: *balance})
}

func runUpdateStrategy(ctx context.Context, g *globals, args []string) error {
	fs := newFlags("update-strategy")
	file := fs.String("strategy", "strategy.yaml", "strategy YAML file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := readStrategyFile(*file)
	if err != nil {
		return err
	}
	return submit(ctx, g, ledger.InstrUpdateStrategy, ledger.UpdateStrategyParams{Strategy: s})
}

func runTrade(ctx context.Context, g *globals, args []string) error {
	fs := newFlags("trade")
	amount := fs.Uint64("amount", 0, "trade amount")
	minOut := fs.Uint64("min-out", 0, "min_amount_out")
	side := fs.String("side", "buy", "buy or sell")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var tt ledger.TradeType
	if err := tt.UnmarshalText([]byte(*side)); err != nil {
		return err
	}
	return submit(ctx, g, ledger.InstrExecuteTrade, ledger.TradeParams{Amount: *amount, MinAmountOut: *minOut, TradeType: tt})
}

func runSimple(instr ledger.InstructionType) func(context.Context, *globals, []string) error {
	return func(ctx context.Context, g *globals, _ []string) error {
		return submit(ctx, g, instr, nil)
	}
}

func runWithdraw(ctx context.Context, g *globals, args []string) error {
	fs := newFlags("withdraw")
	amount := fs.Uint64("amount", 0, "amount to withdraw")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return submit(ctx, g, ledger.InstrWithdrawFunds, ledger.WithdrawParams{Amount: *amount})
}

func runPrice(ctx context.Context, g *globals, args []string) error {
	fs := newFlags("price")
	a := fs.Uint64("a", 0, "token_a price (fixed point)")
	b := fs.Uint64("b", 0, "token_b price (fixed point)")
	confidence := fs.Uint("confidence", 100, "confidence")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return submit(ctx, g, ledger.InstrUpdatePrice, ledger.PriceObservation{
		TokenAPrice: *a,
		TokenBPrice: *b,
		Confidence:  uint32(*confidence),
	})
}

func swapFlags(name string) (*flag.FlagSet, *uint64, *uint64, *bool, *uint64) {
	fs := newFlags(name)
	in := fs.Uint64("amount-in", 0, "amount_in")
	minOut := fs.Uint64("min-out", 0, "minimum_amount_out")
	ok := fs.Bool("success", true, "venue reported success")
	out := fs.Uint64("amount-out", 0, "amount received")
	return fs, in, minOut, ok, out
}

func runJupiterSwap(ctx context.Context, g *globals, args []string) error {
	fs, in, minOut, ok, out := swapFlags("swap-jupiter")
	fee := fs.Uint("fee-bps", 0, "platform_fee_bps")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *fee > 10_000 {
		return errors.New("fee-bps must be <= 10000")
	}
	return submit(ctx, g, ledger.InstrJupiterSwap, ledger.JupiterSwapParams{
		AmountIn:         *in,
		MinimumAmountOut: *minOut,
		PlatformFeeBps:   uint16(*fee),
		Outcome:          ledger.SwapOutcome{Success: *ok, AmountOut: *out},
	})
}

func runRaydiumSwap(ctx context.Context, g *globals, args []string) error {
	fs, in, minOut, ok, out := swapFlags("swap-raydium")
	coin := fs.String("pool-coin", "", "pool_coin_token_account")
	pc := fs.String("pool-pc", "", "pool_pc_token_account")
	if err := fs.Parse(args); err != nil {
		return err
	}
	coinKey, err := ledger.PublicKeyFromBase58(*coin)
	if err != nil {
		return fmt.Errorf("pool-coin: %w", err)
	}
	pcKey, err := ledger.PublicKeyFromBase58(*pc)
	if err != nil {
		return fmt.Errorf("pool-pc: %w", err)
	}
	return submit(ctx, g, ledger.InstrRaydiumSwap, ledger.RaydiumSwapParams{
		AmountIn:             *in,
		MinimumAmountOut:     *minOut,
		PoolCoinTokenAccount: coinKey,
		PoolPcTokenAccount:   pcKey,
		Outcome:              ledger.SwapOutcome{Success: *ok, AmountOut: *out},
	})
}

func runTransfer(ctx context.Context, g *globals, args []string) error {
	fs := newFlags("transfer")
	to := fs.String("to", "", "recipient")
	sol := fs.String("sol", "", "amount in SOL")
	lamports := fs.Uint64("lamports", 0, "amount in lamports")
	bot := fs.Bool("to-bot", false, "send to the signer's bot record")
	if err := fs.Parse(args); err != nil {
		return err
	}
	kp, err := ledger.LoadKeypair(g.keypair)
	if err != nil {
		return err
	}
	var dest ledger.PublicKey
	switch {
	case *bot:
		if dest, _, err = botAddress(g, kp.PublicKey()); err != nil {
			return err
		}
	default:
		if dest, err = ledger.PublicKeyFromBase58(*to); err != nil {
			return fmt.Errorf("to: %w", err)
		}
	}
	amount := *lamports
	if *sol != "" {
		if amount, err = ledger.ParseSOL(*sol); err != nil {
			return err
		}
	}
	tx, err := ledger.NewTransaction(ledger.InstrSystemTransfer, kp.PublicKey(), kp.PublicKey(), ledger.TransferParams{To: dest, Lamports: amount})
	if err != nil {
		return err
	}
	return send(ctx, g, kp, tx)
}

func runShowBot(ctx context.Context, g *globals, args []string) error {
	fs := newFlags("bot")
	authority := fs.String("authority", "", "authority (default: signer)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return getAndPrint(ctx, g, *authority, "/api/v1/bots/%s")
}

func runShowAccount(ctx context.Context, g *globals, args []string) error {
	fs := newFlags("account")
	address := fs.String("address", "", "address (default: signer)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return getAndPrint(ctx, g, *address, "/api/v1/accounts/%s")
}

func runHistory(ctx context.Context, g *globals, args []string) error {
	fs := newFlags("history")
	authority := fs.String("authority", "", "authority (default: signer)")
	limit := fs.Int("limit", 20, "max entries")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return getAndPrint(ctx, g, *authority, "/api/v1/bots/%s/transactions?limit="+strconv.Itoa(*limit))
}

func getAndPrint(ctx context.Context, g *globals, key, pathFmt string) error {
	k, err := resolveAuthority(g, key)
	if err != nil {
		return err
	}
	c, err := newAPIClient(g)
	if err != nil {
		return err
	}
	raw, err := c.do(ctx, http.MethodGet, fmt.Sprintf(pathFmt, k), nil)
	if err != nil {
		return err
	}
	printJSON(raw)
	return nil
}

// resolveAuthority parses key, or falls back to the signer's public key.
func resolveAuthority(g *globals, key string) (ledger.PublicKey, error) {
	if key != "" {
		return ledger.PublicKeyFromBase58(key)
	}
	kp, err := ledger.LoadKeypair(g.keypair)
	if err != nil {
		return ledger.PublicKey{}, err
	}
	return kp.PublicKey(), nil
}

// submit signs instr against the signer's bot record and posts it.
func submit(ctx context.Context, g *globals, instr ledger.InstructionType, params any) error {
	kp, err := ledger.LoadKeypair(g.keypair)
	if err != nil {
		return err
	}
	addr, _, err := botAddress(g, kp.PublicKey())
	if err != nil {
		return err
	}
	tx, err := ledger.NewTransaction(instr, kp.PublicKey(), addr, params)
	if err != nil {
		return err
	}
	return send(ctx, g, kp, tx)
}

func send(ctx context.Context, g *globals, kp ledger.Keypair, tx *ledger.Transaction) error {
	tx.Sign(kp)
	c, err := newAPIClient(g)
	if err != nil {
		return err
	}
	raw, err := c.do(ctx, http.MethodPost, "/api/v1/transactions", tx)
	if err != nil {
		return err
	}
	printJSON(raw)
	return nil
}

func botAddress(g *globals, authority ledger.PublicKey) (ledger.PublicKey, uint8, error) {
	pid, err := ledger.PublicKeyFromBase58(g.program)
	if err != nil {
		return ledger.PublicKey{}, 0, fmt.Errorf("program: %w", err)
	}
	return ledger.BotAddress(authority, pid)
}

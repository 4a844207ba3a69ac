// Command botctl manages keys and sends signed bot instructions to a
// botledger server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"botledger/internal/ledger"
)

type command struct {
	summary string
	run     func(ctx context.Context, g *globals, args []string) error
}

var commands = map[string]command{
	"keygen":          {"generate a keypair file", runKeygen},
	"pubkey":          {"print the keypair's public key", runPubkey},
	"address":         {"derive the bot record address of an authority", runAddress},
	"airdrop":         {"credit SOL to an address (dev servers only)", runAirdrop},
	"init":            {"initialize_bot from a strategy file", runInit},
	"update-strategy": {"update_strategy from a strategy file", runUpdateStrategy},
	"trade":           {"execute_trade", runTrade},
	"pause":           {"pause_bot", runSimple("pause_bot")},
	"resume":          {"resume_bot", runSimple("resume_bot")},
	"check":           {"check_strategy", runSimple("check_strategy")},
	"withdraw":        {"withdraw_funds", runWithdraw},
	"price":           {"update_price with token prices", runPrice},
	"swap-jupiter":    {"record a jupiter_swap outcome", runJupiterSwap},
	"swap-raydium":    {"record a raydium_swap outcome", runRaydiumSwap},
	"transfer":        {"system_transfer lamports from the signer", runTransfer},
	"bot":             {"show a bot record", runShowBot},
	"account":         {"show any account", runShowAccount},
	"history":         {"list journaled transactions of an authority", runHistory},
}

type globals struct {
	server  string
	keypair string
	program string
	timeout time.Duration
}

func defaultKeypairPath() string {
	if p := os.Getenv("BOTLEDGER_KEYPAIR"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "id.json"
	}
	return filepath.Join(home, ".config", "botledger", "id.json")
}

func defaultServer() string {
	if s := os.Getenv("BOTLEDGER_URL"); s != "" {
		return s
	}
	return "http://127.0.0.1:8899"
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: botctl [-server URL] [-keypair PATH] <command> [flags]\n\ncommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-16s %s\n", name, commands[name].summary)
	}
}

func main() {
	g := &globals{}
	root := flag.NewFlagSet("botctl", flag.ExitOnError)
	root.StringVar(&g.server, "server", defaultServer(), "botledger server URL")
	root.StringVar(&g.keypair, "keypair", defaultKeypairPath(), "signer keypair file")
	root.StringVar(&g.program, "program", ledger.DefaultProgramID, "program id bot records are derived under")
	root.DurationVar(&g.timeout, "timeout", 15*time.Second, "request timeout")
	root.Usage = usage
	_ = root.Parse(os.Args[1:])
	if root.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	name := strings.ToLower(root.Arg(0))
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		usage()
		os.Exit(2)
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()
	if err := cmd.run(ctx, g, root.Args()[1:]); err != nil {
		var he *httpError
		if errors.As(err, &he) {
			fmt.Fprintln(os.Stderr, he.body)
		}
		fmt.Fprintf(os.Stderr, "botctl %s: %v\n", name, err)
		os.Exit(1)
	}
}

package app

import (
	"fmt"
	"sort"
	"strings"

	"botledger/internal/config"
	"botledger/internal/ledger"
)

type StartupSummary struct {
	ProgramID string
	Store     string
	Journal   string
	HTTPAddr  string
	Airdrop   bool
	Replayed  int
	Params    ledger.Params
	Venues    map[string]string
	Keeper    KeeperSummary
}

type KeeperSummary struct {
	Enabled   bool
	Authority string
	Pair      string
	Interval  string
	AutoTrade bool
	Venue     string
}

func newStartupSummary(cfg *config.Config, programID ledger.PublicKey, replayed int, keeper ledger.PublicKey) *StartupSummary {
	s := &StartupSummary{
		ProgramID: programID.String(),
		Store:     describeStorage(cfg.Store.Driver, cfg.Store.Path),
		Journal:   describeStorage(cfg.Journal.Driver, cfg.Journal.Path),
		HTTPAddr:  cfg.App.HTTPAddr,
		Airdrop:   cfg.Ledger.AllowAirdrop,
		Replayed:  replayed,
		Params:    cfg.Ledger.Params(),
		Venues:    map[string]string{},
	}
	for name, v := range map[string]config.VenueConfig{"jupiter": cfg.Venues.Jupiter, "raydium": cfg.Venues.Raydium} {
		if v.Enabled {
			s.Venues[name] = v.BaseURL
		}
	}
	if cfg.Keeper.Enabled {
		s.Keeper = KeeperSummary{
			Enabled:   true,
			Authority: keeper.String(),
			Pair:      cfg.Keeper.SymbolA + "/" + cfg.Keeper.SymbolB,
			Interval:  cfg.Keeper.Interval().String(),
			AutoTrade: cfg.Keeper.AutoTrade,
			Venue:     cfg.Keeper.Venue,
		}
	}
	return s
}

func describeStorage(driver, path string) string {
	if driver == config.StoreMemory || driver == config.JournalNone || path == "" {
		return driver
	}
	return fmt.Sprintf("%s (%s)", driver, path)
}

func (s *StartupSummary) Print() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("%*s\n", 40+len("STARTUP SUMMARY")/2, "STARTUP SUMMARY")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Println("[LEDGER]")
	fmt.Printf("  Program ID: %s\n", s.ProgramID)
	fmt.Printf("  Store: %s\n", s.Store)
	fmt.Printf("  Journal: %s (%d entries replayed)\n", s.Journal, s.Replayed)
	fmt.Printf("  DCA interval: %ds, min trade interval: %ds\n", s.Params.DCAInterval, s.Params.MinTradeInterval)
	fmt.Printf("  Airdrop: %v\n", s.Airdrop)
	fmt.Printf("  HTTP: %s\n", s.HTTPAddr)
	fmt.Println()

	fmt.Println("[VENUES]")
	if len(s.Venues) == 0 {
		fmt.Println("  (none)")
	} else {
		names := make([]string, 0, len(s.Venues))
		for name := range s.Venues {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  - %s: %s\n", name, s.Venues[name])
		}
	}
	fmt.Println()

	fmt.Println("[Keeper]")
	if !s.Keeper.Enabled {
		fmt.Println("  (disabled)")
	} else {
		fmt.Printf("  Authority: %s\n", s.Keeper.Authority)
		fmt.Printf("  Pair: %s, interval: %s\n", s.Keeper.Pair, s.Keeper.Interval)
		fmt.Printf("  Auto trade: %v (%s)\n", s.Keeper.AutoTrade, s.Keeper.Venue)
	}
	fmt.Println(strings.Repeat("=", 80))
}

package config

import (
	"fmt"
	"strings"
	"time"

	"botledger/internal/ledger"
)

// Config is the top-level runtime configuration.
type Config struct {
	App     AppConfig     `yaml:"app"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	Store   StoreConfig   `yaml:"store"`
	Journal JournalConfig `yaml:"journal"`
	Venues  VenuesConfig  `yaml:"venues"`
	Keeper  KeeperConfig  `yaml:"keeper"`
}

type AppConfig struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
	HTTPAddr string `yaml:"http_addr"`
	// LogPath empty means stdout only.
	LogPath string `yaml:"log_path"`
	// ProgramLogPath receives the per-transaction program log lines.
	ProgramLogPath string `yaml:"program_log_path"`
}

type LedgerConfig struct {
	ProgramID               string `yaml:"program_id"`
	DCAIntervalSeconds      int64  `yaml:"dca_interval_seconds"`
	MinTradeIntervalSeconds int64  `yaml:"min_trade_interval_seconds"`
	InboxSize               int    `yaml:"inbox_size"`
	AllowAirdrop            bool   `yaml:"allow_airdrop"`
}

func (l LedgerConfig) Params() ledger.Params {
	return ledger.Params{
		DCAInterval:      l.DCAIntervalSeconds,
		MinTradeInterval: l.MinTradeIntervalSeconds,
	}
}

func (l LedgerConfig) ProgramKey() (ledger.PublicKey, error) {
	k, err := ledger.PublicKeyFromBase58(l.ProgramID)
	if err != nil {
		return ledger.PublicKey{}, fmt.Errorf("ledger.program_id: %w", err)
	}
	return k, nil
}

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"

	JournalNone   = "none"
	JournalFile   = "file"
	JournalSQLite = "sqlite"
)

type StoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type JournalConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type VenuesConfig struct {
	Jupiter VenueConfig `yaml:"jupiter"`
	Raydium VenueConfig `yaml:"raydium"`
}

// VenueConfig describes how to reach one swap venue's quote API.
type VenueConfig struct {
	Enabled                bool   `yaml:"enabled"`
	BaseURL                string `yaml:"base_url"`
	TimeoutSeconds         int    `yaml:"timeout_seconds"`
	BreakerThreshold       int    `yaml:"breaker_threshold"`
	BreakerCooldownSeconds int    `yaml:"breaker_cooldown_seconds"`
	// jupiter only
	PlatformFeeBps uint16 `yaml:"platform_fee_bps"`
	// raydium only; empty means take the pool from the quoted route
	PoolCoinTokenAccount string `yaml:"pool_coin_token_account"`
	PoolPcTokenAccount   string `yaml:"pool_pc_token_account"`
}

func (v VenueConfig) Timeout() time.Duration {
	return time.Duration(v.TimeoutSeconds) * time.Second
}

func (v VenueConfig) BreakerCooldown() time.Duration {
	return time.Duration(v.BreakerCooldownSeconds) * time.Second
}

// KeeperConfig drives the built-in bot runner that feeds exchange prices
// into the ledger.
type KeeperConfig struct {
	Enabled         bool   `yaml:"enabled"`
	KeypairPath     string `yaml:"keypair_path"`
	IntervalSeconds int    `yaml:"interval_seconds"`
	SymbolA         string `yaml:"symbol_a"`
	SymbolB         string `yaml:"symbol_b"`
	BinanceBaseURL  string `yaml:"binance_base_url"`
	// PriceDecimals is the fixed-point precision prices are submitted with.
	PriceDecimals int32  `yaml:"price_decimals"`
	AutoTrade     bool   `yaml:"auto_trade"`
	Venue         string `yaml:"venue"`
}

func (k KeeperConfig) Interval() time.Duration {
	return time.Duration(k.IntervalSeconds) * time.Second
}

type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	_, ok := k[strings.ToLower(strings.TrimSpace(path))]
	return ok
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}

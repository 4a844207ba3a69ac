package config

import (
	"strings"

	"botledger/internal/ledger"
	"botledger/internal/pkg/symbol"
)

const (
	defaultAppEnv            = "dev"
	defaultAppLogLevel       = "info"
	defaultAppHTTPAddr       = ":8899"
	defaultInboxSize         = 100
	defaultStoreDriver       = StoreMemory
	defaultStorePath         = "data/ledger.db"
	defaultJournalDriver     = JournalFile
	defaultJournalFilePath   = "data/journal.jsonl"
	defaultJournalSQLitePath = "data/journal.db"
	defaultJupiterURL        = "https://quote-api.jup.ag/v6"
	defaultRaydiumURL        = "https://transaction-v1.raydium.io"
	defaultVenueTimeout      = 10
	defaultBreakerThreshold  = 3
	defaultBreakerCooldown   = 30
	defaultKeeperInterval    = 30
	defaultKeeperSymbolA     = "SOLUSDT"
	defaultKeeperSymbolB     = "USDCUSDT"
	defaultKeeperBinanceURL  = "https://api.binance.com"
	defaultKeeperDecimals    = 6
	defaultKeeperVenue       = "jupiter"
	defaultKeeperKeypair     = "data/keeper.json"
)

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Ledger.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Journal.applyDefaults(keys)
	c.Venues.Jupiter.applyDefaults(keys, "venues.jupiter", defaultJupiterURL)
	c.Venues.Raydium.applyDefaults(keys, "venues.raydium", defaultRaydiumURL)
	c.Keeper.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (l *LedgerConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("ledger.program_id", &l.ProgramID, ledger.DefaultProgramID),
		int64FieldDefault("ledger.dca_interval_seconds", &l.DCAIntervalSeconds, ledger.DefaultDCAInterval),
		int64FieldDefault("ledger.min_trade_interval_seconds", &l.MinTradeIntervalSeconds, ledger.DefaultMinTradeInterval),
		intFieldDefault("ledger.inbox_size", &l.InboxSize, defaultInboxSize),
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
	applyFieldDefaults(keys,
		stringFieldDefault("store.driver", &s.Driver, defaultStoreDriver),
		stringFieldDefault("store.path", &s.Path, defaultStorePath),
	)
}

func (j *JournalConfig) applyDefaults(keys keySet) {
	j.Driver = strings.ToLower(strings.TrimSpace(j.Driver))
	applyFieldDefaults(keys, stringFieldDefault("journal.driver", &j.Driver, defaultJournalDriver))
	path := defaultJournalFilePath
	if j.Driver == JournalSQLite {
		path = defaultJournalSQLitePath
	}
	applyFieldDefaults(keys, stringFieldDefault("journal.path", &j.Path, path))
}

func (v *VenueConfig) applyDefaults(keys keySet, prefix, baseURL string) {
	applyFieldDefaults(keys,
		boolFieldDefault(prefix+".enabled", &v.Enabled, true),
		stringFieldDefault(prefix+".base_url", &v.BaseURL, baseURL),
		intFieldDefault(prefix+".timeout_seconds", &v.TimeoutSeconds, defaultVenueTimeout),
		intFieldDefault(prefix+".breaker_threshold", &v.BreakerThreshold, defaultBreakerThreshold),
		intFieldDefault(prefix+".breaker_cooldown_seconds", &v.BreakerCooldownSeconds, defaultBreakerCooldown),
	)
	v.BaseURL = strings.TrimRight(strings.TrimSpace(v.BaseURL), "/")
}

func (k *KeeperConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("keeper.keypair_path", &k.KeypairPath, defaultKeeperKeypair),
		intFieldDefault("keeper.interval_seconds", &k.IntervalSeconds, defaultKeeperInterval),
		stringFieldDefault("keeper.symbol_a", &k.SymbolA, defaultKeeperSymbolA),
		stringFieldDefault("keeper.symbol_b", &k.SymbolB, defaultKeeperSymbolB),
		stringFieldDefault("keeper.binance_base_url", &k.BinanceBaseURL, defaultKeeperBinanceURL),
		stringFieldDefault("keeper.venue", &k.Venue, defaultKeeperVenue),
		fieldDefault{
			key:   "keeper.price_decimals",
			need:  func() bool { return k.PriceDecimals <= 0 },
			apply: func() { k.PriceDecimals = defaultKeeperDecimals },
		},
	)
	k.SymbolA = symbol.ToBinance(k.SymbolA)
	k.SymbolB = symbol.ToBinance(k.SymbolB)
	k.Venue = strings.ToLower(strings.TrimSpace(k.Venue))
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return strings.TrimSpace(*target) == "" },
		apply: func() { *target = def },
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = def },
	}
}

func int64FieldDefault(key string, target *int64, def int64) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = def },
	}
}

// boolFieldDefault only fires when the key is absent, since false is a
// meaningful explicit value.
func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:   key,
		apply: func() { *target = def },
	}
}

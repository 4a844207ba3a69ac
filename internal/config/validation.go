package config

import (
	"fmt"
	"strings"

	"botledger/internal/ledger"
)

func validate(c *Config) error {
	if _, err := c.Ledger.ProgramKey(); err != nil {
		return err
	}
	if err := c.Ledger.validate(); err != nil {
		return err
	}
	if err := c.Store.validate(); err != nil {
		return err
	}
	if err := c.Journal.validate(); err != nil {
		return err
	}
	if err := c.Venues.Jupiter.validate("venues.jupiter"); err != nil {
		return err
	}
	if err := c.Venues.Raydium.validate("venues.raydium"); err != nil {
		return err
	}
	return c.Keeper.validate(c.Venues)
}

func (l *LedgerConfig) validate() error {
	if l.DCAIntervalSeconds <= 0 {
		return fmt.Errorf("ledger.dca_interval_seconds must be > 0")
	}
	if l.MinTradeIntervalSeconds < 0 {
		return fmt.Errorf("ledger.min_trade_interval_seconds must be >= 0")
	}
	if l.InboxSize <= 0 {
		return fmt.Errorf("ledger.inbox_size must be > 0")
	}
	return nil
}

func (s *StoreConfig) validate() error {
	switch s.Driver {
	case StoreMemory:
	case StoreSQLite:
		if strings.TrimSpace(s.Path) == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("store.driver must be memory or sqlite, got %q", s.Driver)
	}
	return nil
}

func (j *JournalConfig) validate() error {
	switch j.Driver {
	case JournalNone:
	case JournalFile, JournalSQLite:
		if strings.TrimSpace(j.Path) == "" {
			return fmt.Errorf("journal.path is required for the %s driver", j.Driver)
		}
	default:
		return fmt.Errorf("journal.driver must be none, file or sqlite, got %q", j.Driver)
	}
	return nil
}

func (v *VenueConfig) validate(prefix string) error {
	if !v.Enabled {
		return nil
	}
	if v.BaseURL == "" {
		return fmt.Errorf("%s.base_url is required", prefix)
	}
	if v.TimeoutSeconds <= 0 {
		return fmt.Errorf("%s.timeout_seconds must be > 0", prefix)
	}
	for _, acct := range []struct{ key, val string }{
		{"pool_coin_token_account", v.PoolCoinTokenAccount},
		{"pool_pc_token_account", v.PoolPcTokenAccount},
	} {
		if acct.val == "" {
			continue
		}
		if _, err := ledger.PublicKeyFromBase58(acct.val); err != nil {
			return fmt.Errorf("%s.%s: %w", prefix, acct.key, err)
		}
	}
	return nil
}

func (k *KeeperConfig) validate(venues VenuesConfig) error {
	if !k.Enabled {
		return nil
	}
	if strings.TrimSpace(k.KeypairPath) == "" {
		return fmt.Errorf("keeper.keypair_path is required when the keeper is enabled")
	}
	if k.IntervalSeconds <= 0 {
		return fmt.Errorf("keeper.interval_seconds must be > 0")
	}
	if k.SymbolA == "" || k.SymbolB == "" {
		return fmt.Errorf("keeper.symbol_a and keeper.symbol_b are required")
	}
	if k.PriceDecimals > 12 {
		return fmt.Errorf("keeper.price_decimals must be <= 12")
	}
	if !k.AutoTrade {
		return nil
	}
	switch k.Venue {
	case "jupiter":
		if !venues.Jupiter.Enabled {
			return fmt.Errorf("keeper.venue jupiter is disabled")
		}
	case "raydium":
		if !venues.Raydium.Enabled {
			return fmt.Errorf("keeper.venue raydium is disabled")
		}
	default:
		return fmt.Errorf("keeper.venue must be jupiter or raydium, got %q", k.Venue)
	}
	return nil
}

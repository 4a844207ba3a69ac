package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botledger/internal/ledger"
	"botledger/internal/logger"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "botledger.yaml", "app:\n  env: test\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.App.Env)
	assert.Equal(t, defaultAppHTTPAddr, cfg.App.HTTPAddr)
	assert.Equal(t, ledger.DefaultProgramID, cfg.Ledger.ProgramID)
	assert.Equal(t, int64(ledger.DefaultDCAInterval), cfg.Ledger.DCAIntervalSeconds)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, JournalFile, cfg.Journal.Driver)
	assert.Equal(t, defaultJournalFilePath, cfg.Journal.Path)
	assert.True(t, cfg.Venues.Jupiter.Enabled)
	assert.Equal(t, defaultRaydiumURL, cfg.Venues.Raydium.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Venues.Jupiter.Timeout())
	assert.False(t, cfg.Keeper.Enabled)
	assert.Equal(t, "SOLUSDT", cfg.Keeper.SymbolA)

	p := cfg.Ledger.Params()
	assert.Equal(t, ledger.DefaultParams(), p)
}

func TestLoadKeepsExplicitFalse(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "botledger.yaml", `
venues:
  jupiter:
    enabled: false
  raydium:
    base_url: "http://localhost:9000/"
    timeout_seconds: "3"
journal:
  driver: sqlite
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Venues.Jupiter.Enabled)
	assert.Equal(t, "http://localhost:9000", cfg.Venues.Raydium.BaseURL)
	assert.Equal(t, 3, cfg.Venues.Raydium.TimeoutSeconds)
	assert.Equal(t, defaultJournalSQLitePath, cfg.Journal.Path)
}

func TestLoadMergesIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
app:
  log_level: debug
ledger:
  dca_interval_seconds: 120
`)
	path := writeFile(t, dir, "main.yaml", `
include: ["base.yaml"]
ledger:
  dca_interval_seconds: 60
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, int64(60), cfg.Ledger.DCAIntervalSeconds)
}

func TestLoadRejectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include: [b.yaml]\n")
	path := writeFile(t, dir, "b.yaml", "include: [a.yaml]\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]string{
		"bad store driver":   "store:\n  driver: postgres\n",
		"bad journal driver": "journal:\n  driver: kafka\n",
		"bad program id":     "ledger:\n  program_id: not-base58-0OIl\n",
		"keeper venue off": `
venues:
  raydium:
    enabled: false
keeper:
  enabled: true
  auto_trade: true
  venue: raydium
`,
		"bad pool account": "venues:\n  raydium:\n    pool_coin_token_account: xyz0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "c.yaml", body)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestApplyLogLevel(t *testing.T) {
	prev := logger.Level()
	t.Cleanup(func() { logger.SetLevel(prev) })

	ApplyLogLevel(&Config{App: AppConfig{LogLevel: "debug"}})
	assert.Equal(t, "debug", logger.Level())
	ApplyLogLevel(nil)
	assert.Equal(t, "debug", logger.Level())
}

package config

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"botledger/internal/logger"
)

// Watch calls fn with a freshly loaded config every time the file at path
// is written. A file that fails to load is logged and skipped; the
// previous config stays in effect.
func Watch(path string, fn func(*Config)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	v := viper.New()
	v.SetConfigFile(abs)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("watch config %s: %w", abs, err)
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) {
			return
		}
		cfg, err := Load(abs)
		if err != nil {
			logger.Warnf("config reload %s failed: %v", evt.Name, err)
			return
		}
		logger.Infof("config reloaded: %s", evt.Name)
		fn(cfg)
	})
	v.WatchConfig()
	return nil
}

// ApplyLogLevel is the reload hook for the only setting that changes
// without a restart.
func ApplyLogLevel(cfg *Config) {
	if cfg == nil {
		return
	}
	before := logger.Level()
	logger.SetLevel(cfg.App.LogLevel)
	if after := logger.Level(); after != before {
		logger.Infof("log level %s -> %s", before, after)
	}
}

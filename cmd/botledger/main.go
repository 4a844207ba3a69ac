package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"botledger/internal/app"
	"botledger/internal/config"
	"botledger/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("BOTLEDGER_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/botledger.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		log.Fatalf("open log file: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	progFile, err := setupProgramLog(cfg.App.ProgramLogPath)
	if err != nil {
		log.Fatalf("open program log: %v", err)
	}
	if progFile != nil {
		defer progFile.Close()
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.Infof("✓ config loaded (env=%s, store=%s, journal=%s)", cfg.App.Env, cfg.Store.Driver, cfg.Journal.Driver)

	if err := config.Watch(cfgPath, config.ApplyLogLevel); err != nil {
		logger.Warnf("config hot reload disabled: %v", err)
	}

	a, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("build app: %v", err)
	}
	if err := a.Run(ctx); err != nil {
		log.Fatalf("run: %v", err)
	}
}

func openAppend(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	file, err := openAppend(trimmed)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}

func setupProgramLog(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		logger.SetProgramWriter(nil)
		return nil, nil
	}
	f, err := openAppend(trimmed)
	if err != nil {
		return nil, err
	}
	logger.SetProgramWriter(f)
	return f, nil
}

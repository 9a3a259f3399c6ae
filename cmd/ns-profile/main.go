package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"Go2NetProfile/internal/config"
	"Go2NetProfile/internal/engine/manager"
	"Go2NetProfile/internal/logging"
	"Go2NetProfile/internal/resolver"

	"go.uber.org/zap"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ns-profile: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", defaultConfigPath, "path to the YAML configuration file")
	flag.Parse()

	// 1. Load configuration, falling back to built-in defaults when the
	// default file is absent.
	cfg, err := config.LoadConfig(*configPath)
	if errors.Is(err, os.ErrNotExist) && *configPath == defaultConfigPath {
		cfg, err = config.DefaultConfig(), nil
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger.Info("Starting ns-profile...", zap.String("config", *configPath))

	// 2. Initialize modules
	opts := []manager.Option{manager.WithNotices(os.Stdout)}
	if cfg.Summary.Print {
		opts = append(opts, manager.WithReport(os.Stdout))
	}
	mgr, err := manager.NewManager(cfg, logger, opts...)
	if err != nil {
		logger.Error("Failed to create manager", zap.Error(err))
		return err
	}
	defer mgr.Close()

	// 3. Configured paths first, anything missing is asked for on the terminal.
	res := resolver.Chain{
		resolver.Map(cfg.ActivityPaths()),
		resolver.NewPrompt(os.Stdin, os.Stdout),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Run the pipeline
	result, err := mgr.Run(ctx, cfg.ActivityNames(), res)
	if err != nil {
		logger.Error("Analysis failed", zap.Error(err))
		return err
	}
	if result.NoData {
		return nil
	}
	logger.Info("Analysis complete.", zap.String("run", result.Run.ID), zap.Int("activities", len(result.Bundles)))
	return nil
}

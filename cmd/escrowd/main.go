package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"tradeflow/boxclient"
	"tradeflow/config"
	"tradeflow/crypto"
	"tradeflow/currency"
	"tradeflow/escrow"
	"tradeflow/observability/logging"
	"tradeflow/query"
	"tradeflow/rpc"
	"tradeflow/storage"
	"tradeflow/txbuild"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("TRADEFLOW_ENV"))

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	var logOpts []logging.Option
	if cfg.LogDir != "" {
		logOpts = append(logOpts, logging.WithRotatingFile(filepath.Join(cfg.LogDir, "escrowd.log")))
	}
	logger := logging.Setup("escrowd", env, logOpts...)

	appAddress, err := crypto.DecodeAddress(cfg.AppAddress)
	if err != nil {
		logger.Error("Invalid application address", slog.Any("error", err))
		os.Exit(1)
	}

	var boxes query.BoxReader
	if cfg.NodeURL != "" {
		var clientOpts []boxclient.Option
		if cfg.NodeAuthToken != "" {
			clientOpts = append(clientOpts, boxclient.WithAuthToken(cfg.NodeAuthToken))
		}
		boxes = boxclient.New(cfg.NodeURL, cfg.AppID, clientOpts...)
		logger.Info("reading boxes from node", "url", cfg.NodeURL, "app", cfg.AppID)
	} else {
		db, err := storage.NewLevelDB(cfg.DataDir)
		if err != nil {
			panic(fmt.Sprintf("Failed to open database: %v", err))
		}
		defer db.Close()
		boxes = query.NewStoreReader(db)
		logger.Info("reading boxes from local mirror", "dir", cfg.DataDir)
	}

	conv, err := currency.NewConverter(cfg.MicroUnitsPerUSD)
	if err != nil {
		logger.Error("Invalid conversion rate", slog.Any("error", err))
		os.Exit(1)
	}
	builder, err := txbuild.NewBuilder(txbuild.Params{
		AppID:      cfg.AppID,
		AppAddress: appAddress,
		FeeBps:     cfg.FeeBps,
	})
	if err != nil {
		logger.Error("Invalid builder parameters", slog.Any("error", err))
		os.Exit(1)
	}

	svc := query.NewService(boxes, logger)
	states := escrow.NewStateMachine(cfg.ValidityWindowSecs)

	server := rpc.NewServer(rpc.Config{
		ListenAddress:      cfg.ListenAddress,
		AuthToken:          cfg.RPCAuthToken,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RateBurst:          cfg.RateBurst,
		FeeBps:             cfg.FeeBps,
	}, svc, builder, conv, states, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Error("Server exited", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/congo-pay/chain_atm/internal/config"
	"github.com/congo-pay/chain_atm/internal/devchain"
	"github.com/congo-pay/chain_atm/internal/infra"
	"github.com/congo-pay/chain_atm/internal/logging"
	"github.com/congo-pay/chain_atm/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if cache != nil {
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	} else {
		logger.Warn("running without redis: idempotency and rate limiting disabled")
	}

	chain, closeChain, err := connectWallet(ctx, cfg, logger)
	if err != nil {
		logger.Error("connect wallet", "error", err)
		os.Exit(1)
	}
	defer closeChain()

	srv, err := server.New(cfg, chain, cache, logger)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}

// connectWallet dials WALLET_RPC_URL. In development without a URL it starts
// an in-process devchain instead; elsewhere it runs with no wallet.
func connectWallet(ctx context.Context, cfg config.Config, logger *slog.Logger) (*rpc.Client, func(), error) {
	if cfg.WalletRPCURL != "" {
		client, chainID, err := infra.DialWallet(ctx, cfg.WalletRPCURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("wallet connected", "chain_id", chainID.String(), "contract", cfg.ContractAddress.Hex())
		return client, client.Close, nil
	}

	if !cfg.IsDevelopment() {
		logger.Warn("WALLET_RPC_URL not set: no wallet provider available")
		return nil, func() {}, nil
	}

	node, err := devchain.New(devchain.Options{
		Contract:       cfg.ContractAddress,
		InitialBalance: cfg.DevchainBalance,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("start devchain: %w", err)
	}
	client := node.Client()
	logger.Info("using in-process devchain", "contract", cfg.ContractAddress.Hex(), "balance", cfg.DevchainBalance)
	return client, func() {
		client.Close()
		node.Close()
	}, nil
}

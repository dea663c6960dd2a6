package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	"spotdex/params"
	"spotdex/pkg/api"
	"spotdex/pkg/dex/engine"
	"spotdex/pkg/dex/market"
	"spotdex/pkg/dex/wallet"
	"spotdex/pkg/storage"
	"spotdex/pkg/util"
)

func main() {
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory

	logger, err := util.NewLoggerWithFile(cfg.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.LogFile)

	var store *storage.Store
	if cfg.Storage.Path != "" {
		store, err = storage.NewStore(cfg.Storage.Path)
		if err != nil {
			sugar.Fatalw("storage_open_failed", "path", cfg.Storage.Path, "err", err)
		}
		defer store.Close()
		sugar.Infow("storage_opened", "path", cfg.Storage.Path)
	}

	ledger := wallet.NewLedger(cfg.Exchange.NativeSymbol)
	tokens := market.NewRegistry()
	exchange := engine.New(ledger, tokens, engine.Options{
		Store:  store,
		Logger: logger,
	})

	if err := exchange.Restore(); err != nil {
		sugar.Fatalw("restore_failed", "err", err)
	}

	for symbol, addrHex := range cfg.Exchange.Tokens {
		if !common.IsHexAddress(addrHex) {
			sugar.Warnw("token_skipped", "symbol", symbol, "address", addrHex)
			continue
		}
		if err := exchange.AddToken(symbol, common.HexToAddress(addrHex)); err != nil {
			sugar.Warnw("token_onboard_failed", "symbol", symbol, "err", err)
		}
	}

	server := api.NewServer(exchange, cfg.API.AllowedOrigins)
	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(cfg.API.Addr) }()
	sugar.Infow("node_started", "api_addr", cfg.API.Addr, "native", cfg.Exchange.NativeSymbol)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		sugar.Infow("shutdown", "signal", sig.String())
	case err := <-errCh:
		sugar.Errorw("api_server_stopped", "err", err)
	}
}

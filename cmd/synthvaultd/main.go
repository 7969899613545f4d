package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"synthvault/config"
	"synthvault/core/events"
	"synthvault/native/vault"
	"synthvault/observability/logging"
	"synthvault/observability/metrics"
	"synthvault/observability/otel"
	"synthvault/rpc"
	"synthvault/storage"
	"synthvault/tokens"
)

// vaultAddress is the custody address collateral and pulled synthetic tokens
// are held under.
var vaultAddress = common.HexToAddress("0x0000000000000000000000000000000000001001")

const (
	rpcSecretEnv         = "SYNTHVAULT_RPC_SECRET"
	priceRefreshInterval = time.Minute
)

func main() {
	configPath := flag.String("config", "./config.toml", "path to the TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	log := logging.Setup(logging.Options{
		Service: "synthvaultd",
		Env:     cfg.Environment,
		File:    cfg.LogFile,
		MaxSize: cfg.LogMaxSizeMB,
		Backups: cfg.LogBackups,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPMetrics || cfg.OTLPTraces {
		shutdown, err := otel.Init(ctx, otel.Config{
			ServiceName: "synthvaultd",
			Environment: cfg.Environment,
			Endpoint:    cfg.OTLPEndpoint,
			Insecure:    cfg.OTLPInsecure,
			Metrics:     cfg.OTLPMetrics,
			Traces:      cfg.OTLPTraces,
		})
		if err != nil {
			log.Error("failed to initialise telemetry", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Warn("telemetry shutdown failed", "error", err)
			}
		}()
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		log.Error("failed to open database", "path", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	entries, err := config.LoadCollateral(cfg.CollateralFile)
	if err != nil {
		log.Error("failed to load collateral registry", "path", cfg.CollateralFile, "error", err)
		os.Exit(1)
	}

	engine, err := buildEngine(entries, db)
	if err != nil {
		log.Error("failed to assemble vault engine", "error", err)
		os.Exit(1)
	}
	engine.SetEmitter(logEmitter{log: log})

	go refreshPrices(ctx, engine, log)

	server := rpc.NewServer(engine, log, rpc.Options{
		AuthSecret: []byte(strings.TrimSpace(os.Getenv(rpcSecretEnv))),
		WriteRate:  cfg.RPCWriteRate,
	})
	httpServer := &http.Server{
		Addr:              cfg.RPCAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting JSON-RPC server", "addr", cfg.RPCAddress)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("rpc server failed", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("rpc server shutdown failed", "error", err)
	}
	log.Info("synthvaultd stopped")
}

// buildEngine wires feeds, oracle adapters, collateral tokens and the ledger
// from the ordered collateral list.
func buildEngine(entries []config.CollateralEntry, db storage.Database) (*vault.Engine, error) {
	assets := make([]common.Address, 0, len(entries))
	adapters := make([]*vault.OracleAdapter, 0, len(entries))
	collateral := make(map[common.Address]vault.CollateralToken, len(entries))

	for _, entry := range entries {
		addr, err := entry.Address()
		if err != nil {
			return nil, err
		}
		var feed vault.PriceFeed
		switch strings.ToLower(strings.TrimSpace(entry.Feed.Kind)) {
		case "manual":
			answer, err := vault.ParseFeedAnswer(entry.Feed.Price)
			if err != nil {
				return nil, err
			}
			feed = vault.NewManualFeed(answer, time.Now().UTC())
		default:
			feed = vault.NewHTTPFeed(nil, entry.Feed.Endpoint, entry.Feed.AssetID)
		}
		assets = append(assets, addr)
		adapters = append(adapters, vault.NewOracleAdapter(feed))
		collateral[addr] = tokens.New(entry.Symbol)
	}

	registry, err := vault.NewRegistry(assets, adapters)
	if err != nil {
		return nil, err
	}
	engine := vault.NewEngine(vaultAddress, registry, tokens.NewSynthetic("SVD"), collateral)
	engine.SetState(vault.NewKVState(db))
	return engine, nil
}

// refreshPrices periodically samples the raw feed answers into the asset price
// gauge. Raw reads only; solvency math inside the engine keeps its own
// staleness-checked path.
func refreshPrices(ctx context.Context, engine *vault.Engine, log *slog.Logger) {
	ticker := time.NewTicker(priceRefreshInterval)
	defer ticker.Stop()
	scale := new(big.Float).SetInt(vault.Precision())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		for _, asset := range engine.Assets() {
			adapter, err := engine.FeedFor(asset)
			if err != nil {
				continue
			}
			price, err := adapter.RawPrice()
			if err != nil {
				log.Warn("price refresh failed", "asset", asset.Hex(), "error", err)
				continue
			}
			value, _ := new(big.Float).Quo(new(big.Float).SetInt(price), scale).Float64()
			metrics.Vault().SetAssetPrice(asset.Hex(), value)
		}
	}
}

// logEmitter writes ledger events to the structured log.
type logEmitter struct {
	log *slog.Logger
}

func (l logEmitter) Emit(evt events.Event) {
	attrs := evt.Attributes()
	args := make([]any, 0, len(attrs)*2)
	for key, value := range attrs {
		args = append(args, slog.String(key, value))
	}
	l.log.Info(evt.EventType(), args...)
}

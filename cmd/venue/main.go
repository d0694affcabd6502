package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/gutsysingh/PTApp/params"
	"github.com/gutsysingh/PTApp/pkg/api"
	"github.com/gutsysingh/PTApp/pkg/broadcast"
	"github.com/gutsysingh/PTApp/pkg/engine"
	"github.com/gutsysingh/PTApp/pkg/ledger"
	"github.com/gutsysingh/PTApp/pkg/market"
	"github.com/gutsysingh/PTApp/pkg/metrics"
	"github.com/gutsysingh/PTApp/pkg/storage"
	"github.com/gutsysingh/PTApp/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	// Setup logging (write to both console and file)
	logger, err := util.NewLoggerWithFile(cfg.Node.LogFile, cfg.Node.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Node.LogFile, "level", cfg.Node.LogLevel)

	clock := util.RealClock{}

	// ---- Market ----
	gen, err := market.NewGenerator(market.GeneratorConfig{
		Instrument: cfg.Market.Instrument,
		StartPrice: cfg.Market.StartPrice,
		MaxStep:    cfg.Market.MaxStep,
		Spread:     cfg.Market.Spread,
		Seed:       cfg.Market.Seed,
	}, clock)
	if err != nil {
		sugar.Fatalw("generator_init_failed", "err", err)
	}

	// ---- Engine ----
	hub := broadcast.NewHub(broadcast.HubConfig{
		Buffer:          cfg.Engine.SubscriberBuffer,
		DeliveryTimeout: cfg.Engine.DeliveryTimeout,
	}, sugar)
	defer hub.Close()

	eng := engine.NewEngine(engine.Config{
		TickInterval:        cfg.Engine.TickInterval,
		FaultAlertThreshold: cfg.Engine.FaultAlertThreshold,
		StartingCash:        cfg.Engine.StartingCash,
		JournalBacklog:      cfg.Engine.JournalBacklog,
	}, gen, ledger.New(clock), hub)
	eng.Logger = sugar
	eng.Metrics = metrics.New()

	// Journal is an audit trail only; the ledger always starts empty.
	if cfg.Node.JournalDir != "" {
		journal, err := storage.NewPebbleJournal(cfg.Node.JournalDir)
		if err != nil {
			sugar.Fatalw("journal_open_failed", "dir", cfg.Node.JournalDir, "err", err)
		}
		defer journal.Close()
		eng.Journal = journal
		sugar.Infow("journal_enabled", "dir", cfg.Node.JournalDir)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sugar.Infow("venue_starting",
		"instrument", cfg.Market.Instrument,
		"start_price", cfg.Market.StartPrice,
		"tick_interval_ms", cfg.Engine.TickInterval.Milliseconds(),
		"delivery_timeout_ms", cfg.Engine.DeliveryTimeout.Milliseconds(),
		"api_addr", cfg.API.Addr)

	// ---- API Server ----
	apiServer := api.NewServer(eng, cfg.API.CORSOrigins, sugar)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.Run(gctx) })
	g.Go(func() error { return apiServer.Serve(gctx, cfg.API.Addr) })

	if err := g.Wait(); err != nil {
		sugar.Errorw("venue_stopped", "err", err)
		return
	}
	sugar.Info("venue_stopped")
}

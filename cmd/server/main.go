package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"brokersim/params"
	"brokersim/pkg/api"
	"brokersim/pkg/core"
	"brokersim/pkg/util"
)

func main() {
	cfg := params.LoadFromEnv("")

	var logger *zap.Logger
	var err error
	if cfg.Server.LogFile != "" {
		logger, err = util.NewLoggerWithFile(cfg.Server.LogFile)
	} else {
		logger, err = util.NewLogger()
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	ts := core.NewTradingSession(core.Config{
		Symbol:              cfg.Market.Symbol,
		TickCents:           cfg.Market.TickCents,
		StartCashCents:      cfg.Market.StartCashCents,
		ReferencePriceCents: cfg.Market.ReferencePriceCents,
		BookDepth:           cfg.Market.BookDepth,
		AllowNegativeCash:   cfg.Market.AllowNegativeCash,
		EventQueueSize:      cfg.Market.EventQueueSize,
	}, sugar, util.RealClock{})

	sim := core.NewMarketSimulator(core.MarketSimulatorConfig{
		Symbol:              cfg.Market.Symbol,
		ReferencePriceCents: cfg.Market.ReferencePriceCents,
		TickCents:           cfg.Market.TickCents,
		DriftCents:          cfg.Market.DriftCents,
		FloorCents:          cfg.Market.FloorCents,
		Interval:            cfg.Market.MarketDataInterval,
	}, ts, sugar)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sim.Run(ctx)

	srv := api.NewServer(ts, cfg.Market.Symbol, cfg.Server.CORSOrigins, sugar)
	httpSrv := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: srv.Handler(),
	}

	go func() {
		sugar.Infow("server_started", "addr", cfg.Server.ListenAddr, "symbol", cfg.Market.Symbol)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server_failed", "err", err)
		}
	}()

	<-ctx.Done()
	sugar.Infow("shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("shutdown_incomplete", "err", err)
	}
}

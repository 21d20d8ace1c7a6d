package core

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// MarketSimulatorConfig controls the synthetic quote stream.
type MarketSimulatorConfig struct {
	Symbol              string
	ReferencePriceCents int64
	TickCents           int64
	DriftCents          int64 // bound on the per-tick move
	FloorCents          int64 // lowest price the walk may reach
	Interval            time.Duration
}

// MarketSimulator publishes a market_data quote on a fixed interval: a
// random walk around the reference price, snapped to the tick, paired with
// the current top of book. Quotes are reference-only — they never create
// orders or fills.
type MarketSimulator struct {
	cfg   MarketSimulatorConfig
	ts    *TradingSession
	log   *zap.SugaredLogger
	rng   *rand.Rand
	price int64
}

func NewMarketSimulator(cfg MarketSimulatorConfig, ts *TradingSession, logger *zap.SugaredLogger) *MarketSimulator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &MarketSimulator{
		cfg:   cfg,
		ts:    ts,
		log:   logger,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		price: snapToTick(cfg.ReferencePriceCents, cfg.TickCents),
	}
}

// Run drives the quote loop until the context is cancelled.
func (m *MarketSimulator) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.log.Infow("market_simulator_started",
		"symbol", m.cfg.Symbol, "interval", m.cfg.Interval,
		"reference_cents", m.cfg.ReferencePriceCents)

	for {
		select {
		case <-ctx.Done():
			m.log.Infow("market_simulator_stopped")
			return
		case <-ticker.C:
			m.ts.PublishMarketData(m.step())
		}
	}
}

// step advances the walk one tick: a uniform move in ±DriftCents, floored,
// snapped to the tick size.
func (m *MarketSimulator) step() int64 {
	drift := m.rng.Int63n(2*m.cfg.DriftCents+1) - m.cfg.DriftCents
	m.price += drift
	if m.price < m.cfg.FloorCents {
		m.price = m.cfg.FloorCents
	}
	m.price = snapToTick(m.price, m.cfg.TickCents)
	return m.price
}

func snapToTick(price, tick int64) int64 {
	if tick <= 0 {
		return price
	}
	snapped := (price + tick/2) / tick * tick
	if snapped < tick {
		snapped = tick
	}
	return snapped
}

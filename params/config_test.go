package params

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8001", cfg.Server.ListenAddr)
	assert.Equal(t, "BTCUSD", cfg.Market.Symbol)
	assert.Equal(t, int64(1_000), cfg.Market.TickCents)
	assert.Equal(t, int64(1_000_000), cfg.Market.StartCashCents)
	assert.Equal(t, int64(10_000_000), cfg.Market.ReferencePriceCents)
	assert.Equal(t, 2*time.Second, cfg.Market.MarketDataInterval)
	assert.Equal(t, 10, cfg.Market.BookDepth)
	assert.True(t, cfg.Market.AllowNegativeCash)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9999")
	t.Setenv("SYMBOL", "ETHUSD")
	t.Setenv("TICK_CENTS", "500")
	t.Setenv("MARKET_DATA_INTERVAL_MS", "250")
	t.Setenv("ALLOW_NEGATIVE_CASH", "false")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000, http://localhost:3001")

	cfg := LoadFromEnv("")

	assert.Equal(t, ":9999", cfg.Server.ListenAddr)
	assert.Equal(t, "ETHUSD", cfg.Market.Symbol)
	assert.Equal(t, int64(500), cfg.Market.TickCents)
	assert.Equal(t, 250*time.Millisecond, cfg.Market.MarketDataInterval)
	assert.False(t, cfg.Market.AllowNegativeCash)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:3001"}, cfg.Server.CORSOrigins)
}

func TestMalformedEnvFallsBackToDefaults(t *testing.T) {
	t.Setenv("TICK_CENTS", "ten")
	t.Setenv("BOOK_DEPTH", "-3")

	cfg := LoadFromEnv("")
	assert.Equal(t, int64(1_000), cfg.Market.TickCents)
	assert.Equal(t, 10, cfg.Market.BookDepth)
}

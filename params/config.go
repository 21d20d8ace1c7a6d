package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Server struct {
	ListenAddr  string
	CORSOrigins []string
	LogFile     string
}

type Market struct {
	Symbol string

	// TickCents is the minimum price increment. Limit prices that are not a
	// multiple of it are rejected.
	TickCents int64

	StartCashCents      int64
	ReferencePriceCents int64

	// DriftCents bounds the per-tick move of the simulated quote;
	// FloorCents is the lowest price the walk may reach.
	DriftCents int64
	FloorCents int64

	MarketDataInterval time.Duration
	BookDepth          int

	// AllowNegativeCash skips the up-front funds check (cash on buys, asset
	// on sells), letting a fill drive cash below zero (margin-like sandbox).
	AllowNegativeCash bool

	EventQueueSize int
}

type Config struct {
	Server Server
	Market Market
}

func Default() Config {
	return Config{
		Server: Server{
			ListenAddr:  ":8001",
			CORSOrigins: []string{"*"},
		},
		Market: Market{
			Symbol:              "BTCUSD",
			TickCents:           1_000,      // $10
			StartCashCents:      1_000_000,  // $10,000
			ReferencePriceCents: 10_000_000, // $100,000
			DriftCents:          10_000,     // $100 per tick
			FloorCents:          100_000,    // $1,000
			MarketDataInterval:  2 * time.Second,
			BookDepth:           10,
			AllowNegativeCash:   true,
			EventQueueSize:      64,
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitCSV(v)
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Server.LogFile = v
	}

	if v := os.Getenv("SYMBOL"); v != "" {
		cfg.Market.Symbol = v
	}
	if n, ok := intEnv("TICK_CENTS"); ok && n > 0 {
		cfg.Market.TickCents = n
	}
	if n, ok := intEnv("START_CASH_CENTS"); ok && n >= 0 {
		cfg.Market.StartCashCents = n
	}
	if n, ok := intEnv("REFERENCE_PRICE_CENTS"); ok && n > 0 {
		cfg.Market.ReferencePriceCents = n
	}
	if n, ok := intEnv("MARKET_DRIFT_CENTS"); ok && n > 0 {
		cfg.Market.DriftCents = n
	}
	if n, ok := intEnv("MARKET_FLOOR_CENTS"); ok && n > 0 {
		cfg.Market.FloorCents = n
	}
	if n, ok := intEnv("MARKET_DATA_INTERVAL_MS"); ok && n > 0 {
		cfg.Market.MarketDataInterval = time.Duration(n) * time.Millisecond
	}
	if n, ok := intEnv("BOOK_DEPTH"); ok && n > 0 {
		cfg.Market.BookDepth = int(n)
	}
	if v := os.Getenv("ALLOW_NEGATIVE_CASH"); v != "" {
		cfg.Market.AllowNegativeCash = v == "true"
	}
	if n, ok := intEnv("EVENT_QUEUE_SIZE"); ok && n > 0 {
		cfg.Market.EventQueueSize = int(n)
	}

	return cfg
}

func intEnv(key string) (int64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"quantdash/internal/model"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Price store
	SQLitePath string

	// Redis matrix cache
	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	// HTTP
	DashboardAddr string
	MetricsAddr   string

	// Market data provider
	ProviderBaseURL string
	LookbackYears   int

	// Ticker universe (comma-separated "SYMBOL:Name:Sector" triples)
	Tickers string

	// Simulation defaults
	SimRuns int
	SimDays int

	// Store fingerprint poll interval for the WS hub
	FingerprintPoll time.Duration
}

// Default universe: a sector-grouped list of equities, ETFs and crypto.
const defaultTickers = "AAPL:Apple Inc.:Technology," +
	"MSFT:Microsoft:Technology," +
	"GOOGL:Alphabet:Technology," +
	"NVDA:NVIDIA:Technology," +
	"JPM:JPMorgan Chase:Finance," +
	"V:Visa:Finance," +
	"JNJ:Johnson & Johnson:Healthcare," +
	"UNH:UnitedHealth:Healthcare," +
	"AMZN:Amazon:Consumer," +
	"TSLA:Tesla:Consumer," +
	"XOM:Exxon Mobil:Energy," +
	"SPY:S&P 500 ETF:Indices/ETFs," +
	"QQQ:Nasdaq 100 ETF:Indices/ETFs," +
	"GLD:Gold ETF:Indices/ETFs," +
	"BTC-USD:Bitcoin:Crypto"

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		SQLitePath: getEnv("SQLITE_PATH", "data/finance.db"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		CacheTTL:      getDuration("CACHE_TTL", 30*time.Minute),

		DashboardAddr: getEnv("DASHBOARD_ADDR", ":8080"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),

		ProviderBaseURL: getEnv("PROVIDER_BASE_URL", "https://query1.finance.yahoo.com"),
		LookbackYears:   getInt("LOOKBACK_YEARS", 5),

		Tickers: getEnv("TICKERS", defaultTickers),

		SimRuns: getInt("SIM_RUNS", 200),
		SimDays: getInt("SIM_DAYS", 252),

		FingerprintPoll: getDuration("FINGERPRINT_POLL", 30*time.Second),
	}
}

// ParseTickers parses the Tickers string into the ticker universe.
// Each entry is "SYMBOL:Name:Sector"; name and sector may be omitted.
func (c *Config) ParseTickers() []model.Ticker {
	parts := strings.Split(c.Tickers, ",")
	out := make([]model.Ticker, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		fields := strings.SplitN(p, ":", 3)
		t := model.Ticker{Symbol: strings.ToUpper(fields[0])}
		if t.Symbol == "" {
			log.Printf("[config] skipping invalid ticker entry: %q", p)
			continue
		}
		t.Name = t.Symbol
		if len(fields) > 1 && fields[1] != "" {
			t.Name = fields[1]
		}
		if len(fields) > 2 && fields[2] != "" {
			t.Sector = fields[2]
		}
		out = append(out, t)
	}
	return out
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}

package params

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type API struct {
	Addr        string
	CORSOrigins []string
}

type Market struct {
	Instrument string
	StartPrice float64
	MaxStep    float64 // random walk bound per tick, both directions
	Spread     float64 // bid = last - Spread, ask = last + Spread
	Seed       int64   // 0 means seed from wall time
}

type Engine struct {
	TickInterval time.Duration
	// DeliveryTimeout bounds one Publish; subscribers that have not accepted
	// the tick by then are dropped.
	DeliveryTimeout     time.Duration
	SubscriberBuffer    int
	FaultAlertThreshold int
	StartingCash        float64
	JournalBacklog      int
}

type Node struct {
	LogFile    string
	LogLevel   string
	JournalDir string // empty disables the pebble journal
}

type Config struct {
	API    API
	Market Market
	Engine Engine
	Node   Node
}

func Default() Config {
	return Config{
		API: API{
			Addr:        ":8000",
			CORSOrigins: []string{"*"},
		},
		Market: Market{
			Instrument: "NIFTY",
			StartPrice: 22000.0,
			MaxStep:    10.0,
			Spread:     0.5,
		},
		Engine: Engine{
			TickInterval:        1 * time.Second,
			DeliveryTimeout:     250 * time.Millisecond,
			SubscriberBuffer:    16,
			FaultAlertThreshold: 5,
			StartingCash:        100000.0,
			JournalBacklog:      1024,
		},
		Node: Node{
			LogFile:  "data/venue.log",
			LogLevel: "info",
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg.API.Addr = getEnv("API_ADDR", cfg.API.Addr)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.API.CORSOrigins = splitList(origins)
	}

	cfg.Market.Instrument = getEnv("INSTRUMENT", cfg.Market.Instrument)
	cfg.Market.StartPrice = getFloat("START_PRICE", cfg.Market.StartPrice)
	cfg.Market.MaxStep = getFloat("MAX_STEP", cfg.Market.MaxStep)
	cfg.Market.Spread = getFloat("SPREAD", cfg.Market.Spread)
	if seed := os.Getenv("TICK_SEED"); seed != "" {
		if v, err := strconv.ParseInt(seed, 10, 64); err == nil {
			cfg.Market.Seed = v
		}
	}

	cfg.Engine.TickInterval = getMillis("TICK_INTERVAL_MS", cfg.Engine.TickInterval)
	cfg.Engine.DeliveryTimeout = getMillis("DELIVERY_TIMEOUT_MS", cfg.Engine.DeliveryTimeout)
	cfg.Engine.SubscriberBuffer = getInt("SUBSCRIBER_BUFFER", cfg.Engine.SubscriberBuffer)
	cfg.Engine.FaultAlertThreshold = getInt("FAULT_ALERT_THRESHOLD", cfg.Engine.FaultAlertThreshold)
	cfg.Engine.StartingCash = getFloat("STARTING_CASH", cfg.Engine.StartingCash)
	cfg.Engine.JournalBacklog = getInt("JOURNAL_BACKLOG", cfg.Engine.JournalBacklog)

	cfg.Node.LogFile = getEnv("LOG_FILE", cfg.Node.LogFile)
	cfg.Node.LogLevel = getEnv("LOG_LEVEL", cfg.Node.LogLevel)
	cfg.Node.JournalDir = getEnv("JOURNAL_DIR", cfg.Node.JournalDir)

	return cfg
}

// Validate reports the first setting that would leave the venue unable to run.
func (c Config) Validate() error {
	switch {
	case c.Market.Instrument == "":
		return fmt.Errorf("instrument must be set")
	case c.Market.StartPrice <= 0:
		return fmt.Errorf("start price must be positive, got %v", c.Market.StartPrice)
	case c.Market.MaxStep < 0:
		return fmt.Errorf("max step must not be negative, got %v", c.Market.MaxStep)
	case c.Market.Spread < 0:
		return fmt.Errorf("spread must not be negative, got %v", c.Market.Spread)
	case c.Market.Spread >= c.Market.StartPrice:
		// the bid would start at or below zero and every tick would fault
		return fmt.Errorf("spread %v must be below start price %v", c.Market.Spread, c.Market.StartPrice)
	case c.Engine.TickInterval <= 0:
		return fmt.Errorf("tick interval must be positive, got %v", c.Engine.TickInterval)
	case c.Engine.DeliveryTimeout <= 0:
		return fmt.Errorf("delivery timeout must be positive, got %v", c.Engine.DeliveryTimeout)
	case c.Engine.DeliveryTimeout >= c.Engine.TickInterval:
		return fmt.Errorf("delivery timeout %v must be shorter than tick interval %v",
			c.Engine.DeliveryTimeout, c.Engine.TickInterval)
	case c.Engine.SubscriberBuffer <= 0:
		return fmt.Errorf("subscriber buffer must be positive, got %d", c.Engine.SubscriberBuffer)
	case c.Engine.JournalBacklog <= 0:
		return fmt.Errorf("journal backlog must be positive, got %d", c.Engine.JournalBacklog)
	}
	return nil
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getMillis(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

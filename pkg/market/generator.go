package market

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/gutsysingh/PTApp/pkg/util"
)

// GeneratorConfig controls the synthetic random walk
type GeneratorConfig struct {
	Instrument string
	StartPrice float64
	MaxStep    float64 // each tick moves by uniform [-MaxStep, +MaxStep]
	Spread     float64 // bid/ask offset from last price
	Seed       int64   // 0 seeds from wall time
}

// DefaultGeneratorConfig mirrors the demo market: NIFTY around 22000
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Instrument: "NIFTY",
		StartPrice: 22000.0,
		MaxStep:    10.0,
		Spread:     0.5,
	}
}

// Generator produces a random-walk price path for one instrument.
// It is not safe for concurrent use; the engine cycle is its only caller.
type Generator struct {
	cfg   GeneratorConfig
	price float64
	rng   *rand.Rand
	clock util.Clock
}

// NewGenerator fails only when the start price is unusable, since there is
// then no valid state to fall back on.
func NewGenerator(cfg GeneratorConfig, clock util.Clock) (*Generator, error) {
	if cfg.Instrument == "" {
		return nil, fmt.Errorf("generator: empty instrument")
	}
	if !validPrice(cfg.StartPrice) {
		return nil, fmt.Errorf("generator: start price %v: %w", cfg.StartPrice, ErrTickFault)
	}
	if cfg.MaxStep < 0 || math.IsNaN(cfg.MaxStep) || math.IsInf(cfg.MaxStep, 0) {
		return nil, fmt.Errorf("generator: bad max step %v", cfg.MaxStep)
	}
	if clock == nil {
		clock = util.RealClock{}
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		cfg:   cfg,
		price: cfg.StartPrice,
		rng:   rand.New(rand.NewSource(seed)),
		clock: clock,
	}, nil
}

// Next advances the walk by one step. When the candidate price (or its bid)
// would be non-finite or non-positive the step is discarded, the previous
// price is kept and ErrTickFault is returned.
func (g *Generator) Next() (Tick, error) {
	step := (g.rng.Float64()*2 - 1) * g.cfg.MaxStep
	candidate := g.price + step

	tick := Tick{
		Instrument: g.cfg.Instrument,
		LastPrice:  round2(candidate),
		Bid:        round2(candidate - g.cfg.Spread),
		Ask:        round2(candidate + g.cfg.Spread),
		Timestamp:  g.clock.Now(),
	}
	if err := tick.Validate(); err != nil {
		return Tick{}, fmt.Errorf("%w: candidate %v from %v: %v", ErrTickFault, candidate, g.price, err)
	}

	g.price = candidate
	return tick, nil
}

// Price returns the last accepted (unrounded) price.
func (g *Generator) Price() float64 { return g.price }

func (g *Generator) Instrument() string { return g.cfg.Instrument }

func validPrice(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0) && p > 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

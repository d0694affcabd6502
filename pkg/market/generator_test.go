package market

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gutsysingh/PTApp/pkg/util"
)

var epoch = time.Date(2026, 1, 2, 9, 15, 0, 0, time.UTC)

func seeded(t *testing.T, mutate func(*GeneratorConfig)) *Generator {
	t.Helper()
	cfg := DefaultGeneratorConfig()
	cfg.Seed = 7
	if mutate != nil {
		mutate(&cfg)
	}
	g, err := NewGenerator(cfg, util.NewManualClock(epoch))
	require.NoError(t, err)
	return g
}

func TestGenerator_DeterministicForSeed(t *testing.T) {
	a := seeded(t, nil)
	b := seeded(t, nil)

	for i := 0; i < 100; i++ {
		ta, errA := a.Next()
		tb, errB := b.Next()
		require.NoError(t, errA)
		require.NoError(t, errB)
		require.Equal(t, ta, tb, "tick %d diverged", i)
	}
}

func TestGenerator_StepBoundsAndSpread(t *testing.T) {
	g := seeded(t, nil)
	prev := g.Price()

	for i := 0; i < 500; i++ {
		tick, err := g.Next()
		require.NoError(t, err)

		assert.LessOrEqual(t, math.Abs(g.Price()-prev), 10.0)
		assert.InDelta(t, tick.LastPrice-0.5, tick.Bid, 0.011)
		assert.InDelta(t, tick.LastPrice+0.5, tick.Ask, 0.011)
		assert.Equal(t, "NIFTY", tick.Instrument)
		assert.Equal(t, epoch, tick.Timestamp)
		prev = g.Price()
	}
}

func TestGenerator_FaultRetainsPreviousPrice(t *testing.T) {
	// Starting just above zero with a large step makes roughly half the
	// candidates negative.
	g := seeded(t, func(c *GeneratorConfig) {
		c.StartPrice = 1
		c.MaxStep = 50
		c.Spread = 0
	})

	faults := 0
	for i := 0; i < 200; i++ {
		before := g.Price()
		tick, err := g.Next()
		if err != nil {
			require.True(t, errors.Is(err, ErrTickFault))
			assert.Equal(t, before, g.Price())
			assert.Equal(t, Tick{}, tick)
			faults++
			continue
		}
		require.NoError(t, tick.Validate())
		assert.Greater(t, g.Price(), 0.0)
	}
	assert.Greater(t, faults, 0, "expected at least one rejected step")
}

func TestNewGenerator_RejectsInvalidStart(t *testing.T) {
	for _, start := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		cfg := DefaultGeneratorConfig()
		cfg.StartPrice = start
		_, err := NewGenerator(cfg, nil)
		assert.ErrorIs(t, err, ErrTickFault, "start=%v", start)
	}
}

func TestTick_Validate(t *testing.T) {
	ok := Tick{Instrument: "NIFTY", LastPrice: 100, Bid: 99.5, Ask: 100.5}

	tests := []struct {
		name    string
		mutate  func(*Tick)
		wantErr bool
	}{
		{"valid", func(*Tick) {}, false},
		{"empty instrument", func(t *Tick) { t.Instrument = "" }, true},
		{"nan last", func(t *Tick) { t.LastPrice = math.NaN() }, true},
		{"inf ask", func(t *Tick) { t.Ask = math.Inf(1) }, true},
		{"negative bid", func(t *Tick) { t.Bid = -1 }, true},
		{"zero last", func(t *Tick) { t.LastPrice = 0 }, true},
		{"crossed", func(t *Tick) { t.Bid, t.Ask = 101, 100 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tick := ok
			tt.mutate(&tick)
			err := tick.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTick)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTick_WireFormat(t *testing.T) {
	tick := Tick{Instrument: "NIFTY", LastPrice: 22005.3, Bid: 22004.8, Ask: 22005.8, Timestamp: epoch}

	b, err := json.Marshal(tick)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(b, &fields))
	assert.Equal(t, map[string]any{
		"instrument": "NIFTY",
		"last_price": 22005.3,
		"bid":        22004.8,
		"ask":        22005.8,
		"ts":         float64(epoch.Unix()),
	}, fields)

	var back Tick
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, back.Timestamp.Equal(epoch))
}

package market

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrInvalidTick is returned by Tick.Validate for malformed quotes.
	ErrInvalidTick = errors.New("invalid tick")
	// ErrTickFault signals the generator produced an unusable price and kept the previous one.
	ErrTickFault = errors.New("tick generation fault")
)

// Tick is one synthetic quote for an instrument.
type Tick struct {
	Instrument string
	LastPrice  float64
	Bid        float64
	Ask        float64
	Timestamp  time.Time
}

// Validate rejects ticks that must never reach the ledger.
func (t Tick) Validate() error {
	if t.Instrument == "" {
		return fmt.Errorf("%w: empty instrument", ErrInvalidTick)
	}
	for _, p := range []struct {
		name string
		v    float64
	}{{"last_price", t.LastPrice}, {"bid", t.Bid}, {"ask", t.Ask}} {
		if math.IsNaN(p.v) || math.IsInf(p.v, 0) || p.v <= 0 {
			return fmt.Errorf("%w: %s=%v", ErrInvalidTick, p.name, p.v)
		}
	}
	if t.Bid > t.Ask {
		return fmt.Errorf("%w: crossed quote bid=%v ask=%v", ErrInvalidTick, t.Bid, t.Ask)
	}
	return nil
}

// tickWire is the subscriber-facing representation; ts is unix seconds.
type tickWire struct {
	Instrument string  `json:"instrument"`
	LastPrice  float64 `json:"last_price"`
	Bid        float64 `json:"bid"`
	Ask        float64 `json:"ask"`
	Ts         int64   `json:"ts"`
}

func (t Tick) MarshalJSON() ([]byte, error) {
	return json.Marshal(tickWire{
		Instrument: t.Instrument,
		LastPrice:  t.LastPrice,
		Bid:        t.Bid,
		Ask:        t.Ask,
		Ts:         t.Timestamp.Unix(),
	})
}

func (t *Tick) UnmarshalJSON(b []byte) error {
	var w tickWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*t = Tick{
		Instrument: w.Instrument,
		LastPrice:  w.LastPrice,
		Bid:        w.Bid,
		Ask:        w.Ask,
		Timestamp:  time.Unix(w.Ts, 0),
	}
	return nil
}

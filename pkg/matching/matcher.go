package matching

import (
	"fmt"

	"github.com/gutsysingh/PTApp/pkg/ledger"
	"github.com/gutsysingh/PTApp/pkg/market"
)

// Matcher fills resting orders against incoming ticks.
// It holds no state; the ledger serialises passes.
type Matcher struct{}

func NewMatcher() *Matcher { return &Matcher{} }

// Apply runs one matching pass for tick. An invalid tick is rejected before
// the ledger is touched. Orders are visited in ascending id and each
// eligible order is filled in full:
//   - MARKET at the last price
//   - LIMIT BUY at the ask when limit >= ask
//   - LIMIT SELL at the bid when limit <= bid
//
// Settled orders are never candidates, so re-applying a tick is a no-op for them.
func (m *Matcher) Apply(tick market.Tick, l *ledger.Ledger) ([]ledger.Trade, error) {
	if err := tick.Validate(); err != nil {
		return nil, fmt.Errorf("apply tick: %w", err)
	}

	var trades []ledger.Trade
	l.Match(func(tx *ledger.Tx) {
		for _, o := range tx.Candidates(tick.Instrument) {
			price, ok := FillPrice(o, tick)
			if !ok {
				continue
			}
			trades = append(trades, tx.RecordFill(o.ID, o.Remaining(), price))
		}
	})
	return trades, nil
}

// FillPrice returns the execution price for o on tick, or false when the
// order does not cross.
func FillPrice(o ledger.Order, tick market.Tick) (float64, bool) {
	switch o.Type {
	case ledger.Market:
		return tick.LastPrice, true
	case ledger.Limit:
		if o.LimitPrice == nil {
			return 0, false
		}
		limit := *o.LimitPrice
		if o.Side == ledger.Buy && limit >= tick.Ask {
			return tick.Ask, true
		}
		if o.Side == ledger.Sell && limit <= tick.Bid {
			return tick.Bid, true
		}
	}
	return 0, false
}

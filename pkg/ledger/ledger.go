package ledger

import (
	"fmt"
	"sync"

	"github.com/gutsysingh/PTApp/pkg/util"
)

// Ledger is the append-only store of orders and trades and the only place
// they are mutated. Append, Cancel and Match serialise on one write lock;
// reads take the read lock and return copies.
type Ledger struct {
	mu     sync.RWMutex
	clock  util.Clock
	orders []Order
	index  map[uint64]int // order id -> position in orders
	trades []Trade

	lastOrderID uint64
	lastTradeID uint64
}

func New(clock util.Clock) *Ledger {
	if clock == nil {
		clock = util.RealClock{}
	}
	return &Ledger{
		clock: clock,
		index: make(map[uint64]int),
	}
}

// Append validates req and stores it as a new OPEN order.
func (l *Ledger) Append(req Request) (Order, error) {
	if err := req.Validate(); err != nil {
		return Order{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.lastOrderID + 1
	if _, dup := l.index[id]; dup {
		panic(fmt.Sprintf("ledger: duplicate order id %d", id))
	}
	l.lastOrderID = id

	o := Order{
		ID:         id,
		Instrument: req.Instrument,
		Side:       req.Side,
		Qty:        req.Qty,
		Type:       req.Type,
		Status:     Open,
		CreatedAt:  l.clock.Now(),
	}
	if req.Type == Limit {
		p := req.LimitPrice
		o.LimitPrice = &p
	}

	l.index[id] = len(l.orders)
	l.orders = append(l.orders, o)
	return o.clone(), nil
}

// Cancel moves an OPEN or PARTIALLY_FILLED order to CANCELLED.
func (l *Ledger) Cancel(id uint64) (Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.index[id]
	if !ok {
		return Order{}, fmt.Errorf("cancel %d: %w", id, ErrOrderNotFound)
	}
	o := &l.orders[i]
	if o.Status.Closed() {
		return o.clone(), fmt.Errorf("cancel %d (%s): %w", id, o.Status, ErrOrderClosed)
	}
	o.Status = Cancelled
	return o.clone(), nil
}

// Match runs fn with exclusive access to the ledger. Submissions and cancels
// that arrive meanwhile complete entirely before or after fn.
func (l *Ledger) Match(fn func(tx *Tx)) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx := &Tx{l: l}
	defer func() { tx.closed = true }()
	fn(tx)
}

// Tx is the mutation handle handed to a Match callback. It must not be
// retained after the callback returns.
type Tx struct {
	l      *Ledger
	closed bool
}

// Candidates returns the fillable orders of instrument in ascending id.
func (tx *Tx) Candidates(instrument string) []Order {
	tx.check()
	var out []Order
	for _, o := range tx.l.orders {
		if o.Instrument != instrument || o.Status.Closed() || o.Remaining() <= 0 {
			continue
		}
		out = append(out, o.clone())
	}
	return out
}

// RecordFill applies a fill to an order and appends the matching trade.
// Any fill that would break the ledger invariants panics.
func (tx *Tx) RecordFill(orderID uint64, qty int64, price float64) Trade {
	tx.check()
	l := tx.l

	i, ok := l.index[orderID]
	if !ok {
		panic(fmt.Sprintf("ledger: fill for unknown order %d", orderID))
	}
	o := &l.orders[i]
	switch {
	case o.Status.Closed():
		panic(fmt.Sprintf("ledger: fill for %s order %d", o.Status, orderID))
	case qty <= 0 || qty > o.Remaining():
		panic(fmt.Sprintf("ledger: fill qty %d for order %d with %d remaining", qty, orderID, o.Remaining()))
	}

	filled := o.FilledQty + qty
	o.AvgFillPrice = (o.AvgFillPrice*float64(o.FilledQty) + price*float64(qty)) / float64(filled)
	o.FilledQty = filled
	if filled == o.Qty {
		o.Status = Filled
	} else {
		o.Status = PartiallyFilled
	}

	l.lastTradeID++
	t := Trade{
		ID:         l.lastTradeID,
		OrderID:    orderID,
		Instrument: o.Instrument,
		Qty:        qty,
		Price:      price,
		Side:       o.Side,
		Timestamp:  l.clock.Now(),
	}
	l.trades = append(l.trades, t)
	return t
}

func (tx *Tx) check() {
	if tx.closed {
		panic("ledger: Tx used after Match returned")
	}
}

// Snapshot returns a consistent copy of all orders and trades in creation order.
func (l *Ledger) Snapshot() ([]Order, []Trade) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.copyOrders(), l.copyTrades()
}

func (l *Ledger) Orders() []Order {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.copyOrders()
}

func (l *Ledger) Trades() []Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.copyTrades()
}

func (l *Ledger) Order(id uint64) (Order, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.index[id]
	if !ok {
		return Order{}, false
	}
	return l.orders[i].clone(), true
}

// Len returns the number of orders and trades recorded so far.
func (l *Ledger) Len() (orders, trades int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.orders), len(l.trades)
}

func (l *Ledger) copyOrders() []Order {
	out := make([]Order, len(l.orders))
	for i, o := range l.orders {
		out[i] = o.clone()
	}
	return out
}

func (l *Ledger) copyTrades() []Trade {
	out := make([]Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

package ledger

import (
	"strings"
	"time"
)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

func ParseSide(s string) (Side, bool) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case Buy:
		return Buy, true
	case Sell:
		return Sell, true
	}
	return "", false
}

type OrderType string

const (
	Market OrderType = "MARKET"
	Limit  OrderType = "LIMIT"
)

func ParseOrderType(s string) (OrderType, bool) {
	switch OrderType(strings.ToUpper(strings.TrimSpace(s))) {
	case Market:
		return Market, true
	case Limit:
		return Limit, true
	}
	return "", false
}

type Status string

const (
	Open            Status = "OPEN"
	PartiallyFilled Status = "PARTIALLY_FILLED"
	Filled          Status = "FILLED"
	Cancelled       Status = "CANCELLED"
)

// Closed reports whether no further fills or cancels may apply.
func (s Status) Closed() bool { return s == Filled || s == Cancelled }

type Order struct {
	ID           uint64    `json:"id"`
	Instrument   string    `json:"instrument"`
	Side         Side      `json:"side"`
	Qty          int64     `json:"qty"`
	FilledQty    int64     `json:"filled_qty"`
	Type         OrderType `json:"order_type"`
	LimitPrice   *float64  `json:"price"`
	Status       Status    `json:"status"`
	AvgFillPrice float64   `json:"avg_fill_price,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (o Order) Remaining() int64 { return o.Qty - o.FilledQty }

func (o Order) clone() Order {
	if o.LimitPrice != nil {
		p := *o.LimitPrice
		o.LimitPrice = &p
	}
	return o
}

// Trade is immutable once recorded.
type Trade struct {
	ID         uint64    `json:"trade_id"`
	OrderID    uint64    `json:"order_id"`
	Instrument string    `json:"instrument"`
	Qty        int64     `json:"qty"`
	Price      float64   `json:"price"`
	Side       Side      `json:"side"`
	Timestamp  time.Time `json:"ts"`
}

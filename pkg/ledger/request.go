package ledger

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrOrderClosed   = errors.New("order is closed")
)

// ValidationError is returned for submissions that never reach the ledger.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return "missing " + e.Field
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func missing(field string) error { return &ValidationError{Field: field} }

func invalid(field, reason string) error { return &ValidationError{Field: field, Reason: reason} }

// RawRequest is the loosely-typed submission as it arrives from a client.
// Nil pointers are absent fields.
type RawRequest struct {
	Instrument *string  `json:"instrument"`
	Side       *string  `json:"side"`
	Qty        *float64 `json:"qty"`
	OrderType  *string  `json:"order_type"`
	Price      *float64 `json:"price"`
}

// Request is a validated submission. Type is the tag: LimitPrice is set
// for LIMIT requests and zero for MARKET ones.
type Request struct {
	Instrument string
	Side       Side
	Qty        int64
	Type       OrderType
	LimitPrice float64
}

func NewMarketRequest(instrument string, side Side, qty int64) Request {
	return Request{Instrument: instrument, Side: side, Qty: qty, Type: Market}
}

func NewLimitRequest(instrument string, side Side, qty int64, price float64) Request {
	return Request{Instrument: instrument, Side: side, Qty: qty, Type: Limit, LimitPrice: price}
}

// ParseRequest checks required fields in the order instrument, side, qty,
// order_type and reports the first one missing.
func ParseRequest(raw RawRequest) (Request, error) {
	switch {
	case raw.Instrument == nil:
		return Request{}, missing("instrument")
	case raw.Side == nil:
		return Request{}, missing("side")
	case raw.Qty == nil:
		return Request{}, missing("qty")
	case raw.OrderType == nil:
		return Request{}, missing("order_type")
	}

	side, ok := ParseSide(*raw.Side)
	if !ok {
		return Request{}, invalid("side", fmt.Sprintf("%q is not BUY or SELL", *raw.Side))
	}
	typ, ok := ParseOrderType(*raw.OrderType)
	if !ok {
		return Request{}, invalid("order_type", fmt.Sprintf("%q is not MARKET or LIMIT", *raw.OrderType))
	}
	q := *raw.Qty
	if math.IsNaN(q) || math.IsInf(q, 0) || q != math.Trunc(q) || q >= math.MaxInt64 {
		return Request{}, invalid("qty", "must be a whole number")
	}

	req := Request{
		Instrument: *raw.Instrument,
		Side:       side,
		Qty:        int64(q),
		Type:       typ,
	}
	if typ == Limit {
		if raw.Price == nil {
			return Request{}, missing("price")
		}
		req.LimitPrice = *raw.Price
	} else if raw.Price != nil {
		return Request{}, invalid("price", "not allowed for MARKET orders")
	}

	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Validate enforces the invariants Append relies on.
func (r Request) Validate() error {
	if r.Instrument == "" {
		return missing("instrument")
	}
	if r.Side != Buy && r.Side != Sell {
		return invalid("side", fmt.Sprintf("%q is not BUY or SELL", r.Side))
	}
	if r.Qty <= 0 {
		return invalid("qty", "must be > 0")
	}
	switch r.Type {
	case Market:
		if r.LimitPrice != 0 {
			return invalid("price", "not allowed for MARKET orders")
		}
	case Limit:
		p := r.LimitPrice
		if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
			return invalid("price", "must be a positive number")
		}
	default:
		return invalid("order_type", fmt.Sprintf("%q is not MARKET or LIMIT", r.Type))
	}
	return nil
}

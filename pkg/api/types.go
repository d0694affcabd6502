package api

import (
	"github.com/gutsysingh/PTApp/pkg/ledger"
)

// API response types for REST endpoints and WebSocket messages

// ==============================
// REST Response Types
// ==============================

// OrderInfo represents an order (open or historical). Price is the limit
// price and is null for MARKET orders; created_at is unix seconds.
type OrderInfo struct {
	ID           uint64   `json:"id"`
	Instrument   string   `json:"instrument"`
	Side         string   `json:"side"`
	Qty          int64    `json:"qty"`
	FilledQty    int64    `json:"filled_qty"`
	Price        *float64 `json:"price"`
	OrderType    string   `json:"order_type"`
	Status       string   `json:"status"`
	AvgFillPrice *float64 `json:"avg_fill_price,omitempty"`
	CreatedAt    int64    `json:"created_at"`
}

// TradeInfo represents an executed trade
type TradeInfo struct {
	TradeID    uint64  `json:"trade_id"`
	OrderID    uint64  `json:"order_id"`
	Instrument string  `json:"instrument"`
	Qty        int64   `json:"qty"`
	Price      float64 `json:"price"`
	Side       string  `json:"side"`
	Ts         int64   `json:"ts"`
}

// AccountInfo is the paper account snapshot
type AccountInfo struct {
	Cash          float64 `json:"cash"`
	RealizedPnL   float64 `json:"realized_pnl"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

// SubmitOrderResponse is the response from order submission
type SubmitOrderResponse struct {
	OrderID uint64 `json:"order_id"`
	Status  string `json:"status"`
}

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Error string `json:"error"`
}

// ==============================
// REST Request Types
// ==============================

// SubmitOrderRequest is the payload for POST /api/orders. Fields are
// optional at the JSON level so missing ones can be reported by name.
type SubmitOrderRequest = ledger.RawRequest

func orderInfo(o ledger.Order) OrderInfo {
	info := OrderInfo{
		ID:         o.ID,
		Instrument: o.Instrument,
		Side:       string(o.Side),
		Qty:        o.Qty,
		FilledQty:  o.FilledQty,
		Price:      o.LimitPrice,
		OrderType:  string(o.Type),
		Status:     string(o.Status),
		CreatedAt:  o.CreatedAt.Unix(),
	}
	if o.FilledQty > 0 {
		avg := o.AvgFillPrice
		info.AvgFillPrice = &avg
	}
	return info
}

func tradeInfo(t ledger.Trade) TradeInfo {
	return TradeInfo{
		TradeID:    t.ID,
		OrderID:    t.OrderID,
		Instrument: t.Instrument,
		Qty:        t.Qty,
		Price:      t.Price,
		Side:       string(t.Side),
		Ts:         t.Timestamp.Unix(),
	}
}

package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(s string) *string   { return &s }
func num(f float64) *float64 { return &f }

func TestParseRequest(t *testing.T) {
	full := func() RawRequest {
		return RawRequest{
			Instrument: str("NIFTY"),
			Side:       str("BUY"),
			Qty:        num(10),
			OrderType:  str("MARKET"),
		}
	}

	tests := []struct {
		name    string
		mutate  func(r *RawRequest)
		want    Request
		wantMsg string
	}{
		{
			name: "market order",
			want: NewMarketRequest("NIFTY", Buy, 10),
		},
		{
			name:   "lower case enums",
			mutate: func(r *RawRequest) { r.Side = str("sell"); r.OrderType = str("market") },
			want:   NewMarketRequest("NIFTY", Sell, 10),
		},
		{
			name:   "limit order",
			mutate: func(r *RawRequest) { r.OrderType = str("LIMIT"); r.Price = num(22000.5) },
			want:   NewLimitRequest("NIFTY", Buy, 10, 22000.5),
		},
		{
			name:    "missing instrument reported first",
			mutate:  func(r *RawRequest) { r.Instrument = nil; r.Qty = nil },
			wantMsg: "missing instrument",
		},
		{
			name:    "missing side",
			mutate:  func(r *RawRequest) { r.Side = nil },
			wantMsg: "missing side",
		},
		{
			name:    "missing qty",
			mutate:  func(r *RawRequest) { r.Qty = nil },
			wantMsg: "missing qty",
		},
		{
			name:    "missing order_type",
			mutate:  func(r *RawRequest) { r.OrderType = nil },
			wantMsg: "missing order_type",
		},
		{
			name:    "limit without price",
			mutate:  func(r *RawRequest) { r.OrderType = str("LIMIT") },
			wantMsg: "missing price",
		},
		{
			name:    "market with price",
			mutate:  func(r *RawRequest) { r.Price = num(1) },
			wantMsg: "invalid price: not allowed for MARKET orders",
		},
		{
			name:    "zero qty",
			mutate:  func(r *RawRequest) { r.Qty = num(0) },
			wantMsg: "invalid qty: must be > 0",
		},
		{
			name:    "fractional qty",
			mutate:  func(r *RawRequest) { r.Qty = num(1.5) },
			wantMsg: "invalid qty: must be a whole number",
		},
		{
			name:    "bad side",
			mutate:  func(r *RawRequest) { r.Side = str("HOLD") },
			wantMsg: `invalid side: "HOLD" is not BUY or SELL`,
		},
		{
			name:    "bad type",
			mutate:  func(r *RawRequest) { r.OrderType = str("STOP") },
			wantMsg: `invalid order_type: "STOP" is not MARKET or LIMIT`,
		},
		{
			name:    "empty instrument",
			mutate:  func(r *RawRequest) { r.Instrument = str("") },
			wantMsg: "missing instrument",
		},
		{
			name:    "negative limit",
			mutate:  func(r *RawRequest) { r.OrderType = str("LIMIT"); r.Price = num(-3) },
			wantMsg: "invalid price: must be a positive number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := full()
			if tt.mutate != nil {
				tt.mutate(&raw)
			}
			got, err := ParseRequest(raw)
			if tt.wantMsg != "" {
				require.Error(t, err)
				var verr *ValidationError
				assert.True(t, errors.As(err, &verr))
				assert.Equal(t, tt.wantMsg, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

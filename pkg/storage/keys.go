package storage

import (
	"fmt"
)

// Journal key schema for Pebble storage:
//
//   ord:<orderID>    → Order (latest state, overwritten on every change)
//   trade:<tradeID>  → Trade (written once)
//
// IDs are zero-padded (20 digits) so lexicographic order is creation order.

const (
	prefixOrder = "ord:"
	prefixTrade = "trade:"
)

// orderKey returns the key for an order
// Format: "ord:{orderID}"
func orderKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixOrder, id))
}

// tradeKey returns the key for a trade
// Format: "trade:{tradeID}"
func tradeKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixTrade, id))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}

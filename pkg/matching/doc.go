// Package matching applies market ticks to the resting orders in a ledger.
package matching

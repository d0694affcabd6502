// Package storage journals ledger activity to Pebble.
package storage

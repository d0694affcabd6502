// Package market holds the tick type shared by matching and broadcast, and
// the seeded random-walk generator that feeds the engine cycle.
package market

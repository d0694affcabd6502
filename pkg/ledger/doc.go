// Package ledger owns the venue's orders and trades.
//
// The ledger is append-only: orders and trades are never removed, and an
// order only changes through Cancel or a fill recorded inside Match. Order
// and trade ids are assigned under the ledger lock, so they are unique,
// strictly increasing and gap-free however many goroutines submit at once.
package ledger

// Package broadcast fans ticks out to subscribers.
//
// Every subscriber gets a bounded buffer. A publish waits at most the
// configured delivery timeout for all subscribers together; any subscriber
// still full at the deadline is removed, and delivery to the others goes on.
// One stalled connection therefore cannot hold up the tick cycle.
package broadcast

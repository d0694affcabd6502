package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gutsysingh/PTApp/pkg/market"
)

// HubConfig bounds per-subscriber buffering and per-publish delivery time
type HubConfig struct {
	Buffer          int           // queued messages per subscriber
	DeliveryTimeout time.Duration // shared deadline for one Publish
}

func DefaultHubConfig() HubConfig {
	return HubConfig{
		Buffer:          16,
		DeliveryTimeout: 250 * time.Millisecond,
	}
}

// Subscription is one registered receiver of ticks.
type Subscription struct {
	id   string
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (s *Subscription) ID() string { return s.id }

// Messages yields encoded ticks. The channel is never closed; watch Done.
func (s *Subscription) Messages() <-chan []byte { return s.send }

// Done is closed once the subscription has been removed from the hub.
func (s *Subscription) Done() <-chan struct{} { return s.done }

func (s *Subscription) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// PublishResult counts the outcome of one fan-out.
type PublishResult struct {
	Delivered int
	Dropped   int
}

// Hub maintains active subscriptions and fans ticks out to them.
// The message channel of a subscription is never closed, so a Publish that
// races an Unsubscribe cannot panic; it sees Done and skips the receiver.
type Hub struct {
	cfg HubConfig
	log *zap.SugaredLogger

	mu   sync.RWMutex
	subs map[string]*Subscription
}

func NewHub(cfg HubConfig, log *zap.SugaredLogger) *Hub {
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultHubConfig().Buffer
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = DefaultHubConfig().DeliveryTimeout
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Hub{
		cfg:  cfg,
		log:  log,
		subs: make(map[string]*Subscription),
	}
}

// Subscribe registers a new receiver. Safe to call concurrently with Publish.
func (h *Hub) Subscribe() *Subscription {
	s := &Subscription{
		id:   uuid.NewString(),
		send: make(chan []byte, h.cfg.Buffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.subs[s.id] = s
	total := len(h.subs)
	h.mu.Unlock()

	h.log.Infow("subscriber_connected", "id", s.id, "total", total)
	return s
}

// Unsubscribe removes s; it reports false when s was already gone.
func (h *Hub) Unsubscribe(s *Subscription) bool {
	if s == nil {
		return false
	}

	h.mu.Lock()
	_, ok := h.subs[s.id]
	delete(h.subs, s.id)
	total := len(h.subs)
	h.mu.Unlock()

	s.once.Do(func() { close(s.done) })
	if ok {
		h.log.Infow("subscriber_disconnected", "id", s.id, "total", total)
	}
	return ok
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish encodes tick once and delivers it to every current subscriber.
// A subscriber whose buffer is full gets its own wait of up to
// DeliveryTimeout; these waits run concurrently, so one stalled receiver
// never shortens another's. Receivers that have not accepted the message
// by then are unsubscribed. Publish never waits past the deadline (or ctx,
// whichever ends first).
func (h *Hub) Publish(ctx context.Context, tick market.Tick) (PublishResult, error) {
	msg, err := json.Marshal(tick)
	if err != nil {
		return PublishResult{}, fmt.Errorf("encode tick: %w", err)
	}
	return h.Broadcast(ctx, msg), nil
}

// Broadcast delivers a pre-encoded message with the same policy as Publish.
func (h *Hub) Broadcast(ctx context.Context, msg []byte) PublishResult {
	h.mu.RLock()
	targets := make([]*Subscription, 0, len(h.subs))
	for _, s := range h.subs {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	var res PublishResult
	var pending []*Subscription
	for _, s := range targets {
		if s.closed() {
			continue
		}
		select {
		case s.send <- msg:
			res.Delivered++
		default:
			pending = append(pending, s)
		}
	}
	if len(pending) == 0 {
		return res
	}

	dctx, cancel := context.WithTimeout(ctx, h.cfg.DeliveryTimeout)
	defer cancel()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		slow []*Subscription
	)
	for _, s := range pending {
		wg.Add(1)
		go func(s *Subscription) {
			defer wg.Done()
			select {
			case s.send <- msg:
				mu.Lock()
				res.Delivered++
				mu.Unlock()
			case <-s.done:
			case <-dctx.Done():
				mu.Lock()
				slow = append(slow, s)
				mu.Unlock()
			}
		}(s)
	}
	wg.Wait()

	for _, s := range slow {
		if h.Unsubscribe(s) {
			res.Dropped++
			h.log.Warnw("subscriber_dropped", "id", s.id, "reason", "delivery_timeout")
		}
	}
	return res
}

// Close removes every subscription.
func (h *Hub) Close() {
	h.mu.RLock()
	all := make([]*Subscription, 0, len(h.subs))
	for _, s := range h.subs {
		all = append(all, s)
	}
	h.mu.RUnlock()

	for _, s := range all {
		h.Unsubscribe(s)
	}
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gutsysingh/PTApp/pkg/broadcast"
	"github.com/gutsysingh/PTApp/pkg/ledger"
	"github.com/gutsysingh/PTApp/pkg/market"
	"github.com/gutsysingh/PTApp/pkg/matching"
	"github.com/gutsysingh/PTApp/pkg/metrics"
)

var ErrAlreadyRunning = errors.New("engine already running")

type Config struct {
	TickInterval time.Duration
	// FaultAlertThreshold is the run of consecutive generator faults after
	// which the engine starts logging at error level.
	FaultAlertThreshold int
	StartingCash        float64
	// JournalBacklog is how many pending journal writes may queue before
	// new ones are dropped.
	JournalBacklog int
}

func DefaultConfig() Config {
	return Config{
		TickInterval:        1 * time.Second,
		FaultAlertThreshold: 5,
		StartingCash:        100000.0,
		JournalBacklog:      1024,
	}
}

// Journal receives a copy of every ledger change. Writes happen on the
// engine's journal goroutine, never on the submit or cycle path. Failures
// are logged and never stop the engine.
type Journal interface {
	RecordOrder(o ledger.Order) error
	RecordCycle(trades []ledger.Trade, orders []ledger.Order) error
}

// TickSource produces the tick for each cycle; *market.Generator is the
// production implementation.
type TickSource interface {
	Next() (market.Tick, error)
	Price() float64
	Instrument() string
}

// Engine is the composition root: it owns the generator, ledger and hub and
// runs the tick cycle (generate → match → publish).
type Engine struct {
	cfg     Config
	gen     TickSource
	ledger  *ledger.Ledger
	matcher *matching.Matcher
	hub     *broadcast.Hub

	Logger  *zap.SugaredLogger
	Journal Journal          // optional
	Metrics *metrics.Metrics // optional

	// journalQ feeds the single journal writer. Entries carry ids only;
	// the writer re-reads each order so it always stores the latest state.
	journalQ chan journalEntry

	stepMu sync.Mutex // one cycle at a time
	faults int        // consecutive generator faults, guarded by stepMu

	lastMu sync.RWMutex
	last   market.Tick
	ticked bool

	runMu       sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}
	journalDone chan struct{}
}

// journalEntry is either one order change or one cycle's trades.
type journalEntry struct {
	orderID uint64
	trades  []ledger.Trade
}

func NewEngine(cfg Config, gen TickSource, l *ledger.Ledger, hub *broadcast.Hub) *Engine {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultConfig().TickInterval
	}
	if cfg.FaultAlertThreshold <= 0 {
		cfg.FaultAlertThreshold = DefaultConfig().FaultAlertThreshold
	}
	if cfg.JournalBacklog <= 0 {
		cfg.JournalBacklog = DefaultConfig().JournalBacklog
	}
	return &Engine{
		cfg:      cfg,
		gen:      gen,
		ledger:   l,
		matcher:  matching.NewMatcher(),
		hub:      hub,
		Logger:   zap.NewNop().Sugar(),
		journalQ: make(chan journalEntry, cfg.JournalBacklog),
	}
}

// CycleReport describes one completed cycle.
type CycleReport struct {
	Tick      market.Tick
	Trades    []ledger.Trade
	Delivered int
	Dropped   int
}

// Step runs a single cycle. A generator fault skips matching and
// broadcast for this cycle and is returned wrapped in market.ErrTickFault.
func (e *Engine) Step(ctx context.Context) (CycleReport, error) {
	e.stepMu.Lock()
	defer e.stepMu.Unlock()

	tick, err := e.gen.Next()
	if err != nil {
		e.recordFault(err)
		return CycleReport{}, err
	}
	e.faults = 0

	trades, err := e.matcher.Apply(tick, e.ledger)
	if err != nil {
		e.Logger.Errorw("tick_rejected", "instrument", tick.Instrument, "err", err)
		return CycleReport{}, err
	}
	e.lastMu.Lock()
	e.last, e.ticked = tick, true
	e.lastMu.Unlock()

	if len(trades) > 0 {
		e.enqueueJournal(journalEntry{trades: trades})
		for _, t := range trades {
			e.Logger.Infow("order_filled",
				"order_id", t.OrderID, "trade_id", t.ID,
				"instrument", t.Instrument, "side", t.Side,
				"qty", t.Qty, "price", t.Price)
		}
	}

	start := time.Now()
	res, err := e.hub.Publish(ctx, tick)
	if err != nil {
		return CycleReport{Tick: tick, Trades: trades}, err
	}

	if m := e.Metrics; m != nil {
		m.Cycles.Inc()
		m.Trades.Add(float64(len(trades)))
		m.LastPrice.Set(tick.LastPrice)
		m.PublishDuration.Observe(time.Since(start).Seconds())
		m.SubscriberDrops.Add(float64(res.Dropped))
		m.Subscribers.Set(float64(e.hub.Len()))
	}

	return CycleReport{
		Tick:      tick,
		Trades:    trades,
		Delivered: res.Delivered,
		Dropped:   res.Dropped,
	}, nil
}

func (e *Engine) recordFault(err error) {
	e.faults++
	if e.Metrics != nil {
		e.Metrics.TickFaults.Inc()
	}
	if e.faults >= e.cfg.FaultAlertThreshold {
		e.Logger.Errorw("tick_faults_repeated",
			"consecutive", e.faults, "retained_price", e.gen.Price(), "err", err)
		return
	}
	e.Logger.Warnw("tick_fault_skipped_cycle",
		"consecutive", e.faults, "retained_price", e.gen.Price(), "err", err)
}

// enqueueJournal never blocks: when the backlog is full the entry is
// dropped and counted.
func (e *Engine) enqueueJournal(ent journalEntry) {
	if e.Journal == nil {
		return
	}
	select {
	case e.journalQ <- ent:
	default:
		if e.Metrics != nil {
			e.Metrics.JournalDrops.Inc()
		}
		e.Logger.Warnw("journal_backlog_full",
			"order_id", ent.orderID, "trades", len(ent.trades), "backlog", cap(e.journalQ))
	}
}

// writeJournal drains journalQ until ctx ends, then flushes what is left.
func (e *Engine) writeJournal(ctx context.Context, j Journal, done chan struct{}) {
	defer close(done)
	for {
		select {
		case ent := <-e.journalQ:
			e.persist(j, ent)
		case <-ctx.Done():
			for {
				select {
				case ent := <-e.journalQ:
					e.persist(j, ent)
				default:
					return
				}
			}
		}
	}
}

func (e *Engine) persist(j Journal, ent journalEntry) {
	if ent.trades == nil {
		o, ok := e.ledger.Order(ent.orderID)
		if !ok {
			return
		}
		if err := j.RecordOrder(o); err != nil {
			e.Logger.Warnw("journal_order_failed", "order_id", ent.orderID, "err", err)
		}
		return
	}

	orders := make([]ledger.Order, 0, len(ent.trades))
	for _, t := range ent.trades {
		if o, ok := e.ledger.Order(t.OrderID); ok {
			orders = append(orders, o)
		}
	}
	if err := j.RecordCycle(ent.trades, orders); err != nil {
		e.Logger.Warnw("journal_cycle_failed", "trades", len(ent.trades), "err", err)
	}
}

// Start launches the cycle loop and, when a Journal is set, the journal
// writer. The loop runs on a fixed period and does not catch up on missed
// ticks. Journal entries queued while stopped are written once started.
func (e *Engine) Start(ctx context.Context) error {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.done != nil {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	go e.loop(runCtx, e.done)
	if e.Journal != nil {
		e.journalDone = make(chan struct{})
		go e.writeJournal(runCtx, e.Journal, e.journalDone)
	}

	e.Logger.Infow("engine_started",
		"instrument", e.gen.Instrument(), "tick_interval_ms", e.cfg.TickInterval.Milliseconds())
	return nil
}

// Stop halts the loop, waits for an in-flight cycle to finish and lets the
// journal writer flush its backlog.
func (e *Engine) Stop() {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.done == nil {
		return
	}
	e.cancel()
	<-e.done
	if e.journalDone != nil {
		<-e.journalDone
	}
	e.cancel, e.done, e.journalDone = nil, nil, nil
	e.Logger.Info("engine_stopped")
}

// Run starts the engine and blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	e.Stop()
	return nil
}

func (e *Engine) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := e.Step(ctx); err != nil && ctx.Err() == nil {
				e.Logger.Debugw("cycle_skipped", "err", err)
			}
		}
	}
}

// SubmitResult is returned for an accepted order.
type SubmitResult struct {
	OrderID uint64
	Status  ledger.Status
}

// Submit validates a client submission and appends it to the ledger.
func (e *Engine) Submit(raw ledger.RawRequest) (SubmitResult, error) {
	req, err := ledger.ParseRequest(raw)
	if err != nil {
		e.rejected(err)
		return SubmitResult{}, err
	}
	return e.SubmitRequest(req)
}

// SubmitRequest appends an already-typed request.
func (e *Engine) SubmitRequest(req ledger.Request) (SubmitResult, error) {
	o, err := e.ledger.Append(req)
	if err != nil {
		e.rejected(err)
		return SubmitResult{}, err
	}

	e.enqueueJournal(journalEntry{orderID: o.ID})
	if e.Metrics != nil {
		e.Metrics.OrdersSubmitted.WithLabelValues(string(o.Type)).Inc()
	}
	e.Logger.Infow("order_submitted",
		"order_id", o.ID, "instrument", o.Instrument, "side", o.Side,
		"qty", o.Qty, "order_type", o.Type)

	return SubmitResult{OrderID: o.ID, Status: o.Status}, nil
}

func (e *Engine) rejected(err error) {
	if e.Metrics != nil {
		e.Metrics.OrdersRejected.Inc()
	}
	e.Logger.Infow("order_rejected", "err", err)
}

// Cancel moves an open order to CANCELLED.
func (e *Engine) Cancel(id uint64) (ledger.Order, error) {
	o, err := e.ledger.Cancel(id)
	if err != nil {
		return o, fmt.Errorf("engine: %w", err)
	}
	e.enqueueJournal(journalEntry{orderID: o.ID})
	if e.Metrics != nil {
		e.Metrics.OrdersCancelled.Inc()
	}
	e.Logger.Infow("order_cancelled", "order_id", o.ID, "filled_qty", o.FilledQty)
	return o, nil
}

func (e *Engine) ListOrders() []ledger.Order { return e.ledger.Orders() }

func (e *Engine) ListTrades() []ledger.Trade { return e.ledger.Trades() }

func (e *Engine) Order(id uint64) (ledger.Order, bool) { return e.ledger.Order(id) }

// LastTick returns the most recent tick that was applied.
func (e *Engine) LastTick() (market.Tick, bool) {
	e.lastMu.RLock()
	defer e.lastMu.RUnlock()
	return e.last, e.ticked
}

func (e *Engine) Subscribe() *broadcast.Subscription {
	s := e.hub.Subscribe()
	e.syncSubscribers()
	return s
}

func (e *Engine) Unsubscribe(s *broadcast.Subscription) {
	e.hub.Unsubscribe(s)
	e.syncSubscribers()
}

func (e *Engine) syncSubscribers() {
	if e.Metrics != nil {
		e.Metrics.Subscribers.Set(float64(e.hub.Len()))
	}
}

// Account is the single paper account. PnL is not derived yet; the trade
// list is the intended input once it is.
type Account struct {
	Cash          float64
	RealizedPnL   float64
	UnrealizedPnL float64
}

func (e *Engine) AccountSnapshot() Account {
	return Account{Cash: e.cfg.StartingCash}
}

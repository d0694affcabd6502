package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gutsysingh/PTApp/pkg/market"
)

func testTick(last float64) market.Tick {
	return market.Tick{Instrument: "NIFTY", LastPrice: last, Bid: last - 0.5, Ask: last + 0.5, Timestamp: time.Unix(1767345300, 0)}
}

func newTestHub(buffer int, timeout time.Duration) *Hub {
	return NewHub(HubConfig{Buffer: buffer, DeliveryTimeout: timeout}, nil)
}

func TestHub_PublishDeliversToAll(t *testing.T) {
	h := newTestHub(4, 50*time.Millisecond)
	a := h.Subscribe()
	b := h.Subscribe()
	require.Equal(t, 2, h.Len())

	res, err := h.Publish(context.Background(), testTick(22005.3))
	require.NoError(t, err)
	assert.Equal(t, PublishResult{Delivered: 2}, res)

	for _, s := range []*Subscription{a, b} {
		var got market.Tick
		require.NoError(t, json.Unmarshal(<-s.Messages(), &got))
		assert.Equal(t, 22005.3, got.LastPrice)
		assert.Equal(t, "NIFTY", got.Instrument)
	}
}

func TestHub_UnsubscribeIsIdempotent(t *testing.T) {
	h := newTestHub(1, 10*time.Millisecond)
	s := h.Subscribe()

	assert.True(t, h.Unsubscribe(s))
	assert.False(t, h.Unsubscribe(s))
	assert.False(t, h.Unsubscribe(nil))
	assert.Equal(t, 0, h.Len())

	select {
	case <-s.Done():
	default:
		t.Fatal("Done not closed after Unsubscribe")
	}
}

func TestHub_SlowSubscriberDroppedOthersServed(t *testing.T) {
	const timeout = 20 * time.Millisecond
	h := newTestHub(1, timeout)
	stalled := h.Subscribe()
	healthy := h.Subscribe()

	received := make(chan struct{}, 16)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-healthy.Messages():
				received <- struct{}{}
			case <-stop:
				return
			}
		}
	}()

	// first publish fills the stalled buffer, second one times out on it
	for i := 0; i < 3; i++ {
		start := time.Now()
		_, err := h.Publish(context.Background(), testTick(100+float64(i)))
		require.NoError(t, err)
		assert.Less(t, time.Since(start), timeout+100*time.Millisecond, "publish must not block past its deadline")
	}

	for i := 0; i < 3; i++ {
		select {
		case <-received:
		case <-time.After(time.Second):
			t.Fatalf("healthy subscriber missed tick %d", i)
		}
	}

	select {
	case <-stalled.Done():
	default:
		t.Fatal("stalled subscriber was not removed")
	}
	assert.Equal(t, 1, h.Len())
}

func TestHub_StalledSubscriberDoesNotShortenOthersWait(t *testing.T) {
	const timeout = 80 * time.Millisecond
	h := newTestHub(1, timeout)

	// several stalled receivers so at least one precedes the late one
	var stalled []*Subscription
	for i := 0; i < 4; i++ {
		s := h.Subscribe()
		s.send <- []byte("fill")
		stalled = append(stalled, s)
	}
	late := h.Subscribe()
	late.send <- []byte("fill")

	// late frees its slot well inside the deadline
	go func() {
		time.Sleep(timeout / 4)
		<-late.Messages()
	}()

	start := time.Now()
	res, err := h.Publish(context.Background(), testTick(101))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), timeout+100*time.Millisecond)
	assert.Equal(t, PublishResult{Delivered: 1, Dropped: 4}, res)

	select {
	case <-late.Done():
		t.Fatal("receiver that caught up within its wait was dropped")
	default:
	}
	for _, s := range stalled {
		select {
		case <-s.Done():
		default:
			t.Fatal("stalled subscriber still registered")
		}
	}
	assert.Equal(t, 1, h.Len())
}

func TestHub_PublishReportsDrops(t *testing.T) {
	h := newTestHub(1, 5*time.Millisecond)
	h.Subscribe()

	res, _ := h.Publish(context.Background(), testTick(1))
	assert.Equal(t, PublishResult{Delivered: 1}, res)

	res, _ = h.Publish(context.Background(), testTick(2))
	assert.Equal(t, PublishResult{Dropped: 1}, res)
	assert.Equal(t, 0, h.Len())
}

func TestHub_CancelledContextBoundsPublish(t *testing.T) {
	h := newTestHub(1, time.Hour)
	s := h.Subscribe()
	s.send <- []byte("fill")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := h.Publish(ctx, testTick(1))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Dropped)
}

func TestHub_ConcurrentSubscribePublishUnsubscribe(t *testing.T) {
	h := newTestHub(2, 5*time.Millisecond)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s := h.Subscribe()
				if i%2 == 0 {
					h.Unsubscribe(s)
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_, _ = h.Publish(context.Background(), testTick(100))
		}
	}()
	wg.Wait()

	h.Close()
	assert.Equal(t, 0, h.Len())
}

func TestHub_SubscriptionIDsUnique(t *testing.T) {
	h := newTestHub(1, time.Millisecond)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := h.Subscribe().ID()
		require.False(t, seen[id])
		seen[id] = true
	}
}

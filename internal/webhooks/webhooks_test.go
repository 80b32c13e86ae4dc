package webhooks

import (
	"crypto/hmac"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostwallet/hunter/internal/events"
)

func TestRegistryValidation(t *testing.T) {
	r := NewRegistry()

	assert.Error(t, r.Register(&Subscription{Events: []string{events.BlacklistHit}}), "URL required")
	assert.Error(t, r.Register(&Subscription{URL: "http://x"}), "events required")
	assert.Error(t, r.Register(&Subscription{URL: "http://x", Events: []string{"no.such.event"}}))

	sub := &Subscription{URL: "http://x", Events: []string{events.InvestigationCompleted}}
	require.NoError(t, r.Register(sub))
	assert.NotEmpty(t, sub.ID)
	assert.True(t, sub.Active)
	assert.Len(t, r.Subscribers(events.InvestigationCompleted), 1)
	assert.Empty(t, r.Subscribers(events.BlacklistHit))
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()
	sub := &Subscription{URL: "http://x", Events: []string{events.BlacklistHit}}
	require.NoError(t, r.Register(sub))

	require.NoError(t, r.Unregister(sub.ID))
	assert.Empty(t, r.Subscribers(events.BlacklistHit))
	assert.Error(t, r.Unregister(sub.ID), "second unregister fails")
}

func TestRegistryDisablesAfterRepeatedFailures(t *testing.T) {
	r := NewRegistry()
	sub := &Subscription{URL: "http://x", Events: []string{events.BlacklistHit}}
	require.NoError(t, r.Register(sub))

	for i := 0; i < maxFailures-1; i++ {
		r.MarkFailed(sub.ID)
	}
	assert.Len(t, r.Subscribers(events.BlacklistHit), 1, "still active below the threshold")

	r.MarkFailed(sub.ID)
	assert.Empty(t, r.Subscribers(events.BlacklistHit), "disabled at the threshold")
}

func TestMarkDeliveredResetsFailures(t *testing.T) {
	r := NewRegistry()
	sub := &Subscription{URL: "http://x", Events: []string{events.BlacklistHit}}
	require.NoError(t, r.Register(sub))

	r.MarkFailed(sub.ID)
	r.MarkDelivered(sub.ID)
	assert.Equal(t, 0, sub.FailCount)
}

func TestDispatcherDeliversSignedEvent(t *testing.T) {
	type received struct {
		headers http.Header
		body    []byte
	}
	got := make(chan received, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- received{headers: r.Header.Clone(), body: body}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	registry := NewRegistry()
	require.NoError(t, registry.Register(&Subscription{
		URL:    srv.URL,
		Events: []string{events.InvestigationCompleted},
		Secret: "topsecret",
	}))

	d := NewDispatcher(registry, 1)
	defer d.Shutdown()

	bus := events.NewEventBus()
	d.Attach(bus)
	bus.Publish(events.InvestigationCompleted, map[string]interface{}{"wallet_address": "w1"})

	select {
	case rec := <-got:
		assert.Equal(t, events.InvestigationCompleted, rec.headers.Get("X-Hunter-Event-Type"))
		assert.Equal(t, "1", rec.headers.Get("X-Hunter-Delivery-Attempt"))
		assert.NotEmpty(t, rec.headers.Get("X-Hunter-Event-ID"))

		want := "sha256=" + SignPayload(rec.body, "topsecret")
		assert.True(t, hmac.Equal([]byte(want), []byte(rec.headers.Get("X-Hunter-Signature"))))

		var ev events.Event
		require.NoError(t, json.Unmarshal(rec.body, &ev))
		assert.Equal(t, events.InvestigationCompleted, ev.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("webhook was never delivered")
	}
}

func TestDispatcherRetriesThenGivesUp(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	registry := NewRegistry()
	sub := &Subscription{URL: srv.URL, Events: []string{events.BlacklistHit}}
	require.NoError(t, registry.Register(sub))

	d := NewDispatcher(registry, 1)
	d.retryBase = time.Millisecond

	d.Emit(&events.Event{ID: "evt-1", Type: events.BlacklistHit, Time: time.Now()})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return attempts == maxAttempts
	}, 2*time.Second, 10*time.Millisecond)

	// Drain the worker before inspecting shared state.
	d.Shutdown()

	mu.Lock()
	assert.Equal(t, maxAttempts, attempts, "no attempts past the budget")
	mu.Unlock()
	assert.Equal(t, maxAttempts, sub.FailCount)
}

func TestDispatcherSkipsEventsWithoutSubscribers(t *testing.T) {
	d := NewDispatcher(NewRegistry(), 1)
	defer d.Shutdown()

	// Nothing registered: Emit must not panic or queue anything.
	d.Emit(&events.Event{ID: "evt-2", Type: events.InvestigationDegraded})
	assert.Empty(t, d.queue)
}

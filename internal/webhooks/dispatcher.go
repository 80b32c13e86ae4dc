package webhooks

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/ghostwallet/hunter/internal/events"
)

const maxAttempts = 3

// Dispatcher delivers events to registered subscribers through a background
// worker pool. Deliveries are best-effort with bounded retry.
type Dispatcher struct {
	registry   *Registry
	httpClient *http.Client
	queue      chan *deliveryJob
	logger     *log.Logger
	wg         sync.WaitGroup
	retryBase  time.Duration
}

type deliveryJob struct {
	subscriber *Subscription
	event      *events.Event
	body       []byte
	attempt    int
}

// NewDispatcher creates a dispatcher with a background worker pool.
func NewDispatcher(registry *Registry, workers int) *Dispatcher {
	if workers <= 0 {
		workers = 4
	}
	d := &Dispatcher{
		registry:   registry,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		queue:      make(chan *deliveryJob, 1000),
		logger:     log.New(log.Writer(), "[DISPATCH] ", log.LstdFlags),
		retryBase:  time.Second,
	}

	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Attach consumes a bus subscription until the channel closes. Run it once
// per dispatcher; Unsubscribe on the bus ends it.
func (d *Dispatcher) Attach(bus *events.EventBus) {
	ch := bus.Subscribe()
	go func() {
		for event := range ch {
			d.Emit(event)
		}
	}()
}

// Emit queues one event for every active subscriber of its type.
func (d *Dispatcher) Emit(event *events.Event) {
	subscribers := d.registry.Subscribers(event.Type)
	if len(subscribers) == 0 {
		return
	}

	body, err := event.JSON()
	if err != nil {
		d.logger.Printf("❌ Failed to marshal event %s: %v", event.ID, err)
		return
	}

	for _, sub := range subscribers {
		select {
		case d.queue <- &deliveryJob{subscriber: sub, event: event, body: body, attempt: 1}:
		default:
			d.logger.Printf("⚠️ Delivery queue full, dropping event %s for %s", event.ID, sub.ID)
		}
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for job := range d.queue {
		d.deliver(job)
	}
}

func (d *Dispatcher) deliver(job *deliveryJob) {
	req, err := http.NewRequest(http.MethodPost, job.subscriber.URL, bytes.NewReader(job.body))
	if err != nil {
		d.logger.Printf("❌ Failed to create webhook request: %v", err)
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Hunter-Event-Type", job.event.Type)
	req.Header.Set("X-Hunter-Event-ID", job.event.ID)
	req.Header.Set("X-Hunter-Delivery-Attempt", fmt.Sprintf("%d", job.attempt))
	if job.subscriber.Secret != "" {
		req.Header.Set("X-Hunter-Signature", "sha256="+SignPayload(job.body, job.subscriber.Secret))
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.logger.Printf("❌ Webhook delivery failed: %s → %v", job.subscriber.URL, err)
		d.fail(job)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		d.logger.Printf("⚠️ Webhook returned %d: %s → %s", resp.StatusCode, job.subscriber.URL, job.event.Type)
		d.fail(job)
		return
	}

	d.registry.MarkDelivered(job.subscriber.ID)
	d.logger.Printf("✅ Webhook delivered: %s → %s (%s)", job.event.Type, job.subscriber.URL, job.event.ID)
}

// fail records the failure and requeues with quadratic backoff until
// maxAttempts is spent.
func (d *Dispatcher) fail(job *deliveryJob) {
	d.registry.MarkFailed(job.subscriber.ID)
	if job.attempt >= maxAttempts {
		return
	}

	time.Sleep(time.Duration(job.attempt*job.attempt) * d.retryBase)
	job.attempt++
	select {
	case d.queue <- job:
	default:
	}
}

// Shutdown drains the worker pool.
func (d *Dispatcher) Shutdown() {
	close(d.queue)
	d.wg.Wait()
}

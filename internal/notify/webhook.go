package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/frahmantamala/ops-portal/internal/core/events"
	"github.com/frahmantamala/ops-portal/internal/metrics"
)

type WebhookConfig struct {
	// URLs maps an event type to the webhook that receives it. Event types
	// without a URL are skipped.
	URLs          map[string]string
	PortalBaseURL string
	Timeout       time.Duration
	MaxWorkers    int
	QueueSize     int
}

type delivery struct {
	eventType string
	url       string
	body      []byte
	id        string
}

type worker struct {
	id         int
	workerPool chan chan delivery
	jobs       chan delivery
	logger     *slog.Logger
}

func (w *worker) start(ctx context.Context, wg *sync.WaitGroup, process func(context.Context, delivery)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case w.workerPool <- w.jobs:
			case <-ctx.Done():
				w.logger.Debug("webhook worker shutting down", "worker_id", w.id)
				return
			}

			select {
			case job := <-w.jobs:
				process(ctx, job)
			case <-ctx.Done():
				w.logger.Debug("webhook worker shutting down", "worker_id", w.id)
				return
			}
		}
	}()
}

// pendingSet counts accepted deliveries that have not been attempted yet.
// Unlike a WaitGroup it may be waited on while new work is added.
type pendingSet struct {
	mu   sync.Mutex
	n    int
	idle chan struct{} // closed while n == 0
}

func newPendingSet() *pendingSet {
	idle := make(chan struct{})
	close(idle)
	return &pendingSet{idle: idle}
}

func (p *pendingSet) add() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.n == 0 {
		p.idle = make(chan struct{})
	}
	p.n++
}

func (p *pendingSet) done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n--
	if p.n == 0 {
		close(p.idle)
	}
}

func (p *pendingSet) drained() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idle
}

// WebhookSink posts notifications as JSON through a fixed pool of workers.
// When the queue is full the notification is dropped.
type WebhookSink struct {
	cfg     WebhookConfig
	client  *http.Client
	logger  *slog.Logger
	metrics *metrics.Metrics

	queue      chan delivery
	workerPool chan chan delivery
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	pending    *pendingSet

	// sendMu orders enqueues against Shutdown so nothing lands in the
	// queue after it has been drained.
	sendMu sync.RWMutex
	closed bool
}

func NewWebhookSink(cfg WebhookConfig, client *http.Client, logger *slog.Logger, m *metrics.Metrics) *WebhookSink {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &WebhookSink{
		cfg:        cfg,
		client:     client,
		logger:     logger,
		metrics:    m,
		queue:      make(chan delivery, cfg.QueueSize),
		workerPool: make(chan chan delivery, cfg.MaxWorkers),
		ctx:        ctx,
		cancel:     cancel,
		pending:    newPendingSet(),
	}

	for i := 0; i < cfg.MaxWorkers; i++ {
		w := &worker{id: i, workerPool: s.workerPool, jobs: make(chan delivery), logger: logger}
		w.start(ctx, &s.wg, s.deliver)
	}
	s.wg.Add(1)
	go s.dispatch()

	logger.Info("webhook worker pool started",
		"max_workers", cfg.MaxWorkers,
		"queue_size", cfg.QueueSize,
		"event_types", len(cfg.URLs))
	return s
}

func (s *WebhookSink) dispatch() {
	defer s.wg.Done()
	for {
		select {
		case job := <-s.queue:
			select {
			case jobs := <-s.workerPool:
				select {
				case jobs <- job:
				case <-s.ctx.Done():
					s.drop(job)
					return
				}
			case <-s.ctx.Done():
				s.drop(job)
				return
			}
		case <-s.ctx.Done():
			return
		}
	}
}

// Notify never blocks and never reports failure to the caller.
func (s *WebhookSink) Notify(ctx context.Context, eventType string, n events.Notification) {
	target := s.cfg.URLs[eventType]
	if target == "" {
		s.logger.DebugContext(ctx, "no webhook for event type", "event_type", eventType)
		s.metrics.Notification(eventType, "skipped")
		return
	}
	n.DeepLink = ResolveLink(s.cfg.PortalBaseURL, n.DeepLink)
	body, err := json.Marshal(struct {
		EventType string `json:"eventType"`
		events.Notification
	}{eventType, n})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode notification", "event_type", eventType, "error", err)
		s.metrics.Notification(eventType, "failed")
		return
	}

	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.closed {
		s.metrics.Notification(eventType, "dropped")
		return
	}

	s.pending.add()
	select {
	case s.queue <- delivery{eventType: eventType, url: target, body: body, id: n.ID}:
		s.logger.DebugContext(ctx, "notification queued",
			"event_type", eventType,
			"id", n.ID,
			"queue_length", len(s.queue))
	default:
		s.logger.WarnContext(ctx, "notification queue full, dropping",
			"event_type", eventType,
			"id", n.ID,
			"queue_capacity", cap(s.queue))
		s.metrics.Notification(eventType, "dropped")
		s.pending.done()
	}
}

// drop settles a job that will never be attempted.
func (s *WebhookSink) drop(job delivery) {
	s.logger.Debug("notification dropped on shutdown", "event_type", job.eventType, "id", job.id)
	s.metrics.Notification(job.eventType, "dropped")
	s.pending.done()
}

func (s *WebhookSink) deliver(ctx context.Context, job delivery) {
	defer s.pending.done()
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	if err := s.post(ctx, job); err != nil {
		s.logger.Warn("webhook delivery failed",
			"event_type", job.eventType,
			"id", job.id,
			"error", err)
		s.metrics.Notification(job.eventType, "failed")
		return
	}
	s.logger.Debug("webhook delivered", "event_type", job.eventType, "id", job.id)
	s.metrics.Notification(job.eventType, "sent")
}

func (s *WebhookSink) post(ctx context.Context, job delivery) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, job.url, bytes.NewReader(job.body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Flush waits until every queued notification has been attempted or ctx ends.
func (s *WebhookSink) Flush(ctx context.Context) error {
	select {
	case <-s.pending.drained():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting notifications, cancels in-flight deliveries,
// waits for the workers to exit and drops whatever is still queued.
func (s *WebhookSink) Shutdown() {
	s.sendMu.Lock()
	if s.closed {
		s.sendMu.Unlock()
		return
	}
	s.closed = true
	s.sendMu.Unlock()

	s.logger.Info("shutting down webhook sink", "pending", len(s.queue))
	s.cancel()
	s.wg.Wait()

	for {
		select {
		case job := <-s.queue:
			s.drop(job)
		default:
			return
		}
	}
}

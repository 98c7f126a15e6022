// Package notify delivers portal events to outbound channels. Delivery is
// best-effort: nothing here reports back to the code that raised the event.
package notify

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/core/events"
	"github.com/frahmantamala/ops-portal/internal/metrics"
)

// Sink accepts a notification and returns without waiting for delivery.
type Sink interface {
	Notify(ctx context.Context, eventType string, n events.Notification)
}

// LogSink writes notifications to the log. It stands in when no webhook is
// configured so events stay visible during development.
type LogSink struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewLogSink(logger *slog.Logger, m *metrics.Metrics) *LogSink {
	return &LogSink{logger: logger, metrics: m}
}

func (s *LogSink) Notify(ctx context.Context, eventType string, n events.Notification) {
	s.logger.InfoContext(ctx, "notification",
		"event_type", eventType,
		"event", n.Event,
		"id", n.ID,
		"status", n.Status,
		"requester", n.Requester.Email,
		"deep_link", n.DeepLink)
	s.metrics.Notification(eventType, "logged")
}

// Subscribe forwards every portal event type from the bus to sink.
func Subscribe(bus *events.EventBus, sink Sink, logger *slog.Logger) {
	for _, eventType := range events.EventTypes() {
		bus.Subscribe(eventType, func(ctx context.Context, e events.Event) error {
			n, ok := e.Payload().(events.Notification)
			if !ok {
				logger.Warn("ignoring event without notification payload",
					"event_type", e.EventType(),
					"event_id", e.EventID())
				return nil
			}
			sink.Notify(ctx, e.EventType(), n)
			return nil
		})
	}
	logger.Info("notification sink subscribed", "event_types", events.EventTypes())
}

// ResolveLink joins a portal path onto base. Absolute links and an empty
// base leave the link unchanged.
func ResolveLink(base, link string) string {
	if link == "" || base == "" {
		return link
	}
	if u, err := url.Parse(link); err == nil && u.IsAbs() {
		return link
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(link, "/")
}

// New builds the sink described by cfg and a function that flushes and
// releases it.
// A disabled config, or one without any webhook URL, yields a LogSink.
func New(cfg internal.NotificationConfig, logger *slog.Logger, m *metrics.Metrics) (Sink, func()) {
	urls := map[string]string{
		events.EventTypeToolRequest:  cfg.Webhooks.ToolRequest,
		events.EventTypeLeaveRequest: cfg.Webhooks.LeaveRequest,
		events.EventTypeStatusUpdate: cfg.Webhooks.StatusUpdate,
		events.EventTypeFinanceEvent: cfg.Webhooks.FinanceEvent,
	}
	configured := 0
	for k, v := range urls {
		if v == "" {
			delete(urls, k)
			continue
		}
		configured++
	}

	if !cfg.Enabled || configured == 0 {
		return NewLogSink(logger, m), func() {}
	}

	sink := NewWebhookSink(WebhookConfig{
		URLs:          urls,
		PortalBaseURL: cfg.PortalBaseURL,
		Timeout:       cfg.Timeout,
		MaxWorkers:    cfg.MaxWorkers,
		QueueSize:     cfg.QueueSize,
	}, &http.Client{Timeout: cfg.Timeout}, logger, m)

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), sink.cfg.Timeout)
		defer cancel()
		if err := sink.Flush(ctx); err != nil {
			logger.Warn("pending notifications abandoned", "error", err)
		}
		sink.Shutdown()
	}
	return sink, release
}

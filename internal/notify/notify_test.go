package notify_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/core/events"
	"github.com/frahmantamala/ops-portal/internal/metrics"
	"github.com/frahmantamala/ops-portal/internal/notify"
	"github.com/frahmantamala/ops-portal/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNotify(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Notify Suite")
}

type received struct {
	path string
	body map[string]any
}

var _ = Describe("WebhookSink", func() {
	var (
		server *httptest.Server
		got    chan received
		m      *metrics.Metrics
		sink   *notify.WebhookSink
	)

	BeforeEach(func() {
		got = make(chan received, 16)
		m = metrics.New()
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, _ := io.ReadAll(r.Body)
			var body map[string]any
			_ = json.Unmarshal(raw, &body)
			got <- received{path: r.URL.Path, body: body}
			if r.URL.Path == "/broken" {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		}))
	})

	AfterEach(func() {
		if sink != nil {
			sink.Shutdown()
		}
		server.Close()
	})

	newSink := func(urls map[string]string) *notify.WebhookSink {
		return notify.NewWebhookSink(notify.WebhookConfig{
			URLs:          urls,
			PortalBaseURL: "https://portal.creoo.co/",
			Timeout:       time.Second,
			MaxWorkers:    2,
			QueueSize:     8,
		}, server.Client(), logger.Discard(), m)
	}

	It("should post the payload to the webhook for its event type", func() {
		sink = newSink(map[string]string{events.EventTypeStatusUpdate: server.URL + "/status"})

		sink.Notify(context.Background(), events.EventTypeStatusUpdate, events.Notification{
			RequestType: "tool_request",
			Event:       "approve",
			ID:          "req-1",
			Requester:   events.Party{UserID: "u1", Name: "Dimas", Email: "employee@creoo.co"},
			Status:      "approved",
			Approver:    &events.Party{UserID: "u0", Name: "Ayu", Email: "admin@creoo.co"},
			DeepLink:    "/requests",
		})

		var r received
		Eventually(got).Should(Receive(&r))
		Expect(r.path).To(Equal("/status"))
		Expect(r.body).To(HaveKeyWithValue("eventType", "STATUS_UPDATE"))
		Expect(r.body).To(HaveKeyWithValue("id", "req-1"))
		Expect(r.body).To(HaveKeyWithValue("status", "approved"))
		Expect(r.body).To(HaveKeyWithValue("deepLink", "https://portal.creoo.co/requests"))
		Expect(r.body["requester"]).To(HaveKeyWithValue("email", "employee@creoo.co"))
		Expect(r.body["approver"]).To(HaveKeyWithValue("name", "Ayu"))

		Eventually(func() float64 {
			return testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("STATUS_UPDATE", "sent"))
		}).Should(Equal(1.0))
	})

	It("should skip event types without a webhook", func() {
		sink = newSink(map[string]string{events.EventTypeStatusUpdate: server.URL + "/status"})

		sink.Notify(context.Background(), events.EventTypeFinanceEvent, events.Notification{ID: "f1"})

		Consistently(got, 50*time.Millisecond).ShouldNot(Receive())
		Expect(testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("FINANCE_EVENT", "skipped"))).To(Equal(1.0))
	})

	It("should count a failing webhook without surfacing the error", func() {
		sink = newSink(map[string]string{events.EventTypeLeaveRequest: server.URL + "/broken"})

		Expect(func() {
			sink.Notify(context.Background(), events.EventTypeLeaveRequest, events.Notification{ID: "l1"})
		}).NotTo(Panic())

		Eventually(got).Should(Receive())
		Eventually(func() float64 {
			return testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("LEAVE_REQUEST", "failed"))
		}).Should(Equal(1.0))
	})

	It("should drop notifications instead of blocking when the queue is full", func() {
		release := make(chan struct{})
		slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
			w.WriteHeader(http.StatusOK)
		}))
		defer slow.Close()
		defer close(release)

		sink = notify.NewWebhookSink(notify.WebhookConfig{
			URLs:       map[string]string{events.EventTypeToolRequest: slow.URL},
			Timeout:    5 * time.Second,
			MaxWorkers: 1,
			QueueSize:  1,
		}, slow.Client(), logger.Discard(), m)

		start := time.Now()
		for i := 0; i < 10; i++ {
			sink.Notify(context.Background(), events.EventTypeToolRequest, events.Notification{ID: "t"})
		}
		Expect(time.Since(start)).To(BeNumerically("<", time.Second))
		Expect(testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("TOOL_REQUEST", "dropped"))).To(BeNumerically(">=", 7))
	})

	It("should wait for queued deliveries on Flush", func() {
		sink = newSink(map[string]string{events.EventTypeFinanceEvent: server.URL + "/finance"})
		for _, id := range []string{"f1", "f2", "f3"} {
			sink.Notify(context.Background(), events.EventTypeFinanceEvent, events.Notification{ID: id})
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		Expect(sink.Flush(ctx)).To(Succeed())
		Expect(got).To(HaveLen(3))
		Expect(testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("FINANCE_EVENT", "sent"))).To(Equal(3.0))
	})

	It("should settle queued deliveries on shutdown so Flush does not hang", func() {
		release := make(chan struct{})
		slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer slow.Close()
		defer close(release)

		sink = notify.NewWebhookSink(notify.WebhookConfig{
			URLs:       map[string]string{events.EventTypeLeaveRequest: slow.URL},
			Timeout:    5 * time.Second,
			MaxWorkers: 1,
			QueueSize:  4,
		}, slow.Client(), logger.Discard(), m)

		for _, id := range []string{"l1", "l2", "l3"} {
			sink.Notify(context.Background(), events.EventTypeLeaveRequest, events.Notification{ID: id})
		}
		sink.Shutdown()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		start := time.Now()
		Expect(sink.Flush(ctx)).To(Succeed())
		Expect(time.Since(start)).To(BeNumerically("<", time.Second))

		settled := testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("LEAVE_REQUEST", "dropped")) +
			testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("LEAVE_REQUEST", "failed")) +
			testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("LEAVE_REQUEST", "sent"))
		Expect(settled).To(Equal(3.0))
	})

	It("should let Flush wait while new notifications keep arriving", func() {
		sink = newSink(map[string]string{events.EventTypeFinanceEvent: server.URL + "/finance"})

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		flushed := make(chan error, 1)
		go func() { flushed <- sink.Flush(ctx) }()

		for i := 0; i < 5; i++ {
			sink.Notify(context.Background(), events.EventTypeFinanceEvent, events.Notification{ID: "f"})
		}
		Eventually(flushed).Should(Receive(Succeed()))
		Expect(sink.Flush(ctx)).To(Succeed())
		Eventually(got).Should(HaveLen(5))
	})

	It("should drop notifications after shutdown", func() {
		sink = newSink(map[string]string{events.EventTypeStatusUpdate: server.URL})
		sink.Shutdown()

		sink.Notify(context.Background(), events.EventTypeStatusUpdate, events.Notification{ID: "late"})
		Expect(testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("STATUS_UPDATE", "dropped"))).To(Equal(1.0))
	})
})

type recordingSink struct {
	calls chan string
}

func (s *recordingSink) Notify(ctx context.Context, eventType string, n events.Notification) {
	s.calls <- eventType + ":" + n.ID
}

var _ = Describe("Subscribe", func() {
	It("should forward every portal event type to the sink", func() {
		bus := events.NewEventBus(logger.Discard())
		sink := &recordingSink{calls: make(chan string, 8)}
		notify.Subscribe(bus, sink, logger.Discard())

		for _, t := range events.EventTypes() {
			bus.Publish(context.Background(), events.NewPortalEvent(t, events.Notification{ID: "x"}))
		}
		Expect(bus.Wait(context.Background())).To(Succeed())

		Expect(sink.calls).To(HaveLen(4))
	})
})

var _ = Describe("New", func() {
	It("should fall back to the log sink without webhooks", func() {
		sink, closeFn := notify.New(internal.NotificationConfig{Enabled: true}, logger.Discard(), nil)
		defer closeFn()
		Expect(sink).To(BeAssignableToTypeOf(&notify.LogSink{}))
	})

	It("should build a webhook sink when enabled with a URL", func() {
		sink, closeFn := notify.New(internal.NotificationConfig{
			Enabled:  true,
			Webhooks: internal.WebhooksConfig{StatusUpdate: "https://hooks.example.com/x"},
		}, logger.Discard(), nil)
		defer closeFn()
		Expect(sink).To(BeAssignableToTypeOf(&notify.WebhookSink{}))
	})

	It("should resolve relative deep links only", func() {
		Expect(notify.ResolveLink("https://p.co/", "/hr")).To(Equal("https://p.co/hr"))
		Expect(notify.ResolveLink("https://p.co", "https://x.co/y")).To(Equal("https://x.co/y"))
		Expect(notify.ResolveLink("", "/hr")).To(Equal("/hr"))
	})
})

package admin_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/admin"
	"github.com/frahmantamala/ops-portal/internal/audit"
	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/frahmantamala/ops-portal/internal/core/events"
	"github.com/frahmantamala/ops-portal/internal/store"
	"github.com/frahmantamala/ops-portal/internal/store/null"
	"github.com/frahmantamala/ops-portal/internal/store/postgres"
	"github.com/frahmantamala/ops-portal/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestAdmin(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Admin Suite")
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(ctx context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

var (
	adminUser = &domain.User{UserID: "adm", Name: "Ayu", Email: "admin@creoo.co", Role: domain.RoleAdmin, Status: domain.UserStatusActive}
	opsUser   = &domain.User{UserID: "ops", Name: "Citra", Email: "ops@creoo.co", Role: domain.RoleOpsHR, Status: domain.UserStatusActive}
)

func openSQL() *postgres.Adapter {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	Expect(err).NotTo(HaveOccurred())
	sqlDB, err := db.DB()
	Expect(err).NotTo(HaveOccurred())
	sqlDB.SetMaxOpenConns(1)
	Expect(postgres.AutoMigrate(db)).To(Succeed())
	return postgres.NewAdapter(db, logger.Discard(), postgres.WithBCryptCost(bcrypt.MinCost))
}

var _ = Describe("Admin Service", func() {
	var (
		ctx     context.Context
		adapter *postgres.Adapter
		bus     *recordingBus
		svc     *admin.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		adapter = openSQL()
		bus = &recordingBus{}
		svc = admin.NewService(adapter, audit.NewRecorder(adapter, nil, logger.Discard()), bus, logger.Discard())
	})

	Describe("AuditLogs", func() {
		BeforeEach(func() {
			base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
			for i, action := range []string{"first", "second", "third"} {
				Expect(adapter.WriteAuditLog(ctx, domain.AuditEntry{
					Action: action, PerformedBy: "adm", EntityType: audit.EntitySystem, EntityID: "x",
					Timestamp: base.Add(time.Duration(i) * time.Hour),
				})).To(Succeed())
			}
		})

		It("returns the newest entries first", func() {
			page, err := svc.AuditLogs(ctx, adminUser, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Total).To(Equal(3))
			Expect(page.Logs[0].Action).To(Equal("third"))
			Expect(page.Logs[2].Action).To(Equal("first"))
		})

		It("applies the limit but reports the total", func() {
			page, err := svc.AuditLogs(ctx, adminUser, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Logs).To(HaveLen(2))
			Expect(page.Total).To(Equal(3))
		})

		It("is Admin only", func() {
			_, err := svc.AuditLogs(ctx, opsUser, 0)
			Expect(err).To(MatchError(internal.ErrAuthorizationDenied))
		})
	})

	Describe("ResetDemoData", func() {
		It("reloads the fixtures on the SQL store and audits the reset", func() {
			Expect(svc.ResetDemoData(ctx, adminUser)).To(Succeed())

			u, err := adapter.GetUserByEmail(ctx, "ops@creoo.co")
			Expect(err).NotTo(HaveOccurred())
			Expect(u).NotTo(BeNil())

			logs, err := adapter.ListAuditLogs(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(logs).To(ContainElement(HaveField("Action", "system.reset_demo")))
		})

		It("is not available on other stores", func() {
			nullSvc := admin.NewService(null.NewAdapter(), audit.NewRecorder(nil, nil, logger.Discard()), bus, logger.Discard())
			err := nullSvc.ResetDemoData(ctx, adminUser)
			Expect(err).To(MatchError(internal.ErrNotImplemented))
		})

		It("is Admin only", func() {
			Expect(svc.ResetDemoData(ctx, opsUser)).To(MatchError(internal.ErrAuthorizationDenied))
		})
	})

	Describe("SendTestNotification", func() {
		It("publishes a finance event carrying the sender", func() {
			evt, err := svc.SendTestNotification(ctx, adminUser)
			Expect(err).NotTo(HaveOccurred())
			Expect(evt.Type).To(Equal(events.EventTypeFinanceEvent))
			Expect(evt.Notification.Event).To(Equal("test"))
			Expect(evt.Notification.Requester.Email).To(Equal("admin@creoo.co"))
			Expect(bus.events).To(HaveLen(1))
		})

		It("sends nothing for other roles", func() {
			_, err := svc.SendTestNotification(ctx, opsUser)
			Expect(err).To(MatchError(internal.ErrAuthorizationDenied))
			Expect(bus.events).To(BeEmpty())
		})
	})
})

type failingStore struct{}

func (failingStore) Variant() store.Variant { return store.VariantRemote }
func (failingStore) ListAuditLogs(ctx context.Context) ([]domain.AuditLog, error) {
	return nil, store.Unavailable("list", "audit_log", errors.New("dial tcp: timeout"))
}
func (failingStore) ResetDemoData(ctx context.Context) error { return store.NotImplemented("reset_demo_data", "all") }

var _ = Describe("Admin Handler", func() {
	var h *admin.Handler

	BeforeEach(func() {
		svc := admin.NewService(failingStore{}, audit.NewRecorder(nil, nil, logger.Discard()), &recordingBus{}, logger.Discard())
		h = admin.NewHandler(svc, logger.Discard())
	})

	serve := func(fn http.HandlerFunc, method, target string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, nil)
		req = req.WithContext(internal.ContextWithPrincipal(req.Context(), adminUser))
		rec := httptest.NewRecorder()
		fn(rec, req)
		return rec
	}

	It("maps an unreachable store to 503", func() {
		Expect(serve(h.GetAuditLogs, http.MethodGet, "/admin/audit-logs").Code).To(Equal(http.StatusServiceUnavailable))
	})

	It("rejects a malformed limit", func() {
		Expect(serve(h.GetAuditLogs, http.MethodGet, "/admin/audit-logs?limit=abc").Code).To(Equal(http.StatusBadRequest))
	})

	It("answers reset on a non-SQL store with 501", func() {
		Expect(serve(h.ResetDemoData, http.MethodPost, "/admin/reset-demo").Code).To(Equal(http.StatusNotImplemented))
	})

	It("accepts the test notification", func() {
		rec := serve(h.SendTestNotification, http.MethodPost, "/admin/test-notification")
		Expect(rec.Code).To(Equal(http.StatusAccepted))
		var body map[string]string
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body["event_type"]).To(Equal("FINANCE_EVENT"))
	})
})

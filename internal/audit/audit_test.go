package audit_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/frahmantamala/ops-portal/internal/audit"
	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/frahmantamala/ops-portal/internal/metrics"
	"github.com/frahmantamala/ops-portal/internal/store"
	"github.com/frahmantamala/ops-portal/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAudit(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Audit Suite")
}

type fakeWriter struct {
	entries []domain.AuditEntry
	err     error
}

func (f *fakeWriter) WriteAuditLog(ctx context.Context, e domain.AuditEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, e)
	return nil
}

var _ = Describe("Recorder", func() {
	It("should write the actor, entity and encoded details", func() {
		w := &fakeWriter{}
		rec := audit.NewRecorder(w, nil, logger.Discard())

		rec.Record(context.Background(), &domain.User{UserID: "u1"}, "tool.create", audit.EntityTool, "t1", map[string]string{"name": "Figma"})

		Expect(w.entries).To(HaveLen(1))
		e := w.entries[0]
		Expect(e.PerformedBy).To(Equal("u1"))
		Expect(e.EntityType).To(Equal(audit.EntityTool))
		Expect(e.Timestamp.IsZero()).To(BeFalse())
		var details map[string]string
		Expect(json.Unmarshal(e.Details, &details)).To(Succeed())
		Expect(details).To(HaveKeyWithValue("name", "Figma"))
	})

	It("should swallow write failures and count them", func() {
		m := metrics.New()
		w := &fakeWriter{err: store.NotImplemented("create", "AuditLogs")}
		rec := audit.NewRecorder(w, m, logger.Discard())

		Expect(func() {
			rec.Record(context.Background(), nil, "demo.reset", audit.EntitySystem, "", nil)
		}).NotTo(Panic())
		Expect(testutil.ToFloat64(m.StoreErrorsTotal.WithLabelValues("write_audit_log", "not_implemented"))).To(Equal(1.0))
	})

	It("should be a no-op on a nil recorder", func() {
		var rec *audit.Recorder
		Expect(func() {
			rec.Record(context.Background(), nil, "x", "y", "z", nil)
		}).NotTo(Panic())
	})
})

package factory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/frahmantamala/ops-portal/internal/store"
	"github.com/frahmantamala/ops-portal/internal/store/factory"
	"github.com/frahmantamala/ops-portal/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestFactory(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Store Factory Suite")
}

var _ = Describe("Open", func() {
	ctx := context.Background()

	It("should open the null store when nothing is configured", func() {
		h, err := factory.Open(ctx, internal.StoreConfig{}, logger.Discard())
		Expect(err).NotTo(HaveOccurred())
		Expect(h.Variant()).To(Equal(store.VariantNull))
		Expect(h.DB).To(BeNil())
		Expect(h.Ping(ctx)).To(Succeed())
		Expect(h.Close()).To(Succeed())

		_, err = h.Adapter.CreateTool(ctx, domain.Tool{Name: "x"})
		Expect(errors.Is(err, store.ErrNotImplemented)).To(BeTrue())
	})

	It("should open the remote store without any network call", func() {
		h, err := factory.Open(ctx, internal.StoreConfig{
			Remote: internal.RemoteStoreConfig{BaseURL: "http://127.0.0.1:1", BaseID: "app1", Token: "tok"},
			Database: internal.DatabaseConfig{
				Driver: "sqlite",
				Source: ":memory:",
			},
		}, logger.Discard())
		Expect(err).NotTo(HaveOccurred())
		Expect(h.Variant()).To(Equal(store.VariantRemote))
		Expect(h.SQL).To(BeNil())
	})

	It("should open and migrate a sqlite database", func() {
		h, err := factory.Open(ctx, internal.StoreConfig{
			Database: internal.DatabaseConfig{
				Driver:       "sqlite",
				Source:       ":memory:",
				MaxOpenConns: 1,
				MaxIdleConns: 1,
				AutoMigrate:  true,
			},
		}, logger.Discard())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(h.Close)

		Expect(h.Variant()).To(Equal(store.VariantSQL))
		Expect(h.SQL).NotTo(BeNil())
		Expect(h.Ping(ctx)).To(Succeed())

		seeded, err := h.SQL.SeedDemoData(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(seeded).To(BeTrue())

		var users int
		Expect(h.DB.GetContext(ctx, &users, "SELECT COUNT(*) FROM users")).To(Succeed())
		Expect(users).To(BeNumerically(">=", 5))

		u, err := h.Adapter.GetUserByEmail(ctx, "ADMIN@creoo.co")
		Expect(err).NotTo(HaveOccurred())
		Expect(u).NotTo(BeNil())
		Expect(u.Role).To(Equal(domain.RoleAdmin))
	})

	It("should classify a duplicate email as a rejected write", func() {
		h, err := factory.Open(ctx, internal.StoreConfig{
			Database: internal.DatabaseConfig{
				Driver:       "sqlite",
				Source:       ":memory:",
				MaxOpenConns: 1,
				MaxIdleConns: 1,
				AutoMigrate:  true,
			},
		}, logger.Discard())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(h.Close)

		first := domain.User{Name: "A", Email: "a@x.com", Role: domain.RoleEmployee, Status: domain.UserStatusActive}
		_, err = h.Adapter.CreateUser(ctx, first)
		Expect(err).NotTo(HaveOccurred())

		_, err = h.Adapter.CreateUser(ctx, first)
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, store.ErrRejected)).To(BeTrue())
		Expect(errors.Is(err, store.ErrUnavailable)).To(BeFalse())
	})

	It("should reject an unknown driver", func() {
		_, err := factory.Open(ctx, internal.StoreConfig{
			Database: internal.DatabaseConfig{Driver: "oracle", Source: "x"},
		}, logger.Discard())
		Expect(err).To(MatchError(ContainSubstring("unsupported database driver")))
	})
})

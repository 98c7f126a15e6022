package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/frahmantamala/ops-portal/internal/store"
	"github.com/frahmantamala/ops-portal/internal/store/null"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestStore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Store Suite")
}

var _ = Describe("Select", func() {
	It("should prefer the remote store when both credentials are set", func() {
		Expect(store.Select(store.Credentials{
			RemoteBaseID:   "app1",
			RemoteToken:    "tok",
			DatabaseSource: "postgres://x",
		})).To(Equal(store.VariantRemote))
	})

	It("should fall back to the database when remote credentials are partial", func() {
		Expect(store.Select(store.Credentials{
			RemoteBaseID:   "app1",
			DatabaseSource: "file::memory:",
		})).To(Equal(store.VariantSQL))
	})

	It("should pick the null store when nothing is configured", func() {
		Expect(store.Select(store.Credentials{RemoteToken: "tok"})).To(Equal(store.VariantNull))
	})
})

var _ = Describe("Kind", func() {
	It("should label wrapped store errors", func() {
		wrapped := fmt.Errorf("transition: %w", store.Unavailable("list", "tool_request", errors.New("dial tcp")))
		Expect(store.Kind(wrapped)).To(Equal("unavailable"))
		Expect(store.Kind(store.NotImplemented("create", "tool"))).To(Equal("not_implemented"))
		Expect(store.Kind(store.NotFound("update", "user", "u1"))).To(Equal("not_found"))
		Expect(store.Kind(nil)).To(Equal("ok"))
		Expect(store.Kind(errors.New("boom"))).To(Equal("unknown"))
	})

	It("should include status and detail in the message", func() {
		err := &store.OpError{Op: "list", Entity: "Users", StatusCode: 422, Detail: "bad formula", Err: store.ErrRejected}
		Expect(err.Error()).To(Equal("list Users: store rejected the request (status 422): bad formula"))
	})
})

var _ = Describe("Null Adapter", func() {
	var (
		a   *null.Adapter
		ctx context.Context
	)

	BeforeEach(func() {
		a = null.NewAdapter()
		ctx = context.Background()
	})

	It("should return empty collections for reads", func() {
		reqs, err := a.ListToolRequests(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(reqs).To(BeEmpty())
		Expect(reqs).NotTo(BeNil())

		user, err := a.GetUserByEmail(ctx, "a@b.c")
		Expect(err).NotTo(HaveOccurred())
		Expect(user).To(BeNil())
	})

	It("should refuse every write", func() {
		err := a.UpdateToolRequestStatus(ctx, "r1", domain.ToolRequestUpdate{Status: domain.ToolRequestApproved})
		Expect(errors.Is(err, store.ErrNotImplemented)).To(BeTrue())

		_, err = a.CreateLeaveRequest(ctx, domain.LeaveRequest{})
		Expect(errors.Is(err, store.ErrNotImplemented)).To(BeTrue())

		Expect(errors.Is(a.ResetDemoData(ctx), store.ErrNotImplemented)).To(BeTrue())
	})
})

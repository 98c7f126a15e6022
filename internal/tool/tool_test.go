package tool_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/audit"
	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/frahmantamala/ops-portal/internal/store/postgres"
	"github.com/frahmantamala/ops-portal/internal/tool"
	"github.com/frahmantamala/ops-portal/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestTool(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Tool Suite")
}

var _ = Describe("Tool Handler Integration", func() {
	var (
		db      *gorm.DB
		adapter *postgres.Adapter
		router  chi.Router
		slogger *slog.Logger
		figmaID string
		vaultID string
	)

	as := func(role domain.Role) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				u := &domain.User{UserID: "u-" + string(role), Name: string(role), Role: role, Status: domain.UserStatusActive}
				next.ServeHTTP(w, r.WithContext(internal.ContextWithPrincipal(r.Context(), u)))
			})
		}
	}

	BeforeEach(func() {
		var err error
		slogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(postgres.AutoMigrate(db)).To(Succeed())

		adapter = postgres.NewAdapter(db, slogger)
		ctx := context.Background()

		figma, err := adapter.CreateTool(ctx, domain.Tool{
			Name: "Figma", Category: "Design", BillingCycle: domain.BillingYearly,
			Cost: decimal.RequireFromString("1200"), Currency: "USD",
			OwnerRole: domain.RoleAdmin, VisibilityLevel: domain.VisibilityCompanyShared,
			SeatsTotal: 5, Status: domain.ToolStatusActive,
		})
		Expect(err).NotTo(HaveOccurred())
		figmaID = figma.ToolID

		vault, err := adapter.CreateTool(ctx, domain.Tool{
			Name: "Vault", Category: "Security", BillingCycle: domain.BillingMonthly,
			Cost: decimal.RequireFromString("50"), Currency: "USD",
			OwnerRole: domain.RoleAdmin, VisibilityLevel: domain.VisibilityPrivateAdmin,
			SeatsTotal: 1, Status: domain.ToolStatusActive,
		})
		Expect(err).NotTo(HaveOccurred())
		vaultID = vault.ToolID

		service := tool.NewService(adapter, audit.NewRecorder(adapter, nil, slogger), slogger)
		handler := tool.NewHandler(&transport.BaseHandler{Logger: slogger}, service)

		r := chi.NewRouter()
		for _, role := range domain.Roles() {
			role := role
			prefix := "/" + strings.ToLower(strings.ReplaceAll(string(role), "/", ""))
			r.Route(prefix, func(sr chi.Router) {
				sr.Use(as(role))
				sr.Get("/tools", handler.GetTools)
				sr.Get("/tools/{id}", handler.GetTool)
				sr.Post("/tools", handler.CreateTool)
			})
		}
		router = r
	})

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	list := func(prefix string) []string {
		rec := do(http.MethodGet, prefix+"/tools", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		var resp struct {
			Tools []struct {
				Name        string `json:"name"`
				MonthlyCost string `json:"monthly_cost"`
			} `json:"tools"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		var names []string
		for _, t := range resp.Tools {
			names = append(names, t.Name)
		}
		return names
	}

	It("should show private tools to Admin only", func() {
		Expect(list("/admin")).To(Equal([]string{"Figma", "Vault"}))
		for _, prefix := range []string{"/finance", "/opshr", "/employee", "/intern"} {
			Expect(list(prefix)).To(Equal([]string{"Figma"}), prefix)
		}
	})

	It("should answer a hidden tool like a missing one", func() {
		Expect(do(http.MethodGet, "/employee/tools/"+vaultID, "").Code).To(Equal(http.StatusNotFound))
		Expect(do(http.MethodGet, "/employee/tools/nope", "").Code).To(Equal(http.StatusNotFound))
		Expect(do(http.MethodGet, "/admin/tools/"+vaultID, "").Code).To(Equal(http.StatusOK))
	})

	It("should normalize yearly billing to a monthly figure", func() {
		rec := do(http.MethodGet, "/intern/tools/"+figmaID, "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"monthly_cost":"100"`))
	})

	It("should let Admin create tools and audit the change", func() {
		body := `{"name":"Linear","category":"PM","billing_cycle":"monthly","cost":"8.50","currency":"usd","visibility_level":"team_shared","seats_total":10,"owner_role":"OpsHR"}`
		rec := do(http.MethodPost, "/admin/tools", body)
		Expect(rec.Code).To(Equal(http.StatusCreated))
		Expect(rec.Body.String()).To(ContainSubstring(`"owner_role":"Ops/HR"`))
		Expect(rec.Body.String()).To(ContainSubstring(`"currency":"USD"`))

		logs, err := adapter.ListAuditLogs(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(logs).To(ContainElement(HaveField("Action", "tool.create")))
	})

	It("should forbid tool creation for other roles", func() {
		body := `{"name":"Linear","category":"PM","billing_cycle":"monthly","cost":"8.50","currency":"USD","visibility_level":"team_shared"}`
		Expect(do(http.MethodPost, "/finance/tools", body).Code).To(Equal(http.StatusForbidden))
	})

	It("should reject a non-positive cost", func() {
		body := `{"name":"Linear","category":"PM","billing_cycle":"monthly","cost":"0","currency":"USD","visibility_level":"team_shared"}`
		rec := do(http.MethodPost, "/admin/tools", body)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring("INVALID_AMOUNT"))
	})
})

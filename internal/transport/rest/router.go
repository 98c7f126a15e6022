package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/ops-portal/internal/admin"
	"github.com/frahmantamala/ops-portal/internal/dashboard"
	"github.com/frahmantamala/ops-portal/internal/finance"
	"github.com/frahmantamala/ops-portal/internal/identity"
	"github.com/frahmantamala/ops-portal/internal/metrics"
	"github.com/frahmantamala/ops-portal/internal/rbac"
	"github.com/frahmantamala/ops-portal/internal/tool"
	"github.com/frahmantamala/ops-portal/internal/transport"
	"github.com/frahmantamala/ops-portal/internal/transport/middleware"
	"github.com/frahmantamala/ops-portal/internal/transport/swagger"
	"github.com/frahmantamala/ops-portal/internal/user"
	"github.com/frahmantamala/ops-portal/internal/workflow"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// Handlers groups the HTTP surfaces. A nil handler leaves its routes out.
type Handlers struct {
	Health    *HealthHandler
	Identity  *identity.Handler
	Tool      *tool.Handler
	Workflow  *workflow.Handler
	People    *user.Handler
	Finance   *finance.Handler
	Dashboard *dashboard.Handler
	Admin     *admin.Handler
}

type Options struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	OpenAPIPath    string
	// Validator, when set, checks requests against the API document.
	Validator    *middleware.OpenAPIValidator
	LoginLimiter *middleware.RateLimiter
	Resolver     middleware.PrincipalResolver
	Metrics      *metrics.Metrics
	MetricsPath  string
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, opts Options, logger *slog.Logger) {
	base := transport.NewBaseHandler(logger)

	// Apply global middleware
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger, opts.Metrics))

	if opts.OpenAPIPath != "" {
		router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, opts.OpenAPIPath)
		})
		router.Handle("/swagger/*", swagger.Handler("/openapi.yml"))
	}

	if opts.Metrics != nil && opts.MetricsPath != "" {
		router.Handle(opts.MetricsPath, opts.Metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		if opts.RequestTimeout > 0 {
			r.Use(chiMiddleware.Timeout(opts.RequestTimeout))
		}
		if opts.Validator != nil {
			r.Use(opts.Validator.Middleware)
		}

		if h.Health != nil {
			r.Get("/health", h.Health.Check)
			r.Get("/ping", h.Health.Ping)
		}

		if h.Identity != nil {
			r.Route("/auth", func(ar chi.Router) {
				ar.Group(func(lr chi.Router) {
					if opts.LoginLimiter != nil {
						lr.Use(opts.LoginLimiter.Middleware(base))
					}
					lr.Post("/login", h.Identity.Login)
					lr.Post("/delegated", h.Identity.LoginDelegated)
				})
				ar.Get("/oidc/login", h.Identity.OIDCLogin)
				ar.Get("/oidc/callback", h.Identity.OIDCCallback)
				if opts.Resolver != nil {
					ar.With(middleware.Authenticate(opts.Resolver, base)).Post("/logout", h.Identity.Logout)
				}
			})
			// Signed-out callers get a decision too.
			r.Get("/navigation/check", h.Identity.NavigationCheck)
		}

		if opts.Resolver == nil {
			return
		}

		// Protected routes that require a bearer token
		r.Group(func(pr chi.Router) {
			pr.Use(middleware.Authenticate(opts.Resolver, base))

			if h.Identity != nil {
				pr.Get("/me", h.Identity.Me)
				pr.Post("/me/password", h.Identity.ChangePassword)
				pr.Get("/navigation", h.Identity.Navigation)
			}

			if h.Dashboard != nil {
				pr.Get("/dashboard", h.Dashboard.GetOverview)
			}

			if h.Tool != nil {
				pr.Route("/tools", func(tr chi.Router) {
					tr.Get("/", h.Tool.GetTools)
					tr.Get("/{id}", h.Tool.GetTool)
					tr.With(middleware.RequireAction(rbac.ActionCreateTool, base)).Post("/", h.Tool.CreateTool)
				})
			}

			if h.Workflow != nil {
				pr.Route("/requests", func(rr chi.Router) {
					rr.Get("/", h.Workflow.ListToolRequests)
					rr.Post("/", h.Workflow.SubmitToolRequest)
					rr.Post("/{id}/transitions", h.Workflow.TransitionToolRequest)
				})
				pr.Route("/leave", func(lr chi.Router) {
					lr.Get("/", h.Workflow.ListLeaveRequests)
					lr.Post("/", h.Workflow.SubmitLeaveRequest)
					lr.Post("/{id}/transitions", h.Workflow.TransitionLeave)
				})
			}

			if h.People != nil {
				pr.Route("/people", func(ur chi.Router) {
					ur.Get("/", h.People.GetDirectory)
					ur.With(middleware.RequireAction(rbac.ActionUpdateUserRole, base)).Get("/accounts", h.People.GetAccounts)
					ur.With(middleware.RequireAction(rbac.ActionInviteUser, base)).Post("/invite", h.People.Invite)
					ur.With(middleware.RequireAction(rbac.ActionUpdateUserRole, base)).Patch("/{userId}/role", h.People.UpdateRole)
					ur.With(middleware.RequireAction(rbac.ActionToggleUserStatus, base)).Post("/{userId}/toggle-status", h.People.ToggleStatus)
				})
			}

			if h.Finance != nil {
				pr.Route("/finance", func(fr chi.Router) {
					fr.Group(func(vr chi.Router) {
						vr.Use(middleware.RequireAction(rbac.ActionViewFinanceSummary, base))
						vr.Get("/summary", h.Finance.GetSummary)
						vr.Get("/ledger.csv", h.Finance.ExportLedger)
					})
					fr.Group(func(wr chi.Router) {
						wr.Use(middleware.RequireAction(rbac.ActionLogFinance, base))
						wr.Post("/tool-payments", h.Finance.LogToolPayment)
						wr.Post("/salary-transfers", h.Finance.LogSalaryTransfer)
						wr.Post("/expenses", h.Finance.LogExpense)
					})
				})
			}

			if h.Admin != nil {
				pr.Route("/admin", func(ar chi.Router) {
					ar.With(middleware.RequireAction(rbac.ActionViewAuditLog, base)).Get("/audit-logs", h.Admin.GetAuditLogs)
					ar.With(middleware.RequireAction(rbac.ActionResetDemoData, base)).Post("/reset-demo", h.Admin.ResetDemoData)
					ar.With(middleware.RequireAction(rbac.ActionSendTestNotification, base)).Post("/test-notification", h.Admin.SendTestNotification)
				})
			}
		})
	})
}

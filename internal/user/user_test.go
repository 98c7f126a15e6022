package user_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/frahmantamala/ops-portal/internal/identity"
	"github.com/frahmantamala/ops-portal/internal/user"
	"github.com/frahmantamala/ops-portal/pkg/logger"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

func TestUser(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "People Suite")
}

type memRepo struct {
	mu        sync.Mutex
	users     []domain.User
	employees []domain.Employee
	seq       int
	writes    int
	empErr    error
}

func (m *memRepo) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == domain.NormalizeEmail(email) {
			cp := u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.User(nil), m.users...), nil
}

func (m *memRepo) CreateUser(ctx context.Context, u domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.writes++
	u.UserID = fmt.Sprintf("u-%d", m.seq)
	m.users = append(m.users, u)
	return &u, nil
}

func (m *memRepo) UpdateUser(ctx context.Context, userID string, patch domain.UserPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	for i := range m.users {
		if m.users[i].UserID != userID {
			continue
		}
		if patch.Role != nil {
			m.users[i].Role = *patch.Role
		}
		if patch.Status != nil {
			m.users[i].Status = *patch.Status
		}
		return nil
	}
	return fmt.Errorf("user %s not found", userID)
}

func (m *memRepo) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Employee(nil), m.employees...), nil
}

func (m *memRepo) CreateEmployee(ctx context.Context, e domain.Employee) (*domain.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.empErr != nil {
		return nil, m.empErr
	}
	m.seq++
	m.writes++
	e.EmployeeID = fmt.Sprintf("e-%d", m.seq)
	m.employees = append(m.employees, e)
	return &e, nil
}

func (m *memRepo) byID(id string) domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.UserID == id {
			return u
		}
	}
	return domain.User{}
}

type auditCall struct {
	Action   string
	EntityID string
}

type recordingAuditor struct {
	mu    sync.Mutex
	calls []auditCall
}

func (a *recordingAuditor) Record(ctx context.Context, actor *domain.User, action, entityType, entityID string, details any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, auditCall{Action: action, EntityID: entityID})
}

var (
	admin    = domain.User{UserID: "admin", Name: "Ayu", Email: "ayu@creoo.co", Role: domain.RoleAdmin, Status: domain.UserStatusActive}
	finance  = domain.User{UserID: "fin", Name: "Budi", Email: "budi@creoo.co", Role: domain.RoleFinance, Status: domain.UserStatusActive}
	employee = domain.User{UserID: "emp", Name: "dewi", Email: "dewi@creoo.co", Role: domain.RoleEmployee, Status: domain.UserStatusActive}
	intern   = domain.User{UserID: "int", Name: "Eko", Email: "eko@creoo.co", Role: domain.RoleIntern, Status: domain.UserStatusInactive}
)

var _ = Describe("People Service", func() {
	var (
		repo    *memRepo
		auditor *recordingAuditor
		svc     *user.Service
		ctx     context.Context
		today   time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		today = time.Date(2026, 5, 4, 15, 0, 0, 0, time.UTC)
		repo = &memRepo{
			users: []domain.User{admin, finance, employee, intern},
			employees: []domain.Employee{
				{EmployeeID: "e-admin", UserID: "admin", Department: "Ops"},
				{EmployeeID: "e-emp", UserID: "emp", Department: "Engineering"},
				{EmployeeID: "e-ghost", UserID: "gone", Department: "Sales"},
			},
			seq: 100,
		}
		auditor = &recordingAuditor{}
		svc = user.NewService(repo, auditor, bcrypt.MinCost, logger.Discard()).
			WithClock(func() time.Time { return today })
	})

	Describe("Directory", func() {
		It("joins employees with accounts and orders by name", func() {
			dir, err := svc.Directory(ctx, &employee)
			Expect(err).NotTo(HaveOccurred())
			Expect(dir.Entries).To(HaveLen(3))
			Expect(dir.Entries[0].Name).To(Equal("Ayu"))
			Expect(dir.Entries[1].Name).To(Equal("dewi"))
			Expect(dir.Entries[1].Email).To(Equal("dewi@creoo.co"))
			Expect(dir.Entries[1].Department).To(Equal("Engineering"))
			Expect(dir.Entries[2].Name).To(Equal("Unknown"))
			Expect(dir.Entries[2].Email).To(BeEmpty())
		})

		It("is open to every signed-in role that can reach the HR page", func() {
			dir, err := svc.Directory(ctx, &finance)
			Expect(err).NotTo(HaveOccurred())
			Expect(dir.Entries).To(HaveLen(3))
		})

		It("requires an active principal", func() {
			_, err := svc.Directory(ctx, nil)
			Expect(err).To(MatchError(internal.ErrAuthenticationRequired))
			_, err = svc.Directory(ctx, &intern)
			Expect(err).To(MatchError(internal.ErrAuthenticationRequired))
		})
	})

	Describe("Invite", func() {
		dto := user.InviteRequest{Name: " Fajar ", Email: "Fajar@Creoo.co", Role: "OpsHR", Birthday: "1994-07-21"}

		It("creates the account, the employee row and returns the temporary password once", func() {
			inv, err := svc.Invite(ctx, &admin, dto)
			Expect(err).NotTo(HaveOccurred())

			Expect(inv.TempPassword).To(HaveLen(identity.TempPasswordLength))
			Expect(inv.User.Email).To(Equal("fajar@creoo.co"))
			Expect(inv.User.Name).To(Equal("Fajar"))
			Expect(inv.User.Role).To(Equal(domain.RoleOpsHR))
			Expect(inv.User.Status).To(Equal(domain.UserStatusActiveTempPassword))

			stored := repo.byID(inv.User.UserID)
			Expect(stored.PasswordHash).NotTo(Equal(inv.TempPassword))
			Expect(identity.VerifyPassword(stored.PasswordHash, inv.TempPassword)).To(BeTrue())

			Expect(inv.Employee.UserID).To(Equal(inv.User.UserID))
			Expect(inv.Employee.ManagerID).To(BeNil())
			Expect(inv.Employee.Department).To(Equal("Engineering"))
			Expect(inv.Employee.EmploymentType).To(Equal(domain.EmploymentFullTime))
			Expect(inv.Employee.WorkLocation).To(Equal("Remote"))
			Expect(inv.Employee.Timezone).To(Equal("UTC"))
			Expect(*inv.Employee.JoiningDate).To(Equal(time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)))
			Expect(inv.Employee.Birthday.Month()).To(Equal(time.July))

			Expect(auditor.calls).To(ConsistOf(auditCall{Action: "user.invite", EntityID: inv.User.UserID}))
		})

		It("refuses an email that is already taken, whatever its case", func() {
			_, err := svc.Invite(ctx, &admin, user.InviteRequest{Name: "Dewi", Email: " DEWI@creoo.co", Role: "Employee"})
			Expect(err).To(MatchError(internal.ErrEmailTaken))
			Expect(repo.writes).To(BeZero())
		})

		It("is Admin only", func() {
			_, err := svc.Invite(ctx, &finance, dto)
			Expect(err).To(MatchError(internal.ErrAuthorizationDenied))
			Expect(repo.writes).To(BeZero())
		})

		It("validates the role and dates", func() {
			_, err := svc.Invite(ctx, &admin, user.InviteRequest{Name: "X", Email: "x@creoo.co", Role: "Boss", Birthday: "21/07/1994"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(repo.writes).To(BeZero())
		})

		It("reports a failed employee write and deactivates the half-made account", func() {
			repo.empErr = fmt.Errorf("store down")
			_, err := svc.Invite(ctx, &admin, dto)
			Expect(err).To(MatchError("store down"))
			Expect(auditor.calls).To(BeEmpty())

			invited, err := repo.GetUserByEmail(ctx, "fajar@creoo.co")
			Expect(err).NotTo(HaveOccurred())
			Expect(invited).NotTo(BeNil())
			Expect(invited.Status).To(Equal(domain.UserStatusInactive))
			Expect(repo.employees).NotTo(ContainElement(HaveField("UserID", invited.UserID)))
		})
	})

	Describe("UpdateRole", func() {
		It("changes the role and audits it", func() {
			acc, err := svc.UpdateRole(ctx, &admin, "emp", user.UpdateRoleRequest{Role: "finance"})
			Expect(err).NotTo(HaveOccurred())
			Expect(acc.Role).To(Equal(domain.RoleFinance))
			Expect(repo.byID("emp").Role).To(Equal(domain.RoleFinance))
			Expect(auditor.calls).To(ConsistOf(auditCall{Action: "user.role_update", EntityID: "emp"}))
		})

		It("skips the write when nothing changes", func() {
			_, err := svc.UpdateRole(ctx, &admin, "emp", user.UpdateRoleRequest{Role: "Employee"})
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.writes).To(BeZero())
			Expect(auditor.calls).To(BeEmpty())
		})

		It("answers unknown users with not found", func() {
			_, err := svc.UpdateRole(ctx, &admin, "nobody", user.UpdateRoleRequest{Role: "Admin"})
			Expect(err).To(MatchError(internal.ErrUserNotFound))
		})

		It("is Admin only", func() {
			_, err := svc.UpdateRole(ctx, &employee, "emp", user.UpdateRoleRequest{Role: "Admin"})
			Expect(err).To(MatchError(internal.ErrAuthorizationDenied))
		})
	})

	Describe("ToggleStatus", func() {
		It("deactivates active accounts and reactivates inactive ones", func() {
			acc, err := svc.ToggleStatus(ctx, &admin, "emp")
			Expect(err).NotTo(HaveOccurred())
			Expect(acc.Status).To(Equal(domain.UserStatusInactive))

			acc, err = svc.ToggleStatus(ctx, &admin, "int")
			Expect(err).NotTo(HaveOccurred())
			Expect(acc.Status).To(Equal(domain.UserStatusActive))

			Expect(auditor.calls).To(HaveLen(2))
		})

		It("treats a temporary-password account as active", func() {
			repo.users = append(repo.users, domain.User{UserID: "tmp", Email: "t@creoo.co", Role: domain.RoleEmployee, Status: domain.UserStatusActiveTempPassword})
			acc, err := svc.ToggleStatus(ctx, &admin, "tmp")
			Expect(err).NotTo(HaveOccurred())
			Expect(acc.Status).To(Equal(domain.UserStatusInactive))
		})
	})
})

var _ = Describe("People Handler", func() {
	var (
		repo   *memRepo
		router chi.Router
	)

	BeforeEach(func() {
		repo = &memRepo{users: []domain.User{admin, finance, employee}}
		svc := user.NewService(repo, &recordingAuditor{}, bcrypt.MinCost, logger.Discard())
		h := user.NewHandler(svc)

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for _, u := range repo.users {
					if u.UserID == r.Header.Get("X-Test-User") {
						u := u
						r = r.WithContext(internal.ContextWithPrincipal(r.Context(), &u))
					}
				}
				next.ServeHTTP(w, r)
			})
		})
		router.Get("/people", h.GetDirectory)
		router.Get("/people/accounts", h.GetAccounts)
		router.Post("/people/invite", h.Invite)
		router.Patch("/people/{userId}/role", h.UpdateRole)
		router.Post("/people/{userId}/toggle-status", h.ToggleStatus)
	})

	do := func(as, method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("X-Test-User", as)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	It("returns the invitation with 201 and no caching", func() {
		rec := do("admin", http.MethodPost, "/people/invite", `{"name":"Gita","email":"gita@creoo.co","role":"Intern","employment_type":"intern"}`)
		Expect(rec.Code).To(Equal(http.StatusCreated))
		Expect(rec.Header().Get("Cache-Control")).To(Equal("no-store"))

		var inv user.Invitation
		Expect(json.Unmarshal(rec.Body.Bytes(), &inv)).To(Succeed())
		Expect(inv.TempPassword).To(HaveLen(12))
		Expect(rec.Body.String()).NotTo(ContainSubstring("password_hash"))
	})

	It("maps a taken email to 409", func() {
		rec := do("admin", http.MethodPost, "/people/invite", `{"name":"Budi","email":"budi@creoo.co","role":"Finance"}`)
		Expect(rec.Code).To(Equal(http.StatusConflict))
	})

	It("routes the user id from the path", func() {
		rec := do("admin", http.MethodPatch, "/people/fin/role", `{"role":"Ops/HR"}`)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(repo.byID("fin").Role).To(Equal(domain.RoleOpsHR))

		Expect(do("admin", http.MethodPost, "/people/emp/toggle-status", "").Code).To(Equal(http.StatusOK))
		Expect(repo.byID("emp").Status).To(Equal(domain.UserStatusInactive))
	})

	It("denies non-admins with 403 and anonymous callers with 401", func() {
		Expect(do("emp", http.MethodGet, "/people/accounts", "").Code).To(Equal(http.StatusForbidden))
		Expect(do("", http.MethodGet, "/people", "").Code).To(Equal(http.StatusUnauthorized))
		Expect(do("emp", http.MethodGet, "/people", "").Code).To(Equal(http.StatusOK))
	})
})

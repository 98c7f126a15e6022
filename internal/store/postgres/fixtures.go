package postgres

import (
	"fmt"
	"time"

	"github.com/frahmantamala/ops-portal/internal/core/datamodel/ledger"
	"github.com/frahmantamala/ops-portal/internal/core/datamodel/request"
	"github.com/frahmantamala/ops-portal/internal/core/datamodel/tool"
	"github.com/frahmantamala/ops-portal/internal/core/datamodel/user"
	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DemoPassword is the sign-in secret of every demo account.
const DemoPassword = "password"

type Fixtures struct {
	Users           []user.User
	Employees       []user.Employee
	Tools           []tool.Tool
	ToolRequests    []request.ToolRequest
	LeaveRequests   []request.LeaveRequest
	ToolPayments    []ledger.ToolPayment
	Expenses        []ledger.Expense
	SalaryTransfers []ledger.SalaryTransfer
}

type demoAccount struct {
	name       string
	email      string
	role       domain.Role
	department string
	employment domain.EmploymentType
	// days from the reset date until the next birthday
	birthdayIn int
}

var demoAccounts = []demoAccount{
	{"Ayu Pratama", "admin@creoo.co", domain.RoleAdmin, "Leadership", domain.EmploymentFullTime, 4},
	{"Budi Santoso", "finance@creoo.co", domain.RoleFinance, "Finance", domain.EmploymentFullTime, 45},
	{"Citra Lestari", "ops@creoo.co", domain.RoleOpsHR, "People Ops", domain.EmploymentFullTime, 12},
	{"Dimas Wijaya", "employee@creoo.co", domain.RoleEmployee, "Engineering", domain.EmploymentFullTime, 200},
	{"Eka Putri", "intern@creoo.co", domain.RoleIntern, "Engineering", domain.EmploymentIntern, 27},
}

// DemoFixtures builds the demo data set relative to now.
func DemoFixtures(now time.Time, newID func() string, hash func(string) (string, error)) (*Fixtures, error) {
	secret, err := hash(DemoPassword)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}

	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	fx := &Fixtures{}

	ids := make(map[domain.Role]string, len(demoAccounts))
	for _, acct := range demoAccounts {
		id := newID()
		ids[acct.role] = id
		fx.Users = append(fx.Users, user.User{
			UserID:       id,
			Name:         acct.name,
			Email:        acct.email,
			PasswordHash: secret,
			Role:         string(acct.role),
			Status:       string(domain.UserStatusActive),
		})
	}

	adminID := ids[domain.RoleAdmin]
	for i, acct := range demoAccounts {
		joined := today.AddDate(-2, -i, 0)
		birthday := today.AddDate(-30+i, 0, acct.birthdayIn)
		var manager *string
		if acct.role != domain.RoleAdmin {
			manager = &adminID
		}
		fx.Employees = append(fx.Employees, user.Employee{
			EmployeeID:     newID(),
			UserID:         ids[acct.role],
			Department:     acct.department,
			ManagerID:      manager,
			JoiningDate:    &joined,
			EmploymentType: string(acct.employment),
			WorkLocation:   "Jakarta",
			Timezone:       "Asia/Jakarta",
			Birthday:       &birthday,
		})
	}

	renewal := today.AddDate(0, 1, 0)
	tools := []struct {
		name, category, vendor string
		cycle                  domain.BillingCycle
		cost                   string
		visibility             domain.Visibility
		owner                  domain.Role
		seats                  int
		status                 domain.ToolStatus
	}{
		{"Slack", "Communication", "Salesforce", domain.BillingMonthly, "87.50", domain.VisibilityCompanyShared, domain.RoleOpsHR, 25, domain.ToolStatusActive},
		{"Figma", "Design", "Figma Inc.", domain.BillingYearly, "1440.00", domain.VisibilityTeamShared, domain.RoleAdmin, 5, domain.ToolStatusActive},
		{"Linear", "Engineering", "Linear Orbit", domain.BillingMonthly, "64.00", domain.VisibilityRoleBased, domain.RoleAdmin, 8, domain.ToolStatusTrial},
		{"Bank Portal", "Finance", "BCA", domain.BillingMonthly, "15.00", domain.VisibilityPrivateAdmin, domain.RoleAdmin, 2, domain.ToolStatusActive},
	}
	for _, t := range tools {
		fx.Tools = append(fx.Tools, tool.Tool{
			ToolID:          newID(),
			Name:            t.name,
			Category:        t.category,
			BillingCycle:    string(t.cycle),
			Cost:            decimal.RequireFromString(t.cost),
			Currency:        "USD",
			RenewalDate:     &renewal,
			OwnerRole:       string(t.owner),
			VisibilityLevel: string(t.visibility),
			SeatsTotal:      t.seats,
			Status:          string(t.status),
			Vendor:          t.vendor,
		})
	}

	approvedAt := now.Add(-20 * time.Hour)
	fx.ToolRequests = []request.ToolRequest{
		{
			RequestID:     newID(),
			UserID:        ids[domain.RoleEmployee],
			ToolName:      "Postman",
			Justification: "API testing for the billing service",
			ExpectedUsers: 3,
			Urgency:       string(domain.UrgencyMedium),
			Status:        string(domain.ToolRequestRequested),
			Notes:         "Estimated cost: 36 USD/month. API testing for the billing service",
			CreatedAt:     now.Add(-2 * time.Hour),
		},
		{
			RequestID:     newID(),
			UserID:        ids[domain.RoleIntern],
			ToolName:      "Notion AI",
			Justification: "Meeting summaries",
			ExpectedUsers: 1,
			Urgency:       string(domain.UrgencyLow),
			Status:        string(domain.ToolRequestApproved),
			ApproverID:    &adminID,
			Notes:         fmt.Sprintf("[%s] approve by Ayu Pratama: ok for the internship", approvedAt.Format("2006-01-02 15:04")),
			CreatedAt:     now.Add(-48 * time.Hour),
			ActionedAt:    &approvedAt,
		},
	}

	fx.LeaveRequests = []request.LeaveRequest{
		{
			LeaveID:   newID(),
			UserID:    ids[domain.RoleEmployee],
			StartDate: today.AddDate(0, 0, 14),
			EndDate:   today.AddDate(0, 0, 16),
			LeaveType: "annual",
			Reason:    "Family trip",
			Status:    string(domain.LeaveRequested),
			CreatedAt: now.Add(-time.Hour),
		},
	}

	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	financeID := ids[domain.RoleFinance]
	slackID := fx.Tools[0].ToolID
	fx.ToolPayments = []ledger.ToolPayment{
		{
			PaymentID:    newID(),
			ToolID:       slackID,
			PaymentDate:  monthStart,
			MonthFor:     monthStart.Format("2006-01"),
			Amount:       decimal.RequireFromString("87.50"),
			Currency:     "USD",
			PaidByUserID: financeID,
			Method:       "card",
			CreatedAt:    now,
		},
	}
	fx.Expenses = []ledger.Expense{
		{
			ExpenseID:    newID(),
			Date:         monthStart,
			Vendor:       "Salesforce",
			Category:     string(domain.ExpenseTools),
			Amount:       decimal.RequireFromString("87.50"),
			Currency:     "USD",
			Recurring:    true,
			LinkedToolID: &slackID,
			CreatedAt:    now,
		},
		{
			ExpenseID: newID(),
			Date:      monthStart,
			Vendor:    "WeWork",
			Category:  string(domain.ExpenseOffice),
			Amount:    decimal.RequireFromString("1200.00"),
			Currency:  "USD",
			Recurring: true,
			CreatedAt: now,
		},
	}
	fx.SalaryTransfers = []ledger.SalaryTransfer{
		{
			TransferID:      newID(),
			Date:            monthStart,
			PaidToUserID:    ids[domain.RoleIntern],
			PaidToName:      "Eka Putri",
			Amount:          decimal.RequireFromString("500.00"),
			Currency:        "USD",
			MonthFor:        monthStart.Format("2006-01"),
			Method:          "bank_transfer",
			CreatedByUserID: financeID,
			CreatedAt:       now,
		},
	}

	return fx, nil
}

func (fx *Fixtures) insert(tx *gorm.DB) error {
	batches := []struct {
		name string
		rows any
		n    int
	}{
		{"users", &fx.Users, len(fx.Users)},
		{"employees", &fx.Employees, len(fx.Employees)},
		{"tools", &fx.Tools, len(fx.Tools)},
		{"tool requests", &fx.ToolRequests, len(fx.ToolRequests)},
		{"leave requests", &fx.LeaveRequests, len(fx.LeaveRequests)},
		{"tool payments", &fx.ToolPayments, len(fx.ToolPayments)},
		{"expenses", &fx.Expenses, len(fx.Expenses)},
		{"salary transfers", &fx.SalaryTransfers, len(fx.SalaryTransfers)},
	}
	for _, b := range batches {
		if b.n == 0 {
			continue
		}
		if err := tx.Create(b.rows).Error; err != nil {
			return fmt.Errorf("insert %s: %w", b.name, err)
		}
	}
	return nil
}

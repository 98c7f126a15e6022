package finance

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/shopspring/decimal"
)

const activityLimit = 10

const (
	EntryExpense        = "Expense"
	EntryToolPayment    = "Tool Payment"
	EntrySalaryTransfer = "Salary Transfer"
)

// Ledger is the full set of finance rows plus the tools needed to name payments.
type Ledger struct {
	Expenses  []domain.Expense
	Payments  []domain.ToolPayment
	Salaries  []domain.SalaryTransfer
	ToolNames map[string]string
}

type CategoryTotal struct {
	Category domain.ExpenseCategory `json:"category"`
	Total    decimal.Decimal        `json:"total"`
}

type ActivityItem struct {
	Type     string          `json:"type"`
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Date     time.Time       `json:"date"`
	Category string          `json:"category"`
}

type Summary struct {
	Month          string                     `json:"month"`
	MonthlyBurn    decimal.Decimal            `json:"monthly_burn"`
	BurnByCurrency map[string]decimal.Decimal `json:"burn_by_currency"`
	Categories     []CategoryTotal            `json:"categories"`
	Activity       []ActivityItem             `json:"activity"`
}

func (l Ledger) toolName(id string) string {
	if name, ok := l.ToolNames[id]; ok && name != "" {
		return name
	}
	return "Tool"
}

// MonthlyBurn totals the month's spend: expenses dated in the month plus
// salary transfers and tool payments booked for it. Amounts are added
// regardless of currency; BurnByCurrency keeps them apart.
func MonthlyBurn(month string, expenses []domain.Expense, salaries []domain.SalaryTransfer, payments []domain.ToolPayment) (decimal.Decimal, map[string]decimal.Decimal) {
	total := decimal.Zero
	byCurrency := map[string]decimal.Decimal{}
	add := func(amount decimal.Decimal, currency string) {
		total = total.Add(amount)
		byCurrency[currency] = byCurrency[currency].Add(amount)
	}

	for _, e := range expenses {
		if e.Date.Format(monthLayout) == month {
			add(e.Amount, e.Currency)
		}
	}
	for _, s := range salaries {
		if s.MonthFor == month {
			add(s.Amount, s.Currency)
		}
	}
	for _, p := range payments {
		if p.MonthFor == month {
			add(p.Amount, p.Currency)
		}
	}
	return total, byCurrency
}

// Summarize builds the finance overview for the month containing now.
func (l Ledger) Summarize(now time.Time) Summary {
	month := now.Format(monthLayout)
	burn, byCurrency := MonthlyBurn(month, l.Expenses, l.Salaries, l.Payments)

	return Summary{
		Month:          month,
		MonthlyBurn:    burn,
		BurnByCurrency: byCurrency,
		Categories:     l.categoryTotals(),
		Activity:       l.activity(activityLimit),
	}
}

// categoryTotals sums expenses per category in the fixed category order,
// leaving out categories without spend.
func (l Ledger) categoryTotals() []CategoryTotal {
	sums := map[domain.ExpenseCategory]decimal.Decimal{}
	for _, e := range l.Expenses {
		sums[e.Category] = sums[e.Category].Add(e.Amount)
	}

	out := []CategoryTotal{}
	for _, c := range domain.ExpenseCategories() {
		if total, ok := sums[c]; ok {
			out = append(out, CategoryTotal{Category: c, Total: total})
		}
	}
	return out
}

func (l Ledger) activity(limit int) []ActivityItem {
	items := make([]ActivityItem, 0, len(l.Expenses)+len(l.Payments)+len(l.Salaries))
	for _, e := range l.Expenses {
		items = append(items, ActivityItem{Type: EntryExpense, Name: e.Vendor, Amount: e.Amount, Currency: e.Currency, Date: e.Date, Category: string(e.Category)})
	}
	for _, s := range l.Salaries {
		items = append(items, ActivityItem{Type: EntrySalaryTransfer, Name: s.PaidToName, Amount: s.Amount, Currency: s.Currency, Date: s.Date, Category: string(domain.ExpenseSalaries)})
	}
	for _, p := range l.Payments {
		items = append(items, ActivityItem{Type: EntryToolPayment, Name: l.toolName(p.ToolID), Amount: p.Amount, Currency: p.Currency, Date: p.PaymentDate, Category: string(domain.ExpenseTools)})
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Date.After(items[j].Date) })
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

var csvHeader = []string{"Type", "Date", "Entity/Vendor", "Amount", "Currency", "Notes"}

// WriteCSV exports every ledger row: expenses, then tool payments, then
// salary transfers.
func (l Ledger) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	row := func(kind string, date time.Time, name string, amount decimal.Decimal, currency, notes string) error {
		return cw.Write([]string{kind, date.Format(dateLayout), name, amount.StringFixed(2), currency, notes})
	}
	for _, e := range l.Expenses {
		if err := row(EntryExpense, e.Date, e.Vendor, e.Amount, e.Currency, e.Notes); err != nil {
			return fmt.Errorf("write expense row: %w", err)
		}
	}
	for _, p := range l.Payments {
		if err := row(EntryToolPayment, p.PaymentDate, l.toolName(p.ToolID), p.Amount, p.Currency, p.Notes); err != nil {
			return fmt.Errorf("write payment row: %w", err)
		}
	}
	for _, s := range l.Salaries {
		if err := row(EntrySalaryTransfer, s.Date, s.PaidToName, s.Amount, s.Currency, s.Notes); err != nil {
			return fmt.Errorf("write salary row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

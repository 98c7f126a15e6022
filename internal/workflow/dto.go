package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/core/common/validation"
	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/frahmantamala/ops-portal/internal/rbac"
	"github.com/shopspring/decimal"
)

const (
	dateLayout    = "2006-01-02"
	maxNoteLength = 2000
)

// Note is the free-text comment attached to a transition. A cancelled note
// stops the transition before it reads or writes anything.
type Note struct {
	Text      string
	Cancelled bool
}

func NoteText(text string) Note {
	return Note{Text: text}
}

func CancelledNote() Note {
	return Note{Cancelled: true}
}

type TransitionInput struct {
	Action         rbac.Action
	Note           Note
	ExpectedStatus string
}

// TransitionRequest is the wire form of a transition. Cancelled mirrors a
// dismissed note prompt.
type TransitionRequest struct {
	Action         string `json:"action"`
	Note           string `json:"note"`
	Cancelled      bool   `json:"cancelled"`
	ExpectedStatus string `json:"expected_status,omitempty"`
}

func (dto TransitionRequest) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("action", dto.Action).Required()
	v.Field("note", dto.Note).MaxLength(maxNoteLength)
	return v.Validate()
}

// Input converts the wire form after validation.
func (dto TransitionRequest) Input() (TransitionInput, error) {
	action, err := rbac.ParseTransition(dto.Action)
	if err != nil {
		return TransitionInput{}, internal.NewValidationFieldError("action", err.Error(), internal.ErrCodeInvalidEnum)
	}
	note := NoteText(strings.TrimSpace(dto.Note))
	if dto.Cancelled {
		note = CancelledNote()
	}
	return TransitionInput{Action: action, Note: note, ExpectedStatus: dto.ExpectedStatus}, nil
}

func (in TransitionInput) validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("note", in.Note.Text).MaxLength(maxNoteLength)
	return v.Validate()
}

type SubmitToolRequest struct {
	ToolName      string           `json:"tool_name"`
	Justification string           `json:"justification"`
	ExpectedUsers int              `json:"expected_users"`
	Urgency       string           `json:"urgency"`
	EstimatedCost *decimal.Decimal `json:"estimated_cost,omitempty"`
	Currency      string           `json:"currency,omitempty"`
}

func (dto SubmitToolRequest) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("tool_name", dto.ToolName).Required().MaxLength(200)
	v.Field("justification", dto.Justification).Required().MaxLength(maxNoteLength)
	v.Field("expected_users", dto.ExpectedUsers).MinInt(1, internal.ErrCodeValidationFailed).MaxInt(10000, internal.ErrCodeValidationFailed)
	v.Field("urgency", dto.Urgency).Required().OneOf(string(domain.UrgencyLow), string(domain.UrgencyMedium), string(domain.UrgencyHigh))
	if dto.EstimatedCost != nil {
		v.Field("estimated_cost", *dto.EstimatedCost).PositiveAmount()
		v.Field("currency", dto.Currency).Required().MaxLength(3)
	}
	return v.Validate()
}

// InitialNotes prefixes the justification with the cost estimate when one was given.
func (dto SubmitToolRequest) InitialNotes() string {
	if dto.EstimatedCost == nil {
		return dto.Justification
	}
	return fmt.Sprintf("Estimated cost: %s %s/month. %s", dto.EstimatedCost.StringFixed(2), strings.ToUpper(dto.Currency), dto.Justification)
}

type SubmitLeaveRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	LeaveType string `json:"leave_type"`
	Reason    string `json:"reason"`
}

func (dto SubmitLeaveRequest) Validate() *internal.AppError {
	start, startErr := time.Parse(dateLayout, dto.StartDate)
	end, endErr := time.Parse(dateLayout, dto.EndDate)

	v := validation.NewValidator()
	v.Field("start_date", dto.StartDate).Required().Custom(dateFormat("start_date", startErr))
	v.Field("end_date", dto.EndDate).Required().Custom(dateFormat("end_date", endErr))
	if startErr == nil && endErr == nil {
		v.Field("end_date", end).NotBefore(start, "start_date")
	}
	v.Field("leave_type", dto.LeaveType).Required().MaxLength(50)
	v.Field("reason", dto.Reason).MaxLength(maxNoteLength)
	return v.Validate()
}

// Dates returns the parsed range; call after Validate.
func (dto SubmitLeaveRequest) Dates() (start, end time.Time) {
	start, _ = time.Parse(dateLayout, dto.StartDate)
	end, _ = time.Parse(dateLayout, dto.EndDate)
	return start, end
}

func dateFormat(field string, parseErr error) func(any) *internal.AppError {
	return func(value any) *internal.AppError {
		if s, _ := value.(string); s == "" || parseErr == nil {
			return nil
		}
		return internal.NewValidationFieldError(field, field+" must be a date in YYYY-MM-DD form", internal.ErrCodeInvalidDate)
	}
}

// Filter narrows request listings by lifecycle stage.
type Filter string

const (
	FilterAll      Filter = "all"
	FilterPending  Filter = "pending"
	FilterResolved Filter = "resolved"
)

func ParseFilter(s string) (Filter, error) {
	switch Filter(strings.ToLower(strings.TrimSpace(s))) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterPending:
		return FilterPending, nil
	case FilterResolved:
		return FilterResolved, nil
	}
	return "", internal.NewValidationFieldError("filter", "filter must be one of: all, pending, resolved", internal.ErrCodeInvalidEnum)
}

func (f Filter) keep(pending bool) bool {
	switch f {
	case FilterPending:
		return pending
	case FilterResolved:
		return !pending
	}
	return true
}

// Result tells a caller whether a transition was applied.
type Result string

const (
	ResultApplied   Result = "applied"
	ResultCancelled Result = "cancelled"
)

type ToolRequestView struct {
	domain.ToolRequest
	Requester domain.Person `json:"requester"`
	Actions   []rbac.Action `json:"actions"`
}

type LeaveRequestView struct {
	domain.LeaveRequest
	Days      int           `json:"days"`
	Requester domain.Person `json:"requester"`
	Actions   []rbac.Action `json:"actions"`
}

type ToolRequestList struct {
	Title string            `json:"title"`
	Items []ToolRequestView `json:"items"`
}

type LeaveRequestList struct {
	Title string             `json:"title"`
	Items []LeaveRequestView `json:"items"`
}

type ToolRequestOutcome struct {
	Result  Result           `json:"result"`
	Request *ToolRequestView `json:"request,omitempty"`
}

type LeaveRequestOutcome struct {
	Result  Result            `json:"result"`
	Request *LeaveRequestView `json:"request,omitempty"`
}

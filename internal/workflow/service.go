package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/audit"
	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/frahmantamala/ops-portal/internal/core/events"
	"github.com/frahmantamala/ops-portal/internal/metrics"
	"github.com/frahmantamala/ops-portal/internal/rbac"
	"golang.org/x/sync/errgroup"
)

const (
	requestTypeTool  = "tool_request"
	requestTypeLeave = "leave_request"
)

// Store is the slice of the data adapter the workflows run against.
type Store interface {
	ListUsers(ctx context.Context) ([]domain.User, error)

	ListToolRequests(ctx context.Context) ([]domain.ToolRequest, error)
	CreateToolRequest(ctx context.Context, r domain.ToolRequest) (*domain.ToolRequest, error)
	UpdateToolRequestStatus(ctx context.Context, requestID string, u domain.ToolRequestUpdate) error

	ListLeaveRequests(ctx context.Context) ([]domain.LeaveRequest, error)
	CreateLeaveRequest(ctx context.Context, l domain.LeaveRequest) (*domain.LeaveRequest, error)
	UpdateLeaveRequestStatus(ctx context.Context, leaveID string, u domain.LeaveRequestUpdate) error
}

type Auditor interface {
	Record(ctx context.Context, actor *domain.User, action, entityType, entityID string, details any)
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event)
}

type Service struct {
	store   Store
	audit   Auditor
	bus     Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(store Store, auditor Auditor, bus Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		audit:   auditor,
		bus:     bus,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock replaces the time source used for action timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// TransitionToolRequest moves a tool request along its lifecycle. A cancelled
// note returns ResultCancelled without touching the store or the bus.
func (s *Service) TransitionToolRequest(ctx context.Context, principal *domain.User, requestID string, in TransitionInput) (*ToolRequestOutcome, error) {
	if err := s.gate(ctx, principal, requestTypeTool, requestID, in); err != nil {
		return nil, err
	}
	if in.Note.Cancelled {
		s.cancelled(ctx, principal, requestTypeTool, requestID, in.Action)
		return &ToolRequestOutcome{Result: ResultCancelled}, nil
	}

	var expected domain.ToolRequestStatus
	if in.ExpectedStatus != "" {
		st, err := domain.ParseToolRequestStatus(in.ExpectedStatus)
		if err != nil {
			return nil, internal.NewValidationFieldError("expected_status", err.Error(), internal.ErrCodeInvalidEnum)
		}
		expected = st
	}

	current, users, err := s.loadToolRequest(ctx, requestID)
	if err != nil {
		s.failed(ctx, requestTypeTool, "read_tool_request", in.Action, err)
		return nil, err
	}
	if expected != "" && current.Status != expected {
		s.metrics.Transition(requestTypeTool, string(in.Action), "stale")
		return nil, internal.ErrStaleStatus.Clone().WithDetails(map[string]string{
			"expected": string(expected),
			"current":  string(current.Status),
		})
	}

	next, ok := NextToolRequestStatus(current.Status, in.Action)
	if !ok {
		s.metrics.Transition(requestTypeTool, string(in.Action), "invalid")
		s.logger.WarnContext(ctx, "transition not available",
			"request_id", requestID, "status", string(current.Status), "action", string(in.Action))
		return nil, internal.ErrInvalidTransition.Clone().WithDetails(map[string]string{
			"status": string(current.Status),
			"action": string(in.Action),
		})
	}

	now := s.now().UTC()
	notes := appendNote(current.Notes, now, in.Action, principal.Name, in.Note.Text)
	update := domain.ToolRequestUpdate{Status: next, ApproverID: principal.UserID, Notes: notes, ActionedAt: now}
	if err := s.store.UpdateToolRequestStatus(ctx, requestID, update); err != nil {
		s.failed(ctx, requestTypeTool, "update_tool_request_status", in.Action, err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "tool request transitioned",
		"request_id", requestID, "from", string(current.Status), "to", string(next),
		"action", string(in.Action), "approver_id", principal.UserID)
	s.metrics.Transition(requestTypeTool, string(in.Action), "applied")

	s.audit.Record(ctx, principal, requestTypeTool+"."+string(in.Action), audit.EntityToolRequest, requestID, map[string]string{
		"from": string(current.Status),
		"to":   string(next),
		"note": in.Note.Text,
	})

	requester := personOf(users, current.UserID)
	approver := principal.Person()
	s.bus.Publish(ctx, events.NewPortalEvent(events.EventTypeStatusUpdate, events.Notification{
		RequestType: requestTypeTool,
		Event:       string(in.Action),
		ID:          requestID,
		Requester:   party(requester),
		Fields: map[string]any{
			"toolName":       current.ToolName,
			"previousStatus": string(current.Status),
			"note":           in.Note.Text,
		},
		Status:    string(next),
		Approver:  partyPtr(approver),
		Timestamp: now,
		DeepLink:  "/requests?id=" + requestID,
	}))

	applied := *current
	applied.Status = next
	applied.ApproverID = &update.ApproverID
	applied.Notes = notes
	applied.ActionedAt = &now

	view := s.reloadToolRequest(ctx, principal, requestID, applied, requester)
	return &ToolRequestOutcome{Result: ResultApplied, Request: view}, nil
}

// TransitionLeave is the leave counterpart of TransitionToolRequest.
func (s *Service) TransitionLeave(ctx context.Context, principal *domain.User, leaveID string, in TransitionInput) (*LeaveRequestOutcome, error) {
	if err := s.gate(ctx, principal, requestTypeLeave, leaveID, in); err != nil {
		return nil, err
	}
	if in.Note.Cancelled {
		s.cancelled(ctx, principal, requestTypeLeave, leaveID, in.Action)
		return &LeaveRequestOutcome{Result: ResultCancelled}, nil
	}

	var expected domain.LeaveStatus
	if in.ExpectedStatus != "" {
		st, err := domain.ParseLeaveStatus(in.ExpectedStatus)
		if err != nil {
			return nil, internal.NewValidationFieldError("expected_status", err.Error(), internal.ErrCodeInvalidEnum)
		}
		expected = st
	}

	current, users, err := s.loadLeave(ctx, leaveID)
	if err != nil {
		s.failed(ctx, requestTypeLeave, "read_leave_request", in.Action, err)
		return nil, err
	}
	if expected != "" && current.Status != expected {
		s.metrics.Transition(requestTypeLeave, string(in.Action), "stale")
		return nil, internal.ErrStaleStatus.Clone().WithDetails(map[string]string{
			"expected": string(expected),
			"current":  string(current.Status),
		})
	}

	next, ok := NextLeaveStatus(current.Status, in.Action)
	if !ok {
		s.metrics.Transition(requestTypeLeave, string(in.Action), "invalid")
		s.logger.WarnContext(ctx, "transition not available",
			"leave_id", leaveID, "status", string(current.Status), "action", string(in.Action))
		return nil, internal.ErrInvalidTransition.Clone().WithDetails(map[string]string{
			"status": string(current.Status),
			"action": string(in.Action),
		})
	}

	now := s.now().UTC()
	notes := appendNote(current.Notes, now, in.Action, principal.Name, in.Note.Text)
	update := domain.LeaveRequestUpdate{Status: next, ApproverID: principal.UserID, Notes: notes, ActionedAt: now}
	if err := s.store.UpdateLeaveRequestStatus(ctx, leaveID, update); err != nil {
		s.failed(ctx, requestTypeLeave, "update_leave_request_status", in.Action, err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "leave request transitioned",
		"leave_id", leaveID, "from", string(current.Status), "to", string(next),
		"action", string(in.Action), "approver_id", principal.UserID)
	s.metrics.Transition(requestTypeLeave, string(in.Action), "applied")

	s.audit.Record(ctx, principal, requestTypeLeave+"."+string(in.Action), audit.EntityLeaveRequest, leaveID, map[string]string{
		"from": string(current.Status),
		"to":   string(next),
		"note": in.Note.Text,
	})

	requester := personOf(users, current.UserID)
	s.bus.Publish(ctx, events.NewPortalEvent(events.EventTypeStatusUpdate, events.Notification{
		RequestType: requestTypeLeave,
		Event:       string(in.Action),
		ID:          leaveID,
		Requester:   party(requester),
		Fields: map[string]any{
			"leaveType":      current.LeaveType,
			"startDate":      current.StartDate.Format(dateLayout),
			"endDate":        current.EndDate.Format(dateLayout),
			"previousStatus": string(current.Status),
			"note":           in.Note.Text,
		},
		Status:    string(next),
		Approver:  partyPtr(principal.Person()),
		Timestamp: now,
		DeepLink:  "/hr?leave=" + leaveID,
	}))

	applied := *current
	applied.Status = next
	applied.ApproverID = &update.ApproverID
	applied.Notes = notes
	applied.ActionedAt = &now

	view := s.reloadLeave(ctx, principal, leaveID, applied, requester)
	return &LeaveRequestOutcome{Result: ResultApplied, Request: view}, nil
}

// gate runs the checks every transition passes before it may read:
// authentication, the role gate, then input validation.
func (s *Service) gate(ctx context.Context, principal *domain.User, entity, id string, in TransitionInput) error {
	if err := rbac.Authorize(principal, in.Action); err != nil {
		s.metrics.Transition(entity, string(in.Action), "denied")
		if principal != nil {
			s.logger.WarnContext(ctx, "transition denied",
				"entity", entity, "id", id, "action", string(in.Action),
				"user_id", principal.UserID, "role", string(principal.Role))
		}
		return err
	}
	if strings.TrimSpace(id) == "" {
		return internal.NewValidationFieldError("id", "id is required", internal.ErrCodeValidationFailed)
	}
	if err := in.validate(); err != nil {
		return err
	}
	return nil
}

func (s *Service) cancelled(ctx context.Context, principal *domain.User, entity, id string, action rbac.Action) {
	s.logger.InfoContext(ctx, "transition cancelled", "entity", entity, "id", id, "action", string(action), "user_id", principal.UserID)
	s.metrics.Transition(entity, string(action), "cancelled")
}

func (s *Service) failed(ctx context.Context, entity, op string, action rbac.Action, err error) {
	s.logger.ErrorContext(ctx, "transition failed", "entity", entity, "operation", op, "action", string(action), "error", err)
	s.metrics.Transition(entity, string(action), "error")
	s.metrics.StoreError(op, err)
}

// loadToolRequest reads the request and the user directory in parallel.
func (s *Service) loadToolRequest(ctx context.Context, requestID string) (*domain.ToolRequest, []domain.User, error) {
	var (
		reqs  []domain.ToolRequest
		users []domain.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reqs, err = s.store.ListToolRequests(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = s.store.ListUsers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	for i := range reqs {
		if reqs[i].RequestID == requestID {
			return &reqs[i], users, nil
		}
	}
	return nil, nil, internal.ErrRequestNotFound
}

func (s *Service) loadLeave(ctx context.Context, leaveID string) (*domain.LeaveRequest, []domain.User, error) {
	var (
		leaves []domain.LeaveRequest
		users  []domain.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		leaves, err = s.store.ListLeaveRequests(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = s.store.ListUsers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	for i := range leaves {
		if leaves[i].LeaveID == leaveID {
			return &leaves[i], users, nil
		}
	}
	return nil, nil, internal.ErrRequestNotFound
}

// reloadToolRequest re-reads the row after a committed write. When the read
// fails the locally applied row is returned so the caller still sees the
// committed result.
func (s *Service) reloadToolRequest(ctx context.Context, principal *domain.User, requestID string, applied domain.ToolRequest, requester domain.Person) *ToolRequestView {
	row := applied
	reqs, err := s.store.ListToolRequests(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "reload after transition failed", "request_id", requestID, "error", err)
	} else {
		for i := range reqs {
			if reqs[i].RequestID == requestID {
				row = reqs[i]
				break
			}
		}
	}
	view := toolRequestView(principal, row, requester)
	return &view
}

func (s *Service) reloadLeave(ctx context.Context, principal *domain.User, leaveID string, applied domain.LeaveRequest, requester domain.Person) *LeaveRequestView {
	row := applied
	leaves, err := s.store.ListLeaveRequests(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "reload after transition failed", "leave_id", leaveID, "error", err)
	} else {
		for i := range leaves {
			if leaves[i].LeaveID == leaveID {
				row = leaves[i]
				break
			}
		}
	}
	view := leaveView(principal, row, requester)
	return &view
}

// SubmitToolRequest files a new tool request for the principal.
func (s *Service) SubmitToolRequest(ctx context.Context, principal *domain.User, dto SubmitToolRequest) (*ToolRequestView, error) {
	if err := rbac.Authorize(principal, rbac.ActionSubmitRequest); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	created, err := s.store.CreateToolRequest(ctx, domain.ToolRequest{
		UserID:        principal.UserID,
		ToolName:      strings.TrimSpace(dto.ToolName),
		Justification: dto.Justification,
		ExpectedUsers: dto.ExpectedUsers,
		Urgency:       domain.Urgency(dto.Urgency),
		Status:        domain.ToolRequestRequested,
		Notes:         dto.InitialNotes(),
		CreatedAt:     s.now().UTC(),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create tool request", "user_id", principal.UserID, "error", err)
		s.metrics.StoreError("create_tool_request", err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "tool request submitted", "request_id", created.RequestID, "user_id", principal.UserID, "tool", created.ToolName)
	s.audit.Record(ctx, principal, requestTypeTool+".submit", audit.EntityToolRequest, created.RequestID, map[string]any{
		"tool_name": created.ToolName,
		"urgency":   string(created.Urgency),
	})

	fields := map[string]any{
		"toolName":      created.ToolName,
		"justification": created.Justification,
		"expectedUsers": created.ExpectedUsers,
		"urgency":       string(created.Urgency),
	}
	if dto.EstimatedCost != nil {
		fields["estimatedCost"] = dto.EstimatedCost.StringFixed(2)
		fields["currency"] = strings.ToUpper(dto.Currency)
	}
	s.bus.Publish(ctx, events.NewPortalEvent(events.EventTypeToolRequest, events.Notification{
		RequestType: requestTypeTool,
		Event:       "submitted",
		ID:          created.RequestID,
		Requester:   party(principal.Person()),
		Fields:      fields,
		Status:      string(created.Status),
		Timestamp:   created.CreatedAt,
		DeepLink:    "/requests?id=" + created.RequestID,
	}))

	view := toolRequestView(principal, *created, principal.Person())
	return &view, nil
}

func (s *Service) SubmitLeaveRequest(ctx context.Context, principal *domain.User, dto SubmitLeaveRequest) (*LeaveRequestView, error) {
	if err := rbac.Authorize(principal, rbac.ActionSubmitRequest); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	start, end := dto.Dates()

	created, err := s.store.CreateLeaveRequest(ctx, domain.LeaveRequest{
		UserID:    principal.UserID,
		StartDate: start,
		EndDate:   end,
		LeaveType: strings.TrimSpace(dto.LeaveType),
		Reason:    dto.Reason,
		Status:    domain.LeaveRequested,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create leave request", "user_id", principal.UserID, "error", err)
		s.metrics.StoreError("create_leave_request", err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "leave request submitted", "leave_id", created.LeaveID, "user_id", principal.UserID)
	s.audit.Record(ctx, principal, requestTypeLeave+".submit", audit.EntityLeaveRequest, created.LeaveID, map[string]any{
		"leave_type": created.LeaveType,
		"start_date": dto.StartDate,
		"end_date":   dto.EndDate,
	})

	s.bus.Publish(ctx, events.NewPortalEvent(events.EventTypeLeaveRequest, events.Notification{
		RequestType: requestTypeLeave,
		Event:       "submitted",
		ID:          created.LeaveID,
		Requester:   party(principal.Person()),
		Fields: map[string]any{
			"leaveType": created.LeaveType,
			"startDate": dto.StartDate,
			"endDate":   dto.EndDate,
			"days":      created.Days(),
			"reason":    created.Reason,
		},
		Status:    string(created.Status),
		Timestamp: created.CreatedAt,
		DeepLink:  "/hr?leave=" + created.LeaveID,
	}))

	view := leaveView(principal, *created, principal.Person())
	return &view, nil
}

// ListToolRequests returns the requests the principal may see, newest first,
// each carrying the actions available to the principal.
func (s *Service) ListToolRequests(ctx context.Context, principal *domain.User, filter Filter) (*ToolRequestList, error) {
	if principal == nil {
		return nil, internal.ErrAuthenticationRequired
	}

	var (
		reqs  []domain.ToolRequest
		users []domain.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reqs, err = s.store.ListToolRequests(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = s.store.ListUsers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.metrics.StoreError("list_tool_requests", err)
		return nil, err
	}

	scoped := rbac.ScopeToolRequests(principal, reqs)
	sort.SliceStable(scoped, func(i, j int) bool { return scoped[i].CreatedAt.After(scoped[j].CreatedAt) })

	items := make([]ToolRequestView, 0, len(scoped))
	for _, r := range scoped {
		if !filter.keep(r.Status.IsPending()) {
			continue
		}
		items = append(items, toolRequestView(principal, r, personOf(users, r.UserID)))
	}
	return &ToolRequestList{Title: rbac.RequestsTitle(principal.Role), Items: items}, nil
}

func (s *Service) ListLeaveRequests(ctx context.Context, principal *domain.User, filter Filter) (*LeaveRequestList, error) {
	if principal == nil {
		return nil, internal.ErrAuthenticationRequired
	}

	var (
		leaves []domain.LeaveRequest
		users  []domain.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		leaves, err = s.store.ListLeaveRequests(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = s.store.ListUsers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.metrics.StoreError("list_leave_requests", err)
		return nil, err
	}

	scoped := rbac.ScopeLeaveRequests(principal, leaves)
	sort.SliceStable(scoped, func(i, j int) bool { return scoped[i].CreatedAt.After(scoped[j].CreatedAt) })

	items := make([]LeaveRequestView, 0, len(scoped))
	for _, l := range scoped {
		if !filter.keep(l.Status.IsPending()) {
			continue
		}
		items = append(items, leaveView(principal, l, personOf(users, l.UserID)))
	}
	return &LeaveRequestList{Title: rbac.RequestsTitle(principal.Role), Items: items}, nil
}

func toolRequestView(principal *domain.User, r domain.ToolRequest, requester domain.Person) ToolRequestView {
	return ToolRequestView{
		ToolRequest: r,
		Requester:   requester,
		Actions:     allowedFor(principal, ToolRequestActions(r.Status)),
	}
}

func leaveView(principal *domain.User, l domain.LeaveRequest, requester domain.Person) LeaveRequestView {
	return LeaveRequestView{
		LeaveRequest: l,
		Days:         l.Days(),
		Requester:    requester,
		Actions:      allowedFor(principal, LeaveActions(l.Status)),
	}
}

// personOf falls back to the bare id when the user directory has no match.
func personOf(users []domain.User, userID string) domain.Person {
	for i := range users {
		if users[i].UserID == userID {
			return users[i].Person()
		}
	}
	return domain.Person{UserID: userID, Name: userID}
}

func party(p domain.Person) events.Party {
	return events.Party{UserID: p.UserID, Name: p.Name, Email: p.Email}
}

func partyPtr(p domain.Person) *events.Party {
	pp := party(p)
	return &pp
}

// appendNote adds one "[timestamp] action by Name: note" line to the
// accumulated notes.
func appendNote(existing string, at time.Time, action rbac.Action, actor, text string) string {
	line := fmt.Sprintf("[%s] %s by %s", at.Format("2006-01-02 15:04 UTC"), action, actor)
	if text != "" {
		line += ": " + text
	}
	if strings.TrimSpace(existing) == "" {
		return line
	}
	return strings.TrimRight(existing, "\n") + "\n" + line
}

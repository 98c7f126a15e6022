// Package rbac holds the role-based access rules of the portal. Every
// decision here is a pure function of the principal's role.
package rbac

import (
	"fmt"
	"strings"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/core/domain"
)

type Action string

// Workflow transitions.
const (
	ActionApprove     Action = "approve"
	ActionReject      Action = "reject"
	ActionNeedInfo    Action = "need_info"
	ActionProcure     Action = "procure"
	ActionGrantAccess Action = "grant_access"
)

// Everything else that is gated.
const (
	ActionSubmitRequest        Action = "submit_request"
	ActionCreateTool           Action = "create_tool"
	ActionInviteUser           Action = "invite_user"
	ActionUpdateUserRole       Action = "update_user_role"
	ActionToggleUserStatus     Action = "toggle_user_status"
	ActionLogFinance           Action = "log_finance"
	ActionViewFinanceSummary   Action = "view_finance_summary"
	ActionViewAuditLog         Action = "view_audit_log"
	ActionResetDemoData        Action = "reset_demo_data"
	ActionSendTestNotification Action = "send_test_notification"
)

func TransitionActions() []Action {
	return []Action{ActionApprove, ActionReject, ActionNeedInfo, ActionProcure, ActionGrantAccess}
}

func (a Action) IsTransition() bool {
	switch a {
	case ActionApprove, ActionReject, ActionNeedInfo, ActionProcure, ActionGrantAccess:
		return true
	}
	return false
}

// ParseTransition accepts the action names used on the wire and on the command line.
func ParseTransition(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve":
		return ActionApprove, nil
	case "reject":
		return ActionReject, nil
	case "need_info", "need-info", "needinfo":
		return ActionNeedInfo, nil
	case "procure":
		return ActionProcure, nil
	case "grant_access", "grant-access", "grant":
		return ActionGrantAccess, nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

var approvers = []domain.Role{domain.RoleAdmin, domain.RoleOpsHR}

var adminOnly = []domain.Role{domain.RoleAdmin}

var actionRoles = map[Action][]domain.Role{
	ActionApprove:     approvers,
	ActionReject:      approvers,
	ActionNeedInfo:    approvers,
	ActionProcure:     approvers,
	ActionGrantAccess: approvers,

	ActionSubmitRequest: domain.Roles(),

	ActionCreateTool:           adminOnly,
	ActionInviteUser:           adminOnly,
	ActionUpdateUserRole:       adminOnly,
	ActionToggleUserStatus:     adminOnly,
	ActionLogFinance:           adminOnly,
	ActionViewFinanceSummary:   adminOnly,
	ActionViewAuditLog:         adminOnly,
	ActionResetDemoData:        adminOnly,
	ActionSendTestNotification: adminOnly,
}

// Can reports whether role may perform action. Unknown actions are denied.
func Can(role domain.Role, action Action) bool {
	for _, r := range actionRoles[action] {
		if r == role {
			return true
		}
	}
	return false
}

// Authorize is Can for a possibly absent principal, shaped as an error for
// service boundaries.
func Authorize(principal *domain.User, action Action) error {
	if principal == nil {
		return internal.ErrAuthenticationRequired
	}
	if !principal.IsActive() || !Can(principal.Role, action) {
		return internal.ErrAuthorizationDenied
	}
	return nil
}

// IsApprover reports whether the role can act on other people's requests.
func IsApprover(role domain.Role) bool {
	return Can(role, ActionApprove)
}

// SeesAllRequests is false for roles scoped to their own requests.
func SeesAllRequests(role domain.Role) bool {
	return role != domain.RoleEmployee && role != domain.RoleIntern
}

// CanViewRequest applies the request scope to a single row.
func CanViewRequest(principal *domain.User, ownerID string) bool {
	if principal == nil {
		return false
	}
	return SeesAllRequests(principal.Role) || principal.UserID == ownerID
}

// CanViewTool hides private_admin tools from everyone but Admin.
func CanViewTool(role domain.Role, t domain.Tool) bool {
	return t.VisibilityLevel != domain.VisibilityPrivateAdmin || role == domain.RoleAdmin
}

func VisibleTools(role domain.Role, tools []domain.Tool) []domain.Tool {
	out := make([]domain.Tool, 0, len(tools))
	for _, t := range tools {
		if CanViewTool(role, t) {
			out = append(out, t)
		}
	}
	return out
}

// ScopeToolRequests drops rows the principal may not see.
func ScopeToolRequests(principal *domain.User, reqs []domain.ToolRequest) []domain.ToolRequest {
	out := make([]domain.ToolRequest, 0, len(reqs))
	for _, r := range reqs {
		if CanViewRequest(principal, r.UserID) {
			out = append(out, r)
		}
	}
	return out
}

func ScopeLeaveRequests(principal *domain.User, reqs []domain.LeaveRequest) []domain.LeaveRequest {
	out := make([]domain.LeaveRequest, 0, len(reqs))
	for _, r := range reqs {
		if CanViewRequest(principal, r.UserID) {
			out = append(out, r)
		}
	}
	return out
}

// Package workflow runs the approval lifecycles of tool and leave requests.
package workflow

import (
	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/frahmantamala/ops-portal/internal/rbac"
)

// NextToolRequestStatus is the tool request transition table. ok is false
// for every pair the table does not list, terminal states included.
func NextToolRequestStatus(from domain.ToolRequestStatus, action rbac.Action) (next domain.ToolRequestStatus, ok bool) {
	switch from {
	case domain.ToolRequestRequested, domain.ToolRequestNeedInfo:
		switch action {
		case rbac.ActionApprove:
			return domain.ToolRequestApproved, true
		case rbac.ActionReject:
			return domain.ToolRequestRejected, true
		case rbac.ActionNeedInfo:
			return domain.ToolRequestNeedInfo, true
		}
	case domain.ToolRequestApproved:
		if action == rbac.ActionProcure {
			return domain.ToolRequestProcured, true
		}
	case domain.ToolRequestProcured:
		if action == rbac.ActionGrantAccess {
			return domain.ToolRequestAccessGranted, true
		}
	case domain.ToolRequestRejected, domain.ToolRequestAccessGranted, domain.ToolRequestClosed:
	}
	return "", false
}

// NextLeaveStatus is the leave request transition table.
func NextLeaveStatus(from domain.LeaveStatus, action rbac.Action) (next domain.LeaveStatus, ok bool) {
	switch from {
	case domain.LeaveRequested, domain.LeaveNeedInfo:
		switch action {
		case rbac.ActionApprove:
			return domain.LeaveApproved, true
		case rbac.ActionReject:
			return domain.LeaveRejected, true
		case rbac.ActionNeedInfo:
			return domain.LeaveNeedInfo, true
		}
	case domain.LeaveApproved, domain.LeaveRejected:
	}
	return "", false
}

// ToolRequestActions lists the actions the table allows from status.
func ToolRequestActions(status domain.ToolRequestStatus) []rbac.Action {
	var out []rbac.Action
	for _, a := range rbac.TransitionActions() {
		if _, ok := NextToolRequestStatus(status, a); ok {
			out = append(out, a)
		}
	}
	return out
}

func LeaveActions(status domain.LeaveStatus) []rbac.Action {
	var out []rbac.Action
	for _, a := range rbac.TransitionActions() {
		if _, ok := NextLeaveStatus(status, a); ok {
			out = append(out, a)
		}
	}
	return out
}

func IsTerminalToolRequest(status domain.ToolRequestStatus) bool {
	return len(ToolRequestActions(status)) == 0
}

func IsTerminalLeave(status domain.LeaveStatus) bool {
	return len(LeaveActions(status)) == 0
}

// allowedFor narrows table actions to those the role may perform.
func allowedFor(principal *domain.User, actions []rbac.Action) []rbac.Action {
	out := []rbac.Action{}
	if principal == nil || !principal.IsActive() {
		return out
	}
	for _, a := range actions {
		if rbac.Can(principal.Role, a) {
			out = append(out, a)
		}
	}
	return out
}

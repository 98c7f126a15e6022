package domain

import (
	"fmt"
	"time"
)

type ToolRequestStatus string

const (
	ToolRequestRequested     ToolRequestStatus = "requested"
	ToolRequestApproved      ToolRequestStatus = "approved"
	ToolRequestRejected      ToolRequestStatus = "rejected"
	ToolRequestNeedInfo      ToolRequestStatus = "need_info"
	ToolRequestProcured      ToolRequestStatus = "procured"
	ToolRequestAccessGranted ToolRequestStatus = "access_granted"
	ToolRequestClosed        ToolRequestStatus = "closed"
)

func ToolRequestStatuses() []ToolRequestStatus {
	return []ToolRequestStatus{
		ToolRequestRequested, ToolRequestApproved, ToolRequestRejected, ToolRequestNeedInfo,
		ToolRequestProcured, ToolRequestAccessGranted, ToolRequestClosed,
	}
}

func ParseToolRequestStatus(s string) (ToolRequestStatus, error) {
	for _, st := range ToolRequestStatuses() {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown tool request status %q", s)
}

// IsPending reports whether the request still waits on an approver decision.
func (s ToolRequestStatus) IsPending() bool {
	return s == ToolRequestRequested || s == ToolRequestNeedInfo
}

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

func (u Urgency) IsValid() bool {
	return u == UrgencyLow || u == UrgencyMedium || u == UrgencyHigh
}

type ToolRequest struct {
	RequestID     string            `json:"request_id"`
	UserID        string            `json:"user_id"`
	ToolName      string            `json:"tool_name"`
	Justification string            `json:"justification"`
	ExpectedUsers int               `json:"expected_users"`
	Urgency       Urgency           `json:"urgency"`
	Status        ToolRequestStatus `json:"status"`
	ApproverID    *string           `json:"approver_id"`
	Notes         string            `json:"notes"`
	CreatedAt     time.Time         `json:"created_at"`
	ActionedAt    *time.Time        `json:"actioned_at,omitempty"`
}

// ToolRequestUpdate is the status write issued by the workflow engine.
type ToolRequestUpdate struct {
	Status     ToolRequestStatus
	ApproverID string
	Notes      string
	ActionedAt time.Time
}

type LeaveStatus string

const (
	LeaveRequested LeaveStatus = "requested"
	LeaveApproved  LeaveStatus = "approved"
	LeaveRejected  LeaveStatus = "rejected"
	LeaveNeedInfo  LeaveStatus = "need_info"
)

func LeaveStatuses() []LeaveStatus {
	return []LeaveStatus{LeaveRequested, LeaveApproved, LeaveRejected, LeaveNeedInfo}
}

func ParseLeaveStatus(s string) (LeaveStatus, error) {
	for _, st := range LeaveStatuses() {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown leave status %q", s)
}

func (s LeaveStatus) IsPending() bool {
	return s == LeaveRequested || s == LeaveNeedInfo
}

type LeaveRequest struct {
	LeaveID    string      `json:"leave_id"`
	UserID     string      `json:"user_id"`
	StartDate  time.Time   `json:"start_date"`
	EndDate    time.Time   `json:"end_date"`
	LeaveType  string      `json:"leave_type"`
	Reason     string      `json:"reason"`
	Status     LeaveStatus `json:"status"`
	ApproverID *string     `json:"approver_id"`
	Notes      string      `json:"notes"`
	CreatedAt  time.Time   `json:"created_at"`
	ActionedAt *time.Time  `json:"actioned_at,omitempty"`
}

// Days counts calendar days in the leave, inclusive of both ends.
func (l *LeaveRequest) Days() int {
	if l.EndDate.Before(l.StartDate) {
		return 0
	}
	return int(l.EndDate.Sub(l.StartDate).Hours()/24) + 1
}

type LeaveRequestUpdate struct {
	Status     LeaveStatus
	ApproverID string
	Notes      string
	ActionedAt time.Time
}

package request

import "time"

type ToolRequest struct {
	RequestID     string     `gorm:"column:request_id;primaryKey"`
	UserID        string     `gorm:"column:user_id;index;not null"`
	ToolName      string     `gorm:"column:tool_name;not null"`
	Justification string     `gorm:"column:justification"`
	ExpectedUsers int        `gorm:"column:expected_users"`
	Urgency       string     `gorm:"column:urgency"`
	Status        string     `gorm:"column:status;index;not null"`
	ApproverID    *string    `gorm:"column:approver_id"`
	Notes         string     `gorm:"column:notes"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	ActionedAt    *time.Time `gorm:"column:actioned_at"`
}

func (ToolRequest) TableName() string {
	return "tool_requests"
}

type LeaveRequest struct {
	LeaveID    string     `gorm:"column:leave_id;primaryKey"`
	UserID     string     `gorm:"column:user_id;index;not null"`
	StartDate  time.Time  `gorm:"column:start_date;type:date;not null"`
	EndDate    time.Time  `gorm:"column:end_date;type:date;not null"`
	LeaveType  string     `gorm:"column:leave_type"`
	Reason     string     `gorm:"column:reason"`
	Status     string     `gorm:"column:status;index;not null"`
	ApproverID *string    `gorm:"column:approver_id"`
	Notes      string     `gorm:"column:notes"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
	ActionedAt *time.Time `gorm:"column:actioned_at"`
}

func (LeaveRequest) TableName() string {
	return "leave_requests"
}

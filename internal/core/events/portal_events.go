package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeToolRequest  = "TOOL_REQUEST"
	EventTypeLeaveRequest = "LEAVE_REQUEST"
	EventTypeStatusUpdate = "STATUS_UPDATE"
	EventTypeFinanceEvent = "FINANCE_EVENT"
)

func EventTypes() []string {
	return []string{EventTypeToolRequest, EventTypeLeaveRequest, EventTypeStatusUpdate, EventTypeFinanceEvent}
}

func IsEventType(s string) bool {
	for _, t := range EventTypes() {
		if t == s {
			return true
		}
	}
	return false
}

// Party identifies a user inside a notification.
type Party struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// Notification is the payload delivered to outbound sinks. DeepLink is a
// portal path until a sink resolves it against the portal base URL.
type Notification struct {
	RequestType string         `json:"requestType"`
	Event       string         `json:"event"`
	ID          string         `json:"id"`
	Requester   Party          `json:"requester"`
	Fields      map[string]any `json:"fields,omitempty"`
	Status      string         `json:"status,omitempty"`
	Approver    *Party         `json:"approver,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	DeepLink    string         `json:"deepLink,omitempty"`
}

type PortalEvent struct {
	ID           string
	Type         string
	Timestamp    time.Time
	Notification Notification
}

func (e *PortalEvent) EventType() string     { return e.Type }
func (e *PortalEvent) EventID() string       { return e.ID }
func (e *PortalEvent) OccurredAt() time.Time { return e.Timestamp }
func (e *PortalEvent) Payload() any          { return e.Notification }

// NewPortalEvent stamps the notification with the event time when it has none.
func NewPortalEvent(eventType string, n Notification) *PortalEvent {
	now := time.Now().UTC()
	if n.Timestamp.IsZero() {
		n.Timestamp = now
	}
	return &PortalEvent{
		ID:           uuid.NewString(),
		Type:         eventType,
		Timestamp:    now,
		Notification: n,
	}
}

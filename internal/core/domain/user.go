package domain

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleFinance  Role = "Finance"
	RoleOpsHR    Role = "Ops/HR"
	RoleEmployee Role = "Employee"
	RoleIntern   Role = "Intern"
)

// Roles lists every role in display order.
func Roles() []Role {
	return []Role{RoleAdmin, RoleFinance, RoleOpsHR, RoleEmployee, RoleIntern}
}

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleFinance, RoleOpsHR, RoleEmployee, RoleIntern:
		return true
	}
	return false
}

// ParseRole accepts the stored value or the compact "OpsHR" spelling, case-insensitively.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, nil
	case "finance":
		return RoleFinance, nil
	case "ops/hr", "opshr", "ops_hr":
		return RoleOpsHR, nil
	case "employee":
		return RoleEmployee, nil
	case "intern":
		return RoleIntern, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

type UserStatus string

const (
	UserStatusActive             UserStatus = "active"
	UserStatusInactive           UserStatus = "inactive"
	UserStatusActiveTempPassword UserStatus = "active_temp_password"
)

func (s UserStatus) IsValid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusActiveTempPassword:
		return true
	}
	return false
}

type User struct {
	UserID       string     `json:"user_id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // never exposed
	Role         Role       `json:"role"`
	Status       UserStatus `json:"status"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

func (u *User) IsActive() bool {
	return u.Status != UserStatusInactive
}

// Person is the public identity triple carried in notifications and listings.
func (u *User) Person() Person {
	return Person{UserID: u.UserID, Name: u.Name, Email: u.Email}
}

type Person struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// UserPatch carries the fields of a partial user update; nil means unchanged.
type UserPatch struct {
	Name         *string
	Email        *string
	PasswordHash *string
	Role         *Role
	Status       *UserStatus
}

func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.PasswordHash == nil && p.Role == nil && p.Status == nil
}

// NormalizeEmail is applied before every lookup or comparison of an email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailDomain returns the normalized part after the last "@", or "" if there is none.
func EmailDomain(email string) string {
	email = NormalizeEmail(email)
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return email[at+1:]
}

type EmploymentType string

const (
	EmploymentFullTime EmploymentType = "full_time"
	EmploymentContract EmploymentType = "contract"
	EmploymentIntern   EmploymentType = "intern"
)

type Employee struct {
	EmployeeID     string         `json:"employee_id"`
	UserID         string         `json:"user_id"`
	Department     string         `json:"department"`
	ManagerID      *string        `json:"manager_id"`
	JoiningDate    *time.Time     `json:"joining_date,omitempty"`
	EmploymentType EmploymentType `json:"employment_type"`
	WorkLocation   string         `json:"work_location"`
	Timezone       string         `json:"timezone"`
	Birthday       *time.Time     `json:"birthday,omitempty"`
}

// NextBirthday returns the next occurrence of the employee's birthday on or after the given day.
func (e *Employee) NextBirthday(from time.Time) (time.Time, bool) {
	if e.Birthday == nil || e.Birthday.IsZero() {
		return time.Time{}, false
	}
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	next := time.Date(day.Year(), e.Birthday.Month(), e.Birthday.Day(), 0, 0, 0, 0, from.Location())
	if next.Before(day) {
		next = next.AddDate(1, 0, 0)
	}
	return next, true
}

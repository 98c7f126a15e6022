// Package user serves the people directory and the admin user management
// operations.
package user

import "github.com/frahmantamala/ops-portal/internal/core/domain"

const unknownName = "Unknown"

// DirectoryEntry is an employee row joined with its user account.
type DirectoryEntry struct {
	domain.Employee
	Name   string            `json:"name"`
	Email  string            `json:"email"`
	Role   domain.Role       `json:"role"`
	Status domain.UserStatus `json:"status"`
}

type Directory struct {
	Entries []DirectoryEntry `json:"entries"`
}

// Account is the admin view of a user; it never carries the secret.
type Account struct {
	UserID string            `json:"user_id"`
	Name   string            `json:"name"`
	Email  string            `json:"email"`
	Role   domain.Role       `json:"role"`
	Status domain.UserStatus `json:"status"`
}

func accountOf(u domain.User) Account {
	return Account{UserID: u.UserID, Name: u.Name, Email: u.Email, Role: u.Role, Status: u.Status}
}

// Invitation is returned once, right after the invite; the temporary
// password is not retrievable afterwards.
type Invitation struct {
	User         Account         `json:"user"`
	Employee     domain.Employee `json:"employee"`
	TempPassword string          `json:"temp_password"`
}

func joinEntry(e domain.Employee, byID map[string]domain.User) DirectoryEntry {
	entry := DirectoryEntry{Employee: e, Name: unknownName, Role: domain.RoleEmployee}
	if u, ok := byID[e.UserID]; ok {
		entry.Name = u.Name
		entry.Email = u.Email
		entry.Role = u.Role
		entry.Status = u.Status
	}
	return entry
}

package user

import (
	"strings"
	"time"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/core/common/validation"
	"github.com/frahmantamala/ops-portal/internal/core/domain"
)

const dateLayout = "2006-01-02"

const (
	defaultDepartment   = "Engineering"
	defaultWorkLocation = "Remote"
	defaultTimezone     = "UTC"
)

type InviteRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	Department     string `json:"department"`
	JoiningDate    string `json:"joining_date"`
	EmploymentType string `json:"employment_type"`
	WorkLocation   string `json:"work_location"`
	Timezone       string `json:"timezone"`
	Birthday       string `json:"birthday"`
}

func (dto InviteRequest) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("name", dto.Name).Required().MaxLength(200)
	v.Field("email", dto.Email).Required().Email()
	v.Field("role", dto.Role).Required().Custom(roleValidator("role"))
	v.Field("employment_type", dto.EmploymentType).OneOf(
		string(domain.EmploymentFullTime), string(domain.EmploymentContract), string(domain.EmploymentIntern))
	v.Field("joining_date", dto.JoiningDate).Custom(dateValidator("joining_date"))
	v.Field("birthday", dto.Birthday).Custom(dateValidator("birthday"))
	return v.Validate()
}

// User builds the account row; the caller sets the secret.
func (dto InviteRequest) User() domain.User {
	role, _ := domain.ParseRole(dto.Role)
	return domain.User{
		Name:   strings.TrimSpace(dto.Name),
		Email:  domain.NormalizeEmail(dto.Email),
		Role:   role,
		Status: domain.UserStatusActiveTempPassword,
	}
}

// Employee builds the HR row for a freshly created user. Invited employees
// start without a manager.
func (dto InviteRequest) Employee(userID string, today time.Time) domain.Employee {
	e := domain.Employee{
		UserID:         userID,
		Department:     firstNonEmpty(dto.Department, defaultDepartment),
		EmploymentType: domain.EmploymentType(firstNonEmpty(dto.EmploymentType, string(domain.EmploymentFullTime))),
		WorkLocation:   firstNonEmpty(dto.WorkLocation, defaultWorkLocation),
		Timezone:       firstNonEmpty(dto.Timezone, defaultTimezone),
	}

	joined := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	if d, err := time.Parse(dateLayout, dto.JoiningDate); err == nil {
		joined = d
	}
	e.JoiningDate = &joined

	if d, err := time.Parse(dateLayout, dto.Birthday); err == nil {
		e.Birthday = &d
	}
	return e
}

type UpdateRoleRequest struct {
	Role string `json:"role"`
}

func (dto UpdateRoleRequest) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("role", dto.Role).Required().Custom(roleValidator("role"))
	return v.Validate()
}

func roleValidator(field string) func(any) *internal.AppError {
	return func(value any) *internal.AppError {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		if _, err := domain.ParseRole(s); err != nil {
			return internal.NewValidationFieldError(field, err.Error(), internal.ErrCodeInvalidEnum)
		}
		return nil
	}
}

func dateValidator(field string) func(any) *internal.AppError {
	return func(value any) *internal.AppError {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		if _, err := time.Parse(dateLayout, s); err != nil {
			return internal.NewValidationFieldError(field, field+" must be a date in YYYY-MM-DD form", internal.ErrCodeInvalidDate)
		}
		return nil
	}
}

func firstNonEmpty(v, fallback string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return fallback
}

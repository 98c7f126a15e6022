package identity

import (
	"time"

	"github.com/frahmantamala/ops-portal/internal/core/common/validation"
	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/frahmantamala/ops-portal/internal/rbac"
)

const minPasswordLength = 8

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d LoginRequest) Validate() error {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	v.Field("password", d.Password).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type DelegatedLoginRequest struct {
	IDToken string `json:"id_token"`
}

func (d DelegatedLoginRequest) Validate() error {
	v := validation.NewValidator()
	v.Field("id_token", d.IDToken).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (d ChangePasswordRequest) Validate() error {
	v := validation.NewValidator()
	v.Field("current_password", d.CurrentPassword).Required()
	v.Field("new_password", d.NewPassword).Required().MinLength(minPasswordLength).MaxLength(72)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

type MeResponse struct {
	User          *domain.User   `json:"user"`
	Navigation    []rbac.NavItem `json:"navigation"`
	RequestsTitle string         `json:"requests_title"`
	MustChange    bool           `json:"must_change_password"`
}

func NewMeResponse(u *domain.User) MeResponse {
	return MeResponse{
		User:          u,
		Navigation:    rbac.NavItems(u.Role),
		RequestsTitle: rbac.RequestsTitle(u.Role),
		MustChange:    u.Status == domain.UserStatusActiveTempPassword,
	}
}

package identity

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/rbac"
	"github.com/frahmantamala/ops-portal/internal/transport"
)

const stateCookie = "ops_portal_oidc_state"

type Handler struct {
	*transport.BaseHandler
	Service *Service
	OIDC    *OIDCProvider
	// SecureCookies marks the OIDC state cookie Secure; set it behind HTTPS.
	SecureCookies bool
}

// NewHandler builds the sign-in endpoints. provider may be nil.
func NewHandler(svc *Service, provider *OIDCProvider, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger),
		Service:     svc,
		OIDC:        provider,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginRequest
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	res, err := h.Service.Login(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) LoginDelegated(w http.ResponseWriter, r *http.Request) {
	var dto DelegatedLoginRequest
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	res, err := h.Service.LoginDelegated(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, res)
}

// OIDCLogin starts the authorization code flow with a one-time state cookie.
func (h *Handler) OIDCLogin(w http.ResponseWriter, r *http.Request) {
	if h.OIDC == nil {
		h.HandleServiceError(w, r, internal.NewNotImplementedError("Delegated sign-in is not configured"))
		return
	}

	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		h.HandleServiceError(w, r, internal.NewInternalError("Failed to start sign-in", err))
		return
	}
	state := base64.RawURLEncoding.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.OIDC.AuthCodeURL(state), http.StatusFound)
}

func (h *Handler) OIDCCallback(w http.ResponseWriter, r *http.Request) {
	if h.OIDC == nil {
		h.HandleServiceError(w, r, internal.NewNotImplementedError("Delegated sign-in is not configured"))
		return
	}

	cookie, err := r.Cookie(stateCookie)
	state := r.URL.Query().Get("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		h.HandleServiceError(w, r, internal.ErrAuthenticationFailed)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: h.SecureCookies})

	code := r.URL.Query().Get("code")
	if code == "" {
		h.HandleServiceError(w, r, internal.NewValidationError("Missing authorization code", internal.ErrCodeValidationFailed))
		return
	}

	rawIDToken, err := h.OIDC.Exchange(r.Context(), code)
	if err != nil {
		h.Logger.WarnContext(r.Context(), "authorization code exchange failed", "error", err)
		h.HandleServiceError(w, r, internal.ErrAuthenticationFailed)
		return
	}

	res, err := h.Service.LoginDelegated(r.Context(), DelegatedLoginRequest{IDToken: rawIDToken})
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, res)
}

// Logout is stateless: the client drops its token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if p, ok := internal.PrincipalFromContext(r.Context()); ok {
		h.Logger.InfoContext(r.Context(), "signed out", "user_id", p.UserID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, r, internal.ErrAuthenticationRequired)
		return
	}
	h.WriteJSON(w, http.StatusOK, NewMeResponse(p))
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p, _ := internal.PrincipalFromContext(r.Context())

	var dto ChangePasswordRequest
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	res, err := h.Service.ChangePassword(r.Context(), p, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) Navigation(w http.ResponseWriter, r *http.Request) {
	p, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, r, internal.ErrAuthenticationRequired)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]any{
		"items":          rbac.NavItems(p.Role),
		"requests_title": rbac.RequestsTitle(p.Role),
	})
}

// NavigationCheck answers for signed-out callers too, so a bearer token is
// optional here and an unusable one counts as signed out.
func (h *Handler) NavigationCheck(w http.ResponseWriter, r *http.Request) {
	var decision rbac.NavDecision
	route := r.URL.Query().Get("route")

	if token := h.ExtractTokenFromHeader(r); token != "" {
		p, err := h.Service.ResolveToken(r.Context(), token)
		if err == nil {
			decision = rbac.Navigate(p, route)
			h.WriteJSON(w, http.StatusOK, decision)
			return
		}
		if appErr, ok := internal.IsAppError(err); !ok || appErr.StatusCode != http.StatusUnauthorized {
			h.HandleServiceError(w, r, err)
			return
		}
	}

	decision = rbac.Navigate(nil, route)
	h.WriteJSON(w, http.StatusOK, decision)
}

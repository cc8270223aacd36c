package httpapi

import (
	"net/http"

	"academihub.org/internal/audit"
	"academihub.org/internal/auth"
)

type signupRequest struct {
	Name      string `json:"name" validate:"required,notblank,max=100"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,max=128"`
	Role      string `json:"role" validate:"omitempty,role"`
	AdminCode string `json:"admin_code" validate:"max=128"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type googleRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

type profileRequest struct {
	Name      *string `json:"name" validate:"omitempty,notblank,max=100"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url,max=500"`
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,max=128"`
}

type capabilitiesResponse struct {
	Role         auth.Role                       `json:"role"`
	Capabilities map[auth.Resource][]auth.Action `json:"capabilities"`
}

// handleSignup godoc
// @Summary Register an account
// @Tags auth
// @Accept json
// @Produce json
// @Param body body signupRequest true "Account details"
// @Success 201 {object} auth.Session
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /v1/auth/signup [post]
func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	if a.svc.Auth == nil {
		unavailable(w, r, "auth")
		return
	}
	var req signupRequest
	if err := a.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	sess, err := a.svc.Auth.Signup(r.Context(), auth.SignupInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
		AdminCode: req.AdminCode,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.signup", map[string]any{
		"user_id": sess.User.ID,
		"role":    string(sess.User.Role),
	})
	writeJSON(w, http.StatusCreated, sess)
}

// handleLogin godoc
// @Summary Sign in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param body body loginRequest true "Credentials"
// @Success 200 {object} auth.Session
// @Failure 401 {object} errorResponse
// @Failure 429 {object} errorResponse
// @Router /v1/auth/login [post]
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if a.svc.Auth == nil {
		unavailable(w, r, "auth")
		return
	}
	var req loginRequest
	if err := a.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	sess, err := a.svc.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		_ = audit.LogEvent(r.Context(), "auth.login.failed", map[string]any{
			"remote_ip": clientIP(r),
		})
		fail(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id": sess.User.ID,
	})
	writeJSON(w, http.StatusOK, sess)
}

func (a *API) handleGoogle(w http.ResponseWriter, r *http.Request) {
	if a.svc.Auth == nil {
		unavailable(w, r, "auth")
		return
	}
	var req googleRequest
	if err := a.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	sess, err := a.svc.Auth.GoogleSignIn(r.Context(), req.IDToken)
	if err != nil {
		fail(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id":  sess.User.ID,
		"provider": auth.ProviderGoogle,
	})
	writeJSON(w, http.StatusOK, sess)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if a.svc.Auth == nil {
		unavailable(w, r, "auth")
		return
	}
	who, ok := identity(w, r)
	if !ok {
		return
	}
	u, err := a.svc.Auth.Me(r.Context(), who.UserID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	if a.svc.Auth == nil {
		unavailable(w, r, "auth")
		return
	}
	who, ok := identity(w, r)
	if !ok {
		return
	}
	var req profileRequest
	if err := a.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	u, err := a.svc.Auth.UpdateProfile(r.Context(), who.UserID, req.Name, req.AvatarURL)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if a.svc.Auth == nil {
		unavailable(w, r, "auth")
		return
	}
	who, ok := identity(w, r)
	if !ok {
		return
	}
	var req passwordRequest
	if err := a.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if err := a.svc.Auth.ChangePassword(r.Context(), who.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		fail(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.password.changed", nil)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	who, ok := identity(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, capabilitiesResponse{
		Role:         who.Role,
		Capabilities: auth.Capabilities(who.Role),
	})
}

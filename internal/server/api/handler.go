package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/visadesk/internal/common"
	"github.com/dmitrijs2005/visadesk/internal/logging"
	"github.com/dmitrijs2005/visadesk/internal/server/auth"
	"github.com/dmitrijs2005/visadesk/internal/server/metrics"
	"github.com/dmitrijs2005/visadesk/internal/server/services"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

// AuthHandler serves the /api/auth routes.
type AuthHandler struct {
	svc     UserServiceProvider
	metrics *metrics.Metrics
	logger  logging.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc UserServiceProvider, m *metrics.Metrics, logger logging.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, metrics: m, logger: logger}
}

// fail writes the error envelope for err and logs server-side failures.
func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)

	var ve *common.ValidationError
	if errors.As(err, &ve) {
		respondError(w, status, msg, ve.Errors...)
		return
	}
	if status == http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	respondError(w, status, msg)
}

// decode reads a JSON body into dst. An empty body leaves dst zero-valued.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return common.NewValidationError("request body must be a valid JSON object")
	}
	return nil
}

func principal(r *http.Request) *auth.Principal {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p
}

// Register creates the first admin.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := decode(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.svc.RegisterFirstAdmin(r.Context(), in)
	h.metrics.AuthEvent("register", err == nil)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "Admin registered successfully", payload{"user": res.User, "token": res.Token})
}

// Login exchanges credentials for a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in services.LoginInput
	if err := decode(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.svc.Login(r.Context(), in)
	h.metrics.AuthEvent("login", err == nil)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			h.logger.Warn(r.Context(), "failed login attempt", "username", in.UserName)
		}
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Login successful", payload{"user": res.User, "token": res.Token})
}

// AddCoadmin creates a co-admin account.
func (h *AuthHandler) AddCoadmin(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := decode(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.svc.AddCoadmin(r.Context(), principal(r), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "Coadmin created successfully", payload{"user": user})
}

func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.GetProfile(r.Context(), principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", payload{"user": user})
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in services.UpdateProfileInput
	if err := decode(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.svc.UpdateProfile(r.Context(), principal(r), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Profile updated successfully", payload{"user": user})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var in services.ChangePasswordInput
	if err := decode(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.svc.ChangePassword(r.Context(), principal(r), in); err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Password changed successfully", nil)
}

// ListUsers reads page, limit, search and role from the query string.
// Unparsable numbers fall back to defaults.
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	res, err := h.svc.ListUsers(r.Context(), principal(r), services.ListUsersInput{
		Page:   page,
		Limit:  limit,
		Search: q.Get("search"),
		Role:   q.Get("role"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", payload{"users": res.Users, "pagination": res.Pagination})
}

func (h *AuthHandler) GetUserStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.GetUserStats(r.Context(), principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", payload{"stats": st})
}

func (h *AuthHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.GetUserByID(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", payload{"user": user})
}

func (h *AuthHandler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	var in services.UpdateRoleInput
	if err := decode(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.svc.UpdateUserRole(r.Context(), principal(r), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, fmt.Sprintf("User role updated to %s", user.Role), payload{"user": user})
}

func (h *AuthHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.DeleteUser(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, fmt.Sprintf("User %s deleted successfully", user.UserName), nil)
}

func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.RefreshToken(r.Context(), principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Token refreshed successfully", payload{"token": res.Token, "user": res.User})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), principal(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Logged out successfully", nil)
}

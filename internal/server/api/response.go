package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/visadesk/internal/common"
)

// payload holds the fields merged into a success envelope.
type payload map[string]any

type errorBody struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respond writes {success: true, message?, ...p}.
func respond(w http.ResponseWriter, status int, message string, p payload) {
	body := payload{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range p {
		body[k] = v
	}
	writeJSON(w, status, body)
}

func respondError(w http.ResponseWriter, status int, message string, errs ...string) {
	writeJSON(w, status, errorBody{Success: false, Message: message, Errors: errs})
}

type errorMapping struct {
	err     error
	status  int
	message string
}

var errorMappings = []errorMapping{
	{common.ErrorInvalidRole, http.StatusBadRequest, "Invalid role. Must be 'admin' or 'coadmin'"},
	{common.ErrAdminExists, http.StatusForbidden, "Admin already exists. Only one admin is allowed."},
	{common.ErrAdminAlreadyExists, http.StatusForbidden, "Only one admin is allowed"},
	{common.ErrDuplicateUsername, http.StatusConflict, "Username already exists"},
	{common.ErrDuplicateEmail, http.StatusConflict, "Email already exists"},
	{common.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid username or password"},
	{common.ErrTokenExpired, http.StatusUnauthorized, "Not authorized, token expired"},
	{common.ErrTokenRevoked, http.StatusUnauthorized, "Not authorized, token revoked"},
	{common.ErrInvalidToken, http.StatusUnauthorized, "Not authorized, token failed"},
	{common.ErrForbidden, http.StatusForbidden, "Access denied. Admin only."},
	{common.ErrSelfRoleChange, http.StatusBadRequest, "You cannot change your own role"},
	{common.ErrSelfDelete, http.StatusBadRequest, "You cannot delete your own account"},
	{common.ErrAdminProtected, http.StatusForbidden, "Cannot delete admin user"},
	{common.ErrCurrentPasswordMismatch, http.StatusBadRequest, "Current password is incorrect"},
	{common.ErrPasswordUnchanged, http.StatusBadRequest, "New password must be different from current password"},
	{common.ErrorNotFound, http.StatusNotFound, "User not found"},
}

// statusFor maps a service error to an HTTP status and client message.
// Unknown errors become a generic 500.
func statusFor(err error) (int, string) {
	var ve *common.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, "Validation failed"
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.message
		}
	}
	return http.StatusInternalServerError, "Internal server error"
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"media-catalog/internal/catalog"
	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

// LoginRequest represents a login request with password only
type LoginRequest struct {
	Password string `json:"password"`
}

// SetupRequest represents an initial setup request to create the password
type SetupRequest struct {
	Password string `json:"password"`
}

// PasswordChangeRequest represents a request to change the password
type PasswordChangeRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// AuthResponse represents the response from authentication endpoints
type AuthResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"` // Seconds until session expires
}

const (
	// SessionCookieName is the name of the session cookie
	SessionCookieName = "media_catalog_session"
)

// publicPaths are reachable without a session.
var publicPaths = map[string]struct{}{
	"/health":  {},
	"/livez":   {},
	"/readyz":  {},
	"/version": {},
	"/metrics": {},
}

// CheckSetupRequired returns whether initial setup is needed
func (h *Handlers) CheckSetupRequired(w http.ResponseWriter, _ *http.Request) {
	needsSetup := !h.store.HasUsers()

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]bool{
		"needsSetup": needsSetup,
	})
}

// Setup creates the initial password
func (h *Handlers) Setup(w http.ResponseWriter, r *http.Request) {
	// Only allow setup if no users exist
	if h.store.HasUsers() {
		http.Error(w, "Setup already completed", http.StatusForbidden)
		return
	}

	var req SetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if len(req.Password) < 6 {
		http.Error(w, "Password must be at least 6 characters", http.StatusBadRequest)
		return
	}

	if len(req.Password) > 72 {
		http.Error(w, "Password must not exceed 72 characters", http.StatusBadRequest)
		return
	}

	if err := h.store.CreateUser(req.Password); err != nil {
		logging.Error("Failed to create user: %v", err)
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	logging.Info("Initial password configured")

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, AuthResponse{
		Success: true,
		Message: "Password configured successfully",
	})
}

// Login authenticates with password
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.store.ValidatePassword(req.Password)
	if err != nil {
		logging.Warn("Failed login attempt")
		metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
		http.Error(w, "Invalid password", http.StatusUnauthorized)
		return
	}

	metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()

	session, err := h.store.CreateSession(user.ID)
	if err != nil {
		logging.Error("Failed to create session: %v", err)
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	logging.Info("User logged in, session expires in %v", catalog.SessionDuration)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, AuthResponse{
		Success:   true,
		ExpiresIn: int(catalog.SessionDuration.Seconds()),
	})
}

// Logout ends the current session
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		// Best-effort session cleanup - don't fail logout if this errors
		if err := h.store.DeleteSession(token); err != nil {
			logging.Error("failed to delete session during logout: %v", err)
		}
	}

	clearSessionCookie(w)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, AuthResponse{
		Success: true,
		Message: "Logged out successfully",
	})
}

// CheckAuth verifies the current session
func (h *Handlers) CheckAuth(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	if token == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if _, err := h.store.ValidateSession(token); err != nil {
		clearSessionCookie(w)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, AuthResponse{
		Success:   true,
		ExpiresIn: int(catalog.SessionDuration.Seconds()),
	})
}

// ChangePassword handles password change requests
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if _, err := h.store.ValidatePassword(req.CurrentPassword); err != nil {
		logging.Warn("Failed password change attempt - invalid current password")
		http.Error(w, "Current password is incorrect", http.StatusUnauthorized)
		return
	}

	if len(req.NewPassword) < 6 {
		http.Error(w, "New password must be at least 6 characters", http.StatusBadRequest)
		return
	}

	if len(req.NewPassword) > 72 {
		http.Error(w, "New password must not exceed 72 characters", http.StatusBadRequest)
		return
	}

	if err := h.store.UpdatePassword(req.NewPassword); err != nil {
		logging.Error("Failed to update password: %v", err)
		http.Error(w, "Failed to update password", http.StatusInternalServerError)
		return
	}

	logging.Info("Password changed successfully")

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, AuthResponse{
		Success: true,
		Message: "Password updated successfully",
	})
}

// AuthMiddleware protects routes that require authentication
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := publicPaths[r.URL.Path]; ok || strings.HasPrefix(r.URL.Path, "/api/auth/") {
			next.ServeHTTP(w, r)
			return
		}

		token := sessionToken(r)
		if token == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if _, err := h.store.ValidateSession(token); err != nil {
			clearSessionCookie(w)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// sessionToken extracts the session token from the cookie, a bearer
// Authorization header, or the token query parameter. The query form
// exists for playlist segment URLs and media elements, which cannot
// attach headers.
func sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok && token != "" {
			return token
		}
	}

	return r.URL.Query().Get("token")
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/hoteldesk/conciergebot/internal/database"
)

// newSignupHandler handles POST /signup form submissions. Credentials
// are compared and stored as-is; see DESIGN.md for the inherited debt.
func newSignupHandler(deps Deps) http.HandlerFunc {
	log := deps.Logger.With("handler", "signup")

	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid form data"})
			return
		}

		username := r.PostFormValue("username")
		password := r.PostFormValue("password")
		if username == "" || password == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Username and password are required"})
			return
		}

		err := deps.Store.CreateUser(r.Context(), username, password)
		switch {
		case errors.Is(err, database.ErrUsernameTaken):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Username already exists"})
			return
		case err != nil:
			log.Error("Signup failed", "username", username, "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"})
			return
		}

		log.Info("User signed up", "username", username)
		http.Redirect(w, r, "/chat?username="+url.QueryEscape(username), http.StatusSeeOther)
	}
}

// newLoginHandler handles POST /login form submissions.
func newLoginHandler(deps Deps) http.HandlerFunc {
	log := deps.Logger.With("handler", "login")

	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid form data"})
			return
		}

		username := r.PostFormValue("username")
		password := r.PostFormValue("password")

		_, err := deps.Store.Authenticate(r.Context(), username, password)
		switch {
		case errors.Is(err, database.ErrInvalidCredentials):
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Invalid credentials"})
			return
		case err != nil:
			log.Error("Login failed", "username", username, "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
			return
		}

		http.Redirect(w, r, "/chat?username="+url.QueryEscape(username), http.StatusSeeOther)
	}
}

// newAdminAIToggleHandler handles POST /admin/users/{username}/ai: the
// operator switch that routes a user's messages to a human instead of
// the model. Disabled entirely when no admin token is configured.
func newAdminAIToggleHandler(deps Deps) http.HandlerFunc {
	log := deps.Logger.With("handler", "admin_ai_toggle")

	return func(w http.ResponseWriter, r *http.Request) {
		token := deps.Config.Server.AdminToken
		if token == "" || r.Header.Get("X-Admin-Token") != token {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
			return
		}

		username := r.PathValue("username")
		if username == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Username is required"})
			return
		}

		var req struct {
			Enabled bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON body"})
			return
		}

		if err := deps.Store.SetUserAIEnabled(r.Context(), username, req.Enabled); err != nil {
			log.Error("Failed to toggle ai_enabled", "username", username, "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"})
			return
		}

		log.Info("Toggled automated replies", "username", username, "enabled", req.Enabled)
		writeJSON(w, http.StatusOK, map[string]any{"username": username, "ai_enabled": req.Enabled})
	}
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hoteldesk/conciergebot/internal/session"
)

const historyTimestampFormat = "2006-01-02 15:04:05"

type chatRequest struct {
	Message  string `json:"message"`
	Username string `json:"username"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type historyItem struct {
	UserMessage string `json:"user_message"`
	BotResponse string `json:"bot_response"`
	Timestamp   string `json:"timestamp"`
}

type historyResponse struct {
	History []historyItem `json:"history"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeRouterError maps session errors onto the web channel's status
// codes and error payloads.
func writeRouterError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, session.ErrEmptyMessage):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No message provided"})
	case errors.Is(err, session.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "AI service not available."})
	default:
		log.Error("Chat turn failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

// newChatHandler handles POST /chat: one JSON chat turn.
func newChatHandler(deps Deps) http.HandlerFunc {
	log := deps.Logger.With("handler", "chat")

	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON body"})
			return
		}
		if req.Username == "" {
			req.Username = "guest"
		}

		reply, err := deps.Router.HandleTurn(r.Context(), req.Username, req.Message)
		if err != nil {
			writeRouterError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, chatResponse{Response: reply})
	}
}

// newHistoryHandler handles GET /chat/history: the full per-user
// transcript, oldest first. Two calls with no chat activity in between
// return identical results.
func newHistoryHandler(deps Deps) http.HandlerFunc {
	log := deps.Logger.With("handler", "history")

	return func(w http.ResponseWriter, r *http.Request) {
		username := r.URL.Query().Get("username")
		if username == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Username is required"})
			return
		}

		entries, err := deps.Store.GetHistoryByUsername(r.Context(), username)
		if err != nil {
			log.Error("Failed to fetch history", "username", username, "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Could not retrieve chat history."})
			return
		}

		items := make([]historyItem, 0, len(entries))
		for _, e := range entries {
			ts := "N/A"
			if !e.Timestamp.IsZero() {
				ts = e.Timestamp.UTC().Format(historyTimestampFormat)
			}
			items = append(items, historyItem{
				UserMessage: e.UserMessage,
				BotResponse: e.BotResponse,
				Timestamp:   ts,
			})
		}

		writeJSON(w, http.StatusOK, historyResponse{History: items})
	}
}

// newHealthHandler reports store reachability.
func newHealthHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := deps.Store.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "database unreachable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

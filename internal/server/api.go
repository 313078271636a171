package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/ronypadmani/AI-meeting-Assistant/internal/annotate"
	"github.com/ronypadmani/AI-meeting-Assistant/internal/session"
)

var sessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// SessionManager is the control surface the API exposes over HTTP.
type SessionManager interface {
	Start(ctx context.Context, name string) (session.Info, error)
	Stop(ctx context.Context) (annotate.MeetingSummary, error)
	Active() (session.Info, bool)
	Get(id string) (session.Info, error)
	Chunks(id string) ([]annotate.AnnotatedChunk, error)
	Summary(id string) (annotate.MeetingSummary, error)
	List() []session.Info
}

func registerAPIRoutes(mux *http.ServeMux, manager SessionManager) {
	mux.HandleFunc("POST /api/sessions/start", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name string `json:"name"`
		}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}

		info, err := manager.Start(r.Context(), body.Name)
		if err != nil {
			if errors.Is(err, session.ErrSessionActive) {
				writeJSONError(w, http.StatusConflict, "a session is already active")
				return
			}
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("start session: %v", err))
			return
		}

		writeJSON(w, http.StatusCreated, info)
	})

	mux.HandleFunc("POST /api/sessions/stop", func(w http.ResponseWriter, r *http.Request) {
		summary, err := manager.Stop(r.Context())
		if err != nil {
			switch {
			case errors.Is(err, session.ErrNoActiveSession):
				writeJSONError(w, http.StatusNotFound, "no active session")
			case errors.Is(err, session.ErrFinalizeInFlight):
				writeJSONError(w, http.StatusConflict, "finalize already in progress")
			default:
				writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("stop session: %v", err))
			}
			return
		}

		writeJSON(w, http.StatusOK, summary)
	})

	mux.HandleFunc("GET /api/sessions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, manager.List())
	})

	mux.HandleFunc("GET /api/sessions/active", func(w http.ResponseWriter, r *http.Request) {
		info, ok := manager.Active()
		if !ok {
			writeJSONError(w, http.StatusNotFound, "no active session")
			return
		}
		writeJSON(w, http.StatusOK, info)
	})

	mux.HandleFunc("GET /api/sessions/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("id")
		if !validSessionID(sessionID) {
			writeJSONError(w, http.StatusForbidden, "invalid session id")
			return
		}

		info, err := manager.Get(sessionID)
		if err != nil {
			if errors.Is(err, session.ErrSessionNotFound) {
				writeJSONError(w, http.StatusNotFound, "session not found")
				return
			}
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("get session: %v", err))
			return
		}

		writeJSON(w, http.StatusOK, info)
	})

	mux.HandleFunc("GET /api/sessions/{id}/chunks", func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("id")
		if !validSessionID(sessionID) {
			writeJSONError(w, http.StatusForbidden, "invalid session id")
			return
		}

		chunks, err := manager.Chunks(sessionID)
		if err != nil {
			if errors.Is(err, session.ErrSessionNotFound) {
				writeJSONError(w, http.StatusNotFound, "session not found")
				return
			}
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("get chunks: %v", err))
			return
		}
		if chunks == nil {
			chunks = []annotate.AnnotatedChunk{}
		}

		writeJSON(w, http.StatusOK, chunks)
	})

	mux.HandleFunc("GET /api/sessions/{id}/summary", func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("id")
		if !validSessionID(sessionID) {
			writeJSONError(w, http.StatusForbidden, "invalid session id")
			return
		}

		summary, err := manager.Summary(sessionID)
		if err != nil {
			if errors.Is(err, session.ErrSessionNotFound) {
				writeJSONError(w, http.StatusNotFound, "summary not available")
				return
			}
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("get summary: %v", err))
			return
		}

		writeJSON(w, http.StatusOK, summary)
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		_, active := manager.Active()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":         "ok",
			"active_session": active,
		})
	})
}

func validSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

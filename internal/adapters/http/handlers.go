package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"activityboard/internal/adapters/http/middleware"
	auditStore "activityboard/internal/adapters/storage/audit"
	auditDomain "activityboard/internal/domain/audit"
)

// maxFormBytes bounds a board form post.
const maxFormBytes = 16 << 10

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write_failed", "error", err)
	}
}

// viewer returns the request's session or writes a 500.
func viewer(w http.ResponseWriter, r *http.Request) (middleware.Session, bool) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		internalError(w, errors.New("no viewer session on board route"))
	}
	return sess, ok
}

// parseForm reads a size-bounded urlencoded body.
func parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return false
	}
	return true
}

func backToBoard(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleBoard renders the board (GET /). A page view is a page load and
// fetches the activity list again, except for the redirect right after an
// action, which shows the document that action produced.
// PRE: Viewer session in context
// POST: Board HTML written
func (s *server) handleBoard(w http.ResponseWriter, r *http.Request) {
	sess, ok := viewer(w, r)
	if !ok {
		return
	}
	if !sess.Board.ConsumeFresh() {
		sess.Board.LoadActivities(r.Context())
	}
	s.render.renderBoard(w, r, sess.Board.Document(), s.now())
}

// handleSignup relays the signup form (POST /board/signup).
// PRE: Valid CSRF token; form fields email, activity
// POST: Status message set on the viewer's board; 303 to /
func (s *server) handleSignup(w http.ResponseWriter, r *http.Request) {
	sess, ok := viewer(w, r)
	if !ok || !parseForm(w, r) {
		return
	}
	sess.Board.SubmitSignup(r.Context(), r.PostForm.Get("activity"), r.PostForm.Get("email"))
	backToBoard(w, r)
}

// handleUnregister relays a participant delete (POST /board/unregister).
// PRE: Valid CSRF token; form fields activity, email
// POST: Status message set unless either field is empty; 303 to /
func (s *server) handleUnregister(w http.ResponseWriter, r *http.Request) {
	sess, ok := viewer(w, r)
	if !ok || !parseForm(w, r) {
		return
	}
	sess.Board.SubmitUnregister(r.Context(), r.PostForm.Get("activity"), r.PostForm.Get("email"))
	backToBoard(w, r)
}

// handleReload refetches the activity list (POST /board/reload).
func (s *server) handleReload(w http.ResponseWriter, r *http.Request) {
	sess, ok := viewer(w, r)
	if !ok {
		return
	}
	sess.Board.Reload(r.Context())
	backToBoard(w, r)
}

type statusResponse struct {
	ID          string `json:"id,omitempty"`
	Text        string `json:"text"`
	Kind        string `json:"kind"`
	Visible     bool   `json:"visible"`
	Class       string `json:"class"`
	RemainingMs int64  `json:"remaining_ms"`
}

// handleStatus returns the viewer's status message (GET /board/status).
func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := viewer(w, r)
	if !ok {
		return
	}
	msg := sess.Board.Document().Message
	writeJSON(w, http.StatusOK, statusResponse{
		ID:          msg.ID,
		Text:        msg.Text,
		Kind:        string(msg.Kind),
		Visible:     msg.Visible,
		Class:       msg.Class(),
		RemainingMs: msg.Remaining(s.now()).Milliseconds(),
	})
}

// handleHealthz reports liveness and, when configured, audit database reachability.
func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok", "sessions": s.deps.Sessions.Len()}
	if s.deps.AuditDB != nil {
		if err := s.deps.AuditDB.PingContext(r.Context()); err != nil {
			slog.Error("healthz_failed", "dependency", "audit_db", "error", err.Error())
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "audit_db": "unreachable"})
			return
		}
		resp["audit_db"] = "ok"
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAdminPerf returns the perf snapshot (GET /admin/perf?window=15m&top=10).
func (s *server) handleAdminPerf(w http.ResponseWriter, r *http.Request) {
	window := 15 * time.Minute
	if v := r.URL.Query().Get("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			http.Error(w, "invalid window", http.StatusBadRequest)
			return
		}
		window = d
	}
	top := 10
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			http.Error(w, "invalid top", http.StatusBadRequest)
			return
		}
		top = n
	}
	writeJSON(w, http.StatusOK, s.deps.Collector.Snapshot(s.now().Add(-window), top))
}

// handleAdminAudit lists recent audit events (GET /admin/audit).
// Query: action, outcome, activity, since (RFC 3339), limit (1..1000, default 100).
func (s *server) handleAdminAudit(w http.ResponseWriter, r *http.Request) {
	if s.deps.AuditStore == nil {
		http.Error(w, "audit trail disabled", http.StatusNotFound)
		return
	}

	q := r.URL.Query()
	filter := auditStore.Filter{
		Action:   auditDomain.Action(q.Get("action")),
		Outcome:  auditDomain.Outcome(q.Get("outcome")),
		Activity: q.Get("activity"),
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "invalid since", http.StatusBadRequest)
			return
		}
		filter.Since = since
	}

	limit := 100
	if v := q.Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}

	events, err := s.deps.AuditStore.List(r.Context(), filter, limit)
	if err != nil {
		internalError(w, err)
		return
	}
	if events == nil {
		events = []auditDomain.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "limit": limit})
}

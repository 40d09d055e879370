package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"activityboard/internal/application/board"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const sessionContextKey contextKey = "viewer_session"

const sessionCookieName = "activityboard_session"

// Session is one viewer of the board and the controller that serves them.
type Session struct {
	ID        string
	CreatedAt time.Time
	Board     *board.Controller
}

type sessionEntry struct {
	Session
	lastSeen time.Time
}

// SessionStore is an in-memory viewer session store. Sessions expire after
// ttl without a request.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	ttl      time.Duration
	newBoard func(sessionID string) *board.Controller
	now      func() time.Time
	onChange func(active int)
}

// SessionOption configures a SessionStore.
type SessionOption func(*SessionStore)

// WithSessionClock replaces time.Now.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *SessionStore) { s.now = now }
}

// WithActiveSessionsHook is called with the session count after every change.
func WithActiveSessionsHook(fn func(active int)) SessionOption {
	return func(s *SessionStore) { s.onChange = fn }
}

// NewSessionStore creates a store that builds one controller per session.
// PRE: ttl > 0; newBoard is non-nil
// POST: Returns an empty store
func NewSessionStore(ttl time.Duration, newBoard func(sessionID string) *board.Controller, opts ...SessionOption) *SessionStore {
	s := &SessionStore{
		sessions: make(map[string]*sessionEntry),
		ttl:      ttl,
		newBoard: newBoard,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Get returns the live session for token and refreshes its idle timer.
// PRE: none
// POST: Returns the session if it exists and has not expired
func (s *SessionStore) Get(token string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[token]
	if !ok {
		return Session{}, false
	}
	now := s.now()
	if now.Sub(e.lastSeen) > s.ttl {
		return Session{}, false
	}
	e.lastSeen = now
	return e.Session, true
}

// Create starts a new session with a fresh controller.
// POST: Session is stored; its ID is the cookie token
func (s *SessionStore) Create() Session {
	id := uuid.New().String()
	now := s.now()
	sess := Session{ID: id, CreatedAt: now, Board: s.newBoard(id)}

	s.mu.Lock()
	s.sessions[id] = &sessionEntry{Session: sess, lastSeen: now}
	n := len(s.sessions)
	s.mu.Unlock()

	s.notify(n)
	return sess
}

// Delete removes a session and stops its controller.
func (s *SessionStore) Delete(token string) {
	s.mu.Lock()
	e, ok := s.sessions[token]
	delete(s.sessions, token)
	n := len(s.sessions)
	s.mu.Unlock()

	if ok {
		e.Board.Close()
		s.notify(n)
	}
}

// Sweep removes expired sessions.
// POST: Returns the number of sessions removed
func (s *SessionStore) Sweep() int {
	now := s.now()
	var expired []*sessionEntry

	s.mu.Lock()
	for id, e := range s.sessions {
		if now.Sub(e.lastSeen) > s.ttl {
			expired = append(expired, e)
			delete(s.sessions, id)
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	for _, e := range expired {
		e.Board.Close()
	}
	if len(expired) > 0 {
		s.notify(n)
	}
	return len(expired)
}

// Len returns the number of stored sessions, expired or not.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) notify(n int) {
	if s.onChange != nil {
		s.onChange(n)
	}
}

// Viewer returns middleware that attaches the viewer's session to the
// request context, starting a new one when the cookie is missing or stale.
// The cookie is written on every request so its lifetime slides along with
// the session's idle timeout.
func Viewer(store *SessionStore, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sess Session
			ok := false
			if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
				sess, ok = store.Get(cookie.Value)
			}
			if !ok {
				sess = store.Create()
			}
			setSessionCookie(w, sess.ID, store.ttl, secure)
			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), sess)))
		})
	}
}

// SessionFromContext extracts the viewer session from the request context.
func SessionFromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(sessionContextKey).(Session)
	return sess, ok
}

// ContextWithSession returns a context with the given session set.
func ContextWithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

func setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
	})
}

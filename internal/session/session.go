// Package session issues and reads the anonymous chat identifiers kept in
// browser cookies.
package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	SessionCookie = "chat_session_id"
	ThreadCookie  = "chat_thread_id"

	DefaultMaxAge = 30 * 24 * time.Hour
	maxIDLength   = 128
)

var newID = func() string {
	return uuid.NewString()
}

// Context identifies the browser session and conversation thread of one
// request. NewSession and NewThread mark identifiers minted for this request
// that the client has not stored yet.
type Context struct {
	SessionID  string
	ThreadID   string
	NewSession bool
	NewThread  bool
}

// Manager resolves identifiers from request cookies and writes back the ones
// it had to mint.
type Manager struct {
	maxAge time.Duration
	secure bool
}

func NewManager(maxAge time.Duration, secure bool) *Manager {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Manager{maxAge: maxAge, secure: secure}
}

// Resolve never fails: missing or malformed cookies are replaced by fresh ids.
func (m *Manager) Resolve(r *http.Request) Context {
	var c Context
	c.SessionID, c.NewSession = cookieOrNew(r, SessionCookie)
	c.ThreadID, c.NewThread = cookieOrNew(r, ThreadCookie)
	return c
}

// WriteCookies sets only the cookies minted by Resolve.
func (m *Manager) WriteCookies(w http.ResponseWriter, c Context) {
	if c.NewSession {
		http.SetCookie(w, m.cookie(SessionCookie, c.SessionID))
	}
	if c.NewThread {
		http.SetCookie(w, m.cookie(ThreadCookie, c.ThreadID))
	}
}

func (m *Manager) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(m.maxAge / time.Second),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func cookieOrNew(r *http.Request, name string) (string, bool) {
	if ck, err := r.Cookie(name); err == nil {
		v := strings.TrimSpace(ck.Value)
		if v != "" && len(v) <= maxIDLength {
			return v, false
		}
	}
	return newID(), true
}

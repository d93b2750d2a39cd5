package sessions

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	sessionCookieName = "ax_sess"
	sessionIDKey      = "sid"
)

type contextKey string

const sessionIDContextKey contextKey = "sessionID"

// SessionStore hands out the durable visitor token that scopes a cart.
type SessionStore interface {
	SessionID(w http.ResponseWriter, r *http.Request) (string, error)
}

type CookieSessionStore struct {
	store  *sessions.CookieStore
	logger *zap.Logger
}

func NewCookieSessionStore(logger *zap.Logger, secure bool, keyPairs ...[]byte) *CookieSessionStore {
	store := sessions.NewCookieStore(keyPairs...)

	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(365 * 24 * time.Hour / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &CookieSessionStore{store: store, logger: logger}
}

func (c *CookieSessionStore) getSession(r *http.Request) *sessions.Session {
	session, err := c.store.Get(r, sessionCookieName)
	if err != nil {
		// An undecodable cookie (rotated keys, tampering) still yields a
		// fresh session; the visitor simply gets a new cart scope.
		c.logger.Warn("discarding unreadable session cookie", zap.Error(err))
	}
	return session
}

// SessionID returns the visitor's token, minting and saving one on the
// first visit.
func (c *CookieSessionStore) SessionID(w http.ResponseWriter, r *http.Request) (string, error) {
	session := c.getSession(r)

	if sid, ok := session.Values[sessionIDKey].(string); ok && sid != "" {
		return sid, nil
	}

	sid := uuid.NewString()
	session.Values[sessionIDKey] = sid
	if err := session.Save(r, w); err != nil {
		return "", err
	}
	return sid, nil
}

func WithSessionID(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, sessionIDContextKey, sid)
}

func SessionIDFrom(ctx context.Context) (string, bool) {
	sid, ok := ctx.Value(sessionIDContextKey).(string)
	return sid, ok && sid != ""
}

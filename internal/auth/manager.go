package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

const sessionCookieName = "session_id"

// Manager binds sessions to the client cookie.
type Manager struct {
	store        *Store
	signer       *Signer
	cookieSecure bool
}

func NewManager(store *Store, signer *Signer, cookieSecure bool) *Manager {
	return &Manager{store: store, signer: signer, cookieSecure: cookieSecure}
}

// Start creates a session for userID and sets the signed cookie on the response.
// A session already attached to the request is dropped first.
func (m *Manager) Start(c *gin.Context, userID string) (Session, error) {
	if prev, ok := SessionFromContext(c); ok {
		if err := m.store.Delete(c.Request.Context(), prev.ID); err != nil {
			return Session{}, err
		}
	}
	id, err := m.store.Create(c.Request.Context(), userID)
	if err != nil {
		return Session{}, err
	}
	value, err := m.signer.Sign(id)
	if err != nil {
		_ = m.store.Delete(c.Request.Context(), id)
		return Session{}, err
	}
	m.setCookie(c, value, int(m.store.TTL().Seconds()))
	s := Session{ID: id, UserID: userID}
	c.Set(contextKeySession, s)
	return s, nil
}

// Resolve maps a raw cookie value to its session. ErrNoSession covers both
// an invalid cookie and an expired or deleted session.
func (m *Manager) Resolve(ctx context.Context, cookie string) (Session, error) {
	id, err := m.signer.Parse(cookie)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	userID, err := m.store.GetUserID(ctx, id)
	if err != nil {
		return Session{}, err
	}
	return Session{ID: id, UserID: userID}, nil
}

// End deletes the current session, if any, and clears the cookie.
func (m *Manager) End(c *gin.Context) error {
	var err error
	if s, ok := SessionFromContext(c); ok {
		err = m.store.Delete(c.Request.Context(), s.ID)
	} else if raw, cerr := c.Cookie(sessionCookieName); cerr == nil && raw != "" {
		if id, perr := m.signer.Parse(raw); perr == nil {
			err = m.store.Delete(c.Request.Context(), id)
		}
	}
	m.setCookie(c, "", -1)
	return err
}

func (m *Manager) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookieName, value, maxAge, "/", "", m.cookieSecure, true)
}

// load resolves the request cookie. A missing cookie is not an error.
func (m *Manager) load(c *gin.Context) (Session, bool, error) {
	raw, err := c.Cookie(sessionCookieName)
	if err != nil || raw == "" {
		return Session{}, false, nil
	}
	s, err := m.Resolve(c.Request.Context(), raw)
	if errors.Is(err, ErrNoSession) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}
	return s, true, nil
}

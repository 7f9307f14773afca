package session

import (
	"context"
	"net/http"
)

const CookieName = "ps_session"

// CookieStorage keeps the identifier in a browser-session cookie. The cookie
// has no Max-Age or Expires, so it lives only as long as the browsing session.
type CookieStorage struct {
	w      http.ResponseWriter
	r      *http.Request
	secure bool
	id     string
}

// NewCookieStorage binds storage to one request/response pair
func NewCookieStorage(w http.ResponseWriter, r *http.Request, secure bool) *CookieStorage {
	return &CookieStorage{w: w, r: r, secure: secure}
}

func (c *CookieStorage) Get(ctx context.Context) (string, error) {
	if c.r == nil {
		return "", ErrStorageUnavailable
	}
	if c.id != "" {
		return c.id, nil
	}
	cookie, err := c.r.Cookie(CookieName)
	if err == http.ErrNoCookie {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

func (c *CookieStorage) Set(ctx context.Context, id string) error {
	if c.w == nil {
		return ErrStorageUnavailable
	}
	http.SetCookie(c.w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	c.id = id
	return nil
}

package handler

import (
	"net/http"
	"time"

	"github.com/palitan-tayo-api/internal/application/session"
	"github.com/palitan-tayo-api/internal/domain"
)

// CookiePolicy controls the attributes of the session cookies.
type CookiePolicy struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (p CookiePolicy) set(w http.ResponseWriter, sess *domain.Session) {
	http.SetCookie(w, p.cookie(session.AccessCookie, sess.AccessToken, int(p.AccessTTL/time.Second)))
	http.SetCookie(w, p.cookie(session.RefreshCookie, sess.RefreshToken, int(p.RefreshTTL/time.Second)))
}

func (p CookiePolicy) clear(w http.ResponseWriter, names []string) {
	for _, name := range names {
		http.SetCookie(w, p.cookie(name, "", -1))
	}
}

func (p CookiePolicy) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

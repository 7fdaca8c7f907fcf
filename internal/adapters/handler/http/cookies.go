package http

import (
	"net/http"

	"github.com/vncsmyrnk/polls/internal/core/services"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
)

type CookieSettings struct {
	Domain   string
	SameSite http.SameSite
}

func (c CookieSettings) setAccessToken(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    token,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   true,
		SameSite: c.SameSite,
		MaxAge:   int(services.AccessTokenTTL.Seconds()),
	})
}

func (c CookieSettings) setRefreshToken(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    token,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   true,
		SameSite: c.SameSite,
		MaxAge:   int(services.RefreshTokenTTL.Seconds()),
	})
}

func (c CookieSettings) expire(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: accessTokenCookie, MaxAge: -1, Path: "/", Domain: c.Domain})
	http.SetCookie(w, &http.Cookie{Name: refreshTokenCookie, MaxAge: -1, Path: "/", Domain: c.Domain})
}

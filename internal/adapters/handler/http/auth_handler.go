package http

import (
	"log/slog"
	"net/http"

	"github.com/vncsmyrnk/polls/internal/core/domain"
	"github.com/vncsmyrnk/polls/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
	redirectURL string
	cookies     CookieSettings
}

func NewAuthHandler(authService ports.AuthService, redirectURL string, cookies CookieSettings) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		redirectURL: redirectURL,
		cookies:     cookies,
	}
}

// GoogleCallback godoc
// @Summary      Signs the user in with a Google ID token
// @Description  Receives the Google Identity Services form post, sets the auth cookies and redirects.
// @Tags         auth
// @Accept       x-www-form-urlencoded
// @Success      303
// @Failure      400,401
// @Router       /oauth/callback [post]
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeBadRequest(w, "failed to parse form")
		return
	}

	credential := r.FormValue("credential")
	if credential == "" {
		writeBadRequest(w, "missing credential")
		return
	}

	accessToken, refreshToken, err := h.authService.LoginWithGoogle(r.Context(), credential)
	if err != nil {
		slog.WarnContext(r.Context(), "google sign-in failed", "error", err)
		writeError(w, r, domain.ErrUnauthenticated)
		return
	}

	h.cookies.setAccessToken(w, accessToken)
	h.cookies.setRefreshToken(w, refreshToken)

	http.Redirect(w, r, h.redirectURL, http.StatusSeeOther)
}

// Refresh godoc
// @Summary      Refreshes the access token
// @Description  Creates a new access token cookie based on the refresh token. This cookie is used as authentication for `/api` calls.
// @Tags         auth
// @Success      200
// @Failure      401
// @Router       /oauth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshTokenCookie)
	if err != nil || cookie.Value == "" {
		writeError(w, r, domain.ErrUnauthenticated)
		return
	}

	accessToken, refreshToken, err := h.authService.RefreshAccessToken(r.Context(), cookie.Value)
	if err != nil {
		h.cookies.expire(w)
		if status, _ := errorFor(err); status == http.StatusInternalServerError {
			writeError(w, r, err)
			return
		}
		// Any known failure ends the session.
		writeError(w, r, domain.ErrUnauthenticated)
		return
	}

	h.cookies.setAccessToken(w, accessToken)
	if refreshToken != "" && refreshToken != cookie.Value {
		h.cookies.setRefreshToken(w, refreshToken)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Logout godoc
// @Summary      Logs the authenticated user out
// @Description  Revokes the refresh token and clears the auth cookies
// @Tags         auth
// @Success      200
// @Router       /oauth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshTokenCookie)
	if err == nil && cookie.Value != "" {
		if err := h.authService.Logout(r.Context(), cookie.Value); err != nil {
			slog.WarnContext(r.Context(), "failed to revoke refresh token", "error", err)
		}
	}

	h.cookies.expire(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

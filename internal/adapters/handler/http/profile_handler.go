package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vncsmyrnk/polls/internal/core/domain"
	"github.com/vncsmyrnk/polls/internal/core/ports"
)

type ProfileHandler struct {
	service        ports.ProfileService
	cookies        CookieSettings
	maxUploadBytes int64
}

func NewProfileHandler(service ports.ProfileService, cookies CookieSettings, maxUploadBytes int64) *ProfileHandler {
	return &ProfileHandler{
		service:        service,
		cookies:        cookies,
		maxUploadBytes: maxUploadBytes,
	}
}

// GetMe godoc
// @Summary      Shows the signed-in account
// @Description  Account fields and profile. Staff also get the closed questions.
// @Tags         me
// @Produce      json
// @Success      200
// @Failure      401
// @Router       /api/me [get]
func (h *ProfileHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.GetMe(r.Context(), principalFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

type updateProfileRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// UpdateProfile godoc
// @Summary      Updates the account and profile together
// @Description  Accepts JSON, or multipart/form-data with an optional `avatar` file. Nothing is saved unless every field is valid.
// @Tags         me
// @Accept       json,mpfd
// @Produce      json
// @Success      200
// @Failure      401,422
// @Router       /api/me/profile [put]
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var input ports.UpdateProfileInput

	if isMultipart(r) {
		if err := parseMultipart(w, r, "avatar", h.maxUploadBytes); err != nil {
			writeUploadError(w, r, err)
			return
		}
		input.Username = r.FormValue("username")
		input.Email = r.FormValue("email")
		input.DisplayName = r.FormValue("display_name")

		avatar, err := readUpload(r, "avatar", h.maxUploadBytes)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		input.Avatar = avatar
	} else {
		var req updateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid request body")
			return
		}
		input.Username = req.Username
		input.Email = req.Email
		input.DisplayName = req.DisplayName
	}

	account, err := h.service.Update(r.Context(), principalFrom(r), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// UploadAvatar godoc
// @Summary      Replaces the avatar
// @Description  Multipart upload in the `avatar` field. Other account fields are kept.
// @Tags         me
// @Accept       mpfd
// @Produce      json
// @Success      200
// @Failure      401,422
// @Router       /api/me/avatar [post]
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	if !isMultipart(r) {
		writeBadRequest(w, "expected multipart/form-data")
		return
	}
	if err := parseMultipart(w, r, "avatar", h.maxUploadBytes); err != nil {
		writeUploadError(w, r, err)
		return
	}

	avatar, err := readUpload(r, "avatar", h.maxUploadBytes)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	account, err := h.service.UpdateAvatar(r.Context(), principalFrom(r), avatar)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// DeleteAccount godoc
// @Summary      Deletes the signed-in account
// @Description  Removes the profile and the user, with their votes, and clears the auth cookies.
// @Tags         me
// @Success      204
// @Failure      401
// @Router       /api/me [delete]
func (h *ProfileHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteAccount(r.Context(), principalFrom(r))
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		writeError(w, r, err)
		return
	}
	if err != nil {
		slog.InfoContext(r.Context(), "account already gone", "user_id", principalFrom(r).UserID)
	}

	h.cookies.expire(w)
	w.WriteHeader(http.StatusNoContent)
}

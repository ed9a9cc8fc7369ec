package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"retroim/internal/app/store"
	"retroim/internal/app/user"
	"retroim/internal/pkg/auth/jwt"
	"retroim/internal/pkg/errs"
	"retroim/internal/pkg/logx"
	"retroim/internal/pkg/req"
	"retroim/internal/pkg/resp"
)

const (
	maxProfileTextLength = 1024
	maxAwayMessageLength = 256
)

// HandleGetMe returns the signed-on user's own record.
func HandleGetMe(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		u, err := deps.DB.GetUser(r.Context(), identity.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
				return
			}

			logx.Error(err, "failed to fetch user profile", "user_id", identity.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, u)
	}
}

type UpdateProfileInput struct {
	ProfileText  string `json:"profileText"`
	BuddyIconURL string `json:"buddyIconUrl"`
}

// HandleUpdateProfile updates the profile blurb and buddy icon. When the icon
// changes, the previous object is deleted from storage in the background.
func HandleUpdateProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input UpdateProfileInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if utf8.RuneCountInString(input.ProfileText) > maxProfileTextLength {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		previous, err := deps.DB.GetUser(r.Context(), identity.UserID)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			return
		}

		updated, err := deps.DB.UpdateUserProfile(r.Context(), identity.UserID, input.ProfileText, input.BuddyIconURL)
		if err != nil {
			logx.Error(err, "failed to update user profile", "user_id", identity.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if previous.BuddyIconURL != "" && previous.BuddyIconURL != updated.BuddyIconURL {
			oldKey := previous.BuddyIconURL
			go func() {
				if err := deps.StorageService.Delete(context.Background(), oldKey); err != nil {
					logx.Warn("failed to delete replaced buddy icon", "key", oldKey)
				}
			}()
		}

		resp.RespondSuccess(w, r, updated)
	}
}

type UpdateStatusInput struct {
	Status      string `json:"status"`
	AwayMessage string `json:"awayMessage"`
}

// HandleUpdateStatus updates the advertised status and away message, then fans
// the change out to connected buddies.
func HandleUpdateStatus(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input UpdateStatusInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		status := user.Status(strings.ToLower(strings.TrimSpace(input.Status)))
		if !user.ValidStatus(status) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidStatus))
			return
		}

		if utf8.RuneCountInString(input.AwayMessage) > maxAwayMessageLength {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if err := deps.DB.UpdateUserStatus(r.Context(), identity.UserID, status, input.AwayMessage); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
				return
			}

			logx.Error(err, "failed to update user status", "user_id", identity.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		deps.Hub.NotifyStatusChange(r.Context(), identity.UserID, status, input.AwayMessage)

		resp.RespondSuccess(w, r, map[string]any{
			"status":      status,
			"awayMessage": input.AwayMessage,
		})
	}
}

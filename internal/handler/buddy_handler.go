package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"retroim/internal/app/db"
	"retroim/internal/app/im"
	"retroim/internal/app/store"
	"retroim/internal/pkg/auth/jwt"
	"retroim/internal/pkg/errs"
	"retroim/internal/pkg/logx"
	"retroim/internal/pkg/req"
	"retroim/internal/pkg/resp"
)

func buddyIDParam(r *http.Request) (int64, *errs.CustomError) {
	raw := chi.URLParam(r, "buddyID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.NewError(errs.ErrInvalidParams)
	}
	return id, nil
}

// HandleListBuddies returns the caller's buddy list, each entry decorated with
// live presence from the hub.
func HandleListBuddies(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		entries, err := deps.DB.GetBuddyList(r.Context(), identity.UserID)
		if err != nil {
			logx.Error(err, "failed to fetch buddy list", "user_id", identity.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		for i := range entries {
			entries[i].Online = deps.Hub.IsOnline(entries[i].ID)
		}

		resp.RespondSuccess(w, r, map[string]any{
			"buddies": entries,
		})
	}
}

type AddBuddyInput struct {
	ScreenName string `json:"screenName"`
	GroupName  string `json:"groupName"`
}

// HandleAddBuddy adds another user, looked up by screen name, to the caller's
// buddy list.
func HandleAddBuddy(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input AddBuddyInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		buddy, err := deps.DB.GetUserByScreenName(r.Context(), input.ScreenName)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
				return
			}

			logx.Error(err, "failed to resolve buddy screen name", "screen_name", input.ScreenName)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if buddy.ID == identity.UserID {
			resp.RespondError(w, r, errs.NewError(errs.ErrCannotBuddySelf))
			return
		}

		if err := deps.DB.AddBuddy(r.Context(), identity.UserID, buddy.ID, input.GroupName); err != nil {
			if db.IsUniqueViolation(err) {
				resp.RespondError(w, r, errs.NewError(errs.ErrBuddyAlreadyAdded))
				return
			}

			logx.Error(err, "failed to add buddy", "user_id", identity.UserID, "buddy_id", buddy.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"buddy":  buddy,
			"online": deps.Hub.IsOnline(buddy.ID),
		})
	}
}

// HandleRemoveBuddy removes a buddy from the caller's list.
func HandleRemoveBuddy(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		buddyID, customErr := buddyIDParam(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if err := deps.DB.RemoveBuddy(r.Context(), identity.UserID, buddyID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrBuddyNotFound))
				return
			}

			logx.Error(err, "failed to remove buddy", "user_id", identity.UserID, "buddy_id", buddyID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}

// HandleGetAlertSettings returns the caller's alert preferences for one buddy.
func HandleGetAlertSettings(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		buddyID, customErr := buddyIDParam(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		settings, err := deps.DB.GetBuddyAlertSettings(r.Context(), identity.UserID, buddyID)
		if err != nil {
			logx.Error(err, "failed to fetch alert settings", "user_id", identity.UserID, "buddy_id", buddyID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, settings)
	}
}

type UpdateAlertSettingsInput struct {
	EnableAlerts     bool   `json:"enableAlerts"`
	CustomSoundAlert string `json:"customSoundAlert"`
}

// HandleUpdateAlertSettings stores the caller's alert preferences for one buddy.
func HandleUpdateAlertSettings(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		buddyID, customErr := buddyIDParam(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var input UpdateAlertSettingsInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		settings := im.AlertSettings{
			EnableAlerts:     input.EnableAlerts,
			CustomSoundAlert: input.CustomSoundAlert,
		}

		if err := deps.DB.UpdateBuddyAlertSettings(r.Context(), identity.UserID, buddyID, settings); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrBuddyNotFound))
				return
			}

			logx.Error(err, "failed to update alert settings", "user_id", identity.UserID, "buddy_id", buddyID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, settings)
	}
}

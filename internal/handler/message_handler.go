package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"retroim/internal/app/im"
	"retroim/internal/app/store"
	"retroim/internal/pkg/auth/jwt"
	"retroim/internal/pkg/errs"
	"retroim/internal/pkg/logx"
	"retroim/internal/pkg/req"
	"retroim/internal/pkg/resp"
)

type SendMessageInput struct {
	ToUserID   int64          `json:"toUserId"`
	Content    string         `json:"content"`
	Formatting *im.Formatting `json:"formatting,omitempty"`
	ImageURL   string         `json:"imageUrl,omitempty"`
}

// HandleSendMessage is the HTTP submission path into the delivery pipeline.
// Unlike the WebSocket path it reports persistence failure to the caller.
func HandleSendMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input SendMessageInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.Content == "" && input.ImageURL == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrMessageEmpty))
			return
		}

		if len(input.Content) > im.MaxContentBytes {
			resp.RespondError(w, r, errs.NewError(errs.ErrMessageContentTooLong))
			return
		}

		if _, err := deps.DB.GetUser(r.Context(), input.ToUserID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrRecipientNotFound))
				return
			}

			logx.Error(err, "failed to resolve message recipient", "to_user_id", input.ToUserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		incoming := im.IncomingMessage{
			FromUserID: identity.UserID,
			ToUserID:   input.ToUserID,
			Content:    input.Content,
			Formatting: input.Formatting,
			ImageURL:   input.ImageURL,
		}

		stored, err := deps.Hub.DeliverMessage(r.Context(), incoming)
		if err != nil {
			// The recipient pre-check can race with account deletion.
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrRecipientNotFound))
				return
			}

			logx.Error(err, "message persistence failed", "from_user_id", identity.UserID, "to_user_id", input.ToUserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrMessageStoreFailed))
			return
		}

		resp.RespondSuccess(w, r, stored)
	}
}

// HandleGetConversation returns recent message history with one buddy, newest
// last. The limit query parameter is optional.
func HandleGetConversation(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		buddyID, err := strconv.ParseInt(chi.URLParam(r, "buddyID"), 10, 64)
		if err != nil || buddyID <= 0 {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}
		}

		msgs, err := deps.DB.GetConversation(r.Context(), identity.UserID, buddyID, limit)
		if err != nil {
			logx.Error(err, "failed to fetch conversation", "user_id", identity.UserID, "buddy_id", buddyID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"messages": msgs,
		})
	}
}

type MarkReadInput struct {
	FromUserID int64 `json:"fromUserId"`
}

// HandleMarkRead marks every message from one sender to the caller as read.
func HandleMarkRead(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input MarkReadInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.FromUserID <= 0 {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if err := deps.DB.MarkConversationRead(r.Context(), identity.UserID, input.FromUserID); err != nil {
			logx.Error(err, "failed to mark conversation read", "user_id", identity.UserID, "from_user_id", input.FromUserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}

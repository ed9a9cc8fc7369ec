package handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"retroim/internal/app/media"
	"retroim/internal/pkg/auth/jwt"
	"retroim/internal/pkg/errs"
	"retroim/internal/pkg/logx"
	"retroim/internal/pkg/randx"
	"retroim/internal/pkg/req"
	"retroim/internal/pkg/resp"
)

type PresignUploadInput struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

// HandlePresignUpload validates the declared image metadata and returns a
// presigned PUT URL plus the object key the client must upload to. The client
// then references the key as an imageUrl or buddyIconUrl.
func HandlePresignUpload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input PresignUploadInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := media.ValidateImageSize(input.FileSize); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := media.ValidateImageType(input.FileName, input.MimeType); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		ext := strings.ToLower(filepath.Ext(input.FileName))
		key := randx.FileKey(identity.UserID, ext)

		uploadURL, err := deps.StorageService.PresignUpload(
			r.Context(),
			key,
			strings.ToLower(input.MimeType),
			input.FileSize,
			media.PresignedURLDuration,
		)
		if err != nil {
			logx.Error(err, "failed to generate presigned upload URL", "user_id", identity.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"uploadUrl": uploadURL,
			"key":       key,
			"expiresIn": int(media.PresignedURLDuration.Seconds()),
		})
	}
}

// HandleDownloadFile redirects to a presigned GET URL for the requested object
// key. Any signed-on user may fetch images, since icons and message pictures
// are shared between buddies by key.
func HandleDownloadFile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		key := r.URL.Query().Get("key")
		if key == "" || strings.Contains(key, "..") {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		downloadURL, err := deps.StorageService.PresignDownload(r.Context(), key, media.PresignedURLDuration)
		if err != nil {
			logx.Error(err, "failed to generate presigned download URL", "key", key)
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		http.Redirect(w, r, downloadURL, http.StatusTemporaryRedirect)
	}
}

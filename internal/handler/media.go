package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sakif/snapgram/internal/apperror"
	"github.com/sakif/snapgram/internal/media"
)

// multipartOverhead is the slack allowed above the image size for form
// boundaries and headers.
const multipartOverhead = 64 << 10

// MediaHandler accepts image uploads and returns a URL for createPost.
type MediaHandler struct {
	uploader *media.Uploader
	logger   *slog.Logger
}

func NewMediaHandler(uploader *media.Uploader, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{
		uploader: uploader,
		logger:   logger,
	}
}

// HandleUpload stores one image.
//
// HTTP: POST /api/media
// REQUEST BODY: multipart/form-data with the file in field "image"
// RESPONSE: 201 {"image_url": "https://..."}
func (h *MediaHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	viewer, ok := requireViewer(w, r)
	if !ok {
		return
	}

	maxBytes := h.uploader.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, apperror.ValidationFailed("image",
				fmt.Sprintf("image must be %d bytes or less", maxBytes)))
			return
		}
		writeError(w, apperror.ValidationFailed("image", "expected a multipart form with an image field"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, apperror.ValidationFailed("image", "image is required"))
		return
	}
	defer file.Close()

	url, err := h.uploader.Upload(r.Context(), viewer, file)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"image_url": url})
}

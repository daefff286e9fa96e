package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/snapgram/internal/auth"
	"github.com/sakif/snapgram/internal/handler"
	"github.com/sakif/snapgram/internal/media"
)

type fakeMediaStore struct {
	keys []string
}

func (f *fakeMediaStore) Put(_ context.Context, key, _ string, _ []byte) (string, error) {
	f.keys = append(f.keys, key)
	return "https://cdn.example.com/" + key, nil
}

func multipartImage(t *testing.T, field string, w, h int) (*bytes.Buffer, string) {
	t.Helper()

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewNRGBA(image.Rect(0, 0, w, h))))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "photo.png")
	require.NoError(t, err)
	_, err = part.Write(img.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return &body, mw.FormDataContentType()
}

func TestMediaHandler_HandleUpload(t *testing.T) {
	logger := discardLogger()

	upload := func(t *testing.T, h *handler.MediaHandler, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(http.MethodPost, "/api/media", body)
		req.Header.Set("Content-Type", contentType)
		req = req.WithContext(auth.WithUserID(req.Context(), "user-1"))
		rr := httptest.NewRecorder()
		h.HandleUpload(rr, req)
		return rr
	}

	t.Run("stores image", func(t *testing.T) {
		store := &fakeMediaStore{}
		h := handler.NewMediaHandler(media.NewUploader(store, 1<<20, logger), logger)

		body, ct := multipartImage(t, "image", 40, 30)
		rr := upload(t, h, body, ct)

		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		var res map[string]string
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		require.Len(t, store.keys, 1)
		assert.Equal(t, "https://cdn.example.com/"+store.keys[0], res["image_url"])
	})

	t.Run("wrong field", func(t *testing.T) {
		store := &fakeMediaStore{}
		h := handler.NewMediaHandler(media.NewUploader(store, 1<<20, logger), logger)

		body, ct := multipartImage(t, "file", 40, 30)
		rr := upload(t, h, body, ct)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Empty(t, store.keys)
	})

	t.Run("not multipart", func(t *testing.T) {
		h := handler.NewMediaHandler(media.NewUploader(&fakeMediaStore{}, 1<<20, logger), logger)
		rr := upload(t, h, bytes.NewBufferString(`{"image":"x"}`), "application/json")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("too large", func(t *testing.T) {
		store := &fakeMediaStore{}
		h := handler.NewMediaHandler(media.NewUploader(store, 64, logger), logger)

		body, ct := multipartImage(t, "image", 400, 400)
		rr := upload(t, h, body, ct)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Empty(t, store.keys)
	})

	t.Run("anonymous", func(t *testing.T) {
		h := handler.NewMediaHandler(media.NewUploader(&fakeMediaStore{}, 1<<20, logger), logger)
		body, ct := multipartImage(t, "image", 10, 10)

		req := httptest.NewRequest(http.MethodPost, "/api/media", body)
		req.Header.Set("Content-Type", ct)
		rr := httptest.NewRecorder()
		h.HandleUpload(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

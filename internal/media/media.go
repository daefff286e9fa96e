// Package media turns uploaded photos into post images: it decodes the
// upload, applies EXIF orientation, shrinks it to fit the feed frame,
// re-encodes it as JPEG and hands the bytes to a Store.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"

	"github.com/disintegration/imaging"
	"github.com/rs/xid"

	"github.com/sakif/snapgram/internal/apperror"
)

// Feed frame: the largest size an image is stored at (4:5 portrait).
const (
	MaxWidth  = 1080
	MaxHeight = 1350

	jpegQuality = 85
)

// Store persists an encoded image and returns the public URL it is served
// from.
type Store interface {
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// Normalize decodes r, honours EXIF orientation and fits the result within
// MaxWidth×MaxHeight. Images already inside the frame are not enlarged.
func Normalize(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	if b.Dx() > MaxWidth || b.Dy() > MaxHeight {
		img = imaging.Fit(img, MaxWidth, MaxHeight, imaging.Lanczos)
	}
	return img, nil
}

// Uploader validates, normalizes and stores uploaded images.
type Uploader struct {
	store    Store
	maxBytes int64
	logger   *slog.Logger
}

func NewUploader(store Store, maxBytes int64, logger *slog.Logger) *Uploader {
	return &Uploader{
		store:    store,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// MaxBytes is the largest accepted upload.
func (u *Uploader) MaxBytes() int64 {
	return u.maxBytes
}

// Upload stores the image read from r under the owner's prefix and returns
// its URL.
func (u *Uploader) Upload(ctx context.Context, ownerID string, r io.Reader) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(r, u.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("media: reading upload: %w", err)
	}
	if int64(len(raw)) > u.maxBytes {
		return "", apperror.ValidationFailed("image",
			fmt.Sprintf("image must be %d bytes or less", u.maxBytes))
	}

	img, err := Normalize(bytes.NewReader(raw))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return "", apperror.ValidationFailed("image", "unsupported image format")
		}
		return "", apperror.ValidationFailed("image", "image could not be decoded")
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return "", fmt.Errorf("media: encoding jpeg: %w", err)
	}

	key := fmt.Sprintf("posts/%s/%s.jpg", ownerID, xid.New().String())
	url, err := u.store.Put(ctx, key, "image/jpeg", buf.Bytes())
	if err != nil {
		u.logger.Error("failed to store image",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("media: storing %s: %w", key, err)
	}

	u.logger.Info("image stored",
		slog.String("key", key),
		slog.Int("bytes", buf.Len()),
		slog.Int("width", img.Bounds().Dx()),
		slog.Int("height", img.Bounds().Dy()),
	)

	return url, nil
}

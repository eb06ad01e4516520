package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"
)

const defaultUploadMaxBytes = 10 << 20

// Upload stores a multipart "photo" and returns its public URL in the shape
// the Mini App expects.
func (a *App) Upload(w http.ResponseWriter, r *http.Request) {
	if a.currentUserID(r) == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	if a.Blobs == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "uploads are disabled")
		return
	}
	limit := a.UploadMaxBytes
	if limit <= 0 {
		limit = defaultUploadMaxBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+(1<<20))
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "too_large", "file too large")
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", "multipart form expected")
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "photo required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read photo")
		return
	}
	if int64(len(data)) > limit {
		a.error(w, http.StatusRequestEntityTooLarge, "too_large", "file too large")
		return
	}
	if len(data) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "photo is empty")
		return
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") && !strings.HasPrefix(contentType, "video/") {
		a.error(w, http.StatusUnsupportedMediaType, "unsupported_media", "image or video expected")
		return
	}
	url, err := a.Blobs.Upload(r.Context(), header.Filename, contentType, data)
	if err != nil {
		a.logger().Error().Err(err).Msg("http: upload failed")
		a.error(w, http.StatusBadGateway, "upload_failed", "upload failed")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "success", "fileUrl": url})
}

package handlers

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/openblog/apiserver/internal/storage"
)

const (
	maxMediaBytes  = 16 << 20
	formFieldMedia = "file"
)

// Keys are server-generated, so anything else is rejected before it reaches
// the object store.
var mediaKeyPattern = regexp.MustCompile(`^[a-f0-9]{32}(\.[a-z0-9]{1,8})?$`)

// MediaHandler provides upload/download endpoints for media objects used in
// posts and profiles (images linked from content and social links).
type MediaHandler struct {
	media *storage.MediaStore
}

// NewMediaHandler constructs a handler with the provided media store.
func NewMediaHandler(media *storage.MediaStore) *MediaHandler {
	return &MediaHandler{media: media}
}

// MediaRouter registers media routes on the given router.
func MediaRouter(r chi.Router, media *storage.MediaStore) {
	handler := NewMediaHandler(media)

	r.Post("/", handler.Upload)
	r.Get("/{key}", handler.Download)
}

// UploadResponse describes a stored media object.
type UploadResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMediaBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	files := r.MultipartForm.File[formFieldMedia]
	if len(files) != 1 {
		writeError(w, http.StatusBadRequest, "exactly one file is required")
		return
	}

	fileHeader := files[0]
	file, err := fileHeader.Open()
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	defer file.Close()

	data, err := readLimited(file, maxMediaBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := newMediaKey(fileHeader.Filename)
	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := h.media.Save(r.Context(), key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store media")
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{
		Key: key,
		URL: "/api/media/" + key,
	})
}

func (h *MediaHandler) Download(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !mediaKeyPattern.MatchString(key) {
		writeError(w, http.StatusNotFound, "media not found")
		return
	}

	reader, err := h.media.Open(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusNotFound, "media not found")
		return
	}
	defer reader.Close()

	if contentType := mime.TypeByExtension(path.Ext(key)); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	if _, err := io.Copy(w, reader); err != nil {
		// Headers are already written; nothing left to report to the client.
		return
	}
}

func readLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}

func newMediaKey(filename string) string {
	var buf [16]byte
	_, _ = rand.Read(buf[:])
	key := hex.EncodeToString(buf[:])

	ext := strings.ToLower(path.Ext(filename))
	if mediaKeyPattern.MatchString(key + ext) {
		key += ext
	}
	return key
}

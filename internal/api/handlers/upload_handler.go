package handlers

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	apiContext "qrlink/internal/api/context"
	"qrlink/internal/engine/analytics"
	"qrlink/internal/engine/assets"
	"qrlink/internal/engine/links"
	"qrlink/internal/pkg/errors"
)

type UploadHandler struct {
	assets    *assets.Store
	links     *links.Service
	analytics *analytics.Service
	baseURL   string
}

func NewUploadHandler(store *assets.Store, linkSvc *links.Service, tracker *analytics.Service, baseURL string) *UploadHandler {
	return &UploadHandler{assets: store, links: linkSvc, analytics: tracker, baseURL: strings.TrimRight(baseURL, "/")}
}

type uploadResponse struct {
	Success  bool   `json:"success"`
	URL      string `json:"url"`
	ShortURL string `json:"short_url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// UploadAsset stores a pdf, mp3 or image and returns its public and short URL.
func (h *UploadHandler) UploadAsset(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	atype := strings.ToLower(params.ByName("atype"))

	file, header, err := r.FormFile("file")
	if err == http.ErrMissingFile {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "no file", nil)
		return
	}
	if err != nil {
		writeFormError(w, err)
		return
	}
	defer file.Close()

	entry, err := h.assets.SaveAsset(atype, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		errors.WriteKindError(w, err)
		return
	}

	longURL := StaticURL(h.baseURL, entry.RelPath)
	link, _, err := h.links.CreateOrGet(r.Context(), longURL)
	if err != nil {
		errors.WriteKindError(w, err)
		return
	}

	if err := h.analytics.TrackUpload(); err != nil {
		log.Warn().Err(err).Msg("failed to track upload")
	}

	log.Info().Str("atype", atype).Str("file", entry.Name).Int64("size", entry.Size).Msg("Asset uploaded")

	writeJSON(w, http.StatusOK, uploadResponse{
		Success:  true,
		URL:      longURL,
		ShortURL: links.ShortURL(h.baseURL, link.Code),
		Filename: entry.Name,
		Size:     entry.Size,
	})
}

// UploadLogo stores a logo that the render form can reference by name.
func (h *UploadHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("logo")
	if err == http.ErrMissingFile {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "no file selected", nil)
		return
	}
	if err != nil {
		writeFormError(w, err)
		return
	}
	defer file.Close()

	entry, err := h.assets.SaveLogo(header.Filename, file)
	if err != nil {
		errors.WriteKindError(w, err)
		return
	}

	log.Info().Str("file", entry.Name).Int64("size", entry.Size).Msg("Logo uploaded")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"name":    entry.Name,
		"url":     StaticURL(h.baseURL, entry.RelPath),
	})
}

// StaticURL is the public URL of a file under the static root.
func StaticURL(baseURL, relPath string) string {
	return strings.TrimRight(baseURL, "/") + "/static/" + strings.TrimLeft(relPath, "/")
}

package handlers

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	"qrlink/internal/engine/links"
	"qrlink/internal/pkg/errors"
)

type LinkHandler struct {
	links   *links.Service
	baseURL string
}

func NewLinkHandler(linkSvc *links.Service, baseURL string) *LinkHandler {
	return &LinkHandler{links: linkSvc, baseURL: strings.TrimRight(baseURL, "/")}
}

// Shorten returns the short link for a URL, creating it when needed.
// The status is 201 for a new link and 200 when the URL was already shortened.
func (h *LinkHandler) Shorten(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeFormError(w, err)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeFormError(w, err)
			return
		}
		req.URL = r.FormValue("url")
	}

	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "missing url", nil)
		return
	}

	link, created, err := h.links.CreateOrGet(r.Context(), req.URL)
	if err != nil {
		errors.WriteKindError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]interface{}{
		"success":   true,
		"code":      link.Code,
		"short_url": links.ShortURL(h.baseURL, link.Code),
		"already":   !created,
	})
}

type linkResponse struct {
	Code      string `json:"code"`
	URL       string `json:"url"`
	CreatedAt int64  `json:"ts"`
	ShortURL  string `json:"short_url"`
}

func (h *LinkHandler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.links.List(r.Context())
	if err != nil {
		errors.WriteKindError(w, err)
		return
	}

	out := make([]linkResponse, 0, len(all))
	for _, l := range all {
		out = append(out, linkResponse{
			Code:      l.Code,
			URL:       l.URL,
			CreatedAt: l.CreatedAt,
			ShortURL:  links.ShortURL(h.baseURL, l.Code),
		})
	}

	writeJSON(w, http.StatusOK, out)
}

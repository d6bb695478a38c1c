package handlers

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"qrlink/internal/engine/assets"
	"qrlink/internal/engine/links"
	"qrlink/internal/pkg/errors"
)

type AdminHandler struct {
	assets  *assets.Store
	links   *links.Service
	baseURL string
}

func NewAdminHandler(store *assets.Store, linkSvc *links.Service, baseURL string) *AdminHandler {
	return &AdminHandler{assets: store, links: linkSvc, baseURL: strings.TrimRight(baseURL, "/")}
}

type fileRow struct {
	assets.Entry
	MTimeISO string `json:"mtime_iso"`
	URL      string `json:"url"`
	ShortURL string `json:"short_url,omitempty"`
	Thumb    string `json:"thumb,omitempty"`
}

type fileTotals struct {
	All       int    `json:"all"`
	Logo      int    `json:"logo"`
	PDF       int    `json:"pdf"`
	MP3       int    `json:"mp3"`
	Image     int    `json:"image"`
	Size      string `json:"size"`
	SizeBytes int64  `json:"size_bytes"`
}

// Index lists stored files, newest first, with their short links.
func (h *AdminHandler) Index(w http.ResponseWriter, r *http.Request) {
	entries, err := h.assets.List()
	if err != nil {
		errors.WriteKindError(w, err)
		return
	}

	all, err := h.links.List(r.Context())
	if err != nil {
		errors.WriteKindError(w, err)
		return
	}
	shortByURL := make(map[string]string, len(all))
	for _, l := range all {
		if _, ok := shortByURL[l.URL]; !ok {
			shortByURL[l.URL] = links.ShortURL(h.baseURL, l.Code)
		}
	}

	rows := make([]fileRow, 0, len(entries))
	var totals fileTotals
	for _, e := range entries {
		url := StaticURL(h.baseURL, e.RelPath)
		row := fileRow{
			Entry:    e,
			MTimeISO: e.ModTime.Format(time.DateTime),
			URL:      url,
			ShortURL: shortByURL[url],
		}
		if e.Kind == assets.KindLogo || e.Type == assets.TypeImage {
			row.Thumb = "/static/" + e.RelPath
		}
		rows = append(rows, row)

		totals.All++
		totals.SizeBytes += e.Size
		switch {
		case e.Kind == assets.KindLogo:
			totals.Logo++
		case e.Type == assets.TypePDF:
			totals.PDF++
		case e.Type == assets.TypeMP3:
			totals.MP3++
		case e.Type == assets.TypeImage:
			totals.Image++
		}
	}
	totals.Size = assets.HumanBytes(totals.SizeBytes)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rows":   rows,
		"totals": totals,
	})
}

// Delete removes one stored file. An empty atype addresses the logo folder.
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AType string `json:"atype"`
		Name  string `json:"name"`
	}
	if err := decodeJSONOrForm(r, &req.AType, &req.Name, "atype", "name"); err != nil {
		writeFormError(w, err)
		return
	}

	if err := h.assets.Delete(req.AType, req.Name); err != nil {
		if errors.KindOf(err) == errors.StoreIOFailure {
			log.Error().Err(err).Str("name", req.Name).Msg("delete failed")
		}
		errors.WriteKindError(w, err)
		return
	}

	log.Info().Str("atype", req.AType).Str("name", req.Name).Msg("File deleted")
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// decodeJSONOrForm fills the targets from a JSON object or, for other content types, form fields.
func decodeJSONOrForm(r *http.Request, first, second *string, firstKey, secondKey string) error {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return err
		}
		*first, _ = body[firstKey].(string)
		*second, _ = body[secondKey].(string)
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return err
	}
	*first = r.FormValue(firstKey)
	*second = r.FormValue(secondKey)
	return nil
}

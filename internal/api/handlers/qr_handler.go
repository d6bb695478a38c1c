package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"qrlink/internal/api/middleware"
	"qrlink/internal/engine/analytics"
	"qrlink/internal/engine/assets"
	"qrlink/internal/engine/qr"
	"qrlink/internal/pkg/errors"
	"qrlink/internal/platform/config"
)

type QRHandler struct {
	renderer  *qr.Renderer
	assets    *assets.Store
	analytics *analytics.Service
	cfg       config.QRConfig
}

func NewQRHandler(renderer *qr.Renderer, store *assets.Store, tracker *analytics.Service, cfg config.QRConfig) *QRHandler {
	return &QRHandler{renderer: renderer, assets: store, analytics: tracker, cfg: cfg}
}

// Index lists what the render form needs and counts the visit.
func (h *QRHandler) Index(w http.ResponseWriter, r *http.Request) {
	if err := h.analytics.TrackVisit(middleware.ClientIP(r)); err != nil {
		log.Warn().Err(err).Msg("failed to track visit")
	}

	logos, err := h.assets.Logos()
	if err != nil {
		errors.WriteKindError(w, err)
		return
	}
	if logos == nil {
		logos = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"logos":       logos,
		"asset_types": assets.AssetTypes,
		"defaults": map[string]interface{}{
			"ecc":          h.cfg.DefaultECC,
			"size_px":      h.cfg.DefaultSize,
			"preview_size": h.cfg.PreviewSize,
			"min_size":     h.cfg.MinSize,
			"max_size":     h.cfg.MaxSize,
		},
	})
}

// Render returns the QR code as a download.
func (h *QRHandler) Render(w http.ResponseWriter, r *http.Request) {
	req, logo, err := h.parseForm(r, h.cfg.DefaultSize)
	if err != nil {
		writeFormError(w, err)
		return
	}
	if logo != "" {
		// SVG output has no logo support; report it before touching the logo store.
		if req.Format == qr.FormatSVG {
			errors.WriteKindError(w, errors.Newf(errors.UnsupportedCombination, "qr.Render", "SVG download does not support a logo"))
			return
		}
		req.LogoPath, err = h.assets.LogoPath(logo)
		if err != nil {
			errors.WriteKindError(w, err)
			return
		}
	}

	res, err := h.renderer.Render(req)
	if err != nil {
		errors.WriteKindError(w, err)
		return
	}

	if err := h.analytics.TrackDownload(); err != nil {
		log.Warn().Err(err).Msg("failed to track download")
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+res.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(res.Data)
}

// Preview renders an inline PNG. Unknown logos are skipped.
func (h *QRHandler) Preview(w http.ResponseWriter, r *http.Request) {
	req, logo, err := h.parseForm(r, h.cfg.PreviewSize)
	if err != nil {
		writeFormError(w, err)
		return
	}
	req.Format = qr.FormatPNG
	if logo != "" {
		if p, err := h.assets.LogoPath(logo); err == nil {
			req.LogoPath = p
		}
	}

	res, err := h.renderer.Render(req)
	if err != nil {
		errors.WriteKindError(w, err)
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(res.Data)
}

// parseForm reads the render form. A missing or unparsable size falls back to defSize.
func (h *QRHandler) parseForm(r *http.Request, defSize int) (qr.RenderRequest, string, error) {
	if err := r.ParseMultipartForm(1 << 20); err != nil && err != http.ErrNotMultipart {
		return qr.RenderRequest{}, "", err
	}

	size, err := strconv.Atoi(strings.TrimSpace(r.FormValue("size_px")))
	if err != nil {
		size = defSize
	}
	req := qr.NewRenderRequest(r.FormValue("data"), size)

	ecc := r.FormValue("ecc")
	if strings.TrimSpace(ecc) == "" {
		ecc = h.cfg.DefaultECC
	}
	if req.ECC, err = qr.ParseECC(ecc); err != nil {
		return req, "", err
	}
	if req.FillStyle, err = qr.ParseFillStyle(r.FormValue("fill_style")); err != nil {
		return req, "", err
	}
	if req.Format, err = qr.ParseFormat(r.FormValue("out_format")); err != nil {
		return req, "", err
	}
	if req.FillColor, err = qr.ParseColorOr(r.FormValue("fill_color"), qr.Black); err != nil {
		return req, "", err
	}
	if req.FillColor2, err = qr.ParseColorOr(r.FormValue("fill_color2"), qr.Black); err != nil {
		return req, "", err
	}
	if req.Background, err = qr.ParseColorOr(r.FormValue("back_color"), qr.White); err != nil {
		return req, "", err
	}
	req.Transparent = formBool(r.FormValue("transparent"))

	return req, strings.TrimSpace(r.FormValue("logo")), nil
}

func formBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false", "off", "no":
		return false
	}
	return true
}

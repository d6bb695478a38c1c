package handlers

import (
	"net/http"
	"strconv"

	"qrlink/internal/engine/analytics"
	"qrlink/internal/pkg/errors"
)

const dashDaysCookie = "dash_days"

type AnalyticsHandler struct {
	analytics *analytics.Service
}

func NewAnalyticsHandler(tracker *analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: tracker}
}

// Dashboard returns the daily series and totals for ?days=, remembering the window in a cookie.
func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		if c, err := r.Cookie(dashDaysCookie); err == nil {
			raw = c.Value
		}
	}
	days, err := strconv.Atoi(raw)
	if err != nil {
		days = analytics.DefaultWindow
	}
	days = analytics.NormalizeWindow(days)

	series, err := h.analytics.Series(days)
	if err != nil {
		errors.WriteKindError(w, err)
		return
	}
	totals, err := h.analytics.Totals(days)
	if err != nil {
		errors.WriteKindError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     dashDaysCookie,
		Value:    strconv.Itoa(days),
		Path:     "/admin",
		MaxAge:   30 * 24 * 3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"days":    days,
		"allowed": analytics.AllowedWindows,
		"series":  series,
		"totals":  totals,
	})
}

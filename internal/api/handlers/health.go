package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"qrlink/internal/engine/links"
)

type HealthHandler struct {
	links      *links.Service
	staticRoot string
}

func NewHealthHandler(linkSvc *links.Service, staticRoot string) *HealthHandler {
	return &HealthHandler{links: linkSvc, staticRoot: staticRoot}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.links.Ping(ctx); err != nil {
		checks["link_store"] = "unhealthy: " + err.Error()
	} else {
		checks["link_store"] = "healthy"
	}

	if fi, err := os.Stat(h.staticRoot); err != nil {
		checks["static_root"] = "unhealthy: " + err.Error()
	} else if !fi.IsDir() {
		checks["static_root"] = "unhealthy: not a directory"
	} else {
		checks["static_root"] = "healthy"
	}

	status := "healthy"
	for _, check := range checks {
		if len(check) >= 9 && check[:9] == "unhealthy" {
			status = "degraded"
			break
		}
	}

	response := struct {
		Status    string            `json:"status"`
		Timestamp int64             `json:"timestamp"`
		Checks    map[string]string `json:"checks"`
	}{
		Status:    status,
		Timestamp: time.Now().Unix(),
		Checks:    checks,
	}

	statusCode := http.StatusOK
	if status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

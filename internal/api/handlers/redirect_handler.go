package handlers

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	apiContext "qrlink/internal/api/context"
	"qrlink/internal/engine/links"
	"qrlink/internal/pkg/errors"
)

type RedirectHandler struct {
	links *links.Service
}

func NewRedirectHandler(linkSvc *links.Service) *RedirectHandler {
	return &RedirectHandler{links: linkSvc}
}

func (h *RedirectHandler) Handle(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	code := params.ByName("code")

	url, err := h.links.Resolve(r.Context(), code)
	if err != nil {
		errors.WriteKindError(w, err)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

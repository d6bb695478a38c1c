package api

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/julienschmidt/httprouter"
	apiContext "qrlink/internal/api/context"
	"qrlink/internal/api/handlers"
	"qrlink/internal/api/middleware"
	"qrlink/internal/pkg/errors"
	"qrlink/internal/platform/config"
)

type Dependencies struct {
	QRHandler        *handlers.QRHandler
	UploadHandler    *handlers.UploadHandler
	RedirectHandler  *handlers.RedirectHandler
	AdminHandler     *handlers.AdminHandler
	LinkHandler      *handlers.LinkHandler
	AnalyticsHandler *handlers.AnalyticsHandler
	HealthHandler    *handlers.HealthHandler
	MetricsHandler   *handlers.MetricsHandler
	AdminMiddleware  *middleware.AdminMiddleware
	RateLimiter      *middleware.RateLimiter
	HTTPMetrics      *middleware.HTTPMetrics
	RateLimits       config.RateLimitConfig
	StaticRoot       string
	MaxBodyBytes     int64
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	renderLimit := deps.RateLimiter.Middleware("render", deps.RateLimits.RenderPerMinute)
	uploadLimit := deps.RateLimiter.Middleware("upload", deps.RateLimits.UploadPerMinute)

	// handle registers a route with request metrics labelled by its pattern.
	handle := func(method, pattern string, h http.HandlerFunc, mws ...func(http.HandlerFunc) http.HandlerFunc) {
		mws = append([]func(http.HandlerFunc) http.HandlerFunc{deps.HTTPMetrics.Instrument(method, pattern)}, mws...)
		router.Handle(method, pattern, chain(h, mws...))
	}

	// Public
	handle("GET", "/", deps.QRHandler.Index)
	handle("POST", "/", deps.QRHandler.Render, renderLimit)
	handle("POST", "/preview_qr", deps.QRHandler.Preview, renderLimit)
	handle("POST", "/upload_asset/:atype", deps.UploadHandler.UploadAsset, uploadLimit)
	handle("POST", "/upload_logo", deps.UploadHandler.UploadLogo, uploadLimit)
	handle("GET", "/s/:code", deps.RedirectHandler.Handle)
	handle("GET", "/static/*filepath", staticFiles(deps.StaticRoot))
	handle("GET", "/health", deps.HealthHandler.Check)

	page := deps.AdminMiddleware.Page
	adminAPI := deps.AdminMiddleware.API

	// Admin
	handle("GET", "/admin", deps.AdminHandler.Index, page)
	handle("GET", "/admin/dashboard", deps.AnalyticsHandler.Dashboard, page)
	handle("POST", "/admin/delete", deps.AdminHandler.Delete, page)
	handle("POST", "/admin/shorten", deps.LinkHandler.Shorten, adminAPI)
	handle("GET", "/admin/links", deps.LinkHandler.List, adminAPI)
	handle("GET", "/admin/metrics", deps.MetricsHandler.Export, adminAPI)

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Not found", nil)
	})

	return router
}

// NewHandler wraps the router with request logging and the global body cap.
func NewHandler(deps *Dependencies) http.Handler {
	return middleware.RequestLogger(middleware.BodyLimit(deps.MaxBodyBytes, NewRouter(deps)))
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}

// staticFiles serves uploaded logos and assets under root. Directory listings and
// anything outside logo/ and files/ are not found.
func staticFiles(root string) http.HandlerFunc {
	fs := http.FileServer(http.Dir(root))
	return func(w http.ResponseWriter, r *http.Request) {
		ps := r.Context().Value(apiContext.Params).(httprouter.Params)
		name := path.Clean(ps.ByName("filepath"))
		public := strings.HasPrefix(name, "/logo/") || strings.HasPrefix(name, "/files/")
		if !public || strings.HasSuffix(ps.ByName("filepath"), "/") {
			errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Not found", nil)
			return
		}
		r2 := r.Clone(r.Context())
		r2.URL.Path = name
		fs.ServeHTTP(w, r2)
	}
}

package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"qrlink/internal/api/handlers"
	"qrlink/internal/api/middleware"
	"qrlink/internal/engine/analytics"
	"qrlink/internal/engine/assets"
	"qrlink/internal/engine/links"
	"qrlink/internal/engine/qr"
	"qrlink/internal/platform/auth"
	"qrlink/internal/platform/config"
)

const (
	testBaseURL  = "http://qr.test"
	testAdminKey = "letmein"
)

type testEnv struct {
	handler   http.Handler
	assets    *assets.Store
	links     *links.Service
	analytics *analytics.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	staticRoot := filepath.Join(dir, "static")

	store := assets.NewStore(staticRoot, nil)
	require.NoError(t, store.EnsureDirs())

	linkSvc := links.NewService(links.NewFileStore(filepath.Join(dir, "data", "shortlinks.json")), 6)
	tracker := analytics.NewService(analytics.NewRepository(filepath.Join(dir, "data", "analytics.json")), time.UTC, "salt")

	renderer, err := qr.NewRenderer(qr.Options{Version: 10, Border: 4, MinSize: 64, MaxSize: 2048})
	require.NoError(t, err)

	qrCfg := config.QRConfig{DefaultECC: "H", DefaultSize: 256, PreviewSize: 128, MinSize: 64, MaxSize: 2048}
	sessions := auth.NewSessionService(config.SecurityConfig{SecretKey: "test-secret", AdminKey: testAdminKey})

	limiter := middleware.NewRateLimiter()
	t.Cleanup(limiter.Close)
	reg := prometheus.NewRegistry()

	deps := &Dependencies{
		QRHandler:        handlers.NewQRHandler(renderer, store, tracker, qrCfg),
		UploadHandler:    handlers.NewUploadHandler(store, linkSvc, tracker, testBaseURL),
		RedirectHandler:  handlers.NewRedirectHandler(linkSvc),
		AdminHandler:     handlers.NewAdminHandler(store, linkSvc, testBaseURL),
		LinkHandler:      handlers.NewLinkHandler(linkSvc, testBaseURL),
		AnalyticsHandler: handlers.NewAnalyticsHandler(tracker),
		HealthHandler:    handlers.NewHealthHandler(linkSvc, staticRoot),
		MetricsHandler:   handlers.NewMetricsHandler(reg, linkSvc, tracker),
		AdminMiddleware:  middleware.NewAdminMiddleware(sessions, false),
		RateLimiter:      limiter,
		HTTPMetrics:      middleware.NewHTTPMetrics(reg),
		RateLimits:       config.RateLimitConfig{RenderPerMinute: 1000, UploadPerMinute: 1000},
		StaticRoot:       staticRoot,
		MaxBodyBytes:     2 << 20,
	}

	return &testEnv{handler: NewHandler(deps), assets: store, links: linkSvc, analytics: tracker}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func formRequest(path string, values url.Values) *http.Request {
	req := httptest.NewRequest("POST", path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func multipartRequest(t *testing.T, path, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func logoPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRenderDownload(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(formRequest("/", url.Values{"data": {"https://example.com"}, "size_px": {"256"}}))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="qr_code.png"`, rr.Header().Get("Content-Disposition"))

	img, err := png.Decode(rr.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 256, 256), img.Bounds())

	totals, err := env.analytics.Totals(7)
	require.NoError(t, err)
	assert.Equal(t, 1, totals.Today.Downloads)
}

func TestRenderSVG(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(formRequest("/", url.Values{"data": {"hello"}, "out_format": {"svg"}}))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "image/svg+xml", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "qr_code.svg")
	assert.True(t, strings.HasPrefix(rr.Body.String(), "<?xml") || strings.HasPrefix(rr.Body.String(), "<svg"))
}

func TestRenderRejections(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		values url.Values
		status int
		code   string
	}{
		{"Empty data", url.Values{"data": {""}}, http.StatusBadRequest, "INVALID_INPUT"},
		{"Bad colour", url.Values{"data": {"x"}, "fill_color": {"notacolor"}}, http.StatusBadRequest, "INVALID_COLOR"},
		{"SVG with logo", url.Values{"data": {"x"}, "out_format": {"svg"}, "logo": {"brand.png"}}, http.StatusBadRequest, "UNSUPPORTED_COMBINATION"},
		{"SVG gradient", url.Values{"data": {"x"}, "out_format": {"svg"}, "fill_style": {"radial"}}, http.StatusBadRequest, "UNSUPPORTED_COMBINATION"},
		{"Unknown logo", url.Values{"data": {"x"}, "logo": {"missing.png"}}, http.StatusNotFound, "NOT_FOUND"},
		{"Too much data", url.Values{"data": {strings.Repeat("A", 400)}}, http.StatusUnprocessableEntity, "CAPACITY_EXCEEDED"},
		{"Size out of range", url.Values{"data": {"x"}, "size_px": {"10"}}, http.StatusBadRequest, "INVALID_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(formRequest("/", tt.values))
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
			assert.Equal(t, tt.code, decodeBody(t, rr)["code"])
		})
	}
}

func TestPreviewIgnoresUnknownLogo(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(formRequest("/preview_qr", url.Values{"data": {"hello"}, "logo": {"missing.png"}}))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Empty(t, rr.Header().Get("Content-Disposition"))

	img, err := png.Decode(rr.Body)
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
}

func TestLogoUploadAndIndex(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(multipartRequest(t, "/upload_logo", "logo", "Brand Mark.png", logoPNG(t)))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Brand_Mark.png", decodeBody(t, rr)["name"])

	rr = env.do(httptest.NewRequest("GET", "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []interface{}{"Brand_Mark.png"}, decodeBody(t, rr)["logos"])

	rr = env.do(formRequest("/", url.Values{"data": {"https://example.com"}, "logo": {"Brand_Mark.png"}}))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = env.do(httptest.NewRequest("GET", "/static/logo/Brand_Mark.png", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	totals, err := env.analytics.Totals(7)
	require.NoError(t, err)
	assert.Equal(t, 1, totals.Today.Visits)
}

func TestAssetUploadShortLinkFlow(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(multipartRequest(t, "/upload_asset/pdf", "file", "Menu.pdf", []byte("%PDF-1.4 menu")))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	body := decodeBody(t, rr)
	assert.Equal(t, true, body["success"])
	longURL := body["url"].(string)
	shortURL := body["short_url"].(string)
	assert.True(t, strings.HasPrefix(longURL, testBaseURL+"/static/files/pdf/Menu_"), longURL)
	assert.True(t, strings.HasPrefix(shortURL, testBaseURL+"/s/"), shortURL)

	rr = env.do(httptest.NewRequest("GET", strings.TrimPrefix(shortURL, testBaseURL), nil))
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, longURL, rr.Header().Get("Location"))

	rr = env.do(httptest.NewRequest("GET", strings.TrimPrefix(longURL, testBaseURL), nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "%PDF-1.4 menu", rr.Body.String())

	rr = env.do(multipartRequest(t, "/upload_asset/video", "file", "a.mp4", []byte("x")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	totals, err := env.analytics.Totals(7)
	require.NoError(t, err)
	assert.Equal(t, 1, totals.Today.Uploads)
}

func TestRedirectUnknownCode(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/s/zzzzzz", "/s/bad!code"} {
		rr := env.do(httptest.NewRequest("GET", path, nil))
		assert.Equal(t, http.StatusNotFound, rr.Code, path)
		assert.Equal(t, "NOT_FOUND", decodeBody(t, rr)["code"])
	}
}

func TestStaticDoesNotExposeDataOrListings(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/static/", "/static/logo/", "/static/shortlinks.json", "/static/../data/shortlinks.json"} {
		rr := env.do(httptest.NewRequest("GET", path, nil))
		assert.Equal(t, http.StatusNotFound, rr.Code, path)
	}
}

func TestAdminShorten(t *testing.T) {
	env := newTestEnv(t)

	shorten := func(withKey bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/admin/shorten", strings.NewReader(`{"url":"https://a.test/x"}`))
		req.Header.Set("Content-Type", "application/json")
		if withKey {
			req.Header.Set("X-Admin-Key", testAdminKey)
		}
		return env.do(req)
	}

	rr := shorten(false)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = shorten(true)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	first := decodeBody(t, rr)
	assert.Equal(t, false, first["already"])

	rr = shorten(true)
	require.Equal(t, http.StatusOK, rr.Code)
	second := decodeBody(t, rr)
	assert.Equal(t, true, second["already"])
	assert.Equal(t, first["short_url"], second["short_url"])

	all, err := env.links.List(httptest.NewRequest("GET", "/", nil).Context())
	require.NoError(t, err)
	assert.Len(t, all, 1)

	req := formRequest("/admin/shorten", url.Values{"url": {""}})
	req.Header.Set("X-Admin-Key", testAdminKey)
	rr = env.do(req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAdminIndexAndDelete(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(httptest.NewRequest("GET", "/admin", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do(multipartRequest(t, "/upload_asset/pdf", "file", "doc.pdf", []byte("%PDF")))
	require.Equal(t, http.StatusOK, rr.Code)
	uploaded := decodeBody(t, rr)

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("X-Admin-Key", testAdminKey)
	rr = env.do(req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	body := decodeBody(t, rr)
	rows := body["rows"].([]interface{})
	require.Len(t, rows, 1)
	row := rows[0].(map[string]interface{})
	assert.Equal(t, uploaded["short_url"], row["short_url"])
	assert.Equal(t, uploaded["filename"], row["name"])
	totals := body["totals"].(map[string]interface{})
	assert.Equal(t, float64(1), totals["pdf"])
	assert.Equal(t, "4 B", totals["size"])

	del := func() *httptest.ResponseRecorder {
		payload, _ := json.Marshal(map[string]string{"atype": "pdf", "name": uploaded["filename"].(string)})
		req := httptest.NewRequest("POST", "/admin/delete", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Admin-Key", testAdminKey)
		return env.do(req)
	}
	assert.Equal(t, http.StatusOK, del().Code)
	assert.Equal(t, http.StatusNotFound, del().Code)
}

func TestAdminKeyQueryRedirect(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(httptest.NewRequest("GET", "/admin/dashboard?days=7&key="+testAdminKey, nil))
	require.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/admin/dashboard?days=7", rr.Header().Get("Location"))

	cookies := rr.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest("GET", "/admin/dashboard?days=7", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr = env.do(req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decodeBody(t, rr)
	assert.Equal(t, float64(7), body["days"])
	assert.Len(t, body["series"].(map[string]interface{})["labels"], 7)
}

func TestAdminDeleteWithQueryKey(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(multipartRequest(t, "/upload_asset/pdf", "file", "doc.pdf", []byte("%PDF")))
	require.Equal(t, http.StatusOK, rr.Code)
	name := decodeBody(t, rr)["filename"].(string)

	rr = env.do(formRequest("/admin/delete?key="+testAdminKey, url.Values{"atype": {"pdf"}, "name": {name}}))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Empty(t, rr.Header().Get("Location"))
	assert.Equal(t, true, decodeBody(t, rr)["success"])

	list, err := env.assets.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDashboardWindowFallsBack(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("GET", "/admin/dashboard?days=9", nil)
	req.Header.Set("X-Admin-Key", testAdminKey)
	rr := env.do(req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(analytics.DefaultWindow), decodeBody(t, rr)["days"])

	req = httptest.NewRequest("GET", "/admin/dashboard", nil)
	req.Header.Set("X-Admin-Key", testAdminKey)
	req.AddCookie(&http.Cookie{Name: "dash_days", Value: "14"})
	rr = env.do(req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(14), decodeBody(t, rr)["days"])
}

func TestGlobalBodyLimit(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(multipartRequest(t, "/upload_asset/pdf", "file", "big.pdf", bytes.Repeat([]byte("x"), 3<<20)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Equal(t, "PAYLOAD_TOO_LARGE", decodeBody(t, rr)["code"])
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(httptest.NewRequest("GET", "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "healthy", decodeBody(t, rr)["status"])
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	req := httptest.NewRequest("GET", "/admin/metrics", nil)
	req.Header.Set("X-Admin-Key", testAdminKey)
	rr = env.do(req)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "qrlink_up 1")
	assert.Contains(t, body, "qrlink_short_links 0")
	assert.Contains(t, body, `qrlink_today{counter="downloads"} 0`)
	assert.Contains(t, body, `qrlink_http_requests_total{endpoint="/health",method="GET",status="200"} 1`)
	assert.Contains(t, body, "qrlink_http_request_duration_seconds_bucket")

	rr = env.do(formRequest("/", url.Values{"data": {"https://example.com"}}))
	require.Equal(t, http.StatusOK, rr.Code)
	rr = env.do(req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `qrlink_today{counter="downloads"} 1`)
	assert.Contains(t, rr.Body.String(), `qrlink_http_requests_total{endpoint="/admin/metrics",method="GET",status="200"} 1`)
}

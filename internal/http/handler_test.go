package http

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"vegprice-service/internal/auth"
	"vegprice-service/internal/config"
	"vegprice-service/internal/domain/produce"
	"vegprice-service/internal/http/middleware"
	"vegprice-service/internal/model"
	"vegprice-service/internal/pricing"
	"vegprice-service/internal/service"
)

type recordingStore struct {
	keys []string
}

func (s *recordingStore) Upload(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	if _, err := io.ReadAll(body); err != nil {
		return "", err
	}
	s.keys = append(s.keys, key)
	return "https://snapshots.example/" + key, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		HTTP:        config.HTTPConfig{MaxUploadMB: 1},
		Detection: config.DetectionConfig{
			ConfidenceThreshold: 0.6,
			DefaultLocation:     "Delhi",
			ImageMaxWidth:       640,
			ImageMaxHeight:      480,
			ImageMaxPixels:      1_000_000,
		},
	}
}

func newTestRouter(t *testing.T, parser *auth.Parser, store SnapshotStore) (*gin.Engine, *service.MarketService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	catalog := pricing.DefaultCatalog()
	svc := service.NewMarketService(
		pricing.NewEngine(catalog, nil),
		pricing.NewLedger(catalog, nil),
		zerolog.Nop(),
		service.WithRandSource(service.NewRandSource(21)),
		service.WithDefaults(cfg.Detection.DefaultLocation, cfg.Detection.ConfidenceThreshold),
	)

	var authMiddleware gin.HandlerFunc
	if parser != nil {
		authMiddleware = middleware.Auth(parser)
	}
	handler := NewHandler(svc, cfg, zerolog.Nop(), store)
	return NewRouter(handler, authMiddleware, cfg.Environment, nil, zerolog.Nop()), svc
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.RGBA{R: 210, G: 30, B: 25, A: 255}
			if x >= width/2 {
				c = color.RGBA{R: 40, G: 170, B: 50, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, field string, data []byte, values map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if data != nil {
		part, err := writer.CreateFormFile(field, "basket.png")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for k, v := range values {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/detect", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t, nil, nil)

	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := serve(router, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestDetect(t *testing.T) {
	store := &recordingStore{}
	router, _ := newTestRouter(t, nil, store)

	req := multipartRequest(t, "image", pngBytes(t, 120, 80), map[string]string{
		"location":             "mumbai",
		"confidence_threshold": "0.5",
	})
	rec := serve(router, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp detectResponse
	decodeData(t, rec, &resp)

	assert.NotEqual(t, uuid.Nil, resp.ScanID)
	assert.Equal(t, "Mumbai", resp.Location)
	total := 0.0
	for _, d := range resp.Detections {
		assert.GreaterOrEqual(t, d.Confidence, 0.5)
		assert.LessOrEqual(t, d.BBox[2], 120)
		assert.LessOrEqual(t, d.BBox[3], 80)
		total += d.LineTotal
	}
	assert.InDelta(t, total, resp.TotalAmount, 0.01)

	require.Len(t, store.keys, 1)
	assert.True(t, strings.HasPrefix(store.keys[0], "scans/"))
	assert.True(t, strings.HasSuffix(store.keys[0], resp.ScanID.String()+".png"))
}

func TestDetectAcceptsFileField(t *testing.T) {
	router, _ := newTestRouter(t, nil, nil)

	rec := serve(router, multipartRequest(t, "file", pngBytes(t, 32, 32), nil))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestDetectRejects(t *testing.T) {
	router, _ := newTestRouter(t, nil, nil)
	valid := pngBytes(t, 16, 16)

	tests := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{name: "no image", req: multipartRequest(t, "image", nil, map[string]string{"location": "Delhi"}), status: http.StatusBadRequest},
		{name: "not an image", req: multipartRequest(t, "image", []byte("plain text"), nil), status: http.StatusBadRequest},
		{name: "threshold not a number", req: multipartRequest(t, "image", valid, map[string]string{"confidence_threshold": "high"}), status: http.StatusBadRequest},
		{name: "threshold out of range", req: multipartRequest(t, "image", valid, map[string]string{"confidence_threshold": "1.5"}), status: http.StatusBadRequest},
		{name: "file above limit", req: multipartRequest(t, "image", make([]byte, 3<<19), nil), status: http.StatusRequestEntityTooLarge},
		{name: "body above limit", req: multipartRequest(t, "image", make([]byte, 3<<20), nil), status: http.StatusRequestEntityTooLarge},
		{name: "declared size above pixel cap", req: multipartRequest(t, "image", pngBytes(t, 1001, 1000), nil), status: http.StatusBadRequest},
		{name: "not multipart", req: httptest.NewRequest(http.MethodPost, "/api/v1/detect", strings.NewReader("{}")), status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, tt.req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestPrices(t *testing.T) {
	router, svc := newTestRouter(t, nil, nil)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/prices/Bell%20Pepper?location=chennai", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var quote produce.PriceQuote
	decodeData(t, rec, &quote)
	assert.Equal(t, "bell_pepper", quote.Vegetable)
	assert.Equal(t, "Chennai", quote.Location)
	assert.Equal(t, "INR", quote.Currency)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/prices", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var all struct {
		Location string               `json:"location"`
		Prices   []produce.PriceQuote `json:"prices"`
	}
	decodeData(t, rec, &all)
	assert.Equal(t, "Delhi", all.Location)
	assert.Len(t, all.Prices, len(svc.Vegetables()))

	rec = serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/prices/batch",
		strings.NewReader(`{"vegetables":["tomato","onion"],"location":"Kolkata"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &all)
	assert.Len(t, all.Prices, 2)

	rec = serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/prices/batch", strings.NewReader(`{"vegetables":[]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPriceHistory(t *testing.T) {
	router, _ := newTestRouter(t, nil, nil)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/price-history?vegetable=tomato&location=Delhi&days=7", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var points []produce.HistoryPoint
	decodeData(t, rec, &points)
	require.Len(t, points, 7)
	assert.True(t, points[0].Date.Before(points[6].Date))

	for _, query := range []string{"vegetable=tomato&days=400", "vegetable=tomato&days=week", "days=7"} {
		rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/price-history?"+query, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestExports(t *testing.T) {
	router, _ := newTestRouter(t, nil, nil)

	paths := []string{
		"/api/v1/price-history/export?vegetable=onion&days=10",
		"/api/v1/market-summary/mumbai/export",
	}
	for _, path := range paths {
		rec := serve(router, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")

		f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		assert.NotEmpty(t, f.GetSheetList())
		require.NoError(t, f.Close())
	}
}

func TestMarketSummary(t *testing.T) {
	router, svc := newTestRouter(t, nil, nil)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/market-summary/bangalore", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var summary produce.MarketSummary
	decodeData(t, rec, &summary)
	assert.Equal(t, "Bangalore", summary.Location)
	assert.Equal(t, len(svc.Vegetables()), summary.TotalVegetables)
	assert.Len(t, summary.PriceRanges, summary.TotalVegetables)
}

func TestContributionsPublic(t *testing.T) {
	router, _ := newTestRouter(t, nil, nil)

	rec := serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/contributions",
		strings.NewReader(`{"vegetable":"Tomato","price":40,"location":"delhi","submitted_by":"ravi"}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/contributions",
		strings.NewReader(`{"vegetable":"tomato","price":0,"location":"delhi","submitted_by":"ravi"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/contributions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []produce.Contribution
	decodeData(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "tomato", list[0].Vegetable)
	assert.Equal(t, "Delhi", list[0].Location)
}

func TestContributionsProtected(t *testing.T) {
	parser := auth.NewParser("test-secret")
	router, svc := newTestRouter(t, parser, nil)

	contributor, err := parser.Issue(model.Principal{UserID: uuid.New(), Name: "asha", Role: model.UserRoleContributor}, time.Hour)
	require.NoError(t, err)
	viewer, err := parser.Issue(model.Principal{UserID: uuid.New(), Role: model.UserRoleViewer}, time.Hour)
	require.NoError(t, err)

	body := `{"vegetable":"okra","price":50,"location":"Chennai","submitted_by":"someone else"}`

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{name: "no token", token: "", status: http.StatusUnauthorized},
		{name: "bad token", token: "Bearer nope", status: http.StatusUnauthorized},
		{name: "viewer", token: "Bearer " + viewer, status: http.StatusForbidden},
		{name: "contributor", token: "Bearer " + contributor, status: http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/contributions", strings.NewReader(body))
			if tt.token != "" {
				req.Header.Set("Authorization", tt.token)
			}
			rec := serve(router, req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	list := svc.Contributions()
	require.Len(t, list, 1)
	assert.Equal(t, "asha", list[0].SubmittedBy)
}

func TestListings(t *testing.T) {
	router, _ := newTestRouter(t, nil, nil)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/vegetables", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var vegetables struct {
		Vegetables []string `json:"vegetables"`
		Total      int      `json:"total"`
	}
	decodeData(t, rec, &vegetables)
	assert.Equal(t, 20, vegetables.Total)
	assert.Contains(t, vegetables.Vegetables, "bell_pepper")

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/locations", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var locations struct {
		Locations []pricing.Location `json:"locations"`
		Default   string             `json:"default"`
	}
	decodeData(t, rec, &locations)
	assert.Len(t, locations.Locations, 6)
	assert.Equal(t, "Delhi", locations.Default)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/model/info", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var info service.ModelInfo
	decodeData(t, rec, &info)
	assert.False(t, info.ModelLoaded)
	assert.Equal(t, produce.MethodHeuristic, info.ModelType)
	assert.Equal(t, 0.6, info.ConfidenceThreshold)
}

func TestScansWithoutAudit(t *testing.T) {
	router, _ := newTestRouter(t, nil, nil)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/scans?location=Delhi", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

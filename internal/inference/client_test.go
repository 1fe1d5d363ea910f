package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vegprice-service/internal/domain/produce"
	"vegprice-service/internal/vision"
)

func modelServer(t *testing.T, status int, detections []modelDetection) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(status)
		case "/predict":
			assert.NoError(t, r.ParseMultipartForm(10<<20))
			_, _, err := r.FormFile("file")
			assert.NoError(t, err)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"detections": detections})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestDetectMapsClasses(t *testing.T) {
	srv := modelServer(t, http.StatusOK, []modelDetection{
		{Class: "apple", Confidence: 0.91234, BBox: [4]float64{10, 10, 60, 40}},
		{Class: "Carrot", Confidence: 0.8, BBox: [4]float64{0, 0, 100, 50}},
		{Class: "onion", Confidence: 0.7, BBox: [4]float64{-5, -5, 500, 500}},
		{Class: "bottle", Confidence: 0.99, BBox: [4]float64{0, 0, 10, 10}},
		{Class: "potato", Confidence: 0.6, BBox: [4]float64{40, 40, 20, 20}},
	})
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	require.NoError(t, client.CheckHealth(context.Background()))
	require.True(t, client.Loaded())

	detections, err := client.Detect(context.Background(), vision.NewFrame(100, 50))
	require.NoError(t, err)
	require.Len(t, detections, 3)

	assert.Equal(t, "tomato", detections[0].Vegetable)
	assert.Equal(t, 0.912, detections[0].Confidence)
	assert.Equal(t, produce.BBox{X1: 10, Y1: 10, X2: 60, Y2: 40}, detections[0].BBox)
	assert.Equal(t, 3.1, detections[0].QuantityKg)
	assert.Equal(t, produce.MethodModel, detections[0].DetectionMethod)

	assert.Equal(t, "carrot", detections[1].Vegetable)
	assert.Equal(t, 10.1, detections[1].QuantityKg)

	assert.Equal(t, "onion", detections[2].Vegetable)
	assert.Equal(t, produce.BBox{X1: 0, Y1: 0, X2: 100, Y2: 50}, detections[2].BBox)
}

func TestDetectDropsConfidenceOutsideUnitRange(t *testing.T) {
	srv := modelServer(t, http.StatusOK, []modelDetection{
		{Class: "tomato", Confidence: 1.7, BBox: [4]float64{0, 0, 10, 10}},
		{Class: "onion", Confidence: -0.2, BBox: [4]float64{0, 0, 10, 10}},
		{Class: "potato", Confidence: 1, BBox: [4]float64{0, 0, 10, 10}},
		{Class: "carrot", Confidence: 0, BBox: [4]float64{0, 0, 10, 10}},
	})
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	detections, err := client.Detect(context.Background(), vision.NewFrame(20, 20))
	require.NoError(t, err)
	require.Len(t, detections, 2)

	assert.Equal(t, "potato", detections[0].Vegetable)
	assert.Equal(t, 1.0, detections[0].Confidence)
	assert.Equal(t, "carrot", detections[1].Vegetable)
	for _, d := range detections {
		assert.True(t, d.Confidence >= 0 && d.Confidence <= 1)
	}
}

func TestCheckHealthUnhealthy(t *testing.T) {
	srv := modelServer(t, http.StatusServiceUnavailable, nil)
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	require.Error(t, client.CheckHealth(context.Background()))
	assert.False(t, client.Loaded())
}

func TestNotConfigured(t *testing.T) {
	client := NewClient("", time.Second)

	require.ErrorIs(t, client.CheckHealth(context.Background()), ErrNotConfigured)
	_, err := client.Detect(context.Background(), vision.NewFrame(4, 4))
	require.ErrorIs(t, err, ErrNotConfigured)
	assert.False(t, client.Loaded())
}

package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"vegprice-service/internal/domain/produce"
)

func TestScanRecordToScan(t *testing.T) {
	id := uuid.New()
	url := "https://snapshots.example/scans/2025/03/14/x.jpg"
	created := time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)

	rec := ScanRecord{
		ID:              id,
		Location:        "Delhi",
		DetectionMethod: produce.MethodHeuristic,
		ImageWidth:      640,
		ImageHeight:     480,
		DetectionsCount: 1,
		TotalAmount:     33.6,
		SnapshotURL:     &url,
		Detections:      datatypes.JSON(`[{"vegetable":"tomato","quantity_kg":1.2,"confidence":0.87,"price_per_kg":28,"line_total":33.6,"bbox":[1,2,30,40],"detection_method":"smart_dummy","timestamp":"2025-03-14T09:30:00Z"}]`),
		CreatedAt:       created,
	}

	scan, err := rec.toScan()
	require.NoError(t, err)
	assert.Equal(t, id, scan.ID)
	assert.Equal(t, url, scan.SnapshotURL)
	assert.Equal(t, created, scan.CreatedAt)
	require.Len(t, scan.Detections, 1)
	assert.Equal(t, "tomato", scan.Detections[0].Vegetable)
	assert.Equal(t, [4]int{1, 2, 30, 40}, scan.Detections[0].BBox)
}

func TestScanRecordToScanWithoutDetections(t *testing.T) {
	scan, err := ScanRecord{ID: uuid.New(), Location: "Mumbai"}.toScan()
	require.NoError(t, err)
	assert.Empty(t, scan.SnapshotURL)
	assert.NotNil(t, scan.Detections)
	assert.Empty(t, scan.Detections)
}

func TestScanRecordToScanCorruptDetections(t *testing.T) {
	_, err := ScanRecord{ID: uuid.New(), Detections: datatypes.JSON(`{"not":"a list"}`)}.toScan()
	require.Error(t, err)
}

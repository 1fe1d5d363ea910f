package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"vegprice-service/internal/domain/produce"
	"vegprice-service/internal/pricing"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (ScanRecord) TableName() string {
	return "veg_scans"
}

func (ContributionRecord) TableName() string {
	return "veg_contributions"
}

type ScanRecord struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	Location        string    `gorm:"not null"`
	DetectionMethod string    `gorm:"not null"`
	ImageWidth      int       `gorm:"not null"`
	ImageHeight     int       `gorm:"not null"`
	DetectionsCount int       `gorm:"not null"`
	TotalAmount     float64   `gorm:"not null"`
	SnapshotURL     *string
	Detections      datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt       time.Time
}

type ContributionRecord struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	LedgerID      int64     `gorm:"not null"`
	Vegetable     string    `gorm:"not null"`
	Price         float64   `gorm:"not null"`
	Location      string    `gorm:"not null"`
	SubmittedBy   string    `gorm:"not null"`
	BasePriceOld  *float64
	BasePriceNew  *float64
	ContributedAt time.Time `gorm:"not null"`
	CreatedAt     time.Time
}

func (r *AuditRepository) RecordScan(ctx context.Context, scan *produce.Scan) error {
	record := ScanRecord{
		ID:              scan.ID,
		Location:        scan.Location,
		DetectionMethod: scan.Method,
		ImageWidth:      scan.Width,
		ImageHeight:     scan.Height,
		DetectionsCount: len(scan.Detections),
		CreatedAt:       scan.CreatedAt,
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	for _, d := range scan.Detections {
		record.TotalAmount += d.LineTotal
	}
	if scan.SnapshotURL != "" {
		record.SnapshotURL = &scan.SnapshotURL
	}
	if len(scan.Detections) > 0 {
		raw, err := json.Marshal(scan.Detections)
		if err != nil {
			return fmt.Errorf("marshal detections: %w", err)
		}
		record.Detections = datatypes.JSON(raw)
	}

	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to create scan record in database: %w", err)
	}

	scan.ID = record.ID
	return nil
}

func (r *AuditRepository) RecordContribution(ctx context.Context, receipt pricing.Receipt) error {
	record := ContributionRecord{
		ID:            uuid.New(),
		LedgerID:      receipt.ID,
		Vegetable:     receipt.Vegetable,
		Price:         receipt.Price,
		Location:      receipt.Location,
		SubmittedBy:   receipt.SubmittedBy,
		ContributedAt: receipt.Timestamp,
		CreatedAt:     time.Now(),
	}
	if receipt.Adjusted {
		record.BasePriceOld = &receipt.OldBase
		record.BasePriceNew = &receipt.NewBase
	}

	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to create contribution record in database: %w", err)
	}
	return nil
}

// FindScans возвращает последние сканы, новые первыми.
func (r *AuditRepository) FindScans(ctx context.Context, location *string, from, to *time.Time, limit, offset int) ([]produce.Scan, error) {
	query := r.db.WithContext(ctx).Model(&ScanRecord{})

	if location != nil {
		query = query.Where("location = ?", *location)
	}
	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at <= ?", *to)
	}

	query = query.Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(min(limit, 100))
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var records []ScanRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}

	scans := make([]produce.Scan, 0, len(records))
	for _, rec := range records {
		scan, err := rec.toScan()
		if err != nil {
			return nil, err
		}
		scans = append(scans, scan)
	}
	return scans, nil
}

func (rec ScanRecord) toScan() (produce.Scan, error) {
	scan := produce.Scan{
		ID:         rec.ID,
		Location:   rec.Location,
		Method:     rec.DetectionMethod,
		Width:      rec.ImageWidth,
		Height:     rec.ImageHeight,
		Detections: []produce.PricedDetection{},
		CreatedAt:  rec.CreatedAt,
	}
	if rec.SnapshotURL != nil {
		scan.SnapshotURL = *rec.SnapshotURL
	}
	if len(rec.Detections) > 0 {
		if err := json.Unmarshal(rec.Detections, &scan.Detections); err != nil {
			return produce.Scan{}, fmt.Errorf("decode detections of scan %s: %w", rec.ID, err)
		}
	}
	return scan, nil
}

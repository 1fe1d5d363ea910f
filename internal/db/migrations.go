package db

import (
	"fmt"

	"gorm.io/gorm"
)

// Аудит-таблицы только пополняются: при старте сервис их не читает,
// каталог и журнал вкладов живут в памяти процесса.
var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,

	// Таблица veg_scans - запросы распознавания и их результат
	`CREATE TABLE IF NOT EXISTS veg_scans (
		id               UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		location         TEXT NOT NULL,
		detection_method TEXT NOT NULL,
		image_width      INT NOT NULL,
		image_height     INT NOT NULL,
		detections_count INT NOT NULL DEFAULT 0,
		total_amount     NUMERIC(12,2) NOT NULL DEFAULT 0,
		snapshot_url     TEXT,
		detections       JSONB,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_veg_scans_created_at ON veg_scans(created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_veg_scans_location ON veg_scans(location);`,

	// Таблица veg_contributions - копия журнала вкладов пользователей
	`CREATE TABLE IF NOT EXISTS veg_contributions (
		id              UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		ledger_id       BIGINT NOT NULL,
		vegetable       TEXT NOT NULL,
		price           NUMERIC(10,2) NOT NULL,
		location        TEXT NOT NULL,
		submitted_by    TEXT NOT NULL,
		base_price_old  NUMERIC(10,2),
		base_price_new  NUMERIC(10,2),
		contributed_at  TIMESTAMPTZ NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_veg_contributions_vegetable ON veg_contributions(vegetable, contributed_at DESC);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}

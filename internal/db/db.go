package db

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"parking-reservation-backend/config"
	"parking-reservation-backend/internal/model"
)

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Println("Running database migrations...")
	if err := db.AutoMigrate(
		&model.Account{},
		&model.Slot{},
		&model.Reservation{},
		&model.PushSubscription{},
	); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	if cfg.EnableExclusion {
		log.Println("Applying reservation exclusion constraint DDL...")
		if err := applyExclusionDDL(db); err != nil {
			return nil, err
		}
	}

	log.Println("Database initialization complete.")
	return db, nil
}

// applyExclusionDDL installs the storage-level backstop for double bookings:
// no two Active reservations for the same slot and date may have overlapping
// half-open minute ranges. The admission path already serializes bookings;
// this constraint catches anything that slips past it (e.g. a second writer
// deployed against the same database).
func applyExclusionDDL(db *gorm.DB) error {
	ddls := []string{
		"CREATE EXTENSION IF NOT EXISTS btree_gist;",

		"ALTER TABLE reservations DROP CONSTRAINT IF EXISTS reservations_interval_valid;",
		"ALTER TABLE reservations " +
			"ADD CONSTRAINT reservations_interval_valid CHECK (start_minute < end_minute);",

		// int4range is half-open by default, matching [start, end).
		"ALTER TABLE reservations DROP CONSTRAINT IF EXISTS reservations_no_overlap;",
		"ALTER TABLE reservations " +
			"ADD CONSTRAINT reservations_no_overlap EXCLUDE USING GIST (" +
			"slot_id WITH =, date WITH =, int4range(start_minute, end_minute) WITH &&" +
			") WHERE (status = 'Active');",

		"CREATE INDEX IF NOT EXISTS idx_reservations_slot_date ON reservations (slot_id, date);",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}

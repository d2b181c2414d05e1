package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(path string) (*Database, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&WeatherSnapshot{}, &Quote{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Database{db: db}, nil
}

// SaveSnapshot stores a current-weather payload.
func (d *Database) SaveSnapshot(ctx context.Context, location string, payload []byte, capturedAt time.Time) error {
	snap := &WeatherSnapshot{
		Location:   location,
		CapturedAt: capturedAt,
		Payload:    payload,
	}
	return d.db.WithContext(ctx).Create(snap).Error
}

// LatestSnapshot returns the most recent payload, or an empty payload when
// nothing has been stored yet.
func (d *Database) LatestSnapshot(ctx context.Context) (string, []byte, time.Time, error) {
	var snap WeatherSnapshot
	result := d.db.WithContext(ctx).Order("captured_at desc").First(&snap)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return "", nil, time.Time{}, nil
	}
	if result.Error != nil {
		return "", nil, time.Time{}, result.Error
	}
	return snap.Location, snap.Payload, snap.CapturedAt, nil
}

// CleanOldSnapshots deletes snapshots captured before now-olderThan.
func (d *Database) CleanOldSnapshots(olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	return d.db.Where("captured_at < ?", cutoff).Delete(&WeatherSnapshot{}).Error
}

// SaveQuote records a sentence, refreshing LastSeen if it is already known.
func (d *Database) SaveQuote(ctx context.Context, text string) error {
	now := time.Now()
	var q Quote
	result := d.db.WithContext(ctx).Where(Quote{Text: text}).
		Attrs(Quote{LastSeen: now}).
		FirstOrCreate(&q)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return d.db.WithContext(ctx).Model(&q).Update("last_seen", now).Error
	}
	return nil
}

// Quotes returns up to limit stored sentences, most recently seen first.
func (d *Database) Quotes(ctx context.Context, limit int) ([]string, error) {
	var texts []string
	q := d.db.WithContext(ctx).Model(&Quote{}).Order("last_seen desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Pluck("text", &texts).Error; err != nil {
		return nil, err
	}
	return texts, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

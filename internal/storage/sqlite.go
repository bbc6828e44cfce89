package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/storefront-sync/pkg/config"
)

var _ KV = (*SQLite)(nil)

type kvRecord struct {
	Key       string `gorm:"primaryKey;column:record_key"`
	Value     []byte `gorm:"column:record_value"`
	UpdatedAt time.Time
}

func (kvRecord) TableName() string { return "kv_records" }

// SQLite is the file-backed KV for single-device installs.
type SQLite struct {
	conn *gorm.DB
}

// NewSQLite opens (and automigrates) the local database file.
func NewSQLite(cfg config.StorageConfig) (*SQLite, error) {
	if cfg.SQLitePath == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	conn, err := gorm.Open(sqlite.Open(cfg.SQLitePath), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store: %w", err)
	}
	if err := conn.AutoMigrate(&kvRecord{}); err != nil {
		return nil, fmt.Errorf("migrating kv table: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	var record kvRecord
	err := s.conn.WithContext(ctx).First(&record, "record_key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return record.Value, nil
}

func (s *SQLite) Set(ctx context.Context, key string, value []byte) error {
	record := kvRecord{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return s.conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "record_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"record_value", "updated_at"}),
		}).
		Create(&record).Error
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	return s.conn.WithContext(ctx).Delete(&kvRecord{}, "record_key = ?", key).Error
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error {
	db, err := s.conn.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// Package db manages the data image: the live in-memory SQLite database and
// its serialized on-disk copy, one app.db file per installation.
package db

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/msallam/certstore/internal/models"
)

// ImageFileName is the serialized data image inside the data directory.
const ImageFileName = "app.db"

// tables lists every model in the image. Order matters for the load copy:
// certificates before the rows referencing them.
var tables = []any{
	&models.Note{},
	&models.Certificate{},
	&models.NonPaymentRecord{},
	&models.HistoryEntry{},
}

// tableColumns holds the explicit column lists used when copying rows between
// the on-disk and in-memory databases. Explicit lists keep the copy correct
// when the two schemas ended up with different column orders (older images
// gained their newer columns via ALTER TABLE, appended at the end).
var tableColumns = map[string][]string{
	"notes": {"id", "title", "body", "created_at"},
	"certificates": {
		"id", "activity", "name", "location", "area",
		"persons_count", "training_fee", "consultant_fee", "evacuation_fee",
		"inspection_fee", "area_fee", "ministry_fee", "grand_total", "ministry_total",
		"protection_fee", "user_name",
		"created_at", "updated_at", "edit_count", "is_modified", "status",
		"date_governorate", "date_training", "date_ministry", "date_certificate", "date_decision",
		"has_non_payment", "non_payment_id",
	},
	"non_payment_records": {
		"id", "certificate_id", "incoming_number", "incoming_date",
		"activity", "owner_name", "location",
		"recipient_title", "recipient_name",
		"created_at", "created_by", "status", "cancelled_at",
	},
	"certificate_history": {
		"id", "certificate_id", "old_data", "new_data", "changed_fields",
		"edit_reason", "edited_by", "edited_at",
	},
}

var tableNames = []string{"notes", "certificates", "non_payment_records", "certificate_history"}

// Image is the live database plus the on-disk file it serializes to.
// All reads and writes go against the in-memory database; durability comes
// from Flush, which rewrites the whole file.
type Image struct {
	DB     *gorm.DB
	path   string
	logger *slog.Logger
}

// Open prepares the data image under dataDir, creating the directory if
// needed. An existing app.db is first upgraded in place (additive columns
// with defaults only) and then copied table by table into the fresh
// in-memory database.
func Open(dataDir string, log *slog.Logger) (*Image, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dataDir, err)
	}
	path := filepath.Join(dataDir, ImageFileName)

	_, statErr := os.Stat(path)
	exists := statErr == nil

	if exists {
		if err := migrateFile(path); err != nil {
			return nil, err
		}
	}

	// Unique shared-cache name per Image so separate instances never alias.
	dsn := fmt.Sprintf("file:certstore-%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open in-memory database: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("access connection pool: %w", err)
	}
	// A single connection keeps the shared-cache memory database alive and
	// serializes access the way the single-writer model expects.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := gdb.AutoMigrate(tables...); err != nil {
		return nil, fmt.Errorf("migrate in-memory schema: %w", err)
	}

	img := &Image{DB: gdb, path: path, logger: log}
	if exists {
		if err := img.loadFrom(path); err != nil {
			return nil, err
		}
		log.Info("data image loaded", "path", path)
	} else {
		log.Info("new data image", "path", path)
	}
	return img, nil
}

// migrateFile applies additive schema changes to an existing image file so
// its tables match the current models before rows are copied out.
func migrateFile(path string) error {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("open image file %s: %w", path, err)
	}
	migrateErr := gdb.AutoMigrate(tables...)
	if sqlDB, dbErr := gdb.DB(); dbErr == nil {
		_ = sqlDB.Close()
	}
	if migrateErr != nil {
		return fmt.Errorf("upgrade image file %s: %w", path, migrateErr)
	}
	return nil
}

// loadFrom copies every table from the on-disk image into the live database.
func (i *Image) loadFrom(path string) error {
	if err := i.DB.Exec("ATTACH DATABASE ? AS disk", path).Error; err != nil {
		return fmt.Errorf("attach image file: %w", err)
	}
	defer i.DB.Exec("DETACH DATABASE disk")

	for _, table := range tableNames {
		cols := strings.Join(tableColumns[table], ", ")
		sql := fmt.Sprintf("INSERT INTO main.%s (%s) SELECT %s FROM disk.%s", table, cols, cols, table)
		if err := i.DB.Exec(sql).Error; err != nil {
			return fmt.Errorf("load table %s: %w", table, err)
		}
	}
	return nil
}

// Path returns the on-disk image location.
func (i *Image) Path() string {
	return i.path
}

// Flush serializes the entire live database to the image file. The write is
// atomic: VACUUM INTO a temp file, then rename over the old image.
func (i *Image) Flush() error {
	tmp := i.path + ".tmp"
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear stale temp image: %w", err)
	}
	// VACUUM INTO does not accept bound parameters everywhere, so the path
	// is quoted manually.
	quoted := strings.ReplaceAll(tmp, "'", "''")
	if err := i.DB.Exec(fmt.Sprintf("VACUUM INTO '%s'", quoted)).Error; err != nil {
		return fmt.Errorf("serialize data image: %w", err)
	}
	if err := os.Rename(tmp, i.path); err != nil {
		return fmt.Errorf("replace data image: %w", err)
	}
	return nil
}

// Close releases the underlying connection. The in-memory database is gone
// after this; callers flush first if they need durability.
func (i *Image) Close() error {
	sqlDB, err := i.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

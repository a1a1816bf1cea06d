// Package datastore provides an optional SQLite index of committed samples.
// The index is derived data mirroring the JSON sidecars; the sidecars remain
// the authoritative per-sample record and the index can be dropped and
// rebuilt from them at any time.
package datastore

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ecosort/collector-go/internal/conf"
	"github.com/ecosort/collector-go/internal/sample"
)

// SampleRecord is one committed sample row in the index.
type SampleRecord struct {
	ID         uint   `gorm:"column:id;primaryKey;autoIncrement"`
	Timestamp  string `gorm:"index"`
	Class      string `gorm:"index"`
	SessionID  string
	ImageFile  string
	Sidecar    string
	Attributes string // attribute snapshot as JSON text
	Width      int
	Height     int
	FPS        float64
}

// Interface abstracts the underlying database implementation.
type Interface interface {
	Open() error
	Save(rec *SampleRecord) error
	CountByClass() (map[string]int64, error)
	GetRecent(limit int) ([]SampleRecord, error)
	Close() error
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB
}

// New creates a datastore based on the provided settings, or nil when no
// database output is enabled.
func New(settings *conf.Settings) Interface {
	if settings.Output.SQLite.Enabled {
		return &SQLiteStore{Settings: settings}
	}
	return nil
}

// NewRecord flattens a sample into an index row.
func NewRecord(s *sample.Sample, imagePath, sidecarPath string) (*SampleRecord, error) {
	attrs, err := json.Marshal(s.Attributes)
	if err != nil {
		return nil, fmt.Errorf("encoding attributes: %w", err)
	}
	return &SampleRecord{
		Timestamp:  s.Timestamp,
		Class:      s.Class,
		SessionID:  s.SessionID,
		ImageFile:  imagePath,
		Sidecar:    sidecarPath,
		Attributes: string(attrs),
		Width:      s.Capture.Width,
		Height:     s.Capture.Height,
		FPS:        s.Capture.FPS,
	}, nil
}

// Save inserts a new sample record.
func (ds *DataStore) Save(rec *SampleRecord) error {
	if ds.DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	if err := ds.DB.Create(rec).Error; err != nil {
		return fmt.Errorf("saving sample record: %w", err)
	}
	return nil
}

// CountByClass returns the number of indexed samples per class label.
func (ds *DataStore) CountByClass() (map[string]int64, error) {
	if ds.DB == nil {
		return nil, fmt.Errorf("database connection is not initialized")
	}

	type row struct {
		Class string
		Count int64
	}
	var rows []row
	err := ds.DB.Model(&SampleRecord{}).
		Select("class, count(*) as count").
		Group("class").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("counting samples: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Class] = r.Count
	}
	return counts, nil
}

// GetRecent returns the most recently committed sample records.
func (ds *DataStore) GetRecent(limit int) ([]SampleRecord, error) {
	if ds.DB == nil {
		return nil, fmt.Errorf("database connection is not initialized")
	}
	var records []SampleRecord
	err := ds.DB.Order("timestamp desc").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("fetching recent samples: %w", err)
	}
	return records, nil
}

// Close closes the database connection.
func (ds *DataStore) Close() error {
	if ds.DB == nil {
		return nil
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// createGormLogger returns a gorm logger writing slow-query and error output
// to standard logging.
func createGormLogger(debug bool) logger.Interface {
	level := logger.Error
	if debug {
		level = logger.Info
	}
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// performAutoMigration migrates the schema for the sample record table.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&SampleRecord{}); err != nil {
		return fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)
	}
	if debug {
		log.Printf("%s database connection initialized: %s", dbType, connectionInfo)
	}
	return nil
}

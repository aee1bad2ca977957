package services

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mathpal-app/mathpal_api/model"
	"github.com/mathpal-app/mathpal_api/shared"
)

type SqliteService struct {
	context.DefaultService
	db *gorm.DB

	database      string
	capacityBytes int64
}

const SQLITE_SVC = "sqlite_svc"

// probe size for the cheap "can I still write?" capacity check.
const blobProbeBytes = 1024

// Id returns Service ID
func (ds SqliteService) Id() string {
	return SQLITE_SVC
}

// Configure the service
func (ds *SqliteService) Configure(ctx *context.Context) error {
	ds.database = os.Getenv("DB_DATABASE")
	if ds.database == "" {
		ds.database = "mathpal.db"
	}

	ds.capacityBytes = shared.DefaultStorageCapacityBytes
	if capStr := os.Getenv("STORAGE_CAPACITY_BYTES"); capStr != "" {
		if capacity, err := strconv.ParseInt(capStr, 10, 64); err == nil && capacity > 0 {
			ds.capacityBytes = capacity
		}
	}

	return ds.DefaultService.Configure(ctx)
}

// Start the service and open connection to the database
// Migrate any tables that have changed since last runtime
func (ds *SqliteService) Start() (err error) {
	ds.db, err = gorm.Open(sqlite.Open(ds.database), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return err
	}

	models := []interface{}{
		&model.StorageBlob{},
	}

	err = ds.db.AutoMigrate(models...)
	if err != nil {
		log.Printf("Failed to migrate database: %v", err)
		return err
	}

	log.Println("Database connected and migrated successfully")
	return nil
}

func (ds *SqliteService) Shutdown() {
}

// ==================== CAPACITY-BOUNDED BLOB STORAGE ====================

// GetBlob returns (nil, false, nil) for a missing key.
func (ds *SqliteService) GetBlob(key string) ([]byte, bool, error) {
	var blob model.StorageBlob
	err := ds.db.First(&blob, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, ds.HandleError(err)
	}
	return blob.Value, true, nil
}

// PutBlob upserts a document, rejecting writes that would push the total
// stored bytes over the capacity budget.
func (ds *SqliteService) PutBlob(key string, value []byte) error {
	otherBytes, err := ds.storedBytesExcluding(key)
	if err != nil {
		return ds.HandleError(err)
	}

	if otherBytes+int64(len(value)) > ds.capacityBytes {
		return shared.ErrStorageCapacityExceeded
	}

	blob := model.StorageBlob{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	return ds.HandleError(ds.db.Save(&blob).Error)
}

func (ds *SqliteService) DeleteBlob(key string) error {
	return ds.HandleError(ds.db.Delete(&model.StorageBlob{}, "key = ?", key).Error)
}

// ProbeBlob reports whether a small write would still fit. Used for
// proactive eviction before the store grows a document.
func (ds *SqliteService) ProbeBlob() error {
	stored, err := ds.storedBytesExcluding("")
	if err != nil {
		return ds.HandleError(err)
	}
	if stored+blobProbeBytes > ds.capacityBytes {
		return shared.ErrStorageCapacityExceeded
	}
	return nil
}

func (ds *SqliteService) storedBytesExcluding(key string) (int64, error) {
	var total *int64
	query := ds.db.Model(&model.StorageBlob{}).Select("SUM(LENGTH(value))")
	if key != "" {
		query = query.Where("key != ?", key)
	}
	if err := query.Scan(&total).Error; err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func (ds *SqliteService) HandleError(err error) error {
	if err == nil {
		return nil
	}

	var statusCode int
	var errorType string

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		statusCode = http.StatusNotFound // 404
		errorType = "NOT_FOUND"
	case errors.Is(err, gorm.ErrDuplicatedKey):
		statusCode = http.StatusConflict // 409
		errorType = "CONFLICT"
	case errors.Is(err, gorm.ErrInvalidTransaction):
		statusCode = http.StatusInternalServerError // 500
		errorType = "TRANSACTION_ERROR"
	default:
		// Check for SQLite-specific errors
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			statusCode = http.StatusConflict // 409
			errorType = "UNIQUE_CONSTRAINT"
		} else if strings.Contains(err.Error(), "no such table") {
			statusCode = http.StatusInternalServerError // 500
			errorType = "SCHEMA_ERROR"
		} else {
			statusCode = http.StatusInternalServerError // 500
			errorType = "INTERNAL_ERROR"
		}
	}

	logEntry := log.WithFields(log.Fields{
		"status_code": statusCode,
		"error_type":  errorType,
		"error":       err.Error(),
	})

	if statusCode >= 500 {
		logEntry.Error("Database error occurred")
	} else {
		logEntry.Warn("Database operation failed")
	}

	return fmt.Errorf("%s: %w", errorType, err)
}

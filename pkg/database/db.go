package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/arnavshah/roster-solver/pkg/config"
	"github.com/arnavshah/roster-solver/pkg/models"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ErrRunNotFound is returned by GetRun for unknown ids
var ErrRunNotFound = errors.New("database: run not found")

// APIKey represents the api_keys table
type APIKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Key        string     `gorm:"unique;not null" json:"-"`
	KeyPreview string     `json:"key_preview"`
	Name       string     `gorm:"not null" json:"name"`
	RateLimit  int        `gorm:"default:10000" json:"rate_limit"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used"`
}

// APIUsage represents the api_usage table, one row per key and day
type APIUsage struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	KeyID          uint   `gorm:"uniqueIndex:idx_key_date;not null" json:"key_id"`
	Date           string `gorm:"uniqueIndex:idx_key_date;not null" json:"date"`
	RequestCount   int    `gorm:"default:0" json:"request_count"`
	TotalDays      int    `gorm:"default:0" json:"total_days"`
	TotalEmployees int    `gorm:"default:0" json:"total_employees"`
}

// MasterUser represents the master_users table
type MasterUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// ScheduleRun stores the outcome of one scheduling request
type ScheduleRun struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	KeyID     uint      `gorm:"index" json:"key_id"`
	Source    string    `json:"source"`
	Objective string    `json:"objective"`
	Days      int       `json:"days"`
	Trials    int       `json:"trials"`
	Employees int       `json:"employees"`
	Failures  int       `json:"failures"`
	Result    string    `gorm:"type:text" json:"-"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// Open connects to Postgres when cfg.URL is set and to SQLite at cfg.Path
// otherwise, then migrates the schema
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	if cfg.URL != "" {
		gcfg.PrepareStmt = false
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  cfg.URL,
			PreferSimpleProtocol: true,
		}), gcfg)
	} else {
		path := cfg.Path
		if path == "" {
			path = "roster.db"
		}
		db, err = gorm.Open(sqlite.Open(path), gcfg)
		if err == nil && path == ":memory:" {
			// every new connection would see an empty database
			if sqlDB, derr := db.DB(); derr == nil {
				sqlDB.SetMaxOpenConns(1)
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("database: connect: %w", err)
	}

	if err := db.AutoMigrate(&APIKey{}, &APIUsage{}, &MasterUser{}, &ScheduleRun{}); err != nil {
		return nil, fmt.Errorf("database: migrate: %w", err)
	}
	return db, nil
}

// RecordUsage adds one request and its size to today's usage row of keyID
func RecordUsage(db *gorm.DB, keyID uint, days, employees int) error {
	usage := APIUsage{
		KeyID:          keyID,
		Date:           time.Now().Format("2006-01-02"),
		RequestCount:   1,
		TotalDays:      days,
		TotalEmployees: employees,
	}
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"request_count":   gorm.Expr("request_count + ?", 1),
			"total_days":      gorm.Expr("total_days + ?", days),
			"total_employees": gorm.Expr("total_employees + ?", employees),
		}),
	}).Create(&usage).Error
}

// UsageTotals is the sum of a set of usage rows
type UsageTotals struct {
	Requests  int64 `json:"total_requests"`
	Days      int64 `json:"total_days"`
	Employees int64 `json:"total_employees"`
}

// SumUsage totals the usage of keyID, or of every key when keyID is 0
func SumUsage(db *gorm.DB, keyID uint) (UsageTotals, error) {
	var totals UsageTotals
	q := db.Model(&APIUsage{})
	if keyID != 0 {
		q = q.Where("key_id = ?", keyID)
	}
	err := q.Select("COALESCE(SUM(request_count), 0) AS requests, " +
		"COALESCE(SUM(total_days), 0) AS days, " +
		"COALESCE(SUM(total_employees), 0) AS employees").
		Scan(&totals).Error
	return totals, err
}

// RunPayload is the stored body of a run
type RunPayload struct {
	Schedule []models.ScheduleEntry `json:"schedule"`
	Failures []models.DayFailure    `json:"failures,omitempty"`
}

// SaveRun stores a finished run under a fresh id and returns it
func SaveRun(db *gorm.DB, run *ScheduleRun, payload RunPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("database: encode run: %w", err)
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	run.Failures = len(payload.Failures)
	run.Result = string(body)
	return db.Create(run).Error
}

// GetRun loads a run and its decoded payload. A non-zero keyID restricts the
// lookup to runs created with that key.
func GetRun(db *gorm.DB, id string, keyID uint) (*ScheduleRun, *RunPayload, error) {
	var run ScheduleRun
	q := db.Where("id = ?", id)
	if keyID != 0 {
		q = q.Where("key_id = ?", keyID)
	}
	if err := q.First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrRunNotFound
		}
		return nil, nil, err
	}
	var payload RunPayload
	if err := json.Unmarshal([]byte(run.Result), &payload); err != nil {
		return nil, nil, fmt.Errorf("database: decode run %s: %w", id, err)
	}
	return &run, &payload, nil
}

// ListRuns returns the newest runs first
func ListRuns(db *gorm.DB, limit int) ([]ScheduleRun, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var runs []ScheduleRun
	err := db.Order("created_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

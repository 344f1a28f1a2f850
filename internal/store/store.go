// Package store persists computation results so they can be fetched again by id.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/MaStr/pv-bat-simulator/internal/dispatch"
)

var ErrNotFound = errors.New("result not found")

// StoredResult is one computation as persisted to the SQLite database. The
// request and trace are kept as JSON documents; the totals are copied into
// columns for listing.
type StoredResult struct {
	ID            string `gorm:"primaryKey"`
	CreatedAt     time.Time
	Model         int
	Status        string
	TotalCost     float64
	TotalGridKWh  float64 `gorm:"column:total_grid_kwh"`
	WeightedPrice float64
	Request       []byte
	Trace         []byte
}

// Result is a decoded StoredResult.
type Result struct {
	ID        string
	CreatedAt time.Time
	Request   json.RawMessage
	Trace     *dispatch.Trace
}

// Summary is the listing view of a result.
type Summary struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	Model         int       `json:"modell"`
	Status        string    `json:"optimierungsstatus,omitempty"`
	TotalCost     float64   `json:"gesamtkosten"`
	TotalGridKWh  float64   `json:"gesamt_netzbezug_kwh"`
	WeightedPrice float64   `json:"gewichteter_preis"`
}

// Repository stores results in a local sqlite file.
type Repository struct {
	db *gorm.DB
}

// New opens (or creates) the database at path. Use ":memory:" for a throwaway store.
func New(path string) (*Repository, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Migrate the schema
	if err := db.AutoMigrate(&StoredResult{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save stores the request (any JSON-encodable value) with its trace and returns the new id.
func (r *Repository) Save(ctx context.Context, request any, tr *dispatch.Trace) (string, error) {
	reqJSON, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	traceJSON, err := json.Marshal(tr)
	if err != nil {
		return "", fmt.Errorf("encode trace: %w", err)
	}

	row := StoredResult{
		ID:            uuid.NewString(),
		Model:         int(tr.Model),
		TotalCost:     tr.TotalCost(),
		TotalGridKWh:  tr.TotalGridKWh(),
		WeightedPrice: tr.WeightedPrice(),
		Request:       reqJSON,
		Trace:         traceJSON,
	}
	if tr.Model == dispatch.ModelOptimizer {
		row.Status = tr.Status.String()
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("insert result: %w", err)
	}
	return row.ID, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*Result, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var row StoredResult
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load result %s: %w", id, err)
	}

	var tr dispatch.Trace
	if err := json.Unmarshal(row.Trace, &tr); err != nil {
		return nil, fmt.Errorf("decode trace %s: %w", id, err)
	}
	return &Result{
		ID:        row.ID,
		CreatedAt: row.CreatedAt,
		Request:   row.Request,
		Trace:     &tr,
	}, nil
}

// List returns the most recent results first.
func (r *Repository) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []StoredResult
	err := r.db.WithContext(ctx).
		Omit("request", "trace").
		Order("created_at desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(rows))
	for _, row := range rows {
		out = append(out, Summary{
			ID:            row.ID,
			CreatedAt:     row.CreatedAt,
			Model:         row.Model,
			Status:        row.Status,
			TotalCost:     row.TotalCost,
			TotalGridKWh:  row.TotalGridKWh,
			WeightedPrice: row.WeightedPrice,
		})
	}
	return out, nil
}

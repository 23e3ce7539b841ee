package experiment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ExperimentRecord is one experiment in the database.
type ExperimentRecord struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"index"`
	CreatedAt time.Time
}

func (ExperimentRecord) TableName() string { return "experiments" }

// PerformanceRecord mirrors a PerformanceRow.
type PerformanceRecord struct {
	ID              uint   `gorm:"primaryKey"`
	ExperimentID    string `gorm:"index"`
	BuildingID      int32
	NumCameraSetups int
	ExecutionTime   float64
	MemoryUsage     int64
	CreatedAt       time.Time
}

func (PerformanceRecord) TableName() string { return "performance_rows" }

// DataRecord mirrors a DataRow.
type DataRecord struct {
	ID           uint   `gorm:"primaryKey"`
	ExperimentID string `gorm:"index"`
	BuildingID   int32  `gorm:"index"`
	OriginX      float64
	OriginY      float64
	OriginZ      float64
	X            float64
	Y            float64
	Z            float64
	Yaw          float64
	BuildingRate float64
	LandmarkRate float64
	AmenityRate  float64
	TreeRate     float64
	WaterRate    float64
	SkyRate      float64
	MinDepth     float64
	MaxDepth     float64
	AvgDepth     float64
}

func (DataRecord) TableName() string { return "data_rows" }

// Store is a SQLite database shared by the DB sinks of all experiments.
type Store struct {
	db *gorm.DB
}

// OpenStore opens (creating if needed) the database at path and migrates
// its tables.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	return newStore(db)
}

// newStore migrates db and wraps it. On failure the connection is closed.
func newStore(db *gorm.DB) (*Store, error) {
	s := &Store{db: db}
	if err := db.AutoMigrate(&ExperimentRecord{}, &PerformanceRecord{}, &DataRecord{}); err != nil {
		return nil, errors.Join(fmt.Errorf("store: migrate: %w", err), s.Close())
	}
	return s, nil
}

// Sink registers the experiment and returns a sink writing its rows.
func (s *Store) Sink(id uuid.UUID, name string) (*DBSink, error) {
	rec := ExperimentRecord{ID: id.String(), Name: name}
	if err := s.db.Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("store: register %s: %w", name, err)
	}
	return &DBSink{db: s.db, experimentID: rec.ID}, nil
}

// PerformanceRows returns the stored performance rows of an experiment.
func (s *Store) PerformanceRows(id uuid.UUID) ([]PerformanceRecord, error) {
	var out []PerformanceRecord
	err := s.db.Where("experiment_id = ?", id.String()).Order("id").Find(&out).Error
	return out, err
}

// DataRows returns the stored data rows of an experiment.
func (s *Store) DataRows(id uuid.UUID) ([]DataRecord, error) {
	var out []DataRecord
	err := s.db.Where("experiment_id = ?", id.String()).Order("id").Find(&out).Error
	return out, err
}

// Close releases the database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DBSink writes the rows of one experiment into a Store.
type DBSink struct {
	db           *gorm.DB
	experimentID string
}

var _ Sink = (*DBSink)(nil)

func (s *DBSink) AppendPerformance(r PerformanceRow) error {
	rec := PerformanceRecord{
		ExperimentID:    s.experimentID,
		BuildingID:      r.BuildingID,
		NumCameraSetups: r.Setups,
		ExecutionTime:   r.ExecutionTime,
		MemoryUsage:     r.MemoryUsage,
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("store: performance row: %w", err)
	}
	return nil
}

func (s *DBSink) AppendData(r DataRow) error {
	rec := DataRecord{
		ExperimentID: s.experimentID,
		BuildingID:   r.BuildingID,
		OriginX:      r.Origin.X,
		OriginY:      r.Origin.Y,
		OriginZ:      r.Origin.Z,
		X:            r.Position.X,
		Y:            r.Position.Y,
		Z:            r.Position.Z,
		Yaw:          r.Yaw,
		BuildingRate: r.BuildingRate,
		LandmarkRate: r.LandmarkRate,
		AmenityRate:  r.AmenityRate,
		TreeRate:     r.TreeRate,
		WaterRate:    r.WaterRate,
		SkyRate:      r.SkyRate,
		MinDepth:     r.MinDepth,
		MaxDepth:     r.MaxDepth,
		AvgDepth:     r.AvgDepth,
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("store: data row: %w", err)
	}
	return nil
}

// Close is a no-op; the Store owns the connection.
func (s *DBSink) Close() error { return nil }

// Factory combines a CSV sink under root with an optional database mirror.
func Factory(root string, store *Store) SinkFactory {
	return func(id uuid.UUID, name string) (Sink, error) {
		csvSink, err := OpenCSV(root, name)
		if err != nil {
			return nil, err
		}
		if store == nil {
			return csvSink, nil
		}
		dbSink, err := store.Sink(id, name)
		if err != nil {
			csvSink.Close()
			return nil, err
		}
		return MultiSink{csvSink, dbSink}, nil
	}
}

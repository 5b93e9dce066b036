// Package state provides SQLite-based persistence for execution reports.
package state

import (
	"io"
	"time"

	"github.com/ShayCichocki/conduit/pkg/models"
)

// ReportStore handles report persistence operations.
type ReportStore interface {
	SaveReport(report *models.ExecutionReport) error
	GetReport(planID string) (*models.ExecutionReport, error)
	ListReports(limit int) ([]ReportHead, error)
	DeleteReport(planID string) error
	PurgeOldReports(olderThan time.Duration) (int64, error)
}

// Migrator handles database schema migrations.
// Separating this allows clients to depend only on migration functionality.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// Store defines the interface for report persistence.
// This interface allows callers to work with any backend without depending
// on the concrete SQLite implementation.
type Store interface {
	io.Closer
	Migrator
	ReportStore
}

// Compile-time verification that DB implements all interfaces.
var (
	_ Store       = (*DB)(nil)
	_ Migrator    = (*DB)(nil)
	_ ReportStore = (*DB)(nil)
)

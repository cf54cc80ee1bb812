// Package store provides persistence for the reference dataset.
package store

import (
	"context"
	"time"

	"nse-fees/internal/refdata"
)

// DatasetStore persists the externally refreshed reference dataset.
type DatasetStore interface {
	refdata.Source

	// Dataset
	SaveDataset(ctx context.Context, ds *refdata.Dataset) error
	SaveStocks(ctx context.Context, ds *refdata.Dataset) error

	// Sync
	GetLastSync(dataType string) time.Time
	SetLastSync(dataType string, t time.Time) error

	// Lifecycle
	Close() error
}

// Metadata keys stored alongside the dataset.
const (
	metaLastUpdated     = "last_updated"
	metaDataSource      = "data_source"
	metaDefaultBrokerID = "default_broker_id"
	metaPopular         = "popular"
)

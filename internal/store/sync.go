package store

import (
	"fmt"
	"time"
)

// SyncDataType represents the type of data being synced.
type SyncDataType string

const (
	SyncTypePrices  SyncDataType = "prices"
	SyncTypeBrokers SyncDataType = "brokers"
)

// DataFreshness represents the freshness of stored data.
type DataFreshness struct {
	DataType    SyncDataType
	LastUpdated time.Time
	IsFresh     bool
	Age         time.Duration
}

// SyncTracker records refreshes and reports how old the stored data is.
type SyncTracker struct {
	store      DatasetStore
	staleAfter time.Duration
	now        func() time.Time
}

// NewSyncTracker creates a tracker that treats data older than staleAfter as stale.
func NewSyncTracker(store DatasetStore, staleAfter time.Duration) *SyncTracker {
	if staleAfter <= 0 {
		staleAfter = 7 * 24 * time.Hour
	}
	return &SyncTracker{store: store, staleAfter: staleAfter, now: time.Now}
}

// GetDataFreshness returns the freshness status of stored data.
func (st *SyncTracker) GetDataFreshness(dataType SyncDataType) *DataFreshness {
	lastSync := st.store.GetLastSync(string(dataType))
	age := st.now().Sub(lastSync)

	return &DataFreshness{
		DataType:    dataType,
		LastUpdated: lastSync,
		IsFresh:     !lastSync.IsZero() && age < st.staleAfter,
		Age:         age,
	}
}

// MarkSynced marks a data type as synced now.
func (st *SyncTracker) MarkSynced(dataType SyncDataType) error {
	if err := st.store.SetLastSync(string(dataType), st.now()); err != nil {
		return fmt.Errorf("failed to mark %s as synced: %w", dataType, err)
	}
	return nil
}

// FormatFreshness returns a human-readable freshness string.
func FormatFreshness(freshness *DataFreshness) string {
	if freshness.LastUpdated.IsZero() {
		return "Never synced"
	}

	age := freshness.Age
	var ageStr string

	switch {
	case age < time.Minute:
		ageStr = "just now"
	case age < time.Hour:
		ageStr = fmt.Sprintf("%d minutes ago", int(age.Minutes()))
	case age < 24*time.Hour:
		ageStr = fmt.Sprintf("%d hours ago", int(age.Hours()))
	default:
		ageStr = fmt.Sprintf("%d days ago", int(age.Hours()/24))
	}

	if freshness.IsFresh {
		return fmt.Sprintf("Updated %s", ageStr)
	}
	return fmt.Sprintf("⚠️ Stale data - Updated %s", ageStr)
}

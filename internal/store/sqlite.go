package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	apperrors "nse-fees/internal/errors"
	"nse-fees/internal/models"
	"nse-fees/internal/refdata"
)

// SQLiteStore implements DatasetStore using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	mu        sync.RWMutex
	syncTimes map[string]time.Time
}

var _ DatasetStore = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite-based dataset store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:        db,
		syncTimes: make(map[string]time.Time),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
// Money and rates are stored as TEXT to keep them exact.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS stocks (
		ticker TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		price TEXT NOT NULL,
		price_date TEXT NOT NULL,
		is_suspended INTEGER DEFAULT 0,
		position INTEGER NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS brokers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		brokerage_rate TEXT NOT NULL,
		min_fee TEXT NOT NULL,
		position INTEGER NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS dataset_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	-- Sync status table
	CREATE TABLE IF NOT EXISTS sync_status (
		data_type TEXT PRIMARY KEY,
		last_sync DATETIME NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_stocks_position ON stocks(position);
	CREATE INDEX IF NOT EXISTS idx_brokers_position ON brokers(position);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Dataset Methods
// ============================================================================

// Load reads the stored dataset. An empty store reports ErrDataNotFound.
func (s *SQLiteStore) Load(ctx context.Context) (*refdata.Dataset, error) {
	stocks, err := s.getStocks(ctx)
	if err != nil {
		return nil, err
	}
	brokers, err := s.getBrokers(ctx)
	if err != nil {
		return nil, err
	}
	if len(stocks) == 0 && len(brokers) == 0 {
		return nil, apperrors.NewDataError("sqlite", "dataset", "store is empty", apperrors.ErrDataNotFound)
	}

	meta, err := s.getMeta(ctx)
	if err != nil {
		return nil, err
	}

	ds := &refdata.Dataset{
		Stocks:          stocks,
		Brokers:         brokers,
		LastUpdated:     meta[metaLastUpdated],
		DataSource:      meta[metaDataSource],
		DefaultBrokerID: meta[metaDefaultBrokerID],
	}
	if p := meta[metaPopular]; p != "" {
		ds.Popular = strings.Split(p, ",")
	}
	if ds.DefaultBrokerID == "" {
		ds.DefaultBrokerID = refdata.DefaultBrokerID
	}
	if len(ds.Popular) == 0 {
		ds.Popular = append([]string(nil), refdata.DefaultPopular...)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// SaveDataset replaces the stored dataset with ds.
func (s *SQLiteStore) SaveDataset(ctx context.Context, ds *refdata.Dataset) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := replaceStocks(ctx, tx, ds.Stocks); err != nil {
			return err
		}
		if err := replaceBrokers(ctx, tx, ds.Brokers); err != nil {
			return err
		}
		return putMeta(ctx, tx, ds)
	})
}

// SaveStocks replaces the stored stocks and dataset metadata, leaving brokers untouched.
func (s *SQLiteStore) SaveStocks(ctx context.Context, ds *refdata.Dataset) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := replaceStocks(ctx, tx, ds.Stocks); err != nil {
			return err
		}
		return putMeta(ctx, tx, ds)
	})
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", apperrors.ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %v", apperrors.ErrDatabaseError, err)
	}
	return nil
}

func replaceStocks(ctx context.Context, tx *sql.Tx, stocks []models.Stock) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM stocks`); err != nil {
		return fmt.Errorf("%w: failed to clear stocks: %v", apperrors.ErrDatabaseError, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stocks (ticker, name, price, price_date, is_suspended, position)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, st := range stocks {
		_, err := stmt.ExecContext(ctx, st.Ticker, st.Name, st.Price.String(), st.PriceDate, boolToInt(st.IsSuspended), i)
		if err != nil {
			return fmt.Errorf("%w: failed to insert stock %s: %v", apperrors.ErrDatabaseError, st.Ticker, err)
		}
	}
	return nil
}

func replaceBrokers(ctx context.Context, tx *sql.Tx, brokers []models.Broker) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM brokers`); err != nil {
		return fmt.Errorf("%w: failed to clear brokers: %v", apperrors.ErrDatabaseError, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO brokers (id, name, brokerage_rate, min_fee, position)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, b := range brokers {
		_, err := stmt.ExecContext(ctx, b.ID, b.Name, b.BrokerageRate.String(), b.MinFee.String(), i)
		if err != nil {
			return fmt.Errorf("%w: failed to insert broker %s: %v", apperrors.ErrDatabaseError, b.ID, err)
		}
	}
	return nil
}

func putMeta(ctx context.Context, tx *sql.Tx, ds *refdata.Dataset) error {
	meta := map[string]string{
		metaLastUpdated:     ds.LastUpdated,
		metaDataSource:      ds.DataSource,
		metaDefaultBrokerID: ds.DefaultBrokerID,
		metaPopular:         strings.Join(ds.Popular, ","),
	}
	for k, v := range meta {
		_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO dataset_meta (key, value) VALUES (?, ?)`, k, v)
		if err != nil {
			return fmt.Errorf("%w: failed to save %s: %v", apperrors.ErrDatabaseError, k, err)
		}
	}
	return nil
}

func (s *SQLiteStore) getStocks(ctx context.Context) ([]models.Stock, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, name, price, price_date, is_suspended
		FROM stocks
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query stocks: %v", apperrors.ErrDatabaseError, err)
	}
	defer rows.Close()

	var stocks []models.Stock
	for rows.Next() {
		var (
			st        models.Stock
			price     string
			suspended int
		)
		if err := rows.Scan(&st.Ticker, &st.Name, &price, &st.PriceDate, &suspended); err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		if st.Price, err = decimal.NewFromString(price); err != nil {
			return nil, apperrors.NewDataError("stock", st.Ticker, "bad stored price", err)
		}
		st.IsSuspended = suspended == 1
		stocks = append(stocks, st)
	}
	return stocks, rows.Err()
}

func (s *SQLiteStore) getBrokers(ctx context.Context) ([]models.Broker, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, brokerage_rate, min_fee
		FROM brokers
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query brokers: %v", apperrors.ErrDatabaseError, err)
	}
	defer rows.Close()

	var brokers []models.Broker
	for rows.Next() {
		var (
			b            models.Broker
			rate, minFee string
		)
		if err := rows.Scan(&b.ID, &b.Name, &rate, &minFee); err != nil {
			return nil, fmt.Errorf("failed to scan broker: %w", err)
		}
		if b.BrokerageRate, err = decimal.NewFromString(rate); err != nil {
			return nil, apperrors.NewDataError("broker", b.ID, "bad stored rate", err)
		}
		if b.MinFee, err = decimal.NewFromString(minFee); err != nil {
			return nil, apperrors.NewDataError("broker", b.ID, "bad stored minimum fee", err)
		}
		brokers = append(brokers, b)
	}
	return brokers, rows.Err()
}

func (s *SQLiteStore) getMeta(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM dataset_meta`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query metadata: %v", apperrors.ErrDatabaseError, err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		meta[k] = v
	}
	return meta, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ============================================================================
// Sync Methods
// ============================================================================

// GetLastSync returns the last sync time for a data type.
func (s *SQLiteStore) GetLastSync(dataType string) time.Time {
	s.mu.RLock()
	if t, ok := s.syncTimes[dataType]; ok {
		s.mu.RUnlock()
		return t
	}
	s.mu.RUnlock()

	var lastSync time.Time
	err := s.db.QueryRow(`
		SELECT last_sync FROM sync_status WHERE data_type = ?
	`, dataType).Scan(&lastSync)
	if err != nil {
		return time.Time{}
	}

	s.mu.Lock()
	s.syncTimes[dataType] = lastSync
	s.mu.Unlock()

	return lastSync
}

// SetLastSync sets the last sync time for a data type.
func (s *SQLiteStore) SetLastSync(dataType string, t time.Time) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO sync_status (data_type, last_sync, updated_at)
		VALUES (?, ?, ?)
	`, dataType, t, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set last sync: %w", err)
	}

	s.mu.Lock()
	s.syncTimes[dataType] = t
	s.mu.Unlock()

	return nil
}

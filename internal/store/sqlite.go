package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	apperrors "options-analyzer/internal/errors"
	"options-analyzer/internal/models"
)

// SQLiteStore implements StrategyStore using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Saved multi-leg strategies; legs are stored as a JSON array
	CREATE TABLE IF NOT EXISTS strategies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		ticker TEXT NOT NULL,
		legs TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		entry_price REAL,
		target_profit REAL,
		stop_loss REAL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	-- Watchlist table
	CREATE TABLE IF NOT EXISTS watchlist (
		symbol TEXT PRIMARY KEY,
		added_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_strategies_status ON strategies(status);
	CREATE INDEX IF NOT EXISTS idx_strategies_ticker ON strategies(ticker);
	`

	_, err := s.db.Exec(schema)
	return err
}

// ============================================================================
// Strategy Methods
// ============================================================================

// SaveStrategy inserts a new strategy, assigning its ID and timestamps.
func (s *SQLiteStore) SaveStrategy(ctx context.Context, st *models.Strategy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := prepareStrategy(st, s.now()); err != nil {
		return err
	}
	legsJSON, err := json.Marshal(st.Legs)
	if err != nil {
		return fmt.Errorf("failed to encode legs: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO strategies (id, name, ticker, legs, notes, entry_price, target_profit, stop_loss, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, st.ID, st.Name, st.Ticker, string(legsJSON), st.Notes,
		nullFloat(st.EntryPrice), nullFloat(st.TargetProfit), nullFloat(st.StopLoss),
		st.Status, st.CreatedAt, st.UpdatedAt)
	if err != nil {
		if isConstraint(err) {
			return apperrors.Wrapf(apperrors.ErrDuplicate, "strategy %s", st.ID)
		}
		return fmt.Errorf("%w: failed to save strategy: %v", apperrors.ErrDatabaseError, err)
	}

	return nil
}

// GetStrategy retrieves a strategy by ID.
func (s *SQLiteStore) GetStrategy(ctx context.Context, id string) (*models.Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, ticker, legs, notes, entry_price, target_profit, stop_loss, status, created_at, updated_at
		FROM strategies WHERE id = ?
	`, id)

	st, err := scanStrategy(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.Wrapf(apperrors.ErrStrategyNotFound, "id %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get strategy: %v", apperrors.ErrDatabaseError, err)
	}
	return st, nil
}

// ListStrategies retrieves strategies newest first.
func (s *SQLiteStore) ListStrategies(ctx context.Context, filter StrategyFilter) ([]models.Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, name, ticker, legs, notes, entry_price, target_profit, stop_loss, status, created_at, updated_at
		FROM strategies WHERE 1=1`
	var args []interface{}

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Ticker != "" {
		query += " AND ticker = ?"
		args = append(args, strings.ToUpper(filter.Ticker))
	}

	query += " ORDER BY created_at DESC, rowid DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query strategies: %v", apperrors.ErrDatabaseError, err)
	}
	defer rows.Close()

	var out []models.Strategy
	for rows.Next() {
		st, err := scanStrategy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan strategy: %w", err)
		}
		out = append(out, *st)
	}

	return out, rows.Err()
}

// UpdateStrategy applies the non-nil fields of update and returns the result.
func (s *SQLiteStore) UpdateStrategy(ctx context.Context, id string, update models.StrategyUpdate) (*models.Strategy, error) {
	if err := validateStatus(update); err != nil {
		return nil, err
	}

	sets := []string{"updated_at = ?"}
	args := []interface{}{s.now()}
	if update.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *update.Name)
	}
	if update.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *update.Notes)
	}
	if update.TargetProfit != nil {
		sets = append(sets, "target_profit = ?")
		args = append(args, *update.TargetProfit)
	}
	if update.StopLoss != nil {
		sets = append(sets, "stop_loss = ?")
		args = append(args, *update.StopLoss)
	}
	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*update.Status))
	}
	args = append(args, id)

	s.mu.Lock()
	result, err := s.db.ExecContext(ctx,
		"UPDATE strategies SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to update strategy: %v", apperrors.ErrDatabaseError, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, apperrors.Wrapf(apperrors.ErrStrategyNotFound, "id %s", id)
	}

	return s.GetStrategy(ctx, id)
}

// DeleteStrategy removes a strategy.
func (s *SQLiteStore) DeleteStrategy(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM strategies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete strategy: %v", apperrors.ErrDatabaseError, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperrors.Wrapf(apperrors.ErrStrategyNotFound, "id %s", id)
	}
	return nil
}

// ============================================================================
// Watchlist Methods
// ============================================================================

// AddToWatchlist adds a symbol to the watchlist.
func (s *SQLiteStore) AddToWatchlist(ctx context.Context, symbol string) error {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return apperrors.NewValidationError("symbol", symbol, "symbol is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watchlist (symbol, added_at) VALUES (?, ?)
	`, symbol, s.now())
	if err != nil {
		if isConstraint(err) {
			return apperrors.Wrapf(apperrors.ErrDuplicate, "%s is already in watchlist", symbol)
		}
		return fmt.Errorf("%w: failed to add to watchlist: %v", apperrors.ErrDatabaseError, err)
	}
	return nil
}

// RemoveFromWatchlist removes a symbol from the watchlist.
func (s *SQLiteStore) RemoveFromWatchlist(ctx context.Context, symbol string) error {
	symbol = normalizeSymbol(symbol)

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM watchlist WHERE symbol = ?`, symbol)
	if err != nil {
		return fmt.Errorf("%w: failed to remove from watchlist: %v", apperrors.ErrDatabaseError, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperrors.NewDataError("watchlist", symbol, "symbol not in watchlist", apperrors.ErrDataNotFound)
	}
	return nil
}

// GetWatchlist retrieves watched symbols in the order they were added.
func (s *SQLiteStore) GetWatchlist(ctx context.Context) ([]WatchlistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, added_at FROM watchlist ORDER BY added_at ASC, rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query watchlist: %v", apperrors.ErrDatabaseError, err)
	}
	defer rows.Close()

	var entries []WatchlistEntry
	for rows.Next() {
		var e WatchlistEntry
		var added time.Time
		if err := rows.Scan(&e.Symbol, &added); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		e.AddedAt = added.UTC().Format(time.RFC3339)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStrategy(r rowScanner) (*models.Strategy, error) {
	var st models.Strategy
	var legsJSON, status string
	var entry, target, stop sql.NullFloat64

	if err := r.Scan(&st.ID, &st.Name, &st.Ticker, &legsJSON, &st.Notes,
		&entry, &target, &stop, &status, &st.CreatedAt, &st.UpdatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(legsJSON), &st.Legs); err != nil {
		return nil, apperrors.NewDataError("strategy", st.Ticker, "corrupt legs column", err)
	}
	st.Status = models.StrategyStatus(status)
	st.EntryPrice = floatPtr(entry)
	st.TargetProfit = floatPtr(target)
	st.StopLoss = floatPtr(stop)

	return &st, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func isConstraint(err error) bool {
	if sqliteErr, ok := err.(sqlite3.Error); ok {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

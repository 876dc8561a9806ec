package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "options-analyzer/internal/errors"
	"options-analyzer/internal/models"
)

// pgErrUniqueViolation is the SQLSTATE for unique_violation.
const pgErrUniqueViolation = "23505"

const postgresSchema = `
CREATE TABLE IF NOT EXISTS strategies (
	seq BIGSERIAL,
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	ticker TEXT NOT NULL,
	legs JSONB NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	entry_price DOUBLE PRECISION,
	target_profit DOUBLE PRECISION,
	stop_loss DOUBLE PRECISION,
	status TEXT NOT NULL DEFAULT 'active',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS watchlist (
	seq BIGSERIAL,
	symbol TEXT PRIMARY KEY,
	added_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_strategies_status ON strategies(status);
CREATE INDEX IF NOT EXISTS idx_strategies_ticker ON strategies(ticker);
`

const strategyColumns = `id, name, ticker, legs, notes, entry_price, target_profit, stop_loss, status, created_at, updated_at`

// PostgresStore implements StrategyStore on PostgreSQL for setups that
// share strategies between machines.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// Compile-time interface checks.
var (
	_ StrategyStore = (*PostgresStore)(nil)
	_ StrategyStore = (*SQLiteStore)(nil)
)

// NewPostgresStore connects to dsn, verifies the connection and applies the schema.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &PostgresStore{
		pool: pool,
		now:  func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}, nil
}

// SaveStrategy inserts a new strategy, assigning its ID and timestamps.
func (s *PostgresStore) SaveStrategy(ctx context.Context, st *models.Strategy) error {
	if err := prepareStrategy(st, s.now()); err != nil {
		return err
	}
	legsJSON, err := json.Marshal(st.Legs)
	if err != nil {
		return fmt.Errorf("failed to encode legs: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO strategies (`+strategyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, st.ID, st.Name, st.Ticker, string(legsJSON), st.Notes,
		st.EntryPrice, st.TargetProfit, st.StopLoss,
		string(st.Status), st.CreatedAt, st.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return apperrors.Wrapf(apperrors.ErrDuplicate, "strategy %s", st.ID)
		}
		return fmt.Errorf("%w: insert strategy: %v", apperrors.ErrDatabaseError, err)
	}
	return nil
}

// GetStrategy retrieves a strategy by ID.
func (s *PostgresStore) GetStrategy(ctx context.Context, id string) (*models.Strategy, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+strategyColumns+` FROM strategies WHERE id = $1`, id)

	st, err := scanPgStrategy(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.Wrapf(apperrors.ErrStrategyNotFound, "id %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get strategy: %v", apperrors.ErrDatabaseError, err)
	}
	return st, nil
}

// ListStrategies retrieves strategies newest first.
func (s *PostgresStore) ListStrategies(ctx context.Context, filter StrategyFilter) ([]models.Strategy, error) {
	query := `SELECT ` + strategyColumns + ` FROM strategies WHERE 1=1`
	var args []interface{}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Ticker != "" {
		args = append(args, strings.ToUpper(filter.Ticker))
		query += fmt.Sprintf(" AND ticker = $%d", len(args))
	}
	query += " ORDER BY created_at DESC, seq DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query strategies: %v", apperrors.ErrDatabaseError, err)
	}
	defer rows.Close()

	var out []models.Strategy
	for rows.Next() {
		st, err := scanPgStrategy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan strategy: %w", err)
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

// UpdateStrategy applies the non-nil fields of update and returns the result.
func (s *PostgresStore) UpdateStrategy(ctx context.Context, id string, update models.StrategyUpdate) (*models.Strategy, error) {
	if err := validateStatus(update); err != nil {
		return nil, err
	}

	args := []interface{}{s.now()}
	sets := []string{"updated_at = $1"}
	set := func(column string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Name != nil {
		set("name", *update.Name)
	}
	if update.Notes != nil {
		set("notes", *update.Notes)
	}
	if update.TargetProfit != nil {
		set("target_profit", *update.TargetProfit)
	}
	if update.StopLoss != nil {
		set("stop_loss", *update.StopLoss)
	}
	if update.Status != nil {
		set("status", string(*update.Status))
	}
	args = append(args, id)

	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf("UPDATE strategies SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: update strategy: %v", apperrors.ErrDatabaseError, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.Wrapf(apperrors.ErrStrategyNotFound, "id %s", id)
	}

	return s.GetStrategy(ctx, id)
}

// DeleteStrategy removes a strategy.
func (s *PostgresStore) DeleteStrategy(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM strategies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: delete strategy: %v", apperrors.ErrDatabaseError, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.Wrapf(apperrors.ErrStrategyNotFound, "id %s", id)
	}
	return nil
}

// AddToWatchlist adds a symbol to the watchlist.
func (s *PostgresStore) AddToWatchlist(ctx context.Context, symbol string) error {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return apperrors.NewValidationError("symbol", symbol, "symbol is required")
	}

	_, err := s.pool.Exec(ctx, `INSERT INTO watchlist (symbol, added_at) VALUES ($1, $2)`, symbol, s.now())
	if err != nil {
		if isDuplicateKeyError(err) {
			return apperrors.Wrapf(apperrors.ErrDuplicate, "%s is already in watchlist", symbol)
		}
		return fmt.Errorf("%w: add to watchlist: %v", apperrors.ErrDatabaseError, err)
	}
	return nil
}

// RemoveFromWatchlist removes a symbol from the watchlist.
func (s *PostgresStore) RemoveFromWatchlist(ctx context.Context, symbol string) error {
	symbol = normalizeSymbol(symbol)

	tag, err := s.pool.Exec(ctx, `DELETE FROM watchlist WHERE symbol = $1`, symbol)
	if err != nil {
		return fmt.Errorf("%w: remove from watchlist: %v", apperrors.ErrDatabaseError, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewDataError("watchlist", symbol, "symbol not in watchlist", apperrors.ErrDataNotFound)
	}
	return nil
}

// GetWatchlist retrieves watched symbols in the order they were added.
func (s *PostgresStore) GetWatchlist(ctx context.Context) ([]WatchlistEntry, error) {
	rows, err := s.pool.Query(ctx, `SELECT symbol, added_at FROM watchlist ORDER BY added_at ASC, seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: query watchlist: %v", apperrors.ErrDatabaseError, err)
	}
	defer rows.Close()

	var entries []WatchlistEntry
	for rows.Next() {
		var e WatchlistEntry
		var added time.Time
		if err := rows.Scan(&e.Symbol, &added); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		e.AddedAt = added.UTC().Format(time.RFC3339)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanPgStrategy(r pgx.Row) (*models.Strategy, error) {
	var st models.Strategy
	var legsJSON []byte
	var status string

	if err := r.Scan(&st.ID, &st.Name, &st.Ticker, &legsJSON, &st.Notes,
		&st.EntryPrice, &st.TargetProfit, &st.StopLoss, &status, &st.CreatedAt, &st.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(legsJSON, &st.Legs); err != nil {
		return nil, apperrors.NewDataError("strategy", st.Ticker, "corrupt legs column", err)
	}
	st.Status = models.StrategyStatus(status)
	st.CreatedAt = st.CreatedAt.UTC()
	st.UpdatedAt = st.UpdatedAt.UTC()
	return &st, nil
}

// isDuplicateKeyError checks if err is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}

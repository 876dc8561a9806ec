// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "options-analyzer/internal/errors"
	"options-analyzer/internal/models"
)


// StrategyStore defines the interface for strategy and watchlist persistence.
type StrategyStore interface {
	// Strategies
	SaveStrategy(ctx context.Context, s *models.Strategy) error
	GetStrategy(ctx context.Context, id string) (*models.Strategy, error)
	ListStrategies(ctx context.Context, filter StrategyFilter) ([]models.Strategy, error)
	UpdateStrategy(ctx context.Context, id string, update models.StrategyUpdate) (*models.Strategy, error)
	DeleteStrategy(ctx context.Context, id string) error

	// Watchlist
	AddToWatchlist(ctx context.Context, symbol string) error
	RemoveFromWatchlist(ctx context.Context, symbol string) error
	GetWatchlist(ctx context.Context) ([]WatchlistEntry, error)

	// Lifecycle
	Close() error
}

// StrategyFilter represents filters for listing strategies.
type StrategyFilter struct {
	Status models.StrategyStatus // empty matches every status
	Ticker string
	Limit  int
}

// WatchlistEntry is one watched symbol.
type WatchlistEntry struct {
	Symbol  string `json:"symbol"`
	AddedAt string `json:"added_at"`
}

// prepareStrategy validates a new strategy and fills in its ID, status,
// normalized ticker and timestamps.
func prepareStrategy(st *models.Strategy, now time.Time) error {
	if strings.TrimSpace(st.Name) == "" {
		return apperrors.NewValidationError("name", st.Name, "strategy name is required")
	}
	if strings.TrimSpace(st.Ticker) == "" {
		return apperrors.NewValidationError("ticker", st.Ticker, "ticker is required")
	}
	if err := models.Position(st.Legs).Validate(); err != nil {
		return err
	}

	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	if st.Status == "" {
		st.Status = models.StrategyActive
	}
	st.Ticker = strings.ToUpper(strings.TrimSpace(st.Ticker))
	st.CreatedAt, st.UpdatedAt = now, now
	return nil
}

func validateStatus(update models.StrategyUpdate) error {
	if update.Status == nil {
		return nil
	}
	switch *update.Status {
	case models.StrategyActive, models.StrategyClosed:
		return nil
	}
	return apperrors.NewValidationError("status", *update.Status, "must be active or closed")
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

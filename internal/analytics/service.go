package analytics

import (
	"context"
	"log"
	"time"

	"checkbox/internal/caching"
	"checkbox/internal/models"
	"checkbox/internal/repositories"
)

const statsCacheTTL = 5 * time.Minute

// Service computes aggregate receipt statistics, caching results in Redis.
type Service struct {
	db       repositories.Querier
	cacheSvc caching.CacheService
}

func NewService(db repositories.Querier, cacheSvc caching.CacheService) *Service {
	return &Service{db: db, cacheSvc: cacheSvc}
}

// GetUserStats returns the caller's receipt summary, served from cache when
// fresh.
func (s *Service) GetUserStats(ctx context.Context, userID int64) (*models.CheckStats, error) {
	if cached, err := s.cacheSvc.GetUserStats(ctx, userID); err == nil && cached != nil {
		return cached, nil
	}

	stats := &models.CheckStats{}
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(total), 0),
		       COUNT(*) FILTER (WHERE type = 'cash'),
		       COUNT(*) FILTER (WHERE type = 'cashless'),
		       COALESCE(AVG(total), 0)
		FROM checks
		WHERE user_id = $1
	`
	err := s.db.QueryRow(ctx, query, userID).
		Scan(&stats.TotalChecks, &stats.Revenue, &stats.CashChecks, &stats.CashlessChecks, &stats.AverageTotal)
	if err != nil {
		return nil, err
	}

	if err := s.cacheSvc.SetUserStats(ctx, userID, stats, statsCacheTTL); err != nil {
		log.Printf("Failed to cache user stats: %v", err)
	}
	return stats, nil
}

// RefreshGlobalStats recomputes the service-wide summary and stores it in the
// cache. Run periodically by the background scheduler.
func (s *Service) RefreshGlobalStats(ctx context.Context) error {
	stats := &models.CheckStats{}
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(total), 0),
		       COUNT(*) FILTER (WHERE type = 'cash'),
		       COUNT(*) FILTER (WHERE type = 'cashless'),
		       COALESCE(AVG(total), 0)
		FROM checks
	`
	err := s.db.QueryRow(ctx, query).
		Scan(&stats.TotalChecks, &stats.Revenue, &stats.CashChecks, &stats.CashlessChecks, &stats.AverageTotal)
	if err != nil {
		return err
	}

	return s.cacheSvc.SetGlobalStats(ctx, stats, 30*time.Minute)
}

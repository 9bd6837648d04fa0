package analytics

import (
	"context"
	"testing"
	"time"

	"checkbox/internal/models"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStatsCache struct {
	userStats   map[int64]*models.CheckStats
	globalStats *models.CheckStats
}

func newMemoryStatsCache() *memoryStatsCache {
	return &memoryStatsCache{userStats: make(map[int64]*models.CheckStats)}
}

func (m *memoryStatsCache) SetRefreshToken(context.Context, string, int64, time.Duration) error {
	return nil
}
func (m *memoryStatsCache) GetRefreshToken(context.Context, string) (int64, bool, error) {
	return 0, false, nil
}
func (m *memoryStatsCache) DeleteRefreshToken(context.Context, string) error       { return nil }
func (m *memoryStatsCache) GetRenderedCheck(context.Context, string) (string, error) { return "", nil }
func (m *memoryStatsCache) SetRenderedCheck(context.Context, string, string, time.Duration) error {
	return nil
}
func (m *memoryStatsCache) DeleteRenderedCheck(context.Context, string) error { return nil }

func (m *memoryStatsCache) GetUserStats(_ context.Context, userID int64) (*models.CheckStats, error) {
	return m.userStats[userID], nil
}

func (m *memoryStatsCache) SetUserStats(_ context.Context, userID int64, stats *models.CheckStats, _ time.Duration) error {
	m.userStats[userID] = stats
	return nil
}

func (m *memoryStatsCache) SetGlobalStats(_ context.Context, stats *models.CheckStats, _ time.Duration) error {
	m.globalStats = stats
	return nil
}

func (m *memoryStatsCache) IsRateLimited(context.Context, string, int, time.Duration) (bool, error) {
	return false, nil
}
func (m *memoryStatsCache) Ping(context.Context) error { return nil }

func TestGetUserStats_QueriesAndCaches(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cache := newMemoryStatsCache()
	svc := NewService(mock, cache)

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"count", "sum", "cash", "cashless", "avg"}).
			AddRow(int64(3), 1500.0, int64(2), int64(1), 500.0))

	stats, err := svc.GetUserStats(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalChecks)
	assert.Equal(t, 1500.0, stats.Revenue)
	assert.Equal(t, int64(2), stats.CashChecks)
	assert.Equal(t, int64(1), stats.CashlessChecks)
	assert.Equal(t, 500.0, stats.AverageTotal)

	// Second call is served from the cache, no further query expected
	again, err := svc.GetUserStats(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, stats, again)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshGlobalStats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cache := newMemoryStatsCache()
	svc := NewService(mock, cache)

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WillReturnRows(pgxmock.NewRows([]string{"count", "sum", "cash", "cashless", "avg"}).
			AddRow(int64(10), 9000.0, int64(6), int64(4), 900.0))

	require.NoError(t, svc.RefreshGlobalStats(context.Background()))
	require.NotNil(t, cache.globalStats)
	assert.Equal(t, int64(10), cache.globalStats.TotalChecks)
	assert.Equal(t, 9000.0, cache.globalStats.Revenue)
}

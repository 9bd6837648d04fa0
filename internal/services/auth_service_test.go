package services

import (
	"context"
	"testing"
	"time"

	"checkbox/internal/caching"
	"checkbox/internal/models"
	"checkbox/internal/repositories"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

// fakeCacheService is an in-memory stand-in for the Redis-backed cache.
type fakeCacheService struct {
	refreshTokens map[string]int64
}

var _ caching.CacheService = (*fakeCacheService)(nil)

func newFakeCacheService() *fakeCacheService {
	return &fakeCacheService{refreshTokens: make(map[string]int64)}
}

func (f *fakeCacheService) SetRefreshToken(_ context.Context, jti string, userID int64, _ time.Duration) error {
	f.refreshTokens[jti] = userID
	return nil
}

func (f *fakeCacheService) GetRefreshToken(_ context.Context, jti string) (int64, bool, error) {
	userID, ok := f.refreshTokens[jti]
	return userID, ok, nil
}

func (f *fakeCacheService) DeleteRefreshToken(_ context.Context, jti string) error {
	delete(f.refreshTokens, jti)
	return nil
}

func (f *fakeCacheService) GetRenderedCheck(context.Context, string) (string, error) { return "", nil }
func (f *fakeCacheService) SetRenderedCheck(context.Context, string, string, time.Duration) error {
	return nil
}
func (f *fakeCacheService) DeleteRenderedCheck(context.Context, string) error { return nil }
func (f *fakeCacheService) GetUserStats(context.Context, int64) (*models.CheckStats, error) {
	return nil, nil
}
func (f *fakeCacheService) SetUserStats(context.Context, int64, *models.CheckStats, time.Duration) error {
	return nil
}
func (f *fakeCacheService) SetGlobalStats(context.Context, *models.CheckStats, time.Duration) error {
	return nil
}
func (f *fakeCacheService) IsRateLimited(context.Context, string, int, time.Duration) (bool, error) {
	return false, nil
}
func (f *fakeCacheService) Ping(context.Context) error { return nil }

type AuthServiceTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	cache   *fakeCacheService
	service AuthService
	user    *models.User
	ctx     context.Context
}

func (suite *AuthServiceTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.cache = newFakeCacheService()
	suite.service = NewAuthService(
		suite.cache,
		repositories.NewUnitOfWorkManager(mock),
		"test-secret",
		30*time.Minute,
		30*24*time.Hour,
	)
	suite.user = &models.User{
		ID:    1,
		Login: "ivan.franko@example.com",
	}
	suite.ctx = context.Background()
}

func (suite *AuthServiceTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}

func (suite *AuthServiceTestSuite) TestGenerateAndValidate() {
	pair, err := suite.service.GenerateTokens(suite.ctx, suite.user)
	assert.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), pair.AccessToken)
	assert.NotEmpty(suite.T(), pair.RefreshToken)
	assert.Equal(suite.T(), "Bearer", pair.TokenType)
	assert.Equal(suite.T(), int((30 * time.Minute).Seconds()), pair.ExpiresIn)

	claims, err := suite.service.ValidateAccessToken(pair.AccessToken)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "1", claims.Subject)
	assert.Equal(suite.T(), suite.user.Login, claims.Login)

	// The refresh token's jti was recorded
	assert.Len(suite.T(), suite.cache.refreshTokens, 1)
}

func (suite *AuthServiceTestSuite) TestValidateAccessToken_RejectsRefreshToken() {
	pair, err := suite.service.GenerateTokens(suite.ctx, suite.user)
	assert.NoError(suite.T(), err)

	claims, err := suite.service.ValidateAccessToken(pair.RefreshToken)
	assert.Nil(suite.T(), claims)
	assert.ErrorIs(suite.T(), err, ErrInvalidToken)
}

func (suite *AuthServiceTestSuite) TestValidateAccessToken_Garbage() {
	claims, err := suite.service.ValidateAccessToken("not.a.jwt")
	assert.Nil(suite.T(), claims)
	assert.ErrorIs(suite.T(), err, ErrInvalidToken)
}

func (suite *AuthServiceTestSuite) TestValidateAccessToken_WrongSecret() {
	other := NewAuthService(suite.cache, repositories.NewUnitOfWorkManager(suite.mock), "other-secret", 30*time.Minute, 24*time.Hour)
	pair, err := other.GenerateTokens(suite.ctx, suite.user)
	assert.NoError(suite.T(), err)

	claims, err := suite.service.ValidateAccessToken(pair.AccessToken)
	assert.Nil(suite.T(), claims)
	assert.ErrorIs(suite.T(), err, ErrInvalidToken)
}

func (suite *AuthServiceTestSuite) TestRefresh_RotatesToken() {
	pair, err := suite.service.GenerateTokens(suite.ctx, suite.user)
	assert.NoError(suite.T(), err)

	var oldJTI string
	for jti := range suite.cache.refreshTokens {
		oldJTI = jti
	}

	suite.mock.ExpectBegin()
	suite.mock.ExpectQuery(`SELECT id, first_name, last_name, login, password_hash, created_at`).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "first_name", "last_name", "login", "password_hash", "created_at"}).
			AddRow(int64(1), "Ivan", "Franko", suite.user.Login, "$2a$10$hash", time.Now()))
	suite.mock.ExpectRollback()

	newPair, err := suite.service.Refresh(suite.ctx, pair.RefreshToken)
	assert.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), newPair.AccessToken)

	// The old jti is gone, a fresh one took its place
	_, stillThere := suite.cache.refreshTokens[oldJTI]
	assert.False(suite.T(), stillThere)
	assert.Len(suite.T(), suite.cache.refreshTokens, 1)
}

func (suite *AuthServiceTestSuite) TestRefresh_SecondUseRejected() {
	pair, err := suite.service.GenerateTokens(suite.ctx, suite.user)
	assert.NoError(suite.T(), err)

	suite.mock.ExpectBegin()
	suite.mock.ExpectQuery(`SELECT id, first_name, last_name, login, password_hash, created_at`).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "first_name", "last_name", "login", "password_hash", "created_at"}).
			AddRow(int64(1), "Ivan", "Franko", suite.user.Login, "$2a$10$hash", time.Now()))
	suite.mock.ExpectRollback()

	_, err = suite.service.Refresh(suite.ctx, pair.RefreshToken)
	assert.NoError(suite.T(), err)

	// Replaying the consumed token fails
	replayed, err := suite.service.Refresh(suite.ctx, pair.RefreshToken)
	assert.Nil(suite.T(), replayed)
	assert.ErrorIs(suite.T(), err, ErrInvalidToken)
}

func (suite *AuthServiceTestSuite) TestRefresh_RejectsAccessToken() {
	pair, err := suite.service.GenerateTokens(suite.ctx, suite.user)
	assert.NoError(suite.T(), err)

	refreshed, err := suite.service.Refresh(suite.ctx, pair.AccessToken)
	assert.Nil(suite.T(), refreshed)
	assert.ErrorIs(suite.T(), err, ErrInvalidToken)
}

func (suite *AuthServiceTestSuite) TestRefresh_ExpiredToken() {
	short := NewAuthService(suite.cache, repositories.NewUnitOfWorkManager(suite.mock), "test-secret", time.Minute, -time.Minute)
	pair, err := short.GenerateTokens(suite.ctx, suite.user)
	assert.NoError(suite.T(), err)

	refreshed, err := short.Refresh(suite.ctx, pair.RefreshToken)
	assert.Nil(suite.T(), refreshed)
	assert.ErrorIs(suite.T(), err, ErrInvalidToken)
}

package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"checkbox/internal/caching"
	"checkbox/internal/models"
	"checkbox/internal/repositories"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenClaims are the JWT claims of both access and refresh tokens. The
// TokenType tag is what keeps a refresh token from being used as a bearer
// credential and vice versa.
type TokenClaims struct {
	Login     string `json:"login,omitempty"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// AuthService issues and validates the JWT token pairs used by the API.
type AuthService interface {
	GenerateTokens(ctx context.Context, user *models.User) (*models.TokenPair, error)
	ValidateAccessToken(tokenString string) (*TokenClaims, error)
	// Refresh validates a refresh token, rotates it and issues a new pair.
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
}

type authService struct {
	cacheSvc   caching.CacheService
	uow        repositories.UnitOfWorkManager
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthService(cacheSvc caching.CacheService, uow repositories.UnitOfWorkManager, jwtSecret string, accessTTL, refreshTTL time.Duration) AuthService {
	return &authService{
		cacheSvc:   cacheSvc,
		uow:        uow,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// GenerateTokens signs an access token carrying the user's id and login and a
// refresh token carrying only the id. The refresh token's jti is recorded in
// the cache; refresh is only honored while that record exists.
func (s *authService) GenerateTokens(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	now := time.Now()
	subject := strconv.FormatInt(user.ID, 10)

	accessClaims := TokenClaims{
		Login:     user.Login,
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	jti := uuid.NewString()
	refreshClaims := TokenClaims{
		TokenType: tokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
		},
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	if err := s.cacheSvc.SetRefreshToken(ctx, jti, user.ID, s.refreshTTL); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.accessTTL.Seconds()),
	}, nil
}

func (s *authService) parseToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *authService) ValidateAccessToken(tokenString string) (*TokenClaims, error) {
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenTypeAccess {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	claims, err := s.parseToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenTypeRefresh || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	userID, found, err := s.cacheSvc.GetRefreshToken(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up refresh token: %w", err)
	}
	if !found {
		return nil, ErrInvalidToken
	}

	// Rotate: a refresh token is single use.
	if err := s.cacheSvc.DeleteRefreshToken(ctx, claims.ID); err != nil {
		log.Printf("Failed to delete rotated refresh token: %v", err)
	}

	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	user, err := uow.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	return s.GenerateTokens(ctx, user)
}

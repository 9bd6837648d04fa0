package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"checkbox/internal/common"
	"checkbox/internal/services"

	"github.com/labstack/echo/v4"
)

// JWTMiddleware validates bearer access tokens and puts the caller's user id
// and login into the request context. Refresh tokens are rejected here; only
// access-type tokens authenticate requests.
func JWTMiddleware(authService services.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing token")
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token format")
			}

			claims, err := authService.ValidateAccessToken(tokenString)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			userID, err := strconv.ParseInt(claims.Subject, 10, 64)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid subject in token")
			}

			ctx := context.WithValue(c.Request().Context(), common.UserIDKey, userID)
			ctx = context.WithValue(ctx, common.LoginKey, claims.Login)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

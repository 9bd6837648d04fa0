package handlers

import (
	"errors"
	"net/http"
	"time"

	"checkbox/internal/common"
	"checkbox/internal/repositories"
	"checkbox/internal/services"

	"github.com/labstack/echo/v4"
)

// AuthHandlers handles registration, login and token refresh.
type AuthHandlers struct {
	userService services.UserService
	authService services.AuthService
}

func NewAuthHandlers(userService services.UserService, authService services.AuthService) *AuthHandlers {
	return &AuthHandlers{
		userService: userService,
		authService: authService,
	}
}

// RegisterRequest represents the registration payload
type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Login     string `json:"login"`
	Password  string `json:"password"`
}

// RegisterResponse represents the created user
type RegisterResponse struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Login     string    `json:"login"`
	CreatedAt time.Time `json:"created_at"`
}

// Register handles POST /auth/register
func (h *AuthHandlers) Register(c echo.Context) error {
	ctx := c.Request().Context()

	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	if err := common.ValidateStringLength(req.FirstName, "first_name", 2, 64); err != nil {
		return common.SendValidationError(c, "first_name", err.Error())
	}
	if err := common.ValidateStringLength(req.LastName, "last_name", 2, 64); err != nil {
		return common.SendValidationError(c, "last_name", err.Error())
	}
	if err := common.ValidateStringLength(req.Login, "login", 16, 64); err != nil {
		return common.SendValidationError(c, "login", err.Error())
	}
	if err := common.ValidateStringLength(req.Password, "password", 8, 64); err != nil {
		return common.SendValidationError(c, "password", err.Error())
	}

	user, err := h.userService.CreateUser(ctx, req.FirstName, req.LastName, req.Login, req.Password)
	if err != nil {
		if errors.Is(err, repositories.ErrUserAlreadyExists) {
			return common.SendConflictError(c, "User with this login already exists")
		}
		c.Logger().Errorf("Failed to create user: %v", err)
		return common.SendServerError(c, "Failed to create user")
	}

	return c.JSON(http.StatusCreated, RegisterResponse{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Login:     user.Login,
		CreatedAt: user.CreatedAt,
	})
}

// LoginRequest represents the login payload
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Login handles POST /auth/login
func (h *AuthHandlers) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if req.Login == "" || req.Password == "" {
		return common.SendClientError(c, "Login and password are required")
	}

	user, err := h.userService.Authenticate(ctx, req.Login, req.Password)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return common.SendNotFoundError(c, "User")
		}
		if errors.Is(err, services.ErrInvalidCredentials) {
			return common.SendUnauthorizedError(c)
		}
		c.Logger().Errorf("Login failed: %v", err)
		return common.SendServerError(c, "Login failed")
	}

	tokens, err := h.authService.GenerateTokens(ctx, user)
	if err != nil {
		c.Logger().Errorf("Failed to generate tokens: %v", err)
		return common.SendServerError(c, "Failed to generate tokens")
	}

	return c.JSON(http.StatusOK, tokens)
}

// RefreshRequest represents the token refresh payload
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /auth/refresh
func (h *AuthHandlers) Refresh(c echo.Context) error {
	ctx := c.Request().Context()

	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if req.RefreshToken == "" {
		return common.SendClientError(c, "Refresh token is required")
	}

	tokens, err := h.authService.Refresh(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, services.ErrInvalidToken) {
			return common.SendUnauthorizedError(c)
		}
		c.Logger().Errorf("Token refresh failed: %v", err)
		return common.SendServerError(c, "Token refresh failed")
	}

	return c.JSON(http.StatusOK, tokens)
}

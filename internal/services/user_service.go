package services

import (
	"context"
	"errors"
	"fmt"

	"checkbox/internal/models"
	"checkbox/internal/repositories"

	"golang.org/x/crypto/bcrypt"
)

type UserService interface {
	// CreateUser registers a new user with a bcrypt-hashed password.
	// Duplicate logins return repositories.ErrUserAlreadyExists.
	CreateUser(ctx context.Context, firstName, lastName, login, password string) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	// Authenticate verifies login and password, returning the user on success.
	Authenticate(ctx context.Context, login, password string) (*models.User, error)
}

type userService struct {
	uow repositories.UnitOfWorkManager
}

func NewUserService(uow repositories.UnitOfWorkManager) UserService {
	return &userService{uow: uow}
}

func (s *userService) CreateUser(ctx context.Context, firstName, lastName, login, password string) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	// The existence check gives a clean error for the common case; the unique
	// constraint on login is what closes the check-then-insert race.
	_, err = uow.Users().GetByLogin(ctx, login)
	if err == nil {
		return nil, repositories.ErrUserAlreadyExists
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, err
	}

	user := &models.User{
		FirstName:    firstName,
		LastName:     lastName,
		Login:        login,
		PasswordHash: string(hashed),
	}
	if err := uow.Users().Create(ctx, user); err != nil {
		return nil, err
	}

	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	return uow.Users().GetByLogin(ctx, login)
}

func (s *userService) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	return uow.Users().GetByID(ctx, id)
}

func (s *userService) Authenticate(ctx context.Context, login, password string) (*models.User, error) {
	user, err := s.GetUserByLogin(ctx, login)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

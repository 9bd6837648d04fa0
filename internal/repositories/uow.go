package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// UnitOfWork is one database transaction with the repositories bound to it.
// The scope is rollback-by-default: callers defer Rollback and call Commit
// explicitly on success. Rollback after a successful Commit is a no-op.
type UnitOfWork interface {
	Users() UserRepository
	Checks() CheckRepository
	CheckItems() CheckItemRepository
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UnitOfWorkManager opens unit-of-work scopes against the shared pool.
type UnitOfWorkManager interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}

type uowManager struct {
	db DB
}

func NewUnitOfWorkManager(db DB) UnitOfWorkManager {
	return &uowManager{db: db}
}

func (m *uowManager) Begin(ctx context.Context) (UnitOfWork, error) {
	tx, err := m.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &unitOfWork{
		tx:         tx,
		users:      NewUserRepo(tx),
		checks:     NewCheckRepo(tx),
		checkItems: NewCheckItemRepo(tx),
	}, nil
}

type unitOfWork struct {
	tx         pgx.Tx
	users      UserRepository
	checks     CheckRepository
	checkItems CheckItemRepository
}

func (u *unitOfWork) Users() UserRepository           { return u.users }
func (u *unitOfWork) Checks() CheckRepository         { return u.checks }
func (u *unitOfWork) CheckItems() CheckItemRepository { return u.checkItems }

func (u *unitOfWork) Commit(ctx context.Context) error {
	return u.tx.Commit(ctx)
}

func (u *unitOfWork) Rollback(ctx context.Context) error {
	err := u.tx.Rollback(ctx)
	if err == pgx.ErrTxClosed {
		return nil
	}
	return err
}

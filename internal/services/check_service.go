package services

import (
	"context"

	"checkbox/internal/models"
	"checkbox/internal/repositories"

	"github.com/google/uuid"
)

type CheckService interface {
	// CreateCheck computes the totals and persists the check row together
	// with its items in one transaction.
	CreateCheck(ctx context.Context, userID int64, data *models.CheckCreate) (*models.Check, error)
	// GetCheckByID looks up a check scoped to its owner. The owner id is a
	// required part of the lookup, not the caller's responsibility to
	// remember.
	GetCheckByID(ctx context.Context, checkID, userID int64) (*models.Check, error)
	// GetCheckByPublicUUID is the unauthenticated shareable lookup.
	GetCheckByPublicUUID(ctx context.Context, publicUUID uuid.UUID) (*models.Check, error)
	// ListChecks returns the caller's checks narrowed by the filter.
	ListChecks(ctx context.Context, userID int64, filter *models.CheckFilter) ([]*models.Check, error)
}

type checkService struct {
	uow repositories.UnitOfWorkManager
}

func NewCheckService(uow repositories.UnitOfWorkManager) CheckService {
	return &checkService{uow: uow}
}

func (s *checkService) CreateCheck(ctx context.Context, userID int64, data *models.CheckCreate) (*models.Check, error) {
	var total float64
	for _, product := range data.Products {
		total += product.Price * float64(product.Quantity)
	}
	rest := data.Payment.Amount - total
	if rest < 0 {
		return nil, ErrInsufficientPayment
	}

	check := &models.Check{
		Type:       data.Payment.Type,
		Amount:     data.Payment.Amount,
		Total:      total,
		Rest:       rest,
		PublicUUID: uuid.New(),
		UserID:     userID,
	}

	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	if err := uow.Checks().Create(ctx, check); err != nil {
		return nil, err
	}

	items := make([]*models.CheckItem, 0, len(data.Products))
	for _, product := range data.Products {
		items = append(items, &models.CheckItem{
			Name:     product.Name,
			Price:    product.Price,
			Quantity: product.Quantity,
			Total:    product.Price * float64(product.Quantity),
			CheckID:  check.ID,
		})
	}
	if err := uow.CheckItems().BulkInsert(ctx, items); err != nil {
		return nil, err
	}

	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}

	check.Items = items
	return check, nil
}

func (s *checkService) GetCheckByID(ctx context.Context, checkID, userID int64) (*models.Check, error) {
	checks, err := s.getChecks(ctx, map[string]any{
		"id":      checkID,
		"user_id": userID,
	}, 0, 0)
	if err != nil {
		return nil, err
	}
	if len(checks) == 0 {
		return nil, repositories.ErrCheckNotFound
	}
	return checks[0], nil
}

func (s *checkService) GetCheckByPublicUUID(ctx context.Context, publicUUID uuid.UUID) (*models.Check, error) {
	checks, err := s.getChecks(ctx, map[string]any{
		"public_uuid": publicUUID,
	}, 0, 0)
	if err != nil {
		return nil, err
	}
	if len(checks) == 0 {
		return nil, repositories.ErrCheckNotFound
	}
	return checks[0], nil
}

func (s *checkService) ListChecks(ctx context.Context, userID int64, filter *models.CheckFilter) ([]*models.Check, error) {
	filters := map[string]any{
		"user_id": userID,
	}
	if filter.CreatedAtLT != nil {
		filters["created_at__lt"] = *filter.CreatedAtLT
	}
	if filter.CreatedAtGTE != nil {
		filters["created_at__gte"] = *filter.CreatedAtGTE
	}
	if filter.AmountLT != nil {
		filters["amount__lt"] = *filter.AmountLT
	}
	if filter.AmountGTE != nil {
		filters["amount__gte"] = *filter.AmountGTE
	}
	if filter.Type != nil {
		filters["type"] = *filter.Type
	}

	return s.getChecks(ctx, filters, filter.Limit, filter.Offset)
}

func (s *checkService) getChecks(ctx context.Context, filters map[string]any, limit, offset int) ([]*models.Check, error) {
	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	return uow.Checks().ListByFilters(ctx, filters, limit, offset)
}

package repositories

import (
	"context"
	"fmt"
	"strings"

	"checkbox/internal/models"
)

type CheckItemRepository interface {
	// BulkInsert persists all items in one statement and fills in their
	// assigned IDs.
	BulkInsert(ctx context.Context, items []*models.CheckItem) error
}

type checkItemRepo struct {
	db Querier
}

func NewCheckItemRepo(db Querier) CheckItemRepository {
	return &checkItemRepo{db: db}
}

func (r *checkItemRepo) BulkInsert(ctx context.Context, items []*models.CheckItem) error {
	if len(items) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(items))
	args := make([]any, 0, len(items)*5)
	for i, item := range items {
		base := i * 5
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5))
		args = append(args, item.Name, item.Price, item.Quantity, item.Total, item.CheckID)
	}

	query := `INSERT INTO check_items (name, price, quantity, total, check_id) VALUES ` +
		strings.Join(placeholders, ", ") + ` RETURNING id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to bulk insert check items: %w", err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		if i >= len(items) {
			break
		}
		if err := rows.Scan(&items[i].ID); err != nil {
			return err
		}
		i++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if i != len(items) {
		return fmt.Errorf("bulk insert returned %d ids for %d check items", i, len(items))
	}
	return nil
}

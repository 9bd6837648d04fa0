package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"checkbox/internal/models"
)

type CheckRepository interface {
	Create(ctx context.Context, check *models.Check) error
	// ListByFilters returns checks matching all given filters, each with its
	// items eagerly loaded, ordered by id. limit <= 0 means no limit.
	ListByFilters(ctx context.Context, filters map[string]any, limit, offset int) ([]*models.Check, error)
}

type checkRepo struct {
	db Querier
}

func NewCheckRepo(db Querier) CheckRepository {
	return &checkRepo{db: db}
}

func (r *checkRepo) Create(ctx context.Context, check *models.Check) error {
	query := `
		INSERT INTO checks (type, amount, total, rest, public_uuid, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, check.Type, check.Amount, check.Total, check.Rest, check.PublicUUID, check.UserID).
		Scan(&check.ID, &check.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create check: %w", err)
	}
	return nil
}

// checkFilterColumns are the fields filterable through buildCheckFilters.
var checkFilterColumns = map[string]bool{
	"id":          true,
	"user_id":     true,
	"public_uuid": true,
	"type":        true,
	"amount":      true,
	"total":       true,
	"rest":        true,
	"created_at":  true,
}

// buildCheckFilters turns a filter mapping into a WHERE clause and argument
// list. Keys are column names, optionally suffixed with __gte or __lt for
// range predicates; plain keys compare for equality. Nil values are skipped.
// Keys are processed in sorted order so the generated SQL is deterministic.
// An unknown column or operator is a configuration error, not a silently
// unfiltered result set.
func buildCheckFilters(filters map[string]any) (string, []any, error) {
	keys := make([]string, 0, len(filters))
	for key := range filters {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var clauses []string
	var args []any

	for _, key := range keys {
		value := filters[key]
		if value == nil {
			continue
		}

		field := key
		op := "="
		if idx := strings.Index(key, "__"); idx >= 0 {
			field = key[:idx]
			switch key[idx+2:] {
			case "gte":
				op = ">="
			case "lt":
				op = "<"
			default:
				return "", nil, fmt.Errorf("unknown filter operator in %q", key)
			}
		}

		if !checkFilterColumns[field] {
			return "", nil, fmt.Errorf("unknown filter field %q", field)
		}

		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("%s %s $%d", field, op, len(args)))
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func (r *checkRepo) ListByFilters(ctx context.Context, filters map[string]any, limit, offset int) ([]*models.Check, error) {
	where, args, err := buildCheckFilters(filters)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, type, amount, total, rest, public_uuid, user_id, created_at FROM checks` + where + ` ORDER BY id`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checks []*models.Check
	var checkIDs []int64
	byID := make(map[int64]*models.Check)
	for rows.Next() {
		check := &models.Check{}
		if err := rows.Scan(&check.ID, &check.Type, &check.Amount, &check.Total, &check.Rest, &check.PublicUUID, &check.UserID, &check.CreatedAt); err != nil {
			return nil, err
		}
		checks = append(checks, check)
		checkIDs = append(checkIDs, check.ID)
		byID[check.ID] = check
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(checks) == 0 {
		return checks, nil
	}

	itemsQuery := `
		SELECT id, name, price, quantity, total, check_id
		FROM check_items
		WHERE check_id = ANY($1)
		ORDER BY id
	`
	itemRows, err := r.db.Query(ctx, itemsQuery, checkIDs)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		item := &models.CheckItem{}
		if err := itemRows.Scan(&item.ID, &item.Name, &item.Price, &item.Quantity, &item.Total, &item.CheckID); err != nil {
			return nil, err
		}
		if check, ok := byID[item.CheckID]; ok {
			check.Items = append(check.Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	return checks, nil
}

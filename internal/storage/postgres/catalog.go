package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"dishdash-be/internal/apperr"
	"dishdash-be/internal/catalog"
)

const catalogColumns = `id, name, description, price, category, image, available, created_at, updated_at`

func scanCatalogItem(row rowScanner) (*catalog.Item, error) {
	var (
		it catalog.Item
		id int64
	)
	err := row.Scan(
		&id, &it.Name, &it.Description, &it.Price, &it.Category,
		&it.Image, &it.Available, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	it.ID = formatID(id)
	it.CreatedAt = it.CreatedAt.UTC()
	it.UpdatedAt = it.UpdatedAt.UTC()
	return &it, nil
}

func (s *Store) CreateCatalogItem(ctx context.Context, it catalog.Item) (*catalog.Item, error) {
	now := time.Now().UTC()
	it.CreatedAt, it.UpdatedAt = now, now

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO catalog_items (
			name, description, price, category, image, available, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id
	`,
		it.Name, it.Description, it.Price, it.Category, it.Image, it.Available, it.CreatedAt, it.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return nil, translate(err, "create menu item")
	}

	it.ID = formatID(id)
	return &it, nil
}

func (s *Store) FindCatalogItemByID(ctx context.Context, id string) (*catalog.Item, error) {
	key, ok := parseID(id)
	if !ok {
		return nil, nil
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+catalogColumns+` FROM catalog_items WHERE id = $1`, key)
	it, err := scanCatalogItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, "find menu item")
	}
	return it, nil
}

func (s *Store) ListCatalogItems(ctx context.Context, filter catalog.Filter) ([]catalog.Item, error) {
	var (
		where    []string
		args     []any
		argIndex = 1
	)
	if filter.Category != nil {
		where = append(where, fmt.Sprintf("category = $%d", argIndex))
		args = append(args, *filter.Category)
		argIndex++
	}
	if filter.Available != nil {
		where = append(where, fmt.Sprintf("available = $%d", argIndex))
		args = append(args, *filter.Available)
		argIndex++
	}

	query := `SELECT ` + catalogColumns + ` FROM catalog_items`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY category, name, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "list menu items")
	}
	defer rows.Close()

	out := []catalog.Item{}
	for rows.Next() {
		it, err := scanCatalogItem(rows)
		if err != nil {
			return nil, translate(err, "scan menu item")
		}
		out = append(out, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "list menu items")
	}
	return out, nil
}

func (s *Store) UpdateCatalogItem(ctx context.Context, it catalog.Item) (*catalog.Item, error) {
	key, ok := parseID(it.ID)
	if !ok {
		return nil, apperr.NotFound("menu item not found")
	}
	it.UpdatedAt = time.Now().UTC()

	err := s.db.QueryRowContext(ctx, `
		UPDATE catalog_items
		SET name = $2, description = $3, price = $4, category = $5,
			image = $6, available = $7, updated_at = $8
		WHERE id = $1
		RETURNING created_at
	`,
		key, it.Name, it.Description, it.Price, it.Category, it.Image, it.Available, it.UpdatedAt,
	).Scan(&it.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("menu item not found")
	}
	if err != nil {
		return nil, translate(err, "update menu item")
	}

	it.CreatedAt = it.CreatedAt.UTC()
	return &it, nil
}

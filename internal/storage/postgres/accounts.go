package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"dishdash-be/internal/account"
	"dishdash-be/internal/apperr"
)

const accountColumns = `id, email, name, password_hash, role, phone, address,
	profile_photo, theme_preference, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*account.Account, error) {
	var (
		a  account.Account
		id int64
	)
	err := row.Scan(
		&id, &a.Email, &a.Name, &a.PasswordHash, &a.Role, &a.Phone, &a.Address,
		&a.ProfilePhoto, &a.ThemePreference, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.ID = formatID(id)
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return &a, nil
}

func (s *Store) CreateAccount(ctx context.Context, a account.Account) (*account.Account, error) {
	now := time.Now().UTC()
	a.Email = account.NormalizeEmail(a.Email)
	a.CreatedAt, a.UpdatedAt = now, now

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO accounts (
			email, name, password_hash, role, phone, address,
			profile_photo, theme_preference, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id
	`,
		a.Email, a.Name, a.PasswordHash, a.Role, a.Phone, a.Address,
		a.ProfilePhoto, a.ThemePreference, a.CreatedAt, a.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return nil, translate(err, "create account")
	}

	a.ID = formatID(id)
	return &a, nil
}

func (s *Store) FindAccountByEmail(ctx context.Context, email string) (*account.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE LOWER(email) = $1`,
		account.NormalizeEmail(email),
	)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, "find account by email")
	}
	return a, nil
}

func (s *Store) FindAccountByID(ctx context.Context, id string) (*account.Account, error) {
	key, ok := parseID(id)
	if !ok {
		return nil, nil
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, key)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, "find account")
	}
	return a, nil
}

func (s *Store) UpdateAccount(ctx context.Context, a account.Account) (*account.Account, error) {
	key, ok := parseID(a.ID)
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	a.Email = account.NormalizeEmail(a.Email)
	a.UpdatedAt = time.Now().UTC()

	err := s.db.QueryRowContext(ctx, `
		UPDATE accounts
		SET email = $2, name = $3, password_hash = $4, role = $5, phone = $6,
			address = $7, profile_photo = $8, theme_preference = $9, updated_at = $10
		WHERE id = $1
		RETURNING created_at
	`,
		key, a.Email, a.Name, a.PasswordHash, a.Role, a.Phone,
		a.Address, a.ProfilePhoto, a.ThemePreference, a.UpdatedAt,
	).Scan(&a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, translate(err, "update account")
	}

	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}

func (s *Store) ListAccounts(ctx context.Context, filter account.Filter) ([]account.Account, error) {
	var (
		where    []string
		args     []any
		argIndex = 1
	)
	if filter.Role != nil {
		where = append(where, fmt.Sprintf("role = $%d", argIndex))
		args = append(args, string(*filter.Role))
		argIndex++
	}

	query := `SELECT ` + accountColumns + ` FROM accounts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "list accounts")
	}
	defer rows.Close()

	out := []account.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, translate(err, "scan account")
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "list accounts")
	}
	return out, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/rewear/internal/model"
)

const userColumns = `id, name, email, password_hash, points, role, created_at`

func scanUser(row scanner) (*model.User, error) {
	u := &model.User{}
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Points, &u.Role, &u.CreatedAt); err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser registers a user and grants the starting balance through the ledger.
func CreateUser(ctx context.Context, db *sql.DB, name, email, passwordHash, role string) (*model.User, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := GetUserByEmail(ctx, tx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, model.ErrEmailTaken
	}

	id := newID()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, points, role, created_at)
		 VALUES (?, ?, ?, ?, 0, ?, ?)`,
		id, name, email, passwordHash, role, now(),
	)
	if isUniqueViolation(err) {
		return nil, model.ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	if _, err := AdjustPoints(ctx, tx, id, model.StartingPoints, model.LedgerSignup, ""); err != nil {
		return nil, fmt.Errorf("granting starting points: %w", err)
	}

	user, err := GetUser(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing user: %w", err)
	}
	return user, nil
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, q Querier, id string) (*model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByEmail returns a user by email address (case-insensitive).
func GetUserByEmail(ctx context.Context, q Querier, email string) (*model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return u, nil
}

// ListUsers returns all users, newest first.
func ListUsers(ctx context.Context, q Querier) ([]model.User, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, rowid DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateUserRole changes a user's role.
func UpdateUserRole(ctx context.Context, q Querier, id, role string) error {
	result, err := q.ExecContext(ctx, `UPDATE users SET role = ? WHERE id = ?`, role, id)
	if err != nil {
		return fmt.Errorf("updating user role: %w", err)
	}
	return requireRow(result, "user")
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, q Querier, id, passwordHash string) error {
	result, err := q.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return requireRow(result, "user")
}

// AdjustPoints applies a signed delta to a user's balance and records it in
// the ledger. The balance never goes below zero: a debit larger than the
// balance fails with model.ErrInsufficientBalance and changes nothing.
// Callers pass a transaction so the balance and ledger stay consistent.
func AdjustPoints(ctx context.Context, q Querier, userID string, delta int, reason model.LedgerReason, swapID string) (int, error) {
	if delta == 0 {
		return 0, fmt.Errorf("points delta must be non-zero")
	}

	var balance int
	err := q.QueryRowContext(ctx,
		`UPDATE users SET points = points + ? WHERE id = ? AND points + ? >= 0 RETURNING points`,
		delta, userID, delta,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		u, gerr := GetUser(ctx, q, userID)
		if gerr != nil {
			return 0, gerr
		}
		if u == nil {
			return 0, model.NotFound("user")
		}
		return 0, fmt.Errorf("debiting %d from balance %d: %w", -delta, u.Points, model.ErrInsufficientBalance)
	}
	if err != nil {
		return 0, fmt.Errorf("adjusting points: %w", err)
	}

	if err := AppendLedger(ctx, q, userID, delta, reason, swapID); err != nil {
		return 0, err
	}
	return balance, nil
}

// requireRow maps an UPDATE that touched no rows to model.ErrNotFound.
func requireRow(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return model.NotFound(what)
	}
	return nil
}

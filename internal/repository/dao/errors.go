package dao

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")

	ErrUserEmailExists      = errors.New("user already exists")
	ErrUserNotFound         = fmt.Errorf("user %w", ErrNotFound)
	ErrBrandNotFound        = fmt.Errorf("brand %w", ErrNotFound)
	ErrLocationNotFound     = fmt.Errorf("location %w", ErrNotFound)
	ErrTemplateNotFound     = fmt.Errorf("pass template %w", ErrNotFound)
	ErrDinerNotFound        = fmt.Errorf("diner %w", ErrNotFound)
	ErrIssuedPassNotFound   = fmt.Errorf("pass %w", ErrNotFound)
	ErrSubscriptionNotFound = fmt.Errorf("subscription %w", ErrNotFound)
)

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return false
	}

	return constraint == "" || pgErr.ConstraintName == constraint
}

package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors shared by every repository implementation. Services translate
// them into domain errors. ErrStatusConflict means the ticket status changed
// between read and write, or no longer admits the write.
var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrDuplicateToken = errors.New("ticket token already taken")
	ErrDuplicateCode  = errors.New("invite code already exists")
	ErrInviteCodeUsed = errors.New("invite code already used")
	ErrInviteExpired  = errors.New("invite code expired")
	ErrStatusConflict = errors.New("ticket status changed concurrently")
)

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// mapNoRows also treats a malformed uuid as a missing row.
func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation {
		return ErrNotFound
	}
	return err
}

// IsNotFound reports whether err is ErrNotFound or pgx.ErrNoRows.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}

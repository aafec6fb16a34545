package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/campusdesk/internal/domain"
)

// AccountFilter narrows account listings.
type AccountFilter struct {
	Roles      []domain.Role
	Status     *domain.AccountStatus
	OnlineOnly bool
	Limit      int
	Offset     int
}

// AccountRepository defines persistence access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	// CreateWithInvite inserts the account and consumes the invite code in one transaction.
	CreateWithInvite(ctx context.Context, account *domain.Account, code string) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	UpdateRole(ctx context.Context, id string, role domain.Role) error
	UpdateStatus(ctx context.Context, id string, status domain.AccountStatus) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetOnline(ctx context.Context, id string, online bool) error
	List(ctx context.Context, filter AccountFilter) ([]domain.Account, error)
	Count(ctx context.Context, filter AccountFilter) (int, error)
}

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

const insertAccountQuery = `
        INSERT INTO accounts (email, full_name, password_hash, role, status, specialization, phone, is_online)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at, updated_at`

const selectAccountColumns = `
        SELECT id, email, full_name, password_hash, role, status, specialization, phone, is_online,
               created_at, updated_at
        FROM accounts`

func insertAccount(ctx context.Context, q querier, account *domain.Account) error {
	err := q.QueryRow(ctx, insertAccountQuery,
		account.Email,
		account.FullName,
		account.PasswordHash,
		account.Role,
		account.Status,
		account.Specialization,
		account.Phone,
		account.IsOnline,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	return insertAccount(ctx, r.pool, account)
}

func (r *accountRepository) CreateWithInvite(ctx context.Context, account *domain.Account, code string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := insertAccount(ctx, tx, account); err != nil {
		return err
	}
	if err := consumeInvite(ctx, tx, code, account.ID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.fetchSingle(ctx, selectAccountColumns+` WHERE id=$1`, id)
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.fetchSingle(ctx, selectAccountColumns+` WHERE email=$1`, email)
}

func (r *accountRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Account, error) {
	account, err := scanAccount(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return account, nil
}

func (r *accountRepository) UpdateRole(ctx context.Context, id string, role domain.Role) error {
	return r.exec(ctx, `UPDATE accounts SET role=$1, updated_at=NOW() WHERE id=$2`, role, id)
}

func (r *accountRepository) UpdateStatus(ctx context.Context, id string, status domain.AccountStatus) error {
	return r.exec(ctx, `UPDATE accounts SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
}

func (r *accountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.exec(ctx, `UPDATE accounts SET password_hash=$1, updated_at=NOW() WHERE id=$2`, passwordHash, id)
}

func (r *accountRepository) SetOnline(ctx context.Context, id string, online bool) error {
	return r.exec(ctx, `UPDATE accounts SET is_online=$1, updated_at=NOW() WHERE id=$2`, online, id)
}

func (r *accountRepository) exec(ctx context.Context, query string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *accountRepository) List(ctx context.Context, filter AccountFilter) ([]domain.Account, error) {
	where, args := accountWhere(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		selectAccountColumns, where, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *account)
	}
	return result, rows.Err()
}

func (r *accountRepository) Count(ctx context.Context, filter AccountFilter) (int, error) {
	where, args := accountWhere(filter)
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE `+where, args...).Scan(&count)
	return count, err
}

func accountWhere(filter AccountFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Roles) > 0 {
		placeholders := make([]string, len(filter.Roles))
		for i, role := range filter.Roles {
			args = append(args, role)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("role IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.OnlineOnly {
		clauses = append(clauses, "is_online")
	}
	return strings.Join(clauses, " AND "), args
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	if err := row.Scan(
		&account.ID,
		&account.Email,
		&account.FullName,
		&account.PasswordHash,
		&account.Role,
		&account.Status,
		&account.Specialization,
		&account.Phone,
		&account.IsOnline,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}

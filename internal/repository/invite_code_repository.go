package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/campusdesk/internal/domain"
)

// InviteCodeFilter narrows invite code listings.
type InviteCodeFilter struct {
	Role       *domain.Role
	UnusedOnly bool
	Limit      int
	Offset     int
}

// InviteCodeRepository stores role-granting invite codes.
type InviteCodeRepository interface {
	Create(ctx context.Context, code *domain.InviteCode) error
	GetByCode(ctx context.Context, code string) (*domain.InviteCode, error)
	// Consume marks an unused, unexpired code as used by accountID. Exactly one concurrent
	// caller wins; the rest receive ErrInviteCodeUsed. Expired codes yield ErrInviteExpired.
	Consume(ctx context.Context, code, accountID string) error
	List(ctx context.Context, filter InviteCodeFilter) ([]domain.InviteCode, error)
}

type inviteCodeRepository struct {
	pool *pgxpool.Pool
}

// NewInviteCodeRepository builds repository.
func NewInviteCodeRepository(pool *pgxpool.Pool) InviteCodeRepository {
	return &inviteCodeRepository{pool: pool}
}

const selectInviteColumns = `
        SELECT id, code, role, used, used_by, used_at, created_by, expires_at, created_at
        FROM invite_codes`

func (r *inviteCodeRepository) Create(ctx context.Context, code *domain.InviteCode) error {
	const query = `
        INSERT INTO invite_codes (code, role, created_by, expires_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		code.Code,
		code.Role,
		code.CreatedBy,
		code.ExpiresAt,
	).Scan(&code.ID, &code.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateCode
	}
	return err
}

func (r *inviteCodeRepository) GetByCode(ctx context.Context, code string) (*domain.InviteCode, error) {
	invite, err := scanInvite(r.pool.QueryRow(ctx, selectInviteColumns+` WHERE code=$1`, code))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return invite, nil
}

func (r *inviteCodeRepository) Consume(ctx context.Context, code, accountID string) error {
	return consumeInvite(ctx, r.pool, code, accountID)
}

// consumeInvite is a conditional update: the row only changes while the code is unused
// and unexpired at write time.
func consumeInvite(ctx context.Context, q querier, code, accountID string) error {
	const query = `
        UPDATE invite_codes SET used=true, used_by=$1, used_at=NOW()
        WHERE code=$2 AND used=false AND (expires_at IS NULL OR expires_at > NOW())`
	cmd, err := q.Exec(ctx, query, accountID, code)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 1 {
		return nil
	}

	var used, expired bool
	err = q.QueryRow(ctx, `
        SELECT used, (expires_at IS NOT NULL AND expires_at <= NOW())
        FROM invite_codes WHERE code=$1`, code).Scan(&used, &expired)
	if err != nil {
		return mapNoRows(err)
	}
	if used {
		return ErrInviteCodeUsed
	}
	if expired {
		return ErrInviteExpired
	}
	return ErrInviteCodeUsed
}

func (r *inviteCodeRepository) List(ctx context.Context, filter InviteCodeFilter) ([]domain.InviteCode, error) {
	clauses := "1=1"
	args := []any{}
	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses += fmt.Sprintf(" AND role=$%d", len(args))
	}
	if filter.UnusedOnly {
		clauses += " AND used=false"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		selectInviteColumns, clauses, limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.InviteCode
	for rows.Next() {
		invite, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *invite)
	}
	return result, rows.Err()
}

func scanInvite(row pgx.Row) (*domain.InviteCode, error) {
	var invite domain.InviteCode
	if err := row.Scan(
		&invite.ID,
		&invite.Code,
		&invite.Role,
		&invite.Used,
		&invite.UsedBy,
		&invite.UsedAt,
		&invite.CreatedBy,
		&invite.ExpiresAt,
		&invite.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &invite, nil
}

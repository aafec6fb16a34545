package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campusdesk/internal/api/dto"
	"github.com/spec-kit/campusdesk/internal/auth"
	"github.com/spec-kit/campusdesk/internal/domain"
	apperrors "github.com/spec-kit/campusdesk/pkg/util/errorutil"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	// maxPage keeps the offset far from overflow; any page past it is empty anyway.
	maxPage = 1_000_000
)

func requireActor(c *fiber.Ctx) (domain.Actor, error) {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return domain.Actor{}, apperrors.NewUnauthenticated("authentication required")
	}
	return actor, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

// pagination reads page and page_size and returns limit and offset.
func pagination(c *fiber.Ctx) (int, int) {
	page := parseInt(c.Query("page"), 1)
	if page > maxPage {
		page = maxPage
	}
	pageSize := parseInt(c.Query("page_size"), defaultPageSize)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return pageSize, (page - 1) * pageSize
}

func splitCSV(val string) []string {
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func accountResponse(account *domain.Account) dto.AccountResponse {
	return dto.AccountResponse{
		ID:             account.ID,
		Email:          account.Email,
		FullName:       account.FullName,
		Role:           account.Role,
		Status:         account.Status,
		Specialization: account.Specialization,
		Phone:          account.Phone,
		IsOnline:       account.IsOnline,
		CreatedAt:      account.CreatedAt,
	}
}

func accountResponses(accounts []domain.Account) []dto.AccountResponse {
	items := make([]dto.AccountResponse, 0, len(accounts))
	for i := range accounts {
		items = append(items, accountResponse(&accounts[i]))
	}
	return items
}

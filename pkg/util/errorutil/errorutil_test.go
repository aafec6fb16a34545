package errorutil_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	apperrors "github.com/spec-kit/campusdesk/pkg/util/errorutil"
)

func TestConstructorsCarryStableCodes(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{apperrors.NewInvalidCredentials(), apperrors.CodeInvalidCredentials, http.StatusUnauthorized},
		{apperrors.NewAccountPending(), apperrors.CodeAccountPending, http.StatusForbidden},
		{apperrors.NewRateLimited("slow down", 900), apperrors.CodeRateLimited, http.StatusTooManyRequests},
		{apperrors.NewInviteCodeUsed(), apperrors.CodeInviteCodeUsed, http.StatusConflict},
		{apperrors.NewInviteCodeExpired(), apperrors.CodeInviteCodeExpired, http.StatusGone},
		{apperrors.NewTicketNotFound(nil), apperrors.CodeTicketNotFound, http.StatusNotFound},
		{apperrors.NewIllegalTransition("resolved", "open"), apperrors.CodeIllegalTransition, http.StatusConflict},
		{apperrors.NewInternalError(errors.New("db down")), apperrors.CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			domainErr := apperrors.ToDomainError(tc.err)
			if domainErr.Code != tc.code || domainErr.HTTPStatus != tc.status {
				t.Fatalf("got %s/%d, want %s/%d", domainErr.Code, domainErr.HTTPStatus, tc.code, tc.status)
			}
			if !apperrors.HasCode(tc.err, tc.code) {
				t.Fatalf("HasCode(%s) = false", tc.code)
			}
		})
	}
}

func TestCodeOfWrappedAndPlainErrors(t *testing.T) {
	wrapped := fmt.Errorf("register: %w", apperrors.NewDuplicateEmail())
	if got := apperrors.CodeOf(wrapped); got != apperrors.CodeDuplicateEmail {
		t.Fatalf("CodeOf(wrapped) = %q", got)
	}
	if got := apperrors.CodeOf(errors.New("boom")); got != apperrors.CodeInternal {
		t.Fatalf("CodeOf(plain) = %q", got)
	}
	if got := apperrors.CodeOf(nil); got != "" {
		t.Fatalf("CodeOf(nil) = %q", got)
	}
	if apperrors.HasCode(errors.New("boom"), apperrors.CodeInternal) {
		t.Fatalf("plain errors carry no code")
	}
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/yungbote/coursegen-backend/internal/modules/coursegen/quota"
	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/services"
)

// toAPIError maps service sentinels onto HTTP statuses.
func toAPIError(err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return apierr.NotFound("not_found", err)
	case errors.Is(err, services.ErrForbidden):
		return apierr.Forbidden("forbidden", err)
	case errors.Is(err, services.ErrInvalidArgument):
		return apierr.BadRequest("invalid_argument", err)
	case errors.Is(err, quota.ErrQuotaExceeded):
		return apierr.New(http.StatusPaymentRequired, "quota_exceeded", err)
	default:
		return err
	}
}

package progression

import (
	"errors"
	"net/http"

	domainagg "github.com/Joshykins/stupid-neko-sub001/internal/domain/aggregates"
	model "github.com/Joshykins/stupid-neko-sub001/internal/domain/progression"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/apierr"
)

// toAPIError attaches an HTTP status and code to ledger and write-path errors.
// Errors that already carry one pass through.
func toAPIError(err error, fallbackCode string) error {
	if err == nil {
		return nil
	}
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return err
	}
	switch {
	case errors.Is(err, model.ErrActivityNotFound):
		return apierr.New(http.StatusNotFound, "activity_not_found", err)
	case errors.Is(err, model.ErrAlreadyReversed):
		return apierr.New(http.StatusConflict, "activity_already_deleted", err)
	case errors.Is(err, model.ErrMissingUser):
		return apierr.New(http.StatusNotFound, "user_not_found", err)
	case errors.Is(err, model.ErrMissingProfile):
		return apierr.New(http.StatusPreconditionFailed, "no_target_language", err)
	}
	switch domainagg.CodeOf(err) {
	case domainagg.CodeValidation:
		return apierr.New(http.StatusBadRequest, "invalid_request", err)
	case domainagg.CodeNotFound:
		return apierr.New(http.StatusNotFound, "not_found", err)
	case domainagg.CodeConflict, domainagg.CodeRetryable:
		return apierr.New(http.StatusConflict, "conflict", err)
	case domainagg.CodePreconditionFailed:
		return apierr.New(http.StatusPreconditionFailed, "precondition_failed", err)
	}
	return apierr.New(http.StatusInternalServerError, fallbackCode, err)
}

package http

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	apierrors "pricecalc/internal/errors"
	"pricecalc/internal/services"
)

// serviceError maps query service errors onto API errors. Data quality
// and context errors pass through; the error handler renders them.
func serviceError(err error) error {
	switch {
	case errors.Is(err, services.ErrNotLoaded):
		return apierrors.NewWithDetails(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE",
			"dataset not loaded on this server", err.Error())
	case errors.Is(err, services.ErrRangeTooLarge), errors.Is(err, services.ErrInvalidInput):
		return apierrors.NewWithDetails(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request", err.Error())
	default:
		return err
	}
}

// validationError converts validator errors into a 400 with one entry per
// failing field
func validationError(err error, trimPrefix string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierrors.InvalidRequestWithError(err)
	}
	out := make([]apierrors.ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if len(field) > len(trimPrefix) && field[:len(trimPrefix)] == trimPrefix {
			field = field[len(trimPrefix):]
		}
		out = append(out, apierrors.ValidationError{
			Field:   field,
			Message: "failed on the '" + fe.Tag() + "' rule",
		})
	}
	return apierrors.NewValidationErrors(out)
}

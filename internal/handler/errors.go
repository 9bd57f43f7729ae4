package handler

import (
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "wastepoints/internal/errors"
)

// fail converts err into an echo HTTP error carrying the stable error body.
// Unexpected failures are logged here with full detail; the client only sees
// the generic message.
func fail(c echo.Context, logger *zap.Logger, err error) error {
	httpErr := apperrors.MapErrorToHTTP(err)
	if !apperrors.IsExpected(err) || httpErr.Retryable {
		logger.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	if httpErr.Retryable {
		c.Response().Header().Set("Retry-After", apperrors.RetryAfterSeconds)
	}
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse()).SetInternal(err)
}

// bindError classifies a Bind failure. A malformed amount keeps its own kind;
// any other shape problem is an invalid request.
func bindError(err error) error {
	if errors.Is(err, apperrors.ErrInvalidAmount) {
		return apperrors.ErrInvalidAmount
	}
	return fmt.Errorf("%w: %v", apperrors.ErrInvalidRequest, err)
}

// validationError wraps a validator failure as an invalid request.
func validationError(err error) error {
	return fmt.Errorf("%w: %v", apperrors.ErrInvalidRequest, err)
}

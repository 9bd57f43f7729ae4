package auth

import (
	"errors"
	"strings"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	apperrors "wastepoints/internal/errors"
)

// PrincipalContextKey is the echo context key the middleware stores the
// resolved Principal under.
const PrincipalContextKey = "principal"

// Middleware rejects requests without a resolvable bearer token and stores the
// Principal on the echo context.
func Middleware(resolver *Resolver) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  PrincipalContextKey,
		TokenLookup: "header:" + echo.HeaderAuthorization,
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			return resolver.Resolve(c.Request().Context(), bearerToken(auth))
		},
		ErrorHandler: func(c echo.Context, err error) error {
			var extractErr *echojwt.TokenExtractionError
			if errors.As(err, &extractErr) {
				err = apperrors.Unauthenticated(apperrors.ReasonNoToken)
			}
			var parseErr *echojwt.TokenParsingError
			if errors.As(err, &parseErr) {
				err = parseErr.Err
			}
			httpErr := apperrors.MapErrorToHTTP(err)
			if httpErr.Retryable {
				c.Response().Header().Set("Retry-After", apperrors.RetryAfterSeconds)
			}
			return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse()).SetInternal(err)
		},
	})
}

// PrincipalFrom returns the Principal stored by Middleware.
func PrincipalFrom(c echo.Context) (Principal, bool) {
	p, ok := c.Get(PrincipalContextKey).(Principal)
	return p, ok && !p.IsZero()
}

// bearerToken strips an optional "Bearer " scheme, case-insensitively.
// A scheme with no credential yields "".
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if strings.EqualFold(header, "bearer") {
		return ""
	}
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

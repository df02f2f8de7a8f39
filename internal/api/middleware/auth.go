package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fundhive/identity-api/internal/core/domain"
	"github.com/fundhive/identity-api/internal/core/ports"
)

// Auth verifies the bearer access token, resolves its user and injects the
// user, its id and role into the context.
func Auth(codec ports.TokenCodec, sessions ports.SessionService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			payload, err := codec.Verify(parts[1], domain.AccessToken)
			if errors.Is(err, domain.ErrTokenExpired) {
				return echo.NewHTTPError(http.StatusUnauthorized, "token expired")
			}
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			user, err := sessions.Validate(c.Request().Context(), payload)
			if errors.Is(err, domain.ErrUnauthenticated) {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			if err != nil {
				return err
			}

			c.Set("user", user)
			c.Set("user_id", user.ID)
			c.Set("role", user.Role)

			return next(c)
		}
	}
}

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/voxsentry/voxsentry/app/entity"
)

type requestAuthenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*entity.User, error)
}

type AuthMiddleware struct {
	authService requestAuthenticator
}

func NewAuthMiddleware(authService requestAuthenticator) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// RequireAuth runs the full authentication gate: token signature and
// expiry, session liveness, and user status. A revoked session rejects an
// otherwise valid access token here.
func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			logrus.Debug("Missing authorization header")
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "missing authorization header",
			})
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			logrus.Debug("Invalid authorization header format")
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "invalid authorization header format",
			})
		}

		user, err := m.authService.Authenticate(c.Request().Context(), parts[1])
		if err != nil {
			logrus.WithError(err).Debug("Request authentication failed")
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "invalid or expired token",
			})
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Set("user_email", user.Email)

		return next(c)
	}
}

// CurrentUser returns the user placed in the context by RequireAuth.
func CurrentUser(c echo.Context) (*entity.User, bool) {
	user, ok := c.Get("user").(*entity.User)
	return user, ok
}

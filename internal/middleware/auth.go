package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"kmevents-payments/internal/dto"
)

const (
	ContextUserID = "user_id"
	ContextUser   = "user"
	ContextRole   = "role"
)

// Claims carried by the dashboard's bearer tokens.
type Claims struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

func Auth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			claims := &Claims{}
			parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(secret), nil
			})
			if err != nil || !parsed.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid bearer token")
			}

			c.Set(ContextUserID, claims.Subject)
			c.Set(ContextRole, claims.Role)
			c.Set(ContextUser, dto.OrderUser{
				Name:    claims.Name,
				Email:   claims.Email,
				Contact: claims.Contact,
			})

			return next(c)
		}
	}
}

// UserFromContext returns the authenticated user's prefill details; all
// fields may be blank.
func UserFromContext(c echo.Context) dto.OrderUser {
	if user, ok := c.Get(ContextUser).(dto.OrderUser); ok {
		return user
	}
	return dto.OrderUser{}
}

func UserIDFromContext(c echo.Context) string {
	if id, ok := c.Get(ContextUserID).(string); ok {
		return id
	}
	return ""
}

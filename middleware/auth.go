package middleware

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"

	"Osprey/Constants"
	"Osprey/Models"
)

// Claims is the token payload: subject carries the user id, the rest is
// enough profile to authorize and address the user without a DB round trip.
type Claims struct {
	Email     string `json:"email"`
	Role      string `json:"role"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	jwt.RegisteredClaims
}

// UserID decodes the subject back into the user's numeric id.
func (c *Claims) UserID() uint {
	id, _ := strconv.ParseUint(c.Subject, 10, 64)
	return uint(id)
}

// GenerateToken signs a bearer token for the user with the configured
// secret and expiry.
func GenerateToken(user *Models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:     user.Email,
		Role:      user.Role,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(Constants.JWTExpiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(Constants.JWTSecret))
}

// ParseToken verifies signature and expiry and returns the decoded claims.
// Also used by the websocket handshake, which has no fiber context.
func ParseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(Constants.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func tokenFromHeader(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// Verify authenticates the bearer token and, when roles are given, requires
// the claimed role to be one of them. With no roles any authenticated user
// passes. 401 covers missing/invalid/expired credentials, 403 covers a
// valid token with the wrong (or an unknown) role.
func Verify(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := tokenFromHeader(c)
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "No authentication token provided",
			})
		}

		claims, err := ParseToken(raw)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
			})
		}

		if !Models.ValidRole(claims.Role) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Invalid user role in token",
			})
		}

		c.Locals("claims", claims)

		if len(roles) == 0 {
			return c.Next()
		}
		for _, role := range roles {
			if claims.Role == role {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "Access denied. Required role: " + strings.Join(roles, ", ") +
				". Your role: " + claims.Role,
		})
	}
}

// CurrentClaims returns the claims stored by Verify, or nil on an
// unprotected route.
func CurrentClaims(c *fiber.Ctx) *Claims {
	claims, _ := c.Locals("claims").(*Claims)
	return claims
}

// CurrentUserID is a shortcut for the authenticated user's id; zero when
// unauthenticated.
func CurrentUserID(c *fiber.Ctx) uint {
	claims := CurrentClaims(c)
	if claims == nil {
		return 0
	}
	return claims.UserID()
}

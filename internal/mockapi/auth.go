package mockapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/naveenspark/taskdash/pkg/client"
	"github.com/naveenspark/taskdash/pkg/domain"
)

const claimsKey = "claims"

// tokenClaims matches the payload the real backend signs: the user id and
// role nested under "user".
type tokenClaims struct {
	User struct {
		ID   string      `json:"id"`
		Role domain.Role `json:"role"`
	} `json:"user"`
	jwt.RegisteredClaims
}

// Token signs a session token for u.
func (s *Server) Token(u domain.User) (string, error) {
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenTTL)),
		},
	}
	claims.User.ID = u.ID
	claims.User.Role = u.Role
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) parseToken(raw string) (*tokenClaims, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return &claims, nil
}

// requireToken rejects requests without a valid x-auth-token and stores the
// claims on the context.
func (s *Server) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := c.Request().Header.Get(client.HeaderAuthToken)
		if raw == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"msg": "No token, authorization denied"})
		}
		claims, err := s.parseToken(raw)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"msg": "Token is not valid"})
		}
		if _, ok := s.store.user(claims.User.ID); !ok {
			return c.JSON(http.StatusUnauthorized, echo.Map{"msg": "Token is not valid"})
		}
		c.Set(claimsKey, claims)
		return next(c)
	}
}

// requireAdmin must run after requireToken.
func requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !isAdmin(c) {
			return c.JSON(http.StatusForbidden, echo.Map{"message": "Access denied"})
		}
		return next(c)
	}
}

func claimsOf(c echo.Context) *tokenClaims {
	claims, _ := c.Get(claimsKey).(*tokenClaims)
	if claims == nil {
		return &tokenClaims{}
	}
	return claims
}

func callerID(c echo.Context) string { return claimsOf(c).User.ID }

func isAdmin(c echo.Context) bool { return claimsOf(c).User.Role == domain.RoleAdmin }

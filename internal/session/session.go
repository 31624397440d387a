// Package session tracks who is logged in: the token the backend issued and
// the role that token claims.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/naveenspark/taskdash/pkg/client"
	"github.com/naveenspark/taskdash/pkg/domain"
)

var (
	// ErrNoSession is returned when no token is stored.
	ErrNoSession = errors.New("no session")
	// ErrDecode is returned when a token payload cannot be decoded.
	ErrDecode = errors.New("malformed token")
)

// Claims is the payload the backend signs into its tokens. The role is a
// claim only: the signature is never checked on this side.
type Claims struct {
	User struct {
		ID   string      `json:"id"`
		Role domain.Role `json:"role"`
	} `json:"user"`
	Role domain.Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// ClaimedRole returns the role the token claims, preferring the nested user claim.
func (c *Claims) ClaimedRole() domain.Role {
	if c == nil {
		return ""
	}
	if c.User.Role != "" {
		return c.User.Role
	}
	return c.Role
}

// DecodeClaims reads the payload segment of token without verifying it.
func DecodeClaims(token string) (*Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, &client.DecodeError{Err: fmt.Errorf("%w: %v", ErrDecode, err)}
	}
	return &claims, nil
}

// Session is an authenticated session as seen by the dashboard.
type Session struct {
	Token string
	User  *domain.User

	claims    *Claims
	decodeErr error
}

// New builds a Session, decoding the token's claims once.
func New(token string, user *domain.User) *Session {
	s := &Session{Token: token, User: user}
	s.claims, s.decodeErr = DecodeClaims(token)
	return s
}

// ClaimedRole returns the unverified role from the token. It is empty when
// the token cannot be decoded. The stored user record is never consulted.
func (s *Session) ClaimedRole() domain.Role {
	if s == nil || s.decodeErr != nil {
		return ""
	}
	return s.claims.ClaimedRole()
}

// IsAdmin reports whether the token claims the admin role. A token that
// cannot be decoded is treated as not admin. This gates what is shown; the
// backend still authorizes every request.
func (s *Session) IsAdmin() bool {
	return s.ClaimedRole() == domain.RoleAdmin
}

// DecodeErr returns the error from decoding the token, if any.
func (s *Session) DecodeErr() error {
	if s == nil {
		return nil
	}
	return s.decodeErr
}

// UserID returns the user id from the token claims, falling back to the
// stored user record.
func (s *Session) UserID() string {
	if s == nil {
		return ""
	}
	if s.claims != nil && s.claims.User.ID != "" {
		return s.claims.User.ID
	}
	if s.User != nil {
		return s.User.ID
	}
	return ""
}

// DisplayName returns the stored user's name or email, if known.
func (s *Session) DisplayName() string {
	if s == nil || s.User == nil {
		return ""
	}
	if s.User.Name != "" {
		return s.User.Name
	}
	return s.User.Email
}

type ctxKey struct{}

// WithSession attaches s to ctx and makes its token the one API calls carry.
func WithSession(ctx context.Context, s *Session) context.Context {
	ctx = context.WithValue(ctx, ctxKey{}, s)
	if s != nil {
		ctx = client.WithToken(ctx, s.Token)
	}
	return ctx
}

// FromContext returns the session attached to ctx, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}

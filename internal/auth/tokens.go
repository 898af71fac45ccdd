package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Joseph-Bethune/Gabble-Live/internal/models"
)

// Token verification failures.
var (
	ErrTokenMissing   = errors.New("token missing")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenInvalid   = errors.New("token invalid")
	ErrTokenExpired   = errors.New("token expired")
)

// TokenKind distinguishes access tokens from refresh tokens.
type TokenKind string

// Token kinds.
const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

// Claims is the signed payload of every token.
type Claims struct {
	jwt.RegisteredClaims
	Roles []models.Role `json:"roles"`
	Kind  TokenKind     `json:"typ"`
}

// UserID returns the subject the token was issued for.
func (c *Claims) UserID() string {
	return c.Subject
}

// ExpiresAtTime returns the expiry, or the zero time when absent.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// TokenManager signs and verifies access and refresh tokens with separate secrets.
type TokenManager struct {
	cfg Config
}

// NewTokenManager returns a TokenManager for cfg.
func NewTokenManager(cfg Config) *TokenManager {
	return &TokenManager{cfg: cfg}
}

// IssueAccess signs a short-lived access token.
func (m *TokenManager) IssueAccess(userID string, roles []models.Role) (string, error) {
	return m.issue(AccessToken, userID, roles)
}

// IssueRefresh signs a long-lived refresh token.
func (m *TokenManager) IssueRefresh(userID string, roles []models.Role) (string, error) {
	return m.issue(RefreshToken, userID, roles)
}

// VerifyAccess parses an access token and checks signature, expiry and kind.
func (m *TokenManager) VerifyAccess(token string) (*Claims, error) {
	return m.verify(AccessToken, token)
}

// VerifyRefresh parses a refresh token and checks signature, expiry and kind.
func (m *TokenManager) VerifyRefresh(token string) (*Claims, error) {
	return m.verify(RefreshToken, token)
}

func (m *TokenManager) secret(kind TokenKind) []byte {
	if kind == RefreshToken {
		return m.cfg.RefreshSecret
	}
	return m.cfg.AccessSecret
}

func (m *TokenManager) ttl(kind TokenKind) time.Duration {
	if kind == RefreshToken {
		return m.cfg.RefreshTTL
	}
	return m.cfg.AccessTTL
}

func (m *TokenManager) issue(kind TokenKind, userID string, roles []models.Role) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("issue %s token: empty subject", kind)
	}
	now := m.cfg.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl(kind))),
			ID:        uuid.NewString(),
		},
		Roles: roles,
		Kind:  kind,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret(kind))
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

func (m *TokenManager) verify(kind TokenKind, token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenMissing
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.cfg.now),
	}
	if m.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.cfg.Issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret(kind), nil
	}, opts...)
	if err != nil {
		return nil, mapJWTError(err)
	}

	if claims.Kind != kind || claims.Subject == "" || claims.ID == "" {
		return nil, ErrTokenInvalid
	}
	return &claims, nil
}

// mapJWTError translates jwt library errors to the package sentinels.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	default:
		return ErrTokenInvalid
	}
}

// ParseBearer extracts the token from an "Authorization: Bearer <token>" value.
func ParseBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrTokenMissing
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrTokenMalformed
	}
	return parts[1], nil
}

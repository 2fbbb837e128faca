package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/carebase/carebase/internal/platform/apperr"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Identity is the authenticated principal attached to a request.
type Identity struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Role     Role      `json:"role"`
	TenantID string    `json:"tenant_id"`
	Active   bool      `json:"active"`
}

// Claims is the JWT claim set issued and verified by the token service.
type Claims struct {
	jwt.RegisteredClaims
	Role      string `json:"role"`
	TenantID  string `json:"tenant_id"`
	TokenType string `json:"token_type"`
}

// TokenService issues and verifies HMAC-signed bearer tokens.
type TokenService struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService builds a token service for the given signing secret and
// algorithm (HS256, HS384, or HS512).
func NewTokenService(secret []byte, algorithm string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	var method jwt.SigningMethod
	switch algorithm {
	case "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("signing secret is empty")
	}

	return &TokenService{
		secret:     secret,
		method:     method,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// AccessTTL returns the configured access token lifetime.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// IssueAccessToken signs a short-lived access token for the identity. A
// non-positive ttl selects the configured default.
func (s *TokenService) IssueAccessToken(identity *Identity, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.accessTTL
	}
	return s.sign(identity, TokenTypeAccess, ttl)
}

// IssueRefreshToken signs a refresh token with the configured refresh
// lifetime (7 days by default).
func (s *TokenService) IssueRefreshToken(identity *Identity) (string, error) {
	return s.sign(identity, TokenTypeRefresh, s.refreshTTL)
}

func (s *TokenService) sign(identity *Identity, tokenType string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role:      string(identity.Role),
		TenantID:  identity.TenantID,
		TokenType: tokenType,
	}

	token := jwt.NewWithClaims(s.method, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify decodes a token, checking the signature and expiry. A missing exp
// claim is rejected. Verify answers only "is this credential genuine and
// current"; permission and active-account checks belong to the caller.
func (s *TokenService) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, apperr.Wrap(apperr.KindUnauthorized, "invalid or expired token", err)
	}
	return claims, nil
}

// DecodeUnverified extracts claims WITHOUT validating the signature or
// expiry. It exists for diagnostic inspection of tokens only and must never
// be used for access decisions; use Verify for those.
func (s *TokenService) DecodeUnverified(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenStr, claims); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "malformed token", err)
	}
	return claims, nil
}

package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carebase/carebase/internal/platform/apperr"
)

type contextKey string

const (
	identityKey  contextKey = "auth_identity"
	elevationKey contextKey = "auth_elevation"
)

// IdentityResolver loads the current account state for a token subject. The
// token proves the credential was genuine when issued; the resolver proves
// the account still exists and reflects its current role and active flag.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, id uuid.UUID) (*Identity, error)
}

// Authenticate returns middleware that requires a valid bearer access token
// and resolves the caller's current account state. Refresh tokens are
// rejected here; they are accepted only by the token refresh endpoint.
func Authenticate(tokens *TokenService, resolver IdentityResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, err := authenticate(c, tokens, resolver)
			if err != nil {
				return err
			}

			ctx := context.WithValue(c.Request().Context(), identityKey, identity)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("auth_tenant_id", identity.TenantID)
			return next(c)
		}
	}
}

// OptionalAuthenticate resolves an identity when a valid token is presented
// and proceeds anonymously otherwise. Handlers behind it must treat a nil
// identity as unauthenticated.
func OptionalAuthenticate(tokens *TokenService, resolver IdentityResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, err := authenticate(c, tokens, resolver)
			if err != nil {
				return next(c)
			}

			ctx := context.WithValue(c.Request().Context(), identityKey, identity)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("auth_tenant_id", identity.TenantID)
			return next(c)
		}
	}
}

func authenticate(c echo.Context, tokens *TokenService, resolver IdentityResolver) (*Identity, error) {
	tokenStr, err := bearerToken(c)
	if err != nil {
		return nil, err
	}

	claims, err := tokens.Verify(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, apperr.New(apperr.KindUnauthorized, "access token required")
	}

	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperr.New(apperr.KindUnauthorized, "invalid token subject")
	}

	identity, err := resolver.ResolveIdentity(c.Request().Context(), subject)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.New(apperr.KindUnauthorized, "unknown account")
		}
		return nil, err
	}
	if !identity.Active {
		return nil, apperr.New(apperr.KindForbidden, "account is deactivated")
	}

	return identity, nil
}

func bearerToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", apperr.New(apperr.KindUnauthorized, "missing authorization header")
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", apperr.New(apperr.KindUnauthorized, "authorization header must be a bearer token")
	}
	return token, nil
}

// IdentityFromContext returns the authenticated identity, or nil when the
// request carries none.
func IdentityFromContext(ctx context.Context) *Identity {
	identity, _ := ctx.Value(identityKey).(*Identity)
	return identity
}

// ContextWithIdentity attaches an identity, primarily for tests and for the
// login flow where the identity is established outside the middleware.
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// ContextWithElevation attaches permissions conferred by an active support
// access grant. Elevated permissions supplement the role's static set for
// this request only; they are never persisted on the identity.
func ContextWithElevation(ctx context.Context, perms []Permission) context.Context {
	return context.WithValue(ctx, elevationKey, perms)
}

// ElevationFromContext returns the request's elevated permissions, or nil
// when no grant applies.
func ElevationFromContext(ctx context.Context) []Permission {
	perms, _ := ctx.Value(elevationKey).([]Permission)
	return perms
}

// RoleFromContext returns the authenticated role, or the empty role when
// the request is anonymous.
func RoleFromContext(ctx context.Context) Role {
	if identity := IdentityFromContext(ctx); identity != nil {
		return identity.Role
	}
	return ""
}

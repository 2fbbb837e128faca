package grant

import (
	"github.com/labstack/echo/v4"

	"github.com/carebase/carebase/internal/platform/auth"
	"github.com/carebase/carebase/internal/platform/db"
)

// levelPermissions maps an access level to the permissions it confers
// inside the granted tenant. Grants elevate visibility only; no level ever
// confers a write or management permission.
var levelPermissions = map[AccessLevel][]auth.Permission{
	AccessMetadata: {
		auth.PermViewPatient,
		auth.PermViewAppointments,
		auth.PermViewTasks,
		auth.PermViewReports,
	},
	AccessFull: {
		auth.PermViewPatient,
		auth.PermViewClinicalData,
		auth.PermViewAppointments,
		auth.PermViewDocuments,
		auth.PermViewTasks,
		auth.PermViewReports,
	},
}

// AccessMiddleware consults the caller's support access grant for the
// request's tenant and, when one is active, elevates the conferred
// permissions onto the context for RequirePermission to honor. Each
// positive check is audited by CheckAccess, so every request that rides a
// grant leaves a trace.
func AccessMiddleware(svc *Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			identity := auth.IdentityFromContext(ctx)
			if identity == nil || identity.Role != auth.RoleSupportAgent {
				return next(c)
			}
			tenantID := db.TenantFromContext(ctx)
			if tenantID == "" {
				return next(c)
			}

			g, active, err := svc.CheckAccess(ctx, identity, tenantID)
			if err != nil {
				// A failed lookup must deny elevation, never the request.
				svc.logger.Warn().Err(err).Str("tenant_id", tenantID).
					Msg("support access check failed")
				return next(c)
			}
			if !active {
				return next(c)
			}

			ctx = auth.ContextWithElevation(ctx, levelPermissions[g.AccessLevel])
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

package auth

import (
	"sort"

	"github.com/labstack/echo/v4"

	"github.com/carebase/carebase/internal/platform/apperr"
)

// Role is one of the fixed identity categories. The set is closed: policy
// changes happen by redeploying, never by mutating the table at runtime.
type Role string

const (
	RoleSuperAdmin   Role = "superadmin"
	RoleTenantAdmin  Role = "tenant_admin"
	RolePhysician    Role = "physician"
	RoleNurse        Role = "nurse"
	RoleFrontDesk    Role = "front_desk"
	RoleBillingClerk Role = "billing_clerk"
	RoleSupportAgent Role = "support_agent"
)

// Permission is an atomic named capability checked before an operation
// proceeds. Permissions are never combined or partially granted.
type Permission string

const (
	PermViewPatient          Permission = "view-patient"
	PermEditPatient          Permission = "edit-patient"
	PermViewClinicalData     Permission = "view-clinical-data"
	PermEditClinicalData     Permission = "edit-clinical-data"
	PermViewAppointments     Permission = "view-appointments"
	PermManageAppointments   Permission = "manage-appointments"
	PermViewDocuments        Permission = "view-documents"
	PermManageDocuments      Permission = "manage-documents"
	PermViewTasks            Permission = "view-tasks"
	PermManageTasks          Permission = "manage-tasks"
	PermManageUsers          Permission = "manage-users"
	PermManageTenant         Permission = "manage-tenant"
	PermManageGrants         Permission = "manage-grants"
	PermRequestSupportAccess Permission = "request-support-access"
	PermViewAuditLog         Permission = "view-audit-log"
	PermViewReports          Permission = "view-reports"
)

// rolePermissions is the deploy-time policy table. The superadmin entry is
// computed in init as the union of every other role's set plus the
// platform-level permissions, so the full list is declared exactly once.
var rolePermissions = map[Role]map[Permission]bool{
	RoleTenantAdmin: permSet(
		PermViewPatient, PermEditPatient,
		PermViewClinicalData, PermEditClinicalData,
		PermViewAppointments, PermManageAppointments,
		PermViewDocuments, PermManageDocuments,
		PermViewTasks, PermManageTasks,
		PermManageUsers, PermManageTenant, PermManageGrants,
		PermViewAuditLog, PermViewReports,
	),
	RolePhysician: permSet(
		PermViewPatient, PermEditPatient,
		PermViewClinicalData, PermEditClinicalData,
		PermViewAppointments, PermManageAppointments,
		PermViewDocuments, PermManageDocuments,
		PermViewTasks, PermManageTasks,
		PermViewReports,
	),
	RoleNurse: permSet(
		PermViewPatient,
		PermViewClinicalData, PermEditClinicalData,
		PermViewAppointments,
		PermViewDocuments,
		PermViewTasks, PermManageTasks,
	),
	RoleFrontDesk: permSet(
		PermViewPatient, PermEditPatient,
		PermViewAppointments, PermManageAppointments,
		PermViewTasks,
	),
	RoleBillingClerk: permSet(
		PermViewPatient,
		PermViewAppointments,
		PermViewReports,
	),
	RoleSupportAgent: permSet(
		PermRequestSupportAccess,
	),
}

func permSet(perms ...Permission) map[Permission]bool {
	set := make(map[Permission]bool, len(perms))
	for _, p := range perms {
		set[p] = true
	}
	return set
}

func init() {
	union := make(map[Permission]bool)
	for _, set := range rolePermissions {
		for p := range set {
			union[p] = true
		}
	}
	rolePermissions[RoleSuperAdmin] = union
}

// ValidRole reports whether role belongs to the closed role set.
func ValidRole(role Role) bool {
	_, ok := rolePermissions[role]
	return ok
}

// Roles returns the closed role set in stable order.
func Roles() []Role {
	roles := make([]Role, 0, len(rolePermissions))
	for r := range rolePermissions {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// PermissionsFor returns the permission set for a role. Unmapped roles get
// the empty set rather than an error. The returned slice is a sorted copy;
// the underlying table is never exposed for mutation.
func PermissionsFor(role Role) []Permission {
	set := rolePermissions[role]
	perms := make([]Permission, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}

// HasPermission reports whether the role holds the permission.
func HasPermission(role Role, perm Permission) bool {
	return rolePermissions[role][perm]
}

// RequirePermission returns middleware that rejects requests whose
// authenticated identity lacks the permission. The static role table is
// consulted first; permissions elevated onto the context by an active
// support access grant are honored as a fallback.
func RequirePermission(perm Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			identity := IdentityFromContext(ctx)
			if identity == nil {
				return apperr.New(apperr.KindUnauthorized, "authentication required")
			}
			if HasPermission(identity.Role, perm) {
				return next(c)
			}
			for _, elevated := range ElevationFromContext(ctx) {
				if elevated == perm {
					return next(c)
				}
			}
			return apperr.Newf(apperr.KindForbidden, "required permission: %s", perm)
		}
	}
}

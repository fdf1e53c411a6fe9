package rbac

import (
	"sort"

	"github.com/quotedesk/quotedesk/internal/shared"
)

// Role is the coarse grained access level stored on each user.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleSales   Role = "sales"
)

// Roles lists the assignable roles in display order.
func Roles() []Role {
	return []Role{RoleAdmin, RoleManager, RoleSales}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

var salesPermissions = []string{
	shared.PermDashboardView,
	shared.PermAccountsView, shared.PermAccountsCreate, shared.PermAccountsEdit,
	shared.PermCustomersView, shared.PermCustomersCreate, shared.PermCustomersEdit,
	shared.PermCategoriesView,
	shared.PermProductsView, shared.PermProductsCreate, shared.PermProductsEdit,
	shared.PermQuotationsView, shared.PermQuotationsCreate, shared.PermQuotationsEdit,
	shared.PermQuotationsSubmit,
	shared.PermReportsView,
}

var managerPermissions = append(append([]string{}, salesPermissions...),
	shared.PermAccountsDelete,
	shared.PermCustomersDelete,
	shared.PermCategoriesManage,
	shared.PermProductsDelete,
	shared.PermQuotationsViewAll,
	shared.PermQuotationsDelete,
	shared.PermQuotationsApprove,
	shared.PermReportsViewAll,
	shared.PermReportsExport,
)

var rolePermissions = map[Role][]string{
	RoleAdmin:   shared.AllPermissions(),
	RoleManager: managerPermissions,
	RoleSales:   salesPermissions,
}

// PermissionsFor returns the sorted permissions granted to role.
func PermissionsFor(role Role) []string {
	perms := append([]string{}, rolePermissions[role]...)
	sort.Strings(perms)
	return perms
}

// Grants reports whether role holds perm.
func Grants(role Role, perm string) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// MatrixRow is one permission with the roles that hold it.
type MatrixRow struct {
	Permission string
	Granted    map[Role]bool
}

// Matrix returns the permission grid rendered on the roles page.
func Matrix() []MatrixRow {
	perms := shared.AllPermissions()
	rows := make([]MatrixRow, 0, len(perms))
	for _, perm := range perms {
		row := MatrixRow{Permission: perm, Granted: map[Role]bool{}}
		for _, role := range Roles() {
			row.Granted[role] = Grants(role, perm)
		}
		rows = append(rows, row)
	}
	return rows
}

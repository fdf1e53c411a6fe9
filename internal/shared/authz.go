package shared

// Permission names checked by the RBAC middleware and templates.
const (
	PermDashboardView = "dashboard.view"

	PermUsersView   = "users.view"
	PermUsersManage = "users.manage"

	PermAccountsView   = "accounts.view"
	PermAccountsCreate = "accounts.create"
	PermAccountsEdit   = "accounts.edit"
	PermAccountsDelete = "accounts.delete"

	PermCustomersView   = "customers.view"
	PermCustomersCreate = "customers.create"
	PermCustomersEdit   = "customers.edit"
	PermCustomersDelete = "customers.delete"

	PermCategoriesView   = "categories.view"
	PermCategoriesManage = "categories.manage"

	PermProductsView   = "products.view"
	PermProductsCreate = "products.create"
	PermProductsEdit   = "products.edit"
	PermProductsDelete = "products.delete"

	PermQuotationsView    = "quotations.view"
	PermQuotationsViewAll = "quotations.view_all"
	PermQuotationsCreate  = "quotations.create"
	PermQuotationsEdit    = "quotations.edit"
	PermQuotationsDelete  = "quotations.delete"
	PermQuotationsSubmit  = "quotations.submit"
	PermQuotationsApprove = "quotations.approve"

	PermReportsView    = "reports.view"
	PermReportsViewAll = "reports.view_all"
	PermReportsExport  = "reports.export"
)

// AllPermissions lists every permission known to the application.
func AllPermissions() []string {
	return []string{
		PermDashboardView,
		PermUsersView, PermUsersManage,
		PermAccountsView, PermAccountsCreate, PermAccountsEdit, PermAccountsDelete,
		PermCustomersView, PermCustomersCreate, PermCustomersEdit, PermCustomersDelete,
		PermCategoriesView, PermCategoriesManage,
		PermProductsView, PermProductsCreate, PermProductsEdit, PermProductsDelete,
		PermQuotationsView, PermQuotationsViewAll, PermQuotationsCreate, PermQuotationsEdit,
		PermQuotationsDelete, PermQuotationsSubmit, PermQuotationsApprove,
		PermReportsView, PermReportsViewAll, PermReportsExport,
	}
}

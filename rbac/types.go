package rbac

// Resource identifies one of the application areas gated by the matrix.
type Resource string

const (
	// ResourceDashboard is the landing dashboard.
	ResourceDashboard Resource = "dashboard"
	// ResourceOrders covers customer orders and their lifecycle.
	ResourceOrders Resource = "orders"
	// ResourceMenu covers menu items and pricing.
	ResourceMenu Resource = "menu"
	// ResourceShipments covers delivery legs and the traceability chain.
	ResourceShipments Resource = "shipments"
	// ResourceSuppliers covers supplier records.
	ResourceSuppliers Resource = "suppliers"
	// ResourceUsers covers account administration.
	ResourceUsers Resource = "users"
	// ResourceReports covers reporting views and exports.
	ResourceReports Resource = "reports"
	// ResourceSettings covers per-user and system settings.
	ResourceSettings Resource = "settings"
)

// Action is a verb applicable to a [Resource].
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Role is one of the three static application roles.
type Role string

const (
	// RoleAdmin holds the root permission and passes every check.
	RoleAdmin Role = "admin"
	// RoleOperator is restaurant/dispatch staff.
	RoleOperator Role = "operator"
	// RoleCustomer is an ordering end user.
	RoleCustomer Role = "customer"
)

// Permission pairs a resource with an action.
type Permission struct {
	Resource Resource
	Action   Action
}

// Name returns the canonical "resource.action" permission name.
func (p Permission) Name() string {
	return string(p.Resource) + "." + string(p.Action)
}

// Perm is shorthand for constructing a [Permission].
func Perm(resource Resource, action Action) Permission {
	return Permission{Resource: resource, Action: action}
}

// Resources lists every gated resource in registration order.
func Resources() []Resource {
	return []Resource{
		ResourceDashboard,
		ResourceOrders,
		ResourceMenu,
		ResourceShipments,
		ResourceSuppliers,
		ResourceUsers,
		ResourceReports,
		ResourceSettings,
	}
}

// Actions lists every action in registration order.
func Actions() []Action {
	return []Action{ActionView, ActionCreate, ActionEdit, ActionDelete}
}

// Roles lists the static application roles.
func Roles() []Role {
	return []Role{RoleAdmin, RoleOperator, RoleCustomer}
}

// ValidRole reports whether role is one of the static roles.
func ValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleOperator, RoleCustomer:
		return true
	default:
		return false
	}
}

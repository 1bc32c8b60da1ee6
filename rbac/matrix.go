package rbac

import (
	"errors"
	"sort"
	"sync"
)

// Matrix holds the role to permission-mask mapping. Grants happen during
// startup, then the matrix is frozen and becomes read-mostly.
type Matrix struct {
	mu       sync.RWMutex
	registry *Registry
	roles    map[Role]Mask64
	frozen   bool
}

// NewMatrix creates an empty matrix backed by the registry.
func NewMatrix(registry *Registry) *Matrix {
	return &Matrix{
		registry: registry,
		roles:    make(map[Role]Mask64),
	}
}

// Registry returns the registry the matrix resolves permission names through.
func (m *Matrix) Registry() *Registry {
	return m.registry
}

// Grant adds permissions to a role. The permissions must already be
// registered.
func (m *Matrix) Grant(role Role, perms ...Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.frozen {
		return errors.New("matrix frozen")
	}
	if !ValidRole(role) {
		return errors.New("unknown role: " + string(role))
	}

	mask := m.roles[role]
	for _, p := range perms {
		bit, ok := m.registry.Bit(p)
		if !ok {
			return errors.New("permission not registered: " + p.Name())
		}
		mask.Set(bit)
	}
	m.roles[role] = mask

	return nil
}

// GrantRoot marks the role as root. Root roles pass every permission check
// without consulting individual bits.
func (m *Matrix) GrantRoot(role Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.frozen {
		return errors.New("matrix frozen")
	}
	if !ValidRole(role) {
		return errors.New("unknown role: " + string(role))
	}

	mask := m.roles[role]
	mask.Set(rootBit)
	m.roles[role] = mask

	return nil
}

// Freeze prevents further grants. The underlying registry is frozen too.
func (m *Matrix) Freeze() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frozen = true
	m.registry.Freeze()
}

// MaskFor returns the permission mask for the role. Unknown roles get the
// zero mask, which denies everything.
func (m *Matrix) MaskFor(role Role) Mask64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.roles[role]
}

// HasPermission reports whether the role may perform the action on the
// resource. Unknown roles, resources, and actions all deny.
func (m *Matrix) HasPermission(role Role, resource Resource, action Action) bool {
	mask := m.MaskFor(role)
	if mask.IsRoot() {
		return true
	}
	bit, ok := m.registry.Bit(Permission{Resource: resource, Action: action})
	if !ok {
		return false
	}
	return mask.Has(bit)
}

// HasAnyPermission reports whether the role holds at least one of the
// permissions. An empty list denies.
func (m *Matrix) HasAnyPermission(role Role, perms ...Permission) bool {
	if len(perms) == 0 {
		return false
	}
	mask := m.MaskFor(role)
	if mask.IsRoot() {
		return true
	}
	for _, p := range perms {
		if bit, ok := m.registry.Bit(p); ok && mask.Has(bit) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether the role holds every listed permission.
// An empty list allows.
func (m *Matrix) HasAllPermissions(role Role, perms ...Permission) bool {
	mask := m.MaskFor(role)
	if mask.IsRoot() {
		return true
	}
	for _, p := range perms {
		bit, ok := m.registry.Bit(p)
		if !ok || !mask.Has(bit) {
			return false
		}
	}
	return true
}

// MaskAllows reports whether the mask permits the action on the resource.
// Used on the request path where the mask travels inside the access token
// and no role lookup is wanted.
func (m *Matrix) MaskAllows(mask Mask64, resource Resource, action Action) bool {
	if mask.IsRoot() {
		return true
	}
	bit, ok := m.registry.Bit(Permission{Resource: resource, Action: action})
	if !ok {
		return false
	}
	return mask.Has(bit)
}

// Permissions returns the sorted permission names held by the role. Root
// roles report every registered permission.
func (m *Matrix) Permissions(role Role) []string {
	mask := m.MaskFor(role)
	return m.PermissionsForMask(mask)
}

// PermissionsForMask expands a mask into sorted permission names.
func (m *Matrix) PermissionsForMask(mask Mask64) []string {
	names := make([]string, 0, m.registry.Count())
	for bit := 0; bit < rootBit; bit++ {
		name, ok := m.registry.Name(bit)
		if !ok {
			continue
		}
		if mask.IsRoot() || mask.Has(bit) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// DefaultMatrix builds the frozen matrix the application ships with.
//
// Admins are root. Operators run the day-to-day flow: orders, menu upkeep,
// shipments, and read access to suppliers and reports. Customers see the
// dashboard, place and track their own orders, browse the menu, and manage
// their settings.
func DefaultMatrix() *Matrix {
	registry := NewRegistry()
	for _, res := range Resources() {
		for _, act := range Actions() {
			if _, err := registry.Register(Perm(res, act)); err != nil {
				panic("rbac: default registry: " + err.Error())
			}
		}
	}

	m := NewMatrix(registry)

	must := func(err error) {
		if err != nil {
			panic("rbac: default matrix: " + err.Error())
		}
	}

	must(m.GrantRoot(RoleAdmin))

	must(m.Grant(RoleOperator,
		Perm(ResourceDashboard, ActionView),
		Perm(ResourceOrders, ActionView),
		Perm(ResourceOrders, ActionCreate),
		Perm(ResourceOrders, ActionEdit),
		Perm(ResourceMenu, ActionView),
		Perm(ResourceMenu, ActionEdit),
		Perm(ResourceShipments, ActionView),
		Perm(ResourceShipments, ActionCreate),
		Perm(ResourceShipments, ActionEdit),
		Perm(ResourceSuppliers, ActionView),
		Perm(ResourceReports, ActionView),
	))

	must(m.Grant(RoleCustomer,
		Perm(ResourceDashboard, ActionView),
		Perm(ResourceOrders, ActionView),
		Perm(ResourceOrders, ActionCreate),
		Perm(ResourceMenu, ActionView),
		Perm(ResourceShipments, ActionView),
		Perm(ResourceSettings, ActionView),
		Perm(ResourceSettings, ActionEdit),
	))

	m.Freeze()
	return m
}

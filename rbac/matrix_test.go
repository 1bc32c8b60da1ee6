package rbac

import (
	"testing"
)

func TestRegistryAssignsSequentialBits(t *testing.T) {
	r := NewRegistry()

	first, err := r.Register(Perm(ResourceOrders, ActionView))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	second, err := r.Register(Perm(ResourceOrders, ActionCreate))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if first != 0 || second != 1 {
		t.Fatalf("expected bits 0,1 got %d,%d", first, second)
	}

	if _, err := r.Register(Perm(ResourceOrders, ActionView)); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestRegistryRejectsAfterFreeze(t *testing.T) {
	r := NewRegistry()
	r.Freeze()
	if _, err := r.Register(Perm(ResourceMenu, ActionView)); err == nil {
		t.Fatal("expected registration after freeze to fail")
	}
}

func TestMatrixGrantAndCheck(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Register(Perm(ResourceOrders, ActionView)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := r.Register(Perm(ResourceOrders, ActionDelete)); err != nil {
		t.Fatalf("register: %v", err)
	}

	m := NewMatrix(r)
	if err := m.Grant(RoleOperator, Perm(ResourceOrders, ActionView)); err != nil {
		t.Fatalf("grant: %v", err)
	}
	m.Freeze()

	if !m.HasPermission(RoleOperator, ResourceOrders, ActionView) {
		t.Fatal("expected granted permission to pass")
	}
	if m.HasPermission(RoleOperator, ResourceOrders, ActionDelete) {
		t.Fatal("expected ungranted permission to deny")
	}
	if m.HasPermission(RoleCustomer, ResourceOrders, ActionView) {
		t.Fatal("expected unmentioned role to deny")
	}
	if m.HasPermission(Role("ghost"), ResourceOrders, ActionView) {
		t.Fatal("expected unknown role to deny")
	}
	if m.HasPermission(RoleOperator, Resource("ghost"), ActionView) {
		t.Fatal("expected unknown resource to deny")
	}
}

func TestMatrixGrantUnregisteredPermission(t *testing.T) {
	m := NewMatrix(NewRegistry())
	if err := m.Grant(RoleOperator, Perm(ResourceOrders, ActionView)); err == nil {
		t.Fatal("expected grant of unregistered permission to fail")
	}
}

func TestMatrixFrozenRejectsGrants(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Register(Perm(ResourceOrders, ActionView)); err != nil {
		t.Fatalf("register: %v", err)
	}
	m := NewMatrix(r)
	m.Freeze()
	if err := m.Grant(RoleOperator, Perm(ResourceOrders, ActionView)); err == nil {
		t.Fatal("expected grant after freeze to fail")
	}
	if err := m.GrantRoot(RoleAdmin); err == nil {
		t.Fatal("expected root grant after freeze to fail")
	}
}

func TestDefaultMatrixAdminIsRoot(t *testing.T) {
	m := DefaultMatrix()

	for _, res := range Resources() {
		for _, act := range Actions() {
			if !m.HasPermission(RoleAdmin, res, act) {
				t.Fatalf("admin denied %s.%s", res, act)
			}
		}
	}
	if !m.MaskFor(RoleAdmin).IsRoot() {
		t.Fatal("expected admin mask to be root")
	}
}

func TestDefaultMatrixOperator(t *testing.T) {
	m := DefaultMatrix()

	allowed := []Permission{
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
	}
	for _, p := range allowed {
		if !m.HasPermission(RoleOperator, p.Resource, p.Action) {
			t.Errorf("operator denied %s", p.Name())
		}
	}

	denied := []Permission{
		Perm(ResourceOrders, ActionDelete),
		Perm(ResourceUsers, ActionView),
		Perm(ResourceUsers, ActionEdit),
		Perm(ResourceSettings, ActionEdit),
		Perm(ResourceSuppliers, ActionCreate),
		Perm(ResourceReports, ActionCreate),
	}
	for _, p := range denied {
		if m.HasPermission(RoleOperator, p.Resource, p.Action) {
			t.Errorf("operator allowed %s", p.Name())
		}
	}
}

func TestDefaultMatrixCustomer(t *testing.T) {
	m := DefaultMatrix()

	allowed := []Permission{
		Perm(ResourceDashboard, ActionView),
		Perm(ResourceOrders, ActionView),
		Perm(ResourceOrders, ActionCreate),
		Perm(ResourceMenu, ActionView),
		Perm(ResourceShipments, ActionView),
		Perm(ResourceSettings, ActionView),
		Perm(ResourceSettings, ActionEdit),
	}
	for _, p := range allowed {
		if !m.HasPermission(RoleCustomer, p.Resource, p.Action) {
			t.Errorf("customer denied %s", p.Name())
		}
	}

	denied := []Permission{
		Perm(ResourceOrders, ActionEdit),
		Perm(ResourceOrders, ActionDelete),
		Perm(ResourceMenu, ActionEdit),
		Perm(ResourceShipments, ActionCreate),
		Perm(ResourceSuppliers, ActionView),
		Perm(ResourceUsers, ActionView),
		Perm(ResourceReports, ActionView),
	}
	for _, p := range denied {
		if m.HasPermission(RoleCustomer, p.Resource, p.Action) {
			t.Errorf("customer allowed %s", p.Name())
		}
	}
}

func TestHasAnyPermission(t *testing.T) {
	m := DefaultMatrix()

	if m.HasAnyPermission(RoleCustomer) {
		t.Fatal("expected empty permission list to deny")
	}
	if !m.HasAnyPermission(RoleCustomer,
		Perm(ResourceUsers, ActionView),
		Perm(ResourceOrders, ActionCreate),
	) {
		t.Fatal("expected one held permission to pass")
	}
	if m.HasAnyPermission(RoleCustomer,
		Perm(ResourceUsers, ActionView),
		Perm(ResourceReports, ActionView),
	) {
		t.Fatal("expected no held permissions to deny")
	}
	if !m.HasAnyPermission(RoleAdmin, Perm(ResourceUsers, ActionDelete)) {
		t.Fatal("expected root role to pass any check")
	}
}

func TestHasAllPermissions(t *testing.T) {
	m := DefaultMatrix()

	if !m.HasAllPermissions(RoleCustomer) {
		t.Fatal("expected empty permission list to allow")
	}
	if !m.HasAllPermissions(RoleOperator,
		Perm(ResourceOrders, ActionView),
		Perm(ResourceMenu, ActionEdit),
	) {
		t.Fatal("expected fully held set to pass")
	}
	if m.HasAllPermissions(RoleOperator,
		Perm(ResourceOrders, ActionView),
		Perm(ResourceUsers, ActionView),
	) {
		t.Fatal("expected partially held set to deny")
	}
	if !m.HasAllPermissions(RoleAdmin,
		Perm(ResourceUsers, ActionDelete),
		Perm(ResourceSettings, ActionDelete),
	) {
		t.Fatal("expected root role to pass all checks")
	}
}

func TestMaskAllows(t *testing.T) {
	m := DefaultMatrix()

	opMask := m.MaskFor(RoleOperator)
	if !m.MaskAllows(opMask, ResourceOrders, ActionEdit) {
		t.Fatal("expected operator mask to allow orders.edit")
	}
	if m.MaskAllows(opMask, ResourceUsers, ActionView) {
		t.Fatal("expected operator mask to deny users.view")
	}
	if !m.MaskAllows(m.MaskFor(RoleAdmin), ResourceUsers, ActionDelete) {
		t.Fatal("expected root mask to allow everything")
	}
	if m.MaskAllows(0, ResourceDashboard, ActionView) {
		t.Fatal("expected zero mask to deny everything")
	}
}

func TestPermissionsListing(t *testing.T) {
	m := DefaultMatrix()

	admin := m.Permissions(RoleAdmin)
	if len(admin) != m.Registry().Count() {
		t.Fatalf("expected admin to list all %d permissions, got %d", m.Registry().Count(), len(admin))
	}

	customer := m.Permissions(RoleCustomer)
	if len(customer) != 7 {
		t.Fatalf("expected 7 customer permissions, got %d: %v", len(customer), customer)
	}
	for i := 1; i < len(customer); i++ {
		if customer[i-1] >= customer[i] {
			t.Fatalf("expected sorted permission names, got %v", customer)
		}
	}

	if got := m.Permissions(Role("ghost")); len(got) != 0 {
		t.Fatalf("expected unknown role to list nothing, got %v", got)
	}
}

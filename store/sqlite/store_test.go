package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	trackd "github.com/foodontracks/trackd"
	"github.com/foodontracks/trackd/rbac"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "trackd.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createTestUser(t *testing.T, store *Store, identifier string, role rbac.Role) trackd.UserRecord {
	t.Helper()

	user, err := store.CreateUser(context.Background(), trackd.CreateUserInput{
		Identifier:        identifier,
		PasswordHash:      "$argon2id$stub",
		Role:              role,
		Status:            trackd.AccountActive,
		PermissionVersion: 1,
		AccountVersion:    1,
	})
	if err != nil {
		t.Fatalf("CreateUser %s failed: %v", identifier, err)
	}
	return user
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, err := Open("   "); err == nil {
		t.Fatal("expected error for blank path")
	}
}

func TestOpenReappliesMigrationsIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trackd.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	createTestUser(t, store, "alice", rbac.RoleCustomer)
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer reopened.Close()

	if _, err := reopened.GetUserByIdentifier("alice"); err != nil {
		t.Fatalf("expected user to survive reopen: %v", err)
	}
}

func TestCreateUserAndLookup(t *testing.T) {
	store := newTestStore(t)

	created := createTestUser(t, store, "alice", rbac.RoleCustomer)
	if created.UserID == "" {
		t.Fatal("expected generated user id")
	}
	if created.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be stamped")
	}

	byIdentifier, err := store.GetUserByIdentifier("alice")
	if err != nil {
		t.Fatalf("GetUserByIdentifier failed: %v", err)
	}
	if byIdentifier.UserID != created.UserID {
		t.Fatalf("identifier lookup returned %s, want %s", byIdentifier.UserID, created.UserID)
	}
	if byIdentifier.Role != rbac.RoleCustomer {
		t.Fatalf("unexpected role %s", byIdentifier.Role)
	}

	byID, err := store.GetUserByID(created.UserID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if byID.Identifier != "alice" {
		t.Fatalf("unexpected identifier %s", byID.Identifier)
	}

	if _, err := store.GetUserByIdentifier("nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateUserDuplicateIdentifier(t *testing.T) {
	store := newTestStore(t)
	createTestUser(t, store, "alice", rbac.RoleCustomer)

	_, err := store.CreateUser(context.Background(), trackd.CreateUserInput{
		Identifier:        "alice",
		PasswordHash:      "$argon2id$stub",
		Role:              rbac.RoleCustomer,
		Status:            trackd.AccountActive,
		PermissionVersion: 1,
		AccountVersion:    1,
	})
	if !errors.Is(err, trackd.ErrProviderDuplicateIdentifier) {
		t.Fatalf("expected ErrProviderDuplicateIdentifier, got %v", err)
	}
}

func TestUpdatePasswordHash(t *testing.T) {
	store := newTestStore(t)
	user := createTestUser(t, store, "alice", rbac.RoleCustomer)

	if err := store.UpdatePasswordHash(user.UserID, "$argon2id$next"); err != nil {
		t.Fatalf("UpdatePasswordHash failed: %v", err)
	}
	updated, err := store.GetUserByID(user.UserID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if updated.PasswordHash != "$argon2id$next" {
		t.Fatalf("hash not updated, got %s", updated.PasswordHash)
	}

	if err := store.UpdatePasswordHash("missing", "$argon2id$x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateAccountStatusAdvancesAccountVersion(t *testing.T) {
	store := newTestStore(t)
	user := createTestUser(t, store, "alice", rbac.RoleCustomer)

	updated, err := store.UpdateAccountStatus(context.Background(), user.UserID, trackd.AccountDisabledStatus)
	if err != nil {
		t.Fatalf("UpdateAccountStatus failed: %v", err)
	}
	if updated.Status != trackd.AccountDisabledStatus {
		t.Fatalf("expected disabled status, got %d", updated.Status)
	}
	if updated.AccountVersion != user.AccountVersion+1 {
		t.Fatalf("expected account version %d, got %d", user.AccountVersion+1, updated.AccountVersion)
	}

	if _, err := store.UpdateAccountStatus(context.Background(), "missing", trackd.AccountDisabledStatus); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateRoleAdvancesPermissionVersion(t *testing.T) {
	store := newTestStore(t)
	user := createTestUser(t, store, "alice", rbac.RoleCustomer)

	updated, err := store.UpdateRole(context.Background(), user.UserID, rbac.RoleOperator)
	if err != nil {
		t.Fatalf("UpdateRole failed: %v", err)
	}
	if updated.Role != rbac.RoleOperator {
		t.Fatalf("expected operator role, got %s", updated.Role)
	}
	if updated.PermissionVersion != user.PermissionVersion+1 {
		t.Fatalf("expected permission version %d, got %d", user.PermissionVersion+1, updated.PermissionVersion)
	}
}

func TestOrderLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	customer := createTestUser(t, store, "carol", rbac.RoleCustomer)

	order, err := store.CreateOrder(ctx, customer.UserID, "Chez Gopher", "")
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if order.Status != OrderPlaced {
		t.Fatalf("expected placed, got %s", order.Status)
	}

	chain, err := store.TraceChain(ctx, order.OrderID)
	if err != nil {
		t.Fatalf("TraceChain failed: %v", err)
	}
	if len(chain) != 1 || chain[0].Stage != string(OrderPlaced) {
		t.Fatalf("expected single placed trace event, got %+v", chain)
	}
	if chain[0].Actor != customer.UserID {
		t.Fatalf("expected customer as default actor, got %s", chain[0].Actor)
	}

	for _, next := range []OrderStatus{OrderPreparing, OrderInTransit, OrderDelivered} {
		order, err = store.AdvanceOrderStatus(ctx, order.OrderID, next, "dispatcher-1", "hub-7")
		if err != nil {
			t.Fatalf("AdvanceOrderStatus to %s failed: %v", next, err)
		}
		if order.Status != next {
			t.Fatalf("expected %s, got %s", next, order.Status)
		}
	}

	chain, err = store.TraceChain(ctx, order.OrderID)
	if err != nil {
		t.Fatalf("TraceChain failed: %v", err)
	}
	if len(chain) != 4 {
		t.Fatalf("expected 4 trace events, got %d", len(chain))
	}
	if chain[3].Stage != string(OrderDelivered) || chain[3].Location != "hub-7" {
		t.Fatalf("unexpected final trace event %+v", chain[3])
	}

	// Delivered is terminal.
	if _, err := store.AdvanceOrderStatus(ctx, order.OrderID, OrderPreparing, "dispatcher-1", ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestOrderCancellation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	customer := createTestUser(t, store, "carol", rbac.RoleCustomer)

	order, err := store.CreateOrder(ctx, customer.UserID, "Chez Gopher", customer.UserID)
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	cancelled, err := store.AdvanceOrderStatus(ctx, order.OrderID, OrderCancelled, customer.UserID, "")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != OrderCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	if _, err := store.AdvanceOrderStatus(ctx, order.OrderID, OrderPreparing, "dispatcher-1", ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition after cancel, got %v", err)
	}
}

func TestListOrdersFiltersByCustomer(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	carol := createTestUser(t, store, "carol", rbac.RoleCustomer)
	dave := createTestUser(t, store, "dave", rbac.RoleCustomer)

	for i := 0; i < 3; i++ {
		if _, err := store.CreateOrder(ctx, carol.UserID, "Chez Gopher", ""); err != nil {
			t.Fatalf("CreateOrder failed: %v", err)
		}
	}
	if _, err := store.CreateOrder(ctx, dave.UserID, "Pho Real", ""); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	all, err := store.ListOrders(ctx, "", 100)
	if err != nil {
		t.Fatalf("ListOrders failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 orders, got %d", len(all))
	}

	carols, err := store.ListOrders(ctx, carol.UserID, 100)
	if err != nil {
		t.Fatalf("ListOrders for customer failed: %v", err)
	}
	if len(carols) != 3 {
		t.Fatalf("expected 3 orders for carol, got %d", len(carols))
	}
	for _, order := range carols {
		if order.CustomerID != carol.UserID {
			t.Fatalf("unexpected customer %s", order.CustomerID)
		}
	}
}

func TestTraceOperationsRequireExistingOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.TraceChain(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.AppendTraceEvent(ctx, "missing", "inspection", "hub-1", "inspector-9"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAppendTraceEventKeepsStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	customer := createTestUser(t, store, "carol", rbac.RoleCustomer)

	order, err := store.CreateOrder(ctx, customer.UserID, "Chez Gopher", "")
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	event, err := store.AppendTraceEvent(ctx, order.OrderID, "temperature_check", "cold-chain-3", "inspector-9")
	if err != nil {
		t.Fatalf("AppendTraceEvent failed: %v", err)
	}
	if event.EventID == "" {
		t.Fatal("expected generated event id")
	}

	reloaded, err := store.GetOrder(ctx, order.OrderID)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if reloaded.Status != OrderPlaced {
		t.Fatalf("expected status unchanged, got %s", reloaded.Status)
	}

	chain, err := store.TraceChain(ctx, order.OrderID)
	if err != nil {
		t.Fatalf("TraceChain failed: %v", err)
	}
	if len(chain) != 2 || chain[1].Stage != "temperature_check" {
		t.Fatalf("unexpected chain %+v", chain)
	}
}

package trackd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/foodontracks/trackd/internal/rate"
	"github.com/foodontracks/trackd/password"
	"github.com/foodontracks/trackd/rbac"
	"github.com/foodontracks/trackd/session"
)

type mockUserProvider struct {
	users        map[string]UserRecord
	byIdentifier map[string]string
	updateErr    error
	createErr    error
	statusErr    error
	roleErr      error
	mu           sync.Mutex

	skipStatusVersionBump bool

	getByIdentifierCalls int
	getByIDCalls         int
	updatePasswordCalls  int
	createCalls          int
	updateStatusCalls    int
	updateRoleCalls      int
}

func (m *mockUserProvider) GetUserByIdentifier(identifier string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getByIdentifierCalls++

	userID, ok := m.byIdentifier[identifier]
	if !ok {
		return UserRecord{}, errors.New("not found")
	}

	user, ok := m.users[userID]
	if !ok {
		return UserRecord{}, errors.New("not found")
	}

	return user, nil
}

func (m *mockUserProvider) GetUserByID(userID string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getByIDCalls++

	user, ok := m.users[userID]
	if !ok {
		return UserRecord{}, errors.New("not found")
	}

	return user, nil
}

func (m *mockUserProvider) UpdatePasswordHash(userID string, newHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updatePasswordCalls++

	if m.updateErr != nil {
		return m.updateErr
	}

	user, ok := m.users[userID]
	if !ok {
		return errors.New("not found")
	}

	user.PasswordHash = newHash
	m.users[userID] = user
	return nil
}

func (m *mockUserProvider) CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++

	if m.createErr != nil {
		return UserRecord{}, m.createErr
	}

	if m.users == nil {
		m.users = make(map[string]UserRecord)
	}
	if m.byIdentifier == nil {
		m.byIdentifier = make(map[string]string)
	}

	if _, exists := m.byIdentifier[input.Identifier]; exists {
		return UserRecord{}, ErrProviderDuplicateIdentifier
	}

	userID := fmt.Sprintf("u%d", len(m.users)+1)
	user := UserRecord{
		UserID:            userID,
		Identifier:        input.Identifier,
		PasswordHash:      input.PasswordHash,
		Status:            input.Status,
		Role:              input.Role,
		PermissionVersion: input.PermissionVersion,
		AccountVersion:    input.AccountVersion,
		CreatedAt:         time.Now().UTC(),
	}

	m.users[userID] = user
	m.byIdentifier[input.Identifier] = userID

	return user, nil
}

func (m *mockUserProvider) UpdateAccountStatus(ctx context.Context, userID string, status AccountStatus) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateStatusCalls++

	if m.statusErr != nil {
		return UserRecord{}, m.statusErr
	}

	user, ok := m.users[userID]
	if !ok {
		return UserRecord{}, errors.New("not found")
	}

	user.Status = status
	if !m.skipStatusVersionBump {
		user.AccountVersion++
		if user.AccountVersion == 0 {
			user.AccountVersion = 1
		}
	}
	m.users[userID] = user
	return user, nil
}

func (m *mockUserProvider) UpdateRole(ctx context.Context, userID string, role rbac.Role) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateRoleCalls++

	if m.roleErr != nil {
		return UserRecord{}, m.roleErr
	}

	user, ok := m.users[userID]
	if !ok {
		return UserRecord{}, errors.New("not found")
	}

	user.Role = role
	user.PermissionVersion++
	if user.PermissionVersion == 0 {
		user.PermissionVersion = 1
	}
	m.users[userID] = user
	return user, nil
}

func newTestHasher(t *testing.T) *password.Argon2 {
	t.Helper()

	h, err := password.NewArgon2(password.Config{
		Memory:      65536,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}
	return h
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func newTestEngine(t *testing.T, rdb *redis.Client, up UserProvider, hasher *password.Argon2) *Engine {
	t.Helper()

	return &Engine{
		config:       DefaultConfig(),
		matrix:       rbac.DefaultMatrix(),
		userProvider: up,
		passwordHash: hasher,
		sessionStore: session.NewStore(rdb, "ts", false, false, 0),
		rateLimiter: rate.New(rdb, rate.Config{
			EnableIPThrottle:        false,
			EnableRefreshThrottle:   true,
			MaxLoginAttempts:        5,
			LoginCooldownDuration:   time.Minute,
			MaxRefreshAttempts:      20,
			RefreshCooldownDuration: time.Minute,
		}),
	}
}

func TestChangePasswordSuccessInvalidatesSessionsAndResetsLimiter(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	oldHash, err := hasher.Hash("old-password-123")
	if err != nil {
		t.Fatalf("Hash old password failed: %v", err)
	}

	up := &mockUserProvider{
		users: map[string]UserRecord{
			"u1": {
				UserID:            "u1",
				Identifier:        "alice",
				PasswordHash:      oldHash,
				Role:              rbac.RoleCustomer,
				PermissionVersion: 1,
				AccountVersion:    1,
			},
		},
		byIdentifier: map[string]string{"alice": "u1"},
	}

	engine := newTestEngine(t, rdb, up, hasher)

	if err := rdb.SAdd(ctx, "ts:u:u1", "s1", "s2").Err(); err != nil {
		t.Fatalf("seed index failed: %v", err)
	}
	if err := rdb.Set(ctx, "ts:s:s1", "v", time.Hour).Err(); err != nil {
		t.Fatalf("seed session s1 failed: %v", err)
	}
	if err := rdb.Set(ctx, "ts:s:s2", "v", time.Hour).Err(); err != nil {
		t.Fatalf("seed session s2 failed: %v", err)
	}
	if err := rdb.Set(ctx, "trl:u:alice", "3", time.Hour).Err(); err != nil {
		t.Fatalf("seed limiter failed: %v", err)
	}

	if err := engine.ChangePassword(ctx, "u1", "old-password-123", "new-password-123"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	updated := up.users["u1"]
	if updated.PasswordHash == oldHash {
		t.Fatal("expected password hash to change")
	}

	ok, err := hasher.Verify("new-password-123", updated.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("new hash verify failed, ok=%v err=%v", ok, err)
	}

	if rdb.Exists(ctx, "ts:s:s1").Val() != 0 || rdb.Exists(ctx, "ts:s:s2").Val() != 0 {
		t.Fatal("expected all user sessions to be deleted")
	}
	if rdb.Exists(ctx, "ts:u:u1").Val() != 0 {
		t.Fatal("expected user session index to be deleted")
	}
	if rdb.Exists(ctx, "trl:u:alice").Val() != 0 {
		t.Fatal("expected login limiter key to be reset")
	}
}

func TestChangePasswordWrongOldPassword(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	oldHash, err := hasher.Hash("correct-old-pass")
	if err != nil {
		t.Fatalf("Hash old password failed: %v", err)
	}

	up := &mockUserProvider{
		users: map[string]UserRecord{
			"u1": {
				UserID:       "u1",
				Identifier:   "alice",
				PasswordHash: oldHash,
			},
		},
		byIdentifier: map[string]string{"alice": "u1"},
	}

	engine := newTestEngine(t, rdb, up, hasher)

	if err := rdb.SAdd(ctx, "ts:u:u1", "s1").Err(); err != nil {
		t.Fatalf("seed index failed: %v", err)
	}
	if err := rdb.Set(ctx, "ts:s:s1", "v", time.Hour).Err(); err != nil {
		t.Fatalf("seed session failed: %v", err)
	}

	err = engine.ChangePassword(ctx, "u1", "wrong-old-pass", "new-pass-123")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if up.users["u1"].PasswordHash != oldHash {
		t.Fatal("expected hash to remain unchanged on wrong old password")
	}
	if rdb.Exists(ctx, "ts:s:s1").Val() != 1 {
		t.Fatal("expected sessions to remain when password change fails")
	}
}

func TestChangePasswordRejectsReuse(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	hash, err := hasher.Hash("same-pass-123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	up := &mockUserProvider{
		users: map[string]UserRecord{
			"u1": {UserID: "u1", PasswordHash: hash},
		},
	}

	engine := newTestEngine(t, rdb, up, hasher)

	err = engine.ChangePassword(ctx, "u1", "same-pass-123", "same-pass-123")
	if !errors.Is(err, ErrPasswordReuse) {
		t.Fatalf("expected ErrPasswordReuse, got %v", err)
	}
}

func TestChangePasswordRejectsShortNewPassword(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	hash, err := hasher.Hash("valid-old-pass")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	up := &mockUserProvider{
		users: map[string]UserRecord{
			"u1": {UserID: "u1", PasswordHash: hash},
		},
	}

	engine := newTestEngine(t, rdb, up, hasher)

	err = engine.ChangePassword(ctx, "u1", "valid-old-pass", "short")
	if !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}
}

func TestChangePasswordRejectsDisabledAccount(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	hash, err := hasher.Hash("old-password-123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	up := &mockUserProvider{
		users: map[string]UserRecord{
			"u1": {
				UserID:       "u1",
				Identifier:   "alice",
				PasswordHash: hash,
				Status:       AccountDisabledStatus,
			},
		},
		byIdentifier: map[string]string{"alice": "u1"},
	}

	engine := newTestEngine(t, rdb, up, hasher)

	err = engine.ChangePassword(ctx, "u1", "old-password-123", "new-password-123")
	if !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
	if up.users["u1"].PasswordHash != hash {
		t.Fatal("expected hash to remain unchanged for disabled account")
	}
}

func TestChangePasswordKeepsUpdatedHashWhenInvalidationFails(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()
	hasher := newTestHasher(t)
	oldHash, err := hasher.Hash("old-password-123")
	if err != nil {
		t.Fatalf("Hash old password failed: %v", err)
	}

	up := &mockUserProvider{
		users: map[string]UserRecord{
			"u1": {
				UserID:       "u1",
				Identifier:   "alice",
				PasswordHash: oldHash,
			},
		},
	}

	engine := newTestEngine(t, rdb, up, hasher)

	if err := rdb.SAdd(ctx, "ts:u:u1", "s1").Err(); err != nil {
		t.Fatalf("seed index failed: %v", err)
	}
	if err := rdb.Set(ctx, "ts:s:s1", "v", time.Hour).Err(); err != nil {
		t.Fatalf("seed session failed: %v", err)
	}

	// Simulate Redis outage between password DB update and session invalidation.
	mr.Close()

	err = engine.ChangePassword(ctx, "u1", "old-password-123", "new-password-123")
	if err == nil {
		t.Fatal("expected ChangePassword to fail when Redis is unavailable")
	}
	if !errors.Is(err, ErrSessionInvalidationFailed) {
		t.Fatalf("expected ErrSessionInvalidationFailed, got %v", err)
	}

	updated := up.users["u1"]
	if updated.PasswordHash == oldHash {
		t.Fatal("expected password hash to remain updated despite invalidation failure")
	}

	ok, verifyErr := hasher.Verify("new-password-123", updated.PasswordHash)
	if verifyErr != nil || !ok {
		t.Fatalf("expected updated hash to verify with new password, ok=%v err=%v", ok, verifyErr)
	}
}

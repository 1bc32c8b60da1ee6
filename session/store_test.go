package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/foodontracks/trackd/rbac"
)

func newSessionStoreTest(t *testing.T) (*Store, *redis.Client, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(rdb, "fot", true, false, 0)
	return store, rdb, func() {
		rdb.Close()
		mr.Close()
	}
}

func testSession() *Session {
	now := time.Now()
	return &Session{
		SessionID:   "sid-1",
		UserID:      "u-1",
		Role:        "customer",
		Mask:        rbac.Mask64(1),
		CreatedAt:   now.Unix(),
		ExpiresAt:   now.Add(time.Hour).Unix(),
		RefreshHash: [32]byte{1},
	}
}

func TestSaveGetRoundTrip(t *testing.T) {
	store, _, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()
	sess := testSession()
	sess.Role = "operator"
	sess.Mask = rbac.Mask64(0x0F)
	sess.PermissionVersion = 3
	sess.AccountVersion = 2

	if err := store.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("save session: %v", err)
	}

	got, err := store.Get(ctx, sess.SessionID, 30*time.Minute)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.UserID != sess.UserID || got.Role != sess.Role {
		t.Fatalf("got user=%q role=%q, want user=%q role=%q", got.UserID, got.Role, sess.UserID, sess.Role)
	}
	if got.Mask != sess.Mask {
		t.Fatalf("mask mismatch: got %d want %d", got.Mask, sess.Mask)
	}
	if got.PermissionVersion != 3 || got.AccountVersion != 2 {
		t.Fatalf("version mismatch: pv=%d av=%d", got.PermissionVersion, got.AccountVersion)
	}
	if got.RefreshHash != sess.RefreshHash {
		t.Fatal("refresh hash mismatch after round trip")
	}
}

func TestGetExpiredSessionIsDeleted(t *testing.T) {
	store, rdb, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()
	sess := testSession()
	sess.ExpiresAt = time.Now().Add(-time.Minute).Unix()

	if err := store.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("save session: %v", err)
	}

	_, err := store.Get(ctx, sess.SessionID, time.Hour)
	if !errors.Is(err, redis.Nil) {
		t.Fatalf("expected redis.Nil for expired session, got %v", err)
	}

	exists, err := rdb.Exists(ctx, store.key(sess.SessionID)).Result()
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists != 0 {
		t.Fatal("expired session key should have been deleted")
	}
}

func TestDeleteSessionIdempotentAndIndex(t *testing.T) {
	store, rdb, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()
	sess := testSession()

	if err := store.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("save session: %v", err)
	}
	if err := store.Delete(ctx, sess.SessionID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := store.Delete(ctx, sess.SessionID); err != nil {
		t.Fatalf("second delete: %v", err)
	}

	members, err := rdb.SMembers(ctx, store.userKey(sess.UserID)).Result()
	if err != nil {
		t.Fatalf("smembers: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("expected no user index members, got %v", members)
	}
}

func TestDeleteAllForUser(t *testing.T) {
	store, rdb, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	for _, sid := range []string{"sid-a", "sid-b", "sid-c"} {
		sess := testSession()
		sess.SessionID = sid
		if err := store.Save(ctx, sess, time.Hour); err != nil {
			t.Fatalf("save %s: %v", sid, err)
		}
	}

	count, err := store.ActiveSessionCount(ctx, "u-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 active sessions, got %d", count)
	}

	if err := store.DeleteAllForUser(ctx, "u-1"); err != nil {
		t.Fatalf("delete all: %v", err)
	}

	count, err = store.ActiveSessionCount(ctx, "u-1")
	if err != nil {
		t.Fatalf("count after delete: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 active sessions, got %d", count)
	}

	keys, err := rdb.Keys(ctx, "fot:s:*").Result()
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected no session keys, got %v", keys)
	}
}

func TestActiveSessionIDs(t *testing.T) {
	store, _, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	sess := testSession()
	if err := store.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	ids, err := store.ActiveSessionIDs(ctx, sess.UserID)
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != sess.SessionID {
		t.Fatalf("expected [%s], got %v", sess.SessionID, ids)
	}

	ids, err = store.ActiveSessionIDs(ctx, "no-such-user")
	if err != nil {
		t.Fatalf("ids for unknown user: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected empty ids, got %v", ids)
	}
}

func TestRotateRefreshHashSuccessAndReuse(t *testing.T) {
	store, rdb, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	sess := testSession()
	oldHash := sess.RefreshHash
	newHash := [32]byte{2, 2, 2}

	if err := store.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	rotated, err := store.RotateRefreshHash(ctx, sess.SessionID, oldHash, newHash)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if rotated.RefreshHash != newHash {
		t.Fatal("rotated session should carry the next refresh hash")
	}
	if rotated.UserID != sess.UserID || rotated.Role != sess.Role {
		t.Fatalf("rotated session lost fields: user=%q role=%q", rotated.UserID, rotated.Role)
	}
	if rotated.Mask != sess.Mask {
		t.Fatal("rotated session mask changed")
	}

	// Replaying the old hash is a reuse attempt: the session is destroyed.
	_, err = store.RotateRefreshHash(ctx, sess.SessionID, oldHash, [32]byte{3})
	if !errors.Is(err, ErrRefreshHashMismatch) {
		t.Fatalf("expected hash mismatch, got %v", err)
	}

	exists, err := rdb.Exists(ctx, store.key(sess.SessionID)).Result()
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists != 0 {
		t.Fatal("session should have been destroyed on reuse")
	}

	members, err := rdb.SMembers(ctx, store.userKey(sess.UserID)).Result()
	if err != nil {
		t.Fatalf("smembers: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("user index should be empty after reuse, got %v", members)
	}
}

func TestRotateRefreshHashSentinelErrors(t *testing.T) {
	store, rdb, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	// Not found.
	_, err := store.RotateRefreshHash(ctx, "missing", [32]byte{1}, [32]byte{2})
	if !errors.Is(err, redis.Nil) || !errors.Is(err, ErrRefreshSessionNotFound) {
		t.Fatalf("expected not-found sentinel, got %v", err)
	}

	// Expired.
	expired := testSession()
	expired.SessionID = "sid-expired"
	expired.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	if err := store.Save(ctx, expired, time.Hour); err != nil {
		t.Fatalf("save expired session failed: %v", err)
	}
	_, err = store.RotateRefreshHash(ctx, expired.SessionID, expired.RefreshHash, [32]byte{9})
	if !errors.Is(err, redis.Nil) || !errors.Is(err, ErrRefreshSessionExpired) {
		t.Fatalf("expected expired sentinel, got %v", err)
	}

	// Corrupt blob.
	if err := rdb.Set(ctx, store.key("sid-corrupt"), []byte("bad"), time.Hour).Err(); err != nil {
		t.Fatalf("seed corrupt blob failed: %v", err)
	}
	_, err = store.RotateRefreshHash(ctx, "sid-corrupt", [32]byte{1}, [32]byte{2})
	if !errors.Is(err, ErrRefreshSessionCorrupt) {
		t.Fatalf("expected corrupt sentinel, got %v", err)
	}
}

func TestGetReadOnlyDoesNotRenew(t *testing.T) {
	store, rdb, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	sess := testSession()
	if err := store.Save(ctx, sess, 10*time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}

	ttlBefore, err := rdb.TTL(ctx, store.key(sess.SessionID)).Result()
	if err != nil {
		t.Fatalf("ttl: %v", err)
	}

	if _, err := store.GetReadOnly(ctx, sess.SessionID); err != nil {
		t.Fatalf("get read only: %v", err)
	}

	ttlAfter, err := rdb.TTL(ctx, store.key(sess.SessionID)).Result()
	if err != nil {
		t.Fatalf("ttl after: %v", err)
	}
	if ttlAfter > ttlBefore {
		t.Fatalf("read-only get must not extend ttl: before=%v after=%v", ttlBefore, ttlAfter)
	}
}

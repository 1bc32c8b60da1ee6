package trackd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/foodontracks/trackd/prefs"
)

func newPrefsEngine(t *testing.T, cfg Config) (*Engine, *redis.Client, func()) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	up := &mockUserProvider{
		users:        map[string]UserRecord{},
		byIdentifier: map[string]string{},
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(up).
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	return engine, rdb, func() {
		engine.Close()
		mr.Close()
	}
}

func TestGetPreferencesDefaultsForNewUser(t *testing.T) {
	engine, _, done := newPrefsEngine(t, accountTestConfig())
	defer done()

	p, err := engine.GetPreferences(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetPreferences failed: %v", err)
	}
	want := prefs.Defaults()
	if p.Theme != want.Theme || p.Language != want.Language || p.DefaultLandingPage != want.DefaultLandingPage {
		t.Fatalf("expected defaults, got %+v", p)
	}
}

func TestPutPreferencesRoundTrip(t *testing.T) {
	engine, _, done := newPrefsEngine(t, accountTestConfig())
	defer done()

	in := prefs.Preferences{
		Theme:              prefs.ThemeDark,
		Language:           "fr",
		CompactTables:      true,
		DefaultLandingPage: "/orders",
	}
	saved, err := engine.PutPreferences(context.Background(), "u1", in)
	if err != nil {
		t.Fatalf("PutPreferences failed: %v", err)
	}
	if saved.UpdatedAt.IsZero() {
		t.Fatal("expected UpdatedAt to be stamped")
	}

	got, err := engine.GetPreferences(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetPreferences failed: %v", err)
	}
	if got.Theme != prefs.ThemeDark || got.Language != "fr" || !got.CompactTables || got.DefaultLandingPage != "/orders" {
		t.Fatalf("stored document mismatch: %+v", got)
	}
}

func TestPutPreferencesRejectsInvalidTheme(t *testing.T) {
	engine, _, done := newPrefsEngine(t, accountTestConfig())
	defer done()

	in := prefs.Defaults()
	in.Theme = "neon"
	if _, err := engine.PutPreferences(context.Background(), "u1", in); !errors.Is(err, ErrPrefsInvalid) {
		t.Fatalf("expected ErrPrefsInvalid, got %v", err)
	}
}

func TestPatchPreferencesMergesFields(t *testing.T) {
	engine, _, done := newPrefsEngine(t, accountTestConfig())
	defer done()

	base := prefs.Defaults()
	base.Language = "es"
	if _, err := engine.PutPreferences(context.Background(), "u1", base); err != nil {
		t.Fatalf("PutPreferences failed: %v", err)
	}

	theme := prefs.ThemeDark
	merged, err := engine.PatchPreferences(context.Background(), "u1", prefs.Patch{Theme: &theme})
	if err != nil {
		t.Fatalf("PatchPreferences failed: %v", err)
	}
	if merged.Theme != prefs.ThemeDark {
		t.Fatalf("expected patched theme, got %q", merged.Theme)
	}
	if merged.Language != "es" {
		t.Fatalf("expected untouched language to survive the patch, got %q", merged.Language)
	}
}

func TestPatchPreferencesRejectsInvalidMerge(t *testing.T) {
	engine, _, done := newPrefsEngine(t, accountTestConfig())
	defer done()

	lang := "xx"
	if _, err := engine.PatchPreferences(context.Background(), "u1", prefs.Patch{Language: &lang}); !errors.Is(err, ErrPrefsInvalid) {
		t.Fatalf("expected ErrPrefsInvalid, got %v", err)
	}
}

func TestResetPreferencesRestoresDefaults(t *testing.T) {
	engine, _, done := newPrefsEngine(t, accountTestConfig())
	defer done()

	in := prefs.Defaults()
	in.Theme = prefs.ThemeLight
	in.SidebarCollapsed = true
	if _, err := engine.PutPreferences(context.Background(), "u1", in); err != nil {
		t.Fatalf("PutPreferences failed: %v", err)
	}

	if err := engine.ResetPreferences(context.Background(), "u1"); err != nil {
		t.Fatalf("ResetPreferences failed: %v", err)
	}

	got, err := engine.GetPreferences(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetPreferences failed: %v", err)
	}
	if got.Theme != prefs.ThemeSystem || got.SidebarCollapsed {
		t.Fatalf("expected defaults after reset, got %+v", got)
	}
}

func TestPreferencesRequireUserID(t *testing.T) {
	engine, _, done := newPrefsEngine(t, accountTestConfig())
	defer done()

	if _, err := engine.GetPreferences(context.Background(), ""); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound on get, got %v", err)
	}
	if _, err := engine.PutPreferences(context.Background(), "", prefs.Defaults()); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound on put, got %v", err)
	}
	if err := engine.ResetPreferences(context.Background(), ""); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound on reset, got %v", err)
	}
}

func TestPreferencesDisabled(t *testing.T) {
	cfg := accountTestConfig()
	cfg.Prefs.Enabled = false
	engine, _, done := newPrefsEngine(t, cfg)
	defer done()

	if _, err := engine.GetPreferences(context.Background(), "u1"); !errors.Is(err, ErrPrefsDisabled) {
		t.Fatalf("expected ErrPrefsDisabled, got %v", err)
	}
	if _, err := engine.PatchPreferences(context.Background(), "u1", prefs.Patch{}); !errors.Is(err, ErrPrefsDisabled) {
		t.Fatalf("expected ErrPrefsDisabled, got %v", err)
	}
}

func TestPreferencesRedisUnavailable(t *testing.T) {
	mr, rdb := newTestRedis(t)
	up := &mockUserProvider{
		users:        map[string]UserRecord{},
		byIdentifier: map[string]string{},
	}
	engine, err := New().
		WithConfig(accountTestConfig()).
		WithRedis(rdb).
		WithUserProvider(up).
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	mr.Close()

	if _, err := engine.GetPreferences(context.Background(), "u1"); !errors.Is(err, ErrPrefsUnavailable) {
		t.Fatalf("expected ErrPrefsUnavailable on get, got %v", err)
	}
	if _, err := engine.PutPreferences(context.Background(), "u1", prefs.Defaults()); !errors.Is(err, ErrPrefsUnavailable) {
		t.Fatalf("expected ErrPrefsUnavailable on put, got %v", err)
	}
}

func TestPreferencesMetrics(t *testing.T) {
	cfg := accountTestConfig()
	cfg.Metrics.Enabled = true
	engine, _, done := newPrefsEngine(t, cfg)
	defer done()

	ctx := context.Background()
	if _, err := engine.GetPreferences(ctx, "u1"); err != nil {
		t.Fatalf("GetPreferences failed: %v", err)
	}
	if _, err := engine.PutPreferences(ctx, "u1", prefs.Defaults()); err != nil {
		t.Fatalf("PutPreferences failed: %v", err)
	}
	if err := engine.ResetPreferences(ctx, "u1"); err != nil {
		t.Fatalf("ResetPreferences failed: %v", err)
	}

	if got := engine.metrics.Value(MetricPrefsRead); got != 1 {
		t.Fatalf("expected 1 prefs read, got %d", got)
	}
	if got := engine.metrics.Value(MetricPrefsWrite); got != 2 {
		t.Fatalf("expected 2 prefs writes, got %d", got)
	}
}

func TestPreferencesAuditTrail(t *testing.T) {
	cfg := accountTestConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.LogCapacity = 50

	up := &mockUserProvider{
		users:        map[string]UserRecord{},
		byIdentifier: map[string]string{},
	}
	engine, done := buildAuditTestEngine(t, cfg, NoOpSink{}, up)
	defer done()

	ctx := context.Background()
	if _, err := engine.PutPreferences(ctx, "u1", prefs.Defaults()); err != nil {
		t.Fatalf("PutPreferences failed: %v", err)
	}
	lang := "de"
	if _, err := engine.PatchPreferences(ctx, "u1", prefs.Patch{Language: &lang}); err != nil {
		t.Fatalf("PatchPreferences failed: %v", err)
	}
	if err := engine.ResetPreferences(ctx, "u1"); err != nil {
		t.Fatalf("ResetPreferences failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for engine.AuditLog().Len() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	updates := engine.AuditLog().Filter(AuditQuery{EventType: auditEventPrefsUpdated})
	if len(updates) != 2 {
		t.Fatalf("expected 2 prefs_updated events, got %d", len(updates))
	}
	if updates[0].Metadata["mode"] != "replace" || updates[1].Metadata["mode"] != "patch" {
		t.Fatalf("unexpected update modes: %q then %q", updates[0].Metadata["mode"], updates[1].Metadata["mode"])
	}
	cleared := engine.AuditLog().Filter(AuditQuery{EventType: auditEventPrefsCleared})
	if len(cleared) != 1 || cleared[0].UserID != "u1" {
		t.Fatalf("expected one prefs_cleared event for u1, got %+v", cleared)
	}
}

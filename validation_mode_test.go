package trackd

import (
	"context"
	"errors"
	"testing"
)

func TestValidationModeStrictRejectsRevokedSession(t *testing.T) {
	cfg := accountTestConfig()
	cfg.ValidationMode = ModeStrict

	up := newHardeningUserProvider(t)
	engine, _, done := newCreateAccountEngine(t, cfg, up)
	defer done()

	access, _, err := engine.Login(context.Background(), "alice", "correct-password-123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := engine.LogoutByAccessToken(context.Background(), access); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	if _, err := engine.Validate(context.Background(), access, ModeInherit); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected strict mode to reject revoked session, got %v", err)
	}
}

func TestValidationModeJWTOnlyDoesNotRequireRedis(t *testing.T) {
	cfg := accountTestConfig()
	cfg.ValidationMode = ModeJWTOnly
	cfg.Security.EnableAccountVersionCheck = false

	up := newHardeningUserProvider(t)
	engine, _, done := newCreateAccountEngine(t, cfg, up)

	access, _, err := engine.Login(context.Background(), "alice", "correct-password-123")
	if err != nil {
		done()
		t.Fatalf("login failed: %v", err)
	}

	// Bring Redis down to prove JWT-only validation remains stateless.
	done()

	if _, err := engine.Validate(context.Background(), access, ModeInherit); err != nil {
		t.Fatalf("expected jwt-only validation without redis, got %v", err)
	}
}

func TestValidationModeRouteOverrideEscalatesToStrict(t *testing.T) {
	cfg := accountTestConfig()
	cfg.ValidationMode = ModeHybrid

	up := newHardeningUserProvider(t)
	engine, _, done := newCreateAccountEngine(t, cfg, up)
	defer done()

	access, _, err := engine.Login(context.Background(), "alice", "correct-password-123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := engine.LogoutByAccessToken(context.Background(), access); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	// Hybrid default accepts the still-valid JWT, a strict route override must not.
	if _, err := engine.Validate(context.Background(), access, RouteMode(ModeHybrid)); err != nil {
		t.Fatalf("expected hybrid validation to accept unexpired token, got %v", err)
	}
	if _, err := engine.Validate(context.Background(), access, RouteMode(ModeStrict)); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected strict route override to reject revoked session, got %v", err)
	}
}

func TestValidationModeRouteOverrideRejectsUnknownMode(t *testing.T) {
	cfg := accountTestConfig()
	cfg.ValidationMode = ModeHybrid

	up := newHardeningUserProvider(t)
	engine, _, done := newCreateAccountEngine(t, cfg, up)
	defer done()

	access, _, err := engine.Login(context.Background(), "alice", "correct-password-123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	for _, mode := range []RouteMode{RouteMode(99), RouteMode(-2)} {
		if _, err := engine.Validate(context.Background(), access, mode); !errors.Is(err, ErrInvalidRouteMode) {
			t.Fatalf("expected ErrInvalidRouteMode for route mode %d, got %v", mode, err)
		}
	}
}

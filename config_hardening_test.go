package trackd

import (
	"strings"
	"testing"
)

func TestConfigValidateProductionRejectsWeakHS256Key(t *testing.T) {
	cfg := accountTestConfig()
	cfg.Security.ProductionMode = true
	cfg.JWT.PrivateKey = []byte("weak-key")

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "256 bits") {
		t.Fatalf("expected weak HS256 key rejection, got %v", err)
	}
}

func TestConfigValidateProductionRejectsWeakArgon2(t *testing.T) {
	cfg := accountTestConfig()
	cfg.Security.ProductionMode = true
	cfg.JWT.PrivateKey = []byte("12345678901234567890123456789012")
	cfg.Password.Memory = 32 * 1024

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "Memory") {
		t.Fatalf("expected weak argon2 rejection, got %v", err)
	}
}

func TestConfigValidateProductionRequiresSecureCookies(t *testing.T) {
	cfg := accountTestConfig()
	cfg.Security.ProductionMode = true
	cfg.JWT.PrivateKey = []byte("12345678901234567890123456789012")
	cfg.Cookie.Secure = false

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "Secure cookies") {
		t.Fatalf("expected insecure cookie rejection, got %v", err)
	}
}

func TestConfigValidateDangerousJWTOnlyAccountVersionCheckRejected(t *testing.T) {
	cfg := accountTestConfig()
	cfg.ValidationMode = ModeJWTOnly
	cfg.Security.EnableAccountVersionCheck = true

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "JWTOnly mode cannot enforce AccountVersion checks") {
		t.Fatalf("expected jwt-only account version check rejection, got %v", err)
	}
}

func TestConfigValidateDevModeAllowsRelaxedCrypto(t *testing.T) {
	cfg := accountTestConfig()
	cfg.Security.ProductionMode = false
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.KeyLength = 16

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected relaxed dev config to pass, got %v", err)
	}
}

func TestBuildConfigImmutabilityAgainstExternalMutation(t *testing.T) {
	cfg := accountTestConfig()
	cfg.JWT.PrivateKey = []byte("01234567890123456789012345678901")

	up := newHardeningUserProvider(t)
	engine, _, done := newCreateAccountEngine(t, cfg, up)
	defer done()

	before := engine.config.JWT.PrivateKey[0]
	cfg.JWT.PrivateKey[0] = 'X'

	if engine.config.JWT.PrivateKey[0] != before {
		t.Fatal("engine config key mutated from external config after build")
	}
}

func TestSecurityReportReflectsPosture(t *testing.T) {
	cfg := accountTestConfig()
	cfg.Security.ProductionMode = true
	cfg.JWT.PrivateKey = []byte("01234567890123456789012345678901")
	cfg.ValidationMode = ModeStrict
	cfg.SessionHardening.MaxSessionsPerUser = 2
	cfg.Audit.Enabled = true
	cfg.Audit.LogCapacity = 100

	up := newHardeningUserProvider(t)
	engine, _, done := newCreateAccountEngine(t, cfg, up)
	defer done()

	report := engine.SecurityReport()
	if !report.ProductionMode {
		t.Fatal("expected ProductionMode=true in report")
	}
	if report.SigningAlgorithm != "hs256" {
		t.Fatalf("expected hs256 signing algorithm in report, got %s", report.SigningAlgorithm)
	}
	if report.ValidationMode != ModeStrict {
		t.Fatalf("expected strict validation mode in report, got %v", report.ValidationMode)
	}
	if !report.RefreshRotationEnabled || !report.RefreshReuseDetectionEnabled {
		t.Fatal("expected refresh rotation and reuse detection in report")
	}
	if !report.SessionCapsActive {
		t.Fatal("expected session caps active in report")
	}
	if !report.AuditLogActive {
		t.Fatal("expected audit log active in report")
	}
	if !report.PrefsActive {
		t.Fatal("expected prefs active in report")
	}
	if report.Argon2.Memory != cfg.Password.Memory {
		t.Fatalf("expected argon2 memory %d in report, got %d", cfg.Password.Memory, report.Argon2.Memory)
	}
}

func TestBuilderRequiresRedis(t *testing.T) {
	cfg := accountTestConfig()

	_, err := New().WithConfig(cfg).Build()
	if err == nil || !strings.Contains(err.Error(), "redis client required") {
		t.Fatalf("expected redis requirement error, got %v", err)
	}
}

func TestBuilderRequiresUserProvider(t *testing.T) {
	cfg := accountTestConfig()
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	_, err := New().WithConfig(cfg).WithRedis(rdb).Build()
	if err == nil || !strings.Contains(err.Error(), "user provider required") {
		t.Fatalf("expected user provider requirement error, got %v", err)
	}
}

func TestBuilderRejectsSecondBuild(t *testing.T) {
	cfg := accountTestConfig()
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	b := New().WithConfig(cfg).WithRedis(rdb).WithUserProvider(newHardeningUserProvider(t))
	if _, err := b.Build(); err != nil {
		t.Fatalf("first build failed: %v", err)
	}
	if _, err := b.Build(); err == nil || !strings.Contains(err.Error(), "already used") {
		t.Fatalf("expected builder reuse rejection, got %v", err)
	}
}

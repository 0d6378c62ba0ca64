package core

import (
	"errors"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Subjects: []Subject{
			{Code: "math", Title: "Математика", Tiers: map[Tier]TierPolicy{
				TierFree:    {Cooldown: 24 * time.Hour, DefaultQuota: 5},
				TierSpecial: {Cooldown: time.Hour, PriceHint: "990"},
			}},
		},
	}
}

func TestConfigValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := map[string]*Config{
		"no subjects": {},
		"empty code": {Subjects: []Subject{
			{Code: "", Tiers: map[Tier]TierPolicy{TierFree: {}}},
		}},
		"duplicate code": {Subjects: []Subject{
			{Code: "math", Tiers: map[Tier]TierPolicy{TierFree: {}}},
			{Code: "math", Tiers: map[Tier]TierPolicy{TierFree: {}}},
		}},
		"no tiers": {Subjects: []Subject{{Code: "math"}}},
		"negative quota": {Subjects: []Subject{
			{Code: "math", Tiers: map[Tier]TierPolicy{TierFree: {DefaultQuota: -1}}},
		}},
	}
	for name, cfg := range cases {
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("%s: expected ErrInvalidArgument, got %v", name, err)
		}
	}
}

func TestTierPolicyLookup(t *testing.T) {
	cfg := validConfig()
	if p, ok := cfg.TierPolicy("math", TierSpecial); !ok || p.PriceHint != "990" {
		t.Fatalf("lookup = %+v, %v", p, ok)
	}
	if _, ok := cfg.TierPolicy("math", Tier("gold")); ok {
		t.Fatalf("unknown tier accepted")
	}
	if _, ok := cfg.TierPolicy("chemistry", TierFree); ok {
		t.Fatalf("unknown subject accepted")
	}
}

func TestCooldownKeyScopes(t *testing.T) {
	cfg := validConfig()
	if k := cfg.CooldownKey(TierFree); k != cfg.CooldownKey(TierSpecial) {
		t.Fatalf("per-subject scope should share keys, got %q vs %q", k, cfg.CooldownKey(TierSpecial))
	}
	cfg.CooldownScope = CooldownPerTier
	if cfg.CooldownKey(TierFree) == cfg.CooldownKey(TierSpecial) {
		t.Fatalf("per-tier scope should split keys")
	}
}

func TestDeliveryRequestValidate(t *testing.T) {
	cfg := validConfig()
	req := DeliveryRequest{UserID: 7, Subject: "math", Tier: TierFree}
	if err := req.Validate(cfg); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}
	if err := (DeliveryRequest{Subject: "math", Tier: TierFree}).Validate(cfg); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("missing user id: got %v", err)
	}
	if err := (DeliveryRequest{UserID: 7, Subject: "math", Tier: "gold"}).Validate(cfg); !errors.Is(err, ErrInvalidSubject) {
		t.Fatalf("unknown tier: got %v", err)
	}
}

func TestCooldownErrorMatchesSentinel(t *testing.T) {
	now := time.Now()
	err := NewCooldownError(now, now.Add(90*time.Minute))
	if !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("CooldownError should match ErrCooldownActive")
	}
	if err.Remaining != 90*time.Minute {
		t.Fatalf("remaining = %v", err.Remaining)
	}
	if !IsDenial(err) || IsRetryable(err) {
		t.Fatalf("classification wrong for cooldown error")
	}
	if !IsRetryable(ErrUnavailable) || IsDenial(ErrUnavailable) {
		t.Fatalf("classification wrong for ErrUnavailable")
	}
}

func TestQuotaErrorMatchesSentinel(t *testing.T) {
	err := &QuotaError{NoRecord: true}
	if !errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("QuotaError should match ErrQuotaExhausted")
	}
	if !IsDenial(err) || IsRetryable(err) {
		t.Fatalf("classification wrong for quota error")
	}
}

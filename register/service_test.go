package register_test

import (
	"context"
	"testing"

	"github.com/open-rails/probekit/core"
	probetesting "github.com/open-rails/probekit/testing"
)

func TestRegisterFirstContactSeedsFreeTier(t *testing.T) {
	eng := probetesting.NewEngine()
	ctx := context.Background()

	first, err := eng.Register.RegisterIfAbsent(ctx, 100, core.Profile{Username: "aru", FirstName: "Aru"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !first {
		t.Fatalf("expected first-time registration")
	}

	for _, subj := range eng.Config.Subjects {
		rec, err := eng.Ledger.Read(ctx, 100, subj.Code, core.TierFree)
		if err != nil {
			t.Fatalf("read %s: %v", subj.Code, err)
		}
		if rec == nil {
			t.Fatalf("free record for %s not seeded", subj.Code)
		}
		want := subj.Tiers[core.TierFree].DefaultQuota
		if rec.Remaining != want {
			t.Fatalf("%s remaining = %d, want %d", subj.Code, rec.Remaining, want)
		}
	}

	n, err := eng.Users.Count(ctx)
	if err != nil || n != 1 {
		t.Fatalf("count = %d, err %v", n, err)
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	eng := probetesting.NewEngine()
	ctx := context.Background()

	if _, err := eng.Register.RegisterIfAbsent(ctx, 100, core.Profile{Username: "aru"}); err != nil {
		t.Fatalf("first register: %v", err)
	}

	// Spend part of the quota, then register again. The seeded quota must not
	// be reset.
	eng.MustIngest("math", core.TierFree, "Нұсқа 1", "file-1")
	if _, err := eng.Orchestrator.Deliver(ctx, core.DeliveryRequest{UserID: 100, Subject: "math", Tier: core.TierFree}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	rec, _ := eng.Ledger.Read(ctx, 100, "math", core.TierFree)
	before := rec.Remaining

	first, err := eng.Register.RegisterIfAbsent(ctx, 100, core.Profile{Username: "aru-renamed"})
	if err != nil {
		t.Fatalf("second register: %v", err)
	}
	if first {
		t.Fatalf("re-registration reported as first contact")
	}

	rec, _ = eng.Ledger.Read(ctx, 100, "math", core.TierFree)
	if rec.Remaining != before {
		t.Fatalf("re-registration changed remaining: %d -> %d", before, rec.Remaining)
	}

	u, err := eng.Users.GetByID(ctx, 100)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u == nil || u.Username != "aru-renamed" {
		t.Fatalf("profile not refreshed: %+v", u)
	}
}

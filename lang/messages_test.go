package lang

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/open-rails/probekit/core"
)

func TestTUsesContextLanguage(t *testing.T) {
	ctx := WithLanguage(context.Background(), Russian)
	got := T(ctx, KeySubscriberCount, 42)
	if !strings.Contains(got, "42") || !strings.Contains(got, "подписчиков") {
		t.Fatalf("unexpected russian message: %q", got)
	}
}

func TestTFallsBackToDefault(t *testing.T) {
	// Unknown language falls back to the default catalog.
	ctx := WithLanguage(context.Background(), "en")
	if got, want := T(ctx, KeyGenericError), messages[Default][KeyGenericError]; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	// Unknown key renders the key itself rather than panicking.
	if got := T(context.Background(), Key("nope")); got != "nope" {
		t.Fatalf("got %q", got)
	}
}

func TestDenialMessageCooldown(t *testing.T) {
	now := time.Now()
	err := core.NewCooldownError(now, now.Add(3*time.Hour+20*time.Minute))
	got := DenialMessage(context.Background(), err, "Математика", "")
	if !strings.Contains(got, "3 сағат") || !strings.Contains(got, "20 минут") {
		t.Fatalf("unexpected cooldown message: %q", got)
	}
}

func TestDenialMessageQuota(t *testing.T) {
	ctx := context.Background()
	if got := DenialMessage(ctx, core.ErrQuotaExhausted, "Математика", ""); !strings.Contains(got, "Математика") {
		t.Fatalf("quota message missing subject: %q", got)
	}
	if got := DenialMessage(ctx, core.ErrQuotaExhausted, "Математика", "990"); !strings.Contains(got, "990") {
		t.Fatalf("no-access message missing price: %q", got)
	}
	if got := DenialMessage(ctx, core.ErrCatalogExhausted, "Математика", ""); !strings.Contains(got, "Математика") {
		t.Fatalf("catalog message missing subject: %q", got)
	}
}

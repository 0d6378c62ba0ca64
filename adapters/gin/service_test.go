package probegin_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	probegin "github.com/open-rails/probekit/adapters/gin"
	"github.com/open-rails/probekit/adminauth"
	"github.com/open-rails/probekit/core"
	probetesting "github.com/open-rails/probekit/testing"
)

func newServer(t *testing.T, eng *probetesting.Engine, keys adminauth.Keyring) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	svc := probegin.NewService(eng.Config, eng.Orchestrator, eng.Grants, eng.Register, eng.Users, eng.Catalog)
	if keys != nil {
		svc = svc.WithAdminKeys(keys)
	}
	svc.RegisterAPI(r)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, target string, body any, header map[string]string) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response %q: %v", w.Body.String(), err)
		}
	}
	return w.Code, out
}

func TestDeliveryEndpoint(t *testing.T) {
	eng := probetesting.NewEngine()
	eng.MustIngest("math", core.TierFree, "Нұсқа 1", "file-1")
	eng.MustIngest("math", core.TierFree, "Нұсқа 2", "file-2")
	r := newServer(t, eng, nil)

	code, body := doJSON(t, r, http.MethodPost, "/v1/registrations",
		map[string]any{"user_id": 100, "username": "aru"}, nil)
	if code != http.StatusOK || body["first_time"] != true {
		t.Fatalf("register: code %d body %v", code, body)
	}

	code, body = doJSON(t, r, http.MethodPost, "/v1/delivery",
		map[string]any{"user_id": 100, "subject": "math", "tier": "free"}, nil)
	if code != http.StatusOK {
		t.Fatalf("deliver: code %d body %v", code, body)
	}
	delivered, ok := body["delivered"].(map[string]any)
	if !ok {
		t.Fatalf("no delivered payload: %v", body)
	}
	if delivered["payload_ref"] != "file-1" {
		t.Fatalf("payload_ref = %v, want file-1", delivered["payload_ref"])
	}
	if delivered["receipt"] == "" {
		t.Fatalf("missing receipt code")
	}

	// Immediately again: cooldown denial, still HTTP 200.
	code, body = doJSON(t, r, http.MethodPost, "/v1/delivery",
		map[string]any{"user_id": 100, "subject": "math", "tier": "free"}, nil)
	if code != http.StatusOK || body["denied"] != "cooldown_active" {
		t.Fatalf("second deliver: code %d body %v", code, body)
	}
	if _, ok := body["retry_after_seconds"]; !ok {
		t.Fatalf("cooldown denial missing retry_after_seconds: %v", body)
	}

	code, body = doJSON(t, r, http.MethodPost, "/v1/delivery",
		map[string]any{"user_id": 100, "subject": "botany", "tier": "free"}, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("unknown subject: code %d body %v", code, body)
	}
}

func TestDeliveryLocalizedDenial(t *testing.T) {
	eng := probetesting.NewEngine()
	eng.MustIngest("math", core.TierFree, "Нұсқа 1", "file-1")
	r := newServer(t, eng, nil)

	if code, _ := doJSON(t, r, http.MethodPost, "/v1/delivery",
		map[string]any{"user_id": 7, "subject": "math", "tier": "free"}, nil); code != http.StatusOK {
		t.Fatalf("first deliver: code %d", code)
	}
	_, kk := doJSON(t, r, http.MethodPost, "/v1/delivery?lang=kk",
		map[string]any{"user_id": 7, "subject": "math", "tier": "free"}, nil)
	_, ru := doJSON(t, r, http.MethodPost, "/v1/delivery?lang=ru",
		map[string]any{"user_id": 7, "subject": "math", "tier": "free"}, nil)
	if kk["message"] == "" || ru["message"] == "" || kk["message"] == ru["message"] {
		t.Fatalf("denial not localized: kk=%v ru=%v", kk["message"], ru["message"])
	}
}

func TestDeliveryPriceHintOnlyForAbsentRecord(t *testing.T) {
	eng := probetesting.NewEngine()
	eng.MustIngest("math", core.TierSpecial, "Ерекше 1", "fs1")
	eng.MustIngest("math", core.TierSpecial, "Ерекше 2", "fs2")
	r := newServer(t, eng, nil)
	deliver := map[string]any{"user_id": 50, "subject": "math", "tier": "special"}
	ctx := context.Background()

	// No record for the paid tier: the purchase wording with the price.
	code, body := doJSON(t, r, http.MethodPost, "/v1/delivery", deliver, nil)
	if code != http.StatusOK || body["denied"] != "quota_exhausted" {
		t.Fatalf("absent record: code %d body %v", code, body)
	}
	if body["price_hint"] != "990" {
		t.Fatalf("absent record missing price_hint: %v", body)
	}
	if msg, _ := body["message"].(string); !strings.Contains(msg, "990") {
		t.Fatalf("message lacks price wording: %q", msg)
	}

	if _, err := eng.Grants.Grant(ctx, 1, 50, "math", core.TierSpecial, 1); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if code, body := doJSON(t, r, http.MethodPost, "/v1/delivery", deliver, nil); code != http.StatusOK || body["delivered"] == nil {
		t.Fatalf("granted deliver: code %d body %v", code, body)
	}

	// Cooldown denial on a priced tier carries no price hint.
	code, body = doJSON(t, r, http.MethodPost, "/v1/delivery", deliver, nil)
	if code != http.StatusOK || body["denied"] != "cooldown_active" {
		t.Fatalf("cooldown denial: code %d body %v", code, body)
	}
	if _, ok := body["price_hint"]; ok {
		t.Fatalf("cooldown denial carries price_hint: %v", body)
	}

	// A spent record gets the limit wording, not the purchase one.
	eng.Clock.Advance(2 * time.Hour)
	code, body = doJSON(t, r, http.MethodPost, "/v1/delivery", deliver, nil)
	if code != http.StatusOK || body["denied"] != "quota_exhausted" {
		t.Fatalf("spent record: code %d body %v", code, body)
	}
	if _, ok := body["price_hint"]; ok {
		t.Fatalf("spent record carries price_hint: %v", body)
	}
	if msg, _ := body["message"].(string); strings.Contains(msg, "990") {
		t.Fatalf("spent record got purchase wording: %q", msg)
	}
}

func TestAdminEndpointsRequireAuth(t *testing.T) {
	eng := probetesting.NewEngine()
	hash, err := adminauth.HashKey("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	r := newServer(t, eng, adminauth.Keyring{"9001": hash})
	grantBody := map[string]any{"target_user_id": 100, "subject": "math", "tier": "special", "amount": 3}

	code, _ := doJSON(t, r, http.MethodPost, "/v1/admin/grants", grantBody, nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated grant: code %d", code)
	}
	code, _ = doJSON(t, r, http.MethodPost, "/v1/admin/grants", grantBody,
		map[string]string{"X-Api-Key-Id": "9001", "X-Api-Key": "wrong"})
	if code != http.StatusUnauthorized {
		t.Fatalf("bad key grant: code %d", code)
	}

	auth := map[string]string{"X-Api-Key-Id": "9001", "X-Api-Key": "s3cret"}
	code, body := doJSON(t, r, http.MethodPost, "/v1/admin/grants", grantBody, auth)
	if code != http.StatusOK {
		t.Fatalf("grant: code %d body %v", code, body)
	}
	granted, ok := body["granted"].(map[string]any)
	if !ok || granted["remaining_count"] != float64(3) {
		t.Fatalf("grant ack: %v", body)
	}

	code, body = doJSON(t, r, http.MethodPost, "/v1/admin/catalog/items",
		map[string]any{"subject": "math", "tier": "special", "label": "Нұсқа 1", "payload_ref": "file-s1"}, auth)
	if code != http.StatusCreated {
		t.Fatalf("ingest: code %d body %v", code, body)
	}

	// The granted quota is immediately deliverable.
	code, body = doJSON(t, r, http.MethodPost, "/v1/delivery",
		map[string]any{"user_id": 100, "subject": "math", "tier": "special"}, nil)
	if code != http.StatusOK {
		t.Fatalf("paid deliver: code %d body %v", code, body)
	}
	if _, ok := body["delivered"]; !ok {
		t.Fatalf("paid deliver denied: %v", body)
	}
}

func TestStatsUsersEndpoint(t *testing.T) {
	eng := probetesting.NewEngine()
	r := newServer(t, eng, nil)

	for i := 1; i <= 3; i++ {
		code, _ := doJSON(t, r, http.MethodPost, "/v1/registrations",
			map[string]any{"user_id": i, "username": fmt.Sprintf("u%d", i)}, nil)
		if code != http.StatusOK {
			t.Fatalf("register %d: code %d", i, code)
		}
	}
	code, body := doJSON(t, r, http.MethodGet, "/v1/stats/users", nil, nil)
	if code != http.StatusOK || body["count"] != float64(3) {
		t.Fatalf("stats: code %d body %v", code, body)
	}
}

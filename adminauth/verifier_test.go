package adminauth

import (
	"context"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

func signHMAC(t *testing.T, secret []byte, claims jwtv5.MapClaims) string {
	t.Helper()
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	raw, err := tok.SignedString(secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return raw
}

func TestVerifyHMACToken(t *testing.T) {
	secret := []byte("test-secret")
	v, err := NewVerifier(context.Background(), AcceptConfig{HMACSecret: secret})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	raw := signHMAC(t, secret, jwtv5.MapClaims{
		"sub": "1044841557",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	claims, err := v.Verify(context.Background(), raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "1044841557" {
		t.Fatalf("subject = %q", claims.Subject)
	}
	if claims.UserID != 1044841557 {
		t.Fatalf("user id = %d", claims.UserID)
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	secret := []byte("test-secret")
	v, err := NewVerifier(context.Background(), AcceptConfig{HMACSecret: secret})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	ctx := context.Background()

	cases := map[string]string{
		"empty":     "",
		"garbage":   "not-a-jwt",
		"wrong key": signHMACWith(t, []byte("other-secret"), time.Now().Add(time.Hour)),
		"expired":   signHMACWith(t, secret, time.Now().Add(-2*time.Minute)),
		"no expiry": signHMAC(t, secret, jwtv5.MapClaims{"sub": "1"}),
		"no subject": signHMAC(t, secret, jwtv5.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		}),
	}
	for name, raw := range cases {
		if _, err := v.Verify(ctx, raw); err == nil {
			t.Errorf("%s: token accepted", name)
		}
	}
}

func signHMACWith(t *testing.T, secret []byte, exp time.Time) string {
	return signHMAC(t, secret, jwtv5.MapClaims{"sub": "1", "exp": exp.Unix()})
}

func TestVerifySkewToleratesRecentExpiry(t *testing.T) {
	secret := []byte("test-secret")
	v, err := NewVerifier(context.Background(), AcceptConfig{HMACSecret: secret, Skew: time.Minute})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	raw := signHMACWith(t, secret, time.Now().Add(-10*time.Second))
	if _, err := v.Verify(context.Background(), raw); err != nil {
		t.Fatalf("token within skew rejected: %v", err)
	}
}

func TestNewVerifierRequiresConfig(t *testing.T) {
	if _, err := NewVerifier(context.Background(), AcceptConfig{}); err == nil {
		t.Fatalf("empty config accepted")
	}
}

func TestClaimsForNonNumericSubject(t *testing.T) {
	c := claimsFor("service-account")
	if c.Subject != "service-account" || c.UserID != 0 {
		t.Fatalf("claims = %+v", c)
	}
}

package adminauth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	jwxjwt "github.com/lestrrat-go/jwx/v2/jwt"
)

// Claims is the admin identity extracted from a verified token.
type Claims struct {
	Subject string
	// UserID is the chat user id parsed from the subject, when numeric.
	UserID int64
}

// Verifier validates admin bearer tokens per AcceptConfig.
type Verifier struct {
	cfg   AcceptConfig
	cache *jwk.Cache
}

// NewVerifier builds a verifier and registers issuer JWKS endpoints for
// background refresh. ctx bounds the cache's refresh goroutine.
func NewVerifier(ctx context.Context, cfg AcceptConfig) (*Verifier, error) {
	if len(cfg.Issuers) == 0 && len(cfg.HMACSecret) == 0 {
		return nil, errors.New("adminauth: no issuers and no hmac secret configured")
	}
	if cfg.Skew <= 0 {
		cfg.Skew = 30 * time.Second
	}
	v := &Verifier{cfg: cfg}
	if len(cfg.Issuers) > 0 {
		v.cache = jwk.NewCache(ctx)
		for _, iss := range cfg.Issuers {
			ttl := iss.CacheTTL
			if ttl <= 0 {
				ttl = 15 * time.Minute
			}
			if err := v.cache.Register(iss.JWKSURL, jwk.WithMinRefreshInterval(ttl)); err != nil {
				return nil, fmt.Errorf("adminauth: register jwks %s: %w", iss.JWKSURL, err)
			}
		}
	}
	return v, nil
}

// Verify checks the raw token against the first-party secret and then each
// configured issuer, returning the admin claims on the first match.
func (v *Verifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	if raw == "" {
		return nil, errors.New("adminauth: empty token")
	}
	var lastErr error
	if len(v.cfg.HMACSecret) > 0 {
		c, err := v.verifyHMAC(raw)
		if err == nil {
			return c, nil
		}
		lastErr = err
	}
	for _, iss := range v.cfg.Issuers {
		c, err := v.verifyIssuer(ctx, iss, raw)
		if err == nil {
			return c, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("adminauth: token rejected")
	}
	return nil, lastErr
}

func (v *Verifier) verifyHMAC(raw string) (*Claims, error) {
	tok, err := jwtv5.Parse(raw, func(t *jwtv5.Token) (any, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("adminauth: unexpected alg %s", t.Method.Alg())
		}
		return v.cfg.HMACSecret, nil
	}, jwtv5.WithValidMethods([]string{"HS256"}), jwtv5.WithLeeway(v.cfg.Skew), jwtv5.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	sub, err := tok.Claims.GetSubject()
	if err != nil || sub == "" {
		return nil, errors.New("adminauth: token has no subject")
	}
	return claimsFor(sub), nil
}

func (v *Verifier) verifyIssuer(ctx context.Context, iss IssuerAccept, raw string) (*Claims, error) {
	keySet, err := v.cache.Get(ctx, iss.JWKSURL)
	if err != nil {
		return nil, fmt.Errorf("adminauth: jwks fetch: %w", err)
	}
	tok, err := jwxjwt.ParseString(
		raw,
		jwxjwt.WithKeySet(keySet),
		jwxjwt.WithValidate(true),
		jwxjwt.WithIssuer(iss.Issuer),
		jwxjwt.WithAudience(iss.Audience),
		jwxjwt.WithAcceptableSkew(v.cfg.Skew),
		jwxjwt.WithContext(ctx),
	)
	if err != nil {
		return nil, err
	}
	if tok.Subject() == "" {
		return nil, errors.New("adminauth: token has no subject")
	}
	return claimsFor(tok.Subject()), nil
}

func claimsFor(sub string) *Claims {
	c := &Claims{Subject: sub}
	if id, err := strconv.ParseInt(sub, 10, 64); err == nil {
		c.UserID = id
	}
	return c
}

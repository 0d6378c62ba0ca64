package core

import (
	"fmt"
	"time"
)

// Tier is an access class with its own quota and catalog partition.
type Tier string

// Conventional tier names. Deployments may configure others.
const (
	TierFree    Tier = "free"
	TierSpecial Tier = "special"
	TierPremium Tier = "special_with_answers"
)

// CooldownScope selects the key under which cooldowns are tracked.
type CooldownScope int

const (
	// CooldownPerSubject shares one cooldown window across all tiers of a
	// subject, so a free delivery also delays a paid one.
	CooldownPerSubject CooldownScope = iota
	// CooldownPerTier tracks an independent window per (subject, tier).
	CooldownPerTier
)

// sharedScopeKey is the cooldown key column value under CooldownPerSubject.
const sharedScopeKey = "any"

// TierPolicy configures one tier within a subject.
type TierPolicy struct {
	// Cooldown is the window stamped after each successful delivery.
	Cooldown time.Duration
	// DefaultQuota is seeded into new records by the registration service.
	// Zero for tiers that are only reachable through grants.
	DefaultQuota int
	// PriceHint is a display-only string for the "no access yet" message.
	PriceHint string
}

// Subject is one catalog subject with its configured tiers.
type Subject struct {
	Code  string
	Title string
	Tiers map[Tier]TierPolicy
}

// Config is the engine's static configuration. It replaces the per-variant
// module-level maps of the original bots; nothing in the engine is global.
type Config struct {
	Subjects      []Subject
	CooldownScope CooldownScope
	// FreeTier names the tier seeded at registration. Defaults to TierFree.
	FreeTier Tier
}

// Validate checks that the subject/tier table is usable.
func (c *Config) Validate() error {
	if len(c.Subjects) == 0 {
		return fmt.Errorf("%w: no subjects configured", ErrInvalidArgument)
	}
	seen := make(map[string]bool, len(c.Subjects))
	for _, s := range c.Subjects {
		if s.Code == "" {
			return fmt.Errorf("%w: subject with empty code", ErrInvalidArgument)
		}
		if seen[s.Code] {
			return fmt.Errorf("%w: duplicate subject %q", ErrInvalidArgument, s.Code)
		}
		seen[s.Code] = true
		if len(s.Tiers) == 0 {
			return fmt.Errorf("%w: subject %q has no tiers", ErrInvalidArgument, s.Code)
		}
		for tier, p := range s.Tiers {
			if tier == "" {
				return fmt.Errorf("%w: subject %q has an empty tier", ErrInvalidArgument, s.Code)
			}
			if p.Cooldown < 0 || p.DefaultQuota < 0 {
				return fmt.Errorf("%w: subject %q tier %q has negative policy values", ErrInvalidArgument, s.Code, tier)
			}
		}
	}
	return nil
}

// Subject returns the configured subject by code.
func (c *Config) Subject(code string) (Subject, bool) {
	for _, s := range c.Subjects {
		if s.Code == code {
			return s, true
		}
	}
	return Subject{}, false
}

// TierPolicy resolves the policy for (subject, tier), reporting whether the
// combination is configured.
func (c *Config) TierPolicy(subject string, tier Tier) (TierPolicy, bool) {
	s, ok := c.Subject(subject)
	if !ok {
		return TierPolicy{}, false
	}
	p, ok := s.Tiers[tier]
	return p, ok
}

// CooldownKey maps a tier to the key its cooldown is stored under.
func (c *Config) CooldownKey(tier Tier) string {
	if c.CooldownScope == CooldownPerTier {
		return string(tier)
	}
	return sharedScopeKey
}

// DefaultFreeTier returns the tier seeded at registration.
func (c *Config) DefaultFreeTier() Tier {
	if c.FreeTier != "" {
		return c.FreeTier
	}
	return TierFree
}

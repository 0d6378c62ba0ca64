// Package testing provides utilities for testing applications that use
// probekit. It wires a complete engine over the in-memory stores with a
// controllable clock, so transport adapters can be tested without postgres.
//
// Example usage:
//
//	eng := probetesting.NewEngine(1044841557)
//	eng.MustIngest("math", core.TierFree, "Нұсқа 1", "file-1")
//	res, err := eng.Orchestrator.Deliver(ctx, core.DeliveryRequest{...})
package testing

import (
	"context"
	"sync"
	"time"

	"github.com/open-rails/probekit/core"
	"github.com/open-rails/probekit/delivery"
	"github.com/open-rails/probekit/grants"
	"github.com/open-rails/probekit/register"
	memorystore "github.com/open-rails/probekit/storage/memory"
)

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock { return &Clock{now: start} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// DefaultConfig mirrors a typical deployment: two subjects, a free tier with
// a 24h cooldown and a small starting quota, and two paid tiers.
func DefaultConfig() *core.Config {
	tiers := func() map[core.Tier]core.TierPolicy {
		return map[core.Tier]core.TierPolicy{
			core.TierFree:    {Cooldown: 24 * time.Hour, DefaultQuota: 5},
			core.TierSpecial: {Cooldown: time.Hour, PriceHint: "990"},
			core.TierPremium: {Cooldown: time.Hour, PriceHint: "1490"},
		}
	}
	return &core.Config{
		Subjects: []core.Subject{
			{Code: "informatics", Title: "Информатика", Tiers: tiers()},
			{Code: "math", Title: "Математика", Tiers: tiers()},
		},
	}
}

// Engine is a fully wired in-memory probekit instance.
type Engine struct {
	Config       *core.Config
	Clock        *Clock
	Ledger       *memorystore.Ledger
	Catalog      *memorystore.Catalog
	Users        *memorystore.Users
	Orchestrator *delivery.Orchestrator
	Grants       *grants.Service
	Register     *register.Service
}

// NewEngine builds an engine with DefaultConfig and the given privileged ids.
func NewEngine(adminIDs ...int64) *Engine {
	return NewEngineWithConfig(DefaultConfig(), adminIDs...)
}

// NewEngineWithConfig builds an engine over the provided configuration.
func NewEngineWithConfig(cfg *core.Config, adminIDs ...int64) *Engine {
	clock := NewClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	ledger := memorystore.NewLedger(cfg)
	cat := memorystore.NewCatalog()
	users := memorystore.NewUsers()
	orch := delivery.NewOrchestrator(cfg, ledger, cat, core.NewStaticAdmins(adminIDs...),
		delivery.WithClock(clock.Now),
		delivery.WithRetryBackoff(time.Millisecond),
	)
	return &Engine{
		Config:       cfg,
		Clock:        clock,
		Ledger:       ledger,
		Catalog:      cat,
		Users:        users,
		Orchestrator: orch,
		Grants:       grants.NewService(cfg, ledger, nil, nil),
		Register:     register.NewService(cfg, users, ledger, nil),
	}
}

// MustIngest appends a catalog item, panicking on error. Test setup helper.
func (e *Engine) MustIngest(subject string, tier core.Tier, label, payloadRef string) int64 {
	item, err := e.Catalog.Ingest(context.Background(), subject, tier, label, payloadRef)
	if err != nil {
		panic("probekit testing: ingest failed: " + err.Error())
	}
	return item.ID
}

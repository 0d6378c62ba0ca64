package memorystore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/open-rails/probekit/core"
	"github.com/open-rails/probekit/entitlements"
)

// Ledger is an in-memory entitlement ledger with the same contract as the
// postgres store. Intended for tests and single-node development; all state
// transitions run under one lock, so commit-time re-validation observes the
// latest state exactly as the guarded UPDATE does in postgres.
type Ledger struct {
	mu       sync.Mutex
	cfg      *core.Config
	records  map[recordKey]*entitlements.Record
	cooldown map[cooldownKey]time.Time
	receipts []entitlements.Receipt
}

type recordKey struct {
	userID  int64
	subject string
	tier    core.Tier
}

type cooldownKey struct {
	userID  int64
	subject string
	scope   string
}

// NewLedger creates an empty in-memory ledger.
func NewLedger(cfg *core.Config) *Ledger {
	return &Ledger{
		cfg:      cfg,
		records:  make(map[recordKey]*entitlements.Record),
		cooldown: make(map[cooldownKey]time.Time),
	}
}

// Ensure creates the record if absent. Idempotent.
func (l *Ledger) Ensure(_ context.Context, userID int64, subject string, tier core.Tier, defaultQuota int) error {
	if defaultQuota < 0 {
		return fmt.Errorf("%w: negative default quota", core.ErrInvalidArgument)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	k := recordKey{userID, subject, tier}
	if _, ok := l.records[k]; ok {
		return nil
	}
	l.records[k] = &entitlements.Record{
		UserID:    userID,
		Subject:   subject,
		Tier:      tier,
		Remaining: defaultQuota,
	}
	return nil
}

// Read returns a copy of the record, or nil when absent.
func (l *Ledger) Read(_ context.Context, userID int64, subject string, tier core.Tier) (*entitlements.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[recordKey{userID, subject, tier}]
	if !ok {
		return nil, nil
	}
	out := *rec
	if next, ok := l.cooldown[l.cooldownKeyFor(userID, subject, tier)]; ok {
		t := next
		out.CooldownUntil = &t
	}
	return &out, nil
}

// Cooldown returns the applicable deadline, or nil when none is recorded.
func (l *Ledger) Cooldown(_ context.Context, userID int64, subject string, tier core.Tier) (*time.Time, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if next, ok := l.cooldown[l.cooldownKeyFor(userID, subject, tier)]; ok {
		t := next
		return &t, nil
	}
	return nil, nil
}

// Grant adds delta to the remaining count, creating the record if absent.
func (l *Ledger) Grant(_ context.Context, userID int64, subject string, tier core.Tier, delta int) (int, error) {
	if delta <= 0 {
		return 0, fmt.Errorf("%w: grant delta must be positive", core.ErrInvalidArgument)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	k := recordKey{userID, subject, tier}
	rec, ok := l.records[k]
	if !ok {
		rec = &entitlements.Record{UserID: userID, Subject: subject, Tier: tier}
		l.records[k] = rec
	}
	rec.Remaining += delta
	return rec.Remaining, nil
}

// CommitDelivery re-validates remaining > 0 and cursor < itemID under the
// lock, then applies the transition and appends a receipt.
func (l *Ledger) CommitDelivery(_ context.Context, userID int64, subject string, tier core.Tier, itemID int64, cooldown time.Duration, now time.Time) (*entitlements.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[recordKey{userID, subject, tier}]
	if !ok || rec.Remaining <= 0 || rec.Cursor >= itemID {
		return nil, core.ErrPreconditionFailed
	}
	rec.Remaining--
	rec.Cursor = itemID

	ck := l.cooldownKeyFor(userID, subject, tier)
	next := now.Add(cooldown)
	if prev, ok := l.cooldown[ck]; !ok || next.After(prev) {
		l.cooldown[ck] = next
	}

	r := entitlements.Receipt{
		ID:          uuid.New(),
		UserID:      userID,
		Subject:     subject,
		Tier:        tier,
		ItemID:      itemID,
		DeliveredAt: now,
	}
	l.receipts = append(l.receipts, r)
	return &r, nil
}

// PurgeReceipts drops receipts delivered before the given time.
func (l *Ledger) PurgeReceipts(_ context.Context, before time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.receipts[:0]
	var purged int64
	for _, r := range l.receipts {
		if r.DeliveredAt.Before(before) {
			purged++
			continue
		}
		kept = append(kept, r)
	}
	l.receipts = kept
	return purged, nil
}

// Receipts returns a snapshot of all receipts, oldest first.
func (l *Ledger) Receipts() []entitlements.Receipt {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]entitlements.Receipt, len(l.receipts))
	copy(out, l.receipts)
	return out
}

func (l *Ledger) cooldownKeyFor(userID int64, subject string, tier core.Tier) cooldownKey {
	return cooldownKey{userID, subject, l.cfg.CooldownKey(tier)}
}

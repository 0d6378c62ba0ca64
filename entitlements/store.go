package entitlements

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/open-rails/probekit/core"
)

// Store is the postgres entitlement ledger. All admission-relevant writes go
// through CommitDelivery, which re-validates its preconditions inside the
// transaction so concurrent requests for the same key cannot double-spend.
type Store struct {
	pg       *pgxpool.Pool
	schema   string
	cfg      *core.Config
	lockWait time.Duration
}

// NewStore builds a ledger over the given pool. lockWait bounds how long a
// commit may wait for the per-key row lock; 0 uses a 2s default.
func NewStore(pg *pgxpool.Pool, schema string, cfg *core.Config, lockWait time.Duration) *Store {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = "probes"
	}
	if lockWait <= 0 {
		lockWait = 2 * time.Second
	}
	return &Store{pg: pg, schema: s, cfg: cfg, lockWait: lockWait}
}

func (s *Store) entitlementsTable() string { return s.schema + ".entitlements" }
func (s *Store) cooldownsTable() string    { return s.schema + ".cooldowns" }
func (s *Store) receiptsTable() string     { return s.schema + ".delivery_receipts" }

// Ensure creates the record if absent with the given starting quota, cursor 0
// and no cooldown. Idempotent; an existing record is left untouched.
func (s *Store) Ensure(ctx context.Context, userID int64, subject string, tier core.Tier, defaultQuota int) error {
	if defaultQuota < 0 {
		return fmt.Errorf("%w: negative default quota", core.ErrInvalidArgument)
	}
	_, err := s.pg.Exec(ctx, `
		INSERT INTO `+s.entitlementsTable()+` (user_id, subject, tier, remaining_count, cursor)
		VALUES ($1, $2, $3, $4, 0)
		ON CONFLICT (user_id, subject, tier) DO NOTHING
	`, userID, subject, string(tier), defaultQuota)
	if err != nil {
		return storeErr(err)
	}
	return nil
}

// Read returns the record for the key, or nil when absent. CooldownUntil is
// resolved under the configured cooldown scope.
func (s *Store) Read(ctx context.Context, userID int64, subject string, tier core.Tier) (*Record, error) {
	rec := &Record{UserID: userID, Subject: subject, Tier: tier}
	err := s.pg.QueryRow(ctx, `
		SELECT e.remaining_count, e.cursor, c.next_time
		FROM `+s.entitlementsTable()+` e
		LEFT JOIN `+s.cooldownsTable()+` c
		  ON c.user_id = e.user_id AND c.subject = e.subject AND c.scope_key = $4
		WHERE e.user_id = $1 AND e.subject = $2 AND e.tier = $3
	`, userID, subject, string(tier), s.cfg.CooldownKey(tier)).Scan(&rec.Remaining, &rec.Cursor, &rec.CooldownUntil)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return rec, nil
}

// Cooldown returns the deadline applicable to the key under the configured
// scope, or nil when none is recorded. Unlike Read it does not require the
// entitlement record to exist, since a shared-scope cooldown stamped by one
// tier must gate tiers whose records were never created.
func (s *Store) Cooldown(ctx context.Context, userID int64, subject string, tier core.Tier) (*time.Time, error) {
	var next time.Time
	err := s.pg.QueryRow(ctx, `
		SELECT next_time FROM `+s.cooldownsTable()+`
		WHERE user_id = $1 AND subject = $2 AND scope_key = $3
	`, userID, subject, s.cfg.CooldownKey(tier)).Scan(&next)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return &next, nil
}

// Grant atomically adds delta to the remaining count, creating the record if
// absent, and returns the new remaining count.
func (s *Store) Grant(ctx context.Context, userID int64, subject string, tier core.Tier, delta int) (int, error) {
	if delta <= 0 {
		return 0, fmt.Errorf("%w: grant delta must be positive", core.ErrInvalidArgument)
	}
	var remaining int
	err := s.pg.QueryRow(ctx, `
		INSERT INTO `+s.entitlementsTable()+` (user_id, subject, tier, remaining_count, cursor)
		VALUES ($1, $2, $3, $4, 0)
		ON CONFLICT (user_id, subject, tier)
		DO UPDATE SET remaining_count = `+s.entitlementsTable()+`.remaining_count + EXCLUDED.remaining_count
		RETURNING remaining_count
	`, userID, subject, string(tier), delta).Scan(&remaining)
	if err != nil {
		return 0, storeErr(err)
	}
	return remaining, nil
}

// CommitDelivery performs the atomic admission transition: decrement quota,
// advance the cursor to itemID, stamp the cooldown, and write a receipt. The
// guarded UPDATE both takes the row lock and re-validates remaining_count > 0
// and cursor < itemID, so a request that read stale state fails here with
// ErrPreconditionFailed instead of double-spending.
func (s *Store) CommitDelivery(ctx context.Context, userID int64, subject string, tier core.Tier, itemID int64, cooldown time.Duration, now time.Time) (*Receipt, error) {
	tx, err := s.pg.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, storeErr(err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf(`SET LOCAL lock_timeout = '%dms'`, s.lockWait.Milliseconds())); err != nil {
		return nil, storeErr(err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE `+s.entitlementsTable()+`
		SET remaining_count = remaining_count - 1, cursor = $4
		WHERE user_id = $1 AND subject = $2 AND tier = $3
		  AND remaining_count > 0 AND cursor < $4
	`, userID, subject, string(tier), itemID)
	if err != nil {
		return nil, storeErr(err)
	}
	if tag.RowsAffected() == 0 {
		return nil, core.ErrPreconditionFailed
	}

	// GREATEST keeps the deadline monotone even if a longer window was
	// stamped by a concurrent commit under a shared scope.
	next := now.Add(cooldown)
	if _, err := tx.Exec(ctx, `
		INSERT INTO `+s.cooldownsTable()+` (user_id, subject, scope_key, next_time)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, subject, scope_key)
		DO UPDATE SET next_time = GREATEST(`+s.cooldownsTable()+`.next_time, EXCLUDED.next_time)
	`, userID, subject, s.cfg.CooldownKey(tier), next); err != nil {
		return nil, storeErr(err)
	}

	r := &Receipt{
		ID:          uuid.New(),
		UserID:      userID,
		Subject:     subject,
		Tier:        tier,
		ItemID:      itemID,
		DeliveredAt: now,
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO `+s.receiptsTable()+` (id, user_id, subject, tier, item_id, delivered_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.ID, r.UserID, r.Subject, string(r.Tier), r.ItemID, r.DeliveredAt); err != nil {
		return nil, storeErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storeErr(err)
	}
	return r, nil
}

// PurgeReceipts deletes receipts delivered before the given time, returning
// how many were removed. Called by the maintenance scheduler.
func (s *Store) PurgeReceipts(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pg.Exec(ctx, `DELETE FROM `+s.receiptsTable()+` WHERE delivered_at < $1`, before)
	if err != nil {
		return 0, storeErr(err)
	}
	return tag.RowsAffected(), nil
}

// storeErr maps postgres failures onto the engine taxonomy: lock-wait expiry
// and serialization failures become ErrConflict, everything else surfaces as
// ErrUnavailable for the orchestrator's retry-once policy.
func storeErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03", "40001", "40P01": // lock_not_available, serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %s", core.ErrConflict, pgErr.Code)
		}
	}
	return fmt.Errorf("%w: %v", core.ErrUnavailable, err)
}

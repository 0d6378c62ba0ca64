package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/open-rails/probekit/core"
)

// Store is the postgres catalog of downloadable items.
type Store struct {
	pg     *pgxpool.Pool
	schema string
}

func NewStore(pg *pgxpool.Pool, schema string) *Store {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = "probes"
	}
	return &Store{pg: pg, schema: s}
}

func (s *Store) itemsTable() string { return s.schema + ".items" }

// Ingest appends a new item with an id greater than all existing ids in the
// (subject, tier) partition. The table's bigserial id is globally monotonic,
// which satisfies per-partition monotonicity.
func (s *Store) Ingest(ctx context.Context, subject string, tier core.Tier, label, payloadRef string) (*Item, error) {
	if strings.TrimSpace(payloadRef) == "" {
		return nil, fmt.Errorf("%w: empty payload reference", core.ErrInvalidArgument)
	}
	it := &Item{Subject: subject, Tier: tier, Label: label, PayloadRef: payloadRef}
	err := s.pg.QueryRow(ctx, `
		INSERT INTO `+s.itemsTable()+` (subject, tier, label, payload_ref)
		VALUES ($1, $2, $3, $4)
		RETURNING id, ingested_at
	`, subject, string(tier), label, payloadRef).Scan(&it.ID, &it.IngestedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUnavailable, err)
	}
	return it, nil
}

// NextItem returns the item with the smallest id strictly greater than
// afterID, or ErrNotFound when the partition is exhausted past the cursor.
func (s *Store) NextItem(ctx context.Context, subject string, tier core.Tier, afterID int64) (*Item, error) {
	return s.pickItem(ctx, `
		SELECT id, subject, tier, label, payload_ref, ingested_at
		FROM `+s.itemsTable()+`
		WHERE subject = $1 AND tier = $2 AND id > $3
		ORDER BY id
		LIMIT 1
	`, subject, string(tier), afterID)
}

// RandomItem returns a uniformly chosen item from the partition, for
// privileged callers with no cursor.
func (s *Store) RandomItem(ctx context.Context, subject string, tier core.Tier) (*Item, error) {
	return s.pickItem(ctx, `
		SELECT id, subject, tier, label, payload_ref, ingested_at
		FROM `+s.itemsTable()+`
		WHERE subject = $1 AND tier = $2
		ORDER BY random()
		LIMIT 1
	`, subject, string(tier))
}

func (s *Store) pickItem(ctx context.Context, query string, args ...any) (*Item, error) {
	var it Item
	var tier string
	err := s.pg.QueryRow(ctx, query, args...).Scan(&it.ID, &it.Subject, &tier, &it.Label, &it.PayloadRef, &it.IngestedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUnavailable, err)
	}
	it.Tier = core.Tier(tier)
	return &it, nil
}

package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/open-rails/probekit/core"
)

// Store provides user lookups/mutations against the users table.
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

func (s *Store) usersTable() string { return s.schema + ".users" }

// User is a chat user known to the system. Immutable after first contact
// except display metadata.
type User struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	JoinedAt  time.Time
}

// RegisterIfAbsent upserts the user and reports whether this was first
// contact. Display metadata is refreshed on repeat contact.
func (s *Store) RegisterIfAbsent(ctx context.Context, userID int64, p core.Profile) (bool, error) {
	var inserted bool
	err := s.pg.QueryRow(ctx, `
		INSERT INTO `+s.usersTable()+` (user_id, username, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id)
		DO UPDATE SET username = EXCLUDED.username, first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name
		RETURNING (xmax = 0)
	`, userID, p.Username, p.FirstName, p.LastName).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("%w: %v", core.ErrUnavailable, err)
	}
	return inserted, nil
}

// GetByID returns the user, or nil when unknown.
func (s *Store) GetByID(ctx context.Context, userID int64) (*User, error) {
	var u User
	err := s.pg.QueryRow(ctx, `
		SELECT user_id, COALESCE(username, ''), COALESCE(first_name, ''), COALESCE(last_name, ''), joined_at
		FROM `+s.usersTable()+` WHERE user_id = $1
	`, userID).Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUnavailable, err)
	}
	return &u, nil
}

// Count returns the number of registered users.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pg.QueryRow(ctx, `SELECT COUNT(*) FROM `+s.usersTable()).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrUnavailable, err)
	}
	return n, nil
}

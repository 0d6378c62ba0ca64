package core

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors shared by the ledger, catalog, and orchestrator.
var (
	// ErrCooldownActive denies a delivery inside the cooldown window.
	// Returned wrapped in a CooldownError carrying the remaining duration.
	ErrCooldownActive = errors.New("probekit: cooldown active")

	// ErrQuotaExhausted covers both "no record" and "remaining count is zero".
	ErrQuotaExhausted = errors.New("probekit: quota exhausted")

	// ErrCatalogExhausted means the cursor already points at the highest item
	// in the partition.
	ErrCatalogExhausted = errors.New("probekit: catalog exhausted")

	// ErrConflict means a delivery lost a commit race or timed out waiting for
	// the per-key lock.
	ErrConflict = errors.New("probekit: conflict")

	// ErrInvalidArgument rejects malformed inputs such as a non-positive grant.
	ErrInvalidArgument = errors.New("probekit: invalid argument")

	// ErrInvalidSubject rejects a (subject, tier) pair that is not configured.
	ErrInvalidSubject = errors.New("probekit: unknown subject or tier")

	// ErrUnavailable signals a storage collaborator failure. The orchestrator
	// retries it once with backoff before surfacing it.
	ErrUnavailable = errors.New("probekit: persistence unavailable")

	// ErrNotFound is returned by stores when a record or item is absent.
	ErrNotFound = errors.New("probekit: not found")

	// ErrPreconditionFailed is returned by CommitDelivery when the re-check
	// inside the transaction no longer holds.
	ErrPreconditionFailed = errors.New("probekit: precondition failed")
)

// CooldownError carries the time left until the next delivery is permitted.
type CooldownError struct {
	Until     time.Time
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("probekit: cooldown active for %s", e.Remaining.Round(time.Second))
}

// Is makes CooldownError match ErrCooldownActive under errors.Is.
func (e *CooldownError) Is(target error) bool { return target == ErrCooldownActive }

// NewCooldownError builds the denial for a window ending at until.
func NewCooldownError(now, until time.Time) *CooldownError {
	return &CooldownError{Until: until, Remaining: until.Sub(now)}
}

// QuotaError distinguishes a record that never existed from one whose
// remaining count was spent. Presentation layers use NoRecord to offer the
// purchase wording instead of the spent-limit one.
type QuotaError struct {
	NoRecord bool
}

func (e *QuotaError) Error() string {
	if e.NoRecord {
		return "probekit: quota exhausted (no record)"
	}
	return "probekit: quota exhausted"
}

// Is makes QuotaError match ErrQuotaExhausted under errors.Is.
func (e *QuotaError) Is(target error) bool { return target == ErrQuotaExhausted }

// IsDenial reports whether err reflects legitimate business state rather than
// a failure. Denials are terminal for the request and never retried.
func IsDenial(err error) bool {
	return errors.Is(err, ErrCooldownActive) ||
		errors.Is(err, ErrQuotaExhausted) ||
		errors.Is(err, ErrCatalogExhausted) ||
		errors.Is(err, ErrConflict)
}

// IsRetryable reports whether the orchestrator may retry the operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

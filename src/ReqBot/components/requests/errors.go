package requests

import (
	"errors"
	"fmt"
	"time"

	"github.com/sendcrew/reqbot/src/shared/types"
)

var (
	// ErrInvalidShowcaseLink reports a showcase URL that doesn't match the
	// accepted video link pattern.
	ErrInvalidShowcaseLink = errors.New("requests: invalid showcase link")

	// ErrNotFound reports an id that doesn't resolve to a request.
	ErrNotFound = errors.New("requests: no such request")

	// ErrQueueBlocked reports a submission attempted while the queue gate
	// is closed.
	ErrQueueBlocked = errors.New("requests: the queue is currently closed")
)

// LevelAlreadyApprovedError blocks re-requesting a level that has an
// approved resolution on record.
type LevelAlreadyApprovedError struct {
	AuthorMention string
	RequestedAt   *time.Time
	ResolvedAt    time.Time
}

func (e LevelAlreadyApprovedError) Error() string {
	return fmt.Sprintf("requests: level already approved on %s", e.ResolvedAt.Format(time.RFC3339))
}

// PreviousRequestPendingError blocks re-requesting a level that still has
// an unresolved request.
type PreviousRequestPendingError struct {
	AuthorMention string
	RequestedAt   *time.Time
}

func (e PreviousRequestPendingError) Error() string {
	return "requests: a previous request for this level is still pending"
}

// OnCooldownError halts a submission while the invoking user or the
// level is still restricted; it carries the cooldown so the caller can
// report the exact end.
type OnCooldownError struct {
	Cooldown types.Cooldown
}

func (e OnCooldownError) Error() string {
	if e.Cooldown.Endless() {
		return fmt.Sprintf("requests: %s %s is on an endless cooldown", e.Cooldown.Entity, e.Cooldown.EntityID)
	}
	return fmt.Sprintf("requests: %s %s is on cooldown until %s", e.Cooldown.Entity, e.Cooldown.EntityID, e.Cooldown.EndsAt.Format(time.RFC3339))
}

package cooldown

import (
	"errors"
	"fmt"
	"time"

	"github.com/sendcrew/reqbot/src/shared/types"
)

// ErrEndless is returned when trying to shift the end of a cooldown that
// has no end.
var ErrEndless = errors.New("cooldown: cannot adjust an endless cooldown")

// AlreadyOnCooldownError carries the existing cooldown so the caller can
// show it and ask for the force confirmation.
type AlreadyOnCooldownError struct {
	Current types.Cooldown
}

func (e AlreadyOnCooldownError) Error() string {
	if e.Current.Endless() {
		return fmt.Sprintf("cooldown: %s %s is already on an endless cooldown", e.Current.Entity, e.Current.EntityID)
	}
	return fmt.Sprintf("cooldown: %s %s is already on cooldown until %s", e.Current.Entity, e.Current.EntityID, e.Current.EndsAt.Format(time.RFC3339))
}

// EndInPastError reports a manual change whose resulting end would not be
// in the future.
type EndInPastError struct {
	EndsAt time.Time
}

func (e EndInPastError) Error() string {
	return fmt.Sprintf("cooldown: resulting end %s is in the past", e.EndsAt.Format(time.RFC3339))
}

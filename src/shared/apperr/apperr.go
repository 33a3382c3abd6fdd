// Package apperr holds error values shared across engine packages.
package apperr

import "errors"

// ErrAlreadySatisfies marks an operation that would have no effect given
// the current state of the entity (amending a missing cooldown, setting a
// parameter to its current value). Callers render it as a neutral
// "no effect" notice, not as a failure.
var ErrAlreadySatisfies = errors.New("already satisfies the requested state")

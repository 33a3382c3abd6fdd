// Package cooldown is the TTL-keyed restriction store. At most one row
// exists per (entity kind, entity id); the absence of a row means the
// entity is unrestricted. Expired rows are purged lazily on reads, never
// by a timer.
package cooldown

import (
	"errors"
	"fmt"
	"time"

	"github.com/sendcrew/reqbot/src/eventlog"
	"github.com/sendcrew/reqbot/src/params"
	"github.com/sendcrew/reqbot/src/shared/apperr"
	"github.com/sendcrew/reqbot/src/shared/data"
	"github.com/sendcrew/reqbot/src/shared/duration"
	"github.com/sendcrew/reqbot/src/shared/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Engine struct {
	provider *data.Provider
	params   *params.Store
	events   *eventlog.Logger
	now      func() time.Time
}

func NewEngine(provider *data.Provider, paramStore *params.Store, events *eventlog.Logger) *Engine {
	return &Engine{
		provider: provider,
		params:   paramStore,
		events:   events,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (e *Engine) purgeExpired(db *gorm.DB) error {
	return db.Delete(&types.Cooldown{}, "ends_at IS NOT NULL AND ends_at <= ?", e.now()).Error
}

// GetCurrent purges expired rows, then looks up the cooldown for one
// entity. nil means unrestricted.
func (e *Engine) GetCurrent(entity types.CooldownEntity, entityID string) (*types.Cooldown, error) {
	db, err := e.provider.DB()
	if err != nil {
		return nil, err
	}
	if err := e.purgeExpired(db); err != nil {
		return nil, err
	}

	var row types.Cooldown
	err = db.First(&row, "entity = ? AND entity_id = ?", entity, entityID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// exceedsCurrent reports whether a candidate end strengthens the current
// one. An endless current is never exceeded; an endless candidate always
// exceeds a finite current.
func exceedsCurrent(current, candidate *time.Time) bool {
	if current == nil {
		return false
	}
	return candidate == nil || candidate.After(*current)
}

// CastAfterRequest applies the configured post-submission cooldown. The
// cast is monotonic: it never weakens whatever cooldown is already in
// place, whether system- or human-cast.
func (e *Engine) CastAfterRequest(entity types.CooldownEntity, entityID string, requestID uint64) error {
	paramID := params.PostRequestUserCooldown
	if entity == types.CooldownEntityLevel {
		paramID = params.PostRequestLevelCooldown
	}

	raw, err := e.params.GetString(paramID)
	if err != nil {
		return err
	}
	if duration.IsNull(raw) {
		return nil
	}

	current, err := e.GetCurrent(entity, entityID)
	if err != nil {
		return err
	}

	now := e.now()
	var newEndsAt *time.Time
	if !duration.IsInfinite(raw) {
		ends := now.Add(duration.ParseAbs(raw))
		newEndsAt = &ends
	}

	if current != nil && !exceedsCurrent(current.EndsAt, newEndsAt) {
		return nil
	}

	reason := "Recently requested a level"
	if entity == types.CooldownEntityLevel {
		reason = "Was recently requested"
	}

	row := types.Cooldown{
		Entity:           entity,
		EntityID:         entityID,
		CastAt:           now,
		EndsAt:           newEndsAt,
		Reason:           fmt.Sprintf("%s (request ID: %d)", reason, requestID),
		CausingRequestID: &requestID,
	}
	return e.save(&row)
}

// ManuallySet casts or overwrites a cooldown by hand. Overwriting an
// existing cooldown requires force, which callers only pass after an
// explicit confirmation step. A nil dur means endless.
func (e *Engine) ManuallySet(entity types.CooldownEntity, entityID, casterID string, dur *time.Duration, reason string, force bool) error {
	now := e.now()

	var newEndsAt *time.Time
	if dur != nil {
		ends := now.Add(*dur)
		if *dur <= 0 {
			return EndInPastError{EndsAt: ends}
		}
		newEndsAt = &ends
	}

	current, err := e.GetCurrent(entity, entityID)
	if err != nil {
		return err
	}
	if current != nil && !force {
		return AlreadyOnCooldownError{Current: *current}
	}

	row := types.Cooldown{
		Entity:       entity,
		EntityID:     entityID,
		CastAt:       now,
		EndsAt:       newEndsAt,
		Reason:       reason,
		CasterUserID: casterID,
	}
	if err := e.save(&row); err != nil {
		return err
	}

	e.logUpdate(entity, entityID, casterID, currentEnd(current), stringifyEnd(newEndsAt), reason)
	return nil
}

// ManuallyModify shifts the current end by a signed delta. With no
// current cooldown the delta is applied to now.
func (e *Engine) ManuallyModify(entity types.CooldownEntity, entityID, casterID string, delta time.Duration, reason string) error {
	current, err := e.GetCurrent(entity, entityID)
	if err != nil {
		return err
	}
	if current != nil && current.Endless() {
		return ErrEndless
	}

	now := e.now()
	origin := now
	if current != nil {
		origin = *current.EndsAt
	}
	newEndsAt := origin.Add(delta)
	if !newEndsAt.After(now) {
		return EndInPastError{EndsAt: newEndsAt}
	}

	row := types.Cooldown{
		Entity:       entity,
		EntityID:     entityID,
		CastAt:       now,
		EndsAt:       &newEndsAt,
		Reason:       reason,
		CasterUserID: casterID,
	}
	if err := e.save(&row); err != nil {
		return err
	}

	e.logUpdate(entity, entityID, casterID, currentEnd(current), stringifyEnd(&newEndsAt), reason)
	return nil
}

// ManuallyAmend clears a cooldown early. Amending a non-existing cooldown
// is the no-op class, not an error.
func (e *Engine) ManuallyAmend(entity types.CooldownEntity, entityID, casterID, reason string) error {
	current, err := e.GetCurrent(entity, entityID)
	if err != nil {
		return err
	}
	if current == nil {
		return apperr.ErrAlreadySatisfies
	}

	db, err := e.provider.DB()
	if err != nil {
		return err
	}
	if err := db.Delete(&types.Cooldown{}, "entity = ? AND entity_id = ?", entity, entityID).Error; err != nil {
		return err
	}

	e.logUpdate(entity, entityID, casterID, currentEnd(current), "not on cooldown", reason)
	return nil
}

// ListTemporary pages through finite cooldowns, soonest-expiring first.
func (e *Engine) ListTemporary(entity types.CooldownEntity, limit, offset int) ([]types.Cooldown, error) {
	db, err := e.provider.DB()
	if err != nil {
		return nil, err
	}
	if offset == 0 {
		if err := e.purgeExpired(db); err != nil {
			return nil, err
		}
	}

	var rows []types.Cooldown
	err = db.Where("entity = ? AND ends_at IS NOT NULL", entity).
		Order("ends_at ASC, cast_at ASC").
		Limit(limit).Offset(offset).
		Find(&rows).Error
	return rows, err
}

// ListEndless pages through permanent cooldowns, oldest cast first.
func (e *Engine) ListEndless(entity types.CooldownEntity, limit, offset int) ([]types.Cooldown, error) {
	db, err := e.provider.DB()
	if err != nil {
		return nil, err
	}

	var rows []types.Cooldown
	err = db.Where("entity = ? AND ends_at IS NULL", entity).
		Order("cast_at ASC").
		Limit(limit).Offset(offset).
		Find(&rows).Error
	return rows, err
}

func (e *Engine) save(row *types.Cooldown) error {
	db, err := e.provider.DB()
	if err != nil {
		return err
	}
	return db.Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error
}

func (e *Engine) logUpdate(entity types.CooldownEntity, entityID, casterID, old, updated, reason string) {
	eventType := eventlog.EventUserCooldownUpdated
	idKey := "target_user_id"
	if entity == types.CooldownEntityLevel {
		eventType = eventlog.EventLevelCooldownUpdated
		idKey = "target_level_id"
	}

	if reason == "" {
		reason = "no reason"
	}
	e.events.Record(eventType, casterID, map[string]string{
		idKey:    entityID,
		"old":    old,
		"new":    updated,
		"reason": reason,
	})
}

func currentEnd(current *types.Cooldown) string {
	if current == nil {
		return "not on cooldown"
	}
	return stringifyEnd(current.EndsAt)
}

func stringifyEnd(endsAt *time.Time) string {
	if endsAt == nil {
		return "forever"
	}
	return "until " + endsAt.Format(time.RFC3339)
}

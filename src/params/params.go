// Package params is the typed parameter store: overrides live in the
// database, defaults in code. Values are normalized against the declared
// type before being written, and every edit is audited.
package params

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sendcrew/reqbot/src/eventlog"
	"github.com/sendcrew/reqbot/src/shared/apperr"
	"github.com/sendcrew/reqbot/src/shared/data"
	"github.com/sendcrew/reqbot/src/shared/duration"
	"github.com/sendcrew/reqbot/src/shared/types"
	"gorm.io/gorm"
)

var ErrUnknownParameter = errors.New("params: unknown parameter")

// BadValueError reports a raw value that doesn't normalize against the
// parameter's declared type.
type BadValueError struct {
	ID    string
	Type  ValueType
	Value string
}

func (e BadValueError) Error() string {
	return fmt.Sprintf("params: %q is not a valid %s value for %s", e.Value, e.Type, e.ID)
}

type Store struct {
	provider *data.Provider
	events   *eventlog.Logger
}

func NewStore(provider *data.Provider, events *eventlog.Logger) *Store {
	return &Store{provider: provider, events: events}
}

// Raw returns the effective raw value: the stored override if present,
// the in-code default otherwise.
func (s *Store) Raw(id string) (string, error) {
	def, ok := definitions[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownParameter, id)
	}

	db, err := s.provider.DB()
	if err != nil {
		return "", err
	}

	var row types.ParameterValue
	err = db.First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return def.Default, nil
	}
	if err != nil {
		return "", err
	}
	return row.Value, nil
}

func (s *Store) GetBool(id string) (bool, error) {
	raw, err := s.Raw(id)
	if err != nil {
		return false, err
	}
	return raw == "true", nil
}

func (s *Store) GetInt(id string) (int, error) {
	raw, err := s.Raw(id)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(raw)
}

func (s *Store) GetString(id string) (string, error) {
	return s.Raw(id)
}

// Update normalizes and stores an override. Writing the value the
// parameter already resolves to raises apperr.ErrAlreadySatisfies.
func (s *Store) Update(id, rawValue, actorID string) error {
	def, ok := definitions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParameter, id)
	}

	normalized, err := normalize(def, rawValue)
	if err != nil {
		return err
	}

	db, err := s.provider.DB()
	if err != nil {
		return err
	}

	var row types.ParameterValue
	err = db.First(&row, "id = ?", id).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if def.Default == normalized {
			return apperr.ErrAlreadySatisfies
		}
		row = types.ParameterValue{ID: id, Value: normalized}
	case err != nil:
		return err
	default:
		if row.Value == normalized {
			return apperr.ErrAlreadySatisfies
		}
		row.Value = normalized
	}

	if err := db.Save(&row).Error; err != nil {
		return err
	}

	s.events.Record(eventlog.EventParameterEdited, actorID, map[string]string{
		"parameter_id": id,
		"value":        normalized,
	})
	return nil
}

// Reset drops the override so the parameter falls back to its default.
func (s *Store) Reset(id, actorID string) error {
	def, ok := definitions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParameter, id)
	}

	db, err := s.provider.DB()
	if err != nil {
		return err
	}

	result := db.Delete(&types.ParameterValue{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.ErrAlreadySatisfies
	}

	s.events.Record(eventlog.EventParameterEdited, actorID, map[string]string{
		"parameter_id": id,
		"value":        def.Default,
	})
	return nil
}

// Explain returns the definition plus the current effective value.
func (s *Store) Explain(id string) (Definition, string, error) {
	def, ok := definitions[id]
	if !ok {
		return Definition{}, "", fmt.Errorf("%w: %s", ErrUnknownParameter, id)
	}
	current, err := s.Raw(id)
	return def, current, err
}

func normalize(def Definition, rawValue string) (string, error) {
	value := strings.TrimSpace(strings.ToLower(rawValue))

	switch def.Type {
	case TypeBool:
		if value != "true" && value != "false" {
			return "", BadValueError{ID: def.ID, Type: def.Type, Value: rawValue}
		}
		return value, nil
	case TypeUint:
		if n, err := strconv.Atoi(value); err != nil || n < 0 {
			return "", BadValueError{ID: def.ID, Type: def.Type, Value: rawValue}
		}
		return value, nil
	case TypeNatural:
		if n, err := strconv.Atoi(value); err != nil || n < 1 {
			return "", BadValueError{ID: def.ID, Type: def.Type, Value: rawValue}
		}
		return value, nil
	case TypeDuration:
		normalized, err := duration.Normalize(value, duration.TypeAbsolute)
		if err != nil {
			return "", BadValueError{ID: def.ID, Type: def.Type, Value: rawValue}
		}
		return normalized, nil
	default:
		return strings.TrimSpace(rawValue), nil
	}
}

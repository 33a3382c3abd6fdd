package data

import (
	"sync"

	"github.com/sendcrew/reqbot/src/shared/types"
	"gorm.io/gorm"
)

// Settings is the read-mostly deployment configuration cached from the
// settings table. The zero value is usable and resolves everything to
// the empty string.
type Settings struct {
	mu     sync.RWMutex
	values map[string]string
}

// LoadSettings reads the whole settings table into a fresh cache.
func LoadSettings(db *gorm.DB) (*Settings, error) {
	settings := &Settings{}
	if err := settings.Refresh(db); err != nil {
		return nil, err
	}
	return settings, nil
}

// Refresh re-reads the table and replaces the cached values wholesale.
func (s *Settings) Refresh(db *gorm.DB) error {
	var rows []types.Setting
	if err := db.Find(&rows).Error; err != nil {
		return err
	}

	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[row.Name] = row.Value
	}

	s.mu.Lock()
	s.values = values
	s.mu.Unlock()
	return nil
}

// Get returns the cached value, empty when the setting is absent.
func (s *Settings) Get(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[name]
}

// GetOr returns the cached value, or fallback when it is absent or empty.
func (s *Settings) GetOr(name, fallback string) string {
	if value := s.Get(name); value != "" {
		return value
	}
	return fallback
}

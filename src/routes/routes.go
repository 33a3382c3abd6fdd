// Package routes maps logical message destinations to Discord channels.
// A route can be disabled, in which case posting through it is a silent
// no-op rather than an error.
package routes

import (
	"fmt"
	"sync"

	"github.com/sendcrew/reqbot/src/shared/data"
	"github.com/sendcrew/reqbot/src/shared/types"
)

const (
	PendingRequest        = "pending_request"
	Resolution            = "resolution"
	Archive               = "archive"
	ReviewText            = "review_text"
	ApprovalNotification  = "approval_notification"
	RejectionNotification = "rejection_notification"
	RequestsClosed        = "requests_closed"
	RequestsReopened      = "requests_reopened"
	Log                   = "log"
)

var knownRoutes = []string{
	PendingRequest,
	Resolution,
	Archive,
	ReviewText,
	ApprovalNotification,
	RejectionNotification,
	RequestsClosed,
	RequestsReopened,
	Log,
}

type Manager struct {
	provider *data.Provider
	mu       sync.RWMutex
	cache    map[string]types.Route
}

func NewManager(provider *data.Provider) (*Manager, error) {
	m := &Manager{provider: provider, cache: make(map[string]types.Route)}
	if err := m.Reload(); err != nil {
		return nil, fmt.Errorf("load routes: %w", err)
	}
	return m, nil
}

func (m *Manager) Reload() error {
	db, err := m.provider.DB()
	if err != nil {
		return err
	}

	var rows []types.Route
	if err := db.Find(&rows).Error; err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = make(map[string]types.Route, len(rows))
	for _, r := range rows {
		m.cache[r.ID] = r
	}
	return nil
}

// Get returns the route row, or false for unknown or never-configured ids.
func (m *Manager) Get(id string) (types.Route, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.cache[id]
	return r, ok
}

// IsEnabled reports whether the route exists, is enabled and has a channel.
func (m *Manager) IsEnabled(id string) bool {
	r, ok := m.Get(id)
	return ok && r.Enabled && r.ChannelID != ""
}

func (m *Manager) ChannelID(id string) string {
	r, _ := m.Get(id)
	return r.ChannelID
}

// Bind points a route at a channel and enables it.
func (m *Manager) Bind(id, channelID string) error {
	if !isKnown(id) {
		return fmt.Errorf("routes: unknown route %q", id)
	}

	db, err := m.provider.DB()
	if err != nil {
		return err
	}

	row := types.Route{ID: id, ChannelID: channelID, Enabled: true}
	if err := db.Save(&row).Error; err != nil {
		return err
	}

	m.mu.Lock()
	m.cache[id] = row
	m.mu.Unlock()
	return nil
}

// SetEnabled toggles a route without touching its channel binding.
func (m *Manager) SetEnabled(id string, enabled bool) error {
	db, err := m.provider.DB()
	if err != nil {
		return err
	}

	row, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("routes: route %q is not bound", id)
	}
	row.Enabled = enabled
	if err := db.Save(&row).Error; err != nil {
		return err
	}

	m.mu.Lock()
	m.cache[id] = row
	m.mu.Unlock()
	return nil
}

// Known lists every route id the bot understands.
func Known() []string {
	out := make([]string, len(knownRoutes))
	copy(out, knownRoutes)
	return out
}

func isKnown(id string) bool {
	for _, known := range knownRoutes {
		if known == id {
			return true
		}
	}
	return false
}

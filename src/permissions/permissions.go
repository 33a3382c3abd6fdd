// Package permissions binds permission flags to Discord roles. The bot
// layer consults Has before invoking engine operations; the engines
// themselves never check permissions.
package permissions

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/sendcrew/reqbot/src/eventlog"
	"github.com/sendcrew/reqbot/src/shared/apperr"
	"github.com/sendcrew/reqbot/src/shared/data"
	"github.com/sendcrew/reqbot/src/shared/types"
)

// Permission flags
const (
	FlagAdmin                 = "admin"
	FlagReviewer              = "reviewer"
	FlagModerator             = "moderator"
	FlagRequestManagement     = "request_management"
	FlagNoRequestCooldown     = "no_request_cooldown"
	FlagQueueBlockImmunity    = "queue_block_immunity"
	FlagRemoveOthersCooldowns = "remove_others_cooldowns"
)

var knownFlags = map[string]bool{
	FlagAdmin:                 true,
	FlagReviewer:              true,
	FlagModerator:             true,
	FlagRequestManagement:     true,
	FlagNoRequestCooldown:     true,
	FlagQueueBlockImmunity:    true,
	FlagRemoveOthersCooldowns: true,
}

type Service struct {
	provider *data.Provider
	events   *eventlog.Logger
	mu       sync.RWMutex
	byFlag   map[string]map[string]bool // flag -> role id set
}

func NewService(provider *data.Provider, events *eventlog.Logger) (*Service, error) {
	s := &Service{provider: provider, events: events}
	if err := s.Reload(); err != nil {
		return nil, fmt.Errorf("load permissions: %w", err)
	}
	return s, nil
}

func (s *Service) Reload() error {
	db, err := s.provider.DB()
	if err != nil {
		return err
	}

	var rows []types.PermissionFlag
	if err := db.Find(&rows).Error; err != nil {
		return err
	}

	byFlag := make(map[string]map[string]bool)
	for _, row := range rows {
		if byFlag[row.ID] == nil {
			byFlag[row.ID] = make(map[string]bool)
		}
		byFlag[row.ID][row.RoleID] = true
	}

	s.mu.Lock()
	s.byFlag = byFlag
	s.mu.Unlock()
	return nil
}

// Has reports whether any of the member's roles carries the flag. Admin
// implies every other flag.
func (s *Service) Has(member *discordgo.Member, flag string) bool {
	if member == nil {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, roleID := range member.Roles {
		if s.byFlag[flag][roleID] {
			return true
		}
		if flag != FlagAdmin && s.byFlag[FlagAdmin][roleID] {
			return true
		}
	}
	return false
}

func (s *Service) Bind(flag, roleID, actorID string) error {
	if !knownFlags[flag] {
		return fmt.Errorf("permissions: unknown flag %q", flag)
	}

	db, err := s.provider.DB()
	if err != nil {
		return err
	}

	var existing types.PermissionFlag
	if err := db.First(&existing, "id = ? AND role_id = ?", flag, roleID).Error; err == nil {
		return apperr.ErrAlreadySatisfies
	}

	if err := db.Create(&types.PermissionFlag{ID: flag, RoleID: roleID}).Error; err != nil {
		return err
	}

	s.mu.Lock()
	if s.byFlag[flag] == nil {
		s.byFlag[flag] = make(map[string]bool)
	}
	s.byFlag[flag][roleID] = true
	s.mu.Unlock()

	s.events.Record(eventlog.EventPermissionBound, actorID, map[string]string{
		"flag":    flag,
		"role_id": roleID,
	})
	return nil
}

func (s *Service) Unbind(flag, roleID, actorID string) error {
	db, err := s.provider.DB()
	if err != nil {
		return err
	}

	result := db.Delete(&types.PermissionFlag{}, "id = ? AND role_id = ?", flag, roleID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.ErrAlreadySatisfies
	}

	s.mu.Lock()
	delete(s.byFlag[flag], roleID)
	s.mu.Unlock()

	s.events.Record(eventlog.EventPermissionUnbound, actorID, map[string]string{
		"flag":    flag,
		"role_id": roleID,
	})
	return nil
}

// Roles lists the role ids bound to a flag.
func (s *Service) Roles(flag string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roles := make([]string, 0, len(s.byFlag[flag]))
	for roleID := range s.byFlag[flag] {
		roles = append(roles, roleID)
	}
	return roles
}

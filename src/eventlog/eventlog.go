// Package eventlog is the fire-and-forget audit sink: every recorded
// event is printed, stored, posted to the log route and mirrored onto the
// Redis event stream. Failures of the side channels are logged and
// swallowed; the store write is the only one reported back.
package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sendcrew/reqbot/src/routes"
	"github.com/sendcrew/reqbot/src/shared/data"
	"github.com/sendcrew/reqbot/src/shared/types"
	"gopkg.in/yaml.v3"
)

// Logged event types
const (
	EventRequestInitialized     = "REQUEST_INITIALIZED"
	EventRequestRequested       = "REQUEST_REQUESTED"
	EventRequestOpinionAdded    = "REQUEST_OPINION_ADDED"
	EventRequestResolutionAdded = "REQUEST_RESOLUTION_ADDED"
	EventRequestDeleted         = "REQUEST_DELETED"
	EventUserCooldownUpdated    = "USER_COOLDOWN_UPDATED"
	EventLevelCooldownUpdated   = "LEVEL_COOLDOWN_UPDATED"
	EventParameterEdited        = "PARAMETER_EDITED"
	EventPermissionBound        = "PERMISSION_BOUND"
	EventPermissionUnbound      = "PERMISSION_UNBOUND"
	EventRouteEdited            = "ROUTE_EDITED"
)

// RoutePoster posts plain text to a logical route. The log route being
// disabled or missing is not an error.
type RoutePoster interface {
	PostText(route string, content string) error
}

type Logger struct {
	provider *data.Provider
	poster   RoutePoster
	rdb      *redis.Client
}

// New builds a logger. poster and rdb may be nil; the corresponding side
// channels are simply skipped.
func New(provider *data.Provider, poster RoutePoster, rdb *redis.Client) *Logger {
	return &Logger{provider: provider, poster: poster, rdb: rdb}
}

// Record persists an audit event. actorID may be empty for system events.
func (l *Logger) Record(eventType string, actorID string, fields map[string]string) {
	actor := actorID
	if actor == "" {
		actor = "SYSTEM"
	}
	log.Printf("%s by %s %v", eventType, actor, fields)

	customData := "{}"
	if len(fields) > 0 {
		if raw, err := json.Marshal(fields); err == nil {
			customData = string(raw)
		}
	}

	if db, err := l.provider.DB(); err != nil {
		log.Printf("eventlog: store unavailable, dropping %s: %v", eventType, err)
	} else {
		entry := types.LoggedEvent{
			Timestamp:  time.Now().UTC(),
			EventType:  eventType,
			UserID:     actorID,
			CustomData: customData,
		}
		if err := db.Create(&entry).Error; err != nil {
			log.Printf("eventlog: persist %s: %v", eventType, err)
		}
	}

	if l.poster != nil {
		if err := l.poster.PostText(routes.Log, l.renderEntry(eventType, actor, fields)); err != nil {
			log.Printf("eventlog: post %s to log route: %v", eventType, err)
		}
	}

	if l.rdb != nil {
		payload := map[string]interface{}{
			"event": eventType,
			"actor": actor,
			"time":  time.Now().Unix(),
		}
		for key, value := range fields {
			payload[key] = value
		}
		if err := data.PublishEvent(context.Background(), l.rdb, payload); err != nil {
			log.Printf("eventlog: publish %s: %v", eventType, err)
		}
	}
}

func (l *Logger) renderEntry(eventType, actor string, fields map[string]string) string {
	doc := map[string]string{
		"event":     eventType,
		"actor":     actor,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	for key, value := range fields {
		doc[key] = value
	}

	rendered, err := yaml.Marshal(doc)
	if err != nil {
		rendered = []byte(fmt.Sprintf("%v", doc))
	}
	return fmt.Sprintf("```yaml\n%s```", rendered)
}

// Tail returns the most recent entries, newest first.
func (l *Logger) Tail(limit, offset int) ([]types.LoggedEvent, error) {
	db, err := l.provider.DB()
	if err != nil {
		return nil, err
	}

	var entries []types.LoggedEvent
	err = db.Order("timestamp DESC").Limit(limit).Offset(offset).Find(&entries).Error
	return entries, err
}

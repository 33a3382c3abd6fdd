package webserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sendcrew/reqbot/src/ReqBot/components/admission"
	"github.com/sendcrew/reqbot/src/ReqBot/components/cooldown"
	"github.com/sendcrew/reqbot/src/ReqBot/components/requests"
	"github.com/sendcrew/reqbot/src/eventlog"
	"github.com/sendcrew/reqbot/src/shared/types"
)

type API struct {
	requests  *requests.Controller
	cooldowns *cooldown.Engine
	admission *admission.Controller
	events    *eventlog.Logger
}

func NewAPI(deps Deps) API {
	return API{
		requests:  deps.Requests,
		cooldowns: deps.Cooldowns,
		admission: deps.Admission,
		events:    deps.Events,
	}
}

func (a API) QueueStatus(c *gin.Context) {
	blocked, err := a.admission.IsBlocked()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	pending, err := a.requests.CountPending(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocked": blocked, "pending": pending})
}

func (a API) PendingRequests(c *gin.Context) {
	limit, offset := paging(c)
	rows, err := a.requests.ListPending(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		out = append(out, gin.H{
			"id":            row.ID,
			"level_id":      row.LevelID,
			"level_name":    row.LevelName,
			"language":      row.Language,
			"showcase_link": row.ShowcaseLink,
			"requested_at":  formatTime(row.RequestedAt),
		})
	}
	c.JSON(http.StatusOK, gin.H{"requests": out})
}

func (a API) Cooldowns(c *gin.Context) {
	entity := types.CooldownEntity(c.Param("entity"))
	if entity != types.CooldownEntityUser && entity != types.CooldownEntityLevel {
		c.JSON(http.StatusBadRequest, gin.H{"err": "entity must be user or level"})
		return
	}

	limit, offset := paging(c)
	var rows []types.Cooldown
	var err error
	if c.Query("kind") == "endless" {
		rows, err = a.cooldowns.ListEndless(entity, limit, offset)
	} else {
		rows, err = a.cooldowns.ListTemporary(entity, limit, offset)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		out = append(out, gin.H{
			"entity_id": row.EntityID,
			"cast_at":   row.CastAt.Format(time.RFC3339),
			"ends_at":   formatTime(row.EndsAt),
			"reason":    row.Reason,
			"caster":    row.CasterUserID,
		})
	}
	c.JSON(http.StatusOK, gin.H{"cooldowns": out})
}

func (a API) Events(c *gin.Context) {
	limit, offset := paging(c)
	entries, err := a.events.Tail(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(entries))
	for i := range entries {
		entry := &entries[i]
		out = append(out, gin.H{
			"timestamp": entry.Timestamp.Format(time.RFC3339),
			"type":      entry.EventType,
			"actor":     entry.UserID,
			"data":      entry.CustomData,
		})
	}
	c.JSON(http.StatusOK, gin.H{"events": out})
}

func paging(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 100 {
		limit = 50
	}
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func formatTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

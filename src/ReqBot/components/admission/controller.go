// Package admission decides whether the request queue accepts new
// submissions. Two independent thresholds compared against the live
// pending count give the gate hysteresis: the queue closes at blockAt and
// reopens at unblockAt, so counts oscillating around a single threshold
// cannot flap the gate.
package admission

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendcrew/reqbot/src/discord"
	"github.com/sendcrew/reqbot/src/params"
	"github.com/sendcrew/reqbot/src/routes"
	"github.com/sendcrew/reqbot/src/shared/apperr"
)

// Counter reports the live number of pending requests.
type Counter func(ctx context.Context) (int64, error)

// Broadcaster posts plain text through a logical route.
type Broadcaster interface {
	PostText(route, content string) error
}

type Controller struct {
	params       *params.Store
	broadcaster  Broadcaster
	countPending Counter
}

func NewController(paramStore *params.Store, broadcaster Broadcaster, countPending Counter) *Controller {
	return &Controller{
		params:       paramStore,
		broadcaster:  broadcaster,
		countPending: countPending,
	}
}

// IsBlocked reports the current state of the gate.
func (c *Controller) IsBlocked() (bool, error) {
	return c.params.GetBool(params.QueueBlocked)
}

// PostSubmitCheck runs after a completed submission: once the pending
// count reaches blockAt, the gate closes and the closed notification is
// broadcast. Finding the gate already closed broadcasts nothing, so the
// notification fires exactly once per closing.
func (c *Controller) PostSubmitCheck(ctx context.Context) error {
	enabled, err := c.params.GetBool(params.QueueBlockEnabled)
	if err != nil || !enabled {
		return err
	}

	blockAt, err := c.params.GetInt(params.QueueBlockAt)
	if err != nil {
		return err
	}

	pending, err := c.countPending(ctx)
	if err != nil {
		return err
	}
	if pending < int64(blockAt) {
		return nil
	}

	err = c.params.Update(params.QueueBlocked, "true", "")
	if errors.Is(err, apperr.ErrAlreadySatisfies) {
		return nil
	}
	if err != nil {
		return err
	}

	return c.broadcast(routes.RequestsClosed, "Requests are temporarily closed / Реквесты временно закрыты")
}

// PostResolutionCheck runs after a first resolution: once the pending
// count drops to unblockAt, the gate reopens and the reopened
// notification is broadcast exactly once.
func (c *Controller) PostResolutionCheck(ctx context.Context) error {
	enabled, err := c.params.GetBool(params.QueueUnblockEnabled)
	if err != nil || !enabled {
		return err
	}

	unblockAt, err := c.params.GetInt(params.QueueUnblockAt)
	if err != nil {
		return err
	}

	pending, err := c.countPending(ctx)
	if err != nil {
		return err
	}
	if pending > int64(unblockAt) {
		return nil
	}

	err = c.params.Update(params.QueueBlocked, "false", "")
	if errors.Is(err, apperr.ErrAlreadySatisfies) {
		return nil
	}
	if err != nil {
		return err
	}

	return c.broadcast(routes.RequestsReopened, "Requests are open again / Реквесты снова открыты")
}

func (c *Controller) broadcast(route, text string) error {
	notifyRole, err := c.params.GetString(params.QueueNotifyRole)
	if err != nil {
		return err
	}
	if notifyRole != "" {
		text = fmt.Sprintf("%s %s", discord.AsRole(notifyRole), text)
	}
	return c.broadcaster.PostText(route, text)
}

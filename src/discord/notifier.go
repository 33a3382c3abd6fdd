// Package discord wraps the discordgo session behind the two collaborator
// contracts the engines consume: route-addressed posting and weakly
// referenced message lookup/edit/delete. Message lifetime is owned by the
// chat platform; a vanished message is never an error here.
package discord

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/sendcrew/reqbot/src/routes"
)

// Ref is a weak reference to an externally rendered message.
type Ref struct {
	ChannelID string
	MessageID string
}

func (r Ref) IsZero() bool {
	return r.ChannelID == "" || r.MessageID == ""
}

type Notifier struct {
	session *discordgo.Session
	routes  *routes.Manager
	guildID string
}

func NewNotifier(session *discordgo.Session, routeManager *routes.Manager, guildID string) *Notifier {
	return &Notifier{session: session, routes: routeManager, guildID: guildID}
}

// Post sends a payload through a logical route. A disabled or unbound
// route yields (nil, nil): administratively off, not an error.
func (n *Notifier) Post(route string, send *discordgo.MessageSend) (*Ref, error) {
	if !n.routes.IsEnabled(route) {
		return nil, nil
	}

	channelID := n.routes.ChannelID(route)
	msg, err := n.session.ChannelMessageSendComplex(channelID, send)
	if err != nil {
		return nil, fmt.Errorf("post to route %s: %w", route, err)
	}
	return &Ref{ChannelID: msg.ChannelID, MessageID: msg.ID}, nil
}

// PostText sends plain content through a route, ignoring disabled routes.
func (n *Notifier) PostText(route string, content string) error {
	_, err := n.Post(route, &discordgo.MessageSend{Content: content})
	return err
}

// JumpURL renders the in-app link to a referenced message.
func (n *Notifier) JumpURL(ref Ref) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", n.guildID, ref.ChannelID, ref.MessageID)
}

// isGone reports whether an API error means the referenced message or
// channel no longer exists.
func isGone(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel:
			return true
		}
	}
	return false
}

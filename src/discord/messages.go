package discord

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
)

// Messages is the MessageStore collaborator: find/edit/delete of weakly
// referenced messages, tolerant of the message having vanished.
type Messages struct {
	session *discordgo.Session
}

func NewMessages(session *discordgo.Session) *Messages {
	return &Messages{session: session}
}

// Find returns the referenced message, or nil when the reference is empty
// or the message has been deleted externally.
func (m *Messages) Find(ref Ref) (*discordgo.Message, error) {
	if ref.IsZero() {
		return nil, nil
	}

	msg, err := m.session.ChannelMessage(ref.ChannelID, ref.MessageID)
	if err != nil {
		if isGone(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find message %s/%s: %w", ref.ChannelID, ref.MessageID, err)
	}
	return msg, nil
}

// Edit applies an edit to the referenced message. Editing a vanished
// message is a no-op.
func (m *Messages) Edit(ref Ref, edit *discordgo.MessageEdit) error {
	if ref.IsZero() {
		return nil
	}

	edit.Channel = ref.ChannelID
	edit.ID = ref.MessageID
	if _, err := m.session.ChannelMessageEditComplex(edit); err != nil {
		if isGone(err) {
			return nil
		}
		return fmt.Errorf("edit message %s/%s: %w", ref.ChannelID, ref.MessageID, err)
	}
	return nil
}

// Delete removes the referenced message if it still exists.
func (m *Messages) Delete(ref Ref) error {
	if ref.IsZero() {
		return nil
	}

	if err := m.session.ChannelMessageDelete(ref.ChannelID, ref.MessageID); err != nil {
		if isGone(err) {
			return nil
		}
		return fmt.Errorf("delete message %s/%s: %w", ref.ChannelID, ref.MessageID, err)
	}
	return nil
}

// SafeDelete swallows failures entirely; used where deletion is purely
// best-effort cleanup.
func (m *Messages) SafeDelete(ref Ref) {
	if err := m.Delete(ref); err != nil {
		log.Printf("discord: best-effort delete of %s/%s failed: %v", ref.ChannelID, ref.MessageID, err)
	}
}

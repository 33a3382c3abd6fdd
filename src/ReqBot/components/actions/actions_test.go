package actions

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomIDRoundTrip(t *testing.T) {
	original := Action{Verb: VerbApproveWithReview, RequestID: 1337}

	decoded, err := Decode(original.CustomID())
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestDecodeRejectsForeignIDs(t *testing.T) {
	for _, customID := range []string{"", "confirm", "other:ja:5", "req:ja", "req:ja:notanumber"} {
		_, err := Decode(customID)
		assert.ErrorIs(t, err, ErrNotAnAction, customID)
	}
}

func componentInteraction(customID string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type: discordgo.InteractionMessageComponent,
			Data: discordgo.MessageComponentInteractionData{CustomID: customID},
		},
	}
}

func TestDispatch(t *testing.T) {
	registry := NewRegistry()

	var got Action
	registry.Register(VerbReject, func(_ *discordgo.Session, _ *discordgo.InteractionCreate, action Action) error {
		got = action
		return nil
	})

	err := registry.Dispatch(nil, componentInteraction(Action{Verb: VerbReject, RequestID: 42}.CustomID()))
	require.NoError(t, err)
	assert.Equal(t, Action{Verb: VerbReject, RequestID: 42}, got)

	// Foreign custom ids pass through silently.
	require.NoError(t, registry.Dispatch(nil, componentInteraction("pagination:next")))

	// A decodable action without a handler is a wiring bug.
	err = registry.Dispatch(nil, componentInteraction(Action{Verb: VerbApprove, RequestID: 1}.CustomID()))
	assert.Error(t, err)
}

// Package widget renders and reconciles the external representations of a
// request: the pending-review details card, the resolution tally card and
// the archive card. The store rows are authoritative; every rendering here
// is a regenerable projection of them.
package widget

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/sendcrew/reqbot/src/ReqBot/components/actions"
	"github.com/sendcrew/reqbot/src/ReqBot/components/catalog"
	"github.com/sendcrew/reqbot/src/shared/types"
)

const (
	colorPending    = 0x979B1F
	colorUnresolved = 0x990000
	colorResolved   = 0x128611
	colorArchived   = 0x666666

	emojiYes = "✅"
	emojiNo  = "❌"
)

// CardInput is everything the details card is rendered from.
type CardInput struct {
	RequestID       uint64
	LevelID         uint64
	Level           *catalog.Level
	Language        types.Language
	ShowcaseLink    string
	ShowcaseVideoID string
	Comment         string
	AuthorMention   string
}

// DetailsCard renders the pending-review card for a completed request.
func DetailsCard(input CardInput) *discordgo.MessageEmbed {
	level := input.Level

	languageStr := ":flag_gb: English"
	if input.Language == types.LanguageRussian {
		languageStr = ":flag_ru: Русский"
	}

	copiedStr := "Not a copy"
	if level.CopiedLevelID != 0 {
		copiedStr = fmt.Sprintf("%d :exclamation:", level.CopiedLevelID)
	}

	embed := &discordgo.MessageEmbed{
		Color:       colorPending,
		Title:       fmt.Sprintf("Request %d", input.RequestID),
		Description: fmt.Sprintf("**%s** by _%s_", level.Name, level.AuthorName),
	}
	if input.ShowcaseVideoID != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{
			URL: fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", input.ShowcaseVideoID),
		}
	}

	addField := func(name, value string, inline bool) {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: name, Value: value, Inline: inline})
	}

	addField("ID", fmt.Sprintf("%d", input.LevelID), false)
	addField("Review Language", languageStr, false)
	if input.ShowcaseLink != "" {
		addField("Showcase", input.ShowcaseLink, false)
	}
	addField("Copied Level ID", copiedStr, false)
	addField("Stars Requested", fmt.Sprintf("%d", level.StarsRequested), false)
	addField("Length", level.Length.String(), true)
	addField("Current Difficulty", level.Difficulty.String(), true)
	addField("Game Version", level.GameVersion, true)
	if input.Comment != "" {
		addField("Comment", input.Comment, false)
	}
	addField("Requested by", input.AuthorMention, false)

	return embed
}

func button(label string, style discordgo.ButtonStyle, verb actions.Verb, requestID uint64) discordgo.MessageComponent {
	return discordgo.Button{
		Label:    label,
		Style:    style,
		CustomID: actions.Action{Verb: verb, RequestID: requestID}.CustomID(),
	}
}

// DetailsComponents builds the reviewer affordances of the details card.
func DetailsComponents(requestID uint64) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			button("Approve and Review", discordgo.SuccessButton, actions.VerbApproveWithReview, requestID),
			button("Just Approve", discordgo.SuccessButton, actions.VerbApprove, requestID),
		}},
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			button("Reject and Review", discordgo.DangerButton, actions.VerbRejectWithReview, requestID),
			button("Just Reject", discordgo.DangerButton, actions.VerbReject, requestID),
		}},
	}
}

// ResolutionComponents builds the moderator affordances of the resolution
// card: one grade per approval button plus a reject.
func ResolutionComponents(requestID uint64) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			button("Starrate", discordgo.SuccessButton, actions.VerbSendStarrate, requestID),
			button("Feature", discordgo.SuccessButton, actions.VerbSendFeature, requestID),
			button("Epic", discordgo.SuccessButton, actions.VerbSendEpic, requestID),
			button("Mythic", discordgo.SuccessButton, actions.VerbSendMythic, requestID),
			button("Legendary", discordgo.SuccessButton, actions.VerbSendLegendary, requestID),
		}},
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			button("Reject", discordgo.DangerButton, actions.VerbResolveReject, requestID),
		}},
	}
}

package widget

import (
	"fmt"
	"log"
	"sync"

	"github.com/OneOfOne/xxhash"
	"github.com/bwmarrin/discordgo"
	"github.com/sendcrew/reqbot/src/discord"
	"github.com/sendcrew/reqbot/src/routes"
)

const (
	fieldConsensus   = "Consensus"
	fieldResolutions = "Resolutions"
	fieldArchiveLink = "Opinions and Resolutions"
)

// Reconciler keeps the remote cards in sync with the store. Remote
// messages are weakly referenced and may vanish at any time; a vanished
// card never fails the operation that tried to refresh it.
type Reconciler struct {
	notifier *discord.Notifier
	messages *discord.Messages

	mu       sync.Mutex
	lastHash map[string]uint64
}

func New(notifier *discord.Notifier, messages *discord.Messages) *Reconciler {
	return &Reconciler{
		notifier: notifier,
		messages: messages,
		lastHash: make(map[string]uint64),
	}
}

// PostDetails publishes the pending-review card. A nil ref means the
// pending-request route is administratively disabled.
func (r *Reconciler) PostDetails(input CardInput) (*discord.Ref, error) {
	return r.notifier.Post(routes.PendingRequest, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{DetailsCard(input)},
		Components: DetailsComponents(input.RequestID),
	})
}

// CreateResolution publishes a fresh resolution card seeded from the
// details card and the current tally.
func (r *Reconciler) CreateResolution(requestID uint64, details *discordgo.MessageEmbed, tally Tally) (*discord.Ref, error) {
	embed := r.projectResolution(details, tally)
	ref, err := r.notifier.Post(routes.Resolution, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: ResolutionComponents(requestID),
	})
	if err != nil || ref == nil {
		return ref, err
	}

	r.remember(*ref, tally)
	return ref, nil
}

// SyncResolution re-renders the tally onto an existing resolution card.
// The edit is skipped when the rendered content has not changed, and
// silently dropped when the card has vanished.
func (r *Reconciler) SyncResolution(ref discord.Ref, tally Tally) error {
	if r.unchanged(ref, tally) {
		return nil
	}

	msg, err := r.messages.Find(ref)
	if err != nil {
		return err
	}
	if msg == nil || len(msg.Embeds) == 0 {
		log.Printf("widget: resolution card %s/%s is gone, skipping sync", ref.ChannelID, ref.MessageID)
		return nil
	}

	embed := r.projectResolution(msg.Embeds[0], tally)
	if err := r.messages.Edit(ref, &discordgo.MessageEdit{
		Embeds: &[]*discordgo.MessageEmbed{embed},
	}); err != nil {
		return err
	}

	r.remember(ref, tally)
	return nil
}

// Archive replaces the details card with an affordance-free archive copy
// linking to the resolution card. The old details message is deleted
// best-effort; the archive ref becomes the request's new details ref.
func (r *Reconciler) Archive(detailsRef, resolutionRef discord.Ref) (*discord.Ref, error) {
	msg, err := r.messages.Find(detailsRef)
	if err != nil {
		return nil, err
	}
	if msg == nil || len(msg.Embeds) == 0 {
		return nil, fmt.Errorf("widget: details card %s/%s is missing, cannot archive", detailsRef.ChannelID, detailsRef.MessageID)
	}

	embed := cloneEmbed(msg.Embeds[0])
	embed.Fields = stripProjectedFields(embed.Fields)
	embed.Color = colorArchived
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:  fieldArchiveLink,
		Value: "See " + discord.AsLink(r.notifier.JumpURL(resolutionRef), "widget"),
	})

	archiveRef, err := r.notifier.Post(routes.Archive, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
	})
	if err != nil {
		return nil, err
	}

	r.messages.SafeDelete(detailsRef)
	return archiveRef, nil
}

// projectResolution renders the tally onto a base card, replacing any
// previously rendered tally fields.
func (r *Reconciler) projectResolution(base *discordgo.MessageEmbed, tally Tally) *discordgo.MessageEmbed {
	embed := cloneEmbed(base)
	embed.Fields = stripProjectedFields(embed.Fields)

	embed.Color = colorUnresolved
	if tally.Resolved() {
		embed.Color = colorResolved
	}

	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:  fieldConsensus,
		Value: r.renderConsensus(tally),
	})
	if rendered := r.renderResolutions(tally); rendered != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fieldResolutions,
			Value: rendered,
		})
	}
	return embed
}

func (r *Reconciler) contentHash(tally Tally) uint64 {
	h := xxhash.New64()
	h.WriteString(r.renderConsensus(tally))
	h.WriteString("\x00")
	h.WriteString(r.renderResolutions(tally))
	return h.Sum64()
}

func (r *Reconciler) unchanged(ref discord.Ref, tally Tally) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	last, ok := r.lastHash[refKey(ref)]
	return ok && last == r.contentHash(tally)
}

func (r *Reconciler) remember(ref discord.Ref, tally Tally) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastHash[refKey(ref)] = r.contentHash(tally)
}

func refKey(ref discord.Ref) string {
	return ref.ChannelID + "/" + ref.MessageID
}

func cloneEmbed(embed *discordgo.MessageEmbed) *discordgo.MessageEmbed {
	clone := *embed
	clone.Fields = append([]*discordgo.MessageEmbedField(nil), embed.Fields...)
	return &clone
}

func stripProjectedFields(fields []*discordgo.MessageEmbedField) []*discordgo.MessageEmbedField {
	kept := fields[:0:0]
	for _, field := range fields {
		switch field.Name {
		case fieldConsensus, fieldResolutions, fieldArchiveLink:
			continue
		}
		kept = append(kept, field)
	}
	return kept
}

package widget

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/sendcrew/reqbot/src/ReqBot/components/catalog"
	"github.com/sendcrew/reqbot/src/discord"
	"github.com/sendcrew/reqbot/src/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReconciler() *Reconciler {
	return New(discord.NewNotifier(nil, nil, "999"), discord.NewMessages(nil))
}

func uintPtr(v uint64) *uint64 { return &v }

func TestBuildTally(t *testing.T) {
	opinions := []types.RequestOpinion{
		{AuthorUserID: "1", Verdict: types.VerdictApproved, ReviewID: uintPtr(10)},
		{AuthorUserID: "2", Verdict: types.VerdictRejected, Reason: "too buggy"},
		{AuthorUserID: "3", Verdict: types.VerdictApproved, IsResolution: true},
	}
	reviews := []types.RequestReview{
		{ID: 10, MessageChannelID: "c", MessageID: "m"},
	}

	tally := BuildTally(opinions, reviews)

	require.Len(t, tally.Approvals, 1)
	assert.Equal(t, discord.Ref{ChannelID: "c", MessageID: "m"}, tally.Approvals[0].ReviewRef)
	require.Len(t, tally.Rejections, 1)
	assert.Equal(t, "too buggy", tally.Rejections[0].Reason)
	require.Len(t, tally.Resolutions, 1)
	assert.Equal(t, types.VerdictApproved, tally.Resolutions[0].Verdict)
	assert.True(t, tally.Resolved())
}

func TestRenderConsensus(t *testing.T) {
	r := newTestReconciler()

	empty := r.renderConsensus(Tally{})
	assert.Equal(t, "✅: No votes yet\n❌: No votes yet", empty)

	tally := Tally{
		Approvals: []Entry{
			{AuthorUserID: "1", ReviewRef: discord.Ref{ChannelID: "c", MessageID: "m"}},
			{AuthorUserID: "2"},
		},
		Rejections: []Entry{{AuthorUserID: "3", Reason: "gameplay"}},
	}
	rendered := r.renderConsensus(tally)
	assert.Contains(t, rendered, "<@1> ([Review](https://discord.com/channels/999/c/m))")
	assert.Contains(t, rendered, "<@1> ([Review]")
	assert.Contains(t, rendered, ", <@2>")
	assert.Contains(t, rendered, "❌: <@3> (`gameplay`)")
}

func TestProjectResolutionReplacesTallyFields(t *testing.T) {
	r := newTestReconciler()

	base := &discordgo.MessageEmbed{
		Color: colorPending,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "ID", Value: "128"},
			{Name: fieldConsensus, Value: "stale"},
			{Name: fieldResolutions, Value: "stale"},
		},
	}

	embed := r.projectResolution(base, Tally{
		Approvals: []Entry{{AuthorUserID: "1"}},
	})

	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "ID", embed.Fields[0].Name)
	assert.Equal(t, fieldConsensus, embed.Fields[1].Name)
	assert.Contains(t, embed.Fields[1].Value, "<@1>")
	assert.Equal(t, colorUnresolved, embed.Color)

	// The base embed is not mutated.
	assert.Len(t, base.Fields, 3)

	resolved := r.projectResolution(base, Tally{
		Resolutions: []Resolution{{Entry: Entry{AuthorUserID: "9"}, Verdict: types.VerdictRejected}},
	})
	assert.Equal(t, colorResolved, resolved.Color)
	assert.Equal(t, fieldResolutions, resolved.Fields[len(resolved.Fields)-1].Name)
	assert.Contains(t, resolved.Fields[len(resolved.Fields)-1].Value, "❌: <@9>")
}

func TestSyncDedupeByContentHash(t *testing.T) {
	r := newTestReconciler()
	ref := discord.Ref{ChannelID: "c", MessageID: "m"}
	tally := Tally{Approvals: []Entry{{AuthorUserID: "1"}}}

	assert.False(t, r.unchanged(ref, tally))
	r.remember(ref, tally)
	assert.True(t, r.unchanged(ref, tally))

	grown := Tally{Approvals: []Entry{{AuthorUserID: "1"}, {AuthorUserID: "2"}}}
	assert.False(t, r.unchanged(ref, grown))
}

func TestDetailsCard(t *testing.T) {
	embed := DetailsCard(CardInput{
		RequestID: 7,
		LevelID:   128,
		Level: &catalog.Level{
			Name:           "StereoReview",
			AuthorName:     "SomeCreator",
			Difficulty:     catalog.DifficultyHard,
			StarsRequested: 8,
			GameVersion:    "2.1",
			Length:         catalog.LengthLong,
		},
		Language:        types.LanguageRussian,
		ShowcaseLink:    "https://youtu.be/abc123xyz00",
		ShowcaseVideoID: "abc123xyz00",
		Comment:         "first level",
		AuthorMention:   "<@55>",
	})

	assert.Equal(t, "Request 7", embed.Title)
	assert.Equal(t, "**StereoReview** by _SomeCreator_", embed.Description)
	require.NotNil(t, embed.Thumbnail)
	assert.Equal(t, "https://i.ytimg.com/vi/abc123xyz00/hqdefault.jpg", embed.Thumbnail.URL)

	byName := map[string]string{}
	for _, field := range embed.Fields {
		byName[field.Name] = field.Value
	}
	assert.Equal(t, "128", byName["ID"])
	assert.Equal(t, ":flag_ru: Русский", byName["Review Language"])
	assert.Equal(t, "Not a copy", byName["Copied Level ID"])
	assert.Equal(t, "Long", byName["Length"])
	assert.Equal(t, "Hard", byName["Current Difficulty"])
	assert.Equal(t, "first level", byName["Comment"])
	assert.Equal(t, "<@55>", byName["Requested by"])
}

func TestComponentsEncodeActions(t *testing.T) {
	rows := DetailsComponents(42)
	require.Len(t, rows, 2)

	first := rows[0].(discordgo.ActionsRow).Components[0].(discordgo.Button)
	assert.Equal(t, "req:aar:42", first.CustomID)

	resolution := ResolutionComponents(42)
	require.Len(t, resolution, 2)
	reject := resolution[1].(discordgo.ActionsRow).Components[0].(discordgo.Button)
	assert.Equal(t, "req:rr:42", reject.CustomID)
}

package requests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sendcrew/reqbot/src/ReqBot/components/admission"
	"github.com/sendcrew/reqbot/src/ReqBot/components/catalog"
	"github.com/sendcrew/reqbot/src/ReqBot/components/cooldown"
	"github.com/sendcrew/reqbot/src/ReqBot/components/widget"
	"github.com/sendcrew/reqbot/src/discord"
	"github.com/sendcrew/reqbot/src/eventlog"
	"github.com/sendcrew/reqbot/src/params"
	"github.com/sendcrew/reqbot/src/shared/apperr"
	"github.com/sendcrew/reqbot/src/shared/data"
	"github.com/sendcrew/reqbot/src/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeCatalog struct{}

func (fakeCatalog) GetLevel(_ context.Context, levelID uint64) (*catalog.Level, error) {
	return &catalog.Level{
		Name:        fmt.Sprintf("Level%d", levelID),
		AuthorName:  "Creator",
		GameVersion: "2.1",
	}, nil
}

type fakeWidgets struct {
	posted   int
	created  int
	synced   int
	archived int
	onCreate func()
}

func (w *fakeWidgets) PostDetails(input widget.CardInput) (*discord.Ref, error) {
	w.posted++
	return &discord.Ref{ChannelID: "details", MessageID: fmt.Sprintf("d%d", input.RequestID)}, nil
}

func (w *fakeWidgets) CreateResolution(requestID uint64, _ *discordgo.MessageEmbed, _ widget.Tally) (*discord.Ref, error) {
	w.created++
	if w.onCreate != nil {
		w.onCreate()
	}
	return &discord.Ref{ChannelID: "resolution", MessageID: fmt.Sprintf("r%d", requestID)}, nil
}

func (w *fakeWidgets) SyncResolution(discord.Ref, widget.Tally) error {
	w.synced++
	return nil
}

func (w *fakeWidgets) Archive(_, _ discord.Ref) (*discord.Ref, error) {
	w.archived++
	return &discord.Ref{ChannelID: "archive", MessageID: fmt.Sprintf("a%d", w.archived)}, nil
}

type fakePoster struct {
	posts  []string
	onPost func()
}

func (p *fakePoster) Post(route string, send *discordgo.MessageSend) (*discord.Ref, error) {
	p.posts = append(p.posts, route+": "+send.Content)
	if p.onPost != nil {
		p.onPost()
	}
	return &discord.Ref{ChannelID: route, MessageID: fmt.Sprintf("m%d", len(p.posts))}, nil
}

func (p *fakePoster) PostText(route, content string) error {
	p.posts = append(p.posts, route+": "+content)
	return nil
}

func (p *fakePoster) countWithRoute(route string) int {
	count := 0
	for _, post := range p.posts {
		if len(post) >= len(route) && post[:len(route)] == route {
			count++
		}
	}
	return count
}

type fakeMessages struct {
	deleted []discord.Ref
}

func (m *fakeMessages) Find(ref discord.Ref) (*discordgo.Message, error) {
	if ref.IsZero() {
		return nil, nil
	}
	return &discordgo.Message{
		ID:        ref.MessageID,
		ChannelID: ref.ChannelID,
		Embeds:    []*discordgo.MessageEmbed{{Title: "card"}},
	}, nil
}

func (m *fakeMessages) SafeDelete(ref discord.Ref) {
	if !ref.IsZero() {
		m.deleted = append(m.deleted, ref)
	}
}

type fixture struct {
	controller  *Controller
	cooldowns   *cooldown.Engine
	params      *params.Store
	widgets     *fakeWidgets
	poster      *fakePoster
	messages    *fakeMessages
	broadcaster *fakePoster
	db          *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, data.Migrate(db))

	provider := data.NewProvider(db)
	events := eventlog.New(provider, nil, nil)
	paramStore := params.NewStore(provider, events)
	cooldowns := cooldown.NewEngine(provider, paramStore, events)

	widgets := &fakeWidgets{}
	poster := &fakePoster{}
	messages := &fakeMessages{}

	controller := NewController(Config{
		Provider:  provider,
		Catalog:   fakeCatalog{},
		Cooldowns: cooldowns,
		Widgets:   widgets,
		Poster:    poster,
		Messages:  messages,
		Params:    paramStore,
		Events:    events,
	})

	broadcaster := &fakePoster{}
	gate := admission.NewController(paramStore, broadcaster, controller.CountPending)
	controller.AttachAdmission(gate)

	return &fixture{
		controller:  controller,
		cooldowns:   cooldowns,
		params:      paramStore,
		widgets:     widgets,
		poster:      poster,
		messages:    messages,
		broadcaster: broadcaster,
		db:          db,
	}
}

func (f *fixture) submit(t *testing.T, levelID uint64, invokerID string) uint64 {
	t.Helper()
	ctx := context.Background()

	requestID, err := f.controller.StartSubmission(ctx, levelID, types.LanguageEnglish, invokerID, invokerID, true, false, false)
	require.NoError(t, err)
	require.NoError(t, f.controller.CompleteRequest(ctx, requestID, "", "", invokerID, false, true))
	return requestID
}

func TestLimboRequestIsInvisibleUntilComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	requestID, err := f.controller.StartSubmission(ctx, 128, types.LanguageEnglish, "10", "10", true, false, false)
	require.NoError(t, err)

	pending, err := f.controller.GetPendingRequest(true)
	require.NoError(t, err)
	assert.Nil(t, pending)

	count, err := f.controller.CountPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, f.controller.CompleteRequest(ctx, requestID, "", "my first level", "10", false, true))

	pending, err = f.controller.GetPendingRequest(true)
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, requestID, pending.ID)
	assert.Equal(t, "Level128", pending.LevelName)
	assert.NotNil(t, pending.RequestedAt)

	count, err = f.controller.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	ignored, err := f.controller.GetOldestIgnoredRequest()
	require.NoError(t, err)
	require.NotNil(t, ignored)
	assert.Equal(t, requestID, ignored.ID)
}

func TestSubmissionHaltsOnActiveCooldown(t *testing.T) {
	f := newFixture(t)

	dur := 48 * time.Hour
	require.NoError(t, f.cooldowns.ManuallySet(types.CooldownEntityUser, "10", "mod", &dur, "spam", false))

	_, err := f.controller.StartSubmission(context.Background(), 128, types.LanguageEnglish, "10", "10", true, false, false)
	var onCd OnCooldownError
	require.ErrorAs(t, err, &onCd)
	require.NotNil(t, onCd.Cooldown.EndsAt)
	assert.WithinDuration(t, time.Now().UTC().Add(dur), *onCd.Cooldown.EndsAt, time.Minute)

	// Nothing was written, not even a limbo row.
	var total int64
	require.NoError(t, f.db.Model(&types.Request{}).Count(&total).Error)
	assert.Zero(t, total)

	// The bypass flag lets cooldown-immune staff submit anyway.
	_, err = f.controller.StartSubmission(context.Background(), 128, types.LanguageEnglish, "10", "10", true, false, true)
	require.NoError(t, err)
}

func TestSubmissionHaltsWhenQueueBlocked(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.params.Update(params.QueueBlocked, "true", "tester"))

	_, err := f.controller.StartSubmission(context.Background(), 128, types.LanguageEnglish, "10", "10", true, false, false)
	assert.ErrorIs(t, err, ErrQueueBlocked)

	_, err = f.controller.StartSubmission(context.Background(), 128, types.LanguageEnglish, "10", "10", true, true, false)
	require.NoError(t, err)
}

func TestLevelGates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	requestID := f.submit(t, 128, "10")

	// A pending request for the level blocks another submission.
	_, err := f.controller.StartSubmission(ctx, 128, types.LanguageEnglish, "11", "11", true, false, false)
	var pendingErr PreviousRequestPendingError
	require.ErrorAs(t, err, &pendingErr)

	grade := types.GradeFeature
	found, err := f.controller.Resolve(ctx, "900", requestID, &grade, "", "")
	require.NoError(t, err)
	assert.True(t, found)

	// An approved resolution blocks the level for good.
	_, err = f.controller.StartSubmission(ctx, 128, types.LanguageEnglish, "11", "11", true, false, false)
	var approvedErr LevelAlreadyApprovedError
	require.ErrorAs(t, err, &approvedErr)

	// A rejected level can be requested again.
	rejectedID := f.submit(t, 256, "11")
	found, err = f.controller.Resolve(ctx, "900", rejectedID, nil, "", "too flashy")
	require.NoError(t, err)
	assert.True(t, found)
	_, err = f.controller.StartSubmission(ctx, 256, types.LanguageEnglish, "12", "12", true, false, false)
	require.NoError(t, err)
}

func TestFirstOpinionCreatesResolutionCardOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	requestID := f.submit(t, 128, "10")

	require.NoError(t, f.controller.AddOpinion(ctx, "201", requestID, types.VerdictApproved, "", "solid gameplay"))
	assert.Equal(t, 1, f.widgets.created)
	assert.Equal(t, 0, f.widgets.synced)

	request, err := f.controller.GetRequestByID(requestID)
	require.NoError(t, err)
	assert.NotEmpty(t, request.ResolutionMessageID)
	assert.NotNil(t, request.WidgetClaimedAt)

	require.NoError(t, f.controller.AddOpinion(ctx, "202", requestID, types.VerdictRejected, "", ""))
	assert.Equal(t, 1, f.widgets.created)
	assert.Equal(t, 1, f.widgets.synced)

	opinion, err := f.controller.GetExistingOpinion("201", requestID, false)
	require.NoError(t, err)
	require.NotNil(t, opinion)
	assert.Equal(t, types.VerdictApproved, opinion.Verdict)
}

func TestOpinionWithReviewPostsAndPersists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	requestID := f.submit(t, 128, "10")
	require.NoError(t, f.controller.AddOpinion(ctx, "201", requestID, types.VerdictApproved, "Great sync, clean deco.", ""))

	assert.Equal(t, 1, f.poster.countWithRoute("review_text"))

	review, err := f.controller.GetExistingReview("201", requestID)
	require.NoError(t, err)
	require.NotNil(t, review)
	assert.Equal(t, "Great sync, clean deco.", review.Text)
	assert.NotEmpty(t, review.MessageID)

	opinion, err := f.controller.GetExistingOpinion("201", requestID, false)
	require.NoError(t, err)
	require.NotNil(t, opinion)
	require.NotNil(t, opinion.ReviewID)
	assert.Equal(t, review.ID, *opinion.ReviewID)
}

func TestSecondResolutionIsAppendOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.params.Update(params.QueueUnblockEnabled, "true", "tester"))
	require.NoError(t, f.params.Update(params.QueueUnblockAt, "50", "tester"))
	require.NoError(t, f.params.Update(params.QueueBlocked, "true", "tester"))

	first := f.submit(t, 128, "10")
	f.submit(t, 256, "11")

	count, err := f.controller.CountPending(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	grade := types.GradeStarrate
	found, err := f.controller.Resolve(ctx, "900", first, &grade, "", "")
	require.NoError(t, err)
	assert.True(t, found)

	// A second moderator resolving the same request appends a verdict but
	// repeats none of the first-resolution effects.
	found, err = f.controller.Resolve(ctx, "901", first, nil, "", "changed my mind")
	require.NoError(t, err)
	assert.True(t, found)

	count, err = f.controller.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	assert.Equal(t, 1, f.widgets.archived)
	assert.Equal(t, 1, f.broadcaster.countWithRoute("requests_reopened"))
	assert.Equal(t, 1, f.poster.countWithRoute("approval_notification"))
	assert.Equal(t, 0, f.poster.countWithRoute("rejection_notification"))

	unresolved, err := f.controller.IsRequestUnresolved(first)
	require.NoError(t, err)
	assert.False(t, unresolved)
}

func TestCountPendingIgnoresPlainOpinions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	requestID := f.submit(t, 128, "10")
	require.NoError(t, f.controller.AddOpinion(ctx, "201", requestID, types.VerdictApproved, "", ""))
	require.NoError(t, f.controller.AddOpinion(ctx, "202", requestID, types.VerdictRejected, "", ""))

	count, err := f.controller.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	found, err := f.controller.Resolve(ctx, "900", requestID, nil, "", "")
	require.NoError(t, err)
	assert.True(t, found)

	count, err = f.controller.CountPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestResolveUnknownRequest(t *testing.T) {
	f := newFixture(t)

	found, err := f.controller.Resolve(context.Background(), "900", 404, nil, "", "")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	requestID := f.submit(t, 128, "10")
	require.NoError(t, f.controller.AddOpinion(ctx, "201", requestID, types.VerdictApproved, "nice one", ""))

	require.NoError(t, f.controller.DeleteRequest(requestID, "900"))

	request, err := f.controller.GetRequestByID(requestID)
	require.NoError(t, err)
	assert.Nil(t, request)

	var opinions int64
	require.NoError(t, f.db.Model(&types.RequestOpinion{}).Where("request_id = ?", requestID).Count(&opinions).Error)
	assert.Zero(t, opinions)

	assert.NotEmpty(t, f.messages.deleted)

	assert.ErrorIs(t, f.controller.DeleteRequest(requestID, "900"), ErrNotFound)
}

func TestOpinionToleratesMidFlightDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	requestID := f.submit(t, 128, "10")
	require.NoError(t, f.controller.AddOpinion(ctx, "201", requestID, types.VerdictApproved, "", "solid"))

	// The row disappears while the review text is being posted, before the
	// tally is re-rendered onto the resolution card.
	f.poster.onPost = func() {
		require.NoError(t, f.db.Delete(&types.Request{}, "id = ?", requestID).Error)
	}

	err := f.controller.AddOpinion(ctx, "202", requestID, types.VerdictRejected, "Late pass, still thorough.", "")
	require.NoError(t, err)
	assert.Equal(t, 1, f.widgets.synced+f.widgets.created)
}

func TestResolveToleratesMidFlightDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	requestID := f.submit(t, 128, "10")

	// The row disappears while the resolution card is being created,
	// before the details card would be archived.
	f.widgets.onCreate = func() {
		require.NoError(t, f.db.Delete(&types.Request{}, "id = ?", requestID).Error)
	}

	found, err := f.controller.Resolve(ctx, "900", requestID, nil, "", "gone already")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Zero(t, f.widgets.archived)
}

func TestCompleteRequestSetsRequestedAtOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	requestID := f.submit(t, 128, "10")
	before, err := f.controller.GetRequestByID(requestID)
	require.NoError(t, err)
	require.NotNil(t, before.RequestedAt)

	err = f.controller.CompleteRequest(ctx, requestID, "", "second try", "10", false, true)
	assert.ErrorIs(t, err, apperr.ErrAlreadySatisfies)

	after, err := f.controller.GetRequestByID(requestID)
	require.NoError(t, err)
	require.NotNil(t, after.RequestedAt)
	assert.Equal(t, *before.RequestedAt, *after.RequestedAt)
	assert.NotEqual(t, "second try", after.AdditionalComment)
	assert.Equal(t, 1, f.widgets.posted)
}

func TestCompletedSubmissionCastsCooldowns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	requestID, err := f.controller.StartSubmission(ctx, 128, types.LanguageEnglish, "10", "10", true, false, false)
	require.NoError(t, err)
	require.NoError(t, f.controller.CompleteRequest(ctx, requestID, "", "", "10", true, true))

	current, err := f.cooldowns.GetCurrent(types.CooldownEntityUser, "10")
	require.NoError(t, err)
	require.NotNil(t, current)
	require.NotNil(t, current.CausingRequestID)
	assert.Equal(t, requestID, *current.CausingRequestID)

	// The default level cooldown is null, so no level row appears.
	levelCd, err := f.cooldowns.GetCurrent(types.CooldownEntityLevel, "128")
	require.NoError(t, err)
	assert.Nil(t, levelCd)
}

func TestShowcaseValidation(t *testing.T) {
	for _, link := range []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ",
		"http://m.youtube.com/embed/dQw4w9WgXcQ",
	} {
		videoID, err := ShowcaseVideoID(link)
		require.NoError(t, err, link)
		assert.Equal(t, "dQw4w9WgXcQ", videoID, link)
	}

	for _, link := range []string{
		"https://vimeo.com/1234567",
		"not a url",
		"https://youtube.com.evil.example/watch?v=dQw4w9WgXcQ",
	} {
		_, err := ShowcaseVideoID(link)
		assert.ErrorIs(t, err, ErrInvalidShowcaseLink, link)
	}

	f := newFixture(t)
	requestID, err := f.controller.StartSubmission(context.Background(), 128, types.LanguageEnglish, "10", "10", true, false, false)
	require.NoError(t, err)
	err = f.controller.CompleteRequest(context.Background(), requestID, "https://vimeo.com/1234567", "", "10", false, true)
	assert.ErrorIs(t, err, ErrInvalidShowcaseLink)
}

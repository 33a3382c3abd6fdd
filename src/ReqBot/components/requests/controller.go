// Package requests drives a request through its lifecycle: limbo on
// creation, pending once submission details are in, resolved when the
// first resolution verdict lands, archived or deleted afterwards. The
// store rows are the system of record; the Discord cards are best-effort
// projections maintained through the widget reconciler.
package requests

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sendcrew/reqbot/src/ReqBot/components/catalog"
	"github.com/sendcrew/reqbot/src/ReqBot/components/cooldown"
	"github.com/sendcrew/reqbot/src/ReqBot/components/widget"
	"github.com/sendcrew/reqbot/src/discord"
	"github.com/sendcrew/reqbot/src/eventlog"
	"github.com/sendcrew/reqbot/src/params"
	"github.com/sendcrew/reqbot/src/routes"
	"github.com/sendcrew/reqbot/src/shared/apperr"
	"github.com/sendcrew/reqbot/src/shared/data"
	"github.com/sendcrew/reqbot/src/shared/types"
	"github.com/sendcrew/reqbot/src/texts"
	"gorm.io/gorm"
)

// LevelCatalog resolves level metadata for submissions.
type LevelCatalog interface {
	GetLevel(ctx context.Context, levelID uint64) (*catalog.Level, error)
}

// WidgetReconciler maintains the external request cards.
type WidgetReconciler interface {
	PostDetails(input widget.CardInput) (*discord.Ref, error)
	CreateResolution(requestID uint64, details *discordgo.MessageEmbed, tally widget.Tally) (*discord.Ref, error)
	SyncResolution(ref discord.Ref, tally widget.Tally) error
	Archive(detailsRef, resolutionRef discord.Ref) (*discord.Ref, error)
}

// Poster posts through logical routes; a nil ref means the route is
// administratively disabled.
type Poster interface {
	Post(route string, send *discordgo.MessageSend) (*discord.Ref, error)
	PostText(route, content string) error
}

// MessageStore reads and deletes weakly referenced messages.
type MessageStore interface {
	Find(ref discord.Ref) (*discordgo.Message, error)
	SafeDelete(ref discord.Ref)
}

// AdmissionChecker gates the queue; attached after construction since it
// counts pending requests through this controller.
type AdmissionChecker interface {
	IsBlocked() (bool, error)
	PostSubmitCheck(ctx context.Context) error
	PostResolutionCheck(ctx context.Context) error
}

type Config struct {
	Provider  *data.Provider
	Catalog   LevelCatalog
	Cooldowns *cooldown.Engine
	Widgets   WidgetReconciler
	Poster    Poster
	Messages  MessageStore
	Params    *params.Store
	Events    *eventlog.Logger
}

type Controller struct {
	provider  *data.Provider
	catalog   LevelCatalog
	cooldowns *cooldown.Engine
	admission AdmissionChecker
	widgets   WidgetReconciler
	poster    Poster
	messages  MessageStore
	params    *params.Store
	events    *eventlog.Logger
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

func NewController(cfg Config) *Controller {
	return &Controller{
		provider:  cfg.Provider,
		catalog:   cfg.Catalog,
		cooldowns: cfg.Cooldowns,
		widgets:   cfg.Widgets,
		poster:    cfg.Poster,
		messages:  cfg.Messages,
		params:    cfg.Params,
		events:    cfg.Events,
		sanitizer: bluemonday.StrictPolicy(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// AttachAdmission wires the queue gate in once it exists; the gate itself
// counts pending requests through this controller.
func (c *Controller) AttachAdmission(admission AdmissionChecker) {
	c.admission = admission
}

// StartSubmission runs the pre-creation gates and, when all pass,
// persists the limbo row. The cooldown gates halt the flow before
// anything is written, reporting the exact restriction in the error.
func (c *Controller) StartSubmission(ctx context.Context, levelID uint64, lang types.Language, invokerID, author string, isAuthorUserID, bypassBlock, bypassCooldown bool) (uint64, error) {
	if !bypassBlock && c.admission != nil {
		blocked, err := c.admission.IsBlocked()
		if err != nil {
			return 0, err
		}
		if blocked {
			return 0, ErrQueueBlocked
		}
	}

	if !bypassCooldown {
		current, err := c.cooldowns.GetCurrent(types.CooldownEntityUser, invokerID)
		if err != nil {
			return 0, err
		}
		if current != nil {
			return 0, OnCooldownError{Cooldown: *current}
		}
	}

	levelCd, err := c.cooldowns.GetCurrent(types.CooldownEntityLevel, strconv.FormatUint(levelID, 10))
	if err != nil {
		return 0, err
	}
	if levelCd != nil {
		return 0, OnCooldownError{Cooldown: *levelCd}
	}

	if err := c.AssertLevelRequestable(levelID); err != nil {
		return 0, err
	}

	return c.CreateLimboRequest(levelID, lang, author, isAuthorUserID, invokerID)
}

// AssertLevelRequestable fails when the level already has an approved
// resolution or a still-pending request on record.
func (c *Controller) AssertLevelRequestable(levelID uint64) error {
	db, err := c.provider.DB()
	if err != nil {
		return err
	}

	var approval types.RequestOpinion
	err = db.Joins("JOIN requests ON requests.id = request_opinions.request_id").
		Where("requests.level_id = ? AND request_opinions.is_resolution = ? AND request_opinions.verdict = ?",
			levelID, true, types.VerdictApproved).
		First(&approval).Error
	if err == nil {
		var approved types.Request
		if err := db.First(&approved, "id = ?", approval.RequestID).Error; err != nil {
			return err
		}
		return LevelAlreadyApprovedError{
			AuthorMention: approved.AuthorMention(),
			RequestedAt:   approved.RequestedAt,
			ResolvedAt:    approval.CreatedAt,
		}
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	pending, err := firstRequest(c.pendingScope(db).Where("level_id = ?", levelID))
	if err != nil {
		return err
	}
	if pending != nil {
		return PreviousRequestPendingError{
			AuthorMention: pending.AuthorMention(),
			RequestedAt:   pending.RequestedAt,
		}
	}
	return nil
}

// CreateLimboRequest persists a limbo row: created, invisible to
// reviewers until the submission details arrive.
func (c *Controller) CreateLimboRequest(levelID uint64, lang types.Language, author string, isAuthorUserID bool, invokerID string) (uint64, error) {
	db, err := c.provider.DB()
	if err != nil {
		return 0, err
	}

	row := types.Request{
		LevelID:        levelID,
		Language:       lang,
		RequestAuthor:  author,
		IsAuthorUserID: isAuthorUserID,
	}
	if err := db.Create(&row).Error; err != nil {
		return 0, err
	}

	c.events.Record(eventlog.EventRequestInitialized, invokerID, map[string]string{
		"request_id": strconv.FormatUint(row.ID, 10),
		"level_id":   strconv.FormatUint(levelID, 10),
		"lang":       string(lang),
	})
	return row.ID, nil
}

// CompleteRequest turns a limbo row into a pending one: validates the
// showcase link, fetches level metadata, posts the details card and only
// then sets requested_at. When the pending-request route is disabled the
// row is left untouched and the call succeeds, so it can be retried.
// Completing an already-pending request reports apperr.ErrAlreadySatisfies.
func (c *Controller) CompleteRequest(ctx context.Context, requestID uint64, showcaseLink, comment, invokerID string, castCooldowns, allowAdmissionCheck bool) error {
	videoID := ""
	if showcaseLink != "" {
		var err error
		if videoID, err = ShowcaseVideoID(showcaseLink); err != nil {
			return err
		}
	}

	request, err := c.GetRequestByID(requestID)
	if err != nil {
		return err
	}
	if request == nil {
		return ErrNotFound
	}
	if request.RequestedAt != nil {
		return apperr.ErrAlreadySatisfies
	}

	level, err := c.catalog.GetLevel(ctx, request.LevelID)
	if err != nil {
		return err
	}
	if level == nil {
		return fmt.Errorf("%w: level %d is gone from the catalog", ErrNotFound, request.LevelID)
	}

	comment = c.sanitizer.Sanitize(comment)
	ref, err := c.widgets.PostDetails(widget.CardInput{
		RequestID:       requestID,
		LevelID:         request.LevelID,
		Level:           level,
		Language:        request.Language,
		ShowcaseLink:    showcaseLink,
		ShowcaseVideoID: videoID,
		Comment:         comment,
		AuthorMention:   request.AuthorMention(),
	})
	if err != nil {
		return err
	}
	if ref == nil {
		return nil
	}

	db, err := c.provider.DB()
	if err != nil {
		return err
	}
	// requested_at is set at most once; the condition keeps a concurrent
	// completion from overwriting it.
	result := db.Model(&types.Request{}).
		Where("id = ? AND requested_at IS NULL", requestID).
		Updates(map[string]interface{}{
			"level_name":         level.Name,
			"showcase_link":      showcaseLink,
			"additional_comment": comment,
			"details_channel_id": ref.ChannelID,
			"details_message_id": ref.MessageID,
			"requested_at":       c.now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Another completion got there first; drop the card this call posted.
		c.messages.SafeDelete(*ref)
		return nil
	}

	if allowAdmissionCheck && c.admission != nil {
		if err := c.admission.PostSubmitCheck(ctx); err != nil {
			return err
		}
	}

	if castCooldowns {
		if err := c.cooldowns.CastAfterRequest(types.CooldownEntityUser, invokerID, requestID); err != nil {
			return err
		}
		if err := c.cooldowns.CastAfterRequest(types.CooldownEntityLevel, strconv.FormatUint(request.LevelID, 10), requestID); err != nil {
			return err
		}
	}

	c.events.Record(eventlog.EventRequestRequested, invokerID, map[string]string{
		"request_id": strconv.FormatUint(requestID, 10),
		"level_id":   strconv.FormatUint(request.LevelID, 10),
		"level_name": level.Name,
	})
	return nil
}

// AddOpinion appends a reviewer verdict with an optional posted review.
// The first opinion ever recorded claims the right to create the
// resolution card; later ones re-render the tally onto it.
func (c *Controller) AddOpinion(ctx context.Context, reviewerID string, requestID uint64, verdict types.Verdict, reviewText, reason string) error {
	request, err := c.GetRequestByID(requestID)
	if err != nil {
		return err
	}
	if request == nil {
		return ErrNotFound
	}

	db, err := c.provider.DB()
	if err != nil {
		return err
	}

	var reviewID *uint64
	reviewURL := "NO_REVIEW"
	if reviewText != "" {
		review, err := c.postReview(db, request, reviewerID, verdict, reviewText, params.AppendConclusionToReview)
		if err != nil {
			return err
		}
		reviewID = &review.ID
		if review.MessageID != "" {
			reviewURL = review.MessageChannelID + "/" + review.MessageID
		}
	}

	opinion := types.RequestOpinion{
		RequestID:    requestID,
		AuthorUserID: reviewerID,
		Verdict:      verdict,
		Reason:       reason,
		ReviewID:     reviewID,
	}
	if err := db.Create(&opinion).Error; err != nil {
		return err
	}

	isFirst, err := c.claimWidget(db, requestID)
	if err != nil {
		return err
	}
	if err := c.reconcileResolutionCard(db, request, isFirst); err != nil {
		return err
	}

	logReason := reason
	if logReason == "" {
		logReason = "NO_REASON"
	}
	c.events.Record(eventlog.EventRequestOpinionAdded, reviewerID, map[string]string{
		"request_id": strconv.FormatUint(requestID, 10),
		"level_id":   strconv.FormatUint(request.LevelID, 10),
		"level_name": request.LevelName,
		"verdict":    string(verdict),
		"is_first":   strconv.FormatBool(isFirst),
		"review_msg": reviewURL,
		"reason":     logReason,
	})
	return nil
}

// Resolve appends a resolution verdict. The first resolution archives
// the details card, posts the public outcome notification and runs the
// admission unblock check; later resolutions only extend the tally.
// Returns false only when the request id does not exist.
func (c *Controller) Resolve(ctx context.Context, modID string, requestID uint64, grade *types.GradeType, reviewText, reason string) (bool, error) {
	request, err := c.GetRequestByID(requestID)
	if err != nil {
		return false, err
	}
	if request == nil {
		return false, nil
	}

	verdict := types.VerdictRejected
	if grade != nil {
		verdict = types.VerdictApproved
	}

	db, err := c.provider.DB()
	if err != nil {
		return false, err
	}

	var reviewID *uint64
	if reviewText != "" {
		review, err := c.postReview(db, request, modID, verdict, reviewText, params.AppendConclusionToFinalReview)
		if err != nil {
			return false, err
		}
		reviewID = &review.ID
	}

	opinion := types.RequestOpinion{
		RequestID:    requestID,
		AuthorUserID: modID,
		Verdict:      verdict,
		IsResolution: true,
		Reason:       reason,
		ReviewID:     reviewID,
	}
	if err := db.Create(&opinion).Error; err != nil {
		return false, err
	}

	isFirst, err := c.claimResolved(db, requestID)
	if err != nil {
		return false, err
	}

	// The resolution card may not exist yet when resolving without prior
	// opinions; claim its creation the same way a first opinion would.
	createCard, err := c.claimWidget(db, requestID)
	if err != nil {
		return false, err
	}
	if err := c.reconcileResolutionCard(db, request, createCard); err != nil {
		return false, err
	}

	if isFirst {
		if err := c.archiveDetails(db, requestID); err != nil {
			return false, err
		}
		if err := c.postOutcomeNotification(request, modID, grade, reason); err != nil {
			return false, err
		}
		if c.admission != nil {
			if err := c.admission.PostResolutionCheck(ctx); err != nil {
				return false, err
			}
		}
	}

	c.events.Record(eventlog.EventRequestResolutionAdded, modID, map[string]string{
		"request_id": strconv.FormatUint(requestID, 10),
		"level_id":   strconv.FormatUint(request.LevelID, 10),
		"level_name": request.LevelName,
		"verdict":    string(verdict),
		"is_first":   strconv.FormatBool(isFirst),
	})
	return true, nil
}

// DeleteRequest hard-deletes the row and best-effort removes both cards.
func (c *Controller) DeleteRequest(requestID uint64, invokerID string) error {
	request, err := c.GetRequestByID(requestID)
	if err != nil {
		return err
	}
	if request == nil {
		return ErrNotFound
	}

	c.messages.SafeDelete(discord.Ref{ChannelID: request.ResolutionChannelID, MessageID: request.ResolutionMessageID})
	c.messages.SafeDelete(discord.Ref{ChannelID: request.DetailsChannelID, MessageID: request.DetailsMessageID})

	db, err := c.provider.DB()
	if err != nil {
		return err
	}
	if err := db.Delete(&types.RequestOpinion{}, "request_id = ?", requestID).Error; err != nil {
		return err
	}
	if err := db.Delete(&types.RequestReview{}, "request_id = ?", requestID).Error; err != nil {
		return err
	}
	if err := db.Delete(&types.Request{}, "id = ?", requestID).Error; err != nil {
		return err
	}

	c.events.Record(eventlog.EventRequestDeleted, invokerID, map[string]string{
		"request_id": strconv.FormatUint(requestID, 10),
	})
	return nil
}

// claimWidget marks the resolution-card creation as taken. The
// conditional update makes exactly one caller the creator.
func (c *Controller) claimWidget(db *gorm.DB, requestID uint64) (bool, error) {
	result := db.Model(&types.Request{}).
		Where("id = ? AND widget_claimed_at IS NULL", requestID).
		Update("widget_claimed_at", c.now())
	return result.RowsAffected == 1, result.Error
}

// claimResolved marks the pending→resolved transition as taken, exactly
// once per request.
func (c *Controller) claimResolved(db *gorm.DB, requestID uint64) (bool, error) {
	result := db.Model(&types.Request{}).
		Where("id = ? AND resolved_at IS NULL", requestID).
		Update("resolved_at", c.now())
	return result.RowsAffected == 1, result.Error
}

// reconcileResolutionCard regenerates the tally from rows and either
// creates the resolution card (for the claim winner) or re-renders the
// existing one.
func (c *Controller) reconcileResolutionCard(db *gorm.DB, request *types.Request, create bool) error {
	tally, err := c.loadTally(db, request.ID)
	if err != nil {
		return err
	}

	if !create {
		fresh, err := c.GetRequestByID(request.ID)
		if err != nil {
			return err
		}
		if fresh == nil {
			// The row was deleted under us; there is nothing left to render.
			return nil
		}
		ref := discord.Ref{ChannelID: fresh.ResolutionChannelID, MessageID: fresh.ResolutionMessageID}
		if ref.IsZero() {
			return nil
		}
		return c.widgets.SyncResolution(ref, tally)
	}

	detailsRef := discord.Ref{ChannelID: request.DetailsChannelID, MessageID: request.DetailsMessageID}
	details, err := c.messages.Find(detailsRef)
	if err != nil {
		return err
	}
	if details == nil || len(details.Embeds) == 0 {
		return fmt.Errorf("requests: details card of request %d is missing, cannot seed the resolution card", request.ID)
	}

	ref, err := c.widgets.CreateResolution(request.ID, details.Embeds[0], tally)
	if err != nil {
		return err
	}
	if ref == nil {
		return nil
	}
	return db.Model(&types.Request{}).Where("id = ?", request.ID).Updates(map[string]interface{}{
		"resolution_channel_id": ref.ChannelID,
		"resolution_message_id": ref.MessageID,
	}).Error
}

// archiveDetails swaps the details card for its read-only archive copy.
// Skipped silently when either card reference is absent (route disabled)
// or when the row vanished under a concurrent delete.
func (c *Controller) archiveDetails(db *gorm.DB, requestID uint64) error {
	request, err := c.GetRequestByID(requestID)
	if err != nil {
		return err
	}
	if request == nil {
		return nil
	}

	detailsRef := discord.Ref{ChannelID: request.DetailsChannelID, MessageID: request.DetailsMessageID}
	resolutionRef := discord.Ref{ChannelID: request.ResolutionChannelID, MessageID: request.ResolutionMessageID}
	if detailsRef.IsZero() || resolutionRef.IsZero() {
		return nil
	}

	archiveRef, err := c.widgets.Archive(detailsRef, resolutionRef)
	if err != nil {
		return err
	}
	if archiveRef == nil {
		return nil
	}
	return db.Model(&types.Request{}).Where("id = ?", requestID).Updates(map[string]interface{}{
		"details_channel_id": archiveRef.ChannelID,
		"details_message_id": archiveRef.MessageID,
	}).Error
}

func (c *Controller) loadTally(db *gorm.DB, requestID uint64) (widget.Tally, error) {
	var opinions []types.RequestOpinion
	if err := db.Where("request_id = ?", requestID).Order("created_at ASC, id ASC").Find(&opinions).Error; err != nil {
		return widget.Tally{}, err
	}
	var reviews []types.RequestReview
	if err := db.Where("request_id = ?", requestID).Find(&reviews).Error; err != nil {
		return widget.Tally{}, err
	}
	return widget.BuildTally(opinions, reviews), nil
}

// postReview posts the rendered review text through the review route and
// persists the review row. A disabled route still persists the row, just
// without a message reference.
func (c *Controller) postReview(db *gorm.DB, request *types.Request, authorID string, verdict types.Verdict, text, summaryParamID string) (*types.RequestReview, error) {
	clean := c.sanitizer.Sanitize(text)

	summary := ""
	appendSummary, err := c.params.GetBool(summaryParamID)
	if err != nil {
		return nil, err
	}
	if appendSummary {
		piece := texts.RequestSummaryBad
		if verdict == types.VerdictApproved {
			piece = texts.RequestSummaryGood
		}
		summary = "\n" + texts.Render(piece, request.Language, nil)
	}

	content := texts.Render(texts.RequestReview, request.Language, map[string]string{
		"request_author":   request.AuthorMention(),
		"reviewer_mention": discord.AsUser(authorID),
		"level_id":         strconv.FormatUint(request.LevelID, 10),
		"level_name":       discord.AsCode(request.LevelName),
		"review_text":      discord.AsCodeBlock(clean),
		"summary":          summary,
	})

	ref, err := c.poster.Post(routes.ReviewText, &discordgo.MessageSend{Content: content})
	if err != nil {
		return nil, err
	}

	review := types.RequestReview{
		RequestID:    request.ID,
		AuthorUserID: authorID,
		Text:         clean,
		Verdict:      verdict,
	}
	if ref != nil {
		review.MessageChannelID = ref.ChannelID
		review.MessageID = ref.MessageID
	}
	if err := db.Create(&review).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// postOutcomeNotification publishes the public approval or rejection
// notice in the request's language.
func (c *Controller) postOutcomeNotification(request *types.Request, modID string, grade *types.GradeType, reason string) error {
	if grade != nil {
		content := texts.Render(texts.RequestApproved, request.Language, map[string]string{
			"request_author":          request.AuthorMention(),
			"responsible_mod_mention": discord.AsUser(modID),
			"level_id":                strconv.FormatUint(request.LevelID, 10),
			"level_name":              discord.AsCode(request.LevelName),
			"grade":                   texts.Render(texts.GradePiece(*grade), request.Language, nil),
		})
		if reason != "" {
			content += "\n" + texts.Render(texts.RequestApprovalAddendum, request.Language, map[string]string{
				"comment": discord.AsCode(reason),
			})
		}
		return c.poster.PostText(routes.ApprovalNotification, content)
	}

	reasonStr := texts.Render(texts.CommonNotSpecified, request.Language, nil)
	if reason != "" {
		reasonStr = discord.AsCode(reason)
	}
	content := texts.Render(texts.RequestRejected, request.Language, map[string]string{
		"request_author":          request.AuthorMention(),
		"responsible_mod_mention": discord.AsUser(modID),
		"level_id":                strconv.FormatUint(request.LevelID, 10),
		"level_name":              discord.AsCode(request.LevelName),
		"reason":                  reasonStr,
	})
	return c.poster.PostText(routes.RejectionNotification, content)
}

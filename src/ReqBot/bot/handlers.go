package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sendcrew/reqbot/src/ReqBot/components/actions"
	"github.com/sendcrew/reqbot/src/ReqBot/components/cooldown"
	"github.com/sendcrew/reqbot/src/ReqBot/components/requests"
	"github.com/sendcrew/reqbot/src/discord"
	"github.com/sendcrew/reqbot/src/params"
	"github.com/sendcrew/reqbot/src/permissions"
	"github.com/sendcrew/reqbot/src/shared/apperr"
	"github.com/sendcrew/reqbot/src/shared/types"
)

// Modal custom id prefixes. Component custom ids are owned by the action
// registry; these cover the two modal flows the bot opens itself.
const (
	modalSubmission = "rsm"
	modalReview     = "rvm"
)

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(s, i)
	case discordgo.InteractionMessageComponent:
		if err := b.actions.Dispatch(s, i); err != nil {
			log.Printf("bot: component %q: %v", i.MessageComponentData().CustomID, err)
			respond(s, i, "Something went wrong, please try again later.")
		}
	case discordgo.InteractionModalSubmit:
		b.handleModal(s, i)
	}
}

func (b *Bot) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	sub, opts := subcommand(data)

	switch data.Name {
	case CommandRequest:
		b.handleRequestCommand(s, i, sub, opts)
	case CommandQueue:
		b.handleQueueCommand(s, i, sub)
	case CommandUserCd:
		b.handleCooldownCommand(s, i, types.CooldownEntityUser, sub, opts)
	case CommandLevelCd:
		b.handleCooldownCommand(s, i, types.CooldownEntityLevel, sub, opts)
	case CommandParam:
		b.handleParamCommand(s, i, sub, opts)
	case CommandRoute:
		b.handleRouteCommand(s, i, sub, opts)
	case CommandPerm:
		b.handlePermCommand(s, i, sub, opts)
	}
}

func (b *Bot) handleRequestCommand(s *discordgo.Session, i *discordgo.InteractionCreate, sub string, opts optionMap) {
	switch sub {
	case "submit":
		b.handleRequestSubmit(s, i, opts)
	case "delete":
		if !b.permissions.Has(i.Member, permissions.FlagRequestManagement) {
			respondDenied(s, i)
			return
		}
		requestID := uint64(opts.integer("request_id"))
		if err := b.requests.DeleteRequest(requestID, i.Member.User.ID); err != nil {
			respondEngineError(s, i, err)
			return
		}
		respond(s, i, fmt.Sprintf("Request %d deleted.", requestID))
	}
}

// handleRequestSubmit runs the pre-creation gates and, when they pass,
// opens the submission modal bound to the freshly created limbo row.
func (b *Bot) handleRequestSubmit(s *discordgo.Session, i *discordgo.InteractionCreate, opts optionMap) {
	invokerID := i.Member.User.ID
	author := invokerID
	isAuthorUserID := true

	if onBehalf := opts.text("author"); onBehalf != "" {
		if !b.permissions.Has(i.Member, permissions.FlagRequestManagement) {
			respondDenied(s, i)
			return
		}
		author, isAuthorUserID = parseAuthor(onBehalf)
	}

	levelID := uint64(opts.integer("level_id"))
	lang := types.Language(opts.text("language"))
	bypassBlock := b.permissions.Has(i.Member, permissions.FlagQueueBlockImmunity)
	bypassCooldown := b.permissions.Has(i.Member, permissions.FlagNoRequestCooldown)

	requestID, err := b.requests.StartSubmission(context.Background(), levelID, lang, invokerID, author, isAuthorUserID, bypassBlock, bypassCooldown)
	if err != nil {
		respondEngineError(s, i, err)
		return
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: fmt.Sprintf("%s:%d", modalSubmission, requestID),
			Title:    "Submit your request",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:    "showcase_link",
						Label:       "Showcase video link",
						Style:       discordgo.TextInputShort,
						MaxLength:   128,
						Placeholder: "https://youtu.be/...",
					},
				}},
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:  "comment",
						Label:     "Additional comment",
						Style:     discordgo.TextInputParagraph,
						MaxLength: 512,
					},
				}},
			},
		},
	})
	if err != nil {
		log.Printf("bot: open submission modal for request %d: %v", requestID, err)
	}
}

func (b *Bot) handleQueueCommand(s *discordgo.Session, i *discordgo.InteractionCreate, sub string) {
	if sub == "info" {
		blocked, err := b.admission.IsBlocked()
		if err != nil {
			respondEngineError(s, i, err)
			return
		}
		pending, err := b.requests.CountPending(context.Background())
		if err != nil {
			respondEngineError(s, i, err)
			return
		}
		state := "open"
		if blocked {
			state = "closed"
		}
		respond(s, i, fmt.Sprintf("The queue is %s with %d pending requests.", state, pending))
		return
	}

	if !b.permissions.Has(i.Member, permissions.FlagAdmin) {
		respondDenied(s, i)
		return
	}

	value := "false"
	done := "Queue opened."
	if sub == "close" {
		value = "true"
		done = "Queue closed."
	}

	err := b.params.Update(params.QueueBlocked, value, i.Member.User.ID)
	if errors.Is(err, apperr.ErrAlreadySatisfies) {
		respond(s, i, "The queue is already in that state.")
		return
	}
	if err != nil {
		respondEngineError(s, i, err)
		return
	}
	respond(s, i, done)
}

func (b *Bot) handleModal(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()
	parts := strings.Split(data.CustomID, ":")
	values := modalValues(data)

	switch parts[0] {
	case modalSubmission:
		if len(parts) != 2 {
			return
		}
		requestID, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			return
		}

		castCooldowns := !b.permissions.Has(i.Member, permissions.FlagNoRequestCooldown)
		err = b.requests.CompleteRequest(context.Background(), requestID,
			strings.TrimSpace(values["showcase_link"]), values["comment"],
			i.Member.User.ID, castCooldowns, true)
		if err != nil {
			respondEngineError(s, i, err)
			return
		}
		respond(s, i, fmt.Sprintf("Request %d submitted, the reviewers will take a look.", requestID))

	case modalReview:
		if len(parts) != 3 {
			return
		}
		requestID, err := strconv.ParseUint(parts[2], 10, 64)
		if err != nil {
			return
		}

		verdict := types.VerdictRejected
		if actions.Verb(parts[1]) == actions.VerbApproveWithReview {
			verdict = types.VerdictApproved
		}
		err = b.requests.AddOpinion(context.Background(), i.Member.User.ID, requestID,
			verdict, values["review_text"], strings.TrimSpace(values["reason"]))
		if err != nil {
			respondEngineError(s, i, err)
			return
		}
		respond(s, i, fmt.Sprintf("Your review of request %d was posted.", requestID))
	}
}

// registerActions wires the widget card components to engine operations.
// Opinion affordances need the reviewer flag, resolutions the moderator
// flag; the registry itself stays permission-free.
func (b *Bot) registerActions() {
	b.actions.Register(actions.VerbApprove, b.opinionHandler(types.VerdictApproved))
	b.actions.Register(actions.VerbReject, b.opinionHandler(types.VerdictRejected))
	b.actions.Register(actions.VerbApproveWithReview, b.reviewModalHandler())
	b.actions.Register(actions.VerbRejectWithReview, b.reviewModalHandler())

	grades := map[actions.Verb]types.GradeType{
		actions.VerbSendStarrate:  types.GradeStarrate,
		actions.VerbSendFeature:   types.GradeFeature,
		actions.VerbSendEpic:      types.GradeEpic,
		actions.VerbSendMythic:    types.GradeMythic,
		actions.VerbSendLegendary: types.GradeLegendary,
	}
	for verb, grade := range grades {
		grade := grade
		b.actions.Register(verb, b.resolveHandler(&grade))
	}
	b.actions.Register(actions.VerbResolveReject, b.resolveHandler(nil))
}

func (b *Bot) opinionHandler(verdict types.Verdict) actions.Handler {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate, action actions.Action) error {
		if !b.permissions.Has(i.Member, permissions.FlagReviewer) {
			respondDenied(s, i)
			return nil
		}

		err := b.requests.AddOpinion(context.Background(), i.Member.User.ID, action.RequestID, verdict, "", "")
		if err != nil {
			respondEngineError(s, i, err)
			return nil
		}
		respond(s, i, fmt.Sprintf("Your opinion on request %d was recorded.", action.RequestID))
		return nil
	}
}

func (b *Bot) reviewModalHandler() actions.Handler {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate, action actions.Action) error {
		if !b.permissions.Has(i.Member, permissions.FlagReviewer) {
			respondDenied(s, i)
			return nil
		}

		return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseModal,
			Data: &discordgo.InteractionResponseData{
				CustomID: fmt.Sprintf("%s:%s:%d", modalReview, action.Verb, action.RequestID),
				Title:    fmt.Sprintf("Review request %d", action.RequestID),
				Components: []discordgo.MessageComponent{
					discordgo.ActionsRow{Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:  "review_text",
							Label:     "Review",
							Style:     discordgo.TextInputParagraph,
							Required:  true,
							MaxLength: 1500,
						},
					}},
					discordgo.ActionsRow{Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:  "reason",
							Label:     "Short reasoning for the tally",
							Style:     discordgo.TextInputShort,
							MaxLength: 256,
						},
					}},
				},
			},
		})
	}
}

func (b *Bot) resolveHandler(grade *types.GradeType) actions.Handler {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate, action actions.Action) error {
		if !b.permissions.Has(i.Member, permissions.FlagModerator) {
			respondDenied(s, i)
			return nil
		}

		found, err := b.requests.Resolve(context.Background(), i.Member.User.ID, action.RequestID, grade, "", "")
		if err != nil {
			respondEngineError(s, i, err)
			return nil
		}
		if !found {
			respond(s, i, fmt.Sprintf("Request %d no longer exists.", action.RequestID))
			return nil
		}
		respond(s, i, fmt.Sprintf("Your resolution of request %d was recorded.", action.RequestID))
		return nil
	}
}

// parseAuthor accepts either a user mention, which is recorded as a
// mentionable user id, or any other string recorded as an opaque display
// name.
func parseAuthor(raw string) (string, bool) {
	if strings.HasPrefix(raw, "<@") && strings.HasSuffix(raw, ">") {
		id := strings.TrimSuffix(strings.TrimPrefix(raw, "<@"), ">")
		id = strings.TrimPrefix(id, "!")
		if _, err := strconv.ParseUint(id, 10, 64); err == nil {
			return id, true
		}
	}
	return raw, false
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("bot: respond to interaction: %v", err)
	}
}

func respondDenied(s *discordgo.Session, i *discordgo.InteractionCreate) {
	respond(s, i, "You don't have permission to do that.")
}

// respondEngineError maps engine errors onto user-facing notices. Errors
// with no mapping are logged and reported generically.
func respondEngineError(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	respond(s, i, engineErrorText(err))
}

func engineErrorText(err error) string {
	var onCd requests.OnCooldownError
	var approved requests.LevelAlreadyApprovedError
	var pending requests.PreviousRequestPendingError
	var alreadyCd cooldown.AlreadyOnCooldownError
	var endInPast cooldown.EndInPastError
	var badValue params.BadValueError

	switch {
	case errors.Is(err, requests.ErrQueueBlocked):
		return "The queue is currently closed for new submissions."
	case errors.As(err, &onCd):
		return "On cooldown " + describeEnd(&onCd.Cooldown) + "."
	case errors.As(err, &approved):
		return fmt.Sprintf("This level was already approved on %s, it cannot be requested again.",
			discord.AsTimestamp(approved.ResolvedAt, discord.TimestampShort))
	case errors.As(err, &pending):
		return "A previous request for this level is still pending."
	case errors.As(err, &alreadyCd):
		return "Already on cooldown " + describeEnd(&alreadyCd.Current) + ". Pass force to overwrite it."
	case errors.As(err, &endInPast):
		return "The resulting cooldown end would be in the past."
	case errors.Is(err, cooldown.ErrEndless):
		return "That cooldown is endless, amend it instead of shifting it."
	case errors.As(err, &badValue):
		return fmt.Sprintf("%s is not a valid %s value for %s.",
			discord.AsCode(badValue.Value), badValue.Type, discord.AsCode(badValue.ID))
	case errors.Is(err, params.ErrUnknownParameter):
		return "Unknown parameter id."
	case errors.Is(err, requests.ErrInvalidShowcaseLink):
		return "That showcase link doesn't look like a valid video link."
	case errors.Is(err, requests.ErrNotFound):
		return "No such request."
	case errors.Is(err, apperr.ErrAlreadySatisfies):
		return "Nothing to change."
	default:
		log.Printf("bot: engine error: %v", err)
		return "Something went wrong, please try again later."
	}
}

func describeEnd(cd *types.Cooldown) string {
	if cd.Endless() {
		return "forever"
	}
	return "until " + discord.AsTimestamp(*cd.EndsAt, discord.TimestampShort)
}

// optionMap indexes subcommand options by name.
type optionMap map[string]*discordgo.ApplicationCommandInteractionDataOption

func (m optionMap) text(name string) string {
	if opt, ok := m[name]; ok {
		return opt.StringValue()
	}
	return ""
}

func (m optionMap) integer(name string) int64 {
	if opt, ok := m[name]; ok {
		return opt.IntValue()
	}
	return 0
}

func (m optionMap) boolean(name string) bool {
	if opt, ok := m[name]; ok {
		return opt.BoolValue()
	}
	return false
}

func subcommand(data discordgo.ApplicationCommandInteractionData) (string, optionMap) {
	if len(data.Options) == 0 {
		return "", optionMap{}
	}

	sub := data.Options[0]
	opts := make(optionMap, len(sub.Options))
	for _, opt := range sub.Options {
		opts[opt.Name] = opt
	}
	return sub.Name, opts
}

func modalValues(data discordgo.ModalSubmitInteractionData) map[string]string {
	values := make(map[string]string)
	for _, row := range data.Components {
		actionsRow, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, component := range actionsRow.Components {
			if input, ok := component.(*discordgo.TextInput); ok {
				values[input.CustomID] = input.Value
			}
		}
	}
	return values
}

package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sendcrew/reqbot/src/discord"
	"github.com/sendcrew/reqbot/src/permissions"
	"github.com/sendcrew/reqbot/src/shared/duration"
	"github.com/sendcrew/reqbot/src/shared/types"
)

const cooldownPageSize = 10

func (b *Bot) handleCooldownCommand(s *discordgo.Session, i *discordgo.InteractionCreate, entity types.CooldownEntity, sub string, opts optionMap) {
	if !b.permissions.Has(i.Member, permissions.FlagModerator) {
		respondDenied(s, i)
		return
	}

	casterID := i.Member.User.ID
	entityID := cooldownTarget(entity, opts)
	if sub != "list" && entityID == "" {
		respond(s, i, "A target is required.")
		return
	}

	switch sub {
	case "set":
		b.handleCooldownSet(s, i, entity, entityID, casterID, opts)
	case "modify":
		b.handleCooldownModify(s, i, entity, entityID, casterID, opts)
	case "amend":
		if entity == types.CooldownEntityUser && entityID != casterID &&
			!b.permissions.Has(i.Member, permissions.FlagRemoveOthersCooldowns) {
			respondDenied(s, i)
			return
		}
		if err := b.cooldowns.ManuallyAmend(entity, entityID, casterID, opts.text("reason")); err != nil {
			respondEngineError(s, i, err)
			return
		}
		respond(s, i, fmt.Sprintf("Cooldown on %s lifted.", discord.AsCode(entityID)))
	case "list":
		b.handleCooldownList(s, i, entity, opts)
	}
}

func (b *Bot) handleCooldownSet(s *discordgo.Session, i *discordgo.InteractionCreate, entity types.CooldownEntity, entityID, casterID string, opts optionMap) {
	normalized, err := duration.Normalize(opts.text("duration"), duration.TypeAbsolute)
	if err != nil {
		respond(s, i, "That duration doesn't parse; try something like 2w, 3d12h or inf.")
		return
	}
	if duration.IsNull(normalized) {
		respond(s, i, "A zero duration casts nothing; use amend to lift a cooldown.")
		return
	}

	var dur *time.Duration
	if !duration.IsInfinite(normalized) {
		d := duration.ParseAbs(normalized)
		dur = &d
	}

	err = b.cooldowns.ManuallySet(entity, entityID, casterID, dur, opts.text("reason"), opts.boolean("force"))
	if err != nil {
		respondEngineError(s, i, err)
		return
	}

	end := "forever"
	if dur != nil {
		end = "until " + discord.AsTimestamp(time.Now().Add(*dur), discord.TimestampShort)
	}
	respond(s, i, fmt.Sprintf("Cooldown on %s set %s.", discord.AsCode(entityID), end))
}

func (b *Bot) handleCooldownModify(s *discordgo.Session, i *discordgo.InteractionCreate, entity types.CooldownEntity, entityID, casterID string, opts optionMap) {
	normalized, err := duration.Normalize(opts.text("delta"), duration.TypeRelative)
	if err != nil || duration.IsNull(normalized) || duration.IsInfinite(normalized) {
		respond(s, i, "That delta doesn't parse; try something like +3d or -1w.")
		return
	}

	err = b.cooldowns.ManuallyModify(entity, entityID, casterID, duration.ParseRel(normalized), opts.text("reason"))
	if err != nil {
		respondEngineError(s, i, err)
		return
	}
	respond(s, i, fmt.Sprintf("Cooldown on %s shifted by %s.", discord.AsCode(entityID), normalized))
}

func (b *Bot) handleCooldownList(s *discordgo.Session, i *discordgo.InteractionCreate, entity types.CooldownEntity, opts optionMap) {
	page := int(opts.integer("page"))
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * cooldownPageSize

	var rows []types.Cooldown
	var err error
	if opts.text("kind") == "endless" {
		rows, err = b.cooldowns.ListEndless(entity, cooldownPageSize, offset)
	} else {
		rows, err = b.cooldowns.ListTemporary(entity, cooldownPageSize, offset)
	}
	if err != nil {
		respondEngineError(s, i, err)
		return
	}
	if len(rows) == 0 {
		respond(s, i, fmt.Sprintf("No %s cooldowns on page %d.", entity, page))
		return
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, fmt.Sprintf("%s cooldowns, page %d:", entityTitle(entity), page))
	for idx := range rows {
		row := &rows[idx]
		line := fmt.Sprintf("%s %s", cooldownMention(row), describeEnd(row))
		if row.Reason != "" {
			line += ": " + row.Reason
		}
		lines = append(lines, line)
	}
	respond(s, i, strings.Join(lines, "\n"))
}

func entityTitle(entity types.CooldownEntity) string {
	if entity == types.CooldownEntityLevel {
		return "Level"
	}
	return "User"
}

func cooldownTarget(entity types.CooldownEntity, opts optionMap) string {
	if entity == types.CooldownEntityLevel {
		return strings.TrimSpace(opts.text("level_id"))
	}

	raw := strings.TrimSpace(opts.text("user"))
	if raw == "" {
		return ""
	}
	id, _ := parseAuthor(raw)
	return id
}

func cooldownMention(row *types.Cooldown) string {
	if row.Entity == types.CooldownEntityUser {
		return discord.AsUser(row.EntityID)
	}
	return discord.AsCode(row.EntityID)
}

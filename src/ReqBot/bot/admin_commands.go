package bot

import (
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"github.com/sendcrew/reqbot/src/discord"
	"github.com/sendcrew/reqbot/src/eventlog"
	"github.com/sendcrew/reqbot/src/permissions"
)

func (b *Bot) handleParamCommand(s *discordgo.Session, i *discordgo.InteractionCreate, sub string, opts optionMap) {
	if !b.permissions.Has(i.Member, permissions.FlagAdmin) {
		respondDenied(s, i)
		return
	}

	id := opts.text("id")
	switch sub {
	case "set":
		if err := b.params.Update(id, opts.text("value"), i.Member.User.ID); err != nil {
			respondEngineError(s, i, err)
			return
		}
		respond(s, i, fmt.Sprintf("Parameter %s updated.", discord.AsCode(id)))
	case "reset":
		if err := b.params.Reset(id, i.Member.User.ID); err != nil {
			respondEngineError(s, i, err)
			return
		}
		respond(s, i, fmt.Sprintf("Parameter %s reset to its default.", discord.AsCode(id)))
	case "show":
		def, current, err := b.params.Explain(id)
		if err != nil {
			respondEngineError(s, i, err)
			return
		}
		respond(s, i, fmt.Sprintf("%s (%s, default %s): %s\nCurrent value: %s",
			discord.AsCode(def.ID), def.Type, discord.AsCode(def.Default),
			def.Description, discord.AsCode(current)))
	}
}

func (b *Bot) handleRouteCommand(s *discordgo.Session, i *discordgo.InteractionCreate, sub string, opts optionMap) {
	if !b.permissions.Has(i.Member, permissions.FlagAdmin) {
		respondDenied(s, i)
		return
	}

	id := opts.text("id")
	switch sub {
	case "bind":
		channelID := opts.channelID("channel")
		if err := b.routes.Bind(id, channelID); err != nil {
			respondEngineError(s, i, err)
			return
		}
		b.events.Record(eventlog.EventRouteEdited, i.Member.User.ID, map[string]string{
			"route_id":   id,
			"channel_id": channelID,
			"enabled":    "true",
		})
		respond(s, i, fmt.Sprintf("Route %s now posts to <#%s>.", discord.AsCode(id), channelID))
	case "toggle":
		enabled := opts.boolean("enabled")
		if err := b.routes.SetEnabled(id, enabled); err != nil {
			respondEngineError(s, i, err)
			return
		}
		b.events.Record(eventlog.EventRouteEdited, i.Member.User.ID, map[string]string{
			"route_id": id,
			"enabled":  strconv.FormatBool(enabled),
		})
		state := "enabled"
		if !enabled {
			state = "disabled"
		}
		respond(s, i, fmt.Sprintf("Route %s %s.", discord.AsCode(id), state))
	}
}

func (b *Bot) handlePermCommand(s *discordgo.Session, i *discordgo.InteractionCreate, sub string, opts optionMap) {
	if !b.permissions.Has(i.Member, permissions.FlagAdmin) {
		respondDenied(s, i)
		return
	}

	flag := opts.text("flag")
	roleID := opts.roleID("role")
	switch sub {
	case "bind":
		if err := b.permissions.Bind(flag, roleID, i.Member.User.ID); err != nil {
			respondEngineError(s, i, err)
			return
		}
		respond(s, i, fmt.Sprintf("Flag %s bound to %s.", discord.AsCode(flag), discord.AsRole(roleID)))
	case "unbind":
		if err := b.permissions.Unbind(flag, roleID, i.Member.User.ID); err != nil {
			respondEngineError(s, i, err)
			return
		}
		respond(s, i, fmt.Sprintf("Flag %s unbound from %s.", discord.AsCode(flag), discord.AsRole(roleID)))
	}
}

func (m optionMap) channelID(name string) string {
	if opt, ok := m[name]; ok {
		if channel := opt.ChannelValue(nil); channel != nil {
			return channel.ID
		}
	}
	return ""
}

func (m optionMap) roleID(name string) string {
	if opt, ok := m[name]; ok {
		if role := opt.RoleValue(nil, ""); role != nil {
			return role.ID
		}
	}
	return ""
}

package bot

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const (
	CommandRequest = "request"
	CommandQueue   = "queue"
	CommandUserCd  = "usercd"
	CommandLevelCd = "levelcd"
	CommandParam   = "param"
	CommandRoute   = "route"
	CommandPerm    = "perm"
)

var languageChoices = []*discordgo.ApplicationCommandOptionChoice{
	{Name: "English", Value: "eng"},
	{Name: "Русский", Value: "rus"},
}

// cooldownSubcommands is shared between /usercd and /levelcd; only the
// target option wording differs.
func cooldownSubcommands(targetName, targetDescription string) []*discordgo.ApplicationCommandOption {
	target := func(required bool) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        targetName,
			Description: targetDescription,
			Required:    required,
		}
	}

	return []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "set",
			Description: "Cast a cooldown (duration like 2w3d, or inf)",
			Options: []*discordgo.ApplicationCommandOption{
				target(true),
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "duration",
					Description: "Cooldown duration (e.g. 2w, 3d12h, inf)",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "reason",
					Description: "Why the cooldown is cast",
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "force",
					Description: "Overwrite an existing cooldown",
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "modify",
			Description: "Shift the end of the current cooldown by a signed delta",
			Options: []*discordgo.ApplicationCommandOption{
				target(true),
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "delta",
					Description: "Signed shift (e.g. +3d, -1w)",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "reason",
					Description: "Why the cooldown is shifted",
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "amend",
			Description: "Lift the current cooldown early",
			Options: []*discordgo.ApplicationCommandOption{
				target(true),
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "reason",
					Description: "Why the cooldown is lifted",
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "list",
			Description: "List active cooldowns",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "kind",
					Description: "Which cooldowns to list",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Temporary", Value: "temporary"},
						{Name: "Endless", Value: "endless"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "page",
					Description: "Page number, starting at 1",
				},
			},
		},
	}
}

var commandDefinitions = map[string]*discordgo.ApplicationCommand{
	CommandRequest: {
		Name:        CommandRequest,
		Description: "Level review requests",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "submit",
				Description: "Request a review of a level",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "level_id",
						Description: "The id of the level",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "language",
						Description: "Language the review should be written in",
						Required:    true,
						Choices:     languageChoices,
					},
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "author",
						Description: "Submit on behalf of someone else (request management only)",
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "delete",
				Description: "Delete a request and its cards",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "request_id",
						Description: "The id of the request",
						Required:    true,
					},
				},
			},
		},
	},
	CommandQueue: {
		Name:        CommandQueue,
		Description: "Request queue gate",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "open",
				Description: "Open the queue for new submissions",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "close",
				Description: "Close the queue for new submissions",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "info",
				Description: "Show the queue state and pending count",
			},
		},
	},
	CommandUserCd: {
		Name:        CommandUserCd,
		Description: "User cooldowns",
		Options:     cooldownSubcommands("user", "The user the cooldown applies to"),
	},
	CommandLevelCd: {
		Name:        CommandLevelCd,
		Description: "Level cooldowns",
		Options:     cooldownSubcommands("level_id", "The id of the level the cooldown applies to"),
	},
	CommandParam: {
		Name:        CommandParam,
		Description: "Bot parameters",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "set",
				Description: "Override a parameter value",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "id",
						Description: "Parameter id",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "value",
						Description: "New value",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "reset",
				Description: "Drop an override, falling back to the default",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "id",
						Description: "Parameter id",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "show",
				Description: "Show a parameter definition and its current value",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "id",
						Description: "Parameter id",
						Required:    true,
					},
				},
			},
		},
	},
	CommandRoute: {
		Name:        CommandRoute,
		Description: "Message routes",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "bind",
				Description: "Point a route at a channel and enable it",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "id",
						Description: "Route id",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionChannel,
						Name:        "channel",
						Description: "Destination channel",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "toggle",
				Description: "Enable or disable a bound route",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "id",
						Description: "Route id",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionBoolean,
						Name:        "enabled",
						Description: "Whether the route should post",
						Required:    true,
					},
				},
			},
		},
	},
	CommandPerm: {
		Name:        CommandPerm,
		Description: "Permission flag bindings",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "bind",
				Description: "Bind a permission flag to a role",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "flag",
						Description: "Permission flag",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionRole,
						Name:        "role",
						Description: "Role to bind",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "unbind",
				Description: "Unbind a permission flag from a role",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "flag",
						Description: "Permission flag",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionRole,
						Name:        "role",
						Description: "Role to unbind",
						Required:    true,
					},
				},
			},
		},
	},
}

var defaultCommandOrder = []string{
	CommandRequest,
	CommandQueue,
	CommandUserCd,
	CommandLevelCd,
	CommandParam,
	CommandRoute,
	CommandPerm,
}

// registerCommands registers every slash command for the guild.
func registerCommands(s *discordgo.Session, guildID string) error {
	if guildID == "" {
		return fmt.Errorf("bot: guildID is required to register slash commands")
	}

	var failures []string
	for _, name := range defaultCommandOrder {
		definition := commandDefinitions[name]
		if _, err := s.ApplicationCommandCreate(s.State.User.ID, guildID, definition); err != nil {
			if isDuplicateCommandError(err) {
				log.Printf("bot: slash command %q already registered", name)
				continue
			}
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
			log.Printf("bot: failed to register command %q: %v", name, err)
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("bot: slash command registration errors: %s", strings.Join(failures, "; "))
	}
	return nil
}

func isDuplicateCommandError(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		if strings.Contains(strings.ToLower(restErr.Message.Message), "already exists") {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "50035") && strings.Contains(msg, "already exists")
}

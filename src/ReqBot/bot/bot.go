// Package bot is the Discord-facing layer: session lifetime, slash
// command registration and the interaction handlers that translate
// commands, component clicks and modals into engine operations. All
// permission checks happen here; the engines below never consult roles.
package bot

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/v9"
	"github.com/sendcrew/reqbot/src/ReqBot/components/actions"
	"github.com/sendcrew/reqbot/src/ReqBot/components/admission"
	"github.com/sendcrew/reqbot/src/ReqBot/components/catalog"
	"github.com/sendcrew/reqbot/src/ReqBot/components/cooldown"
	"github.com/sendcrew/reqbot/src/ReqBot/components/requests"
	"github.com/sendcrew/reqbot/src/ReqBot/components/widget"
	"github.com/sendcrew/reqbot/src/discord"
	"github.com/sendcrew/reqbot/src/eventlog"
	"github.com/sendcrew/reqbot/src/params"
	"github.com/sendcrew/reqbot/src/permissions"
	"github.com/sendcrew/reqbot/src/routes"
	"github.com/sendcrew/reqbot/src/shared/data"
)

type Config struct {
	Token    string
	GuildID  string
	Provider *data.Provider
	Redis    *redis.Client
}

type Bot struct {
	session  *discordgo.Session
	provider *data.Provider
	rdb      *redis.Client
	config   Config

	routes      *routes.Manager
	notifier    *discord.Notifier
	messages    *discord.Messages
	events      *eventlog.Logger
	params      *params.Store
	permissions *permissions.Service
	cooldowns   *cooldown.Engine
	catalog     *catalog.Client
	widgets     *widget.Reconciler
	requests    *requests.Controller
	admission   *admission.Controller
	actions     *actions.Registry
}

func New(config Config) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, err
	}

	bot := &Bot{
		session:  dg,
		provider: config.Provider,
		rdb:      config.Redis,
		config:   config,
	}

	if err := bot.initializeComponents(); err != nil {
		return nil, err
	}

	bot.registerHandlers()

	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	return bot, nil
}

func (b *Bot) initializeComponents() error {
	routeManager, err := routes.NewManager(b.provider)
	if err != nil {
		return fmt.Errorf("create route manager: %w", err)
	}
	b.routes = routeManager

	b.notifier = discord.NewNotifier(b.session, b.routes, b.config.GuildID)
	b.messages = discord.NewMessages(b.session)
	b.events = eventlog.New(b.provider, b.notifier, b.rdb)
	b.params = params.NewStore(b.provider, b.events)

	permService, err := permissions.NewService(b.provider, b.events)
	if err != nil {
		return fmt.Errorf("create permission service: %w", err)
	}
	b.permissions = permService

	b.cooldowns = cooldown.NewEngine(b.provider, b.params, b.events)
	b.catalog = catalog.NewClient()
	b.widgets = widget.New(b.notifier, b.messages)

	b.requests = requests.NewController(requests.Config{
		Provider:  b.provider,
		Catalog:   b.catalog,
		Cooldowns: b.cooldowns,
		Widgets:   b.widgets,
		Poster:    b.notifier,
		Messages:  b.messages,
		Params:    b.params,
		Events:    b.events,
	})

	// The admission gate counts pending requests through the lifecycle
	// controller, so it is built second and attached back.
	b.admission = admission.NewController(b.params, b.notifier, b.requests.CountPending)
	b.requests.AttachAdmission(b.admission)

	b.actions = actions.NewRegistry()
	b.registerActions()

	return nil
}

func (b *Bot) registerHandlers() {
	b.session.AddHandler(b.handleReady)
	b.session.AddHandler(b.handleInteraction)
}

func (b *Bot) Start() error {
	return b.session.Open()
}

func (b *Bot) Stop() {
	b.session.Close()
}

func (b *Bot) handleReady(s *discordgo.Session, event *discordgo.Ready) {
	log.Printf("Discord bot logged in as %s", event.User.Username)

	if err := registerCommands(s, b.config.GuildID); err != nil {
		log.Printf("Failed to register slash commands: %v", err)
	}
}

// Accessors for the admin web API, which reads through the same engines.

func (b *Bot) Requests() *requests.Controller    { return b.requests }
func (b *Bot) Cooldowns() *cooldown.Engine       { return b.cooldowns }
func (b *Bot) Admission() *admission.Controller  { return b.admission }
func (b *Bot) Events() *eventlog.Logger          { return b.events }
func (b *Bot) Params() *params.Store             { return b.params }
func (b *Bot) Routes() *routes.Manager           { return b.routes }
func (b *Bot) Permissions() *permissions.Service { return b.permissions }

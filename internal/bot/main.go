// Package bot runs the chat side of gridbot: the gateway session, the
// command registry and the access gate in front of every handler.
package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/MyteScripts/gridbot/internal/access"
	"github.com/MyteScripts/gridbot/internal/bot/accessadmin"
	"github.com/MyteScripts/gridbot/internal/bot/economy"
	"github.com/MyteScripts/gridbot/internal/bot/giveaways"
	"github.com/MyteScripts/gridbot/internal/bot/handler"
	"github.com/MyteScripts/gridbot/internal/bot/invites"
	"github.com/MyteScripts/gridbot/internal/bot/leveling"
	"github.com/MyteScripts/gridbot/internal/bot/moderation"
	"github.com/MyteScripts/gridbot/internal/bot/syncadmin"
	"github.com/MyteScripts/gridbot/internal/bot/tickets"
	"github.com/MyteScripts/gridbot/internal/bot/webtoken"
	"github.com/MyteScripts/gridbot/internal/config"
	discordadapter "github.com/MyteScripts/gridbot/internal/logger/adapter/discord"
	"github.com/MyteScripts/gridbot/internal/sync"
)

// Service owns the gateway session and dispatches interactions.
type Service struct {
	session  *discordgo.Session
	cfg      *config.Config
	db       *gorm.DB
	resolver *access.Resolver
	registry *handler.Registry
}

// New builds the bot service: session, registry, handler wiring. The sync
// engine may be nil when sync is disabled.
func New(cfg *config.Config, db *gorm.DB, resolver *access.Resolver, engine *sync.Engine) *Service {
	if cfg == nil || db == nil || resolver == nil {
		log.Fatal().Msg("cfg, db or resolver is nil")
		return nil
	}

	discordgo.Logger = discordadapter.New()

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create discord session")
		return nil
	}

	// Members, invites and message content are needed by the invite tracker,
	// the XP awarding and the ticket transcripts.
	session.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMembers |
		discordgo.IntentGuildMessages |
		discordgo.IntentGuildInvites |
		discordgo.IntentMessageContent

	registry := handler.NewRegistry()

	leveling.Handler.Init(registry, cfg, db)
	economy.Handler.Init(registry, cfg, db)
	moderation.Handler.Init(registry, cfg, db)
	giveaways.Handler.Init(registry, cfg, db)
	tickets.Handler.Init(registry, cfg, db)
	invites.Handler.Init(registry, cfg, db)
	accessadmin.Handler.Init(registry, cfg, resolver)
	syncadmin.Handler.Init(registry, cfg, engine)
	webtoken.Handler.Init(registry, cfg)

	b := &Service{
		session:  session,
		cfg:      cfg,
		db:       db,
		resolver: resolver,
		registry: registry,
	}

	session.AddHandler(b.onReady)
	session.AddHandler(b.onInteractionCreate)
	session.AddHandler(leveling.Handler.OnMessageCreate)
	session.AddHandler(invites.Handler.OnGuildCreate)
	session.AddHandler(invites.Handler.OnInviteCreate)
	session.AddHandler(invites.Handler.OnInviteDelete)
	session.AddHandler(invites.Handler.OnMemberAdd)
	session.AddHandler(invites.Handler.OnMemberRemove)

	return b
}

// Start opens the gateway connection and launches the background watchers.
// The watchers stop when ctx is cancelled.
func (b *Service) Start(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return errors.Wrap(err, "failed to open discord session")
	}

	go giveaways.Handler.Watch(ctx, b.session)

	return nil
}

// Stop closes the gateway connection.
func (b *Service) Stop() error {
	return errors.Wrap(b.session.Close(), "failed to close discord session")
}

func (b *Service) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Info().
		Str("user", r.User.Username).
		Int("guilds", len(r.Guilds)).
		Msg("discord session ready")

	if b.cfg.Discord.Status != "" {
		if err := s.UpdateGameStatus(0, b.cfg.Discord.Status); err != nil {
			log.Warn().Err(err).Msg("failed to set presence")
		}
	}

	b.registerCommands(s)

	// Forced visibility overrides do not survive a restart.
	if err := b.resolver.Store().ResetVisible(b.guildIDs(r)); err != nil {
		log.Error().Err(err).Msg("failed to reset visibility overrides")
	}
}

func (b *Service) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.dispatchCommand(s, i)
	case discordgo.InteractionMessageComponent:
		b.dispatchComponent(s, i)
	default:
	}
}

// dispatchCommand gates the interaction through the resolver, then runs the
// registered handler.
func (b *Service) dispatchCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	name := i.ApplicationCommandData().Name
	callerID := handler.CallerID(i)

	decision := b.resolver.Resolve(name, callerID, handler.CallerRoles(i), i.GuildID)
	if !decision.Allowed {
		log.Info().
			Str("command", name).
			Str("user", callerID).
			Str("reason", string(decision.Reason)).
			Msg("command denied")
		handler.RespondEphemeral(s, i, decision.Message)

		return
	}

	cmd := b.registry.Get(name)
	if cmd == nil {
		log.Warn().Str("command", name).Msg("interaction for unregistered command")
		handler.RespondEphemeral(s, i, "This command is not available right now.")

		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("command", name).Msg("command handler panicked")
		}
	}()

	cmd.Run(s, i)
}

func (b *Service) dispatchComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID

	fn := b.registry.Component(customID)
	if fn == nil {
		log.Warn().Str("custom_id", customID).Msg("interaction for unregistered component")
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("custom_id", customID).Msg("component handler panicked")
		}
	}()

	fn(s, i)
}

// registerCommands overwrites the application command set, either per
// configured guild or globally when no guilds are pinned down.
func (b *Service) registerCommands(s *discordgo.Session) {
	defs := b.registry.Definitions()
	defs = append(defs, b.retiredStubs()...)

	appID := b.cfg.Discord.AppID
	if appID == "" {
		appID = s.State.User.ID
	}

	if len(b.cfg.Discord.GuildIDs) == 0 {
		if _, err := s.ApplicationCommandBulkOverwrite(appID, "", defs); err != nil {
			log.Error().Err(err).Msg("failed to register global commands")
			return
		}

		log.Info().Int("commands", len(defs)).Msg("registered global commands")

		return
	}

	for _, guildID := range b.cfg.Discord.GuildIDs {
		if _, err := s.ApplicationCommandBulkOverwrite(appID, guildID, defs); err != nil {
			log.Error().Err(err).Str("guild", guildID).Msg("failed to register guild commands")
			continue
		}

		log.Info().Str("guild", guildID).Int("commands", len(defs)).Msg("registered guild commands")
	}
}

// retiredStubs keeps removed commands registered at the platform so callers
// get the removal notice instead of an unknown command error.
func (b *Service) retiredStubs() []*discordgo.ApplicationCommand {
	stubs := make([]*discordgo.ApplicationCommand, 0, len(b.cfg.Access.RetiredCommands))

	for _, name := range b.cfg.Access.RetiredCommands {
		name = access.Normalize(name)
		if name == "" || b.registry.Get(name) != nil {
			continue
		}

		stubs = append(stubs, &discordgo.ApplicationCommand{
			Name:        name,
			Description: "This command has been removed.",
		})
	}

	return stubs
}

// guildIDs returns the guilds the bot considers known: the configured list,
// or the gateway reported set when nothing is configured.
func (b *Service) guildIDs(r *discordgo.Ready) []string {
	if len(b.cfg.Discord.GuildIDs) > 0 {
		return b.cfg.Discord.GuildIDs
	}

	ids := make([]string, 0, len(r.Guilds))
	for _, g := range r.Guilds {
		ids = append(ids, g.ID)
	}

	return ids
}

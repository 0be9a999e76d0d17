// Package accessadmin exposes the permission store to admins: per-command
// role grants, the public command list and per-guild visibility overrides.
package accessadmin

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/MyteScripts/gridbot/internal/access"
	"github.com/MyteScripts/gridbot/internal/bot/handler"
	"github.com/MyteScripts/gridbot/internal/config"
)

const (
	// CmdPermissions manages per-command role restrictions.
	CmdPermissions = "permissions"
	// CmdPublicCommand manages the global public command list.
	CmdPublicCommand = "publiccommand"
	// CmdCommandVisibility manages per-guild visibility overrides.
	CmdCommandVisibility = "commandvisibility"
)

// Service is the access admin handler service.
type Service struct {
	handler.Service
	cfg      *config.Config
	resolver *access.Resolver
	registry *handler.Registry
}

// Handler is the access admin handler.
var Handler = Service{}

// Init initializes the access admin handler.
func (h *Service) Init(reg *handler.Registry, cfg *config.Config, resolver *access.Resolver) {
	if reg == nil || cfg == nil || resolver == nil {
		log.Fatal().Msg("registry, cfg or resolver is nil")
		return
	}

	h.cfg = cfg
	h.resolver = resolver
	h.registry = reg

	commandOpt := func(desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "command",
			Description: desc,
			Required:    true,
		}
	}
	roleOpt := func(desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionRole,
			Name:        "role",
			Description: desc,
			Required:    true,
		}
	}

	commands := []*handler.Command{
		{
			Name:        CmdPermissions,
			Description: "Manage which roles may use a command",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Allow a role to use a command",
					Options: []*discordgo.ApplicationCommandOption{
						commandOpt("The command to restrict"),
						roleOpt("The role to allow"),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Remove a role's permission for a command",
					Options: []*discordgo.ApplicationCommandOption{
						commandOpt("The command to adjust"),
						roleOpt("The role to remove"),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "view",
					Description: "View the permissions of a command",
					Options: []*discordgo.ApplicationCommandOption{
						commandOpt("The command to inspect"),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "reset",
					Description: "Reset a command's permissions, making it available to everyone",
					Options: []*discordgo.ApplicationCommandOption{
						commandOpt("The command to reset"),
					},
				},
			},
			Run: h.permissions,
		},
		{
			Name:        CmdPublicCommand,
			Description: "Manage the globally public command list",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Make a command publicly available",
					Options: []*discordgo.ApplicationCommandOption{
						commandOpt("The name of the command to make public"),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Remove a command from public access",
					Options: []*discordgo.ApplicationCommandOption{
						commandOpt("The name of the command to remove from public access"),
					},
				},
			},
			Run: h.publicCommand,
		},
		{
			Name:        CmdCommandVisibility,
			Description: "Manage which commands are visible in this server",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "show",
					Description: "Force a command visible to everyone in this server",
					Options: []*discordgo.ApplicationCommandOption{
						commandOpt("The command to show"),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "hide",
					Description: "Remove the forced visibility of a command",
					Options: []*discordgo.ApplicationCommandOption{
						commandOpt("The command to hide"),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List the commands visible to you",
				},
			},
			Run: h.commandVisibility,
		},
	}

	for _, cmd := range commands {
		if err := reg.Add(cmd); err != nil {
			log.Fatal().Err(err).Str("command", cmd.Name).Msg("failed to register command")
		}
	}
}

func (h *Service) permissions(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sub, opts := handler.Subcommand(i)
	command := opts.String("command")
	store := h.resolver.Store()

	switch sub {
	case "add":
		_, msg := store.Grant(i.GuildID, command, opts.RoleID("role"))
		handler.RespondEphemeral(s, i, msg)
	case "remove":
		_, msg := store.Revoke(i.GuildID, command, opts.RoleID("role"))
		handler.RespondEphemeral(s, i, msg)
	case "view":
		h.view(s, i, command)
	case "reset":
		_, msg := store.Clear(i.GuildID, command)
		handler.RespondEphemeral(s, i, msg)
	default:
		handler.RespondEphemeral(s, i, "Unknown subcommand.")
	}
}

func (h *Service) publicCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sub, opts := handler.Subcommand(i)
	command := opts.String("command")
	store := h.resolver.Store()

	switch sub {
	case "add":
		_, msg := store.SetPublic(command)
		handler.RespondEphemeral(s, i, msg)
	case "remove":
		_, msg := store.UnsetPublic(command)
		handler.RespondEphemeral(s, i, msg)
	default:
		handler.RespondEphemeral(s, i, "Unknown subcommand.")
	}
}

func (h *Service) commandVisibility(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sub, opts := handler.Subcommand(i)
	store := h.resolver.Store()

	switch sub {
	case "show":
		_, msg := store.SetVisible(i.GuildID, opts.String("command"))
		handler.RespondEphemeral(s, i, msg)
	case "hide":
		_, msg := store.UnsetVisible(i.GuildID, opts.String("command"))
		handler.RespondEphemeral(s, i, msg)
	case "list":
		h.listVisible(s, i)
	default:
		handler.RespondEphemeral(s, i, "Unknown subcommand.")
	}
}

func (h *Service) view(s *discordgo.Session, i *discordgo.InteractionCreate, command string) {
	command = access.Normalize(command)
	store := h.resolver.Store()

	policy, _ := store.PolicyFor(i.GuildID, command)
	forced := store.IsForcedVisible(i.GuildID, command)

	handler.RespondEmbedEphemeral(s, i, viewEmbed(command, policy.Roles(), forced))
}

func (h *Service) listVisible(s *discordgo.Session, i *discordgo.InteractionCreate) {
	visible := h.visibleCommands(i.GuildID, handler.CallerID(i), handler.CallerRoles(i))
	handler.RespondEmbedEphemeral(s, i, listEmbed(visible))
}

// visibleCommands filters the registered command names down to the ones the
// caller should see in this guild.
func (h *Service) visibleCommands(guildID, callerID string, roleIDs []string) []string {
	isAdmin := h.resolver.HasAdminAccess(callerID, roleIDs)

	var visible []string
	for _, name := range h.registry.Names() {
		if h.resolver.Visible(name, guildID, roleIDs, isAdmin) {
			visible = append(visible, name)
		}
	}

	return visible
}

// viewEmbed renders a command's role policy and visibility override.
func viewEmbed(command string, roleIDs []string, forcedVisible bool) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Permissions for /%s", command),
		Color: handler.ColorBlurple,
	}

	mentions := make([]string, len(roleIDs))
	for idx, roleID := range roleIDs {
		mentions[idx] = "• <@&" + roleID + ">"
	}

	if forcedVisible {
		embed.Description = "🌐 This command is publicly visible to everyone."

		value := "The command is usable by anyone."
		if len(roleIDs) > 0 {
			value = "The command is also restricted to specific roles."
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Role Permissions",
			Value: value,
		})

		if len(roleIDs) > 0 {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:  "Restricted to Roles",
				Value: strings.Join(mentions, "\n"),
			})
		}

		return embed
	}

	if len(roleIDs) == 0 {
		embed.Description = "🔓 This command is available to everyone."
		return embed
	}

	embed.Description = "🔒 This command is restricted to the following roles:\n" + strings.Join(mentions, "\n")

	return embed
}

// listEmbed renders the commands visible to the caller.
func listEmbed(commands []string) *discordgo.MessageEmbed {
	if len(commands) == 0 {
		return &discordgo.MessageEmbed{
			Title:       "Available Commands",
			Description: "No commands are visible to you in this server.",
			Color:       handler.ColorBlurple,
		}
	}

	lines := make([]string, len(commands))
	for idx, name := range commands {
		lines[idx] = "• /" + name
	}

	return &discordgo.MessageEmbed{
		Title:       "Available Commands",
		Description: strings.Join(lines, "\n"),
		Color:       handler.ColorBlurple,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("%d commands", len(commands))},
	}
}

package accessadmin

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyteScripts/gridbot/internal/access"
	"github.com/MyteScripts/gridbot/internal/bot/handler"
)

func setupService(t *testing.T, rules access.Rules, commands ...string) *Service {
	t.Helper()

	store, err := access.Open(t.TempDir())
	require.NoError(t, err, "failed to open access store")

	reg := handler.NewRegistry()
	for _, name := range commands {
		require.NoError(t, reg.Add(&handler.Command{
			Name: name,
			Run:  func(*discordgo.Session, *discordgo.InteractionCreate) {},
		}))
	}

	return &Service{resolver: access.NewResolver(rules, store), registry: reg}
}

func TestViewEmbed(t *testing.T) {
	t.Run("unrestricted", func(t *testing.T) {
		embed := viewEmbed("rank", nil, false)

		assert.Equal(t, "Permissions for /rank", embed.Title)
		assert.Equal(t, handler.ColorBlurple, embed.Color)
		assert.Equal(t, "🔓 This command is available to everyone.", embed.Description)
		assert.Empty(t, embed.Fields)
	})

	t.Run("restricted", func(t *testing.T) {
		embed := viewEmbed("warn", []string{"100", "200"}, false)

		assert.Equal(t, "Permissions for /warn", embed.Title)
		assert.Equal(t,
			"🔒 This command is restricted to the following roles:\n• <@&100>\n• <@&200>",
			embed.Description)
		assert.Empty(t, embed.Fields)
	})

	t.Run("forced visible unrestricted", func(t *testing.T) {
		embed := viewEmbed("rank", nil, true)

		assert.Equal(t, "🌐 This command is publicly visible to everyone.", embed.Description)
		require.Len(t, embed.Fields, 1)
		assert.Equal(t, "Role Permissions", embed.Fields[0].Name)
		assert.Equal(t, "The command is usable by anyone.", embed.Fields[0].Value)
	})

	t.Run("forced visible restricted", func(t *testing.T) {
		embed := viewEmbed("warn", []string{"100"}, true)

		assert.Equal(t, "🌐 This command is publicly visible to everyone.", embed.Description)
		require.Len(t, embed.Fields, 2)
		assert.Equal(t, "The command is also restricted to specific roles.", embed.Fields[0].Value)
		assert.Equal(t, "Restricted to Roles", embed.Fields[1].Name)
		assert.Equal(t, "• <@&100>", embed.Fields[1].Value)
	})
}

func TestListEmbed(t *testing.T) {
	embed := listEmbed([]string{"daily", "rank", "warn"})

	assert.Equal(t, "Available Commands", embed.Title)
	assert.Equal(t, "• /daily\n• /rank\n• /warn", embed.Description)
	assert.Equal(t, handler.ColorBlurple, embed.Color)
	require.NotNil(t, embed.Footer)
	assert.Equal(t, "3 commands", embed.Footer.Text)
}

func TestListEmbedEmpty(t *testing.T) {
	embed := listEmbed(nil)

	assert.Equal(t, "No commands are visible to you in this server.", embed.Description)
	assert.Nil(t, embed.Footer)
}

func TestVisibleCommands(t *testing.T) {
	const guildID = "300000000000000003"

	h := setupService(t, access.Rules{SuperAdminIDs: []string{"900000000000000009"}},
		"rank", "warn", "daily")

	_, msg := h.resolver.Store().Replace(guildID, "warn", []string{"400000000000000004"})
	require.Contains(t, msg, "Set permissions")

	t.Run("plain caller", func(t *testing.T) {
		visible := h.visibleCommands(guildID, "1", nil)
		assert.Equal(t, []string{"daily", "rank"}, visible)
	})

	t.Run("caller holding the granted role", func(t *testing.T) {
		visible := h.visibleCommands(guildID, "1", []string{"400000000000000004"})
		assert.Equal(t, []string{"daily", "rank", "warn"}, visible)
	})

	t.Run("super admin sees everything", func(t *testing.T) {
		visible := h.visibleCommands(guildID, "900000000000000009", nil)
		assert.Equal(t, []string{"daily", "rank", "warn"}, visible)
	})

	t.Run("forced visible overrides the restriction", func(t *testing.T) {
		_, msg := h.resolver.Store().SetVisible(guildID, "warn")
		require.Contains(t, msg, "now public")

		visible := h.visibleCommands(guildID, "1", nil)
		assert.Equal(t, []string{"daily", "rank", "warn"}, visible)
	})
}

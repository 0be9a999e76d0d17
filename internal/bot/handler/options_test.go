package handler

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commandInteraction(opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type: discordgo.InteractionApplicationCommand,
			Data: discordgo.ApplicationCommandInteractionData{Options: opts},
		},
	}
}

func TestOptions(t *testing.T) {
	i := commandInteraction(
		&discordgo.ApplicationCommandInteractionDataOption{
			Name:  "reason",
			Type:  discordgo.ApplicationCommandOptionString,
			Value: "spamming",
		},
		&discordgo.ApplicationCommandInteractionDataOption{
			Name:  "amount",
			Type:  discordgo.ApplicationCommandOptionInteger,
			Value: float64(250),
		},
		&discordgo.ApplicationCommandInteractionDataOption{
			Name:  "enabled",
			Type:  discordgo.ApplicationCommandOptionBoolean,
			Value: true,
		},
		&discordgo.ApplicationCommandInteractionDataOption{
			Name:  "user",
			Type:  discordgo.ApplicationCommandOptionUser,
			Value: "100000000000000001",
		},
		&discordgo.ApplicationCommandInteractionDataOption{
			Name:  "role",
			Type:  discordgo.ApplicationCommandOptionRole,
			Value: "200000000000000002",
		},
	)

	opts := Options(i)

	assert.True(t, opts.Has("reason"))
	assert.Equal(t, "spamming", opts.String("reason"))
	assert.Equal(t, int64(250), opts.Int("amount"))
	assert.True(t, opts.Bool("enabled"))
	assert.Equal(t, "100000000000000001", opts.UserID("user"))
	assert.Equal(t, "200000000000000002", opts.RoleID("role"))
}

func TestOptionsMissing(t *testing.T) {
	opts := Options(commandInteraction())

	assert.False(t, opts.Has("reason"))
	assert.Empty(t, opts.String("reason"))
	assert.Zero(t, opts.Int("amount"))
	assert.False(t, opts.Bool("enabled"))
	assert.Empty(t, opts.UserID("user"))
}

func TestOptionsTypeMismatch(t *testing.T) {
	opts := Options(commandInteraction(
		&discordgo.ApplicationCommandInteractionDataOption{
			Name:  "amount",
			Type:  discordgo.ApplicationCommandOptionString,
			Value: "not a number",
		},
	))

	assert.Zero(t, opts.Int("amount"), "mismatched option types read as zero values")
}

func TestSubcommand(t *testing.T) {
	i := commandInteraction(
		&discordgo.ApplicationCommandInteractionDataOption{
			Name: "add",
			Type: discordgo.ApplicationCommandOptionSubCommand,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{
					Name:  "command",
					Type:  discordgo.ApplicationCommandOptionString,
					Value: "warn",
				},
			},
		},
	)

	name, opts := Subcommand(i)

	require.Equal(t, "add", name)
	assert.Equal(t, "warn", opts.String("command"))
}

func TestSubcommandAbsent(t *testing.T) {
	name, opts := Subcommand(commandInteraction(
		&discordgo.ApplicationCommandInteractionDataOption{
			Name:  "user",
			Type:  discordgo.ApplicationCommandOptionUser,
			Value: "100000000000000001",
		},
	))

	assert.Empty(t, name)
	assert.Nil(t, opts)
}

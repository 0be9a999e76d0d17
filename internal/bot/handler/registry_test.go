package handler

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCommand(name string) *Command {
	return &Command{
		Name:        name,
		Description: "test command",
		Run:         func(s *discordgo.Session, i *discordgo.InteractionCreate) {},
	}
}

func TestRegistryAdd(t *testing.T) {
	tests := []struct {
		name    string
		cmd     *Command
		wantErr error
	}{
		{
			name:    "nil command",
			cmd:     nil,
			wantErr: ErrCommandInvalid,
		},
		{
			name:    "empty name",
			cmd:     &Command{Run: func(s *discordgo.Session, i *discordgo.InteractionCreate) {}},
			wantErr: ErrCommandInvalid,
		},
		{
			name:    "nil run func",
			cmd:     &Command{Name: "rank"},
			wantErr: ErrCommandInvalid,
		},
		{
			name: "success",
			cmd:  testCommand("rank"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()

			err := reg.Add(tt.cmd)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)

				return
			}

			assert.NoError(t, err)
			assert.NotNil(t, reg.Get(tt.cmd.Name))
		})
	}
}

func TestRegistryAddDuplicate(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, reg.Add(testCommand("rank")))

	err := reg.Add(testCommand("RANK"))

	assert.ErrorIs(t, err, ErrCommandExists)
}

func TestRegistryGet(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, reg.Add(testCommand("leaderboard")))

	assert.NotNil(t, reg.Get("leaderboard"))
	assert.NotNil(t, reg.Get("LeaderBoard"), "lookup is case insensitive")
	assert.Nil(t, reg.Get("unknown"))
}

func TestRegistryNames(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, reg.Add(testCommand("work")))
	require.NoError(t, reg.Add(testCommand("balance")))
	require.NoError(t, reg.Add(testCommand("shop")))

	assert.Equal(t, []string{"balance", "shop", "work"}, reg.Names())
}

func TestRegistryDefinitions(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, reg.Add(testCommand("work")))
	require.NoError(t, reg.Add(testCommand("balance")))

	defs := reg.Definitions()

	require.Len(t, defs, 2)
	assert.Equal(t, "work", defs[0].Name, "definitions keep registration order")
	assert.Equal(t, "balance", defs[1].Name)
	assert.Equal(t, "test command", defs[0].Description)
}

func TestRegistryComponent(t *testing.T) {
	reg := NewRegistry()

	var hit string

	require.NoError(t, reg.AddComponent("giveaway:", func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		hit = "giveaway"
	}))
	require.NoError(t, reg.AddComponent("giveaway:enter", func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		hit = "enter"
	}))

	fn := reg.Component("giveaway:enter")

	require.NotNil(t, fn)

	fn(nil, nil)

	assert.Equal(t, "enter", hit, "longest prefix wins")
	assert.Nil(t, reg.Component("ticket:close"))
}

func TestRegistryComponentDuplicate(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, reg.AddComponent("giveaway:", func(s *discordgo.Session, i *discordgo.InteractionCreate) {}))

	err := reg.AddComponent("giveaway:", func(s *discordgo.Session, i *discordgo.InteractionCreate) {})

	assert.ErrorIs(t, err, ErrComponentExists)
}

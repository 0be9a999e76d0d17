package handler

import "github.com/bwmarrin/discordgo"

// OptionSet indexes interaction options by name for typed lookups.
// Missing options return zero values.
type OptionSet map[string]*discordgo.ApplicationCommandInteractionDataOption

// Options returns the top level options of a command interaction.
func Options(i *discordgo.InteractionCreate) OptionSet {
	return optionSet(i.ApplicationCommandData().Options)
}

// Subcommand returns the invoked subcommand name and its options.
// An empty name means the interaction carried no subcommand.
func Subcommand(i *discordgo.InteractionCreate) (string, OptionSet) {
	opts := i.ApplicationCommandData().Options
	if len(opts) == 0 || opts[0].Type != discordgo.ApplicationCommandOptionSubCommand {
		return "", nil
	}

	return opts[0].Name, optionSet(opts[0].Options)
}

func optionSet(opts []*discordgo.ApplicationCommandInteractionDataOption) OptionSet {
	set := make(OptionSet, len(opts))
	for _, opt := range opts {
		set[opt.Name] = opt
	}

	return set
}

// Has reports whether the option was supplied.
func (o OptionSet) Has(name string) bool {
	_, ok := o[name]

	return ok
}

// String returns a string option value.
func (o OptionSet) String(name string) string {
	opt, ok := o[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionString {
		return ""
	}

	return opt.StringValue()
}

// Int returns an integer option value.
func (o OptionSet) Int(name string) int64 {
	opt, ok := o[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionInteger {
		return 0
	}

	return opt.IntValue()
}

// Bool returns a boolean option value.
func (o OptionSet) Bool(name string) bool {
	opt, ok := o[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionBoolean {
		return false
	}

	return opt.BoolValue()
}

// UserID returns the snowflake of a user option.
func (o OptionSet) UserID(name string) string {
	return o.snowflake(name, discordgo.ApplicationCommandOptionUser)
}

// RoleID returns the snowflake of a role option.
func (o OptionSet) RoleID(name string) string {
	return o.snowflake(name, discordgo.ApplicationCommandOptionRole)
}

// ChannelID returns the snowflake of a channel option.
func (o OptionSet) ChannelID(name string) string {
	return o.snowflake(name, discordgo.ApplicationCommandOptionChannel)
}

func (o OptionSet) snowflake(name string, want discordgo.ApplicationCommandOptionType) string {
	opt, ok := o[name]
	if !ok || opt.Type != want {
		return ""
	}

	id, _ := opt.Value.(string)

	return id
}

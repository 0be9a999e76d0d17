// Package discord bridges discordgo's package level logging into zerolog.
package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New returns a log func suitable for assignment to discordgo.Logger.
// discordgo reports a message level and a caller skip count; the skip count is
// dropped because zerolog resolves the caller itself when enabled.
func New() func(msgL, caller int, format string, a ...interface{}) {
	return func(msgL, _ int, format string, a ...interface{}) {
		var event *zerolog.Event

		switch msgL {
		case discordgo.LogError:
			event = log.Error()
		case discordgo.LogWarning:
			event = log.Warn()
		case discordgo.LogInformational:
			event = log.Info()
		default:
			event = log.Debug()
		}

		event.Str("component", "discordgo").Msgf(format, a...)
	}
}

// Package webtoken hands out dashboard login tokens over chat. The token is
// a short lived JWT the web login handler exchanges for a session.
package webtoken

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/MyteScripts/gridbot/internal/auth"
	"github.com/MyteScripts/gridbot/internal/bot/handler"
	"github.com/MyteScripts/gridbot/internal/config"
)

// CmdWebToken generates a dashboard access token.
const CmdWebToken = "webtoken"

const msgTokenFailed = "There was an error generating your token. Please try again later."

// Service is the web token handler service.
type Service struct {
	handler.Service
	cfg *config.Config
}

// Handler is the web token handler.
var Handler = Service{}

// Init initializes the web token handler.
func (h *Service) Init(reg *handler.Registry, cfg *config.Config) {
	if reg == nil || cfg == nil {
		log.Fatal().Msg("registry or cfg is nil")
		return
	}

	h.cfg = cfg

	cmd := &handler.Command{
		Name:        CmdWebToken,
		Description: "Generate a token for accessing your data via the web interface",
		Run:         h.webtoken,
	}

	if err := reg.Add(cmd); err != nil {
		log.Fatal().Err(err).Str("command", cmd.Name).Msg("failed to register command")
	}
}

func (h *Service) webtoken(s *discordgo.Session, i *discordgo.InteractionCreate) {
	callerID := handler.CallerID(i)
	ttl := h.cfg.Webserver.TokenExpiry

	token, err := auth.IssueToken([]byte(h.cfg.Webserver.TokenSecret), callerID, handler.CallerName(i), ttl)
	if err != nil {
		log.Error().Err(err).Str("user", callerID).Msg("failed to issue web token")
		handler.RespondEphemeral(s, i, msgTokenFailed)

		return
	}

	text := tokenMessage(token, loginURL(h.cfg.Webserver.URL, token), ttl)

	if ch, dmErr := s.UserChannelCreate(callerID); dmErr == nil {
		if _, dmErr = s.ChannelMessageSend(ch.ID, text); dmErr == nil {
			handler.RespondEphemeral(s, i, "Token generated! Check your DMs for the token details.")
			return
		}

		log.Warn().Err(dmErr).Str("user", callerID).Msg("failed to send web token dm")
	}

	// DMs are closed, hand the token over ephemerally instead.
	handler.RespondEphemeral(s, i, text)
}

// tokenMessage builds the DM text carrying the token and, when the dashboard
// URL is configured, a one click login link.
func tokenMessage(token, login string, ttl time.Duration) string {
	var b strings.Builder

	fmt.Fprintf(&b,
		"Here is your web access token. It will expire in %s:\n\n`%s`\n\n"+
			"Use this token to authenticate with the web interface. Never share this token with anyone!",
		expiryLabel(ttl), token)

	if login != "" {
		fmt.Fprintf(&b, "\n\nOr log in directly: %s", login)
	}

	return b.String()
}

// loginURL builds the deep link for the dashboard token login, or empty when
// no base URL is configured.
func loginURL(base, token string) string {
	if base == "" {
		return ""
	}

	return strings.TrimSuffix(base, "/") + "/login/token?token=" + url.QueryEscape(token)
}

// expiryLabel renders the token lifetime, "24 hours" for the default
// configuration.
func expiryLabel(ttl time.Duration) string {
	if ttl >= time.Hour {
		hours := int(ttl.Hours())
		if hours == 1 {
			return "1 hour"
		}

		return fmt.Sprintf("%d hours", hours)
	}

	minutes := int(ttl.Minutes())
	if minutes <= 1 {
		return "1 minute"
	}

	return fmt.Sprintf("%d minutes", minutes)
}

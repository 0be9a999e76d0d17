// Package syncadmin exposes the cross host sync engine over chat: on demand
// backups delivered by DM and manually triggered sync cycles.
package syncadmin

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/MyteScripts/gridbot/internal/bot/handler"
	"github.com/MyteScripts/gridbot/internal/config"
	"github.com/MyteScripts/gridbot/internal/sync"
)

const (
	// CmdDBSync writes a backup snapshot and DMs it to the caller.
	CmdDBSync = "dbsync"
	// CmdSyncNow runs one sync cycle immediately.
	CmdSyncNow = "syncnow"
)

const (
	msgSyncDisabled = "⚠️ Sync is not configured on this host."
	msgBackupFailed = "An error occurred during the database sync. Please try again later."
	msgDMFailed     = "❌ I couldn't send you a DM. Please make sure your DM settings allow messages from server members."
	msgBackupSent   = "✅ Database backup complete! The snapshot has been sent to your DMs."
	msgSyncFailed   = "❌ The sync cycle failed. Check the logs for details."
)

// Service is the sync admin handler service.
type Service struct {
	handler.Service
	cfg    *config.Config
	engine *sync.Engine
}

// Handler is the sync admin handler.
var Handler = Service{}

// Init initializes the sync admin handler. A nil engine is allowed, the
// commands then answer that sync is not configured.
func (h *Service) Init(reg *handler.Registry, cfg *config.Config, engine *sync.Engine) {
	if reg == nil || cfg == nil {
		log.Fatal().Msg("registry or cfg is nil")
		return
	}

	h.cfg = cfg
	h.engine = engine

	commands := []*handler.Command{
		{
			Name:        CmdDBSync,
			Description: "Send a database backup snapshot to your DMs",
			Run:         h.dbsync,
		},
		{
			Name:        CmdSyncNow,
			Description: "Run a sync cycle immediately",
			Run:         h.syncnow,
		},
	}

	for _, cmd := range commands {
		if err := reg.Add(cmd); err != nil {
			log.Fatal().Err(err).Str("command", cmd.Name).Msg("failed to register command")
		}
	}
}

func (h *Service) dbsync(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if h.engine == nil {
		handler.RespondEphemeral(s, i, msgSyncDisabled)
		return
	}

	path, err := h.engine.Backup()
	if err != nil {
		log.Error().Err(err).Msg("failed to create sync backup")
		handler.RespondEphemeral(s, i, msgBackupFailed)

		return
	}

	callerID := handler.CallerID(i)
	if err = h.dmBackup(s, callerID, path); err != nil {
		log.Error().Err(err).Str("user", callerID).Msg("failed to deliver backup dm")
		handler.RespondEphemeral(s, i, msgDMFailed)

		return
	}

	log.Info().Str("user", callerID).Str("backup", path).Msg("backup snapshot delivered")
	handler.RespondEphemeral(s, i, msgBackupSent)
}

func (h *Service) syncnow(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if h.engine == nil {
		handler.RespondEphemeral(s, i, msgSyncDisabled)
		return
	}

	previous := h.engine.LastSyncTime()

	if err := h.engine.Sync(false); err != nil {
		log.Error().Err(err).Msg("manual sync cycle failed")
		handler.RespondEphemeral(s, i, msgSyncFailed)

		return
	}

	log.Info().Str("user", handler.CallerID(i)).Msg("manual sync cycle completed")
	handler.RespondEphemeral(s, i, syncReport(previous))
}

// dmBackup sends the backup file to the user's DM channel.
func (h *Service) dmBackup(s *discordgo.Session, userID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "failed to open backup file")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.Wrap(err, "failed to stat backup file")
	}

	ch, err := s.UserChannelCreate(userID)
	if err != nil {
		return errors.Wrap(err, "failed to open dm channel")
	}

	_, err = s.ChannelMessageSendComplex(ch.ID, &discordgo.MessageSend{
		Content: backupMessage(filepath.Base(path), info.Size()),
		Files: []*discordgo.File{
			{
				Name:        filepath.Base(path),
				ContentType: "application/json",
				Reader:      f,
			},
		},
	})

	return errors.Wrap(err, "failed to send backup dm")
}

// backupMessage builds the DM text accompanying a backup snapshot.
func backupMessage(name string, size int64) string {
	return fmt.Sprintf(
		"**📦 Database Backup**\nHere is the current data snapshot you requested:\n"+
			"📄 **%s** - Size: %.2f MB\n"+
			"Keep this file safe to restore the bot's data if needed.",
		name, float64(size)/(1024*1024))
}

// syncReport builds the reply for a completed manual cycle. previous is the
// stamp of the cycle before this one.
func syncReport(previous time.Time) string {
	if previous.IsZero() {
		return "✅ Sync cycle completed. This was the first sync on this host."
	}

	return fmt.Sprintf("✅ Sync cycle completed. Previous sync was %s.", humanize.Time(previous))
}

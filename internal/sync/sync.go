// Package sync moves member, warning, setting and invite data between hosts
// through JSON snapshots on a shared directory. One host exports, the next
// imports, so switching hosting platforms loses neither levels nor coins.
package sync

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/MyteScripts/gridbot/internal/config"
	"github.com/MyteScripts/gridbot/internal/db/controller/invitestat"
	"github.com/MyteScripts/gridbot/internal/db/controller/member"
	"github.com/MyteScripts/gridbot/internal/db/controller/setting"
	"github.com/MyteScripts/gridbot/internal/db/controller/warning"
	"github.com/MyteScripts/gridbot/internal/db/models"
)

const (
	// SnapshotFile is the hot handoff snapshot inside the sync directory.
	SnapshotFile = "sync.json"

	// backupDirName holds the rolling backups below the sync directory.
	backupDirName = "backups"

	backupPrefix     = "db_backup_"
	backupSuffix     = ".json"
	backupTimeFormat = "20060102_150405"

	// SettingLastSync is the settings row recording the last completed cycle.
	SettingLastSync = "last_sync_time"

	dirPerm  = 0o700
	filePerm = 0o600

	defaultInterval       = 15 * time.Minute
	defaultBackupInterval = 6 * time.Hour
	defaultMaxAge         = 24 * time.Hour
	defaultKeepBackups    = 10
)

// Snapshot is the cross host JSON payload. Field names stay stable between
// versions, an older host must be able to read a newer host's file.
type Snapshot struct {
	Users    []models.Member     `json:"users"`
	Warnings []models.Warning    `json:"warnings"`
	Settings []models.Setting    `json:"settings"`
	Invites  []models.InviteStat `json:"invites"`
	SyncTime int64               `json:"sync_time"`
}

// Engine exports and imports snapshots for one database.
type Engine struct {
	db  *gorm.DB
	dir string

	interval       time.Duration
	backupInterval time.Duration
	maxAge         time.Duration
	keepBackups    int
}

// New creates a sync engine on the given directory, creating it if needed.
func New(db *gorm.DB, cfg config.Sync) (*Engine, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if cfg.Dir == "" {
		return nil, ErrDirEmpty
	}

	if err := os.MkdirAll(filepath.Join(cfg.Dir, backupDirName), dirPerm); err != nil {
		return nil, errors.Wrap(err, "failed to create sync directory")
	}

	e := &Engine{
		db:             db,
		dir:            cfg.Dir,
		interval:       cfg.Interval,
		backupInterval: cfg.BackupInterval,
		maxAge:         cfg.MaxAge,
		keepBackups:    cfg.KeepBackups,
	}

	if e.interval <= 0 {
		e.interval = defaultInterval
	}

	if e.backupInterval <= 0 {
		e.backupInterval = defaultBackupInterval
	}

	if e.maxAge <= 0 {
		e.maxAge = defaultMaxAge
	}

	if e.keepBackups <= 0 {
		e.keepBackups = defaultKeepBackups
	}

	return e, nil
}

// SnapshotPath returns the path of the hot handoff snapshot.
func (e *Engine) SnapshotPath() string {
	return filepath.Join(e.dir, SnapshotFile)
}

// Collect assembles a snapshot of the current database state.
func (e *Engine) Collect() (*Snapshot, error) {
	users, err := member.GetAll(e.db)
	if err != nil {
		return nil, errors.Wrap(err, "failed to collect members")
	}

	warnings, err := warning.GetAll(e.db)
	if err != nil {
		return nil, errors.Wrap(err, "failed to collect warnings")
	}

	settings, err := setting.GetAll(e.db)
	if err != nil {
		return nil, errors.Wrap(err, "failed to collect settings")
	}

	invites, err := invitestat.GetAll(e.db)
	if err != nil {
		return nil, errors.Wrap(err, "failed to collect invite stats")
	}

	return &Snapshot{
		Users:    users,
		Warnings: warnings,
		Settings: settings,
		Invites:  invites,
		SyncTime: time.Now().Unix(),
	}, nil
}

// Export writes the current database state to the handoff snapshot and
// returns its path.
func (e *Engine) Export() (string, error) {
	path := e.SnapshotPath()

	return path, e.ExportTo(path)
}

// ExportTo writes the current database state to an arbitrary path.
func (e *Engine) ExportTo(path string) error {
	snap, err := e.Collect()
	if err != nil {
		return err
	}

	raw, err := json.MarshalIndent(snap, "", "    ")
	if err != nil {
		return errors.Wrap(err, "failed to encode snapshot")
	}

	tmp := path + ".tmp"
	if err = os.WriteFile(tmp, raw, filePerm); err != nil {
		return errors.Wrap(err, "failed to write snapshot")
	}

	if err = os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, "failed to replace snapshot")
	}

	log.Info().Str("path", path).
		Int("users", len(snap.Users)).
		Int("warnings", len(snap.Warnings)).
		Int("invites", len(snap.Invites)).
		Msg("exported sync snapshot")

	return nil
}

// Backup writes a timestamped copy into the backup directory and prunes the
// oldest copies beyond the keep limit.
func (e *Engine) Backup() (string, error) {
	name := backupPrefix + time.Now().Format(backupTimeFormat) + backupSuffix
	path := filepath.Join(e.dir, backupDirName, name)

	if err := e.ExportTo(path); err != nil {
		return "", err
	}

	if err := e.pruneBackups(); err != nil {
		log.Error().Err(err).Msg("failed to prune old sync backups")
	}

	return path, nil
}

// Backups lists the backup files, newest first.
func (e *Engine) Backups() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(e.dir, backupDirName))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sync backups")
	}

	var names []string

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			continue
		}

		if strings.HasPrefix(name, backupPrefix) && strings.HasSuffix(name, backupSuffix) {
			names = append(names, name)
		}
	}

	// The timestamp format sorts lexically, newest last. Reverse it.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	return names, nil
}

// pruneBackups removes all but the newest keepBackups files.
func (e *Engine) pruneBackups() error {
	names, err := e.Backups()
	if err != nil {
		return err
	}

	for _, name := range names[min(len(names), e.keepBackups):] {
		path := filepath.Join(e.dir, backupDirName, name)
		if err := os.Remove(path); err != nil {
			return errors.Wrapf(err, "failed to remove old backup %s", name)
		}

		log.Info().Str("backup", name).Msg("removed old sync backup")
	}

	return nil
}

// Import applies the handoff snapshot to the database. Snapshots older than
// the maximum age are refused unless force is set.
func (e *Engine) Import(force bool) error {
	return e.ImportFrom(e.SnapshotPath(), force)
}

// ImportFrom applies an arbitrary snapshot file to the database.
func (e *Engine) ImportFrom(path string, force bool) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrSnapshotMissing
		}

		return errors.Wrap(err, "failed to read snapshot")
	}

	var snap Snapshot
	if err = json.Unmarshal(raw, &snap); err != nil {
		return errors.Wrap(err, "failed to decode snapshot")
	}

	if !force && snap.SyncTime > 0 {
		age := time.Since(time.Unix(snap.SyncTime, 0))
		if age > e.maxAge {
			log.Warn().Str("path", path).Dur("age", age).
				Msg("sync snapshot is too old, refusing import")

			return ErrSnapshotStale
		}
	}

	if err = e.apply(&snap); err != nil {
		return err
	}

	log.Info().Str("path", path).
		Int("users", len(snap.Users)).
		Int("warnings", len(snap.Warnings)).
		Int("invites", len(snap.Invites)).
		Msg("imported sync snapshot")

	return nil
}

// Sync runs one export plus import cycle and stamps the completion time.
func (e *Engine) Sync(force bool) error {
	if _, err := e.Export(); err != nil {
		return err
	}

	if err := e.Import(force); err != nil {
		return err
	}

	return e.stamp()
}

// LastSyncTime returns the completion time of the last cycle. The zero time
// means no cycle has completed yet.
func (e *Engine) LastSyncTime() time.Time {
	last, err := setting.GetTime(e.db, SettingLastSync)
	if err != nil {
		return time.Time{}
	}

	return last
}

// Run exports and imports on the configured interval and writes a rolling
// backup on the longer backup interval, until the context is cancelled.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	backup := time.NewTicker(e.backupInterval)
	defer backup.Stop()

	log.Info().Dur("interval", e.interval).Dur("backup_interval", e.backupInterval).
		Msg("sync loop started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("sync loop stopped")
			return
		case <-ticker.C:
			if err := e.Sync(false); err != nil && !errors.Is(err, ErrSnapshotMissing) {
				log.Error().Err(err).Msg("automatic sync cycle failed")
			}
		case <-backup.C:
			if _, err := e.Backup(); err != nil {
				log.Error().Err(err).Msg("automatic sync backup failed")
			}
		}
	}
}

// apply merges a snapshot into the database. The snapshot wins on every
// conflicting row, the host that exported last is the source of truth.
func (e *Engine) apply(snap *Snapshot) error {
	for i := range snap.Users {
		if err := e.applyMember(&snap.Users[i]); err != nil {
			return errors.Wrap(err, "failed to import member")
		}
	}

	for i := range snap.Warnings {
		if err := e.applyWarning(&snap.Warnings[i]); err != nil {
			return errors.Wrap(err, "failed to import warning")
		}
	}

	for _, row := range snap.Settings {
		if _, err := setting.Set(e.db, row.Name, row.Value); err != nil {
			return errors.Wrap(err, "failed to import setting")
		}
	}

	for i := range snap.Invites {
		if err := e.applyInviteStat(&snap.Invites[i]); err != nil {
			return errors.Wrap(err, "failed to import invite stats")
		}
	}

	return nil
}

func (e *Engine) applyMember(row *models.Member) error {
	existing, err := member.Get(e.db, row.GuildID, row.UserID)
	if errors.Is(err, member.ErrMemberNotFound) {
		fresh := *row
		fresh.ID = 0

		return e.db.Create(&fresh).Error
	}

	if err != nil {
		return err
	}

	existing.Username = row.Username
	existing.XP = row.XP
	existing.Level = row.Level
	existing.Coins = row.Coins
	existing.MessageCount = row.MessageCount
	existing.LastWorkAt = row.LastWorkAt

	return member.Update(e.db, existing)
}

func (e *Engine) applyWarning(row *models.Warning) error {
	// Warnings are append only, dedupe on the natural identity of one warn
	// action instead of the auto increment id.
	var count int64

	err := e.db.Model(&models.Warning{}).
		Where("guild_id = ? AND user_id = ? AND moderator_id = ? AND created_at = ?",
			row.GuildID, row.UserID, row.ModeratorID, row.CreatedAt).
		Count(&count).Error
	if err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	fresh := *row
	fresh.ID = 0

	return e.db.Create(&fresh).Error
}

func (e *Engine) applyInviteStat(row *models.InviteStat) error {
	existing, err := invitestat.GetOrCreate(e.db, row.GuildID, row.UserID)
	if err != nil {
		return err
	}

	existing.Regular = row.Regular
	existing.Fake = row.Fake
	existing.Bonus = row.Bonus
	existing.Left = row.Left

	return e.db.Save(existing).Error
}

func (e *Engine) stamp() error {
	return setting.SetTime(e.db, SettingLastSync, time.Now())
}

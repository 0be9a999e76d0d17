// Package daemon wires the database, the access resolver, the snapshot sync
// engine, the bot gateway and the web dashboard into one process.
package daemon

import (
	"context"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	sessionmysql "github.com/gofiber/storage/mysql/v2"
	sessionpostgres "github.com/gofiber/storage/postgres/v3"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/MyteScripts/gridbot/internal/access"
	"github.com/MyteScripts/gridbot/internal/bot"
	"github.com/MyteScripts/gridbot/internal/config"
	"github.com/MyteScripts/gridbot/internal/db/dsn"
	"github.com/MyteScripts/gridbot/internal/db/models"
	"github.com/MyteScripts/gridbot/internal/sync"
	"github.com/MyteScripts/gridbot/internal/web"
	"github.com/MyteScripts/gridbot/internal/web/session"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	botService *bot.Service
	webService *web.Service
	syncEngine *sync.Engine
}

// Start opens the bot gateway, launches the sync watcher and serves the
// dashboard. It blocks until the web service has shut down, then closes
// the gateway.
func (d *Daemon) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if d.syncEngine != nil {
		go d.syncEngine.Run(ctx)
	}

	if err := d.botService.Start(ctx); err != nil {
		return err
	}

	go d.webService.WaitShutdown()

	// blocks until WaitShutdown stops the fiber app
	if err := d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port)); err != nil {
		return err
	}

	return d.botService.Stop()
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	db := OpenDatabase(cfg)

	seed(cfg, db)

	store, err := access.Open(cfg.Access.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open access store")
		return nil
	}

	resolver := access.NewResolver(access.Rules{
		SuperAdminIDs:    cfg.Access.SuperAdminIDs,
		SuperAdminRoleID: cfg.Access.SuperAdminRoleID,
		PinnedCommand:    cfg.Access.PinnedCommand,
		PinnedAdminID:    cfg.Access.PinnedAdminID,
		RetiredCommands:  cfg.Access.RetiredCommands,
		PublicCommands:   cfg.Access.PublicCommands,
		RoleGrants:       cfg.Access.RoleGrants,
	}, store)

	var syncEngine *sync.Engine

	if cfg.Sync.Enabled {
		syncEngine, err = sync.New(db, cfg.Sync)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create sync engine")
			return nil
		}
	}

	botService := bot.New(cfg, db, resolver, syncEngine)

	// Initialize fiber session store
	session.Init(sessionStorage(cfg))

	return &Daemon{
		cfg:        cfg,
		botService: botService,
		webService: web.New(cfg, db, store),
		syncEngine: syncEngine,
	}
}

// OpenDatabase connects gorm to the configured engine and migrates the
// schema. The maintenance commands share this with the daemon.
func OpenDatabase(cfg *config.Config) *gorm.DB {
	var dialector gorm.Dialector

	switch cfg.DB.GormEngine {
	case config.EngineMySQL:
		dialector = gormmysql.Open(dsn.Create(cfg))
	case config.EnginePostgres:
		dialector = gormpostgres.Open(dsn.Create(cfg))
	default:
		dialector = sqlite.Open(dsn.Create(cfg))
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	if err = db.AutoMigrate(
		&models.User{},
		&models.Setting{},
		&models.Member{},
		&models.Warning{},
		&models.Giveaway{},
		&models.GiveawayEntry{},
		&models.Ticket{},
		&models.InviteStat{},
		&models.InviteUse{},
	); err != nil {
		panic("failed to migrate database")
	}

	return db
}

// sessionStorage picks the session backend matching the gorm engine.
// Sqlite deployments use fiber's in-process store.
func sessionStorage(cfg *config.Config) fiber.Storage {
	switch cfg.DB.GormEngine {
	case config.EngineMySQL:
		return sessionmysql.New(sessionmysql.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         "sessions",
		})
	case config.EnginePostgres:
		return sessionpostgres.New(sessionpostgres.Config{
			ConnectionURI: dsn.CreateURI(cfg),
			Table:         "sessions",
		})
	default:
		return nil
	}
}

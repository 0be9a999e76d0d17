package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cache"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/MyteScripts/gridbot/internal/access"
	"github.com/MyteScripts/gridbot/internal/config"
	fiberlogger "github.com/MyteScripts/gridbot/internal/logger/adapter/fiber"
	adminaccess "github.com/MyteScripts/gridbot/internal/web/handler/admin/access"
	adminconfig "github.com/MyteScripts/gridbot/internal/web/handler/admin/runtimeconfig"
	adminuser "github.com/MyteScripts/gridbot/internal/web/handler/admin/user"
	discordauth "github.com/MyteScripts/gridbot/internal/web/handler/auth/discord"
	"github.com/MyteScripts/gridbot/internal/web/handler/dashboard"
	"github.com/MyteScripts/gridbot/internal/web/handler/leaderboard"
	"github.com/MyteScripts/gridbot/internal/web/handler/login"
	"github.com/MyteScripts/gridbot/internal/web/handler/logout"
	authmiddleware "github.com/MyteScripts/gridbot/internal/web/middleware/auth"
)

// CheckAliveURI answers load balancer health probes and is excluded from the access log.
const CheckAliveURI = "/checkalive"

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	db           *gorm.DB
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for graceful shutdown of the web service.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	// Wait interrupt or shutdown request through /shutdown
	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: set status to fail, so checkalive returns fail.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	// stop fiber http server
	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// New creates a new web service with the given configuration. The access
// store backs the command access admin page.
func New(cfg *config.Config, db *gorm.DB, store *access.Store) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if db == nil {
		panic("db cannot be nil")
	}

	templateEngine := html.NewFileSystem(http.FS(templatesFS()), ".gohtml")

	// in debug mode, use local filesystem for templates
	if cfg.DevMode {
		templateEngine = html.New("./internal/web/templates", ".gohtml")
		templateEngine.ShouldReload = true

		log.Warn().Msg("debug mode enabled: using local filesystem for templates")
	}

	// Add template helper functions
	templateEngine.AddFunc("iterate", func(count int) []int {
		result := make([]int, count)
		for i := range result {
			result[i] = i
		}

		return result
	})
	templateEngine.AddFunc("add", func(a, b int) int {
		return a + b
	})
	templateEngine.AddFunc("sub", func(a, b int) int {
		return a - b
	})
	templateEngine.AddFunc("comma", func(n int64) string {
		return humanize.Comma(n)
	})

	// create fiber app
	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        "gridbot",
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
			Views:          templateEngine,
		},
	)

	// access log for every request except metrics scrapes and, when
	// configured, the health probe
	skipURIs := []string{"/metrics"}
	if cfg.Log.DisableCheckAlive {
		skipURIs = append(skipURIs, CheckAliveURI)
	}

	app.Use(fiberlogger.New(
		fiberlogger.Config{
			Config:   cfg.Log,
			SkipURIs: skipURIs,
		},
	))

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New())
	}

	if cfg.Webserver.CacheEnabled {
		app.Use("/static", cache.New())
	}

	// serve embedded static files
	app.Use("/static",
		filesystem.New(
			filesystem.Config{
				Root:       http.FS(embeddedStaticFiles),
				PathPrefix: "static",
				Browse:     cfg.Webserver.BrowseStatic,
			},
		),
	)

	// basic auth middleware
	app.Use(authmiddleware.Middleware)

	// init web service
	service := &Service{
		cfg: cfg,
		App: app,
		db:  db,
	}
	service.alive.Store(true)

	// health probe for load balancers, flips to 503 during graceful shutdown
	app.Get(CheckAliveURI, func(c *fiber.Ctx) error {
		if !service.alive.Load() {
			return c.Status(fiber.StatusServiceUnavailable).SendString("shutting down")
		}

		return c.SendString("OK")
	})

	// expose prometheus metrics (resolver decisions, log statement counters)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// init handlers (they register their own routes)
	if err := login.Handler.Init(app, cfg, db); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize login handler")
	}

	discordauth.Handler.Init(app, cfg, db)
	dashboard.Handler.Init(app, cfg, db)
	leaderboard.Handler.Init(app, cfg, db)
	adminuser.Handler.Init(app, cfg, db)
	adminaccess.Handler.Init(app, cfg, store)
	adminconfig.Handler.Init(app, cfg)
	logout.Handler.Init(app, cfg)

	// redirect root to dashboard
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect(dashboard.Path)
	})

	return service
}

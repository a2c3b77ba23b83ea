package server

import (
	"log"

	"backend-livetrack/internal/config"
	"backend-livetrack/internal/fleet"
	"backend-livetrack/internal/live"
	"backend-livetrack/internal/realtime"
	"backend-livetrack/internal/routing"
	"backend-livetrack/internal/stream"
	"backend-livetrack/internal/tracking"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App       *fiber.App
	Cfg       config.Config
	DB        *pgxpool.Pool
	Redis     *redis.Client
	Stream    *stream.Hub
	Backend   tracking.Backend
	Broker    realtime.Broker
	Positions *fleet.PositionStore
	Live      *live.Manager
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
	}

	if db != nil {
		s.Backend = tracking.NewService(db)
	} else {
		log.Printf("no postgres pool, tracks are kept in memory")
		s.Backend = tracking.NewMemoryBackend()
	}
	if redisClient != nil {
		s.Broker = realtime.NewRedisBroker(redisClient)
		s.Positions = fleet.NewPositionStore(redisClient, cfg.OnlineTTL)
	} else {
		s.Broker = realtime.NewMemoryBroker()
	}

	var markers live.MarkerSource
	var fleetSvc *fleet.Service
	if cfg.DirectoryURL != "" {
		var positions fleet.Positions
		if s.Positions != nil {
			positions = s.Positions
		}
		fleetSvc = fleet.NewService(fleet.NewDirectoryClient(cfg.DirectoryURL, cfg.DirectoryTimeout), positions)
		markers = fleetSvc
	}

	deps := live.Deps{
		Backend: s.Backend,
		Broker:  s.Broker,
		Snapper: newSnapper(cfg, redisClient),
		Markers: markers,
		Sink:    s.Stream,
	}
	if s.Positions != nil {
		deps.Presence = s.Positions
	}
	s.Live = live.NewManager(deps, live.Options{
		ChannelPrefix: cfg.ChannelPrefix,
		Route: routing.Options{
			WaypointCap: cfg.WaypointCap,
			Debounce:    cfg.RouteDebounce,
			Timeout:     cfg.SnapTimeout,
			RawOnly:     !cfg.SnapEnabled,
		},
	})

	registerRoutes(s, fleetSvc)
	return s
}

// newSnapper returns nil when snapping is disabled or unconfigured, which
// makes every route render raw.
func newSnapper(cfg config.Config, redisClient *redis.Client) routing.Snapper {
	if !cfg.SnapEnabled || cfg.OSRMURL == "" {
		return nil
	}
	var snapper routing.Snapper = routing.NewOSRMClient(cfg.OSRMURL, cfg.SnapTimeout)
	if redisClient != nil && cfg.RouteCacheTTL > 0 {
		snapper = routing.CachedSnapper{Snapper: snapper, Cache: routing.NewRedisCache(redisClient, cfg.RouteCacheTTL)}
	}
	return snapper
}

func registerRoutes(s *Server, fleetSvc *fleet.Service) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	tracking.RegisterRoutes(s.App, s.Backend)
	live.RegisterRoutes(s.App.Group("/jobs"), s.Live, s.Stream)

	technicians := s.App.Group("/technicians")
	var recorder realtime.PositionRecorder
	var nearby fleet.Nearby
	if s.Positions != nil {
		recorder = s.Positions
		nearby = s.Positions
	}
	realtime.RegisterRoutes(technicians, s.Broker, s.Cfg.ChannelPrefix, recorder)
	if fleetSvc != nil {
		fleet.RegisterRoutes(technicians, fleetSvc, nearby)
	}

	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream, s.Live)
}

// Close releases open live views and stops frame mirroring.
func (s *Server) Close() {
	s.Live.CloseAll()
	s.Stream.Close()
}

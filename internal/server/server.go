package server

import (
	"backend-snsapp/internal/auth"
	"backend-snsapp/internal/config"
	applog "backend-snsapp/internal/logger"
	"backend-snsapp/internal/media"
	"backend-snsapp/internal/metrics"
	"backend-snsapp/internal/ratelimit"
	"backend-snsapp/internal/social"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App     *fiber.App
	Cfg     config.Config
	DB      *pgxpool.Pool
	Redis   *redis.Client
	Log     *applog.Logger
	Limiter *ratelimit.Limiter
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client, log *applog.Logger) *Server {
	if log == nil {
		log = applog.Discard()
	}

	fiberCfg := fiber.Config{}
	if cfg.MediaMaxBytes > 0 {
		// leave room for the multipart envelope around the image
		fiberCfg.BodyLimit = int(cfg.MediaMaxBytes) + 64<<10
	}
	app := fiber.New(fiberCfg)
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(metrics.Middleware())

	s := &Server{
		App:     app,
		Cfg:     cfg,
		DB:      db,
		Redis:   redisClient,
		Log:     log,
		Limiter: ratelimit.New(redisClient, cfg.RateLimitPerMinute, log),
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.App.Get("/metrics", metrics.Handler())

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)
	rateLimit := s.Limiter.Middleware()

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB))
	social.RegisterRoutes(s.App.Group(social.MountPath), social.NewService(s.DB, s.Log), jwtMiddleware, rateLimit)
	media.RegisterRoutes(s.App.Group(media.MountPath), media.NewService(s.DB, media.Options{
		Dir:      s.Cfg.MediaDir,
		BaseURL:  s.Cfg.MediaBaseURL,
		MaxBytes: s.Cfg.MediaMaxBytes,
	}, s.Log), jwtMiddleware, rateLimit)
}

package server

import (
	"context"
	"log"

	"medrag-be/internal/bootstrap"
	"medrag-be/internal/config"
	"medrag-be/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	bodyLimit := cfg.App.MaxUploadSizeMB * 1024 * 1024
	if bodyLimit <= 0 {
		bodyLimit = 10 * 1024 * 1024
	}

	app := fiber.New(fiber.Config{
		BodyLimit:    bodyLimit,
		ErrorHandler: serverutils.WriteError,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CorsAllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type, Content-Disposition",
	}))

	// traces every request
	app.Use(otelfiber.Middleware())

	app.Use(serverutils.ErrorHandlerMiddleware())

	registerRoutes(app, cfg, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("✅ Server is running on http://localhost:%s", s.cfg.App.Port)
	return s.app.Listen(":" + s.cfg.App.Port)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func registerRoutes(app *fiber.App, cfg *config.Config, c *bootstrap.Container) {
	api := app.Group("/api/v1")
	auth := serverutils.JwtMiddleware(cfg.App.JwtSecret, cfg.App.AuthEnabled)

	c.HealthController.RegisterRoutes(api)
	// before the diagnosis group so its bearer-only middleware does not run on the handshake
	c.ProgressHandler.RegisterRoutes(api)

	c.DiagnosisController.RegisterRoutes(api, auth)
	c.PatientController.RegisterRoutes(api, auth)
	c.KnowledgeGraphController.RegisterRoutes(api, auth)
	c.CaseController.RegisterRoutes(api, auth)
	c.UploadController.RegisterRoutes(api, auth)
}

// Package main provides the catalog orchestrator API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/edulab/orchestrator/pkg/ergomate"
	"github.com/edulab/orchestrator/pkg/persistence"
	"github.com/edulab/orchestrator/pkg/services"
	"github.com/edulab/orchestrator/pkg/web"
	"github.com/edulab/orchestrator/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	notifier    workflow.Notifier
	pusher      ergomate.Pusher
	engineOpts  []workflow.Option
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	notifier workflow.Notifier,
	pusher ergomate.Pusher,
	engineOpts ...workflow.Option,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		notifier:    notifier,
		pusher:      pusher,
		engineOpts:  engineOpts,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	engine := workflow.NewEngine(a.persistence, a.notifier, a.logger, a.engineOpts...)
	catalogService := services.NewCatalog(a.persistence, engine, a.logger)
	publishingService := services.NewPublishing(a.persistence, a.pusher, a.notifier, a.logger)

	handlers := web.NewAPIHandlers(catalogService, publishingService, a.validate, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Catalog Orchestrator API")
	})

	web.RegisterRoutes(app, handlers)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}

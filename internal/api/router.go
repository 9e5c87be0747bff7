package api

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/siamese/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/siamese/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/siamese/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/siamese/internal/ws"
)

// bodyLimit covers a fit request of a few hundred base64 encoded images
const bodyLimit = 32 * 1024 * 1024

// Service is everything the v1 routes need from the service layer
type Service interface {
	handler.ClassifierService
	handler.ComputeService
}

type Dependencies struct {
	Service        Service
	DB             handler.Pinger
	MetricsEnabled bool
	// Events is optional; when set the router runs it and serves the
	// websocket event streams
	Events *ws.Hub
}

type Router struct {
	app       *fiber.App
	logger    *slog.Logger
	deps      *Dependencies
	cancelHub context.CancelFunc
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Siamese API",
		BodyLimit:    bodyLimit,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	var db handler.Pinger
	if r.deps != nil {
		db = r.deps.DB
	}
	healthHandler := handler.NewHealthHandler(db)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	if r.deps == nil {
		return
	}

	if r.deps.MetricsEnabled {
		r.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	if r.deps.Service == nil {
		return
	}

	v1 := r.app.Group("/v1")

	classifierHandler := handler.NewClassifierHandler(r.deps.Service, r.logger)
	v1.Get("/classifiers", classifierHandler.List)
	v1.Get("/classifiers/:name", classifierHandler.Get)
	v1.Delete("/classifiers/:name", classifierHandler.Delete)
	v1.Post("/classifiers/:name/fit", classifierHandler.Fit)
	v1.Post("/classifiers/:name/verify", classifierHandler.Verify)
	v1.Post("/classifiers/:name/histogram", classifierHandler.Histogram)
	v1.Get("/classifiers/:name/decisions", classifierHandler.Decisions)

	computeHandler := handler.NewComputeHandler(r.deps.Service)
	v1.Post("/distance", computeHandler.Distance)
	v1.Post("/loss", computeHandler.Loss)

	if r.deps.Events != nil {
		hubCtx, hubCancel := context.WithCancel(context.Background())
		r.cancelHub = hubCancel
		go r.deps.Events.Run(hubCtx)

		v1.Get("/events", ws.UpgradeMiddleware(), ws.Handler(r.deps.Events))
		v1.Get("/classifiers/:name/events", ws.UpgradeMiddleware(), ws.Handler(r.deps.Events))
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	if r.cancelHub != nil {
		r.cancelHub()
	}
	return r.app.Shutdown()
}

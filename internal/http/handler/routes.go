package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"uploadstore/internal/http/middleware"
	"uploadstore/internal/service"
)

// Dependencies are the collaborators the HTTP routes are built from.
type Dependencies struct {
	Storage    service.FileStorage
	Session    middleware.SessionConfig
	DefaultTTL int64
	// Health lists the dependencies /health pings.
	Health []Pinger
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, deps Dependencies) {
	app.Get("/health", HealthCheck(deps.Health...))
	app.Get("/healthz", LivenessProbe())

	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	files := app.Group("/files", middleware.Session(deps.Storage, deps.Session))
	files.Post("/", UploadFile(deps.DefaultTTL))
	files.Get("/", ListFiles())
	files.Delete("/", DeleteAllFiles())
	files.Get("/:id", DownloadFile())
	files.Get("/:id/info", FileInfo())
	files.Put("/:id/metadata", UpdateMetadata())
	files.Delete("/:id", DeleteFile())
}

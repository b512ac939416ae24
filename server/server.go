package server

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"homefeed/feed"
)

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "homefeed_request_duration_seconds",
	Help: "HTTP request duration in seconds, labeled by route",
}, []string{"route"})

type ServerConfig struct {

	// The hostname to use for the server
	Hostname string

	// The composer that produces feed pages
	Composer *feed.Composer
}

// Returns a fiber.App instance to be used as an HTTP server for the
// homefeed API
func Server(config *ServerConfig) *fiber.App {

	app := fiber.New()

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		// start timer
		start := time.Now()

		// next routes
		err := c.Next()

		// stop timer
		stop := time.Now()

		requestDuration.WithLabelValues(c.Route().Path).Observe(stop.Sub(start).Seconds())

		// Diff
		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"latency": stop.Sub(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Cache-Control",
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(map[string]interface{}{
			"status":   "ok",
			"hostname": config.Hostname,
		})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/feed", func(c *fiber.Ctx) error {
		viewer := c.Query("viewer", "")
		if viewer == "" {
			return c.Status(400).SendString("Missing viewer")
		}

		cursor := c.Query("cursor", "")
		limit, err := strconv.ParseInt(c.Query("limit", "0"), 10, 32)
		if err != nil || limit < 0 {
			limit = 0 // composer applies the configured default
		}

		log.WithFields(log.Fields{
			"viewer": viewer,
			"cursor": cursor,
			"limit":  limit,
		}).Info("Get feed page with parameters")

		page, err := config.Composer.GetFeedPage(c.Context(), viewer, cursor, int(limit))
		if err != nil {
			// The composer only fails on transient store errors, so the
			// same request is safe to retry.
			log.WithFields(log.Fields{
				"viewer": viewer,
				"error":  err,
			}).Error("Error composing feed page")
			return c.Status(503).SendString("Feed temporarily unavailable")
		}

		return c.JSON(page)
	})

	return app
}

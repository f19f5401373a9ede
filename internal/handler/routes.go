package handler

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/mergeserver/api/internal/config"
	"github.com/mergeserver/api/internal/middleware"
	ws "github.com/mergeserver/api/internal/websocket"
)

// Routes bundles everything RegisterRoutes mounts
type Routes struct {
	Merge       *MergeHandler
	Media       *MediaHandler
	Health      *HealthHandler
	Hub         *ws.Hub
	RateLimiter *middleware.RateLimiter
	Limits      config.RateLimitConfig
}

// RegisterRoutes mounts the HTTP and WebSocket routes on app
func RegisterRoutes(app *fiber.App, r *Routes) {
	app.Get("/", r.Health.Root)
	app.Get("/health", r.Health.Health)

	app.Post("/merge", r.RateLimiter.MergeLimit(r.Limits.MergePerHour), r.Merge.Merge)
	app.Get("/progress/:jobId", r.Merge.Progress)
	app.Get("/download/:jobId", r.Merge.Download)
	app.Get("/video-info", r.RateLimiter.InfoLimit(r.Limits.InfoPerMin), r.Media.VideoInfo)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		r.Hub.HandleConnection(c, c.Params("jobId"))
	}))
}

package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mergeserver/api/internal/store"
	"github.com/mergeserver/api/pkg/response"
)

// ToolCheck reports whether an external binary can be run
type ToolCheck interface {
	IsAvailable() bool
}

type HealthHandler struct {
	jobs  *store.JobStore
	tools map[string]ToolCheck
}

func NewHealthHandler(jobs *store.JobStore, tools map[string]ToolCheck) *HealthHandler {
	return &HealthHandler{
		jobs:  jobs,
		tools: tools,
	}
}

// Root handles GET /
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.SendString("Merge Server is running!")
}

// Health handles GET /health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	tools := make(fiber.Map, len(h.tools))
	for name, check := range h.tools {
		tools[name] = check.IsAvailable()
	}

	return response.OK(c, fiber.Map{
		"status": "ok",
		"jobs":   h.jobs.Len(),
		"tools":  tools,
	})
}

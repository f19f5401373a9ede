package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/mergeserver/api/internal/model"
	"github.com/mergeserver/api/internal/service"
	"github.com/mergeserver/api/pkg/response"
)

type MediaHandler struct {
	service   *service.MediaService
	validator *validator.Validate
}

func NewMediaHandler(svc *service.MediaService, v *validator.Validate) *MediaHandler {
	return &MediaHandler{
		service:   svc,
		validator: v,
	}
}

// VideoInfo handles GET /video-info?url=
func (h *MediaHandler) VideoInfo(c *fiber.Ctx) error {
	var req model.VideoInfoRequest
	if err := c.QueryParser(&req); err != nil {
		return response.BadRequest(c, "Missing url parameter")
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.BadRequest(c, "Missing url parameter")
	}

	result, err := h.service.GetVideoInfo(c.UserContext(), req.URL)
	if err != nil {
		return response.ServiceError(c, "Failed to get video info: "+err.Error())
	}

	return response.OK(c, result)
}

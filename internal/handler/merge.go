package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/mergeserver/api/internal/model"
	"github.com/mergeserver/api/internal/service"
	"github.com/mergeserver/api/pkg/response"
)

const (
	msgMissingMergeParams = "Missing videoUrl or audioUrl"
	msgMergeComplete      = "Merge complete! Click download to get your video."
	msgJobNotFound        = "Job not found"
	msgStillProcessing    = "Still processing... Please wait and try again."
)

type MergeHandler struct {
	service   *service.MergeService
	validator *validator.Validate
	publicURL string
}

// NewMergeHandler creates the merge handler. publicURL prefixes download
// links; when empty the request's own base URL is used.
func NewMergeHandler(svc *service.MergeService, v *validator.Validate, publicURL string) *MergeHandler {
	return &MergeHandler{
		service:   svc,
		validator: v,
		publicURL: publicURL,
	}
}

// Merge handles POST /merge. The response is sent once the mux has finished.
func (h *MergeHandler) Merge(c *fiber.Ctx) error {
	var req model.MergeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.BadRequest(c, msgMissingMergeParams)
	}

	job, err := h.service.Merge(c.UserContext(), &req)
	if err != nil {
		if errors.Is(err, service.ErrMissingParameter) {
			return response.BadRequest(c, msgMissingMergeParams)
		}
		return response.ServiceError(c, "Merge failed: "+err.Error())
	}

	return response.OK(c, model.MergeResponse{
		JobID:       job.ID,
		DownloadURL: h.baseURL(c) + "/download/" + job.ID,
		Filename:    job.Filename,
		Message:     msgMergeComplete,
	})
}

// Progress handles GET /progress/:jobId
func (h *MergeHandler) Progress(c *fiber.Ctx) error {
	result, err := h.service.GetProgress(c.Params("jobId"))
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			return response.NotFound(c, msgJobNotFound)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Download handles GET /download/:jobId. Errors are plain text because
// clients usually open this URL directly.
func (h *MergeHandler) Download(c *fiber.Ctx) error {
	// fiber routes HEAD to GET handlers. A HEAD only reports the job state
	// and must not claim the file.
	if c.Method() == fiber.MethodHead {
		return h.downloadStatus(c)
	}

	dl, err := h.service.OpenDownload(c.Params("jobId"))
	if err != nil {
		var failed *service.JobFailedError
		switch {
		case errors.Is(err, service.ErrJobNotFound):
			return response.Text(c, fiber.StatusNotFound, msgJobNotFound)
		case errors.Is(err, service.ErrStillProcessing):
			return response.Text(c, fiber.StatusAccepted, msgStillProcessing)
		case errors.As(err, &failed):
			return response.Text(c, fiber.StatusInternalServerError, "Merge failed: "+failed.Message)
		default:
			return response.Text(c, fiber.StatusInternalServerError, err.Error())
		}
	}

	// fasthttp closes the stream once the response is written or aborted,
	// which schedules the file and record removal.
	c.Attachment(dl.Filename)
	return c.SendStream(dl, int(dl.Size))
}

func (h *MergeHandler) downloadStatus(c *fiber.Ctx) error {
	result, err := h.service.GetProgress(c.Params("jobId"))
	if err != nil {
		return c.SendStatus(fiber.StatusNotFound)
	}

	switch result.Status {
	case model.JobStatusProcessing:
		return c.SendStatus(fiber.StatusAccepted)
	case model.JobStatusError:
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *MergeHandler) baseURL(c *fiber.Ctx) string {
	if h.publicURL != "" {
		return h.publicURL
	}
	return c.BaseURL()
}

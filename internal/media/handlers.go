package media

import (
	"errors"

	"backend-snsapp/internal/auth"
	"backend-snsapp/internal/metrics"

	"github.com/gofiber/fiber/v2"
)

const MountPath = "/media"

// RegisterRoutes mounts the upload endpoint and serves stored files.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware, rateLimit fiber.Handler) {
	r.Post("/images", authMiddleware, rateLimit, func(c *fiber.Ctx) error {
		userID, ok := auth.CallerID(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
		}
		fh, err := c.FormFile("image")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "multipart field image is required")
		}
		obj, err := svc.Upload(c.Context(), userID, fh)
		if err != nil {
			return svc.uploadError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":  obj.ID,
			"url": obj.URL,
		})
	})

	r.Static("/", svc.Dir())
}

func (s *Service) uploadError(err error) error {
	switch {
	case errors.Is(err, ErrTooLarge):
		metrics.DomainErrorsTotal.WithLabelValues("validation").Inc()
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, ErrUnsupportedType), errors.Is(err, ErrEmpty):
		metrics.DomainErrorsTotal.WithLabelValues("validation").Inc()
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		metrics.DomainErrorsTotal.WithLabelValues("internal").Inc()
		s.log.Errorf("image upload failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "upload failed")
	}
}

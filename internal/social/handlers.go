package social

import (
	"context"
	"errors"

	"backend-snsapp/internal/auth"
	"backend-snsapp/internal/metrics"

	"github.com/gofiber/fiber/v2"
)

// MountPath is where the server mounts these routes; redirects are built
// from it.
const MountPath = "/social"

const (
	homePath   = MountPath + "/"
	myPostPath = MountPath + "/mypost"
)

func detailPath(postID string) string {
	return MountPath + "/posts/" + postID
}

var formFields = []fiber.Map{
	{"name": "title", "required": true, "max_length": 100},
	{"name": "content", "required": true},
	{"name": "image", "required": true, "format": "http(s) url, see POST /media/images"},
}

// RegisterRoutes mounts the social endpoints. Every route requires
// authMiddleware; mutations additionally pass through rateLimit.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware, rateLimit fiber.Handler) {
	r.Use(authMiddleware)

	r.Get("/", feedHandler(svc, svc.OthersFeed))
	r.Get("/mypost", feedHandler(svc, svc.OwnFeed))
	r.Get("/following", feedHandler(svc, svc.FollowedFeed))

	r.Get("/posts/new", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"fields": formFields})
	})

	r.Post("/posts", rateLimit, func(c *fiber.Ctx) error {
		caller, err := callerOf(c)
		if err != nil {
			return err
		}
		var req PostInput
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if _, err := svc.CreatePost(c.Context(), caller, req); err != nil {
			return svc.httpError(err)
		}
		return c.Redirect(myPostPath, fiber.StatusFound)
	})

	r.Get("/posts/:id", func(c *fiber.Ctx) error {
		caller, err := callerOf(c)
		if err != nil {
			return err
		}
		post, err := svc.GetPost(c.Context(), c.Params("id"))
		if err != nil {
			return svc.httpError(err)
		}
		conn, err := svc.EnsureConnection(c.Context(), caller)
		if err != nil {
			return svc.httpError(err)
		}
		return c.JSON(fiber.Map{"post": post, "connection": conn})
	})

	r.Get("/posts/:id/update", ownedPostHandler(svc))
	r.Post("/posts/:id/update", rateLimit, func(c *fiber.Ctx) error {
		caller, err := callerOf(c)
		if err != nil {
			return err
		}
		var req PostInput
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		post, err := svc.UpdatePost(c.Context(), caller, c.Params("id"), req)
		if err != nil {
			return svc.httpError(err)
		}
		return c.Redirect(detailPath(post.ID), fiber.StatusFound)
	})

	r.Get("/posts/:id/delete", ownedPostHandler(svc))
	r.Post("/posts/:id/delete", rateLimit, func(c *fiber.Ctx) error {
		caller, err := callerOf(c)
		if err != nil {
			return err
		}
		if err := svc.DeletePost(c.Context(), caller, c.Params("id")); err != nil {
			return svc.httpError(err)
		}
		return c.Redirect(myPostPath, fiber.StatusFound)
	})

	r.Get("/like-home/:id", rateLimit, toggleHandler(svc, svc.ToggleLike, DestinationHome))
	r.Get("/like-detail/:id", rateLimit, toggleHandler(svc, svc.ToggleLike, DestinationDetail))
	r.Get("/follow-home/:id", rateLimit, toggleHandler(svc, svc.ToggleFollow, DestinationHome))
	r.Get("/follow-detail/:id", rateLimit, toggleHandler(svc, svc.ToggleFollow, DestinationDetail))
}

type feedFunc func(ctx context.Context, caller string) ([]Post, Connection, error)

func feedHandler(svc *Service, feed feedFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := callerOf(c)
		if err != nil {
			return err
		}
		posts, conn, err := feed(c.Context(), caller)
		if err != nil {
			return svc.httpError(err)
		}
		return c.JSON(fiber.Map{"posts": posts, "connection": conn})
	}
}

// ownedPostHandler backs the update form and delete confirmation pages.
func ownedPostHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := callerOf(c)
		if err != nil {
			return err
		}
		post, err := svc.EditablePost(c.Context(), caller, c.Params("id"))
		if err != nil {
			return svc.httpError(err)
		}
		return c.JSON(post)
	}
}

type toggleFunc func(ctx context.Context, caller, postID string) error

func toggleHandler(svc *Service, toggle toggleFunc, dest Destination) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := callerOf(c)
		if err != nil {
			return err
		}
		postID := c.Params("id")
		if err := toggle(c.Context(), caller, postID); err != nil {
			return svc.httpError(err)
		}
		return c.Redirect(dest.path(postID), fiber.StatusFound)
	}
}

func callerOf(c *fiber.Ctx) (string, error) {
	caller, ok := auth.CallerID(c)
	if !ok {
		return "", fiber.NewError(fiber.StatusUnauthorized, "authentication required")
	}
	return caller, nil
}

// httpError maps domain errors to statuses. Anything unexpected is logged
// and answered with a generic message.
func (s *Service) httpError(err error) error {
	var (
		status int
		kind   string
	)
	switch {
	case errors.Is(err, ErrValidation):
		status, kind = fiber.StatusBadRequest, "validation"
	case errors.Is(err, ErrPermissionDenied):
		status, kind = fiber.StatusForbidden, "permission"
	case errors.Is(err, ErrPostNotFound):
		status, kind = fiber.StatusNotFound, "not_found"
	default:
		metrics.DomainErrorsTotal.WithLabelValues("internal").Inc()
		s.log.Errorf("social request failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "internal error")
	}
	metrics.DomainErrorsTotal.WithLabelValues(kind).Inc()
	return fiber.NewError(status, err.Error())
}

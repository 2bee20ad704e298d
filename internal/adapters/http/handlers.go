package http

import (
	"math"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/maproute/internal/core/domain"
)

// clickRequest is the body of POST /sessions/:id/clicks.
type clickRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// fitRequest is the optional body of POST /sessions/:id/fit.
type fitRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FitResponse reports the camera after a fit request.
type FitResponse struct {
	Fitted bool          `json:"fitted"`
	Camera domain.Camera `json:"camera"`
}

// MapStyleHandler returns the basemap style and initial camera.
func MapStyleHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := deps.Sessions.Settings()
		return c.JSON(fiber.Map{
			"style_url": s.StyleURL,
			"camera":    s.InitialCamera,
			"max_zoom":  s.MaxZoom,
		})
	}
}

// CreateSessionHandler starts a new map session.
func CreateSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap := deps.Sessions.Create(c.UserContext())
		c.Location("/v1/sessions/" + snap.ID)
		return c.Status(fiber.StatusCreated).JSON(snap)
	}
}

// GetSessionHandler returns a session snapshot.
func GetSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap, err := deps.Sessions.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return sessionError(c, err)
		}
		return c.JSON(snap)
	}
}

// DeleteSessionHandler drops a session.
func DeleteSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Sessions.Delete(c.UserContext(), c.Params("id")); err != nil {
			return sessionError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ClickHandler records a map click.
func ClickHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req clickRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Lat == nil || req.Lng == nil {
			return errBadRequest(c, "lat and lng are required")
		}

		snap, err := deps.Sessions.Click(c.UserContext(), c.Params("id"), domain.GeoPoint{Lat: *req.Lat, Lng: *req.Lng})
		if err != nil {
			return sessionError(c, err)
		}
		status := fiber.StatusOK
		if snap.Fetching {
			status = fiber.StatusAccepted
		}
		return c.Status(status).JSON(snap)
	}
}

// SwapHandler exchanges origin and destination.
func SwapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap, err := deps.Sessions.Swap(c.UserContext(), c.Params("id"))
		if err != nil {
			return sessionError(c, err)
		}
		return c.JSON(snap)
	}
}

// ResetHandler clears the session's waypoints and route.
func ResetHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap, err := deps.Sessions.Reset(c.UserContext(), c.Params("id"))
		if err != nil {
			return sessionError(c, err)
		}
		return c.JSON(snap)
	}
}

// FitHandler frames the current route in the client's viewport.
func FitHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var vp *domain.Viewport
		if len(c.Body()) > 0 {
			var req fitRequest
			if err := c.BodyParser(&req); err != nil {
				return errBadRequest(c, "invalid request body")
			}
			if req.Width < 0 || req.Height < 0 {
				return errBadRequest(c, "width and height must not be negative")
			}
			vp = &domain.Viewport{Width: req.Width, Height: req.Height}
		}

		cam, fitted, err := deps.Sessions.FitToBounds(c.UserContext(), c.Params("id"), vp)
		if err != nil {
			return sessionError(c, err)
		}
		return c.JSON(FitResponse{Fitted: fitted, Camera: cam})
	}
}

// LocateHandler centers the map on the caller's approximate position.
func LocateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := c.IP()
		if ips := c.IPs(); len(ips) > 0 {
			ip = ips[0]
		}
		res, err := deps.Sessions.LocateUser(c.UserContext(), c.Params("id"), ip)
		if err != nil {
			return sessionError(c, err)
		}
		return c.JSON(res)
	}
}

// SceneHandler returns markers, route overlay and camera.
func SceneHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scene, err := deps.Sessions.Scene(c.UserContext(), c.Params("id"))
		if err != nil {
			return sessionError(c, err)
		}
		return c.JSON(scene)
	}
}

// RouteHandler returns the route as a GeoJSON Feature.
func RouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		feature, err := deps.Sessions.RouteFeature(c.UserContext(), c.Params("id"))
		if err != nil {
			return sessionError(c, err)
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		data, err := feature.MarshalJSON()
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.Send(data)
	}
}

// RoutePointsHandler returns a page of route points.
func RoutePointsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset, limit := pointPageParams(c)

		points, total, err := deps.Sessions.RoutePoints(c.UserContext(), c.Params("id"), offset, limit)
		if err != nil {
			return sessionError(c, err)
		}

		page := RoutePointsPage{
			Data:       points,
			Pagination: Pagination{Offset: offset, Limit: limit, Total: total},
		}
		setPointLinks(c, page.Pagination)
		return c.JSON(page)
	}
}

// RouteWindowHandler returns the visible rows of the route point list.
func RouteWindowHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scroll := c.QueryFloat("scroll", 0)
		viewport := c.QueryFloat("viewport", 0)
		if !finite(scroll) || !finite(viewport) {
			return errBadRequest(c, "scroll and viewport must be finite numbers")
		}
		if viewport < 0 {
			return errBadRequest(c, "viewport must not be negative")
		}

		win, err := deps.Sessions.RouteWindow(c.UserContext(), c.Params("id"), scroll, viewport)
		if err != nil {
			return sessionError(c, err)
		}
		return c.JSON(win)
	}
}

// MeasureRowHandler records the rendered height of a route row.
func MeasureRowHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		index, err := c.ParamsInt("index")
		if err != nil {
			return errBadRequest(c, "index must be an integer")
		}
		var req struct {
			Size float64 `json:"size"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		ok, err := deps.Sessions.MeasureRow(c.UserContext(), c.Params("id"), index, req.Size)
		if err != nil {
			return sessionError(c, err)
		}
		if !ok {
			return errBadRequest(c, "index out of range or size not positive")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ToastsHandler returns the visible toasts.
func ToastsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		toasts, err := deps.Sessions.Toasts(c.UserContext(), c.Params("id"))
		if err != nil {
			return sessionError(c, err)
		}
		return c.JSON(toasts)
	}
}

// DismissToastsHandler dismisses one toast, or all when no toast id is given.
func DismissToastsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		n, err := deps.Sessions.DismissToast(c.UserContext(), c.Params("id"), c.Params("toastId"))
		if err != nil {
			return sessionError(c, err)
		}
		return c.JSON(fiber.Map{"dismissed": n})
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const calendarNotFound = "could not extract calendar"

// CalendarHandler serves the upstream feed for the token in the path with
// cancelled events removed. Any upstream failure is a 404.
func (h Handlers) CalendarHandler(c *fiber.Ctx) error {
	token, err := url.PathUnescape(c.Params("token"))
	if err != nil {
		h.Logger.Debug("CalendarHandler", zap.Error(err))
		return c.Status(fiber.StatusNotFound).SendString(calendarNotFound)
	}

	feed, stats, err := h.Calendar.FilteredCalendar(c.UserContext(), token)
	if err != nil {
		h.reportError(c, "CalendarHandler", err)
		return c.Status(fiber.StatusNotFound).SendString(calendarNotFound)
	}

	h.Logger.Debug("CalendarHandler",
		zap.Int("removed", stats.Removed),
		zap.Int("bytes", len(feed)),
	)

	return c.SendString(feed)
}

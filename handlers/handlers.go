package handlers

import (
	"github.com/getsentry/sentry-go"
	"github.com/gofiber/contrib/fiberzap/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	c "github.com/quesurifn/ics-calendar-relay/calendar"
	"go.uber.org/zap"
)

type Handlers struct {
	Logger   *zap.Logger
	Calendar *c.Calendar
}

// App builds the fiber application with middleware and every route.
func (h Handlers) App(name string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               name,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(fiberzap.New(fiberzap.Config{
		Logger: h.Logger,
	}))

	h.Routes(app)

	return app
}

func (h Handlers) Routes(app *fiber.App) {
	app.Get("/calendar/:token", h.CalendarHandler)

	// original misspelled route
	app.Get("/heatlh", h.HealthHandler)
	app.Get("/health", h.HealthHandler)
}

// reportError logs err and hands it to Sentry. Sentry drops it when no
// client was initialised.
func (h Handlers) reportError(ctx *fiber.Ctx, msg string, err error) {
	reqID := ctx.GetRespHeader(fiber.HeaderXRequestID)

	h.Logger.Error(msg, zap.Error(err), zap.String("requestId", reqID))

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("request_id", reqID)
		scope.SetTag("route", ctx.Route().Path)
		sentry.CaptureException(err)
	})
}

package api

import (
	"github.com/gofiber/fiber/v2"

	customlog "github.com/open-teleop/joyteleop/pkg/log"
	"github.com/open-teleop/joyteleop/pkg/remote"
)

// TeleopHandler serves the read-only teleop views.
type TeleopHandler struct {
	status StatusProvider
	remote RemoteHistory
	logger customlog.Logger
}

// RegisterTeleopRoutes registers the teleop state endpoints. history may be
// nil when remote control is disabled.
func RegisterTeleopRoutes(app *fiber.App, status StatusProvider, history RemoteHistory, logger customlog.Logger) {
	h := &TeleopHandler{status: status, remote: history, logger: logger}

	group := app.Group("/api/v1/teleop")
	group.Get("/state", h.handleGetState)
	group.Get("/remote/responses", h.handleGetRemoteResponses)

	logger.Infof("Registered teleop API endpoints under /api/v1/teleop")
}

func (h *TeleopHandler) handleGetState(c *fiber.Ctx) error {
	return c.JSON(h.status.Status())
}

func (h *TeleopHandler) handleGetRemoteResponses(c *fiber.Ctx) error {
	if h.remote == nil {
		return c.JSON(RemoteResponses{Enabled: false, Entries: []remote.Entry{}})
	}

	entries := h.remote.History().Entries()
	if limit := c.QueryInt("limit", 0); limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return c.JSON(RemoteResponses{
		Enabled: true,
		Entries: entries,
		Metrics: h.remote.Metrics(),
	})
}

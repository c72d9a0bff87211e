package app

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// runWebServer starts the applications web server and listens for web requests.
//  It's designed to run in a separate go function to not block the main go function.
//  e.g.: go runWebServer()
//  See app.Run()
func (app *App) runWebServer() {
	err := app.web.Listen(app.urlParsed.Host)
	debug.ErrorLog.Print(err)
}

// HandleDisplay returns the text currently shown on the display.
// With ?format=text the lines are returned as plain text.
func (app *App) HandleDisplay() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request display")

		lines := app.screen.Lines()
		if ctx.Query("format") == "text" {
			return ctx.SendString(strings.Join(lines, "\n") + "\n")
		}

		return ctx.JSON(fiber.Map{
			"time":    time.Now().Format(time.RFC3339),
			"columns": app.config.Display.Columns,
			"rows":    app.config.Display.Rows,
			"address": app.screen.Address(),
			"lines":   lines,
		})
	}
}

// HandleEvents returns the last decoded records, oldest first.
func (app *App) HandleEvents() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request events")

		return ctx.JSON(app.events.List())
	}
}

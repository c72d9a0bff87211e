package app

import (
	"net/url"
	"sync"

	"lcdsniff/pkg/app/config"
	"lcdsniff/pkg/mqtt"
	"lcdsniff/pkg/pipeline"
	"lcdsniff/pkg/raspberry"
	"lcdsniff/pkg/screen"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// App is the main application struct.
// App is where the application is wired up.
type App struct {
	// web is the fiber web framework instance
	web *fiber.App

	// config is the application configuration
	config *config.Config

	// urlParsed contains the parsed Config.Url parameter
	// and makes it easier to get params out of e.g.
	// url: https://0.0.0.0:7844/?minTls=1.2&bodyLimit=50MB
	urlParsed *url.URL

	// mqtt is the handler to the mqtt broker
	mqtt *mqtt.Handler

	// bus delivers the samples of the captured i2c lines
	bus *raspberry.Bus

	// pipeline decodes the samples, it is only used by the decode goroutine
	pipeline *pipeline.Pipeline

	// screen is the display content rebuilt from the decoded bytes
	screen *screen.Screen

	// events holds the last decoded records
	events *eventLog

	// stats is a copy of the pipeline counters for the web services
	stats struct {
		sync.RWMutex
		data pipeline.Stats
	}

	// done is closed when the decode goroutine has terminated, decoding is set when it was started
	done     chan struct{}
	decoding bool
	// restart signals application restart
	restart chan struct{}
	// shutdown signals application shutdown
	shutdown chan struct{}
}

// New checks the Web server URL and initialize the main app structure
func New(config *config.Config) (*App, error) {
	u, err := url.Parse(config.Webserver.URL)
	if err != nil {
		debug.ErrorLog.Printf("Error parsing url %q: %s", config.Webserver.URL, err.Error())
		return &App{}, err
	}

	// the bus lines are decoded through the port expander
	if err = config.Pipeline().CheckExpander(); err != nil {
		debug.ErrorLog.Printf("Error in decoder settings: %s", err.Error())
		return &App{}, err
	}

	app := &App{
		config:    config,
		urlParsed: u,

		web:    fiber.New(fiber.Config{DisableStartupMessage: true}),
		mqtt:   mqtt.New(),
		screen: screen.New(config.Display.Columns, config.Display.Rows),
		events: newEventLog(config.Display.Events),

		done:     make(chan struct{}),
		restart:  make(chan struct{}),
		shutdown: make(chan struct{}),
	}
	app.pipeline = pipeline.New(config.Pipeline(), &sink{app: app})

	return app, nil
}

// Run starts the application.
func (app *App) Run() error {
	if err := app.init(); err != nil {
		return err
	}

	go app.mqtt.Service()
	go app.runWebServer()
	app.decoding = true
	go app.decode(app.bus.C)

	return nil
}

// init initializes the application.
func (app *App) init() (err error) {
	g := app.config.Gpio
	if app.bus, err = raspberry.Open(g.Driver, g.Chip, g.SCL, g.SDA, g.Terminator); err != nil {
		debug.ErrorLog.Printf("can't open i2c lines scl=%v sda=%v: %v", g.SCL, g.SDA, err)
		return err
	}

	if err = app.mqtt.Connect(app.config.MQTT.Connection); err != nil {
		debug.ErrorLog.Printf("can't open mqtt broker %v", err)
		return err
	}

	// initRoutes and initDefaultRoutes should be always called last because it may access things like app.api
	// which must be initialized before in initAPI()
	app.initDefaultRoutes()

	return nil
}

// Restart returns the read only restart channel.
// Restart is used to be able to react on application restart. (see cmd/main.go)
func (app *App) Restart() <-chan struct{} {
	return app.restart
}

// Shutdown returns the read only shutdown channel.
// Shutdown is used to be able to react on application shutdown. (see cmd/main.go)
func (app *App) Shutdown() <-chan struct{} {
	return app.shutdown
}

func (app *App) Close() error {
	if app.bus != nil {
		_ = app.bus.Close()
		if app.decoding {
			<-app.done
		}
	}

	if app.mqtt != nil {
		_ = app.mqtt.Close()
	}

	if app.web != nil {
		_ = app.web.Shutdown()
	}
	return nil
}

package main

import (
	"os"
	"os/signal"
	"sort"
	"syscall"

	"lcdsniff/pkg/app"
	"lcdsniff/pkg/app/config"

	"github.com/urfave/cli/v2"
	"github.com/womat/debug"
)

const defaultConfigFile = "/opt/womat/config/" + app.MODULE + ".yaml"

func main() {
	exitCode := 1
	defer func() {
		os.Exit(exitCode)
	}()

	// cfg holds the application configuration
	cfg := config.NewConfig()

	cliApp := &cli.App{
		Name:    app.MODULE,
		Usage:   "I2C LCD backpack sniffer",
		Version: app.VERSION,
		Description: "Decode the text and commands written to an HD44780 character display" +
			"\n driven by a PCF8574 I2C port expander (LCD backpack)." +
			"\n The I2C bus is decoded from samples of the SCL and SDA lines, either from a" +
			"\n capture file (decode) or live from two gpio lines (serve).",
		UsageText: "lcdsniff [--config <file>] [--log standard|debug|trace] command [options]" +
			"\n\nEXAMPLE:" +
			"\n\tdecode a capture of the bus lines and print the text written to the display" +
			"\n\t\tlcdsniff decode --input capture.csv" +
			"\n\twatch the bus and publish the display content, use the configuration file lcdsniff.yaml" +
			"\n\t\tlcdsniff --config /opt/womat/lcdsniff.yaml serve",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Destination: &cfg.Flag.ConfigFile, Value: defaultConfigFile, Usage: "load configuration from `FILE`"},
			&cli.StringFlag{Name: "log", Aliases: []string{"l"}, Destination: &cfg.Flag.Debug, Usage: "`LEVEL` defines the log level (standard|debug|trace)"},
		},
		Commands: []*cli.Command{
			{
				Name:   "decode",
				Usage:  "decode a capture of the SCL and SDA lines (csv: index,scl,sda)",
				Flags:  append(decoderFlags(), outputFlags()...),
				Action: decodeAction(cfg),
			},
			{
				Name:   "extract",
				Usage:  "extract the text from an i2c analyzer export (timing-unsafe shortcut)",
				Flags:  []cli.Flag{inputFlag()},
				Action: extractAction(cfg),
			},
			{
				Name:   "generate",
				Usage:  "generate a capture of a backpack writing a text",
				Flags:  generateFlags(),
				Action: generateAction(cfg),
			},
			{
				Name:   "serve",
				Usage:  "decode the bus live from gpio lines, publish to mqtt and serve the web api",
				Action: serveAction(cfg),
			},
		},
	}

	// we expect to have more command line flags in the future - sort them
	sort.Sort(cli.FlagsByName(cliApp.Flags))
	sort.Sort(cli.CommandsByName(cliApp.Commands))

	err := cliApp.Run(os.Args)
	if err != nil {
		debug.FatalLog.Print(err)
		exitCode = 1
		return
	}

	exitCode = 0
	return
}

// setup loads the configuration and starts logging. The returned function closes the log file.
func setup(cfg *config.Config, optional bool) (func(), error) {
	if err := cfg.LoadConfig(optional); err != nil {
		return func() {}, err
	}

	debug.SetDebug(cfg.Debug.File, cfg.Debug.Flag)
	return func() {
		debug.InfoLog.Printf("closing debug file %s", cfg.Debug.FileString)
		_ = cfg.Debug.File.Close()
	}, nil
}

func serveAction(cfg *config.Config) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		closeLog, err := setup(cfg, false)
		defer closeLog()
		if err != nil {
			return err
		}

		a, err := app.New(cfg)
		defer func() {
			debug.InfoLog.Printf("closing app %s", app.Version())
			_ = a.Close()
		}()

		if err != nil {
			return err
		}

		debug.InfoLog.Printf("starting app %s", app.Version())
		if err = a.Run(); err != nil {
			return err
		}

		// capture exit signals to ensure resources are released on exit.
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		// wait for am os.Interrupt signal (CTRL C)
		sig := <-quit
		debug.InfoLog.Printf("Got %s signal. Aborting...", sig)

		return nil
	}
}

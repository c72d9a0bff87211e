package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"lcdsniff/pkg/app/config"
	"lcdsniff/pkg/capture"
	"lcdsniff/pkg/extract"
	"lcdsniff/pkg/hd44780"
	"lcdsniff/pkg/i2c"
	"lcdsniff/pkg/pcf8574"
	"lcdsniff/pkg/pipeline"

	"github.com/urfave/cli/v2"
	"github.com/womat/debug"
)

func inputFlag() cli.Flag {
	return &cli.StringFlag{Name: "input", Aliases: []string{"i"}, Value: "-", Usage: "read the capture from `FILE` (- is stdin)"}
}

func decoderFlags() []cli.Flag {
	return []cli.Flag{
		inputFlag(),
		&cli.IntFlag{Name: "address", Aliases: []string{"a"}, Usage: "unshifted i2c `ADDRESS` of the port expander (default 0x27)"},
		&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Usage: "lcd bus `MODE` (4bit|8bit), 8bit needs --logic"},
		&cli.BoolFlag{Name: "logic", Usage: "the capture holds the lcd lines (csv: index,rs,rw,e,data lines) instead of SCL and SDA"},
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "binary", Aliases: []string{"b"}, Usage: "write the decoded command and data bytes to `FILE`"},
		&cli.BoolFlag{Name: "annotations", Usage: "print the annotations of all layers instead of the text"},
		&cli.BoolFlag{Name: "records", Usage: "print the decoded records as json lines instead of the text"},
	}
}

func generateFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "text", Aliases: []string{"t"}, Required: true, Usage: "`TEXT` written to the display, \\n starts the second line"},
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "-", Usage: "write the capture to `FILE` (- is stdout)"},
		&cli.IntFlag{Name: "address", Aliases: []string{"a"}, Value: pcf8574.DefaultAddress, Usage: "unshifted i2c `ADDRESS` of the port expander"},
		&cli.BoolFlag{Name: "backlight", Value: true, Usage: "keep the backlight pin high"},
	}
}

func openInput(name string) (io.ReadCloser, error) {
	if name == "-" || name == "" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(name)
}

func decodeAction(cfg *config.Config) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		closeLog, err := setup(cfg, true)
		defer closeLog()
		if err != nil {
			return err
		}

		if ctx.IsSet("address") {
			cfg.Address = ctx.Int("address")
		}
		if ctx.IsSet("mode") {
			cfg.Mode = ctx.String("mode")
		}
		if err = cfg.Validate(); err != nil {
			return err
		}
		logic := ctx.Bool("logic")
		if !logic {
			if err = cfg.Pipeline().CheckExpander(); err != nil {
				return err
			}
		}

		in, err := openInput(ctx.String("input"))
		if err != nil {
			return err
		}
		defer func() { _ = in.Close() }()

		var binary io.Writer
		if name := ctx.String("binary"); name != "" {
			f, err := os.Create(name)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			w := bufio.NewWriter(f)
			defer func() { _ = w.Flush() }()
			binary = w
		}

		stdout := bufio.NewWriter(os.Stdout)
		defer func() { _ = stdout.Flush() }()

		var text, annotations, records io.Writer
		switch {
		case ctx.Bool("annotations"):
			annotations = stdout
		case ctx.Bool("records"):
			records = stdout
		default:
			text = stdout
		}

		sink := pipeline.NewWriterSink(text, annotations, binary, records)
		p := pipeline.New(cfg.Pipeline(), sink)

		if logic {
			debug.InfoLog.Printf("decoding lcd lines, %s", cfg.BusMode)
			err = capture.ReadLogic(in, p.FeedLogic)
		} else {
			debug.InfoLog.Printf("decoding device 0x%02x, lcd %s", cfg.Address, cfg.BusMode)
			err = capture.ReadSamples(in, p.FeedSample)
		}
		if err != nil {
			return fmt.Errorf("reading capture: %w", err)
		}

		debug.InfoLog.Printf("decoded %+v", p.Stats())
		if text != nil {
			_, _ = fmt.Fprintln(text)
		}
		if err = p.Err(); err != nil {
			return err
		}
		return sink.Err()
	}
}

func extractAction(cfg *config.Config) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		closeLog, err := setup(cfg, true)
		defer closeLog()
		if err != nil {
			return err
		}

		in, err := openInput(ctx.String("input"))
		if err != nil {
			return err
		}
		defer func() { _ = in.Close() }()

		values, err := capture.ReadTable(in)
		if err != nil {
			return fmt.Errorf("reading export: %w", err)
		}

		debug.InfoLog.Print("extracting text without address, acknowledge and enable edge checks")
		debug.DebugLog.Printf("data strobes: % x", extract.Strobes(values))

		_, err = fmt.Printf("%s\n", extract.Shortcut(values))
		return err
	}
}

// generateAction writes a capture of a backpack driver clearing the display
// and writing the text, each port byte in its own i2c write transfer.
func generateAction(cfg *config.Config) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		closeLog, err := setup(cfg, true)
		defer closeLog()
		if err != nil {
			return err
		}

		address := byte(ctx.Int("address"))
		bp := pcf8574.Backpack{Backlight: ctx.Bool("backlight")}

		var port []byte
		port = append(port, bp.Command(byte(hd44780.ClearDisplay))...)
		for i, line := range strings.Split(ctx.String("text"), `\n`) {
			if i > 0 {
				port = append(port, bp.Command(byte(hd44780.SetDDRAMAddress)|0x40)...)
			}
			port = append(port, bp.Text(line)...)
		}

		g := i2c.NewGenerator()
		for _, b := range port {
			g.Write(address, b)
		}

		var out io.Writer = os.Stdout
		if name := ctx.String("output"); name != "-" && name != "" {
			f, err := os.Create(name)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			out = f
		}

		debug.InfoLog.Printf("writing %d samples of %d port writes", len(g.Samples()), len(port))
		return capture.WriteSamples(out, g.Samples())
	}
}

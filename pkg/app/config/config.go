package config

import (
	"fmt"
	"io"
	"os"

	"github.com/womat/debug"
	"gopkg.in/yaml.v2"
	"lcdsniff/pkg/hd44780"
	"lcdsniff/pkg/pcf8574"
	"lcdsniff/pkg/pipeline"
)

// Config holds the application configuration.
// Config defines the struct of global config and the struct of the configuration file
type Config struct {
	// Address is the unshifted I2C address of the port expander.
	Address   int             `yaml:"address"`
	Mode      string          `yaml:"mode"`
	BusMode   hd44780.BusMode `yaml:"-"`
	Display   DisplayConfig   `yaml:"display"`
	Gpio      GpioConfig      `yaml:"gpio"`
	Flag      FlagConfig      `yaml:"-"`
	Debug     DebugConfig     `yaml:"debug"`
	Webserver WebserverConfig `yaml:"webserver"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
}

// FlagConfig defines the configured flags (parameters)
type FlagConfig struct {
	Debug      string
	ConfigFile string
}

// DisplayConfig defines the geometry of the display.
type DisplayConfig struct {
	Columns int `yaml:"columns"`
	Rows    int `yaml:"rows"`
	// Events is the number of decoded records kept for the web service.
	Events int `yaml:"events"`
}

// GpioConfig defines the lines the bus is captured from.
type GpioConfig struct {
	Chip string `yaml:"chip"`
	// Driver is gpiod (character device) or gpiomem.
	Driver     string `yaml:"driver"`
	SCL        int    `yaml:"scl"`
	SDA        int    `yaml:"sda"`
	Terminator string `yaml:"terminator"`
}

// WebserverConfig defines the struct of the webserver and webservice configuration and configuration file
type WebserverConfig struct {
	URL         string          `yaml:"url"`
	Webservices map[string]bool `yaml:"webservices"`
}

// MQTTConfig defines the struct of the mqtt client configuration and configuration file
type MQTTConfig struct {
	Connection string `yaml:"connection"`
	// Topic receives the display text on each change.
	Topic string `yaml:"topic"`
	// EventTopic receives each decoded record, empty disables it.
	EventTopic string `yaml:"eventtopic"`
}

// DebugConfig defines the struct of the debug configuration and configuration file
type DebugConfig struct {
	File       io.WriteCloser `yaml:"-"`
	Flag       int            `yaml:"-"`
	FlagString string         `yaml:"flag"`
	FileString string         `yaml:"file"`
}

func NewConfig() *Config {
	return &Config{
		Address: pcf8574.DefaultAddress,
		Mode:    hd44780.Bus4Bit.String(),
		Display: DisplayConfig{
			Columns: 16,
			Rows:    2,
			Events:  256,
		},
		Gpio: GpioConfig{
			Chip:       "gpiochip0",
			Driver:     "gpiod",
			SCL:        3,
			SDA:        2,
			Terminator: "pullup",
		},
		Flag: FlagConfig{},
		Debug: DebugConfig{
			FileString: "stderr",
			FlagString: "standard",
		},
		Webserver: WebserverConfig{
			URL: "http://0.0.0.0:4000",
			Webservices: map[string]bool{
				"version": true,
				"health":  true,
				"display": true,
				"events":  true,
			},
		},
		MQTT: MQTTConfig{
			Connection: "tcp://127.0.0.1:1883",
			Topic:      "lcdsniff/display",
		},
	}
}

// LoadConfig reads the configuration file and derives the computed fields.
// If optional is set, a missing configuration file keeps the defaults.
func (c *Config) LoadConfig(optional bool) error {
	if err := c.readConfigFile(); err != nil {
		if !(optional && os.IsNotExist(err)) {
			return fmt.Errorf("error reading config file %q: %w", c.Flag.ConfigFile, err)
		}
	}

	if c.Flag.Debug != "" {
		c.Debug.FlagString = c.Flag.Debug
	}
	if err := c.setDebugConfig(); err != nil {
		return fmt.Errorf("unable to open debug file %q: %w", c.Debug.FileString, err)
	}

	return c.Validate()
}

// Validate checks the decoder settings and sets BusMode.
func (c *Config) Validate() (err error) {
	if c.Address < 0 || c.Address > 0x7f {
		return fmt.Errorf("invalid i2c address 0x%x", c.Address)
	}
	if c.BusMode, err = hd44780.ParseBusMode(c.Mode); err != nil {
		return err
	}
	if c.Display.Columns <= 0 || c.Display.Rows <= 0 || c.Display.Rows > 4 {
		return fmt.Errorf("invalid display geometry %dx%d", c.Display.Columns, c.Display.Rows)
	}
	return nil
}

// Pipeline returns the decoder settings.
func (c *Config) Pipeline() pipeline.Config {
	return pipeline.Config{Address: byte(c.Address), Mode: c.BusMode}
}

func (c *Config) readConfigFile() error {
	if c.Flag.ConfigFile == "" {
		return os.ErrNotExist
	}

	file, err := os.Open(c.Flag.ConfigFile)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	decoder := yaml.NewDecoder(file)
	if err = decoder.Decode(c); err != nil && err != io.EOF {
		return err
	}

	return nil
}

func (c *Config) setDebugConfig() (err error) {
	// defines Debug section of global.Config
	switch c.Debug.FlagString {
	case "trace", "full":
		c.Debug.Flag = debug.Full
	case "debug":
		c.Debug.Flag = debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug
	case "standard":
		c.Debug.Flag = debug.Standard
	}

	switch c.Debug.FileString {
	case "stderr":
		c.Debug.File = os.Stderr
	case "stdout":
		c.Debug.File = os.Stdout
	default:
		if c.Debug.File, err = os.OpenFile(c.Debug.FileString, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666); err != nil {
			return
		}
	}

	return
}

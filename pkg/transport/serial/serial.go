// Package serial opens the serial port connected to the board.
package serial

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/golang/glog"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// ErrNoPort indicates no USB serial port is found.
var ErrNoPort = errors.New("no USB serial port found")

// Config defines serial port options.
type Config struct {
	// Port is the port name, detected when empty.
	Port        string
	BaudRate    int
	ReadTimeout time.Duration
}

var defaultConfig = Config{
	BaudRate:    115200,
	ReadTimeout: 100 * time.Millisecond,
}

func init() {
	if val := os.Getenv("BITBOARD_PORT"); val != "" {
		defaultConfig.Port = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Serial port, auto-detected if empty.")
	flag.IntVar(&defaultConfig.BaudRate, "baud", defaultConfig.BaudRate, "Serial baud rate.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// ConfigFromURL parses serial:///dev/ttyUSB0?baud=115200.
// Options absent from the URL keep the defaults.
func ConfigFromURL(rawURL string) (*Config, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "serial" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	conf := NewConfig()
	if name := u.Host + u.Path; name != "" {
		conf.Port = name
	}
	if val := u.Query().Get("baud"); val != "" {
		if conf.BaudRate, err = strconv.Atoi(val); err != nil {
			return nil, fmt.Errorf("invalid baud rate %q", val)
		}
	}
	return conf, nil
}

// DetectPort finds the first USB serial port.
func DetectPort() (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", err
	}
	for _, port := range ports {
		if port.IsUSB {
			glog.V(1).Infof("%s: USB %s:%s %s", port.Name, port.VID, port.PID, port.SerialNumber)
			return port.Name, nil
		}
	}
	return "", ErrNoPort
}

// Open opens the port.
func (c *Config) Open() (serial.Port, error) {
	name := c.Port
	if name == "" {
		var err error
		if name, err = DetectPort(); err != nil {
			return nil, err
		}
	}
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: c.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %v", name, err)
	}
	if c.ReadTimeout > 0 {
		if err = port.SetReadTimeout(c.ReadTimeout); err != nil {
			port.Close()
			return nil, err
		}
	}
	glog.Infof("%s: opened at %d baud", name, c.BaudRate)
	return port, nil
}

package bridge

import (
	"flag"
	"io"
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"

	"github.com/robotalks/bitboard.go/pkg/transport/mqtt"
)

// Config defines the options of a Bridge.
type Config struct {
	// ID identifies the bridge on the broker.
	ID string
	// MQTTBrokerURL specifies the MQTT broker to use.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	// ListenAddr is the websocket listen address, disabled if empty.
	ListenAddr string
	// Trace logs packets received from the device.
	Trace    bool
	Checksum bool
}

var defaultConfig = Config{
	MQTTBrokerURL: "mqtt://localhost:1883/bitboard/",
}

func init() {
	if val := os.Getenv("BITBOARD_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	defaultConfig.ID = DefaultID()
}

// DefaultID derives the bridge id from the machine id.
func DefaultID() string {
	id, err := machineid.ProtectedID("bitboard")
	if err != nil {
		host, _ := os.Hostname()
		return host
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Bridge ID")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL, empty to disable")
	flag.StringVar(&defaultConfig.ListenAddr, "listen", defaultConfig.ListenAddr, "Websocket listen address, empty to disable")
	flag.BoolVar(&defaultConfig.Trace, "trace", defaultConfig.Trace, "Log packets from the device")
	flag.BoolVar(&defaultConfig.Checksum, "checksum", defaultConfig.Checksum, "Device frames carry checksum (for -trace)")
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

// NewBridge creates a Bridge on device using the config.
func (c *Config) NewBridge(device io.ReadWriter, meta mqtt.BridgeMeta) (*Bridge, error) {
	b := New(device, c.ID)
	b.Meta = meta
	b.Trace = c.Trace
	b.tracer.Checksum = c.Checksum
	if c.MQTTBrokerURL != "" {
		opts, prefix, err := mqtt.ClientOptionsFromURL(c.MQTTBrokerURL)
		if err != nil {
			return nil, err
		}
		opts.SetBinaryWill(prefix+c.ID+"/"+mqtt.TopicMeta, nil, 1, true)
		if opts.ClientID == "" {
			opts.SetClientID("bitboard:" + c.ID)
		}
		b.PubSub = mqtt.NewPubSub(opts, prefix)
		glog.Infof("bridge %s on %s", c.ID, c.MQTTBrokerURL)
	}
	return b, nil
}

package session

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang/glog"
)

// MaxChunkSize is the largest data size of a single WriteMem packet.
const MaxChunkSize = 256

// Address is a 16-bit emulator address, usable as a flag.
type Address uint16

// String implements flag.Value.
func (a *Address) String() string {
	return fmt.Sprintf("0x%04x", uint16(*a))
}

// Set implements flag.Value.
func (a *Address) Set(s string) error {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return err
	}
	*a = Address(v)
	return nil
}

// Config defines the options of a Session.
type Config struct {
	WriteAddress    Address
	ChunkSize       int
	SkipZeroChunks  bool
	PollInterval    time.Duration
	ResponseTimeout time.Duration
}

var defaultConfig = Config{
	WriteAddress:    0x8000,
	ChunkSize:       MaxChunkSize,
	SkipZeroChunks:  true,
	PollInterval:    time.Second,
	ResponseTimeout: time.Second,
}

func init() {
	if val := os.Getenv("BITBOARD_WRITE_ADDRESS"); val != "" {
		if err := defaultConfig.WriteAddress.Set(val); err != nil {
			glog.Warningf("invalid BITBOARD_WRITE_ADDRESS %q: %v", val, err)
		}
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.Var(&defaultConfig.WriteAddress, "address", "Default memory write address.")
	flag.IntVar(&defaultConfig.ChunkSize, "chunk", defaultConfig.ChunkSize, "Data size per memory write packet.")
	flag.BoolVar(&defaultConfig.SkipZeroChunks, "skip-zero", defaultConfig.SkipZeroChunks, "Don't send chunks which are all zeros.")
	flag.DurationVar(&defaultConfig.PollInterval, "poll-interval", defaultConfig.PollInterval, "Instruction counter polling interval.")
	flag.DurationVar(&defaultConfig.ResponseTimeout, "timeout", defaultConfig.ResponseTimeout, "Response timeout.")
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

// Validate checks the config.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 || c.ChunkSize > MaxChunkSize {
		return fmt.Errorf("chunk size must be in 1..%d", MaxChunkSize)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("invalid poll interval %v", c.PollInterval)
	}
	return nil
}

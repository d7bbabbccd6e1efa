// Package transport opens byte streams to the board by URL.
package transport

import (
	"io"
	"strings"

	"github.com/robotalks/bitboard.go/pkg/transport/mqtt"
	"github.com/robotalks/bitboard.go/pkg/transport/serial"
	"github.com/robotalks/bitboard.go/pkg/transport/websocket"
)

// Open opens a transport. Supported forms:
//
//	serial:///dev/ttyUSB0?baud=115200
//	mqtt://host:1883/prefix/?id=BRIDGE-ID
//	ws://host:port/path
//
// Anything else is taken as a serial port name, empty for auto-detection.
func Open(rawURL string) (io.ReadWriteCloser, error) {
	switch scheme(rawURL) {
	case "mqtt", "mqtts", "tcp", "ssl":
		stream, err := mqtt.Dial(rawURL)
		if err != nil {
			return nil, err
		}
		return stream, nil
	case "ws", "wss":
		conn, err := websocket.Dial(rawURL)
		if err != nil {
			return nil, err
		}
		return conn, nil
	case "serial":
		conf, err := serial.ConfigFromURL(rawURL)
		if err != nil {
			return nil, err
		}
		return conf.Open()
	}
	conf := serial.NewConfig()
	if rawURL != "" {
		conf.Port = rawURL
	}
	return conf.Open()
}

func scheme(rawURL string) string {
	if pos := strings.Index(rawURL, "://"); pos > 0 {
		return strings.ToLower(rawURL[:pos])
	}
	return ""
}

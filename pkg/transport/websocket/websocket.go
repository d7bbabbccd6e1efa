// Package websocket carries raw link bytes in websocket binary frames.
package websocket

import (
	"net/url"

	"golang.org/x/net/websocket"
)

// Dial connects a bridge websocket endpoint.
func Dial(rawURL string) (*websocket.Conn, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	origin := &url.URL{Scheme: "http", Host: u.Host}
	if u.Scheme == "wss" {
		origin.Scheme = "https"
	}
	conf, err := websocket.NewConfig(rawURL, origin.String())
	if err != nil {
		return nil, err
	}
	conn, err := websocket.DialConfig(conf)
	if err != nil {
		return nil, err
	}
	conn.PayloadType = websocket.BinaryFrame
	return conn, nil
}

// Handler creates a websocket.Handler serving each connection with fn.
// The connection is closed when fn returns.
func Handler(fn func(*websocket.Conn)) websocket.Handler {
	return func(conn *websocket.Conn) {
		conn.PayloadType = websocket.BinaryFrame
		defer conn.Close()
		fn(conn)
	}
}

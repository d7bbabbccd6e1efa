package websocket

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func TestEcho(t *testing.T) {
	srv := httptest.NewServer(Handler(func(conn *websocket.Conn) {
		io.Copy(conn, conn)
	}))
	defer srv.Close()

	conn, err := Dial("ws" + strings.TrimPrefix(srv.URL, "http"))
	require.NoError(t, err)
	defer conn.Close()

	payload := []byte{0x02, 0xc0, 0xdb, 0x00}
	n, err := conn.Write(payload)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	buf := make([]byte, 16)
	n, err = io.ReadAtLeast(conn, buf, len(payload))
	require.NoError(t, err)
	require.Equal(t, payload, buf[:n])
}

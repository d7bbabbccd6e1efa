package transport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScheme(t *testing.T) {
	require.Equal(t, "mqtt", scheme("mqtt://localhost:1883/bitboard/?id=x"))
	require.Equal(t, "ws", scheme("WS://localhost/link"))
	require.Equal(t, "serial", scheme("serial:///dev/ttyUSB0"))
	require.Equal(t, "", scheme("/dev/ttyUSB0"))
	require.Equal(t, "", scheme("COM3"))
}

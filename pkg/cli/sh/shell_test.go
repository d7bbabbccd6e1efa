package sh

import (
	"testing"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/stretchr/testify/require"
)

func TestDisplayName(t *testing.T) {
	require.Equal(t, "auto", displayName(""))
	require.Equal(t, "/dev/ttyUSB0", displayName("/dev/ttyUSB0"))
	require.Equal(t, "/dev/ttyACM0?baud=9600", displayName("serial:///dev/ttyACM0?baud=9600"))
	require.Equal(t, "broker:1883/bitboard/?id=a1", displayName("mqtt://broker:1883/bitboard/?id=a1"))
}

func TestTimestamp(t *testing.T) {
	at := time.Date(2020, 1, 2, 13, 4, 5, 67e6, time.UTC)
	require.Equal(t, "13:04:05.067", Timestamp(at))
}

func TestAddCmds(t *testing.T) {
	saved := commands
	defer func() { commands = saved }()
	cmd := &ishell.Cmd{Name: "noop"}
	AddCmds(cmd)
	require.Len(t, commands, len(saved)+1)
	require.Equal(t, cmd, commands[len(commands)-1])
}

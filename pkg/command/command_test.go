package command

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDs(t *testing.T) {
	ids := []ID{None, Error, Ping, Pong, Log, WriteMem, StartEmu, StopEmu, StepEmu, GetInstCount}
	for n, id := range ids {
		require.Equal(t, ID(n), id)
		require.True(t, id.Known())
	}
	require.False(t, ID(10).Known())
	require.False(t, ID(200).Known())
	require.Equal(t, "write-mem", WriteMem.String())
	require.Equal(t, "unknown(200)", ID(200).String())
}

func TestEncodeDecode(t *testing.T) {
	testCases := []struct {
		name   string
		msg    Message
		expect []byte
	}{
		{"ping", Message{ID: Ping}, []byte{2}},
		{"log", Message{ID: Log, Body: []byte("hi\n")}, []byte{4, 'h', 'i', '\n'}},
		{"write mem", Message{ID: WriteMem, Body: WriteMemBody(0x8000, []byte{0xa9, 0x01})}, []byte{5, 0x00, 0x80, 0xa9, 0x01}},
		{"inst count", Message{ID: GetInstCount, Body: InstCountBody(0x01020304)}, []byte{9, 4, 3, 2, 1}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pkt := tc.msg.Bytes()
			require.Equal(t, tc.expect, pkt)
			msg, err := Decode(pkt)
			require.NoError(t, err)
			require.Equal(t, tc.msg.ID, msg.ID)
			require.Equal(t, len(tc.msg.Body), len(msg.Body))
			if len(tc.msg.Body) > 0 {
				require.Equal(t, tc.msg.Body, msg.Body)
			}
		})
	}
}

func TestDecodeEmpty(t *testing.T) {
	_, err := Decode(nil)
	require.Equal(t, ErrEmptyPacket, err)
	_, err = Decode([]byte{})
	require.Equal(t, ErrEmptyPacket, err)
}

func TestDecodeUnknown(t *testing.T) {
	msg, err := Decode([]byte{200, 1})
	require.NoError(t, err)
	require.Equal(t, ID(200), msg.ID)
	require.False(t, msg.ID.Known())
}

func TestBodies(t *testing.T) {
	addr, data, err := ParseWriteMem(WriteMemBody(0x1234, []byte{1, 2, 3}))
	require.NoError(t, err)
	require.Equal(t, uint16(0x1234), addr)
	require.Equal(t, []byte{1, 2, 3}, data)

	_, _, err = ParseWriteMem([]byte{1})
	require.Equal(t, ErrShortBody, err)

	n, err := ParseInstCount(InstCountBody(0xfffffffe))
	require.NoError(t, err)
	require.Equal(t, uint32(0xfffffffe), n)

	_, err = ParseInstCount([]byte{1, 2, 3})
	require.Equal(t, ErrShortBody, err)

	require.Equal(t, "boot", Message{ID: Log, Body: []byte("boot")}.Text())
}

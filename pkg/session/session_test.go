package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/bitboard.go/pkg/command"
	"github.com/robotalks/bitboard.go/pkg/slip"
)

// fakeDevice replies like the firmware: Pong after every command,
// and the counter before Pong for GetInstCount.
type fakeDevice struct {
	queue   *slip.Queue
	silent  bool
	errOn   command.ID
	sendErr error
	count   uint32
	sent    []command.Message
	lock    sync.Mutex
}

func (d *fakeDevice) WritePacket(p []byte) error {
	if d.sendErr != nil {
		return d.sendErr
	}
	msg, err := command.Decode(p)
	if err != nil {
		return err
	}
	d.lock.Lock()
	d.sent = append(d.sent, msg)
	count := d.count
	d.count += 1000
	d.lock.Unlock()
	if d.silent {
		return nil
	}
	if msg.ID == d.errOn {
		d.queue.Push(command.Encode(command.Error, []byte("bad command")))
		return nil
	}
	if msg.ID == command.GetInstCount {
		d.queue.Push(command.Encode(command.GetInstCount, command.InstCountBody(count)))
	}
	d.queue.Push(command.Encode(command.Pong, nil))
	return nil
}

func (d *fakeDevice) messages() []command.Message {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]command.Message(nil), d.sent...)
}

type sessionTestEnv struct {
	device  *fakeDevice
	session *Session
	cancel  func()
}

func newSessionTestEnv(t *testing.T, conf *Config) *sessionTestEnv {
	q := slip.NewQueue()
	env := &sessionTestEnv{device: &fakeDevice{queue: q}}
	env.session = New(env.device, q, conf)
	var ctx context.Context
	ctx, env.cancel = context.WithCancel(context.Background())
	go env.session.Run(ctx)
	return env
}

func testConfig() *Config {
	conf := NewConfig()
	conf.ResponseTimeout = 500 * time.Millisecond
	return conf
}

func TestRequests(t *testing.T) {
	env := newSessionTestEnv(t, testConfig())
	defer env.cancel()
	ctx := context.Background()

	require.NoError(t, env.session.Ping(ctx))
	require.NoError(t, env.session.Start(ctx))
	require.NoError(t, env.session.Step(ctx))
	require.NoError(t, env.session.Stop(ctx))

	ids := make([]command.ID, 0, 4)
	for _, msg := range env.device.messages() {
		ids = append(ids, msg.ID)
		require.Empty(t, msg.Body)
	}
	require.Equal(t, []command.ID{command.Ping, command.StartEmu, command.StepEmu, command.StopEmu}, ids)
}

func TestInstructionCount(t *testing.T) {
	env := newSessionTestEnv(t, testConfig())
	defer env.cancel()
	env.device.count = 0x12345678
	n, err := env.session.InstructionCount(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint32(0x12345678), n)
}

func TestRemoteError(t *testing.T) {
	env := newSessionTestEnv(t, testConfig())
	defer env.cancel()
	env.device.errOn = command.StartEmu
	err := env.session.Start(context.Background())
	require.Error(t, err)
	remote, ok := err.(*RemoteError)
	require.True(t, ok)
	require.Equal(t, command.StartEmu, remote.Command)
	require.Equal(t, "bad command", remote.Message)
	require.Equal(t, "start failed: bad command", err.Error())
}

func TestRequestTimeout(t *testing.T) {
	conf := testConfig()
	conf.ResponseTimeout = 20 * time.Millisecond
	env := newSessionTestEnv(t, conf)
	defer env.cancel()
	env.device.silent = true
	require.Equal(t, ErrTimeout, env.session.Ping(context.Background()))
	env.session.waitersLock.Lock()
	require.Empty(t, env.session.waiters)
	env.session.waitersLock.Unlock()
}

func TestRequestSendError(t *testing.T) {
	env := newSessionTestEnv(t, testConfig())
	defer env.cancel()
	sendErr := errors.New("link down")
	env.device.sendErr = sendErr
	require.Equal(t, sendErr, env.session.Ping(context.Background()))
}

func TestDispatch(t *testing.T) {
	env := newSessionTestEnv(t, testConfig())
	defer env.cancel()
	logCh := make(chan string, 2)
	env.session.HandleFunc(command.Log, func(ctx context.Context, msg command.Message) {
		logCh <- msg.Text()
	})

	q := env.session.Queue
	q.Push(slip.Packet{200, 1, 2, 3})
	q.Push(slip.Packet{})
	q.Push(command.Encode(command.None, nil))
	q.Push(command.Encode(command.Log, []byte("hello\n")))
	select {
	case text := <-logCh:
		require.Equal(t, "hello\n", text)
	case <-time.After(time.Second):
		t.Fatal("log not dispatched")
	}

	// still functional after bad packets.
	require.NoError(t, env.session.Ping(context.Background()))

	env.session.Handle(command.Log, nil)
	q.Push(command.Encode(command.Log, []byte("dropped")))
	require.NoError(t, env.session.Ping(context.Background()))
	require.Empty(t, logCh)
}

func TestWriteMemoryChunks(t *testing.T) {
	conf := testConfig()
	conf.SkipZeroChunks = false
	env := newSessionTestEnv(t, conf)
	defer env.cancel()

	data := make([]byte, 1024)
	for i := range data {
		data[i] = byte(i)
	}
	stats, err := env.session.WriteMemory(0x8000, data)
	require.NoError(t, err)
	require.Equal(t, WriteStats{Chunks: 4, Bytes: 1024}, stats)

	msgs := env.device.messages()
	require.Len(t, msgs, 4)
	for n, msg := range msgs {
		require.Equal(t, command.WriteMem, msg.ID)
		addr, chunk, err := command.ParseWriteMem(msg.Body)
		require.NoError(t, err)
		require.Equal(t, uint16(0x8000+n*256), addr)
		require.Equal(t, data[n*256:(n+1)*256], chunk)
	}
}

func TestWriteMemoryZeroSkip(t *testing.T) {
	conf := testConfig()
	conf.SkipZeroChunks = true
	env := newSessionTestEnv(t, conf)
	defer env.cancel()

	data := make([]byte, 512+10)
	data[511] = 0x01
	data[512+9] = 0xea
	stats, err := env.session.WriteMemory(0x0200, data)
	require.NoError(t, err)
	require.Equal(t, WriteStats{Chunks: 2, Skipped: 1, Bytes: 266}, stats)

	msgs := env.device.messages()
	require.Len(t, msgs, 2)
	addr, chunk, err := command.ParseWriteMem(msgs[0].Body)
	require.NoError(t, err)
	require.Equal(t, uint16(0x0300), addr)
	require.Len(t, chunk, 256)
	require.Equal(t, byte(0x01), chunk[255])
	addr, chunk, err = command.ParseWriteMem(msgs[1].Body)
	require.NoError(t, err)
	require.Equal(t, uint16(0x0400), addr)
	require.Len(t, chunk, 10)
}

func TestWriteMemoryOverflow(t *testing.T) {
	env := newSessionTestEnv(t, testConfig())
	defer env.cancel()
	_, err := env.session.WriteMemory(0xff00, make([]byte, 0x101))
	require.Equal(t, ErrAddressOverflow, err)
	stats, err := env.session.WriteMemory(0xff00, make([]byte, 0x100))
	require.NoError(t, err)
	require.Equal(t, 1, stats.Skipped)
	require.Empty(t, env.device.messages())
}

func TestPoll(t *testing.T) {
	conf := testConfig()
	conf.PollInterval = 10 * time.Millisecond
	env := newSessionTestEnv(t, conf)
	defer env.cancel()
	env.device.count = 500

	ctx, cancel := context.WithCancel(context.Background())
	var samples []Sample
	err := env.session.Poll(ctx, func(s Sample) {
		if samples = append(samples, s); len(samples) >= 3 {
			cancel()
		}
	})
	require.Equal(t, context.Canceled, err)
	require.Len(t, samples, 3)
	require.Equal(t, uint32(500), samples[0].Total)
	require.Equal(t, uint32(500), samples[0].Delta)
	for _, s := range samples[1:] {
		require.Equal(t, uint32(1000), s.Delta)
	}
}

func TestPollDeltaWraps(t *testing.T) {
	conf := testConfig()
	conf.PollInterval = 10 * time.Millisecond
	env := newSessionTestEnv(t, conf)
	defer env.cancel()
	env.device.count = 0xffffffff - 499

	ctx, cancel := context.WithCancel(context.Background())
	var samples []Sample
	env.session.Poll(ctx, func(s Sample) {
		if samples = append(samples, s); len(samples) >= 2 {
			cancel()
		}
	})
	require.Len(t, samples, 2)
	require.Equal(t, uint32(500), samples[1].Total)
	require.Equal(t, uint32(1000), samples[1].Delta)
}

func TestConfig(t *testing.T) {
	conf := NewConfig()
	require.NoError(t, conf.Validate())
	require.Equal(t, "0x8000", conf.WriteAddress.String())
	require.NoError(t, conf.WriteAddress.Set("0x0600"))
	require.Equal(t, Address(0x600), conf.WriteAddress)
	require.Error(t, conf.WriteAddress.Set("0x10000"))

	conf.ChunkSize = 257
	require.Error(t, conf.Validate())
	conf.ChunkSize = 0
	require.Error(t, conf.Validate())
}

// Package bridge exposes a local serial link to remote hosts.
package bridge

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/bitboard.go/pkg/command"
	"github.com/robotalks/bitboard.go/pkg/slip"
	"github.com/robotalks/bitboard.go/pkg/transport/mqtt"
)

const clientBacklog = 64

// Bridge pumps raw bytes between the device and remote clients.
// Bytes are not reframed: every client sees the device stream as is,
// and bytes from clients are written to the device in arrival order.
type Bridge struct {
	Device io.ReadWriter
	ID     string
	Meta   mqtt.BridgeMeta
	PubSub *mqtt.PubSub
	Trace  bool

	writeLock   sync.Mutex
	clients     map[*client]struct{}
	clientsLock sync.Mutex
	tracer      slip.Decoder
}

type client struct {
	sendCh chan []byte
}

// New creates a Bridge.
func New(device io.ReadWriter, id string) *Bridge {
	return &Bridge{
		Device:  device,
		ID:      id,
		clients: make(map[*client]struct{}),
	}
}

// Run implements Runnable. It reads the device until the read fails
// or ctx is done. Closing the device unblocks a pending read.
func (b *Bridge) Run(ctx context.Context) error {
	if ps := b.PubSub; ps != nil {
		ps.OnConnect = func(*mqtt.PubSub) { b.announce(true) }
		sub := ps.Sub(b.ID+"/"+mqtt.TopicTx, func(_ string, payload []byte) {
			if err := b.WriteDevice(payload); err != nil {
				glog.Errorf("write device: %v", err)
			}
		})
		if err := ps.Connect(); err != nil {
			return err
		}
		defer ps.Close()
		defer b.announce(false)
		defer sub.Close()
	}

	buf := make([]byte, 1024)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n, err := b.Device.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			b.broadcast(data)
		}
		if err != nil {
			return err
		}
	}
}

// WriteDevice writes bytes from a client to the device.
func (b *Bridge) WriteDevice(p []byte) error {
	b.writeLock.Lock()
	defer b.writeLock.Unlock()
	_, err := b.Device.Write(p)
	return err
}

// ServeClient pumps bytes between conn and the device until
// reading from conn fails.
func (b *Bridge) ServeClient(conn io.ReadWriter) error {
	c := &client{sendCh: make(chan []byte, clientBacklog)}
	b.clientsLock.Lock()
	b.clients[c] = struct{}{}
	b.clientsLock.Unlock()

	go func() {
		for data := range c.sendCh {
			if _, err := conn.Write(data); err != nil {
				glog.Warningf("write client: %v", err)
				return
			}
		}
	}()
	defer func() {
		b.clientsLock.Lock()
		delete(b.clients, c)
		b.clientsLock.Unlock()
		close(c.sendCh)
	}()

	buf := make([]byte, 1024)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if werr := b.WriteDevice(buf[:n]); werr != nil {
				return werr
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

// Clients returns the number of connected clients.
func (b *Bridge) Clients() int {
	b.clientsLock.Lock()
	defer b.clientsLock.Unlock()
	return len(b.clients)
}

func (b *Bridge) broadcast(data []byte) {
	if b.Trace {
		b.trace(data)
	}
	if ps := b.PubSub; ps != nil {
		ps.Pub(b.ID+"/"+mqtt.TopicRx, data)
	}
	b.clientsLock.Lock()
	defer b.clientsLock.Unlock()
	for c := range b.clients {
		select {
		case c.sendCh <- data:
		default:
			glog.Warningf("client backlog full, %d bytes dropped", len(data))
		}
	}
}

func (b *Bridge) trace(data []byte) {
	for _, v := range data {
		r := b.tracer.Feed(v)
		if r.Dropped != nil {
			glog.Infof("device: bad frame: %v", r.Dropped)
			continue
		}
		if !r.Complete() {
			continue
		}
		msg, err := command.Decode(r.Packet)
		if err != nil {
			glog.Infof("device: %v", err)
			continue
		}
		glog.Infof("device: %s % x", msg.ID, msg.Body)
	}
}

func (b *Bridge) announce(online bool) {
	var payload []byte
	if online {
		payload, _ = json.Marshal(&b.Meta)
	}
	token := b.PubSub.PubWith(b.ID+"/"+mqtt.TopicMeta, payload, 1, true)
	token.Wait()
	if err := token.Error(); err != nil {
		glog.Warningf("announce: %v", err)
	}
}

package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ErrNoBridgeID indicates the URL doesn't specify a bridge.
var ErrNoBridgeID = errors.New("bridge id is required")

// BridgeMeta is published retained by a bridge on its meta topic.
type BridgeMeta struct {
	Port     string `json:"port"`
	BaudRate int    `json:"baud"`
}

// BridgeInfo is a discovered bridge.
type BridgeInfo struct {
	ID   string     `json:"id"`
	Meta BridgeMeta `json:"meta"`
}

// Stream is the host side byte stream of a bridged link.
// Written bytes go to <id>/tx, read bytes come from <id>/rx.
type Stream struct {
	PubSub *PubSub
	ID     string

	sub     *Subscription
	dataCh  chan []byte
	pending []byte

	closeOnce sync.Once
	closedCh  chan struct{}
}

// NewStream creates a Stream on a connected PubSub.
func NewStream(ps *PubSub, id string) *Stream {
	s := &Stream{
		PubSub:   ps,
		ID:       id,
		dataCh:   make(chan []byte, 64),
		closedCh: make(chan struct{}),
	}
	s.sub = ps.Sub(id+"/"+TopicRx, s.handleMsg)
	return s
}

// Dial connects the broker and opens the stream.
// The bridge id is taken from query "id",
// e.g. mqtt://localhost:1883/bitboard/?id=abc.
func Dial(brokerURL string) (*Stream, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, err
	}
	id := u.Query().Get("id")
	if id == "" {
		return nil, ErrNoBridgeID
	}
	opts, prefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	ps := NewPubSub(opts, prefix)
	if err = ps.Connect(); err != nil {
		return nil, err
	}
	return NewStream(ps, id), nil
}

// Read implements io.Reader.
func (s *Stream) Read(p []byte) (int, error) {
	if len(s.pending) == 0 {
		select {
		case data := <-s.dataCh:
			s.pending = data
		case <-s.closedCh:
			return 0, io.EOF
		}
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// Write implements io.Writer.
func (s *Stream) Write(p []byte) (int, error) {
	select {
	case <-s.closedCh:
		return 0, io.ErrClosedPipe
	default:
	}
	data := make([]byte, len(p))
	copy(data, p)
	token := s.PubSub.Pub(s.ID+"/"+TopicTx, data)
	token.Wait()
	if err := token.Error(); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close implements io.Closer.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closedCh)
		err = s.sub.Close()
		s.PubSub.Close()
	})
	return err
}

func (s *Stream) handleMsg(_ string, payload []byte) {
	if len(payload) == 0 {
		return
	}
	select {
	case s.dataCh <- payload:
	case <-s.closedCh:
	}
}

// Discover lists online bridges until timeout or ctx is done.
func Discover(ctx context.Context, brokerURL string, timeout time.Duration) ([]BridgeInfo, error) {
	opts, prefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	ps := NewPubSub(opts, prefix)
	if err = ps.Connect(); err != nil {
		return nil, err
	}
	defer ps.Close()

	infoCh := make(chan BridgeInfo, 16)
	sub := ps.Sub("+/"+TopicMeta, func(topic string, payload []byte) {
		if info, ok := parseMeta(topic, payload); ok {
			select {
			case infoCh <- info:
			case <-time.After(time.Second):
			}
		}
	})
	defer sub.Close()

	var res []BridgeInfo
	expire := time.After(timeout)
	for {
		select {
		case info := <-infoCh:
			res = append(res, info)
		case <-expire:
			return res, nil
		case <-ctx.Done():
			return res, ctx.Err()
		}
	}
}

func parseMeta(topic string, payload []byte) (info BridgeInfo, ok bool) {
	items := strings.Split(topic, "/")
	if len(items) != 2 || items[1] != TopicMeta || len(payload) == 0 {
		return
	}
	if err := json.Unmarshal(payload, &info.Meta); err != nil {
		return
	}
	info.ID = items[0]
	return info, true
}

// Package session drives the bitboard command exchanges over a framed link.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/bitboard.go/pkg/command"
	"github.com/robotalks/bitboard.go/pkg/slip"
)

// PacketWriter sends a packet as a single frame.
type PacketWriter interface {
	WritePacket([]byte) error
}

// Handler processes an inbound command.
type Handler interface {
	HandleMessage(context.Context, command.Message)
}

// HandlerFunc is func type of Handler.
type HandlerFunc func(context.Context, command.Message)

// HandleMessage implements Handler.
func (f HandlerFunc) HandleMessage(ctx context.Context, msg command.Message) {
	f(ctx, msg)
}

// Session is the controller side of a link.
// Responses carry no request id, so a reply is matched to the
// earliest pending request waiting for that command id.
type Session struct {
	Config Config
	Writer PacketWriter
	Queue  *slip.Queue

	handlers     map[command.ID]Handler
	handlersLock sync.RWMutex

	waiters     []*waiter
	waitersLock sync.Mutex
}

type waiter struct {
	ids []command.ID
	ch  chan command.Message
}

func (w *waiter) accepts(id command.ID) bool {
	for _, expected := range w.ids {
		if expected == id {
			return true
		}
	}
	return false
}

// New creates a Session.
func New(w PacketWriter, q *slip.Queue, conf *Config) *Session {
	s := &Session{
		Writer:   w,
		Queue:    q,
		handlers: make(map[command.ID]Handler),
	}
	if conf != nil {
		s.Config = *conf
	} else {
		s.Config = defaultConfig
	}
	s.HandleFunc(command.Log, func(ctx context.Context, msg command.Message) {
		glog.Infof("[log] %s", msg.Text())
	})
	s.HandleFunc(command.Error, func(ctx context.Context, msg command.Message) {
		glog.Warningf("[error] %s", msg.Text())
	})
	s.HandleFunc(command.Pong, func(ctx context.Context, msg command.Message) {
		glog.V(2).Info("unsolicited pong")
	})
	return s
}

// Handle registers the handler for a command id, replacing existing one.
// A nil handler removes it.
func (s *Session) Handle(id command.ID, h Handler) {
	s.handlersLock.Lock()
	defer s.handlersLock.Unlock()
	if h == nil {
		delete(s.handlers, id)
		return
	}
	s.handlers[id] = h
}

// HandleFunc registers a func as handler.
func (s *Session) HandleFunc(id command.ID, fn func(context.Context, command.Message)) {
	s.Handle(id, HandlerFunc(fn))
}

// Send sends a command without waiting for a response.
func (s *Session) Send(id command.ID, body []byte) error {
	glog.V(2).Infof("SND %s (%d bytes)", id, len(body))
	return s.Writer.WritePacket(command.Encode(id, body))
}

// Request sends a command and waits for a reply with one of the expected ids.
// An Error reply is always accepted and returned as *RemoteError.
func (s *Session) Request(ctx context.Context, id command.ID, body []byte, expects ...command.ID) (command.Message, error) {
	w := s.await(append(expects, command.Error)...)
	if err := s.Send(id, body); err != nil {
		s.cancel(w)
		return command.Message{}, err
	}
	if timeout := s.Config.ResponseTimeout; timeout > 0 {
		var cancel func()
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	select {
	case msg := <-w.ch:
		if msg.ID == command.Error {
			return msg, &RemoteError{Command: id, Message: msg.Text()}
		}
		return msg, nil
	case <-ctx.Done():
		s.cancel(w)
		if ctx.Err() == context.DeadlineExceeded {
			return command.Message{}, ErrTimeout
		}
		return command.Message{}, ctx.Err()
	}
}

// Ping checks the device is responsive.
func (s *Session) Ping(ctx context.Context) error {
	_, err := s.Request(ctx, command.Ping, nil, command.Pong)
	return err
}

// Start starts the emulator.
func (s *Session) Start(ctx context.Context) error {
	_, err := s.Request(ctx, command.StartEmu, nil, command.Pong)
	return err
}

// Stop stops the emulator.
func (s *Session) Stop(ctx context.Context) error {
	_, err := s.Request(ctx, command.StopEmu, nil, command.Pong)
	return err
}

// Step executes a single instruction.
func (s *Session) Step(ctx context.Context) error {
	_, err := s.Request(ctx, command.StepEmu, nil, command.Pong)
	return err
}

// InstructionCount queries the number of executed instructions.
func (s *Session) InstructionCount(ctx context.Context) (uint32, error) {
	msg, err := s.Request(ctx, command.GetInstCount, nil, command.GetInstCount)
	if err != nil {
		return 0, err
	}
	return command.ParseInstCount(msg.Body)
}

// Run implements Runnable. It dispatches inbound packets until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	readyCh := s.Queue.Ready()
	for {
		for {
			pkt, ok := s.Queue.Pop()
			if !ok {
				break
			}
			s.dispatch(ctx, pkt)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-readyCh:
		}
	}
}

func (s *Session) dispatch(ctx context.Context, pkt slip.Packet) {
	msg, err := command.Decode(pkt)
	if err != nil {
		glog.Warningf("packet ignored: %v", err)
		return
	}
	glog.V(2).Infof("RCV %s (%d bytes)", msg.ID, len(msg.Body))
	if s.deliver(msg) {
		return
	}
	s.handlersLock.RLock()
	h := s.handlers[msg.ID]
	s.handlersLock.RUnlock()
	if h != nil {
		h.HandleMessage(ctx, msg)
		return
	}
	if !msg.ID.Known() {
		glog.Warningf("unrecognized command %d ignored", byte(msg.ID))
		return
	}
	glog.V(1).Infof("unhandled command %s", msg.ID)
}

func (s *Session) await(ids ...command.ID) *waiter {
	w := &waiter{ids: ids, ch: make(chan command.Message, 1)}
	s.waitersLock.Lock()
	s.waiters = append(s.waiters, w)
	s.waitersLock.Unlock()
	return w
}

func (s *Session) cancel(w *waiter) {
	s.waitersLock.Lock()
	defer s.waitersLock.Unlock()
	for n, curr := range s.waiters {
		if curr == w {
			s.waiters = append(s.waiters[:n], s.waiters[n+1:]...)
			return
		}
	}
}

func (s *Session) deliver(msg command.Message) bool {
	s.waitersLock.Lock()
	var w *waiter
	for n, curr := range s.waiters {
		if curr.accepts(msg.ID) {
			w = curr
			s.waiters = append(s.waiters[:n], s.waiters[n+1:]...)
			break
		}
	}
	s.waitersLock.Unlock()
	if w == nil {
		return false
	}
	w.ch <- msg
	return true
}

// Sample is a polled instruction counter value.
type Sample struct {
	At    time.Time
	Total uint32
	// Delta is the number of instructions since previous sample.
	Delta uint32
}

// Poll queries the instruction counter every PollInterval and reports
// samples until ctx is done. Failed queries are logged and skipped.
func (s *Session) Poll(ctx context.Context, report func(Sample)) error {
	interval := s.Config.PollInterval
	if interval <= 0 {
		interval = defaultConfig.PollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var last uint32
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case at := <-ticker.C:
			n, err := s.InstructionCount(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				glog.Warningf("poll instruction count: %v", err)
				continue
			}
			report(Sample{At: at, Total: n, Delta: n - last})
			last = n
		}
	}
}

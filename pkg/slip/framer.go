package slip

import (
	"context"
	"io"
	"sync"

	"github.com/golang/glog"
)

// DefaultReadBufferSize is the default size of a single transport read.
const DefaultReadBufferSize = 1024

// Stats counts frames going through a Framer.
type Stats struct {
	Sent            uint64
	Received        uint64
	ChecksumErrors  uint64
	TruncatedFrames uint64
	EscapeErrors    uint64
	PendingBytes    int
	QueuedPackets   int
}

// Dropped returns the total number of discarded frames.
func (s Stats) Dropped() uint64 {
	return s.ChecksumErrors + s.TruncatedFrames + s.EscapeErrors
}

// Framer sends/receives packets over a byte stream.
type Framer struct {
	ReadWriter     io.ReadWriter
	Queue          *Queue
	ReadBufferSize int

	checksum bool
	encoder  *Encoder
	sendLock sync.Mutex

	// owned by the receive flow.
	decoder Decoder

	stats     Stats
	statsLock sync.Mutex
}

// NewFramer creates a Framer.
func NewFramer(rw io.ReadWriter, checksum bool) *Framer {
	return &Framer{
		ReadWriter:     rw,
		Queue:          NewQueue(),
		ReadBufferSize: DefaultReadBufferSize,
		checksum:       checksum,
		encoder:        NewEncoder(rw, checksum),
		decoder:        Decoder{Checksum: checksum},
	}
}

// Checksum indicates whether checksum is enabled.
func (f *Framer) Checksum() bool {
	return f.checksum
}

// WritePacket sends p as a single frame.
func (f *Framer) WritePacket(p []byte) error {
	f.sendLock.Lock()
	err := f.encoder.WriteFrame(p)
	f.sendLock.Unlock()
	if err != nil {
		return err
	}
	f.statsLock.Lock()
	f.stats.Sent++
	f.statsLock.Unlock()
	return nil
}

// Stats returns a snapshot of counters.
func (f *Framer) Stats() Stats {
	f.statsLock.Lock()
	s := f.stats
	f.statsLock.Unlock()
	s.QueuedPackets = f.Queue.Len()
	return s
}

// Feed processes raw bytes received from the transport.
// It must only be called from the receive flow.
func (f *Framer) Feed(p []byte) {
	for _, b := range p {
		r := f.decoder.Feed(b)
		if r.Dropped != nil {
			f.dropped(r.Dropped)
			continue
		}
		if r.Complete() {
			f.statsLock.Lock()
			f.stats.Received++
			f.statsLock.Unlock()
			glog.V(3).Infof("RCV % x", []byte(r.Packet))
			f.Queue.Push(r.Packet)
		}
	}
	f.statsLock.Lock()
	f.stats.PendingBytes = f.decoder.Pending()
	f.statsLock.Unlock()
}

// Run implements Runnable. It reads from ReadWriter until ctx is done
// or the read fails. A blocked Read is only interrupted by closing the
// underlying transport.
func (f *Framer) Run(ctx context.Context) error {
	chunkCh, errCh := make(chan []byte), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer f.decoder.Reset()
	go f.readLoop(subCtx, chunkCh, errCh)
	for {
		select {
		case p := <-chunkCh:
			f.Feed(p)
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (f *Framer) readLoop(ctx context.Context, chunkCh chan []byte, errCh chan error) {
	size := f.ReadBufferSize
	if size <= 0 {
		size = DefaultReadBufferSize
	}
	for {
		buf := make([]byte, size)
		n, err := f.ReadWriter.Read(buf)
		if n > 0 {
			select {
			case chunkCh <- buf[:n]:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			errCh <- err
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (f *Framer) dropped(reason error) {
	f.statsLock.Lock()
	switch reason {
	case ErrChecksumMismatch:
		f.stats.ChecksumErrors++
	case ErrTruncatedChecksum:
		f.stats.TruncatedFrames++
	case ErrBadEscape:
		f.stats.EscapeErrors++
	}
	f.statsLock.Unlock()
	glog.V(1).Infof("frame dropped: %v", reason)
}

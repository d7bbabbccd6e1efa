package slip

import (
	"context"
	"sync"
)

// Queue holds decoded packets in arrival order.
// It is written by the receive flow and drained by a consumer.
type Queue struct {
	lock    sync.Mutex
	packets []Packet
	readyCh chan struct{}
}

// NewQueue creates a Queue.
func NewQueue() *Queue {
	return &Queue{readyCh: make(chan struct{}, 1)}
}

// Push appends a packet and signals Ready. It never blocks.
func (q *Queue) Push(pkt Packet) {
	q.lock.Lock()
	q.packets = append(q.packets, pkt)
	ch := q.ready()
	q.lock.Unlock()
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Pop removes the head packet. It returns false if the queue is empty.
func (q *Queue) Pop() (Packet, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	if len(q.packets) == 0 {
		return nil, false
	}
	pkt := q.packets[0]
	q.packets[0] = nil
	if q.packets = q.packets[1:]; len(q.packets) == 0 {
		q.packets = nil
	}
	return pkt, true
}

// Len returns the number of pending packets.
func (q *Queue) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return len(q.packets)
}

// Ready returns the chan signaled when packets are pushed.
// A single signal may stand for multiple packets, so consumers
// should drain with Pop until it reports empty.
func (q *Queue) Ready() <-chan struct{} {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.ready()
}

// Wait pops a packet, blocking until one arrives or ctx is done.
func (q *Queue) Wait(ctx context.Context) (Packet, error) {
	readyCh := q.Ready()
	for {
		if pkt, ok := q.Pop(); ok {
			return pkt, nil
		}
		select {
		case <-readyCh:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (q *Queue) ready() chan struct{} {
	if q.readyCh == nil {
		q.readyCh = make(chan struct{}, 1)
	}
	return q.readyCh
}

package hub

import (
	"sync"
	"sync/atomic"

	"relayhub/logger"
	"relayhub/tools/errs"
	"relayhub/tools/safe"
)

type fanoutJob struct {
	conns   []*Client
	payload []byte
	exclude string // conn_id to skip (self-echo suppression)
}

// Fanout decouples publishers from socket writes. A single worker
// drains the queue, so events for one room reach every member queue
// in publish order; each member's writer goroutine then preserves
// that order on the wire.
type Fanout struct {
	jobs     chan fanoutJob
	dropped  atomic.Int64
	stopOnce sync.Once
	done     chan struct{}
}

func NewFanout(queue int) *Fanout {
	if queue <= 0 {
		queue = 1024
	}
	f := &Fanout{
		jobs: make(chan fanoutJob, queue),
		done: make(chan struct{}),
	}
	safe.Go(f.run)
	return f
}

func (f *Fanout) run() {
	for {
		select {
		case <-f.done:
			return
		case job := <-f.jobs:
			for _, c := range job.conns {
				if c == nil || c.ConnID == job.exclude {
					continue
				}
				select {
				case c.Send <- job.payload:
				default:
					// Slow or dead client: skip this connection only,
					// delivery to the rest is unaffected.
					f.dropped.Add(1)
					logger.Debugf("[fanout] %v conn=%s user=%s",
						errs.ErrDelivery.WithDetail("send queue full"), c.ConnID, c.UserID)
				}
			}
		}
	}
}

// Broadcast enqueues one delivery against a member snapshot taken by
// the caller. Blocks only when the fan-out queue itself is full.
func (f *Fanout) Broadcast(conns []*Client, payload []byte, excludeConnID string) {
	if len(conns) == 0 || len(payload) == 0 {
		return
	}
	select {
	case <-f.done:
	case f.jobs <- fanoutJob{conns: conns, payload: payload, exclude: excludeConnID}:
	}
}

// Dropped reports how many per-connection deliveries were skipped due
// to full send queues.
func (f *Fanout) Dropped() int64 { return f.dropped.Load() }

func (f *Fanout) Close() {
	f.stopOnce.Do(func() { close(f.done) })
}

// Package faketransport is an in-memory codec.Conn used by tests in place
// of a real socket: a channel-backed fake connection that a test can feed
// frames into and drain frames out of without binding a real port.
package faketransport

import (
	"errors"
	"sync"

	"github.com/wyndhq/wynd/internal/codec"
)

// Conn is a loopback codec.Conn: Send appends to an Outbox a test can read,
// Recv drains an Inbox a test can feed. Closing is idempotent and, once
// closed, Recv unblocks with io.EOF-shaped codec.Error and Send fails.
type Conn struct {
	addr string

	mu        sync.Mutex
	closed    bool
	sentClose bool

	inbox  chan codec.Incoming
	outbox chan codec.Outgoing
}

// New returns a ready Conn with the given buffered capacity on each
// direction and a synthetic remote address for logging.
func New(addr string, capacity int) *Conn {
	return &Conn{
		addr:   addr,
		inbox:  make(chan codec.Incoming, capacity),
		outbox: make(chan codec.Outgoing, capacity),
	}
}

// Feed injects a message for the Conn's owner to Recv, as if it arrived
// over the wire from the peer.
func (c *Conn) Feed(msg codec.Incoming) {
	c.inbox <- msg
}

// Sent drains and returns the next message the Conn's owner Send-ed, as if
// observed by the peer. Blocks until one is available.
func (c *Conn) Sent() codec.Outgoing {
	return <-c.outbox
}

// TrySent returns the next sent message without blocking, and false if
// none is queued.
func (c *Conn) TrySent() (codec.Outgoing, bool) {
	select {
	case m := <-c.outbox:
		return m, true
	default:
		return codec.Outgoing{}, false
	}
}

func (c *Conn) RemoteAddr() string { return c.addr }

func (c *Conn) Recv() (codec.Incoming, error) {
	msg, ok := <-c.inbox
	if !ok {
		return codec.Incoming{}, &codec.Error{Cause: errors.New("faketransport: connection closed")}
	}
	return msg, nil
}

func (c *Conn) Send(msg codec.Outgoing) error {
	c.mu.Lock()
	if c.closed || c.sentClose {
		c.mu.Unlock()
		return &codec.Error{Cause: errors.New("faketransport: connection closed")}
	}
	if msg.Kind == codec.KindClose {
		c.sentClose = true
	}
	c.mu.Unlock()
	c.outbox <- msg
	return nil
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.inbox)
	return nil
}

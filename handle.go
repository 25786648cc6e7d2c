package wynd

import (
	"errors"
	"sync"

	"github.com/sony/gobreaker"

	"github.com/wyndhq/wynd/internal/breaker"
	"github.com/wyndhq/wynd/internal/codec"
	"github.com/wyndhq/wynd/internal/member"
	"github.com/wyndhq/wynd/internal/metrics"
	"github.com/wyndhq/wynd/internal/registry"
	"github.com/wyndhq/wynd/internal/room"
)

// sendHalf is the shared, mutex-guarded outbound side of one connection.
// The Runtime writes Pong/Close control frames through it; every Handle
// clone for the same connection writes Text/Binary frames through the same
// instance, giving the single-writer discipline requires. A
// gobreaker.CircuitBreaker wraps the write so a peer whose socket is
// already failing stops paying the cost of repeated writes during a large
// broadcast or room fan-out (see internal/breaker).
type sendHalf struct {
	mu      sync.Mutex
	conn    codec.Conn
	cb      *gobreaker.CircuitBreaker
	closed  bool
}

func newSendHalf(conn codec.Conn, connectionID string) *sendHalf {
	return &sendHalf{conn: conn, cb: breaker.New(connectionID)}
}

func (s *sendHalf) sendText(data string) error {
	return s.send(codec.Outgoing{Kind: codec.KindText, Text: data})
}

func (s *sendHalf) sendBinary(data []byte) error {
	return s.send(codec.Outgoing{Kind: codec.KindBinary, Binary: data})
}

func (s *sendHalf) sendPong(data []byte) error {
	return s.send(codec.Outgoing{Kind: codec.KindPong, Binary: data})
}

func (s *sendHalf) sendClose(code uint16, reason string) error {
	return s.send(codec.Outgoing{Kind: codec.KindClose, CloseCode: code, CloseCause: reason})
}

func (s *sendHalf) send(msg codec.Outgoing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return &SendError{Kind: ConnectionClosed}
	}

	_, err := s.cb.Execute(func() (any, error) {
		return nil, s.conn.Send(msg)
	})

	if msg.Kind == codec.KindClose {
		s.closed = true
	}
	if err == nil {
		metrics.FramesTotal.WithLabelValues(msg.Kind.String(), "out").Inc()
		return nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.SendErrorsTotal.WithLabelValues(ConnectionClosed.String()).Inc()
		return &SendError{Kind: ConnectionClosed, Cause: err}
	}
	var cerr *codec.Error
	if errors.As(err, &cerr) && cerr.Protocol {
		metrics.SendErrorsTotal.WithLabelValues(Protocol.String()).Inc()
		return &SendError{Kind: Protocol, Cause: err}
	}
	metrics.SendErrorsTotal.WithLabelValues(IOFailure.String()).Inc()
	return &SendError{Kind: IOFailure, Cause: err}
}

func (s *sendHalf) close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.conn.Close()
}

// Handle is the cheap, cloneable object passed to every callback (spec
// §4.2). Cloning shares the underlying send half, Registry, and Room
// Table; dropping all clones does not close the connection.
type Handle[S any] struct {
	id    ConnectionID
	addr  string
	send  *sendHalf
	reg   *registry.Registry
	rooms *room.Table
	state *S

	broadcast Broadcast[S]
}

func newHandle[S any](id ConnectionID, addr string, send *sendHalf, reg *registry.Registry, rooms *room.Table, state *S) *Handle[S] {
	h := &Handle[S]{id: id, addr: addr, send: send, reg: reg, rooms: rooms, state: state}
	h.broadcast.h = h
	return h
}

// ID returns the connection's identifier. Equal to the bound Connection's id.
func (h *Handle[S]) ID() member.ID { return h.id }

// Addr returns the peer socket address in text form.
func (h *Handle[S]) Addr() string { return h.addr }

// State returns a pointer to the per-connection state. Safe to read from
// any Handle clone; only this connection's own callbacks mutate it.
func (h *Handle[S]) State() *S { return h.state }

// Broadcast returns the broadcast facade bound to this connection.
func (h *Handle[S]) Broadcast() *Broadcast[S] { return &h.broadcast }

// SendText writes one text frame. Satisfies member.Sender.
func (h *Handle[S]) SendText(data string) error { return h.send.sendText(data) }

// SendBinary writes one binary frame. Satisfies member.Sender.
func (h *Handle[S]) SendBinary(data []byte) error { return h.send.sendBinary(data) }

// Close sends a normal (1000) close frame with no reason. Subsequent sends
// fail with a ConnectionClosed SendError.
func (h *Handle[S]) Close() error {
	return h.CloseWithCode(CloseNormal, "")
}

// CloseWithCode sends a close frame carrying code/reason.
func (h *Handle[S]) CloseWithCode(code uint16, reason string) error {
	return h.send.sendClose(code, reason)
}

// Join enqueues a Join event into the named room's dispatcher, creating
// the room on first reference. Asynchronous: returns once the event is
// enqueued, not once the dispatcher has processed it.
func (h *Handle[S]) Join(name RoomName) {
	h.rooms.Join(name, h.id, h)
}

// Leave enqueues a Leave event into the named room's dispatcher. A leave
// from a room this connection never joined, or that no longer exists, is a
// no-op.
func (h *Handle[S]) Leave(name RoomName) {
	h.rooms.Leave(name, h.id)
}

// JoinedRooms returns a snapshot of the rooms this connection currently
// belongs to.
func (h *Handle[S]) JoinedRooms() []RoomName {
	return h.rooms.JoinedRooms(h.id)
}

// LeaveAllRooms enqueues a Leave event on every room this connection
// currently belongs to.
func (h *Handle[S]) LeaveAllRooms() {
	h.rooms.LeaveAll(h.id, h.rooms.JoinedRooms(h.id))
}

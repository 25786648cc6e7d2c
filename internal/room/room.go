// Package room implements the named-room fan-out engine. Each Room owns a
// bounded event channel drained by a single dispatcher goroutine: external
// callers only ever enqueue, and all membership mutation happens on that
// one goroutine.
package room

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wyndhq/wynd/internal/logging"
	"github.com/wyndhq/wynd/internal/member"
	"github.com/wyndhq/wynd/internal/metrics"
)

// Name is a room identifier. Go string values already compare and hash by
// content, so two callers naming the same room share the same value
// without a separate intern table.
type Name string

// EventKind tags the RoomEvent union.
type EventKind int

const (
	EventJoin EventKind = iota
	EventLeave
	EventText
	EventBinary
)

// Event is the tagged union a Room's dispatcher drains in arrival order.
type Event struct {
	Kind          EventKind
	ID            member.ID
	Sender        member.Sender // set on Join; the captured reference allows fan-out to use directly
	Data          string
	Binary        []byte
	IncludeSender bool
}

// Room is a named membership group with a dedicated dispatcher goroutine.
type Room struct {
	name  Name
	epoch string // uuid minted at construction, for log correlation across recreate races

	events chan Event

	mu      sync.RWMutex // guards members; written only by the dispatcher goroutine, read by snapshot queries
	members map[member.ID]member.Sender

	closeOnce sync.Once
	done      chan struct{}
}

func newRoom(name Name, capacity int) *Room {
	return &Room{
		name:    name,
		epoch:   uuid.NewString(),
		events:  make(chan Event, capacity),
		members: make(map[member.ID]member.Sender),
		done:    make(chan struct{}),
	}
}

// Name returns the room's identifier.
func (r *Room) Name() Name { return r.name }

// Enqueue delivers an event to the room's dispatcher, blocking while the
// bounded channel is full. If the dispatcher has already exited and closed the
// channel — a benign race with room teardown — the send is
// swallowed rather than panicking the caller.
func (r *Room) Enqueue(ev Event) {
	defer func() {
		if recover() != nil {
			logging.Debug(context.Background(), "room: enqueue raced with dispatcher shutdown", zap.String("room", string(r.name)), zap.String("epoch", r.epoch))
		}
	}()
	r.events <- ev
}

// Members returns a snapshot of the currently joined connection ids.
func (r *Room) Members() []member.ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]member.ID, 0, len(r.members))
	for id := range r.members {
		out = append(out, id)
	}
	return out
}

// IsMember reports whether id is currently joined to this room.
func (r *Room) IsMember(id member.ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[id]
	return ok
}

// run is the dispatcher loop: the only goroutine allowed to mutate
// r.members. onExit is invoked (with the room's pointer identity) once
// membership reaches zero, so the Table can prune a stale entry without
// racing a room that was already replaced under the same name.
func (r *Room) run(onExit func(*Room)) {
	defer close(r.done)
	for ev := range r.events {
		r.dispatch(ev)
		if ev.Kind == EventLeave && r.isEmpty() {
			onExit(r)
			r.closeOnce.Do(func() { close(r.events) })
			return
		}
	}
}

func (r *Room) isEmpty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members) == 0
}

func (r *Room) dispatch(ev Event) {
	switch ev.Kind {
	case EventJoin:
		r.mu.Lock()
		r.members[ev.ID] = ev.Sender
		n := len(r.members)
		r.mu.Unlock()
		metrics.RoomMembers.WithLabelValues(string(r.name)).Set(float64(n))
		logging.Debug(context.Background(), "room: member joined", zap.String("room", string(r.name)), zap.String("epoch", r.epoch))

	case EventLeave:
		r.mu.Lock()
		delete(r.members, ev.ID)
		n := len(r.members)
		r.mu.Unlock()
		if n == 0 {
			metrics.RoomMembers.DeleteLabelValues(string(r.name))
		} else {
			metrics.RoomMembers.WithLabelValues(string(r.name)).Set(float64(n))
		}

	case EventText:
		r.fanOutText(ev)

	case EventBinary:
		r.fanOutBinary(ev)
	}
}

func (r *Room) fanOutText(ev Event) {
	r.mu.RLock()
	targets := make([]member.Sender, 0, len(r.members))
	for id, s := range r.members {
		if !ev.IncludeSender && id == ev.ID {
			continue
		}
		targets = append(targets, s)
	}
	r.mu.RUnlock()

	for _, s := range targets {
		if err := s.SendText(ev.Data); err != nil {
			metrics.BroadcastErrorsTotal.WithLabelValues("room").Inc()
			logging.Debug(context.Background(), "room: per-peer text send failed", zap.String("room", string(r.name)))
		}
	}
}

func (r *Room) fanOutBinary(ev Event) {
	r.mu.RLock()
	targets := make([]member.Sender, 0, len(r.members))
	for id, s := range r.members {
		if !ev.IncludeSender && id == ev.ID {
			continue
		}
		targets = append(targets, s)
	}
	r.mu.RUnlock()

	for _, s := range targets {
		if err := s.SendBinary(ev.Binary); err != nil {
			metrics.BroadcastErrorsTotal.WithLabelValues("room").Inc()
			logging.Debug(context.Background(), "room: per-peer binary send failed", zap.String("room", string(r.name)))
		}
	}
}

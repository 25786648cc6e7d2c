package room

import (
	"sync"

	"github.com/wyndhq/wynd/internal/member"
	"github.com/wyndhq/wynd/internal/metrics"
)

// Table is the process-wide name -> *Room directory. It owns
// room lifecycle: a room is created the first time something joins it, and
// pruned once its dispatcher observes zero members. Creation and pruning
// both need to survive the ABA race described at getOrCreate and onRoomExit.
type Table struct {
	mu       sync.Mutex
	rooms    map[Name]*Room
	capacity int
}

// NewTable returns an empty Table. capacity bounds each room's event
// channel; the root package's Server uses 100 unless
// SetRoomEventChannelCapacity changes it.
func NewTable(capacity int) *Table {
	return &Table{
		rooms:    make(map[Name]*Room),
		capacity: capacity,
	}
}

// getOrCreate returns the current room for name, creating and starting its
// dispatcher goroutine if none exists yet. Creation happens under the
// table's lock so two concurrent first-joiners can never spawn two rooms
// for the same name.
func (t *Table) getOrCreate(name Name) *Room {
	t.mu.Lock()
	defer t.mu.Unlock()

	if r, ok := t.rooms[name]; ok {
		return r
	}
	r := newRoom(name, t.capacity)
	t.rooms[name] = r
	metrics.ActiveRooms.Inc()
	go r.run(t.onRoomExit)
	return r
}

// onRoomExit is the dispatcher's pruning callback. It removes the table
// entry for r.name only if that entry is still r itself: a getOrCreate call
// that raced with this room's teardown and already installed a replacement
// room under the same name must not have its replacement deleted out from
// under it. Comparing *Room pointers rather than the room's uuid epoch
// keeps this correct without needing the table to serialize against
// getOrCreate beyond the single map lookup+delete below.
func (t *Table) onRoomExit(r *Room) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if current, ok := t.rooms[r.name]; ok && current == r {
		delete(t.rooms, r.name)
		metrics.ActiveRooms.Dec()
	}
}

// lookup returns the current room for name without creating one.
func (t *Table) lookup(name Name) (*Room, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.rooms[name]
	return r, ok
}

// Snapshot returns the names of every currently live room.
func (t *Table) Snapshot() []Name {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Name, 0, len(t.rooms))
	for name := range t.rooms {
		out = append(out, name)
	}
	return out
}

// Join adds id/sender to the named room, creating the room if this is its
// first member.
func (t *Table) Join(name Name, id member.ID, sender member.Sender) {
	r := t.getOrCreate(name)
	r.Enqueue(Event{Kind: EventJoin, ID: id, Sender: sender})
}

// Leave removes id from the named room, if it exists. A leave for a room
// that no longer exists (already pruned) is a no-op rather than an error.
func (t *Table) Leave(name Name, id member.ID) {
	r, ok := t.lookup(name)
	if !ok {
		return
	}
	r.Enqueue(Event{Kind: EventLeave, ID: id})
}

// LeaveAll removes id from every room in names, used when a connection
// closes while still joined to one or more rooms.
func (t *Table) LeaveAll(id member.ID, names []Name) {
	for _, name := range names {
		t.Leave(name, id)
	}
}

// BroadcastText enqueues a text fan-out event on the named room. Missing rooms
// are silently ignored: broadcasting to an empty/nonexistent room is a
// no-op, not an error.
func (t *Table) BroadcastText(name Name, from member.ID, data string, includeSender bool) {
	r, ok := t.lookup(name)
	if !ok {
		return
	}
	r.Enqueue(Event{Kind: EventText, ID: from, Data: data, IncludeSender: includeSender})
}

// BroadcastBinary is BroadcastText for binary payloads.
func (t *Table) BroadcastBinary(name Name, from member.ID, data []byte, includeSender bool) {
	r, ok := t.lookup(name)
	if !ok {
		return
	}
	r.Enqueue(Event{Kind: EventBinary, ID: from, Binary: data, IncludeSender: includeSender})
}

// JoinedRooms returns the names of every room id currently belongs to. This
// scans every live room's membership snapshot, acceptable given rooms are
// expected to number in the hundreds-to-low-thousands, not millions; a
// reverse index is not worth the extra bookkeeping at that scale.
func (t *Table) JoinedRooms(id member.ID) []Name {
	t.mu.Lock()
	rooms := make([]*Room, 0, len(t.rooms))
	for _, r := range t.rooms {
		rooms = append(rooms, r)
	}
	t.mu.Unlock()

	out := make([]Name, 0)
	for _, r := range rooms {
		if r.IsMember(id) {
			out = append(out, r.Name())
		}
	}
	return out
}

// Members returns a snapshot of ids joined to name, or nil if the room does
// not currently exist.
func (t *Table) Members(name Name) []member.ID {
	r, ok := t.lookup(name)
	if !ok {
		return nil
	}
	return r.Members()
}

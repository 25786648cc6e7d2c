package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/wyndhq/wynd/internal/member"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSender struct {
	id       member.ID
	text     chan string
	binary   chan []byte
	failText bool
}

func newFakeSender(id member.ID) *fakeSender {
	return &fakeSender{id: id, text: make(chan string, 8), binary: make(chan []byte, 8)}
}

func (f *fakeSender) ID() member.ID { return f.id }

func (f *fakeSender) SendText(data string) error {
	if f.failText {
		return assert.AnError
	}
	f.text <- data
	return nil
}

func (f *fakeSender) SendBinary(data []byte) error {
	f.binary <- data
	return nil
}

func (f *fakeSender) Close() error { return nil }

func waitClosed(t *testing.T, r *Room) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not exit in time")
	}
}

func TestTable_JoinBroadcastLeave(t *testing.T) {
	tbl := NewTable(8)
	a := newFakeSender(1)
	b := newFakeSender(2)

	tbl.Join("general", a.id, a)
	tbl.Join("general", b.id, b)

	tbl.BroadcastText("general", a.id, "hello", false)

	select {
	case got := <-b.text:
		assert.Equal(t, "hello", got)
	case <-time.After(time.Second):
		t.Fatal("b never received broadcast")
	}

	select {
	case <-a.text:
		t.Fatal("sender should not receive its own broadcast by default")
	case <-time.After(50 * time.Millisecond):
	}

	assert.ElementsMatch(t, []member.ID{1, 2}, tbl.Members("general"))

	r, ok := tbl.lookup("general")
	require.True(t, ok)
	tbl.Leave("general", a.id)
	tbl.Leave("general", b.id)
	waitClosed(t, r)
}

func TestTable_IncludeSender(t *testing.T) {
	tbl := NewTable(8)
	a := newFakeSender(1)
	tbl.Join("solo", a.id, a)

	tbl.BroadcastText("solo", a.id, "echo", true)

	select {
	case got := <-a.text:
		assert.Equal(t, "echo", got)
	case <-time.After(time.Second):
		t.Fatal("sender did not receive its own broadcast with includeSender=true")
	}

	r, ok := tbl.lookup("solo")
	require.True(t, ok)
	tbl.Leave("solo", a.id)
	waitClosed(t, r)
}

func TestTable_RoomPrunedWhenEmpty(t *testing.T) {
	tbl := NewTable(8)
	a := newFakeSender(1)

	tbl.Join("transient", a.id, a)
	r, ok := tbl.lookup("transient")
	require.True(t, ok)

	tbl.Leave("transient", a.id)
	waitClosed(t, r)

	_, ok = tbl.lookup("transient")
	assert.False(t, ok, "room should be pruned from the table once empty")
}

func TestTable_LeaveUnknownRoomIsNoop(t *testing.T) {
	tbl := NewTable(8)
	assert.NotPanics(t, func() {
		tbl.Leave("never-existed", 42)
	})
}

func TestTable_BroadcastToMissingRoomIsNoop(t *testing.T) {
	tbl := NewTable(8)
	assert.NotPanics(t, func() {
		tbl.BroadcastText("missing", 1, "x", false)
		tbl.BroadcastBinary("missing", 1, []byte("x"), false)
	})
}

func TestTable_JoinedRooms(t *testing.T) {
	tbl := NewTable(8)
	a := newFakeSender(1)
	tbl.Join("r1", a.id, a)
	tbl.Join("r2", a.id, a)
	r1, ok := tbl.lookup("r1")
	require.True(t, ok)
	r2, ok := tbl.lookup("r2")
	require.True(t, ok)

	// Join only enqueues; wait for both dispatchers to apply it.
	require.Eventually(t, func() bool { return len(tbl.JoinedRooms(a.id)) == 2 }, time.Second, 5*time.Millisecond)
	assert.ElementsMatch(t, []Name{"r1", "r2"}, tbl.JoinedRooms(a.id))

	tbl.LeaveAll(a.id, []Name{"r1", "r2"})
	waitClosed(t, r1)
	waitClosed(t, r2)
}

func TestTable_RoomRecreateAfterPrune(t *testing.T) {
	tbl := NewTable(8)
	a := newFakeSender(1)

	tbl.Join("reused", a.id, a)
	first, _ := tbl.lookup("reused")
	tbl.Leave("reused", a.id)
	waitClosed(t, first)

	b := newFakeSender(2)
	tbl.Join("reused", b.id, b)
	second, ok := tbl.lookup("reused")
	require.True(t, ok)
	assert.NotSame(t, first, second, "a fresh room must be a distinct instance from the pruned one")

	tbl.BroadcastText("reused", b.id, "hi", true)
	select {
	case got := <-b.text:
		assert.Equal(t, "hi", got)
	case <-time.After(time.Second):
		t.Fatal("new room never dispatched")
	}

	tbl.Leave("reused", b.id)
	waitClosed(t, second)
}

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyndhq/wynd/internal/member"
)

type fakeSender struct{ id member.ID }

func (f fakeSender) ID() member.ID           { return f.id }
func (f fakeSender) SendText(string) error   { return nil }
func (f fakeSender) SendBinary([]byte) error { return nil }
func (f fakeSender) Close() error            { return nil }

func TestRegistry_RegisterGetRemove(t *testing.T) {
	r := New()
	s := fakeSender{id: 1}

	r.Register(s.id, s)
	got, ok := r.Get(1)
	require.True(t, ok)
	assert.Equal(t, member.ID(1), got.ID())

	r.Remove(1)
	_, ok = r.Get(1)
	assert.False(t, ok)

	// idempotent
	assert.NotPanics(t, func() { r.Remove(1) })
}

func TestRegistry_RegisterDuplicatePanics(t *testing.T) {
	r := New()
	s := fakeSender{id: 1}
	r.Register(s.id, s)

	assert.Panics(t, func() {
		r.Register(s.id, s)
	})
}

func TestRegistry_SnapshotExcept(t *testing.T) {
	r := New()
	r.Register(1, fakeSender{id: 1})
	r.Register(2, fakeSender{id: 2})
	r.Register(3, fakeSender{id: 3})

	out := r.SnapshotExcept(2)
	assert.Len(t, out, 2)
	for _, s := range out {
		assert.NotEqual(t, member.ID(2), s.ID())
	}

	assert.Len(t, r.Snapshot(), 3)
	assert.Equal(t, 3, r.Len())
}

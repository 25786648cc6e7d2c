package wynd

import (
	"context"

	"go.uber.org/zap"

	"github.com/wyndhq/wynd/internal/logging"
	"github.com/wyndhq/wynd/internal/member"
	"github.com/wyndhq/wynd/internal/metrics"
)

// Broadcast is the sub-object reachable as Handle.Broadcast(), a thin
// convenience wrapper over the Registry and Room Table. A
// failure sending to any individual peer is counted and logged, never
// returned: broadcast itself never fails as a whole.
type Broadcast[S any] struct {
	h *Handle[S]
}

// Text sends data to every registered connection except the caller.
func (b *Broadcast[S]) Text(data string) {
	b.fanOutText(data, false)
}

// EmitText sends data to every registered connection, including the caller.
func (b *Broadcast[S]) EmitText(data string) {
	b.fanOutText(data, true)
}

// Binary is the binary counterpart of Text.
func (b *Broadcast[S]) Binary(data []byte) {
	b.fanOutBinary(data, false)
}

// EmitBinary is the binary counterpart of EmitText.
func (b *Broadcast[S]) EmitBinary(data []byte) {
	b.fanOutBinary(data, true)
}

// Room returns a facade for broadcasting to a single named room.
func (b *Broadcast[S]) Room(name RoomName) *RoomBroadcast[S] {
	return &RoomBroadcast[S]{h: b.h, name: name}
}

func (b *Broadcast[S]) fanOutText(data string, includeSelf bool) {
	for _, target := range b.targets(includeSelf) {
		if err := target.SendText(data); err != nil {
			metrics.BroadcastErrorsTotal.WithLabelValues("global").Inc()
			logging.Debug(context.Background(), "broadcast: per-peer text send failed", zap.Uint64("connection_id", uint64(target.ID())))
		}
	}
}

func (b *Broadcast[S]) fanOutBinary(data []byte, includeSelf bool) {
	for _, target := range b.targets(includeSelf) {
		if err := target.SendBinary(data); err != nil {
			metrics.BroadcastErrorsTotal.WithLabelValues("global").Inc()
			logging.Debug(context.Background(), "broadcast: per-peer binary send failed", zap.Uint64("connection_id", uint64(target.ID())))
		}
	}
}

func (b *Broadcast[S]) targets(includeSelf bool) []member.Sender {
	if includeSelf {
		return b.h.reg.Snapshot()
	}
	return b.h.reg.SnapshotExcept(b.h.id)
}

// RoomBroadcast is Broadcast.Room's return value: a facade scoped to one
// named room. Enqueuing never includes the sender.
type RoomBroadcast[S any] struct {
	h    *Handle[S]
	name RoomName
}

// Text enqueues a text fan-out event into the named room.
func (r *RoomBroadcast[S]) Text(data string) {
	r.h.rooms.BroadcastText(r.name, r.h.id, data, false)
}

// Binary enqueues a binary fan-out event into the named room.
func (r *RoomBroadcast[S]) Binary(data []byte) {
	r.h.rooms.BroadcastBinary(r.name, r.h.id, data, false)
}

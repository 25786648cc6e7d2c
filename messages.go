package wynd

import (
	"github.com/wyndhq/wynd/internal/member"
	"github.com/wyndhq/wynd/internal/room"
)

// ConnectionID is the stable, process-monotonic identifier of one accepted
// connection. It is assigned once at accept time and never reused.
type ConnectionID = member.ID

// RoomName is the identifier of a named membership group. Rooms are
// created on first reference and removed once empty.
type RoomName = room.Name

// TextMessage is a UTF-8 text frame delivered to an on_text callback.
type TextMessage struct {
	Data string
}

// BinaryMessage is a binary frame delivered to an on_binary callback.
type BinaryMessage struct {
	Data []byte
}

// CloseEvent describes why a connection ended, delivered to on_close.
type CloseEvent struct {
	Code   uint16
	Reason string
}

// ErrorEvent carries a transport- or protocol-level failure, delivered to
// on_error.
type ErrorEvent struct {
	Message string
}

// Close codes an embedder may pass to Handle.Close or observe on CloseEvent.
const (
	CloseNormal             uint16 = 1000
	CloseProtocolError      uint16 = 1002
	CloseNoStatusReceived   uint16 = 1005
	CloseAbnormalClosure    uint16 = 1006
)

// NoState is the state type to use with New when a connection needs
// no attached per-connection context.
type NoState struct{}

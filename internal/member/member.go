// Package member defines the minimal surface the registry and room packages
// need from a connected client, without depending on the root wynd package.
// This keeps internal/registry and internal/room free of an import cycle
// back to the public API that owns the concrete Handle type.
package member

// ID is a process-unique, monotonically increasing connection identifier.
type ID uint64

// Sender is the subset of a connection handle that the registry and room
// dispatcher need in order to fan a message out to a member: its identity
// and its two outbound frame operations. Errors are swallowed by callers
// per the broadcast contract; Sender implementations are expected to log
// internally rather than require every fan-out site to handle them.
type Sender interface {
	ID() ID
	SendText(data string) error
	SendBinary(data []byte) error
	Close() error
}

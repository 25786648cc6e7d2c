package wynd

import "context"

// OnConnectionFunc is invoked exactly once per accepted connection, before
// any frame has been read, to let the embedder register callback slots and
// seed initial state. It must not block on network I/O; async setup work
// belongs in OnOpenFunc.
type OnConnectionFunc[S any] func(c *Connection[S])

// OnOpenFunc runs once, after the Handle has been registered, before the
// frame loop starts.
type OnOpenFunc[S any] func(ctx context.Context, h *Handle[S])

// OnTextFunc runs for each inbound text frame, strictly sequentially with
// respect to every other callback on the same connection.
type OnTextFunc[S any] func(ctx context.Context, msg TextMessage, h *Handle[S])

// OnBinaryFunc is the binary counterpart of OnTextFunc.
type OnBinaryFunc[S any] func(ctx context.Context, msg BinaryMessage, h *Handle[S])

// OnCloseFunc runs once, when the connection terminates, whether the peer
// sent a Close frame or the transport failed abnormally.
type OnCloseFunc[S any] func(ctx context.Context, ev CloseEvent, h *Handle[S])

// OnErrorFunc runs on a transport- or protocol-level failure, in addition
// to (not instead of) OnCloseFunc.
type OnErrorFunc[S any] func(ctx context.Context, ev ErrorEvent, h *Handle[S])

// Connection is the user-facing callback target constructed once per
// accepted connection, parameterized by a user-supplied per-connection
// state type S. It is handed to the server's OnConnectionFunc exactly once
// to register callback slots; afterwards it is owned by the Runtime until
// close.
type Connection[S any] struct {
	id    ConnectionID
	addr  string
	state S

	onOpen   OnOpenFunc[S]
	onText   OnTextFunc[S]
	onBinary OnBinaryFunc[S]
	onClose  OnCloseFunc[S]
	onError  OnErrorFunc[S]
}

// ID returns the connection's stable identifier.
func (c *Connection[S]) ID() ConnectionID { return c.id }

// Addr returns the peer socket address in text form.
func (c *Connection[S]) Addr() string { return c.addr }

// State returns a pointer to the per-connection state value, mutable only
// from this connection's own callbacks.
func (c *Connection[S]) State() *S { return &c.state }

// OnOpen registers the callback invoked once the Handle is ready and
// before the frame loop starts. Re-registration overwrites.
func (c *Connection[S]) OnOpen(f OnOpenFunc[S]) { c.onOpen = f }

// OnText registers the callback invoked for each inbound text frame.
func (c *Connection[S]) OnText(f OnTextFunc[S]) { c.onText = f }

// OnBinary registers the callback invoked for each inbound binary frame.
func (c *Connection[S]) OnBinary(f OnBinaryFunc[S]) { c.onBinary = f }

// OnClose registers the callback invoked once the connection terminates.
func (c *Connection[S]) OnClose(f OnCloseFunc[S]) { c.onClose = f }

// OnError registers the callback invoked on transport/protocol failure.
func (c *Connection[S]) OnError(f OnErrorFunc[S]) { c.onError = f }

// Package wynd is an embeddable WebSocket server library offering an
// event-driven programming surface over RFC 6455 framed connections.
//
// Applications register callbacks for connection lifecycle events (open,
// text, binary, close, error) on a Server and receive per-connection
// Handles with which to send frames, join/leave named rooms, and broadcast
// to peers. The Server can either own the TCP accept loop (Owning mode,
// Listen) or be mounted as an upgrade handler inside an existing HTTP
// router (Embedded mode, Handler/GinHandler).
package wynd

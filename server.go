package wynd

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wyndhq/wynd/internal/codec"
	"github.com/wyndhq/wynd/internal/idgen"
	"github.com/wyndhq/wynd/internal/logging"
	"github.com/wyndhq/wynd/internal/registry"
	"github.com/wyndhq/wynd/internal/room"
)

const defaultRoomEventChannelCapacity = 100

// Server is the user-facing assembler: it stores
// the on_connection callback and server-level callbacks, owns the Registry
// and Room Table, and runs in either Owning mode (Listen) or Embedded mode
// (Handler/GinHandler).
//
// Server-level OnClose is a global observer hook: every connection still
// drives its own Connection-level on_close slot first, and the server-level
// hook fires afterward for every connection regardless of whether that
// connection registered its own slot. Server-level OnError is not called
// per connection: it receives only accept-loop and handshake failures, as a
// *ServerError; per-connection read failures go to the Connection-level
// on_error slot alone (see DESIGN.md, Open Question 6).
type Server[S any] struct {
	mu sync.Mutex

	onConnection  OnConnectionFunc[S]
	serverOnError func(*ServerError)
	serverOnClose func(ConnectionID, CloseEvent)

	ids      *idgen.Allocator
	registry *registry.Registry
	rooms    *room.Table
	upgrader *codec.Upgrader

	httpServer *http.Server
}

// New constructs a Server parameterized over per-connection state type S.
// Use wynd.NoState when no per-connection state is needed.
func New[S any]() *Server[S] {
	return &Server[S]{
		ids:      idgen.NewAllocator(),
		registry: registry.New(),
		rooms:    room.NewTable(defaultRoomEventChannelCapacity),
		upgrader: codec.NewUpgrader(),
	}
}

// OnConnection registers the callback invoked once per accepted
// connection. Re-registration overwrites; a Server without one configured
// treats every connection as having no callback slots at all.
func (s *Server[S]) OnConnection(f OnConnectionFunc[S]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onConnection = f
}

// OnError registers the server-level error observer (see type doc).
func (s *Server[S]) OnError(f func(*ServerError)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serverOnError = f
}

// OnClose registers the server-level close observer (see type doc).
func (s *Server[S]) OnClose(f func(ConnectionID, CloseEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serverOnClose = f
}

// SetRoomEventChannelCapacity adjusts the bounded channel capacity used by
// rooms created from this point forward. Must be called before the first
// room is created (i.e. before Listen/Handler starts accepting traffic): it
// replaces the room table with a new, empty one, so rooms created earlier
// are not visible to connections accepted after the call.
func (s *Server[S]) SetRoomEventChannelCapacity(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms = room.NewTable(n)
}

func (s *Server[S]) dispatch(ctx context.Context, conn codec.Conn, addr string) {
	runConnection[S](ctx, s, conn, addr)
}

// Listen binds 0.0.0.0:port and runs the accept loop, performing the
// WebSocket handshake per accepted connection and spawning a Runtime for
// each. onListening fires exactly once after the bind
// succeeds. It blocks until the server is shut down; Shutdown or a fatal
// accept error unblocks it.
func (s *Server[S]) Listen(port int, onListening func()) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return &ListenError{Cause: err}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.Handler()(w, r)
	})
	httpSrv := &http.Server{Handler: mux}

	s.mu.Lock()
	s.httpServer = httpSrv
	s.mu.Unlock()

	if onListening != nil {
		onListening()
	}

	logging.Info(context.Background(), "wynd: server listening")
	if err := httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
		if s.serverOnError != nil {
			s.serverOnError(&ServerError{Cause: err})
		}
		return &ListenError{Cause: err}
	}
	return nil
}

// Handler returns an http.HandlerFunc suitable for mounting at any path in
// an existing HTTP router (Embedded mode). The handler
// performs the WebSocket upgrade itself and spawns a Runtime; it does not
// bind a port.
func (s *Server[S]) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r)
		if err != nil {
			if s.serverOnError != nil {
				s.serverOnError(&ServerError{Cause: err})
			}
			return
		}
		s.dispatch(r.Context(), conn, conn.RemoteAddr())
	}
}

// GinHandler adapts Handler to gin.HandlerFunc so it can be mounted
// directly as a route handler in a gin.Engine.
func (s *Server[S]) GinHandler() gin.HandlerFunc {
	h := s.Handler()
	return func(c *gin.Context) {
		h(c.Writer, c.Request)
	}
}

// Shutdown closes every currently registered connection with a normal
// close frame, then (in Owning mode) stops the accept loop. Each
// connection's own Runtime still observes the close and runs its normal
// termination path. In Embedded mode there is no accept loop to stop, so
// only the connection-closing half applies.
func (s *Server[S]) Shutdown(ctx context.Context) error {
	for _, target := range s.registry.Snapshot() {
		_ = target.Close()
	}

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// MetricsHandler returns the Prometheus exposition handler for this
// process's collectors. Mount it wherever the embedder wants a /metrics
// endpoint; the Owning-mode Listen accept loop does not mount it
// automatically since metrics exposure is an embedder policy choice.
func (s *Server[S]) MetricsHandler() http.Handler {
	return promhttp.Handler()
}

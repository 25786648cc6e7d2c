package wynd

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/wyndhq/wynd/internal/codec"
	"github.com/wyndhq/wynd/internal/logging"
	"github.com/wyndhq/wynd/internal/metrics"
	"github.com/wyndhq/wynd/internal/tracing"
)

// instrumented wraps a user callback invocation with an OpenTelemetry span
// and a callback-duration histogram observation.
func instrumented(ctx context.Context, kind string, fn func(context.Context)) {
	spanCtx, end := tracing.StartCallback(ctx, kind)
	start := time.Now()
	fn(spanCtx)
	end()
	metrics.CallbackDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// runConnection executes the full connection lifecycle: allocate id,
// construct Connection, invoke on_connection, bind the Handle, register
// it, invoke on_open, then run the frame loop until the peer closes or
// the transport fails. It returns once the connection has been removed
// from the registry and a Leave has been enqueued on every room it belongs
// to; the room dispatchers apply those Leaves asynchronously.
func runConnection[S any](parent context.Context, srv *Server[S], conn codec.Conn, addr string) {
	id := srv.ids.Allocate()
	idStr := strconv.FormatUint(uint64(id), 10)
	ctx := context.WithValue(parent, logging.ConnectionIDKey, idStr)

	c := &Connection[S]{id: id, addr: addr}
	if srv.onConnection != nil {
		srv.onConnection(c)
	}

	send := newSendHalf(conn, idStr)
	h := newHandle[S](id, addr, send, srv.registry, srv.rooms, c.State())

	srv.registry.Register(id, h)
	logging.Info(ctx, "wynd: connection accepted", zap.String("addr", addr))

	if c.onOpen != nil {
		instrumented(ctx, "open", func(ictx context.Context) { c.onOpen(ictx, h) })
	}

	closeInvoked := false
	emitClose := func(ev CloseEvent) {
		if closeInvoked {
			return
		}
		closeInvoked = true
		if c.onClose != nil {
			instrumented(ctx, "close", func(ictx context.Context) { c.onClose(ictx, ev, h) })
		}
		if srv.serverOnClose != nil {
			srv.serverOnClose(id, ev)
		}
	}

	defer func() {
		srv.registry.Remove(id)
		h.LeaveAllRooms()
		_ = conn.Close()
		logging.Info(ctx, "wynd: connection terminated", zap.String("addr", addr))
	}()

frameLoop:
	for {
		msg, err := conn.Recv()
		if err != nil {
			var cerr *codec.Error
			protocol := errors.As(err, &cerr) && cerr.Protocol
			if c.onError != nil {
				instrumented(ctx, "error", func(ictx context.Context) {
					c.onError(ictx, ErrorEvent{Message: err.Error()}, h)
				})
			}
			code := CloseAbnormalClosure
			if protocol {
				code = CloseProtocolError
			}
			logging.Warn(ctx, "wynd: connection read failed", zap.Error(err), zap.Bool("protocol", protocol))
			emitClose(CloseEvent{Code: code})
			break frameLoop
		}

		metrics.FramesTotal.WithLabelValues(msg.Kind.String(), "in").Inc()

		switch msg.Kind {
		case codec.KindText:
			if c.onText != nil {
				instrumented(ctx, "text", func(ictx context.Context) {
					c.onText(ictx, TextMessage{Data: msg.Text}, h)
				})
			}
		case codec.KindBinary:
			if c.onBinary != nil {
				instrumented(ctx, "binary", func(ictx context.Context) {
					c.onBinary(ictx, BinaryMessage{Data: msg.Binary}, h)
				})
			}
		case codec.KindPing:
			_ = send.sendPong(msg.Binary)
		case codec.KindPong:
			// discarded; leaves Pong with no user-visible effect.
		case codec.KindClose:
			code := msg.CloseCode
			if code == 0 {
				code = CloseNoStatusReceived
			}
			emitClose(CloseEvent{Code: code, Reason: msg.CloseCause})
			_ = send.sendClose(code, msg.CloseCause)
			break frameLoop
		}
	}
}

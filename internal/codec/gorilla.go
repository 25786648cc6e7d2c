package codec

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Upgrader performs the RFC 6455 handshake and wraps the resulting socket
// in a Conn. It is shared by both Owning mode (the accept loop in Listen)
// and Embedded mode (Server.Handler / Server.GinHandler).
type Upgrader struct {
	inner websocket.Upgrader
}

// NewUpgrader returns an Upgrader that accepts any origin; origin policy
// is an application concern layered on top by the embedder.
func NewUpgrader() *Upgrader {
	return &Upgrader{
		inner: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Upgrade completes the handshake on w/r and returns a Conn wrapping the
// resulting socket.
func (u *Upgrader) Upgrade(w http.ResponseWriter, r *http.Request) (Conn, error) {
	conn, err := u.inner.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return newGorillaConn(conn), nil
}

// gorillaConn adapts *websocket.Conn to Conn. Writes are serialized by
// writeMu because gorilla/websocket forbids concurrent writers on a single
// connection; the Runtime's Pong replies and a Handle's Text/Binary sends
// both funnel through Send, so this mutex is the single-writer discipline
// the send half requires.
type gorillaConn struct {
	conn       *websocket.Conn
	writeMu    sync.Mutex
	closed     bool
	closedOnce sync.Once
}

func newGorillaConn(c *websocket.Conn) *gorillaConn {
	return &gorillaConn{conn: c}
}

func (g *gorillaConn) RemoteAddr() string {
	if addr := g.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

func (g *gorillaConn) Recv() (Incoming, error) {
	messageType, data, err := g.conn.ReadMessage()
	if err != nil {
		if closeErr, ok := err.(*websocket.CloseError); ok {
			code := closeErr.Code
			if code == 0 {
				code = websocket.CloseNoStatusReceived
			}
			return Incoming{Kind: KindClose, CloseCode: uint16(code), CloseCause: closeErr.Text}, nil
		}
		return Incoming{}, &Error{Protocol: websocket.IsUnexpectedCloseError(err), Cause: err}
	}

	switch messageType {
	case websocket.TextMessage:
		return Incoming{Kind: KindText, Text: string(data)}, nil
	case websocket.BinaryMessage:
		return Incoming{Kind: KindBinary, Binary: data}, nil
	case websocket.PingMessage:
		return Incoming{Kind: KindPing, Binary: data}, nil
	case websocket.PongMessage:
		return Incoming{Kind: KindPong, Binary: data}, nil
	default:
		return Incoming{Kind: KindBinary, Binary: data}, nil
	}
}

func (g *gorillaConn) Send(msg Outgoing) error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	if g.closed {
		return &Error{Cause: errors.New("connection closed")}
	}

	const writeWait = 10 * time.Second
	_ = g.conn.SetWriteDeadline(time.Now().Add(writeWait))

	switch msg.Kind {
	case KindText:
		if err := g.conn.WriteMessage(websocket.TextMessage, []byte(msg.Text)); err != nil {
			return &Error{Cause: err}
		}
		return nil
	case KindBinary:
		if err := g.conn.WriteMessage(websocket.BinaryMessage, msg.Binary); err != nil {
			return &Error{Cause: err}
		}
		return nil
	case KindPong:
		if err := g.conn.WriteMessage(websocket.PongMessage, msg.Binary); err != nil {
			return &Error{Cause: err}
		}
		return nil
	case KindClose:
		data := websocket.FormatCloseMessage(int(msg.CloseCode), msg.CloseCause)
		err := g.conn.WriteMessage(websocket.CloseMessage, data)
		g.closed = true
		if err != nil {
			return &Error{Cause: err}
		}
		return nil
	default:
		return &Error{Cause: errors.New("unsupported outgoing message kind")}
	}
}

func (g *gorillaConn) Close() error {
	var err error
	g.closedOnce.Do(func() {
		g.writeMu.Lock()
		g.closed = true
		g.writeMu.Unlock()
		err = g.conn.Close()
	})
	return err
}

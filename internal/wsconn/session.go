// Package wsconn is the venue-agnostic WebSocket transport (C5). It owns the
// connection lifecycle - dial, ping/pong keepalive, optional post-connect
// handshake, and delivery of application frames to a single consumer - so
// that venue-specific protocol logic (subscribe handshakes, heartbeat
// replies) plugs in as a ControlFrameHandler instead of being duplicated
// per venue.
//
// Grounded on the teacher's pkg/exchange/binance/websocket.go BinanceWSConn,
// which drives gorilla/websocket with the same ping/pong-then-read loop;
// generalized here to take a pluggable handshake and control handler so the
// same session type also serves the heartbeat/subscribe-ack venue.
package wsconn

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sequex/depthgateway/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	readBufferSize = 1 << 20
)

// ControlFrameHandler lets a venue intercept every inbound frame before it
// reaches the application channel. Implementations reply to protocol-level
// control frames (heartbeats, subscribe acknowledgements) over conn and
// report whether the frame was fully consumed as control traffic.
type ControlFrameHandler interface {
	// HandleControlFrame inspects raw and, if it is a control frame,
	// responds on conn and returns handled=true so the session does not
	// also forward it to consumers as application data.
	HandleControlFrame(conn *websocket.Conn, raw []byte) (handled bool, err error)
}

// Options configures a Session's post-connect behavior.
type Options struct {
	// PostConnectDelay is slept once after the handshake completes, before
	// PostConnectFrame is sent. The Crypto.com-style venue requires roughly
	// one second of settle time before its subscribe frame is accepted.
	PostConnectDelay time.Duration
	// PostConnectFrame, if non-nil, is written once immediately after
	// PostConnectDelay elapses (e.g. a subscribe request).
	PostConnectFrame []byte
	// Control, if non-nil, is consulted for every inbound frame.
	Control ControlFrameHandler
}

// Session is one live WebSocket connection delivering decoded application
// frames on a bounded channel (256 frames, oldest-first, dropping the
// newest on overflow). A session never retries on its own; the owning
// subscription supervisor (C6) is responsible for reconnect/backoff.
type Session struct {
	conn   *websocket.Conn
	frames chan []byte
	errs   chan error
}

// Dial opens a WebSocket session to url, performs the optional post-connect
// handshake, and starts the read pump. The returned Session's Frames channel
// is closed when the connection ends for any reason; callers inspect Err()
// once Frames is drained to distinguish a clean Close() from a failure.
func Dial(ctx context.Context, url string, opts Options) (*Session, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   readBufferSize,
		WriteBufferSize:  readBufferSize,
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("wsconn: dial %s: %w", url, err)
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	conn.SetPingHandler(func(payload string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return writePong(conn, payload)
	})

	s := &Session{
		conn:   conn,
		frames: make(chan []byte, 256),
		errs:   make(chan error, 1),
	}

	if opts.PostConnectDelay > 0 {
		select {
		case <-time.After(opts.PostConnectDelay):
		case <-ctx.Done():
			conn.Close()
			return nil, ctx.Err()
		}
	}
	if opts.PostConnectFrame != nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, opts.PostConnectFrame); err != nil {
			conn.Close()
			return nil, fmt.Errorf("wsconn: post-connect write: %w", err)
		}
	}

	go s.pingLoop()
	go s.readLoop(opts.Control)
	return s, nil
}

// writePong answers a control-level ping with a pong carrying an identical
// payload, retrying once if the first write fails.
func writePong(conn *websocket.Conn, payload string) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := conn.WriteMessage(websocket.PongMessage, []byte(payload))
	if err == nil {
		return nil
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.PongMessage, []byte(payload))
}

func (s *Session) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for range ticker.C {
		s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
			return
		}
	}
}

func (s *Session) readLoop(control ControlFrameHandler) {
	defer close(s.frames)
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case s.errs <- err:
			default:
			}
			return
		}
		if control != nil {
			handled, err := control.HandleControlFrame(s.conn, raw)
			if err != nil {
				logger.Log.Warn().Err(err).Msg("wsconn: control frame handling failed")
			}
			if handled {
				continue
			}
		}
		select {
		case s.frames <- raw:
		default:
			logger.Log.Warn().Msg("wsconn: frame channel full, dropping frame")
		}
	}
}

// Frames returns the channel of raw application frames. It is closed when
// the underlying connection terminates.
func (s *Session) Frames() <-chan []byte { return s.frames }

// Err returns the error that ended the read loop, if any. Only meaningful
// after Frames has been observed closed.
func (s *Session) Err() error {
	select {
	case err := <-s.errs:
		return err
	default:
		return nil
	}
}

// Close terminates the session's connection. Safe to call once.
func (s *Session) Close() error {
	return s.conn.Close()
}

package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickfu415/landing-control/internal/engine"
	"github.com/rickfu415/landing-control/internal/metrics"
	"github.com/rickfu415/landing-control/internal/session"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Browser clients are served from arbitrary origins; auth is
	// handled by the token middleware, not the Origin header.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsFrame is the server-to-client message envelope.
type wsFrame struct {
	Type string `json:"type"` // "state", "result", or a control ack
	Data any    `json:"data,omitempty"`
}

// wsClientMessage is the client-to-server envelope. Control messages
// ("start", "pause", "resume", "reset") carry no payload; "input"
// carries an engine.Input.
type wsClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// handleStream upgrades to a WebSocket and streams telemetry frames
// for one session. Client messages are control inputs (engine.Input
// JSON), honored per the session's mode.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.getSession(w, r)
	if !ok {
		return
	}

	ip := clientIP(r, s.cfg.TrustProxy)
	if !s.limiter.acquire(ip) {
		s.logger.Warn("stream connection rejected", "remote_ip", ip,
			"active", s.limiter.count(ip))
		writeError(w, http.StatusTooManyRequests, "too many concurrent streams")
		return
	}
	defer s.limiter.release(ip)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	metrics.IncWSClients()
	defer metrics.DecWSClients()
	log := s.logger.With("session_id", sess.ID, "remote_ip", ip)
	log.Info("stream connected")

	// Reader: control messages and close detection. Acks go through
	// the write loop; the connection allows only one concurrent writer.
	readerDone := make(chan struct{})
	acks := make(chan string, 4)
	go func() {
		defer close(readerDone)
		conn.SetReadLimit(4096)
		conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		})
		for {
			var msg wsClientMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			conn.SetReadDeadline(time.Now().Add(wsPongTimeout))

			var ack string
			switch msg.Type {
			case "input":
				var in engine.Input
				if err := json.Unmarshal(msg.Data, &in); err != nil {
					continue
				}
				sess.SetInput(in)
			case "start", "resume":
				sess.Resume()
				ack = "resumed"
			case "pause":
				sess.Pause()
				ack = "paused"
			case "reset":
				sess.Reset()
				ack = "reset"
			default:
				log.Debug("unknown client message", "type", msg.Type)
			}
			if ack != "" {
				select {
				case acks <- ack:
				default:
				}
			}
		}
	}()

	ch := sess.Subscribe()
	defer sess.Unsubscribe(ch)

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-readerDone:
			log.Info("stream disconnected")
			return
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case ack := <-acks:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(wsFrame{Type: ack}); err != nil {
				return
			}
		case snap := <-ch:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(wsFrame{Type: "state", Data: snap}); err != nil {
				log.Debug("stream write failed", "error", err)
				return
			}
			metrics.IncWSMessages()

			if snap.Landed || snap.Crashed {
				s.sendResult(conn, sess, log)
				return
			}
		}
	}
}

// sendResult delivers the terminal frame: final score and flight
// events, then a normal close.
func (s *Server) sendResult(conn *websocket.Conn, sess *session.Session, log *slog.Logger) {
	finished, score := sess.Finished()
	if !finished {
		return
	}
	_, events := sess.Flight()
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(wsFrame{Type: "result", Data: map[string]any{
		"score":      score,
		"statistics": sess.Statistics(),
		"events":     events,
	}}); err != nil {
		return
	}
	metrics.IncWSMessages()
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "flight finished"),
		time.Now().Add(wsWriteTimeout))
	log.Info("stream finished")
}

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"brokersim/pkg/core"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin policy is enforced by the CORS layer on the REST surface;
		// the socket carries only an opaque session.
		return true
	},
}

// handleWebSocket upgrades the connection, subscribes it to the event bus
// and starts the pump pair. The subscription arrives pre-primed with
// user_info, order_book and orders_update.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("ws_upgrade_failed", "err", err)
		return
	}

	sub := s.ts.Subscribe(sess.AccountID)
	s.log.Infow("ws_connected", "account", sess.AccountID)

	// The request context dies with the handler; the hijacked connection
	// outlives it, so the pumps get their own.
	ctx, cancel := context.WithCancel(context.Background())
	go s.writePump(ctx, cancel, conn, sub)
	go s.readPump(cancel, conn)
}

// writePump drains the subscriber queue onto the socket. A lagged
// subscriber gets fresh snapshots before the next event so the client can
// reconcile whatever was dropped.
func (s *Server) writePump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, sub *core.Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		sub.Close()
		conn.Close()
		s.log.Infow("ws_disconnected", "account", sub.Account())
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		default:
		}

		waitCtx, waitCancel := context.WithTimeout(ctx, pingPeriod)
		evt, ok := sub.Next(waitCtx)
		waitCancel()
		if !ok {
			if ctx.Err() != nil {
				return
			}
			continue // timed out waiting; loop back for the ping tick
		}

		if sub.TakeLagged() {
			for _, snap := range s.ts.SnapshotEvents(sub.Account()) {
				if err := s.writeEvent(conn, snap); err != nil {
					return
				}
			}
		}
		if err := s.writeEvent(conn, evt); err != nil {
			return
		}
	}
}

func (s *Server) writeEvent(conn *websocket.Conn, evt core.Event) error {
	msg := WSMessage{Type: string(evt.Type), Data: s.eventData(evt)}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

// eventData converts core payloads to their wire shapes.
func (s *Server) eventData(evt core.Event) any {
	switch data := evt.Data.(type) {
	case core.UserSnapshot:
		return userInfoFrom(data)
	case core.BookSnapshot:
		return orderBookInfoFrom(data)
	case core.FillPayload:
		return fillInfoFrom(data)
	case core.AccountSnapshot:
		return balanceInfoFrom(data)
	case []core.Order:
		return ordersInfoFrom(data, s.symbol)
	case core.MarketDataPayload:
		return marketDataInfoFrom(data)
	default:
		return data
	}
}

// readPump discards client input; the channel is push-only. It exists to
// observe pongs and connection teardown.
func (s *Server) readPump(cancel context.CancelFunc, conn *websocket.Conn) {
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

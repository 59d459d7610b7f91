package realtime

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"huddle/internal/middleware"
	"huddle/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 64 * 1024
)

// Application close codes for handshake failures. Distinguishable so a
// client can tell "never sent a token" from "token rejected", without
// exposing more than that.
const (
	CloseMissingToken = 4001
	CloseInvalidToken = 4002
)

// WSHandler authenticates and runs realtime channels.
type WSHandler struct {
	registry   *Registry
	dispatcher *Dispatcher
	jwtService *jwt.Service
	sendBuffer int
	upgrader   websocket.Upgrader
}

func NewWSHandler(registry *Registry, dispatcher *Dispatcher, jwtService *jwt.Service, sendBuffer int) *WSHandler {
	h := &WSHandler{
		registry:   registry,
		dispatcher: dispatcher,
		jwtService: jwtService,
		sendBuffer: sendBuffer,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin(middleware.AllowedOrigins()),
	}
	return h
}

// checkOrigin admits same-host browsers, allowlisted origins and
// non-browser clients (no Origin header).
func checkOrigin(allowed map[string]bool) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
			return true
		}
		return allowed[origin]
	}
}

func (h *WSHandler) RegisterRoutes(v1 *gin.RouterGroup) {
	v1.GET("/ws", h.HandleWebSocket)
}

// HandleWebSocket upgrades the connection, authenticates the bearer
// credential (query parameter or Authorization header), and only then
// registers the channel. Auth failures close the socket with a
// distinguishing code before the channel ever joins the registry.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	token := bearerToken(c)

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws_upgrade_failed client_ip=%s error=%q", c.ClientIP(), err.Error())
		return
	}

	if token == "" {
		closeWith(ws, CloseMissingToken, "missing token")
		return
	}

	accountID, err := h.jwtService.Verify(token)
	if err != nil {
		closeWith(ws, CloseInvalidToken, "invalid token")
		return
	}

	conn := newConn(accountID, ws, h.sendBuffer)

	first := h.registry.Connect(accountID, conn)

	go h.writePump(conn)

	h.sendHello(conn)

	if first {
		h.dispatcher.BroadcastAll(NewPresenceEvent(PresenceOnline, accountID))
	}

	h.readLoop(conn) // blocks until disconnect

	last := h.registry.Disconnect(accountID, conn)
	conn.closeSend()

	if last {
		h.dispatcher.BroadcastAll(NewPresenceEvent(PresenceOffline, accountID))
	}
}

func (h *WSHandler) sendHello(c *Conn) {
	data, err := json.Marshal(NewHelloEvent(c.accountID, h.registry.OnlineIDs()))
	if err != nil {
		return
	}
	c.trySend(data)
}

func (h *WSHandler) sendEvent(c *Conn, msg *ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.trySend(data)
}

func (h *WSHandler) readLoop(c *Conn) {
	defer c.ws.Close()

	c.ws.SetReadLimit(maxMsgSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseAbnormalClosure) {
				log.Printf("ws_read_error account_id=%d error=%q", c.accountID, err.Error())
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.sendEvent(c, NewErrorEvent("INVALID_JSON", "Failed to parse message"))
			continue
		}

		switch msg.Type {
		case "ping":
			ts := msg.TS
			if ts == 0 {
				ts = time.Now().UnixMilli()
			}
			h.sendEvent(c, NewPongEvent(ts))
		case "subscribe_presence":
			h.sendHello(c)
		case "":
			h.sendEvent(c, NewErrorEvent("MISSING_TYPE", "Message type is required"))
		default:
			h.sendEvent(c, NewErrorEvent("UNKNOWN_TYPE", "Unknown message type: "+msg.Type))
		}
	}
}

func (h *WSHandler) writePump(c *Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func bearerToken(c *gin.Context) string {
	if token := strings.TrimSpace(c.Query("token")); token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

func closeWith(ws *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(writeWait)
	ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	ws.Close()
}

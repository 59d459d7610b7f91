package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"huddle/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWSTestServer(t *testing.T) (*httptest.Server, *jwt.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtService := jwt.New("ws-test-secret", "huddle-test", time.Hour)

	registry := NewRegistry()
	dispatcher := NewDispatcher(registry)
	handler := NewWSHandler(registry, dispatcher, jwtService, 16)

	router := gin.New()
	handler.RegisterRoutes(router.Group("/api/v1"))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, jwtService
}

func wsURL(srv *httptest.Server, query string) string {
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	if query != "" {
		u += "?" + query
	}
	return u
}

func dialAs(t *testing.T, srv *httptest.Server, jwtService *jwt.Service, accountID int64) *websocket.Conn {
	t.Helper()
	token, err := jwtService.Sign(accountID)
	require.NoError(t, err)

	ws, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "token="+token), nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readServerMessage(t *testing.T, ws *websocket.Conn) ServerMessage {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := ws.ReadMessage()
	require.NoError(t, err)

	var msg ServerMessage
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func expectNoMessage(t *testing.T, ws *websocket.Conn) {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, raw, err := ws.ReadMessage()
	if err == nil {
		t.Fatalf("expected silence, got frame: %s", raw)
	}
	netErr, ok := err.(interface{ Timeout() bool })
	require.True(t, ok && netErr.Timeout(), "expected read timeout, got %v", err)
}

func expectCloseCode(t *testing.T, ws *websocket.Conn, code int) {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := ws.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, code), "expected close code %d, got %v", code, err)
}

func TestWS_MissingToken(t *testing.T) {
	srv, _ := newWSTestServer(t)

	// The upgrade itself succeeds; the rejection arrives as a close frame.
	ws, _, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	require.NoError(t, err)
	defer ws.Close()

	expectCloseCode(t, ws, CloseMissingToken)
}

func TestWS_InvalidToken(t *testing.T) {
	srv, _ := newWSTestServer(t)

	ws, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "token=not-a-jwt"), nil)
	require.NoError(t, err)
	defer ws.Close()

	expectCloseCode(t, ws, CloseInvalidToken)
}

func TestWS_TokenViaAuthorizationHeader(t *testing.T) {
	srv, jwtService := newWSTestServer(t)

	token, err := jwtService.Sign(5)
	require.NoError(t, err)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	ws, _, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), header)
	require.NoError(t, err)
	defer ws.Close()

	hello := readServerMessage(t, ws)
	assert.Equal(t, "hello", hello.Type)
	assert.Equal(t, int64(5), hello.UserID)
}

// Browser connections carry an Origin header; only allowlisted or
// same-host origins may upgrade. Clients without one (the other tests
// here) are let through.
func TestWS_OriginPolicy(t *testing.T) {
	srv, jwtService := newWSTestServer(t)

	token, err := jwtService.Sign(3)
	require.NoError(t, err)

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "token="+token), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "http://localhost:3000")
	ws, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "token="+token), header)
	require.NoError(t, err)
	defer ws.Close()
	assert.Equal(t, "hello", readServerMessage(t, ws).Type)
}

func TestWS_HelloOnConnect(t *testing.T) {
	srv, jwtService := newWSTestServer(t)

	ws := dialAs(t, srv, jwtService, 7)

	hello := readServerMessage(t, ws)
	assert.Equal(t, "hello", hello.Type)
	assert.Equal(t, int64(7), hello.UserID)
	assert.Contains(t, hello.Online, int64(7))

	// First channel for the identity: its own online edge is broadcast too.
	edge := readServerMessage(t, ws)
	assert.Equal(t, "presence", edge.Type)
	assert.Equal(t, PresenceOnline, edge.Event)
	assert.Equal(t, int64(7), edge.UserID)
}

func TestWS_PingPong(t *testing.T) {
	srv, jwtService := newWSTestServer(t)

	ws := dialAs(t, srv, jwtService, 1)
	readServerMessage(t, ws) // hello
	readServerMessage(t, ws) // own online edge

	require.NoError(t, ws.WriteJSON(ClientMessage{Type: "ping", TS: 12345}))

	pong := readServerMessage(t, ws)
	assert.Equal(t, "pong", pong.Type)
	assert.Equal(t, int64(12345), pong.TS)
}

func TestWS_SubscribePresence(t *testing.T) {
	srv, jwtService := newWSTestServer(t)

	ws := dialAs(t, srv, jwtService, 1)
	readServerMessage(t, ws)
	readServerMessage(t, ws)

	require.NoError(t, ws.WriteJSON(ClientMessage{Type: "subscribe_presence"}))

	snapshot := readServerMessage(t, ws)
	assert.Equal(t, "hello", snapshot.Type)
	assert.Contains(t, snapshot.Online, int64(1))
}

func TestWS_MalformedAndUnknownMessages(t *testing.T) {
	srv, jwtService := newWSTestServer(t)

	ws := dialAs(t, srv, jwtService, 1)
	readServerMessage(t, ws)
	readServerMessage(t, ws)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{not json")))
	resp := readServerMessage(t, ws)
	assert.Equal(t, "error", resp.Type)
	assert.Equal(t, "INVALID_JSON", resp.ErrorCode)

	require.NoError(t, ws.WriteJSON(ClientMessage{Type: "teleport"}))
	resp = readServerMessage(t, ws)
	assert.Equal(t, "error", resp.Type)
	assert.Equal(t, "UNKNOWN_TYPE", resp.ErrorCode)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"ts":1}`)))
	resp = readServerMessage(t, ws)
	assert.Equal(t, "error", resp.Type)
	assert.Equal(t, "MISSING_TYPE", resp.ErrorCode)

	// The connection survives all of it.
	require.NoError(t, ws.WriteJSON(ClientMessage{Type: "ping", TS: 1}))
	assert.Equal(t, "pong", readServerMessage(t, ws).Type)
}

// Presence edges fire only on the first and last channel of an identity.
// An observer sees one online when the other account's first channel
// joins, silence for the second channel and the first close, and one
// offline when the final channel goes away.
func TestWS_PresenceEdgesWithMultipleChannels(t *testing.T) {
	srv, jwtService := newWSTestServer(t)

	observer := dialAs(t, srv, jwtService, 1)
	readServerMessage(t, observer) // hello
	readServerMessage(t, observer) // own online edge

	first := dialAs(t, srv, jwtService, 2)
	readServerMessage(t, first)

	edge := readServerMessage(t, observer)
	assert.Equal(t, "presence", edge.Type)
	assert.Equal(t, PresenceOnline, edge.Event)
	assert.Equal(t, int64(2), edge.UserID)

	second := dialAs(t, srv, jwtService, 2)
	hello := readServerMessage(t, second)
	assert.Equal(t, "hello", hello.Type)
	assert.ElementsMatch(t, []int64{1, 2}, hello.Online)

	// Second channel of an already-online identity: no edge.
	expectNoMessage(t, observer)

	// Dropping one of two channels: still online, no edge.
	require.NoError(t, first.Close())
	expectNoMessage(t, observer)

	require.NoError(t, second.Close())
	edge = readServerMessage(t, observer)
	assert.Equal(t, "presence", edge.Type)
	assert.Equal(t, PresenceOffline, edge.Event)
	assert.Equal(t, int64(2), edge.UserID)
}

package realtime

// ClientMessage is the inbound frame shape, discriminated by Type.
type ClientMessage struct {
	Type string `json:"type"`
	TS   int64  `json:"ts,omitempty"`
}

// ServerMessage covers every server-initiated frame.
type ServerMessage struct {
	Type         string  `json:"type"`
	UserID       int64   `json:"user_id,omitempty"`
	Online       []int64 `json:"online,omitempty"`
	Event        string  `json:"event,omitempty"`
	TS           int64   `json:"ts,omitempty"`
	ErrorCode    string  `json:"code,omitempty"`
	ErrorMessage string  `json:"message,omitempty"`
}

const (
	PresenceOnline  = "online"
	PresenceOffline = "offline"
)

func NewHelloEvent(accountID int64, online []int64) *ServerMessage {
	if online == nil {
		online = []int64{}
	}
	return &ServerMessage{
		Type:   "hello",
		UserID: accountID,
		Online: online,
	}
}

func NewPongEvent(ts int64) *ServerMessage {
	return &ServerMessage{
		Type: "pong",
		TS:   ts,
	}
}

func NewPresenceEvent(event string, accountID int64) *ServerMessage {
	return &ServerMessage{
		Type:   "presence",
		Event:  event,
		UserID: accountID,
	}
}

func NewErrorEvent(code, message string) *ServerMessage {
	return &ServerMessage{
		Type:         "error",
		ErrorCode:    code,
		ErrorMessage: message,
	}
}

package friend

// Event is the realtime envelope for friend activity. UserID is the other
// party from the recipient's point of view.
type Event struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	UserID    int64  `json:"user_id,omitempty"`
}

const (
	EventRequest     = "friend_request"
	EventAccepted    = "friend_accepted"
	EventDeclined    = "friend_declined"
	EventListChanged = "friend_list_changed"
)

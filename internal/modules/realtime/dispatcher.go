package realtime

import (
	"encoding/json"
	"log"
)

// Dispatcher fans typed events out to live connections. Delivery is
// fire-and-forget: enqueueing never blocks the caller, and one slow or dead
// connection cannot affect delivery to the rest.
type Dispatcher struct {
	registry *Registry
}

func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// SendToIdentities delivers the event to every live connection of the named
// accounts. Offline accounts are skipped silently: presence is ephemeral,
// not a durable inbox.
func (d *Dispatcher) SendToIdentities(accountIDs []int64, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("dispatch_marshal_failed error=%q", err.Error())
		return
	}
	for _, c := range d.registry.connsFor(accountIDs) {
		if !c.trySend(data) {
			log.Printf("dispatch_drop account_id=%d dropped_total=%d", c.AccountID(), c.Dropped())
		}
	}
}

// BroadcastAll delivers the event to every live connection system-wide.
// Used sparingly, for presence transitions and payload-free change signals.
func (d *Dispatcher) BroadcastAll(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("dispatch_marshal_failed error=%q", err.Error())
		return
	}
	for _, c := range d.registry.allConns() {
		if !c.trySend(data) {
			log.Printf("dispatch_drop account_id=%d dropped_total=%d", c.AccountID(), c.Dropped())
		}
	}
}

package realtime

import "sync"

const shardCount = 32

// Registry tracks which accounts currently have live connections. It is
// sharded by account id so concurrent connects/disconnects of unrelated
// accounts never contend on one lock.
type Registry struct {
	shards [shardCount]registryShard
}

type registryShard struct {
	mu    sync.RWMutex
	conns map[int64]map[*Conn]struct{}
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i].conns = make(map[int64]map[*Conn]struct{})
	}
	return r
}

func (r *Registry) shardFor(accountID int64) *registryShard {
	return &r.shards[uint64(accountID)%shardCount]
}

// Connect registers a connection and reports whether it is the account's
// first live one — the 0→1 edge that presence broadcasts key off.
func (r *Registry) Connect(accountID int64, c *Conn) (first bool) {
	s := r.shardFor(accountID)
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.conns[accountID]
	if !ok {
		set = make(map[*Conn]struct{})
		s.conns[accountID] = set
	}
	first = len(set) == 0
	set[c] = struct{}{}
	return first
}

// Disconnect removes a connection and reports whether it was the account's
// last live one (the 1→0 edge). Safe to call more than once for the same
// connection: repeats are no-ops reporting false.
func (r *Registry) Disconnect(accountID int64, c *Conn) (last bool) {
	s := r.shardFor(accountID)
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.conns[accountID]
	if !ok {
		return false
	}
	if _, present := set[c]; !present {
		return false
	}
	delete(set, c)
	if len(set) == 0 {
		// Empty sets are removed immediately so an account is never
		// reported online with zero connections.
		delete(s.conns, accountID)
		return true
	}
	return false
}

func (r *Registry) IsOnline(accountID int64) bool {
	s := r.shardFor(accountID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns[accountID]) > 0
}

// OnlineIDs returns every account with at least one live connection. Each
// shard is snapshotted under its own read lock.
func (r *Registry) OnlineIDs() []int64 {
	var ids []int64
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		for id := range s.conns {
			ids = append(ids, id)
		}
		s.mu.RUnlock()
	}
	return ids
}

// connsFor collects the live connections of the named accounts.
func (r *Registry) connsFor(accountIDs []int64) []*Conn {
	var out []*Conn
	for _, id := range accountIDs {
		s := r.shardFor(id)
		s.mu.RLock()
		for c := range s.conns[id] {
			out = append(out, c)
		}
		s.mu.RUnlock()
	}
	return out
}

// allConns collects every live connection system-wide.
func (r *Registry) allConns() []*Conn {
	var out []*Conn
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		for _, set := range s.conns {
			for c := range set {
				out = append(out, c)
			}
		}
		s.mu.RUnlock()
	}
	return out
}

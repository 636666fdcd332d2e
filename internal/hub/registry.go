// Package hub holds the shared connection state of the real-time hub: the
// user-to-connections registry (which doubles as the presence tracker) and
// the topic subscription table. Both shard by key so that churn on one user
// or topic never serializes behind unrelated activity.
package hub

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Saketh-spark/KLH-UniConnect-sub001/internal/metrics"
	"github.com/Saketh-spark/KLH-UniConnect-sub001/pkg/protocol"
)

// Handle is the registry's non-owning reference to one open client channel.
// *transport.Connection satisfies it; tests substitute fakes.
type Handle interface {
	ID() uuid.UUID
	Send(msg []byte)
	Close(err error)
}

const defaultShards = 16

type handleRef struct {
	handle   Handle
	openedAt time.Time
}

type userEntry struct {
	role  string
	conns map[uuid.UUID]handleRef
}

type registryShard struct {
	mu    sync.RWMutex
	users map[string]*userEntry
}

// Registry maps each user id to the set of its currently open handles. A user
// key exists iff its set is non-empty, so presence checks are key lookups.
type Registry struct {
	logger *slog.Logger
	shards []registryShard
}

func NewRegistry(logger *slog.Logger, shards int) *Registry {
	if shards <= 0 {
		shards = defaultShards
	}
	r := &Registry{
		logger: logger.With(slog.String("component", "registry")),
		shards: make([]registryShard, shards),
	}
	for i := range r.shards {
		r.shards[i].users = make(map[string]*userEntry)
	}
	return r
}

func (r *Registry) shard(userID string) *registryShard {
	var x uint32
	for i := 0; i < len(userID); i++ {
		x = x*131 + uint32(userID[i])
	}
	return &r.shards[int(x)%len(r.shards)]
}

// Register adds a handle to the user's set and returns the current online
// user snapshot for the new connection to consume. The first handle for a
// user triggers a presence-online broadcast to everyone else.
func (r *Registry) Register(userID, role string, h Handle) []string {
	sh := r.shard(userID)

	sh.mu.Lock()
	entry, existed := sh.users[userID]
	if !existed {
		entry = &userEntry{role: role, conns: make(map[uuid.UUID]handleRef)}
		sh.users[userID] = entry
	}
	if _, dup := entry.conns[h.ID()]; dup {
		// Double-register is a programming error; guard rather than crash.
		sh.mu.Unlock()
		r.logger.Warn("Handle registered twice, ignoring", slog.String("userID", userID), slog.String("connID", h.ID().String()))
		return r.OnlineUsers()
	}
	entry.conns[h.ID()] = handleRef{handle: h, openedAt: time.Now()}
	sh.mu.Unlock()

	metrics.ConnectionsActive.Inc()
	if !existed {
		metrics.UsersOnline.Inc()
		r.broadcastStatus(userID, protocol.StatusOnline)
	}

	r.logger.Debug("Connection registered",
		slog.String("userID", userID),
		slog.String("connID", h.ID().String()),
	)
	return r.OnlineUsers()
}

// Unregister removes one handle. When the user's last handle goes away the
// key is pruned and a presence-offline broadcast goes out. Unknown pairs are
// a no-op, so close paths may race without harm.
func (r *Registry) Unregister(userID string, connID uuid.UUID) {
	sh := r.shard(userID)

	sh.mu.Lock()
	entry, ok := sh.users[userID]
	if !ok {
		sh.mu.Unlock()
		return
	}
	if _, ok := entry.conns[connID]; !ok {
		sh.mu.Unlock()
		return
	}
	delete(entry.conns, connID)
	wentOffline := len(entry.conns) == 0
	if wentOffline {
		delete(sh.users, userID)
	}
	sh.mu.Unlock()

	metrics.ConnectionsActive.Dec()
	if wentOffline {
		metrics.UsersOnline.Dec()
		r.broadcastStatus(userID, protocol.StatusOffline)
	}

	r.logger.Debug("Connection unregistered",
		slog.String("userID", userID),
		slog.String("connID", connID.String()),
	)
}

// SendTo writes payload to every open handle of userID, best effort. An
// offline user is a silent no-op.
func (r *Registry) SendTo(userID string, payload []byte) {
	for _, h := range r.handlesOf(userID) {
		h.Send(payload)
	}
}

func (r *Registry) IsOnline(userID string) bool {
	sh := r.shard(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	_, ok := sh.users[userID]
	return ok
}

// OnlineUsers lists every user id with at least one open handle.
func (r *Registry) OnlineUsers() []string {
	users := make([]string, 0, 32)
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		for id := range sh.users {
			users = append(users, id)
		}
		sh.mu.RUnlock()
	}
	return users
}

// UsersByRole lists online users carrying the given role tag.
func (r *Registry) UsersByRole(role string) []string {
	users := make([]string, 0, 32)
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		for id, entry := range sh.users {
			if entry.role == role {
				users = append(users, id)
			}
		}
		sh.mu.RUnlock()
	}
	return users
}

func (r *Registry) ConnectionCount(userID string) int {
	sh := r.shard(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	entry, ok := sh.users[userID]
	if !ok {
		return 0
	}
	return len(entry.conns)
}

// OldestConnection returns the user's longest-lived handle, used by the
// connection limiter's cycle mode.
func (r *Registry) OldestConnection(userID string) (Handle, bool) {
	sh := r.shard(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	entry, ok := sh.users[userID]
	if !ok {
		return nil, false
	}
	var oldest Handle
	var oldestAt time.Time
	for _, ref := range entry.conns {
		if oldest == nil || ref.openedAt.Before(oldestAt) {
			oldest = ref.handle
			oldestAt = ref.openedAt
		}
	}
	return oldest, oldest != nil
}

// CloseAll closes every registered handle; used during shutdown. Each close
// unwinds through the normal Unregister path.
func (r *Registry) CloseAll(reason error) {
	var all []Handle
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		for _, entry := range sh.users {
			for _, ref := range entry.conns {
				all = append(all, ref.handle)
			}
		}
		sh.mu.RUnlock()
	}
	for _, h := range all {
		h.Close(reason)
	}
}

// handlesOf snapshots a user's handles so sends happen outside the lock.
func (r *Registry) handlesOf(userID string) []Handle {
	sh := r.shard(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	entry, ok := sh.users[userID]
	if !ok {
		return nil
	}
	handles := make([]Handle, 0, len(entry.conns))
	for _, ref := range entry.conns {
		handles = append(handles, ref.handle)
	}
	return handles
}

// broadcastStatus fans a user-status frame out to every online user except
// the one transitioning.
func (r *Registry) broadcastStatus(userID, status string) {
	frame, err := protocol.UserStatusFrame(userID, status)
	if err != nil {
		r.logger.Error("Failed to encode user-status frame", slog.Any("error", err))
		return
	}

	var targets []Handle
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		for id, entry := range sh.users {
			if id == userID {
				continue
			}
			for _, ref := range entry.conns {
				targets = append(targets, ref.handle)
			}
		}
		sh.mu.RUnlock()
	}
	for _, h := range targets {
		h.Send(frame)
	}

	r.logger.Debug("Presence transition broadcast",
		slog.String("userID", userID),
		slog.String("status", status),
		slog.Int("recipients", len(targets)),
	)
}

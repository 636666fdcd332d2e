package hub

import (
	"log/slog"
	"sync"

	"github.com/Saketh-spark/KLH-UniConnect-sub001/internal/metrics"
)

type tableShard struct {
	mu     sync.RWMutex
	topics map[string]map[string]struct{} // topic -> set of user ids
}

// Table maps topic keys to subscriber user ids. Subscriptions reference users,
// not handles: delivery re-resolves through the Registry at fan-out time, so a
// subscriber with no open connections simply receives nothing. Empty
// subscriber sets are pruned, same rule as the Registry.
type Table struct {
	logger *slog.Logger
	shards []tableShard
}

func NewTable(logger *slog.Logger, shards int) *Table {
	if shards <= 0 {
		shards = defaultShards
	}
	t := &Table{
		logger: logger.With(slog.String("component", "topic_table")),
		shards: make([]tableShard, shards),
	}
	for i := range t.shards {
		t.shards[i].topics = make(map[string]map[string]struct{})
	}
	return t
}

func (t *Table) shard(topic string) *tableShard {
	var x uint32
	for i := 0; i < len(topic); i++ {
		x = x*131 + uint32(topic[i])
	}
	return &t.shards[int(x)%len(t.shards)]
}

func (t *Table) Subscribe(topic, userID string) {
	sh := t.shard(topic)
	sh.mu.Lock()
	set := sh.topics[topic]
	if set == nil {
		set = make(map[string]struct{})
		sh.topics[topic] = set
		metrics.TopicsActive.Inc()
	}
	set[userID] = struct{}{}
	sh.mu.Unlock()

	t.logger.Debug("Subscribed", slog.String("topic", topic), slog.String("userID", userID))
}

func (t *Table) Unsubscribe(topic, userID string) {
	sh := t.shard(topic)
	sh.mu.Lock()
	if set := sh.topics[topic]; set != nil {
		delete(set, userID)
		if len(set) == 0 {
			delete(sh.topics, topic)
			metrics.TopicsActive.Dec()
		}
	}
	sh.mu.Unlock()

	t.logger.Debug("Unsubscribed", slog.String("topic", topic), slog.String("userID", userID))
}

// Subscribers returns a copy of the topic's subscriber set.
func (t *Table) Subscribers(topic string) []string {
	sh := t.shard(topic)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	set, ok := sh.topics[topic]
	if !ok {
		return nil
	}
	subs := make([]string, 0, len(set))
	for id := range set {
		subs = append(subs, id)
	}
	return subs
}

// Count reports how many topics currently have subscribers.
func (t *Table) Count() int {
	n := 0
	for i := range t.shards {
		sh := &t.shards[i]
		sh.mu.RLock()
		n += len(sh.topics)
		sh.mu.RUnlock()
	}
	return n
}

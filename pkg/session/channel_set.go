package session

import (
	"hash/maphash"
	"sync"

	"github.com/google/uuid"
)

// must be a power of 2
const setShardCount = 16

type setShard struct {
	mu       sync.RWMutex
	channels map[uuid.UUID]Channel
}

// channelSet is a concurrency safe set of channels keyed by channel id.
// Each shard has its own lock so adds and removes for different
// connections rarely contend. Iteration works on a snapshot: a channel
// added meanwhile may or may not be seen, one removed meanwhile may still
// be visited and must tolerate a write after close.
type channelSet struct {
	shards [setShardCount]*setShard
	seed   maphash.Seed
}

func newChannelSet() *channelSet {
	s := &channelSet{seed: maphash.MakeSeed()}
	for i := 0; i < setShardCount; i++ {
		s.shards[i] = &setShard{channels: make(map[uuid.UUID]Channel)}
	}
	return s
}

func (s *channelSet) shard(id uuid.UUID) *setShard {
	h := maphash.Bytes(s.seed, id[:])
	return s.shards[h&(setShardCount-1)]
}

func (s *channelSet) add(ch Channel) {
	sh := s.shard(ch.ID())
	sh.mu.Lock()
	sh.channels[ch.ID()] = ch
	sh.mu.Unlock()
}

// remove reports whether the channel was present.
func (s *channelSet) remove(id uuid.UUID) bool {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.channels[id]; !ok {
		return false
	}
	delete(sh.channels, id)
	return true
}

func (s *channelSet) contains(id uuid.UUID) bool {
	sh := s.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	_, ok := sh.channels[id]
	return ok
}

func (s *channelSet) size() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.channels)
		sh.mu.RUnlock()
	}
	return n
}

// snapshot copies the members out shard by shard so callers iterate
// without holding any lock.
func (s *channelSet) snapshot() []Channel {
	var all []Channel
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, ch := range sh.channels {
			all = append(all, ch)
		}
		sh.mu.RUnlock()
	}
	return all
}

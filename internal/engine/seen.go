package engine

import (
	"time"

	"github.com/arjunv/wavesyncdb/internal/ids"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// seenCache deduplicates incoming op_ids at the transport layer: a
// gossiped operation may arrive from several peers, or be replayed by
// anti-entropy with a fresh op_id for the same row state, and we only
// want to run conflict resolution once per wire delivery.
type seenCache struct {
	lru *expirable.LRU[ids.OpID, struct{}]
}

const (
	seenCacheSize = 8192
	seenCacheTTL  = 5 * time.Minute
)

func newSeenCache() *seenCache {
	return &seenCache{lru: expirable.NewLRU[ids.OpID, struct{}](seenCacheSize, nil, seenCacheTTL)}
}

// MarkSeen records op as seen and reports whether it had already been
// recorded.
func (s *seenCache) MarkSeen(op ids.OpID) (alreadySeen bool) {
	if _, ok := s.lru.Get(op); ok {
		return true
	}
	s.lru.Add(op, struct{}{})
	return false
}

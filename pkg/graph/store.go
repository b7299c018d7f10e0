package graph

import (
	"sync"
	"time"

	"github.com/a-essam23/go-devicehub/pkg/model"
	"github.com/jellydator/ttlcache/v3"
)

type Sample struct {
	Value string    `json:"value"`
	Ts    time.Time `json:"ts"`
}

type seriesKey struct {
	userID string
	key    model.GraphKey
}

// Store keeps the most recent samples of every graphed pin in memory. A
// series that receives no writes for the configured TTL is evicted.
type Store struct {
	mu         sync.Mutex
	series     *ttlcache.Cache[seriesKey, []Sample]
	maxSamples int
}

func NewStore(ttl time.Duration, maxSamples int) *Store {
	if maxSamples <= 0 {
		maxSamples = 1
	}
	return &Store{
		series: ttlcache.New[seriesKey, []Sample](
			ttlcache.WithTTL[seriesKey, []Sample](ttl),
			ttlcache.WithDisableTouchOnHit[seriesKey, []Sample](),
		),
		maxSamples: maxSamples,
	}
}

// Start runs the expiry loop until Stop is called.
func (s *Store) Start() { s.series.Start() }
func (s *Store) Stop()  { s.series.Stop() }

func (s *Store) Append(userID string, key model.GraphKey, value string, ts time.Time) {
	k := seriesKey{userID: userID, key: key}

	s.mu.Lock()
	defer s.mu.Unlock()

	var samples []Sample
	if item := s.series.Get(k); item != nil {
		samples = item.Value()
	}
	samples = append(samples, Sample{Value: value, Ts: ts})
	if over := len(samples) - s.maxSamples; over > 0 {
		samples = append([]Sample(nil), samples[over:]...)
	}
	s.series.Set(k, samples, ttlcache.DefaultTTL)
}

// Samples returns a copy of the stored series, oldest first.
func (s *Store) Samples(userID string, key model.GraphKey) []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.series.Get(seriesKey{userID: userID, key: key})
	if item == nil {
		return []Sample{}
	}
	return append([]Sample(nil), item.Value()...)
}

func (s *Store) Len() int {
	return s.series.Len()
}

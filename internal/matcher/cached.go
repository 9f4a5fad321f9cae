package matcher

import (
	"hash/fnv"
	"sort"
	"strconv"
	"time"

	"github.com/oddsaxiom/pipeline/pkg/cache"
	"go.uber.org/zap"
)

// DefaultCacheTTL bounds how long a clustering result is reused. Titles churn
// slowly, so a minute of reuse removes almost all of the fuzzy-match cost on
// the hot read path.
const DefaultCacheTTL = 60 * time.Second

// Config holds cached matcher configuration.
type Config struct {
	CacheTTL time.Duration
	Logger   *zap.Logger
}

// Matcher clusters titles and memoises the result keyed by the title set.
type Matcher struct {
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// New creates a Matcher with an in-process ristretto cache.
func New(cfg Config) (*Matcher, error) {
	c, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
		Logger:      cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Matcher{cache: c, ttl: ttl, logger: cfg.Logger}, nil
}

// CanonicalMap returns the canonical-title map for the given titles, serving
// from cache when the exact same title set was clustered recently.
func (m *Matcher) CanonicalMap(titles []string, categories, venues map[string]string) map[string]string {
	key := titleSetKey(titles)
	if v, ok := m.cache.Get(key); ok {
		if cached, ok := v.(map[string]string); ok {
			return cached
		}
	}

	start := time.Now()
	result := Cluster(titles, categories, venues)
	ClusterDurationSeconds.Observe(time.Since(start).Seconds())
	ClustersBuiltTotal.Inc()
	m.logger.Debug("canonical-map-built",
		zap.Int("titles", len(titles)),
		zap.Int("clusters", countClusters(result)),
		zap.Duration("elapsed", time.Since(start)))

	m.cache.Set(key, result, m.ttl)
	return result
}

// Close releases the underlying cache.
func (m *Matcher) Close() {
	m.cache.Close()
}

// titleSetKey hashes the sorted title set, so input order does not fragment
// the cache.
func titleSetKey(titles []string) string {
	sorted := make([]string, len(titles))
	copy(sorted, titles)
	sort.Strings(sorted)

	h := fnv.New64a()
	for _, t := range sorted {
		h.Write([]byte(t))
		h.Write([]byte{0})
	}
	return "titleset:" + strconv.FormatUint(h.Sum64(), 16)
}

func countClusters(canonical map[string]string) int {
	reps := make(map[string]struct{}, len(canonical))
	for _, rep := range canonical {
		reps[rep] = struct{}{}
	}
	return len(reps)
}

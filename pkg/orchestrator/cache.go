package orchestrator

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// maxCacheSize bounds the decision cache; once full, the least-recently
// inserted entry is evicted (a FIFO approximation of LRU, acceptable
// because TTL dominates eviction in practice).
const maxCacheSize = 1000

// decisionCacheTTL bounds how long a prediction is served from cache
// before the orchestrator re-runs the full pipeline.
const decisionCacheTTL = 1 * time.Hour

// CacheKey computes SHA-256(patient_id ":" lower(drug_name) ":" insurer_id),
// hex-encoded.
func CacheKey(patientID, drugName, insurerID string) string {
	h := sha256.New()
	h.Write([]byte(patientID))
	h.Write([]byte(":"))
	h.Write([]byte(strings.ToLower(drugName)))
	h.Write([]byte(":"))
	h.Write([]byte(insurerID))
	return hex.EncodeToString(h.Sum(nil))
}

type cacheEntry struct {
	result domain.AnalysisResult
	at     time.Time
}

// decisionCache is a bounded, mutex-guarded cache of finalized
// AnalysisResults, keyed by CacheKey. Values are deep-copied on insert and
// on read so no caller can alias cached state.
type decisionCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	order   []string // insertion order, for FIFO eviction
	clock   func() time.Time
}

func newDecisionCache(clock func() time.Time) *decisionCache {
	if clock == nil {
		clock = time.Now
	}
	return &decisionCache{entries: make(map[string]*cacheEntry), clock: clock}
}

// Get returns a deep copy of the cached result and its age, if present and
// unexpired.
func (c *decisionCache) Get(key string) (domain.AnalysisResult, time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return domain.AnalysisResult{}, 0, false
	}
	age := c.clock().Sub(entry.at)
	if age > decisionCacheTTL {
		return domain.AnalysisResult{}, 0, false
	}
	return deepCopyResult(entry.result), age, true
}

// Put inserts a deep copy of result under key, evicting the
// least-recently-inserted entry if the cache is full.
func (c *decisionCache) Put(key string, result domain.AnalysisResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		if len(c.order) >= maxCacheSize {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = &cacheEntry{result: deepCopyResult(result), at: c.clock()}
}

func deepCopyResult(r domain.AnalysisResult) domain.AnalysisResult {
	cp := r
	cp.EvidenceItems = append([]domain.EvidenceItem(nil), r.EvidenceItems...)
	cp.IdentifiedGaps = append([]string(nil), r.IdentifiedGaps...)
	cp.Recommendations = append([]string(nil), r.Recommendations...)
	cp.AlternativeOptions = append([]domain.EnrichedAlternative(nil), r.AlternativeOptions...)
	cp.AuditTrail = append([]domain.AuditEntry(nil), r.AuditTrail...)
	if r.CacheAgeSeconds != nil {
		v := *r.CacheAgeSeconds
		cp.CacheAgeSeconds = &v
	}
	return cp
}

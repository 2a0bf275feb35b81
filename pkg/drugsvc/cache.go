package drugsvc

import (
	"container/list"
	"sync"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// maxDrugCacheEntries bounds the in-process drug-info LRU cache.
const maxDrugCacheEntries = 1000

type drugCacheValue struct {
	key  string
	info domain.DrugInformation
}

// drugCache is a size-bounded LRU cache keyed by normalized drug name.
// container/list backs the recency order so eviction and promotion are
// both O(1), unlike the map-reinsertion trick used elsewhere in this
// module for smaller caches.
type drugCache struct {
	mu    sync.Mutex
	ll    *list.List
	index map[string]*list.Element
}

func newDrugCache() *drugCache {
	return &drugCache{ll: list.New(), index: make(map[string]*list.Element)}
}

func (c *drugCache) get(key string) (domain.DrugInformation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.index[key]
	if !ok {
		return domain.DrugInformation{}, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*drugCacheValue).info, true
}

func (c *drugCache) put(key string, info domain.DrugInformation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		c.ll.MoveToFront(el)
		el.Value.(*drugCacheValue).info = info
		return
	}
	el := c.ll.PushFront(&drugCacheValue{key: key, info: info})
	c.index[key] = el
	if c.ll.Len() > maxDrugCacheEntries {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.index, oldest.Value.(*drugCacheValue).key)
		}
	}
}

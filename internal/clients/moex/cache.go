package moex

import (
	"sync"

	"github.com/ivstorm/folio/internal/models"
)

// cache holds ISS responses for the life of the process. Entries are
// written once per key and never evicted: the working set is bounded by
// the instruments a portfolio touches. Concurrent first fetches for the
// same key may both populate it; the data is identical, so last write
// wins without coordination beyond the mutex.
type cache struct {
	mu      sync.RWMutex
	spec    map[string]*models.SecuritySpec
	info    map[string]*models.BoardInfo
	history map[string]map[string]models.HistoryRecord // secid -> date -> record
	windows map[string]map[string]bool                 // secid -> date -> window fetched
}

func newCache() *cache {
	return &cache{
		spec:    map[string]*models.SecuritySpec{},
		info:    map[string]*models.BoardInfo{},
		history: map[string]map[string]models.HistoryRecord{},
		windows: map[string]map[string]bool{},
	}
}

func (c *cache) getSpec(secid string) (*models.SecuritySpec, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	spec, ok := c.spec[secid]
	return spec, ok
}

func (c *cache) putSpec(secid string, spec *models.SecuritySpec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spec[secid] = spec
}

func (c *cache) getInfo(secid string) (*models.BoardInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.info[secid]
	return info, ok
}

func (c *cache) putInfo(secid string, info *models.BoardInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.info[secid] = info
}

func (c *cache) getHistory(secid, date string) (models.HistoryRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	days, ok := c.history[secid]
	if !ok {
		return models.HistoryRecord{}, false
	}
	rec, ok := days[date]
	return rec, ok
}

// hasHistoryWindow reports whether the window for secid covering date has
// been fetched already, regardless of whether date itself was a session.
func (c *cache) hasHistoryWindow(secid, date string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fetched, ok := c.windows[secid]
	if !ok {
		return false
	}
	return fetched[date]
}

func (c *cache) putHistory(secid string, days map[string]models.HistoryRecord, window []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.history[secid] == nil {
		c.history[secid] = map[string]models.HistoryRecord{}
	}
	for date, rec := range days {
		c.history[secid][date] = rec
	}
	if c.windows[secid] == nil {
		c.windows[secid] = map[string]bool{}
	}
	for _, date := range window {
		c.windows[secid][date] = true
	}
}

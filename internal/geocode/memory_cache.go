package geocode

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/dhconnelly/rtreego"
	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/jengzang/ifta-backend-go/internal/jurisdiction"
	"github.com/jengzang/ifta-backend-go/internal/spatial"
)

const (
	dimensions  = 2
	minChildren = 25
	maxChildren = 50
	tolerance   = 1e-9

	metersPerDegreeLat = 111320.0
	maxEntries         = 10000
)

// cacheEntry is indexed both by cell key and by location
type cacheEntry struct {
	key      string
	point    spatial.GeoPoint
	code     jurisdiction.Code
	storedAt time.Time
	rect     *rtreego.Rect
}

func (e *cacheEntry) Bounds() *rtreego.Rect {
	return e.rect
}

// MemoryCache is an in-process Cache. Exact cell hits are served from a
// concurrent map; nearby reuse searches an R-tree of entry locations.
type MemoryCache struct {
	opts    CacheOptions
	now     func() time.Time
	entries cmap.ConcurrentMap[string, *cacheEntry]

	mu    sync.RWMutex // guards index
	index *rtreego.Rtree
}

// NewMemoryCache creates an empty in-memory cache
func NewMemoryCache(opts CacheOptions) *MemoryCache {
	return &MemoryCache{
		opts:    opts.withDefaults(),
		now:     time.Now,
		entries: cmap.New[*cacheEntry](),
		index:   rtreego.NewTree(dimensions, minChildren, maxChildren),
	}
}

// Lookup implements Cache
func (c *MemoryCache) Lookup(_ context.Context, p spatial.GeoPoint) (jurisdiction.Code, bool, error) {
	now := c.now()
	key := spatial.CellKey(p, c.opts.CellPrecision)

	if e, ok := c.entries.Get(key); ok {
		if c.fresh(e, now) {
			return e.code, true, nil
		}
		c.remove(e)
	}

	if e := c.nearest(p, now); e != nil {
		return e.code, true, nil
	}
	return jurisdiction.Unknown, false, nil
}

// Store implements Cache
func (c *MemoryCache) Store(_ context.Context, p spatial.GeoPoint, code jurisdiction.Code) error {
	key := spatial.CellKey(p, c.opts.CellPrecision)
	e := &cacheEntry{
		key:      key,
		point:    p,
		code:     code,
		storedAt: c.now(),
		rect:     rtreego.Point{p.Latitude, p.Longitude}.ToRect(tolerance),
	}

	if old, ok := c.entries.Get(key); ok {
		c.remove(old)
	}

	c.mu.Lock()
	c.index.Insert(e)
	c.mu.Unlock()
	c.entries.Set(key, e)

	if c.entries.Count() > maxEntries {
		c.Purge()
	}
	return nil
}

// Len returns the number of stored entries, fresh or not
func (c *MemoryCache) Len() int {
	return c.entries.Count()
}

// Purge drops every expired entry
func (c *MemoryCache) Purge() {
	now := c.now()
	for item := range c.entries.IterBuffered() {
		if !c.fresh(item.Val, now) {
			c.remove(item.Val)
		}
	}
}

func (c *MemoryCache) fresh(e *cacheEntry, now time.Time) bool {
	return now.Sub(e.storedAt) < c.opts.TTL
}

func (c *MemoryCache) remove(e *cacheEntry) {
	c.entries.RemoveCb(e.key, func(_ string, v *cacheEntry, exists bool) bool {
		return exists && v == e
	})
	c.mu.Lock()
	c.index.Delete(e)
	c.mu.Unlock()
}

// nearest returns the closest fresh entry within the reuse radius
func (c *MemoryCache) nearest(p spatial.GeoPoint, now time.Time) *cacheEntry {
	if c.opts.ReuseRadiusM <= 0 {
		return nil
	}

	dLat := c.opts.ReuseRadiusM / metersPerDegreeLat
	cosLat := math.Cos(p.Latitude * math.Pi / 180)
	dLon := 180.0
	if cosLat > 1e-6 {
		dLon = math.Min(dLat/cosLat, 180)
	}

	box, err := rtreego.NewRect(
		rtreego.Point{p.Latitude - dLat, p.Longitude - dLon},
		[]float64{2 * dLat, 2 * dLon},
	)
	if err != nil {
		return nil
	}

	c.mu.RLock()
	candidates := c.index.SearchIntersect(box)
	c.mu.RUnlock()

	var best *cacheEntry
	bestDist := math.Inf(1)
	for _, s := range candidates {
		e, ok := s.(*cacheEntry)
		if !ok || !c.fresh(e, now) {
			continue
		}
		d := spatial.HaversineMeters(p, e.point)
		if d <= c.opts.ReuseRadiusM && d < bestDist {
			best, bestDist = e, d
		}
	}
	return best
}

package indices

import (
	"sync"
	"unsafe"

	"github.com/chazu/cityview/pkg/viewpoint"
)

// Class is the pixel classification of the identification pass.
type Class int

const (
	ClassSky Class = iota
	ClassBuilding
	ClassAmenity
	ClassLandmark
	ClassTree
	ClassWater

	NumClasses = 6
)

var classNames = [NumClasses]string{"sky", "building", "amenity", "landmark", "tree", "water"}

func (c Class) String() string {
	if c >= 0 && int(c) < NumClasses {
		return classNames[c]
	}
	return "unknown"
}

// ClassifyPixel maps an identification color to its class by exact match.
// Anything that is not one of the five category colors is sky.
func ClassifyPixel(r, g, b uint8) Class {
	switch [3]uint8{r, g, b} {
	case [3]uint8{255, 0, 0}:
		return ClassBuilding
	case [3]uint8{255, 255, 0}:
		return ClassAmenity
	case [3]uint8{255, 0, 255}:
		return ClassLandmark
	case [3]uint8{0, 255, 0}:
		return ClassTree
	case [3]uint8{0, 0, 255}:
		return ClassWater
	}
	return ClassSky
}

// ViewIndices accumulates the statistics of one camera setup across runs.
type ViewIndices struct {
	Color   [NumClasses]uint64 `json:"color"`
	Depth   float64            `json:"depth"` // linearized average of the last pass
	Samples int                `json:"samples"`
}

// Cache memoizes ViewIndices by setup. It holds at most one entry per
// distinct setup.
type Cache struct {
	mu       sync.RWMutex
	entries  map[viewpoint.Setup]*ViewIndices
	recorded int64
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[viewpoint.Setup]*ViewIndices)}
}

// Entry returns the entry for s, creating a zero one on first use.
func (c *Cache) Entry(s viewpoint.Setup) *ViewIndices {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entryLocked(s)
}

// entryLocked is Entry for callers holding c.mu.
func (c *Cache) entryLocked(s viewpoint.Setup) *ViewIndices {
	e, ok := c.entries[s]
	if !ok {
		e = &ViewIndices{}
		c.entries[s] = e
	}
	return e
}

// record folds one pass into the entry for s. Lookup, update and the entry
// count the footprint is computed from change under a single lock.
func (c *Cache) record(s viewpoint.Setup, counts [NumClasses]uint64, depth float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entryLocked(s)
	for i, n := range counts {
		e.Color[i] += n
	}
	e.Depth = depth
	e.Samples++
}

// Lookup returns a copy of the entry for s.
func (c *Cache) Lookup(s viewpoint.Setup) (ViewIndices, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[s]
	if !ok {
		return ViewIndices{}, false
	}
	return *e, true
}

// Len is the number of entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

const entrySize = int64(unsafe.Sizeof(viewpoint.Setup{}) +
	unsafe.Sizeof((*ViewIndices)(nil)) +
	unsafe.Sizeof(ViewIndices{}))

// Footprint estimates the memory held by the cache: the map header plus
// the key, pointer and value of every entry.
func (c *Cache) Footprint() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.footprintLocked()
}

func (c *Cache) footprintLocked() int64 {
	return int64(unsafe.Sizeof(c.entries)) + int64(len(c.entries))*entrySize
}

// MeasureDelta returns the change in Footprint since the previous call and
// records the current value.
func (c *Cache) MeasureDelta() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.measureLocked()
}

func (c *Cache) measureLocked() int64 {
	cur := c.footprintLocked()
	delta := cur - c.recorded
	c.recorded = cur
	return delta
}

// Reset drops every entry.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[viewpoint.Setup]*ViewIndices)
	c.measureLocked()
}

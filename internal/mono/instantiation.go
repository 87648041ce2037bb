package mono

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"starling/internal/mir"
	"starling/internal/source"
	"starling/internal/types"
)

// InstantiationKey is a comparable key for instantiations.
//
// Note: Go maps cannot use slices as keys, so we store a stable ArgsKey
// string. The corresponding normalized TypeArgs live in Instance.
type InstantiationKey struct {
	Name    string
	ArgsKey string
}

// TypeArgsKey produces the stable encoding used for instantiation keys.
func TypeArgsKey(args []types.TypeID) string {
	if len(args) == 0 {
		return ""
	}
	var b strings.Builder
	for i, arg := range args {
		if i > 0 {
			b.WriteByte('#')
		}
		b.WriteString(strconv.FormatUint(uint64(arg), 10))
	}
	return b.String()
}

// UseSite records one location where an instantiation was requested.
type UseSite struct {
	Span   source.Span
	Caller string
}

// Instance is one concrete copy of a generic function. Name is fixed at
// reservation time so recursive references resolve before the body is
// filled in.
type Instance struct {
	Key      InstantiationKey
	Generic  string
	Name     string
	TypeArgs []types.TypeID

	Func     *mir.Func
	UseSites []UseSite
}

// Cache memoizes instances across functions and compilation runs. All
// methods are safe for concurrent use; LookupOrReserve performs the
// check-then-insert atomically so each key is built exactly once.
type Cache struct {
	mu      sync.Mutex
	entries map[InstantiationKey]*Instance
	nextID  mir.FuncID
}

// NewCache creates an empty instance cache. IDs handed to instances start
// after base so they never collide with the seeded functions.
func NewCache(base mir.FuncID) *Cache {
	return &Cache{
		entries: make(map[InstantiationKey]*Instance),
		nextID:  base,
	}
}

// LookupOrReserve returns the instance for key, reserving a fresh slot
// when none exists yet. The second result reports whether the caller now
// owns the reservation and must build the body.
func (c *Cache) LookupOrReserve(key InstantiationKey, generic, name string, args []types.TypeID) (*Instance, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e, false
	}
	e := &Instance{
		Key:      key,
		Generic:  generic,
		Name:     name,
		TypeArgs: append([]types.TypeID(nil), args...),
	}
	c.entries[key] = e
	return e, true
}

// AllocID hands out the next function id.
func (c *Cache) AllocID() mir.FuncID {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	return id
}

// RecordUse attaches a use site to an existing instance, deduplicated.
func (c *Cache) RecordUse(key InstantiationKey, site UseSite) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || site == (UseSite{}) {
		return
	}
	for _, existing := range e.UseSites {
		if existing == site {
			return
		}
	}
	e.UseSites = append(e.UseSites, site)
}

// Len reports how many instances the cache holds.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Instances returns every cached instance ordered by instance name.
func (c *Cache) Instances() []*Instance {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Instance, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

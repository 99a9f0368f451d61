// internal/selector/cache.go
package selector

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

/*
 * Compiled selector cache.
 *
 * Memoizes Compile by the unstripped selector source. There is no eviction:
 * the key space is the set of selectors registered by the loaded rules.
 *
 * Lookups hit a sync.Map without locking. Concurrent first requests for the
 * same source share one compilation through singleflight, so every caller
 * observes the same *Compiled. Failed compilations are not cached.
 */

// Cache memoizes compiled selectors. The zero value is ready to use.
type Cache struct {
	entries sync.Map // string -> *Compiled
	group   singleflight.Group
}

var defaultCache = &Cache{}

// NewCache returns an empty cache, for callers that need isolation from the
// process-wide one.
func NewCache() *Cache {
	return &Cache{}
}

// Default returns the process-wide cache used by Compile.
func Default() *Cache {
	return defaultCache
}

// Compile returns the cached compilation of source, compiling it on first use.
func (c *Cache) Compile(source string) (*Compiled, error) {
	if v, ok := c.entries.Load(source); ok {
		return v.(*Compiled), nil
	}

	v, err, _ := c.group.Do(source, func() (any, error) {
		if v, ok := c.entries.Load(source); ok {
			return v, nil
		}
		compiled, err := compile(source)
		if err != nil {
			return nil, err
		}
		actual, _ := c.entries.LoadOrStore(source, compiled)
		return actual, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Compiled), nil
}

// Len returns the number of cached selectors.
func (c *Cache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

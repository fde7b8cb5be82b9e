package service

import (
	"fmt"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/rewired-gh/electcast/internal/metrics"
	"github.com/rewired-gh/electcast/internal/models"
	"github.com/rewired-gh/electcast/internal/presenter"
)

// viewKey identifies a forecast view. Two requests with the same key produce the
// same view when the engine is seeded.
type viewKey struct {
	Constituency string
	Prior        models.PriorBelief
	Survey       models.SurveyObservation
	Simulations  int
	Seed         uint64
}

// String returns string representation of cache key
func (k viewKey) String() string {
	return fmt.Sprintf("%s:%g:%g:%d:%d:%d:%d",
		k.Constituency, k.Prior.AlphaPrior, k.Prior.BetaPrior,
		k.Survey.SurveyLead, k.Survey.SurveyTrail, k.Simulations, k.Seed)
}

// viewCache holds built views for a short time. A nil *viewCache caches nothing.
// Views go in and come out as copies, so callers may modify what they receive.
type viewCache struct {
	cache *cache.Cache
}

func newViewCache(ttl, cleanup time.Duration) *viewCache {
	if cleanup <= 0 {
		cleanup = ttl * 2
	}
	return &viewCache{cache: cache.New(ttl, cleanup)}
}

func (c *viewCache) get(key viewKey) (*presenter.View, bool) {
	if c == nil {
		return nil, false
	}
	if v, found := c.cache.Get(key.String()); found {
		if view, ok := v.(*presenter.View); ok {
			metrics.RecordCacheLookup(true)
			return view.Clone(), true
		}
	}
	metrics.RecordCacheLookup(false)
	return nil, false
}

func (c *viewCache) set(key viewKey, view *presenter.View) {
	if c == nil {
		return
	}
	c.cache.SetDefault(key.String(), view.Clone())
}

func (c *viewCache) flush() {
	if c == nil {
		return
	}
	c.cache.Flush()
}

func (c *viewCache) len() int {
	if c == nil {
		return 0
	}
	return c.cache.ItemCount()
}

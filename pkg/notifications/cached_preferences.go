package notifications

import (
	"context"

	"github.com/dmitrymomot/notifyhub/pkg/cache"
)

// CachedPreferences puts an LRU cache in front of another PreferenceStorage.
// Writes go through to the backend before the cache is updated. Misses are
// cached too, so users without saved preferences cost one backend read.
type CachedPreferences struct {
	next  PreferenceStorage
	cache *cache.LRU[string, cachedPrefs]
}

type cachedPrefs struct {
	prefs Preferences
	found bool
}

// NewCachedPreferences caches up to size users. Panics if size is not positive.
func NewCachedPreferences(next PreferenceStorage, size int) *CachedPreferences {
	return &CachedPreferences{
		next:  next,
		cache: cache.NewLRU[string, cachedPrefs](size),
	}
}

func (c *CachedPreferences) Load(ctx context.Context, userID string) (Preferences, bool, error) {
	if hit, ok := c.cache.Get(userID); ok {
		return hit.prefs.Clone(), hit.found, nil
	}

	prefs, found, err := c.next.Load(ctx, userID)
	if err != nil {
		return Preferences{}, false, err
	}
	c.cache.Put(userID, cachedPrefs{prefs: prefs.Clone(), found: found})
	return prefs, found, nil
}

func (c *CachedPreferences) Save(ctx context.Context, prefs Preferences) error {
	if err := c.next.Save(ctx, prefs); err != nil {
		c.cache.Remove(prefs.UserID)
		return err
	}
	c.cache.Put(prefs.UserID, cachedPrefs{prefs: prefs.Clone(), found: true})
	return nil
}

// Invalidate drops userID from the cache.
func (c *CachedPreferences) Invalidate(userID string) {
	c.cache.Remove(userID)
}

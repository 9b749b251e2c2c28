// Package cache provides a generic, goroutine-safe LRU cache.
//
//	prefs := cache.NewLRU[string, Preferences](1024)
//	prefs.Put(userID, p)
//	if p, ok := prefs.Get(userID); ok {
//	    // ...
//	}
//
// Get, Put and Remove are O(1). Get and Put both count as a use.
package cache

// Copyright 2016-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cache

import (
	"container/list"
	"sync"

	"github.com/diffeo/go-coffeetip/coffee"
)

// entry is one cached profile under its lookup key.
type entry struct {
	key     string
	profile coffee.Profile
}

// lru is a least-recently-used cache of profiles with a fixed
// capacity.  The cache can be safely accessed from multiple
// goroutines.
type lru struct {
	size      int
	lock      sync.RWMutex
	evictList *list.List
	index     map[string]*list.Element
}

func newLRU(size int) *lru {
	return &lru{
		size:      size,
		evictList: list.New(),
		index:     make(map[string]*list.Element),
	}
}

// Get retrieves a profile from the cache.  If it is not present,
// calls the fetch function, and if that succeeds, saves the profile
// and returns it.  This returns an error only if the profile is not
// present and the fetch function returns an error.
func (lru *lru) Get(key string, fetch func(string) (coffee.Profile, error)) (coffee.Profile, error) {
	// This happens under a writer lock, since we need to move
	// the item to the back of the list if it is present
	lru.lock.Lock()
	defer lru.lock.Unlock()

	if element, present := lru.index[key]; present {
		lru.evictList.MoveToBack(element)
		return element.Value.(*entry).profile, nil
	}

	profile, err := fetch(key)
	if err != nil {
		return profile, err
	}
	lru.add(key, profile)
	return profile, nil
}

// Peek looks for a profile in the cache without affecting its
// recency.
func (lru *lru) Peek(key string) (coffee.Profile, bool) {
	lru.lock.RLock()
	defer lru.lock.RUnlock()

	if element, present := lru.index[key]; present {
		return element.Value.(*entry).profile, true
	}
	return coffee.Profile{}, false
}

// Put adds a profile to the cache, possibly evicting something.
func (lru *lru) Put(key string, profile coffee.Profile) {
	lru.lock.Lock()
	defer lru.lock.Unlock()

	if element, present := lru.index[key]; present {
		element.Value.(*entry).profile = profile
		lru.evictList.MoveToBack(element)
		return
	}
	lru.add(key, profile)
}

// Remove takes a key out of the cache.  It does nothing if the key is
// absent.
func (lru *lru) Remove(key string) {
	lru.lock.Lock()
	defer lru.lock.Unlock()

	if element, present := lru.index[key]; present {
		delete(lru.index, key)
		lru.evictList.Remove(element)
	}
}

// Len returns the number of cached profiles.
func (lru *lru) Len() int {
	lru.lock.RLock()
	defer lru.lock.RUnlock()
	return len(lru.index)
}

// add runs under the write lock and adds a key known to be absent.
func (lru *lru) add(key string, profile coffee.Profile) {
	element := lru.evictList.PushBack(&entry{key: key, profile: profile})
	lru.index[key] = element

	// If this caused the cache to go over size, start evicting items
	for len(lru.index) > lru.size {
		head := lru.evictList.Front()
		delete(lru.index, head.Value.(*entry).key)
		lru.evictList.Remove(head)
	}
}

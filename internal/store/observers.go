// Package store holds the client-side state containers of a storefront
// session: the cart, the browsing filters and the authentication state.
//
// Every store is an explicit value owned by its session. Stores are safe for
// concurrent use and notify subscribers after each mutation.
package store

import "sync"

// observers is a set of change listeners.
type observers struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]func()
}

// subscribe registers fn and returns a function that removes it.
func (o *observers) subscribe(fn func()) (unsubscribe func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fns == nil {
		o.fns = make(map[int]func())
	}
	id := o.nextID
	o.nextID++
	o.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.fns, id)
			o.mu.Unlock()
		})
	}
}

// notify runs every listener. It must be called without the store lock held
// so that listeners may read the store.
func (o *observers) notify() {
	o.mu.Lock()
	fns := make([]func(), 0, len(o.fns))
	for _, fn := range o.fns {
		fns = append(fns, fn)
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

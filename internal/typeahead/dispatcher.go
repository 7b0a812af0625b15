package typeahead

import (
	"fmt"
	"sync"
)

// Dispatcher is the page-wide pointer watcher. It routes clicks to the
// selector owning the clicked row and dismisses every other open results
// container.
type Dispatcher struct {
	mu        sync.RWMutex
	selectors []*Selector
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Register adds a selector to the watch list.
func (d *Dispatcher) Register(s *Selector) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selectors = append(d.selectors, s)
}

// Selectors returns the registered selectors in registration order.
func (d *Dispatcher) Selectors() []*Selector {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]*Selector(nil), d.selectors...)
}

// Click handles a pointer press on target. A row click commits its
// selection first; then every selector for which target is outside its
// input, its results and its trigger is dismissed.
func (d *Dispatcher) Click(target string) (selected bool, err error) {
	for _, s := range d.Selectors() {
		if !s.Owns(target) {
			continue
		}
		ok, serr := s.Click(target)
		if serr != nil {
			err = fmt.Errorf("click %s: %w", target, serr)
		}
		selected = selected || ok
	}
	d.PointerDown(target)
	return selected, err
}

// PointerDown dismisses results containers for which target is outside.
func (d *Dispatcher) PointerDown(target string) {
	for _, s := range d.Selectors() {
		if !s.Exempt(target) {
			s.Hide()
		}
	}
}

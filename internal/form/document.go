// Package form models the order-entry page as a set of addressable
// elements. It stands in for the browser document: selectors read and write
// element values through it, and hosts (terminal UI, script driver) render
// from it.
package form

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrNotFound is returned when an element id does not exist in the document.
var ErrNotFound = errors.New("element not found")

// Kind identifies what an element is used for.
type Kind int

const (
	KindInput     Kind = iota // Editable text input
	KindHidden                // Hidden companion field (ids)
	KindText                  // Read-only display line
	KindContainer             // Results container
	KindButton                // Clickable trigger
	KindRow                   // Row inside a results container
)

// Row classes, mirroring the page's CSS classes.
const (
	ClassOption      = "option"
	ClassOptionEmpty = "option-empty"
	ClassOptionError = "option-error"
)

// Element is a single addressable node of the document.
type Element struct {
	ID      string
	Kind    Kind
	Value   string // Inputs and hidden fields
	Text    string // Display lines, rows and button labels
	Detail  string // Secondary row text, rendered dimmed
	Class   string // Row class
	Visible bool   // Containers only
	Parent  string // Containing element id, "" for top-level
}

// MissingElementError reports element ids that were required but absent.
type MissingElementError struct {
	IDs []string
}

func (e *MissingElementError) Error() string {
	return fmt.Sprintf("missing elements: %s", strings.Join(e.IDs, ", "))
}

// Unwrap lets errors.Is match ErrNotFound.
func (e *MissingElementError) Unwrap() error {
	return ErrNotFound
}

// Document is a goroutine-safe collection of elements.
type Document struct {
	mu       sync.RWMutex
	elements map[string]*Element
	children map[string][]string // container id -> row ids in order
	order    []string            // insertion order of top-level elements
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{
		elements: make(map[string]*Element),
		children: make(map[string][]string),
	}
}

// Add inserts an element, replacing any element with the same id.
func (d *Document) Add(el Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.elements[el.ID]; !ok && el.Parent == "" {
		d.order = append(d.order, el.ID)
	}
	cp := el
	d.elements[el.ID] = &cp
}

// Remove deletes an element. Removing a container also drops its rows.
func (d *Document) Remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dropChildren(id)
	delete(d.elements, id)
	for i, oid := range d.order {
		if oid == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// Lookup returns a copy of the element with the given id.
func (d *Document) Lookup(id string) (Element, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	el, ok := d.elements[id]
	if !ok {
		return Element{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *el, nil
}

// Has reports whether the element exists.
func (d *Document) Has(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.elements[id]
	return ok
}

// Require checks that every id exists, returning a *MissingElementError
// naming all absent ids.
func (d *Document) Require(ids ...string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var missing []string
	for _, id := range ids {
		if _, ok := d.elements[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return &MissingElementError{IDs: missing}
	}
	return nil
}

// SetValue writes the value of an input or hidden field.
func (d *Document) SetValue(id, value string) error {
	return d.update(id, func(el *Element) { el.Value = value })
}

// Value reads the value of an input or hidden field; missing ids read as "".
func (d *Document) Value(id string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if el, ok := d.elements[id]; ok {
		return el.Value
	}
	return ""
}

// SetText writes the text of a display line.
func (d *Document) SetText(id, text string) error {
	return d.update(id, func(el *Element) { el.Text = text })
}

// Text reads the text of an element; missing ids read as "".
func (d *Document) Text(id string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if el, ok := d.elements[id]; ok {
		return el.Text
	}
	return ""
}

// SetVisible shows or hides an element.
func (d *Document) SetVisible(id string, visible bool) error {
	return d.update(id, func(el *Element) { el.Visible = visible })
}

// Visible reports whether an element is shown.
func (d *Document) Visible(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if el, ok := d.elements[id]; ok {
		return el.Visible
	}
	return false
}

// ReplaceChildren swaps the entire row set of a container. Row ids and
// parents are set by the caller; the parent is forced to containerID.
func (d *Document) ReplaceChildren(containerID string, rows []Element) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.elements[containerID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, containerID)
	}
	d.dropChildren(containerID)
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		cp := row
		cp.Parent = containerID
		d.elements[cp.ID] = &cp
		ids = append(ids, cp.ID)
	}
	d.children[containerID] = ids
	return nil
}

// Children returns copies of the rows of a container, in order.
func (d *Document) Children(containerID string) []Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := d.children[containerID]
	out := make([]Element, 0, len(ids))
	for _, id := range ids {
		if el, ok := d.elements[id]; ok {
			out = append(out, *el)
		}
	}
	return out
}

// Contains reports whether target is ancestorID or one of its descendants.
func (d *Document) Contains(ancestorID, targetID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for id := targetID; id != ""; {
		if id == ancestorID {
			return true
		}
		el, ok := d.elements[id]
		if !ok {
			return false
		}
		id = el.Parent
	}
	return false
}

// Elements returns copies of the top-level elements in insertion order.
func (d *Document) Elements() []Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Element, 0, len(d.order))
	for _, id := range d.order {
		if el, ok := d.elements[id]; ok {
			out = append(out, *el)
		}
	}
	return out
}

// Snapshot returns the value of every input and hidden field keyed by id.
func (d *Document) Snapshot() map[string]string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]string)
	for id, el := range d.elements {
		if el.Kind == KindInput || el.Kind == KindHidden {
			out[id] = el.Value
		}
	}
	return out
}

// Writer is the write surface handed to selection sinks.
type Writer interface {
	SetValue(id, value string) error
	SetText(id, text string) error
	SetVisible(id string, visible bool) error
}

// Tx is a Writer that holds the document's write lock for the duration of
// an Apply call, so readers never observe a partially applied batch.
type Tx struct {
	d      *Document
	staged []func()
}

func (tx *Tx) SetValue(id, value string) error {
	return tx.stage(id, func(el *Element) { el.Value = value })
}

func (tx *Tx) SetText(id, text string) error {
	return tx.stage(id, func(el *Element) { el.Text = text })
}

func (tx *Tx) SetVisible(id string, visible bool) error {
	return tx.stage(id, func(el *Element) { el.Visible = visible })
}

func (tx *Tx) stage(id string, fn func(*Element)) error {
	el, ok := tx.d.elements[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	tx.staged = append(tx.staged, func() { fn(el) })
	return nil
}

// Apply runs fn with the write lock held. Writes made through tx land only
// when fn returns nil; on error the document is left untouched. fn must not
// call back into the document other than through tx.
func (d *Document) Apply(fn func(tx *Tx) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	tx := &Tx{d: d}
	if err := fn(tx); err != nil {
		return err
	}
	for _, w := range tx.staged {
		w()
	}
	return nil
}

func (d *Document) update(id string, fn func(*Element)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.updateLocked(id, fn)
}

func (d *Document) updateLocked(id string, fn func(*Element)) error {
	el, ok := d.elements[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	fn(el)
	return nil
}

// dropChildren removes a container's rows. Caller holds the write lock.
func (d *Document) dropChildren(containerID string) {
	for _, id := range d.children[containerID] {
		delete(d.elements, id)
	}
	delete(d.children, containerID)
}

// Package typeahead implements the incremental search selector used by the
// order form: a debounced query over a remote endpoint or a local dataset,
// rendered into a results container whose rows commit a selection into the
// surrounding form.
package typeahead

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/runger/taller/internal/form"
)

// Placeholder texts shown inside the results container.
const (
	NoResultsText = "No se encontraron resultados."
	ErrorText     = "Error de conexión."
)

// DefaultTimeout bounds a single resolution.
const DefaultTimeout = 10 * time.Second

// Display is what a renderer produces for one candidate.
type Display struct {
	Title  string
	Detail string // Optional, shown in parentheses
}

func (d Display) String() string {
	if d.Detail == "" {
		return d.Title
	}
	return d.Title + " (" + d.Detail + ")"
}

// Renderer turns a candidate into its row content.
type Renderer interface {
	Render(c Candidate) Display
}

// Sink commits a selected candidate into the form.
type Sink interface {
	// Targets lists every element id Select writes, checked at setup.
	Targets() []string
	// Select writes the candidate. All values must be computed before the
	// first write.
	Select(c Candidate, w form.Writer) error
}

// Config is the immutable description of one selector instance.
type Config struct {
	Name      string
	InputID   string
	ResultsID string
	TriggerID string // Element exempt from dismissal; "" for none
	Endpoint  string
	Dataset   []Candidate
	Renderer  Renderer
	Sink      Sink
}

// Options carries the collaborators of a selector.
type Options struct {
	Provider Provider // Required
	Clock    Clock
	Debounce time.Duration
	Timeout  time.Duration
	Logger   *slog.Logger

	// OnChange is called, without locks held, after every change to the
	// results container.
	OnChange func(name string)
}

// Selector is one incremental search instance bound to an input and a
// results container.
type Selector struct {
	cfg       Config
	doc       *form.Document
	provider  Provider
	debouncer *Debouncer
	timeout   time.Duration
	logger    *slog.Logger
	onChange  func(name string)

	mu      sync.Mutex
	seq     uint64      // Latest issued resolution; older responses are dropped
	armed   bool        // A resolution is waiting for the debounce window
	pending bool        // A resolution is in flight
	shown   []Candidate // Candidates behind the current option rows
}

// New mounts a selector on doc. Every element the selector or its sink
// touches must already exist.
func New(doc *form.Document, cfg Config, opts Options) (*Selector, error) {
	if cfg.Renderer == nil || cfg.Sink == nil {
		return nil, &SetupError{Selector: cfg.Name, Err: fmt.Errorf("renderer and sink are required")}
	}
	if opts.Provider == nil {
		return nil, &SetupError{Selector: cfg.Name, Err: fmt.Errorf("provider is required")}
	}

	ids := []string{cfg.InputID, cfg.ResultsID}
	if cfg.TriggerID != "" {
		ids = append(ids, cfg.TriggerID)
	}
	ids = append(ids, cfg.Sink.Targets()...)
	if err := doc.Require(ids...); err != nil {
		return nil, &SetupError{Selector: cfg.Name, Err: err}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Selector{
		cfg:       cfg,
		doc:       doc,
		provider:  opts.Provider,
		debouncer: NewDebouncer(opts.Clock, opts.Debounce),
		timeout:   timeout,
		logger:    logger.With("selector", cfg.Name),
		onChange:  opts.OnChange,
	}, nil
}

// Config returns the selector's configuration.
func (s *Selector) Config() Config {
	return s.cfg
}

// Pending reports whether a resolution is in flight.
func (s *Selector) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Busy reports whether a resolution is armed or in flight.
func (s *Selector) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed || s.pending
}

// Keystroke handles a change of the bound input. An empty value clears and
// hides the results at once; anything else (re)arms the debounce timer.
func (s *Selector) Keystroke(value string) {
	_ = s.doc.SetValue(s.cfg.InputID, value)
	query := strings.ToLower(value)

	if query == "" {
		s.debouncer.Stop()
		s.mu.Lock()
		s.seq++ // Responses still in flight belong to an abandoned query.
		s.armed = false
		s.pending = false
		s.shown = nil
		_ = s.doc.ReplaceChildren(s.cfg.ResultsID, nil)
		_ = s.doc.SetVisible(s.cfg.ResultsID, false)
		s.mu.Unlock()
		s.notify()
		return
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.armed = true
	s.mu.Unlock()
	s.debouncer.Trigger(func() { s.resolve(query, seq) })
}

// resolve runs one search and renders its outcome unless a later
// keystroke superseded it before or during the search.
func (s *Selector) resolve(query string, seq uint64) {
	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		return
	}
	s.armed = false
	s.pending = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	results, err := s.provider.Search(ctx, query)

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		s.logger.Debug("dropping stale search response", "query", query, "seq", seq)
		return
	}
	s.pending = false
	if err != nil {
		s.logger.Error("search failed", "query", query, "error", err)
		s.renderError()
	} else {
		s.render(results)
	}
	s.mu.Unlock()
	s.notify()
}

// render replaces the container rows with results, or with the no-results
// placeholder, and shows the container. Caller holds s.mu.
func (s *Selector) render(results []Candidate) {
	var rows []form.Element
	if len(results) == 0 {
		rows = []form.Element{{
			ID:    s.cfg.ResultsID + "/empty",
			Kind:  form.KindRow,
			Class: form.ClassOptionEmpty,
			Text:  NoResultsText,
		}}
	} else {
		rows = make([]form.Element, 0, len(results))
		for i, c := range results {
			d := s.cfg.Renderer.Render(c)
			rows = append(rows, form.Element{
				ID:     s.rowID(i),
				Kind:   form.KindRow,
				Class:  form.ClassOption,
				Text:   d.Title,
				Detail: d.Detail,
			})
		}
	}
	s.shown = results
	_ = s.doc.ReplaceChildren(s.cfg.ResultsID, rows)
	_ = s.doc.SetVisible(s.cfg.ResultsID, true)
}

// renderError shows a single error row. Caller holds s.mu.
func (s *Selector) renderError() {
	s.shown = nil
	_ = s.doc.ReplaceChildren(s.cfg.ResultsID, []form.Element{{
		ID:    s.cfg.ResultsID + "/error",
		Kind:  form.KindRow,
		Class: form.ClassOptionError,
		Text:  ErrorText,
	}})
	_ = s.doc.SetVisible(s.cfg.ResultsID, true)
}

// Click selects the candidate behind an option row: the sink writes its
// fields and the container is hidden, as one document update. Clicks on
// placeholder rows or unknown ids select nothing.
func (s *Selector) Click(rowID string) (bool, error) {
	if !s.doc.Visible(s.cfg.ResultsID) {
		return false, nil
	}
	s.mu.Lock()
	idx, ok := s.rowIndex(rowID)
	if !ok || idx >= len(s.shown) {
		s.mu.Unlock()
		return false, nil
	}
	c := s.shown[idx]
	err := s.doc.Apply(func(tx *form.Tx) error {
		if err := s.cfg.Sink.Select(c, tx); err != nil {
			return err
		}
		return tx.SetVisible(s.cfg.ResultsID, false)
	})
	s.mu.Unlock()
	if err != nil {
		return false, fmt.Errorf("typeahead %s: select: %w", s.cfg.Name, err)
	}
	s.notify()
	return true, nil
}

// Hide hides the results container, keeping its rows.
func (s *Selector) Hide() {
	if !s.doc.Visible(s.cfg.ResultsID) {
		return
	}
	_ = s.doc.SetVisible(s.cfg.ResultsID, false)
	s.notify()
}

// Exempt reports whether pointer activity on target must leave this
// selector's results open.
func (s *Selector) Exempt(target string) bool {
	if s.doc.Contains(s.cfg.InputID, target) || s.doc.Contains(s.cfg.ResultsID, target) {
		return true
	}
	return s.cfg.TriggerID != "" && s.doc.Contains(s.cfg.TriggerID, target)
}

// Owns reports whether target is one of this selector's rows.
func (s *Selector) Owns(target string) bool {
	return target != s.cfg.ResultsID && s.doc.Contains(s.cfg.ResultsID, target)
}

func (s *Selector) rowID(i int) string {
	return s.cfg.ResultsID + "/" + strconv.Itoa(i)
}

func (s *Selector) rowIndex(rowID string) (int, bool) {
	suffix, ok := strings.CutPrefix(rowID, s.cfg.ResultsID+"/")
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(suffix)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

func (s *Selector) notify() {
	if s.onChange != nil {
		s.onChange(s.cfg.Name)
	}
}

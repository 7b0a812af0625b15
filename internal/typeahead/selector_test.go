package typeahead

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/taller/internal/form"
)

// --- Test doubles ---

type nameRenderer struct{}

func (nameRenderer) Render(c Candidate) Display {
	return Display{Title: c.Text("nombre")}
}

// techSink writes the name into the input and the id into the hidden field.
type techSink struct {
	selectCalls int
}

func (s *techSink) Targets() []string { return []string{"tecnico", "id-tecnico-hidden"} }

func (s *techSink) Select(c Candidate, w form.Writer) error {
	s.selectCalls++
	if err := w.SetValue("tecnico", c.Text("nombre")); err != nil {
		return err
	}
	return w.SetValue("id-tecnico-hidden", c.Text("id"))
}

// countingProvider wraps a provider and counts calls.
type countingProvider struct {
	inner Provider
	calls atomic.Int32
	last  atomic.Value
}

func (p *countingProvider) Search(ctx context.Context, q string) ([]Candidate, error) {
	p.calls.Add(1)
	p.last.Store(q)
	return p.inner.Search(ctx, q)
}

type errProvider struct{ err error }

func (p errProvider) Search(context.Context, string) ([]Candidate, error) { return nil, p.err }

func newPage() *form.Document {
	doc := form.NewDocument()
	doc.Add(form.Element{ID: "tecnico", Kind: form.KindInput})
	doc.Add(form.Element{ID: "tecnico-options", Kind: form.KindContainer})
	doc.Add(form.Element{ID: "id-tecnico-hidden", Kind: form.KindHidden})
	doc.Add(form.Element{ID: "add-item-btn", Kind: form.KindButton})
	doc.Add(form.Element{ID: "elsewhere", Kind: form.KindText})
	return doc
}

func techConfig(sink Sink) Config {
	return Config{
		Name:      "technician",
		InputID:   "tecnico",
		ResultsID: "tecnico-options",
		TriggerID: "add-item-btn",
		Dataset:   technicians(),
		Renderer:  nameRenderer{},
		Sink:      sink,
	}
}

func newTechSelector(t *testing.T, doc *form.Document, p Provider, clock Clock) (*Selector, *techSink) {
	t.Helper()
	sink := &techSink{}
	s, err := New(doc, techConfig(sink), Options{Provider: p, Clock: clock})
	require.NoError(t, err)
	return s, sink
}

func rowTexts(doc *form.Document, id string) []string {
	var out []string
	for _, r := range doc.Children(id) {
		out = append(out, r.Text)
	}
	return out
}

// --- Setup ---

func TestNew_MissingElementIsSetupError(t *testing.T) {
	t.Parallel()

	doc := newPage()
	doc.Remove("id-tecnico-hidden")

	_, err := New(doc, techConfig(&techSink{}), Options{Provider: &LocalProvider{}})
	var setupErr *SetupError
	require.ErrorAs(t, err, &setupErr)
	assert.Equal(t, "technician", setupErr.Selector)
	assert.True(t, errors.Is(err, form.ErrNotFound))
	assert.Contains(t, err.Error(), "id-tecnico-hidden")
}

func TestNew_RequiresProviderAndSink(t *testing.T) {
	t.Parallel()

	_, err := New(newPage(), techConfig(&techSink{}), Options{})
	assert.Error(t, err)

	cfg := techConfig(nil)
	cfg.Sink = nil
	_, err = New(newPage(), cfg, Options{Provider: &LocalProvider{}})
	assert.Error(t, err)
}

// --- Debounce + resolution ---

func TestSelector_LocalScenario(t *testing.T) {
	t.Parallel()

	doc := newPage()
	clock := &manualClock{}
	s, _ := newTechSelector(t, doc, &LocalProvider{Dataset: technicians()}, clock)

	s.Keystroke("Ana")
	assert.False(t, doc.Visible("tecnico-options"), "nothing before the window elapses")

	clock.Advance(DefaultDebounce)
	assert.True(t, doc.Visible("tecnico-options"))
	assert.Equal(t, []string{"Ana Gómez"}, rowTexts(doc, "tecnico-options"))

	selected, err := s.Click("tecnico-options/0")
	require.NoError(t, err)
	assert.True(t, selected)
	assert.Equal(t, "Ana Gómez", doc.Value("tecnico"))
	assert.Equal(t, "102", doc.Value("id-tecnico-hidden"))
	assert.False(t, doc.Visible("tecnico-options"))
}

func TestSelector_RapidInputResolvesOncePerWindow(t *testing.T) {
	t.Parallel()

	doc := newPage()
	clock := &manualClock{}
	p := &countingProvider{inner: &LocalProvider{Dataset: technicians()}}
	s, _ := newTechSelector(t, doc, p, clock)

	for _, v := range []string{"c", "ca", "car", "carl", "carlo"} {
		s.Keystroke(v)
		clock.Advance(100 * time.Millisecond)
	}
	assert.Equal(t, int32(0), p.calls.Load())

	clock.Advance(DefaultDebounce)
	assert.Equal(t, int32(1), p.calls.Load())
	assert.Equal(t, "carlo", p.last.Load())
	assert.Equal(t, []string{"Carlos Ruiz"}, rowTexts(doc, "tecnico-options"))

	// A quiet input does not resolve again.
	clock.Advance(10 * DefaultDebounce)
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestSelector_QueryIsLowerCased(t *testing.T) {
	t.Parallel()

	clock := &manualClock{}
	p := &countingProvider{inner: &LocalProvider{Dataset: technicians()}}
	s, _ := newTechSelector(t, newPage(), p, clock)

	s.Keystroke("JUAN")
	clock.Advance(DefaultDebounce)
	assert.Equal(t, "juan", p.last.Load())
}

func TestSelector_EmptyInputHidesWithoutSearching(t *testing.T) {
	t.Parallel()

	for _, mode := range []Mode{ModeLocal, ModeRemote} {
		mode := mode
		t.Run(string(mode), func(t *testing.T) {
			t.Parallel()
			doc := newPage()
			clock := &manualClock{}
			p := &countingProvider{inner: NewProvider(mode, "http://127.0.0.1:0/unused", technicians(), nil, nil)}
			s, _ := newTechSelector(t, doc, p, clock)

			s.Keystroke("")
			clock.Advance(time.Second)
			assert.Equal(t, int32(0), p.calls.Load())
			assert.False(t, doc.Visible("tecnico-options"))
			assert.Empty(t, doc.Children("tecnico-options"))
		})
	}
}

func TestSelector_EmptyInputClearsShownResults(t *testing.T) {
	t.Parallel()

	doc := newPage()
	clock := &manualClock{}
	p := &countingProvider{inner: &LocalProvider{Dataset: technicians()}}
	s, _ := newTechSelector(t, doc, p, clock)

	s.Keystroke("a")
	clock.Advance(DefaultDebounce)
	require.True(t, doc.Visible("tecnico-options"))

	s.Keystroke("ab")
	s.Keystroke("") // Cancels the armed timer too.
	assert.False(t, doc.Visible("tecnico-options"))
	assert.Empty(t, doc.Children("tecnico-options"))

	clock.Advance(time.Second)
	assert.Equal(t, int32(1), p.calls.Load())
	assert.False(t, s.Pending())
}

func TestSelector_NoResultsPlaceholderIsVisible(t *testing.T) {
	t.Parallel()

	doc := newPage()
	clock := &manualClock{}
	s, sink := newTechSelector(t, doc, &LocalProvider{Dataset: technicians()}, clock)

	s.Keystroke("zzz")
	clock.Advance(DefaultDebounce)

	assert.True(t, doc.Visible("tecnico-options"))
	rows := doc.Children("tecnico-options")
	require.Len(t, rows, 1)
	assert.Equal(t, form.ClassOptionEmpty, rows[0].Class)
	assert.Equal(t, NoResultsText, rows[0].Text)

	selected, err := s.Click(rows[0].ID)
	require.NoError(t, err)
	assert.False(t, selected, "placeholder rows are not interactive")
	assert.Zero(t, sink.selectCalls)
	assert.True(t, doc.Visible("tecnico-options"))
}

func TestSelector_ProviderErrorRendersSingleErrorRow(t *testing.T) {
	t.Parallel()

	doc := newPage()
	clock := &manualClock{}
	s, _ := newTechSelector(t, doc, errProvider{err: &StatusError{Code: 500, Status: "500 Internal Server Error"}}, clock)

	s.Keystroke("x")
	clock.Advance(DefaultDebounce)

	rows := doc.Children("tecnico-options")
	require.Len(t, rows, 1)
	assert.Equal(t, form.ClassOptionError, rows[0].Class)
	assert.Equal(t, ErrorText, rows[0].Text)
	assert.True(t, doc.Visible("tecnico-options"))
}

func TestSelector_RemoteNonSuccess(t *testing.T) {
	t.Parallel()

	srv, _ := newEndpoint(t, http.StatusBadGateway, `[{"id":1,"nombre":"stale"}]`)
	doc := newPage()
	clock := &manualClock{}
	s, _ := newTechSelector(t, doc, NewRemoteProvider(srv.URL, srv.Client(), nil), clock)

	s.Keystroke("st")
	clock.Advance(DefaultDebounce)

	rows := doc.Children("tecnico-options")
	require.Len(t, rows, 1)
	assert.Equal(t, form.ClassOptionError, rows[0].Class)
}

func TestSelector_RemoteSingleObject(t *testing.T) {
	t.Parallel()

	srv, _ := newEndpoint(t, http.StatusOK, `{"id":102,"nombre":"Ana Gómez"}`)
	doc := newPage()
	clock := &manualClock{}
	s, _ := newTechSelector(t, doc, NewRemoteProvider(srv.URL, srv.Client(), nil), clock)

	s.Keystroke("ana")
	clock.Advance(DefaultDebounce)
	assert.Equal(t, []string{"Ana Gómez"}, rowTexts(doc, "tecnico-options"))

	_, err := s.Click("tecnico-options/0")
	require.NoError(t, err)
	assert.Equal(t, "102", doc.Value("id-tecnico-hidden"))
}

// gatedProvider blocks each search until released, so tests can interleave
// responses.
type gatedProvider struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
	data  []Candidate
}

func (p *gatedProvider) gate(q string) chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gates == nil {
		p.gates = make(map[string]chan struct{})
	}
	ch, ok := p.gates[q]
	if !ok {
		ch = make(chan struct{})
		p.gates[q] = ch
	}
	return ch
}

func (p *gatedProvider) Search(_ context.Context, q string) ([]Candidate, error) {
	<-p.gate(q)
	return Filter(p.data, q), nil
}

func TestSelector_LateResponseOfSupersededQueryIsDropped(t *testing.T) {
	t.Parallel()

	doc := newPage()
	clock := &manualClock{}
	p := &gatedProvider{data: technicians()}
	s, _ := newTechSelector(t, doc, p, clock)

	// First query starts resolving and blocks in the provider.
	s.Keystroke("juan")
	firstDone := make(chan struct{})
	go func() {
		clock.Advance(DefaultDebounce)
		close(firstDone)
	}()
	require.Eventually(t, s.Pending, time.Second, time.Millisecond)

	// Second query resolves first.
	s.Keystroke("ana")
	close(p.gate("ana"))
	clock.Advance(DefaultDebounce)
	assert.Equal(t, []string{"Ana Gómez"}, rowTexts(doc, "tecnico-options"))

	// The first response arrives late and must not overwrite.
	close(p.gate("juan"))
	<-firstDone
	assert.Equal(t, []string{"Ana Gómez"}, rowTexts(doc, "tecnico-options"))
}

func TestSelector_ResponseAfterClearingIsDropped(t *testing.T) {
	t.Parallel()

	doc := newPage()
	clock := &manualClock{}
	p := &gatedProvider{data: technicians()}
	s, _ := newTechSelector(t, doc, p, clock)

	s.Keystroke("ana")
	done := make(chan struct{})
	go func() {
		clock.Advance(DefaultDebounce)
		close(done)
	}()
	require.Eventually(t, s.Pending, time.Second, time.Millisecond)

	s.Keystroke("")
	close(p.gate("ana"))
	<-done

	assert.False(t, doc.Visible("tecnico-options"))
	assert.Empty(t, doc.Children("tecnico-options"))
}

func TestSelector_OnChangeNotifies(t *testing.T) {
	t.Parallel()

	doc := newPage()
	clock := &manualClock{}
	var names []string
	s, err := New(doc, techConfig(&techSink{}), Options{
		Provider: &LocalProvider{Dataset: technicians()},
		Clock:    clock,
		OnChange: func(name string) { names = append(names, name) },
	})
	require.NoError(t, err)

	s.Keystroke("ana")
	clock.Advance(DefaultDebounce)
	_, err = s.Click("tecnico-options/0")
	require.NoError(t, err)

	assert.Equal(t, []string{"technician", "technician"}, names)
}

func TestSelector_ClickUnknownRow(t *testing.T) {
	t.Parallel()

	s, _ := newTechSelector(t, newPage(), &LocalProvider{Dataset: technicians()}, &manualClock{})
	for _, id := range []string{"tecnico-options/0", "tecnico-options/x", "other/0", "tecnico-options/-1"} {
		ok, err := s.Click(id)
		assert.NoError(t, err)
		assert.False(t, ok, id)
	}
}

func TestSelector_ClickOnHiddenResultsSelectsNothing(t *testing.T) {
	t.Parallel()

	doc := newPage()
	clock := &manualClock{}
	s, _ := newTechSelector(t, doc, &LocalProvider{Dataset: technicians()}, clock)

	s.Keystroke("ana")
	clock.Advance(DefaultDebounce)
	require.True(t, doc.Visible("tecnico-options"))

	s.Hide()
	selected, err := s.Click("tecnico-options/0")
	require.NoError(t, err)
	assert.False(t, selected)
	assert.Equal(t, "ana", doc.Value("tecnico"))
	assert.Empty(t, doc.Value("id-tecnico-hidden"))
}

package typeahead

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/taller/internal/form"
)

// twoSelectors mounts a technician selector and a second, client-like one
// on the same page and registers both.
func twoSelectors(t *testing.T) (*form.Document, *manualClock, *Dispatcher, *Selector, *Selector) {
	t.Helper()
	doc := newPage()
	doc.Add(form.Element{ID: "buscar-cliente", Kind: form.KindInput})
	doc.Add(form.Element{ID: "cliente-options", Kind: form.KindContainer})

	clock := &manualClock{}
	tech, _ := newTechSelector(t, doc, &LocalProvider{Dataset: technicians()}, clock)
	client, err := New(doc, Config{
		Name:      "client",
		InputID:   "buscar-cliente",
		ResultsID: "cliente-options",
		TriggerID: "add-item-btn",
		Renderer:  nameRenderer{},
		Sink:      &inputOnlySink{input: "buscar-cliente"},
	}, Options{Provider: &LocalProvider{Dataset: []Candidate{{"nombre": "Laura Martínez"}}}, Clock: clock})
	require.NoError(t, err)

	d := NewDispatcher()
	d.Register(tech)
	d.Register(client)
	return doc, clock, d, tech, client
}

type inputOnlySink struct{ input string }

func (s *inputOnlySink) Targets() []string { return []string{s.input} }

func (s *inputOnlySink) Select(c Candidate, w form.Writer) error {
	return w.SetValue(s.input, c.Text("nombre"))
}

func TestDispatcher_OutsideClickHidesAll(t *testing.T) {
	t.Parallel()

	doc, clock, d, tech, client := twoSelectors(t)
	tech.Keystroke("a")
	client.Keystroke("a")
	clock.Advance(DefaultDebounce)
	require.True(t, doc.Visible("tecnico-options"))
	require.True(t, doc.Visible("cliente-options"))

	d.PointerDown("elsewhere")
	assert.False(t, doc.Visible("tecnico-options"))
	assert.False(t, doc.Visible("cliente-options"))
}

func TestDispatcher_ExemptTargets(t *testing.T) {
	t.Parallel()

	doc, clock, d, tech, client := twoSelectors(t)
	tech.Keystroke("a")
	client.Keystroke("a")
	clock.Advance(DefaultDebounce)

	// Clicking the technician input keeps its results but dismisses the client's.
	d.PointerDown("tecnico")
	assert.True(t, doc.Visible("tecnico-options"))
	assert.False(t, doc.Visible("cliente-options"))

	// The add trigger is exempt for every selector.
	client.Keystroke("la")
	clock.Advance(DefaultDebounce)
	d.PointerDown("add-item-btn")
	assert.True(t, doc.Visible("tecnico-options"))
	assert.True(t, doc.Visible("cliente-options"))

	// Clicking inside a container (placeholder row included) keeps it open.
	tech.Keystroke("zzz")
	clock.Advance(DefaultDebounce)
	d.PointerDown("tecnico-options/empty")
	assert.True(t, doc.Visible("tecnico-options"))
	assert.False(t, doc.Visible("cliente-options"))
}

func TestDispatcher_RowClickCommitsBeforeDismissal(t *testing.T) {
	t.Parallel()

	doc, clock, d, tech, client := twoSelectors(t)
	tech.Keystroke("ana")
	client.Keystroke("laura")
	clock.Advance(DefaultDebounce)

	selected, err := d.Click("tecnico-options/0")
	require.NoError(t, err)
	assert.True(t, selected)

	assert.Equal(t, "Ana Gómez", doc.Value("tecnico"))
	assert.Equal(t, "102", doc.Value("id-tecnico-hidden"))
	assert.False(t, doc.Visible("tecnico-options"), "selection hides its own results")
	assert.False(t, doc.Visible("cliente-options"), "other results are dismissed")
	assert.Equal(t, "laura", doc.Value("buscar-cliente"))
}

func TestDispatcher_Selectors(t *testing.T) {
	t.Parallel()

	_, _, d, tech, client := twoSelectors(t)
	assert.Equal(t, []*Selector{tech, client}, d.Selectors())
}

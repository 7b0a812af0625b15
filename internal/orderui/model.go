// Package orderui is the terminal host of the order form: it draws the page,
// turns keystrokes into input changes and mouse presses into pointer events.
package orderui

import (
	"errors"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/runger/taller/internal/order"
)

// Changes carries selector change notifications into the program.
type Changes chan order.Field

// NewChanges returns a buffered Changes.
func NewChanges() Changes {
	return make(Changes, 64)
}

// Notify is the form's OnChange hook. It never blocks; when the buffer is
// full a redraw is already queued.
func (c Changes) Notify(f order.Field) {
	select {
	case c <- f:
	default:
	}
}

// changedMsg is delivered when a selector changed its results.
type changedMsg struct {
	field order.Field
}

// focusOrder lists the focusable elements in tab order.
var focusOrder = []string{
	order.TecnicoInput,
	order.ClienteInput,
	order.VehiculoInput,
	order.ItemNameInput,
	order.ItemPriceInput,
	order.ItemQtyInput,
	order.AddItemButton,
}

// Model is the Bubble Tea model for the order form.
type Model struct {
	form    *order.Form
	changes Changes

	inputs map[string]*textinput.Model
	focus  int // Index into focusOrder

	width  int
	height int

	status   string // Last action error, shown above the help line
	finished bool
}

// NewModel creates a Model for a mounted form. changes must be the channel
// whose Notify was passed as the form's OnChange.
func NewModel(f *order.Form, changes Changes) Model {
	inputs := make(map[string]*textinput.Model, len(focusOrder)-1)
	for _, id := range focusOrder {
		if id == order.AddItemButton {
			continue
		}
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 120
		ti.SetValue(f.Document().Value(id))
		inputs[id] = &ti
	}
	m := Model{form: f, changes: changes, inputs: inputs}
	m.inputs[focusOrder[0]].Focus()
	return m
}

// Order returns the payload assembled so far.
func (m Model) Order() order.Order {
	return m.form.Order()
}

// Finished reports whether the user closed the form.
func (m Model) Finished() bool {
	return m.finished
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForChange())
}

// waitForChange blocks on the next notification.
func (m Model) waitForChange() tea.Cmd {
	ch := m.changes
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		f, ok := <-ch
		if !ok {
			return nil
		}
		return changedMsg{field: f}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case changedMsg:
		m.syncInputs()
		return m, m.waitForChange()
	}

	return m, m.updateFocused(msg)
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.finished = true
		return m, tea.Quit

	case tea.KeyTab:
		return m, m.moveFocus(1)

	case tea.KeyShiftTab:
		return m, m.moveFocus(-1)

	case tea.KeyEnter:
		if m.focusedID() == order.AddItemButton {
			m.click(order.AddItemButton)
		}
		return m, nil
	}

	id := m.focusedID()
	ti, ok := m.inputs[id]
	if !ok {
		return m, nil
	}
	before := ti.Value()
	var cmd tea.Cmd
	*ti, cmd = ti.Update(msg)
	if after := ti.Value(); after != before {
		m.inputChanged(id, after)
	}
	return m, cmd
}

// inputChanged forwards a new input value: search inputs become
// keystrokes, the others are written straight into the page.
func (m *Model) inputChanged(id, value string) {
	if field, ok := order.ParseField(id); ok {
		m.setStatus(m.form.Type(field, value))
		return
	}
	m.setStatus(m.form.Document().SetValue(id, value))
}

// handleMouse turns a left press into a pointer event on the element under
// the cursor.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}
	id := m.hit(msg.Y)
	var cmd tea.Cmd
	if i := indexOf(focusOrder, id); i >= 0 {
		cmd = m.setFocus(i)
	}
	m.click(id)
	return m, cmd
}

// moveFocus focuses the next (or previous) element. Results the new
// element is outside of are dismissed.
func (m *Model) moveFocus(delta int) tea.Cmd {
	n := len(focusOrder)
	next := ((m.focus+delta)%n + n) % n
	cmd := m.setFocus(next)
	m.form.Focus(focusOrder[next])
	return cmd
}

func (m *Model) setFocus(i int) tea.Cmd {
	if ti, ok := m.inputs[m.focusedID()]; ok {
		ti.Blur()
	}
	m.focus = i
	if ti, ok := m.inputs[m.focusedID()]; ok {
		return ti.Focus()
	}
	return nil
}

func (m Model) focusedID() string {
	return focusOrder[m.focus]
}

// click delivers a pointer press on id ("" means outside every element)
// and pulls the resulting values back into the inputs.
func (m *Model) click(id string) {
	if id == "" {
		id = "outside"
	}
	err := m.form.Click(id)
	m.setStatus(err)
	m.syncInputs()
}

func (m *Model) setStatus(err error) {
	switch {
	case err == nil:
		m.status = ""
	case errors.Is(err, order.ErrNoItem):
		m.status = "Escribe un producto antes de añadir."
	default:
		m.status = err.Error()
	}
}

// syncInputs copies page values that changed behind an input (selections,
// cleared item fields) into the input.
func (m *Model) syncInputs() {
	doc := m.form.Document()
	for id, ti := range m.inputs {
		if v := doc.Value(id); v != ti.Value() {
			ti.SetValue(v)
		}
	}
}

// updateFocused routes other messages (cursor blink) to the focused input.
func (m Model) updateFocused(msg tea.Msg) tea.Cmd {
	ti, ok := m.inputs[m.focusedID()]
	if !ok {
		return nil
	}
	var cmd tea.Cmd
	*ti, cmd = ti.Update(msg)
	return cmd
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

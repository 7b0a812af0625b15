package orderui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/runger/taller/internal/form"
	"github.com/runger/taller/internal/order"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(11)
	focusStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")).Width(11)
	optionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	emptyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	buttonStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("238")).Padding(0, 1)
	buttonActive = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	totalStyle   = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// line is one rendered row of the screen and the element a press on it
// lands on ("" for none).
type line struct {
	id   string
	text string
}

// section describes one searchable field on screen.
type section struct {
	label string
	field order.Field
	info  string // Text element under the input; "" for none
}

var sections = []section{
	{"Técnico", order.Technician, ""},
	{"Cliente", order.Client, order.ClienteInfo},
	{"Vehículo", order.Vehicle, order.VehiculoInfo},
	{"Producto", order.Product, ""},
}

// View implements tea.Model.
func (m Model) View() string {
	lines := m.lines()
	if m.height > 0 && len(lines) > m.height {
		lines = lines[:m.height]
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.text
	}
	return strings.Join(out, "\n")
}

// hit returns the element drawn on screen row y.
func (m Model) hit(y int) string {
	lines := m.lines()
	if y < 0 || y >= len(lines) {
		return ""
	}
	return lines[y].id
}

// lines lays the page out top to bottom.
func (m Model) lines() []line {
	doc := m.form.Document()
	out := []line{{text: titleStyle.Render(" Orden de trabajo ")}, {}}

	for _, s := range sections {
		id := s.field.InputID()
		out = append(out, line{id: id, text: m.inputLine(s.label, id)})
		if s.info != "" {
			if info := doc.Text(s.info); info != "" {
				out = append(out, line{id: s.info, text: pad(11) + infoStyle.Render(m.fit(Clean(info), 11))})
			}
		}
		out = append(out, m.resultLines(s.field)...)
	}

	out = append(out,
		line{id: order.ItemPriceInput, text: m.inputLine("Precio", order.ItemPriceInput)},
		line{id: order.ItemQtyInput, text: m.inputLine("Cantidad", order.ItemQtyInput)},
		line{id: order.AddItemButton, text: pad(11) + m.button()},
		line{},
	)

	if table := doc.Text(order.ItemsTable); table != "" {
		for _, row := range strings.Split(table, "\n") {
			out = append(out, line{id: order.ItemsTable, text: m.fit(Clean(row), 0)})
		}
	}
	if total := doc.Text(order.OrderTotal); total != "" {
		out = append(out, line{id: order.OrderTotal, text: totalStyle.Render("Total: " + total)})
	}

	out = append(out, line{})
	if m.status != "" {
		out = append(out, line{text: errorStyle.Render(m.fit(m.status, 0))})
	}
	out = append(out, line{text: dimStyle.Render("tab: siguiente campo · clic: elegir resultado · esc: terminar")})
	return out
}

func (m Model) inputLine(label, id string) string {
	style := labelStyle
	if m.focusedID() == id {
		style = focusStyle
	}
	return style.Render(label+":") + m.inputs[id].View()
}

// resultLines renders a field's results container when it is visible.
func (m Model) resultLines(field order.Field) []line {
	doc := m.form.Document()
	if !doc.Visible(field.ResultsID()) {
		return nil
	}
	var out []line
	for _, row := range doc.Children(field.ResultsID()) {
		out = append(out, line{id: row.ID, text: pad(11) + m.renderRow(row)})
	}
	return out
}

func (m Model) renderRow(row form.Element) string {
	const indent = 11
	switch row.Class {
	case form.ClassOption:
		title := Clean(row.Text)
		if row.Detail == "" {
			return optionStyle.Render(m.fit(title, indent))
		}
		detail := " (" + Clean(row.Detail) + ")"
		full := m.fit(title+detail, indent)
		if full != title+detail || !strings.HasPrefix(full, title) {
			return optionStyle.Render(full)
		}
		return optionStyle.Render(title) + detailStyle.Render(detail)
	case form.ClassOptionError:
		return errorStyle.Render(m.fit(row.Text, indent))
	default:
		return emptyStyle.Render(m.fit(row.Text, indent))
	}
}

func (m Model) button() string {
	label := m.form.Document().Text(order.AddItemButton)
	if m.focusedID() == order.AddItemButton {
		return buttonActive.Render(label)
	}
	return buttonStyle.Render(label)
}

// fit truncates s to the terminal width minus indent columns. Before the
// first WindowSizeMsg nothing is truncated.
func (m Model) fit(s string, indent int) string {
	if m.width <= indent {
		return s
	}
	return Truncate(s, m.width-indent)
}

func pad(n int) string {
	return strings.Repeat(" ", n)
}

package order

import (
	"strconv"

	"github.com/runger/taller/internal/form"
	"github.com/runger/taller/internal/typeahead"
)

// Field names the four searchable fields of the order form.
type Field string

const (
	Technician Field = "technician"
	Client     Field = "client"
	Vehicle    Field = "vehicle"
	Product    Field = "product"
)

// Fields lists the searchable fields in page order.
var Fields = []Field{Technician, Client, Vehicle, Product}

// ParseField accepts a field name or the id of its input.
func ParseField(s string) (Field, bool) {
	for _, f := range Fields {
		if s == string(f) || s == bindings[f].input {
			return f, true
		}
	}
	return "", false
}

// Element ids of the order page.
const (
	TecnicoInput    = "tecnico"
	TecnicoOptions  = "tecnico-options"
	TecnicoHidden   = "id-tecnico-hidden"
	ClienteInput    = "buscar-cliente"
	ClienteOptions  = "cliente-options"
	ClienteInfo     = "cliente-info"
	ClienteHidden   = "id-cliente-hidden"
	VehiculoInput   = "buscar-vehiculo"
	VehiculoOptions = "vehiculo-options"
	VehiculoInfo    = "vehiculo-info"
	VehiculoHidden  = "id-vehiculo-hidden"
	ItemNameInput   = "new-item-name"
	ItemOptions     = "product-options"
	ItemPriceInput  = "new-item-price"
	ItemQtyInput    = "new-item-qty"
	ItemHidden      = "new-item-id-hidden"
	AddItemButton   = "add-item-btn"
	ItemsTable      = "items-table"
	OrderTotal      = "order-total"
)

// binding ties a field to its elements, renderer and sink.
type binding struct {
	input    string
	results  string
	renderer typeahead.Renderer
	sink     typeahead.Sink
}

var bindings = map[Field]binding{
	Technician: {TecnicoInput, TecnicoOptions, technicianRenderer{}, technicianSink{}},
	Client:     {ClienteInput, ClienteOptions, clientRenderer{}, clientSink{}},
	Vehicle:    {VehiculoInput, VehiculoOptions, vehicleRenderer{}, vehicleSink{}},
	Product:    {ItemNameInput, ItemOptions, productRenderer{}, productSink{}},
}

// InputID returns the id of the field's search input.
func (f Field) InputID() string { return bindings[f].input }

// ResultsID returns the id of the field's results container.
func (f Field) ResultsID() string { return bindings[f].results }

// Renderer returns the field's row renderer.
func (f Field) Renderer() typeahead.Renderer { return bindings[f].renderer }

// Sink returns the field's selection sink.
func (f Field) Sink() typeahead.Sink { return bindings[f].sink }

// --- Technician ---

type technicianRenderer struct{}

func (technicianRenderer) Render(c typeahead.Candidate) typeahead.Display {
	return typeahead.Display{Title: c.Text("nombre")}
}

type technicianSink struct{}

func (technicianSink) Targets() []string { return []string{TecnicoInput, TecnicoHidden} }

func (technicianSink) Select(c typeahead.Candidate, w form.Writer) error {
	name, id := c.Text("nombre"), c.Text("id")
	return writeAll(w,
		value(TecnicoInput, name),
		value(TecnicoHidden, id),
	)
}

// --- Client ---

type clientRenderer struct{}

func (clientRenderer) Render(c typeahead.Candidate) typeahead.Display {
	return typeahead.Display{Title: c.Text("nombre"), Detail: c.TextOr("dni", "Sin DNI")}
}

type clientSink struct{}

func (clientSink) Targets() []string { return []string{ClienteInput, ClienteInfo, ClienteHidden} }

func (clientSink) Select(c typeahead.Candidate, w form.Writer) error {
	name, id := c.Text("nombre"), c.Text("id")
	info := c.TextOr("dni", "") + " | " + c.TextOr("telefono", "")
	return writeAll(w,
		value(ClienteInput, name),
		text(ClienteInfo, info),
		value(ClienteHidden, id),
	)
}

// --- Vehicle ---

type vehicleRenderer struct{}

func (vehicleRenderer) Render(c typeahead.Candidate) typeahead.Display {
	return typeahead.Display{Title: vehicleLabel(c), Detail: c.Text("Matricula")}
}

type vehicleSink struct{}

func (vehicleSink) Targets() []string { return []string{VehiculoInput, VehiculoInfo, VehiculoHidden} }

func (vehicleSink) Select(c typeahead.Candidate, w form.Writer) error {
	label, plate, id := vehicleLabel(c), c.Text("Matricula"), c.Text("id")
	return writeAll(w,
		value(VehiculoInput, label),
		text(VehiculoInfo, plate),
		value(VehiculoHidden, id),
	)
}

func vehicleLabel(c typeahead.Candidate) string {
	return c.Text("Marca") + " " + c.Text("Propietario")
}

// --- Product ---

type productRenderer struct{}

func (productRenderer) Render(c typeahead.Candidate) typeahead.Display {
	return typeahead.Display{Title: c.Text("nombre"), Detail: FormatPrice(c.Float("precio_venta")) + "€"}
}

type productSink struct{}

func (productSink) Targets() []string { return []string{ItemNameInput, ItemPriceInput, ItemHidden} }

func (productSink) Select(c typeahead.Candidate, w form.Writer) error {
	name, price, id := c.Text("nombre"), FormatPrice(c.Float("precio_venta")), c.Text("id")
	return writeAll(w,
		value(ItemNameInput, name),
		value(ItemPriceInput, price),
		value(ItemHidden, id),
	)
}

// FormatPrice renders an amount with two decimals.
func FormatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// --- Write helpers ---

type write func(form.Writer) error

func value(id, v string) write {
	return func(w form.Writer) error { return w.SetValue(id, v) }
}

func text(id, t string) write {
	return func(w form.Writer) error { return w.SetText(id, t) }
}

// writeAll applies writes in order, stopping at the first failure. Setup
// has already checked every target, so a failure here means the page
// changed under the selector.
func writeAll(w form.Writer, writes ...write) error {
	for _, fn := range writes {
		if err := fn(w); err != nil {
			return err
		}
	}
	return nil
}

// Package order wires four typeahead selectors (technician, client, vehicle
// and product) onto the workshop order page and keeps the order's line
// items.
package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/runger/taller/internal/form"
	"github.com/runger/taller/internal/typeahead"
)

// ErrNoItem is returned by AddItem when no product name has been entered.
var ErrNoItem = errors.New("no item to add")

// NewPage builds the order page with every element the form needs.
func NewPage() *form.Document {
	doc := form.NewDocument()
	add := func(id string, kind form.Kind) {
		doc.Add(form.Element{ID: id, Kind: kind})
	}

	add(TecnicoInput, form.KindInput)
	add(TecnicoOptions, form.KindContainer)
	add(TecnicoHidden, form.KindHidden)

	add(ClienteInput, form.KindInput)
	add(ClienteOptions, form.KindContainer)
	add(ClienteInfo, form.KindText)
	add(ClienteHidden, form.KindHidden)

	add(VehiculoInput, form.KindInput)
	add(VehiculoOptions, form.KindContainer)
	add(VehiculoInfo, form.KindText)
	add(VehiculoHidden, form.KindHidden)

	add(ItemNameInput, form.KindInput)
	add(ItemOptions, form.KindContainer)
	add(ItemPriceInput, form.KindInput)
	add(ItemQtyInput, form.KindInput)
	add(ItemHidden, form.KindHidden)
	doc.Add(form.Element{ID: AddItemButton, Kind: form.KindButton, Text: "Añadir"})
	add(ItemsTable, form.KindText)
	add(OrderTotal, form.KindText)
	return doc
}

// Options configures Mount.
type Options struct {
	// Mode applies to all four selectors.
	Mode      typeahead.Mode
	Endpoints map[Field]string
	// Datasets overrides the local fallback data per field; missing fields
	// use Seed.
	Datasets map[Field][]typeahead.Candidate
	Client   *http.Client
	Clock    typeahead.Clock
	Debounce time.Duration
	Timeout  time.Duration
	Logger   *slog.Logger

	// OnChange is called after any selector changes its results.
	OnChange func(Field)
}

// LineItem is one row of the order's item table.
type LineItem struct {
	ProductID string  `json:"product_id,omitempty"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// Total is price times quantity.
func (li LineItem) Total() float64 {
	return li.Price * float64(li.Quantity)
}

// Order is the payload assembled from the form.
type Order struct {
	TechnicianID string     `json:"tecnico_id"`
	ClientID     string     `json:"cliente_id"`
	VehicleID    string     `json:"vehiculo_id"`
	Items        []LineItem `json:"items"`
	Total        float64    `json:"total"`
}

// Form is the mounted order form.
type Form struct {
	doc        *form.Document
	dispatcher *typeahead.Dispatcher
	selectors  map[Field]*typeahead.Selector
	logger     *slog.Logger

	mu    sync.Mutex
	items []LineItem
}

// Mount binds the four selectors to doc. A selector whose elements are
// missing is skipped and its *typeahead.SetupError is included in the
// returned error; the remaining selectors are mounted and usable, so the
// returned Form is never nil.
func Mount(doc *form.Document, opts Options) (*Form, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mode := opts.Mode
	if mode == "" {
		mode = typeahead.ModeLocal
	}

	f := &Form{
		doc:        doc,
		dispatcher: typeahead.NewDispatcher(),
		selectors:  make(map[Field]*typeahead.Selector, len(Fields)),
		logger:     logger,
	}

	var errs []error
	for _, field := range Fields {
		dataset, ok := opts.Datasets[field]
		if !ok {
			dataset = Seed(field)
		}
		endpoint := opts.Endpoints[field]
		cfg := typeahead.Config{
			Name:      string(field),
			InputID:   field.InputID(),
			ResultsID: field.ResultsID(),
			TriggerID: AddItemButton,
			Endpoint:  endpoint,
			Dataset:   dataset,
			Renderer:  field.Renderer(),
			Sink:      field.Sink(),
		}

		field := field
		var onChange func(string)
		if opts.OnChange != nil {
			onChange = func(string) { opts.OnChange(field) }
		}

		sel, err := typeahead.New(doc, cfg, typeahead.Options{
			Provider: typeahead.NewProvider(mode, endpoint, dataset, opts.Client, logger),
			Clock:    opts.Clock,
			Debounce: opts.Debounce,
			Timeout:  opts.Timeout,
			Logger:   logger,
			OnChange: onChange,
		})
		if err != nil {
			logger.Error("selector not mounted", "field", field, "error", err)
			errs = append(errs, err)
			continue
		}
		f.selectors[field] = sel
		f.dispatcher.Register(sel)
	}

	logger.Debug("order form mounted", "mode", mode, "selectors", len(f.selectors))
	return f, errors.Join(errs...)
}

// Document returns the page the form is mounted on.
func (f *Form) Document() *form.Document {
	return f.doc
}

// Selector returns the mounted selector of a field.
func (f *Form) Selector(field Field) (*typeahead.Selector, bool) {
	s, ok := f.selectors[field]
	return s, ok
}

// Type replaces the value of a field's input, as one keystroke.
func (f *Form) Type(field Field, value string) error {
	s, ok := f.selectors[field]
	if !ok {
		return fmt.Errorf("field %s is not mounted", field)
	}
	s.Keystroke(value)
	return nil
}

// Settle blocks until no selector has a search armed or in flight.
func (f *Form) Settle(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(settlePoll)
	defer ticker.Stop()
	for {
		if !f.busy() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("searches still running: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (f *Form) busy() bool {
	for _, s := range f.selectors {
		if s.Busy() {
			return true
		}
	}
	return false
}

// Click handles a pointer press on an element: row selection, the add
// trigger, then dismissal of every results container the target is
// outside of.
func (f *Form) Click(target string) error {
	var addErr error
	if target == AddItemButton {
		addErr = f.AddItem()
	}
	_, err := f.dispatcher.Click(target)
	return errors.Join(addErr, err)
}

// Pick selects the n-th result row of a field, as a press on that row.
// It fails, leaving the page untouched, when the field's results are hidden
// or have no such row.
func (f *Form) Pick(field Field, n int) error {
	if _, ok := f.selectors[field]; !ok {
		return fmt.Errorf("field %s is not mounted", field)
	}
	if !f.doc.Visible(field.ResultsID()) {
		return fmt.Errorf("%s results are hidden", field)
	}
	rowID := field.ResultsID() + "/" + strconv.Itoa(n)
	row, err := f.doc.Lookup(rowID)
	if err != nil || row.Class != form.ClassOption {
		return fmt.Errorf("%s has no result %d", field, n)
	}
	selected, err := f.dispatcher.Click(rowID)
	if err != nil {
		return err
	}
	if !selected {
		return fmt.Errorf("%s result %d was not selected", field, n)
	}
	return nil
}

// Focus handles keyboard focus landing on target. Results the target is
// outside of are dismissed, as for a press, but nothing is activated.
func (f *Form) Focus(target string) {
	f.dispatcher.PointerDown(target)
}

// AddItem moves the product inputs into a new line item and clears them.
func (f *Form) AddItem() error {
	name := strings.TrimSpace(f.doc.Value(ItemNameInput))
	if name == "" {
		return ErrNoItem
	}

	price := 0.0
	if raw := strings.TrimSpace(f.doc.Value(ItemPriceInput)); raw != "" {
		p, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
		if err != nil || p < 0 {
			return fmt.Errorf("invalid price %q", raw)
		}
		price = p
	}

	qty := 1
	if raw := strings.TrimSpace(f.doc.Value(ItemQtyInput)); raw != "" {
		q, err := strconv.Atoi(raw)
		if err != nil || q < 1 {
			return fmt.Errorf("invalid quantity %q", raw)
		}
		qty = q
	}

	item := LineItem{
		ProductID: f.doc.Value(ItemHidden),
		Name:      name,
		Price:     price,
		Quantity:  qty,
	}

	f.mu.Lock()
	f.items = append(f.items, item)
	table, total := renderItems(f.items)
	f.mu.Unlock()
	f.logger.Info("line item added", "name", item.Name, "quantity", item.Quantity, "total", total)

	return f.doc.Apply(func(tx *form.Tx) error {
		for _, id := range []string{ItemNameInput, ItemPriceInput, ItemQtyInput, ItemHidden} {
			if err := tx.SetValue(id, ""); err != nil {
				return err
			}
		}
		if err := tx.SetText(ItemsTable, table); err != nil {
			return err
		}
		return tx.SetText(OrderTotal, FormatPrice(total)+"€")
	})
}

// Items returns a copy of the line items.
func (f *Form) Items() []LineItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]LineItem{}, f.items...)
}

// Order assembles the payload from the hidden id fields and line items.
func (f *Form) Order() Order {
	items := f.Items()
	_, total := renderItems(items)
	values := f.doc.Snapshot()
	return Order{
		TechnicianID: values[TecnicoHidden],
		ClientID:     values[ClienteHidden],
		VehicleID:    values[VehiculoHidden],
		Items:        items,
		Total:        total,
	}
}

func renderItems(items []LineItem) (string, float64) {
	var b strings.Builder
	total := 0.0
	for i, it := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d x %s @ %s€ = %s€", it.Quantity, it.Name, FormatPrice(it.Price), FormatPrice(it.Total()))
		total += it.Total()
	}
	return b.String(), total
}

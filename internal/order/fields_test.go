package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/taller/internal/form"
	"github.com/runger/taller/internal/typeahead"
)

func TestParseField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Field
		ok   bool
	}{
		{"technician", Technician, true},
		{"tecnico", Technician, true},
		{"buscar-cliente", Client, true},
		{"vehicle", Vehicle, true},
		{"new-item-name", Product, true},
		{"nope", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseField(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestRenderers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		field Field
		c     typeahead.Candidate
		want  string
	}{
		{"technician", Technician, typeahead.Candidate{"nombre": "Juan Pérez"}, "Juan Pérez"},
		{"client with dni", Client, typeahead.Candidate{"nombre": "Empresa ABC S.L.", "dni": "B12345678"}, "Empresa ABC S.L. (B12345678)"},
		{"client without dni", Client, typeahead.Candidate{"nombre": "Anon", "dni": ""}, "Anon (Sin DNI)"},
		{"client null dni", Client, typeahead.Candidate{"nombre": "Anon", "dni": nil}, "Anon (Sin DNI)"},
		{"vehicle", Vehicle, typeahead.Candidate{"Marca": "Toyota", "Propietario": "Corolla", "Matricula": "1234-ABC"}, "Toyota Corolla (1234-ABC)"},
		{"product", Product, typeahead.Candidate{"nombre": "Aceite 5W30", "precio_venta": 45.5}, "Aceite 5W30 (45.50€)"},
		{"product string price", Product, typeahead.Candidate{"nombre": "X", "precio_venta": "3.1"}, "X (3.10€)"},
		{"product missing price", Product, typeahead.Candidate{"nombre": "X"}, "X (0.00€)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.field.Renderer().Render(tt.c).String())
		})
	}
}

func TestSinks(t *testing.T) {
	t.Parallel()

	doc := NewPage()
	var w form.Writer = doc

	require.NoError(t, Client.Sink().Select(typeahead.Candidate{"id": float64(9), "nombre": "N", "telefono": "600"}, w))
	assert.Equal(t, "N", doc.Value(ClienteInput))
	assert.Equal(t, " | 600", doc.Text(ClienteInfo))
	assert.Equal(t, "9", doc.Value(ClienteHidden))

	require.NoError(t, Product.Sink().Select(typeahead.Candidate{"id": "p-1", "nombre": "P", "precio_venta": 2}, w))
	assert.Equal(t, "2.00", doc.Value(ItemPriceInput))
	assert.Equal(t, "p-1", doc.Value(ItemHidden))
}

func TestSinkTargetsExistOnPage(t *testing.T) {
	t.Parallel()

	doc := NewPage()
	for _, f := range Fields {
		assert.NoError(t, doc.Require(f.Sink().Targets()...), f)
	}
}

func TestSeedIsFilterable(t *testing.T) {
	t.Parallel()

	for _, f := range Fields {
		assert.NotEmpty(t, Seed(f), f)
	}
	assert.Nil(t, Seed("other"))
	assert.Len(t, typeahead.Filter(Seed(Vehicle), "corolla"), 1)
}

func TestFormatPrice(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "15.20", FormatPrice(15.2))
	assert.Equal(t, "0.00", FormatPrice(0))
	assert.Equal(t, "1234.57", FormatPrice(1234.567))
}

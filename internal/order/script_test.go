package order

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runScript(t *testing.T, src string) (string, error) {
	t.Helper()
	f := mountLocal(t)
	var out bytes.Buffer
	err := NewScript(f, &out).Run(context.Background(), strings.NewReader(src))
	return out.String(), err
}

func TestScript_FullOrder(t *testing.T) {
	t.Parallel()

	out, err := runScript(t, `
# technician
type technician ana
wait
visible technician true
pick technician 0
expect id-tecnico-hidden 102
visible technician false

type buscar-cliente "empresa abc"
wait 2s
pick client 0
expect cliente-info "B12345678 | 600111222"

type vehicle 1234
wait
pick vehicle 0
expect buscar-vehiculo "Toyota Corolla"

type product filtro
wait
show product
pick product 0
expect new-item-price 15.20
set new-item-qty 3
add
expect order-total 45.60€
order
`)
	require.NoError(t, err)

	assert.Contains(t, out, "product (visible):\n  [0] Filtro de Aire (15.20€)\n")

	start := strings.Index(out, "{")
	require.GreaterOrEqual(t, start, 0)
	var o Order
	require.NoError(t, json.Unmarshal([]byte(out[start:]), &o))
	assert.Equal(t, "102", o.TechnicianID)
	assert.Equal(t, "201", o.ClientID)
	assert.Equal(t, "301", o.VehicleID)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 3, o.Items[0].Quantity)
	assert.InDelta(t, 45.6, o.Total, 0.001)
}

func TestScript_NoResultsAndClear(t *testing.T) {
	t.Parallel()

	out, err := runScript(t, `
type technician zzz
wait
show technician
click tecnico-options/empty
clear technician
visible technician false
show technician
`)
	require.NoError(t, err)
	assert.Equal(t, "technician (visible):\n  - No se encontraron resultados.\ntechnician (hidden):\n", out)
}

func TestScript_Values(t *testing.T) {
	t.Parallel()

	out, err := runScript(t, `
type technician carlos
wait
pick technician 0
set new-item-qty 2
values
`)
	require.NoError(t, err)
	assert.Equal(t, "tecnico=Carlos Ruiz\nid-tecnico-hidden=103\nnew-item-qty=2\n", out)
}

func TestScript_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		line int
		msg  string
	}{
		{"unknown command", "frobnicate", 1, "unknown command"},
		{"unknown field", "\n\ntype nowhere x", 3, "unknown field"},
		{"failed expectation", "expect tecnico Ana", 1, `want "Ana"`},
		{"bad pick index", "pick technician first", 1, "row must be a number"},
		{"bad quote", `type technician "ana`, 1, ""},
		{"missing element", "expect nope x", 1, "not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runScript(t, tt.src)
			require.Error(t, err)
			var se *ScriptError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.line, se.Line)
			if tt.msg != "" {
				assert.ErrorContains(t, err, tt.msg)
			}
		})
	}
}

func TestScript_PickPastLastRowFails(t *testing.T) {
	t.Parallel()

	_, err := runScript(t, "type technician ana\nwait\npick technician 7\n")
	var se *ScriptError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 3, se.Line)
	assert.Contains(t, se.Error(), "technician has no result 7")
}

func TestScript_PickAfterDismissalFails(t *testing.T) {
	t.Parallel()

	_, err := runScript(t, `
type technician ana
wait
click outside
visible technician false
pick technician 0
`)
	var se *ScriptError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 6, se.Line)
	assert.Contains(t, se.Error(), "technician results are hidden")
}

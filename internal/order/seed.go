package order

import "github.com/runger/taller/internal/typeahead"

// Seed returns the built-in fallback dataset for a field. Numbers are
// float64 so seed records look exactly like decoded JSON.
func Seed(f Field) []typeahead.Candidate {
	switch f {
	case Technician:
		return []typeahead.Candidate{
			{"id": float64(101), "nombre": "Juan Pérez"},
			{"id": float64(102), "nombre": "Ana Gómez"},
			{"id": float64(103), "nombre": "Carlos Ruiz"},
		}
	case Client:
		return []typeahead.Candidate{
			{"id": float64(201), "nombre": "Empresa ABC S.L.", "dni": "B12345678", "telefono": "600111222"},
			{"id": float64(202), "nombre": "Laura Martínez", "dni": "12345678Z", "telefono": "600333444"},
		}
	case Vehicle:
		return []typeahead.Candidate{
			{"id": float64(301), "Marca": "Toyota", "Propietario": "Corolla", "Matricula": "1234-ABC"},
			{"id": float64(302), "Marca": "Ford", "Propietario": "Focus", "Matricula": "5678-DEF"},
		}
	case Product:
		return []typeahead.Candidate{
			{"id": float64(401), "nombre": "Aceite 5W30", "precio_venta": 45.50},
			{"id": float64(402), "nombre": "Filtro de Aire", "precio_venta": 15.20},
			{"id": float64(403), "nombre": "Mano de Obra (h)", "precio_venta": 50.00},
			{"id": float64(404), "nombre": "Pastillas de Freno", "precio_venta": 80.00},
		}
	default:
		return nil
	}
}

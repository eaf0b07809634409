package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/einvoice-es/internal/domain/entity"
)

func TestFromMap_FacturaCompleta(t *testing.T) {
	data := map[string]any{
		"invoice_number":    "FAC-2025-0042",
		"issue_date":        "2025-06-01",
		"invoice_type_code": 380,
		"currency_code":     "EUR",
		"due_date":          "2025-07-01",
		"seller": map[string]any{
			"name":   "Aceros del Norte SL",
			"tax_id": "B12345678",
			"address": map[string]any{
				"street":      "Calle Mayor 1",
				"city":        "Bilbao",
				"postal_code": "48001",
				"country":     "ES",
			},
		},
		"buyer": map[string]any{
			"name":   "Construcciones Iberia SA",
			"tax_id": "A87654321",
		},
		"lines": []map[string]any{
			{
				"description": "Viga IPE 200",
				"quantity":    "10",
				"unit":        "C62",
				"net_amount":  "100.00",
				"price":       "10.00",
				"tax_percent": "21",
			},
		},
		"total_without_tax": "100.00",
		"total_tax":         "21.00",
		"total_with_tax":    "121.00",
		"amount_due":        "121.00",
		"payment_means": map[string]any{
			"code": "30",
			"iban": "ES9121000418450200051332",
		},
	}

	inv, err := entity.FromMap(data)
	require.NoError(t, err)

	assert.Equal(t, "FAC-2025-0042", inv.InvoiceNumber)
	assert.Equal(t, "2025-06-01", inv.IssueDate)
	assert.Equal(t, entity.TypeCodeInvoice, inv.InvoiceTypeCode)
	assert.Equal(t, "EUR", inv.CurrencyCode)
	assert.Equal(t, "B12345678", inv.Seller.TaxID)
	assert.Equal(t, "Bilbao", inv.Seller.Address.City)
	assert.Equal(t, "Construcciones Iberia SA", inv.Buyer.Name)
	require.Len(t, inv.Lines, 1)
	assert.Equal(t, "Viga IPE 200", inv.Lines[0].Description)
	assert.True(t, inv.Lines[0].NetAmount.Equal(mustDec(t, "100.00")))
	assert.True(t, inv.TotalWithTax.Equal(mustDec(t, "121.00")))
	require.NotNil(t, inv.PaymentMeans)
	assert.Equal(t, "ES9121000418450200051332", inv.PaymentMeans.IBAN)
}

func TestFromMap_ValoresPorDefecto(t *testing.T) {
	inv, err := entity.FromMap(map[string]any{
		"invoice_number": "FAC-1",
		"issue_date":     "2025-01-01",
	})
	require.NoError(t, err)

	assert.Equal(t, entity.TypeCodeInvoice, inv.InvoiceTypeCode,
		"el tipo por defecto es 380 (factura comercial)")
	assert.Equal(t, entity.DefaultCurrency, inv.CurrencyCode,
		"la moneda por defecto es EUR")
	assert.True(t, inv.TotalWithTax.IsZero(), "importes ausentes equivalen a cero")
}

func TestFromMap_SinNumeroDeFactura(t *testing.T) {
	_, err := entity.FromMap(map[string]any{"issue_date": "2025-01-01"})
	assert.Error(t, err, "invoice_number es obligatorio")
}

func TestFromMap_SinFechaDeEmision(t *testing.T) {
	_, err := entity.FromMap(map[string]any{"invoice_number": "FAC-1"})
	assert.Error(t, err, "issue_date es obligatoria")
}

func TestFromMap_ImporteComoFloatEsError(t *testing.T) {
	_, err := entity.FromMap(map[string]any{
		"invoice_number": "FAC-1",
		"issue_date":     "2025-01-01",
		"total_with_tax": 121.00, // float binario, prohibido
	})
	assert.Error(t, err, "los importes deben llegar como string decimal, nunca float")
}

func TestFromMap_LineasComoListaGenerica(t *testing.T) {
	// Una decodificación JSON entrega []any, no []map[string]any.
	inv, err := entity.FromMap(map[string]any{
		"invoice_number": "FAC-1",
		"issue_date":     "2025-01-01",
		"lines": []any{
			map[string]any{
				"description": "Tornillería M8",
				"quantity":    "5",
				"net_amount":  "50.00",
				"price":       "10.00",
				"tax_percent": "21",
			},
		},
		"tax_totals": []any{
			map[string]any{
				"taxable_amount": "50.00",
				"tax_amount":     "10.50",
				"percent":        "21",
				"category_id":    "S",
			},
		},
	})
	require.NoError(t, err)

	require.Len(t, inv.Lines, 1, "las líneas en []any también se aceptan")
	assert.Equal(t, "Tornillería M8", inv.Lines[0].Description)
	require.Len(t, inv.TaxTotals, 1)
	assert.True(t, inv.TaxTotals[0].TaxAmount.Equal(mustDec(t, "10.50")))
}

func TestFromMap_LineaNoMapaEsError(t *testing.T) {
	_, err := entity.FromMap(map[string]any{
		"invoice_number": "FAC-1",
		"issue_date":     "2025-01-01",
		"lines":          []any{"no soy un mapa"},
	})
	assert.Error(t, err, "un elemento de lines que no sea mapa es error, no se descarta")
}

func TestFromMap_LinesDeTipoInesperadoEsError(t *testing.T) {
	_, err := entity.FromMap(map[string]any{
		"invoice_number": "FAC-1",
		"issue_date":     "2025-01-01",
		"lines":          "no es una lista",
	})
	assert.Error(t, err, "lines con tipo inesperado es error explícito")
}

func TestFromMap_TipoComoString(t *testing.T) {
	inv, err := entity.FromMap(map[string]any{
		"invoice_number":    "RECT-1",
		"issue_date":        "2025-01-01",
		"invoice_type_code": "381",
	})
	require.NoError(t, err)
	assert.True(t, inv.IsCreditNote(), "381 como string también clasifica rectificativa")
}

func TestIsCreditNote(t *testing.T) {
	inv := &entity.Invoice{InvoiceTypeCode: entity.TypeCodeCreditNote}
	assert.True(t, inv.IsCreditNote())

	inv.InvoiceTypeCode = entity.TypeCodeInvoice
	assert.False(t, inv.IsCreditNote())
}

func TestToMap_CamposOpcionalesOmitidos(t *testing.T) {
	inv, err := entity.FromMap(map[string]any{
		"invoice_number": "FAC-1",
		"issue_date":     "2025-01-01",
	})
	require.NoError(t, err)

	m := inv.ToMap()
	assert.Equal(t, "FAC-1", m["invoice_number"])
	assert.NotContains(t, m, "due_date", "la fecha de vencimiento vacía se omite")
	assert.NotContains(t, m, "preceding_invoice_reference")
	assert.Equal(t, "0.00", m["total_with_tax"], "los importes se exponen con 2 decimales")
}

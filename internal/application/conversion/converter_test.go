package conversion_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/einvoice-es/internal/application/conversion"
	"github.com/tu-usuario/einvoice-es/internal/domain/einvoice"
	"github.com/tu-usuario/einvoice-es/internal/domain/entity"
)

// ── Detección de formato ──────────────────────────────────────────────────────

func TestDetectFormat_UBL(t *testing.T) {
	conv := conversion.NewConverter()
	xml := renderSample(t, conv, conversion.FormatUBL)

	assert.Equal(t, conversion.FormatUBL, conv.DetectFormat(xml))
}

func TestDetectFormat_UBLRectificativa(t *testing.T) {
	conv := conversion.NewConverter()
	model := sampleInvoice()
	model.InvoiceTypeCode = entity.TypeCodeCreditNote
	model.PrecedingInvoiceReference = "FAC-2025-0042"
	xml, err := conv.Render(model, conversion.FormatUBL)
	require.NoError(t, err)

	assert.Equal(t, conversion.FormatUBL, conv.DetectFormat(xml),
		"la raíz CreditNote también es UBL")
}

func TestDetectFormat_Facturae(t *testing.T) {
	conv := conversion.NewConverter()
	xml := renderSample(t, conv, conversion.FormatFacturae)

	assert.Equal(t, conversion.FormatFacturae, conv.DetectFormat(xml))
}

func TestDetectFormat_NoXML(t *testing.T) {
	conv := conversion.NewConverter()

	assert.Equal(t, conversion.FormatUnknown, conv.DetectFormat("esto no es XML"),
		"la detección nunca falla: entrada no XML es unknown")
	assert.Equal(t, conversion.FormatUnknown, conv.DetectFormat(""))
}

func TestDetectFormat_XMLDeOtroVocabulario(t *testing.T) {
	conv := conversion.NewConverter()

	assert.Equal(t, conversion.FormatUnknown,
		conv.DetectFormat(`<Pedido xmlns="urn:ejemplo:pedidos"><ID>1</ID></Pedido>`))
}

func TestDetectFormat_FacturaeSinNamespace(t *testing.T) {
	conv := conversion.NewConverter()

	assert.Equal(t, conversion.FormatUnknown,
		conv.DetectFormat("<Facturae><FileHeader/></Facturae>"),
		"la raíz Facturae sin namespace no se clasifica como facturae_3.2.2")
}

func TestDetectFormat_RaizUBLConNamespaceAjeno(t *testing.T) {
	conv := conversion.NewConverter()

	assert.Equal(t, conversion.FormatUnknown,
		conv.DetectFormat(`<Invoice xmlns="urn:otro:vocabulario"><ID>1</ID></Invoice>`),
		"la raíz Invoice sin namespace UBL no es UBL")
}

// ── Modelo neutral y conversión ───────────────────────────────────────────────

func TestToNeutralModel_FormatoDesconocido(t *testing.T) {
	conv := conversion.NewConverter()
	_, err := conv.ToNeutralModel("<Pedido/>")

	require.Error(t, err)
	assert.ErrorIs(t, err, einvoice.ErrUnsupportedFormat)
}

func TestConvertTo_DestinoNoSoportado(t *testing.T) {
	conv := conversion.NewConverter()
	xml := renderSample(t, conv, conversion.FormatUBL)

	_, err := conv.ConvertTo(xml, "pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, einvoice.ErrUnsupportedTarget,
		"un destino desconocido es error explícito, nunca un no-op")
}

func TestConvertTo_UBLHaciaFacturae(t *testing.T) {
	conv := conversion.NewConverter()
	ublXML := renderSample(t, conv, conversion.FormatUBL)

	facXML, err := conv.ConvertToFacturae(ublXML)
	require.NoError(t, err)

	assert.Equal(t, conversion.FormatFacturae, conv.DetectFormat(facXML))
}

func TestConvertTo_FacturaeHaciaUBL(t *testing.T) {
	conv := conversion.NewConverter()
	facXML := renderSample(t, conv, conversion.FormatFacturae)

	ublXML, err := conv.ConvertToUBL(facXML)
	require.NoError(t, err)

	assert.Equal(t, conversion.FormatUBL, conv.DetectFormat(ublXML))
}

// TestConvertTo_IdaYVueltaPreservaSemantica verifica la propiedad central del
// modelo neutral: UBL → Facturae → UBL conserva los términos de negocio que
// ambos formatos saben transportar.
func TestConvertTo_IdaYVueltaPreservaSemantica(t *testing.T) {
	conv := conversion.NewConverter()
	original := sampleInvoice()

	ublXML, err := conv.Render(original, conversion.FormatUBL)
	require.NoError(t, err)
	facXML, err := conv.ConvertToFacturae(ublXML)
	require.NoError(t, err)
	backXML, err := conv.ConvertToUBL(facXML)
	require.NoError(t, err)

	final, err := conv.ToNeutralModel(backXML)
	require.NoError(t, err)

	assert.Equal(t, original.InvoiceNumber, final.InvoiceNumber)
	assert.Equal(t, original.IssueDate, final.IssueDate)
	assert.Equal(t, original.DueDate, final.DueDate)
	assert.Equal(t, original.CurrencyCode, final.CurrencyCode)
	assert.Equal(t, original.Seller.TaxID, final.Seller.TaxID)
	assert.Equal(t, original.Buyer.Name, final.Buyer.Name)
	require.Len(t, final.Lines, 1)
	assert.True(t, original.TotalWithoutTax.Equal(final.TotalWithoutTax))
	assert.True(t, original.TotalTax.Equal(final.TotalTax))
	assert.True(t, original.TotalWithTax.Equal(final.TotalWithTax))
	assert.True(t, original.AmountDue.Equal(final.AmountDue))
}

func TestRender_DestinoNoSoportado(t *testing.T) {
	conv := conversion.NewConverter()
	_, err := conv.Render(sampleInvoice(), "edifact")

	assert.ErrorIs(t, err, einvoice.ErrUnsupportedTarget)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func renderSample(t *testing.T, conv *conversion.Converter, format string) string {
	t.Helper()
	xml, err := conv.Render(sampleInvoice(), format)
	require.NoError(t, err)
	return xml
}

func sampleInvoice() *entity.Invoice {
	return &entity.Invoice{
		InvoiceNumber:   "FAC-2025-0042",
		IssueDate:       "2025-06-01",
		InvoiceTypeCode: entity.TypeCodeInvoice,
		CurrencyCode:    "EUR",
		DueDate:         "2025-07-01",
		Seller: entity.Party{
			Name:  "Aceros del Norte SL",
			TaxID: "B12345678",
			Address: entity.Address{
				Street: "Calle Mayor 1", City: "Bilbao",
				PostalCode: "48001", Country: "ES",
			},
		},
		Buyer: entity.Party{
			Name:  "Construcciones Iberia SA",
			TaxID: "A87654321",
		},
		Lines: []entity.Line{{
			Description: "Viga IPE 200",
			Quantity:    decimal.RequireFromString("10"),
			Unit:        "C62",
			NetAmount:   decimal.RequireFromString("100.00"),
			Price:       decimal.RequireFromString("10.00"),
			TaxPercent:  decimal.RequireFromString("21"),
			TaxCategory: "S",
		}},
		TaxTotals: []entity.TaxSubtotal{{
			TaxableAmount: decimal.RequireFromString("100.00"),
			TaxAmount:     decimal.RequireFromString("21.00"),
			CategoryID:    "S",
			Percent:       decimal.RequireFromString("21"),
		}},
		TotalWithoutTax: decimal.RequireFromString("100.00"),
		TotalTax:        decimal.RequireFromString("21.00"),
		TotalWithTax:    decimal.RequireFromString("121.00"),
		AmountDue:       decimal.RequireFromString("121.00"),
		PaymentMeans: &entity.PaymentMeans{
			Code: "30",
			IBAN: "ES9121000418450200051332",
		},
	}
}

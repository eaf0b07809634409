package entity_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/einvoice-es/internal/domain/entity"
)

// ── ValidationResult ──────────────────────────────────────────────────────────

func TestMerge_ValidezEsANDLogico(t *testing.T) {
	valid := entity.ValidResult("xsd")
	invalid := entity.InvalidResult("schematron", "BR-01: número obligatorio")

	merged := valid.Merge(invalid)
	assert.False(t, merged.Valid, "un solo fallo invalida el resultado combinado")

	bothValid := entity.ValidResult("xsd").Merge(entity.ValidResult("schematron"))
	assert.True(t, bothValid.Valid)
}

func TestMerge_UnionDeErroresYAvisos(t *testing.T) {
	a := entity.InvalidResult("schematron", "BR-01", "BR-02")
	b := entity.InvalidResult("spanish_rules", "ES-01")
	b.Warnings = []string{"ES-03: moneda distinta de EUR"}

	merged := a.Merge(b)
	assert.Equal(t, []string{"BR-01", "BR-02", "ES-01"}, merged.Errors,
		"los errores de ambas capas se conservan en orden")
	assert.Equal(t, []string{"ES-03: moneda distinta de EUR"}, merged.Warnings)
}

func TestMerge_CapasDistintasProducenComplete(t *testing.T) {
	merged := entity.ValidResult("xsd").Merge(entity.ValidResult("schematron"))
	assert.Equal(t, "complete", merged.Layer)

	sameLayer := entity.ValidResult("xsd").Merge(entity.ValidResult("xsd"))
	assert.Equal(t, "xsd", sameLayer.Layer, "capas iguales conservan su nombre")
}

func TestMerge_NoMutaLosOriginales(t *testing.T) {
	a := entity.InvalidResult("schematron", "BR-01")
	b := entity.InvalidResult("spanish_rules", "ES-01")

	_ = a.Merge(b)
	assert.Equal(t, []string{"BR-01"}, a.Errors, "Merge construye un resultado nuevo")
	assert.Equal(t, []string{"ES-01"}, b.Errors)
}

// ── SPFEStatus ────────────────────────────────────────────────────────────────

func TestSPFEStatus_IsPending(t *testing.T) {
	assert.True(t, entity.SPFEStatus{Status: entity.SubmissionStatusPending}.IsPending())
	assert.True(t, entity.SPFEStatus{Status: entity.SubmissionStatusProcessing}.IsPending())
	assert.False(t, entity.SPFEStatus{Status: entity.SubmissionStatusAccepted}.IsPending())
	assert.False(t, entity.SPFEStatus{Status: entity.SubmissionStatusRejected}.IsPending())
}

func TestSPFEStatus_IsAccepted(t *testing.T) {
	assert.True(t, entity.SPFEStatus{Status: entity.SubmissionStatusAccepted}.IsAccepted())
	assert.False(t, entity.SPFEStatus{Status: entity.SubmissionStatusRejected}.IsAccepted())
}

// ── MorosityReport ────────────────────────────────────────────────────────────

func TestMorosityReportFromData_Agregados(t *testing.T) {
	results := []entity.OverdueResult{
		{DocumentID: "FAC-1", IsOverdue: true, OverdueDays: 10, Severity: entity.SeverityWarning},
		{DocumentID: "FAC-2", IsOverdue: true, OverdueDays: 45, Severity: entity.SeverityUrgent},
		{DocumentID: "FAC-3", IsOverdue: true, OverdueDays: 70, Severity: entity.SeverityCritical},
		{DocumentID: "FAC-4", IsOverdue: false, OverdueDays: -5, Severity: entity.SeverityNone},
	}

	report := entity.MorosityReportFromData("tenant-01", results)

	assert.Equal(t, "tenant-01", report.TenantID)
	assert.Equal(t, 4, report.TotalInvoices)
	assert.Equal(t, 3, report.OverdueInvoices)
	assert.Equal(t, 1, report.WarningCount)
	assert.Equal(t, 1, report.UrgentCount)
	assert.Equal(t, 1, report.CriticalCount)
	assert.Equal(t, "75.00", report.OverduePercentage.StringFixed(2),
		"3 de 4 documentos vencidos son el 75%")
	assert.Equal(t, "41.67", report.AverageOverdueDays.StringFixed(2),
		"la media se calcula solo sobre los documentos vencidos: (10+45+70)/3")
	require.Len(t, report.OverdueDocuments, 3,
		"solo los documentos vencidos aparecen en el detalle")
}

func TestMorosityReportFromData_CarteraVacia(t *testing.T) {
	report := entity.MorosityReportFromData("tenant-02", nil)

	assert.Equal(t, 0, report.TotalInvoices)
	assert.True(t, report.OverduePercentage.IsZero(),
		"cartera vacía no divide por cero")
	assert.True(t, report.AverageOverdueDays.IsZero())
}

func TestMorosityReportFromData_SinVencidas(t *testing.T) {
	results := []entity.OverdueResult{
		{DocumentID: "FAC-1", IsOverdue: false, OverdueDays: -3, Severity: entity.SeverityNone},
		{DocumentID: "FAC-2", IsOverdue: false, OverdueDays: 0, Severity: entity.SeverityNone},
	}

	report := entity.MorosityReportFromData("tenant-03", results)

	assert.Equal(t, 2, report.TotalInvoices)
	assert.Equal(t, 0, report.OverdueInvoices)
	assert.Equal(t, "0.00", report.OverduePercentage.StringFixed(2))
	assert.True(t, report.AverageOverdueDays.IsZero(),
		"sin vencidas la media es cero, no NaN ni división por cero")
}

// ── DeliveryResult ────────────────────────────────────────────────────────────

func TestDeliverySuccess(t *testing.T) {
	r := entity.DeliverySuccess("email", "msg-123", 250)

	assert.True(t, r.Success)
	assert.Equal(t, entity.DeliveryStatusDelivered, r.Status)
	assert.Equal(t, "msg-123", r.MessageID)
	assert.Equal(t, 250, r.HTTPStatus)
}

func TestDeliveryFailure(t *testing.T) {
	r := entity.DeliveryFailure("spfe", "timeout de la pasarela", 504)

	assert.False(t, r.Success)
	assert.Equal(t, entity.DeliveryStatusFailed, r.Status)
	assert.Equal(t, "timeout de la pasarela", r.ErrorMessage)
}

// ── helper ────────────────────────────────────────────────────────────────────

func mustDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

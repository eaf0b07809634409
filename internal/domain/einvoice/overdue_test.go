package einvoice_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tu-usuario/einvoice-es/internal/domain/einvoice"
	"github.com/tu-usuario/einvoice-es/internal/domain/entity"
)

// Reloj fijo para tests deterministas.
var testNow = time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)

func TestOverdueDaysAt_Vencida(t *testing.T) {
	days := einvoice.OverdueDaysAt("2026-03-05", testNow)
	assert.Equal(t, 10, days, "10 días entre vencimiento y hoy")
}

func TestOverdueDaysAt_NoVencida(t *testing.T) {
	days := einvoice.OverdueDaysAt("2026-03-30", testNow)
	assert.Equal(t, -15, days, "días negativos cuando aún no vence")
}

func TestOverdueDaysAt_VenceHoy(t *testing.T) {
	days := einvoice.OverdueDaysAt("2026-03-15", testNow)
	assert.Equal(t, 0, days, "vencer hoy son cero días de retraso")
}

func TestOverdueDaysAt_FechaNoInterpretable(t *testing.T) {
	assert.Equal(t, 0, einvoice.OverdueDaysAt("no-es-fecha", testNow),
		"una fecha no interpretable devuelve cero, no paniquea")
	assert.Equal(t, 0, einvoice.OverdueDaysAt("", testNow))
}

// ──────────────────────────────────────────────────────────────────────────────
// Tramos de severidad de la Ley 3/2004: 1–30 warning, 31–60 urgent,
// 61 o más critical. Los límites exactos importan: un error de un día
// cambia la clasificación del documento en el informe de morosidad.
// ──────────────────────────────────────────────────────────────────────────────

func TestSeverityFor_Tramos(t *testing.T) {
	assert.Equal(t, entity.SeverityNone, einvoice.SeverityFor(-5))
	assert.Equal(t, entity.SeverityNone, einvoice.SeverityFor(0))
	assert.Equal(t, entity.SeverityWarning, einvoice.SeverityFor(1))
	assert.Equal(t, entity.SeverityWarning, einvoice.SeverityFor(30))
	assert.Equal(t, entity.SeverityUrgent, einvoice.SeverityFor(31))
	assert.Equal(t, entity.SeverityUrgent, einvoice.SeverityFor(60))
	assert.Equal(t, entity.SeverityCritical, einvoice.SeverityFor(61))
	assert.Equal(t, entity.SeverityCritical, einvoice.SeverityFor(200))
}

func TestAssessAt_DocumentoVencidoUrgente(t *testing.T) {
	result := einvoice.AssessAt("FAC-001", "2026-02-12", testNow) // 31 días

	assert.Equal(t, "FAC-001", result.DocumentID)
	assert.True(t, result.IsOverdue)
	assert.Equal(t, 31, result.OverdueDays)
	assert.Equal(t, entity.SeverityUrgent, result.Severity)
	assert.Equal(t, einvoice.LegalMaxDays, result.LegalMaxDays,
		"el resultado siempre informa el plazo legal máximo de 60 días")
}

func TestAssessAt_DocumentoCritico(t *testing.T) {
	result := einvoice.AssessAt("FAC-002", "2026-01-13", testNow) // 61 días

	assert.True(t, result.IsOverdue)
	assert.Equal(t, 61, result.OverdueDays)
	assert.Equal(t, entity.SeverityCritical, result.Severity)
}

func TestAssessAt_DocumentoNoVencido(t *testing.T) {
	result := einvoice.AssessAt("FAC-003", "2026-04-01", testNow)

	assert.False(t, result.IsOverdue)
	assert.Equal(t, -17, result.OverdueDays)
	assert.Equal(t, entity.SeverityNone, result.Severity)
}

func TestAssessAt_FechaInvalidaNoEsError(t *testing.T) {
	result := einvoice.AssessAt("FAC-004", "31/12/2025", testNow)

	assert.False(t, result.IsOverdue, "formato no ISO cuenta como no vencida")
	assert.Equal(t, 0, result.OverdueDays)
	assert.Equal(t, entity.SeverityNone, result.Severity)
}

// TestOverdueDaysAt_IndependienteDeLaHora verifica que la aritmética es de
// fechas civiles: cualquier hora del mismo día produce el mismo resultado.
func TestOverdueDaysAt_IndependienteDeLaHora(t *testing.T) {
	madrugada := time.Date(2026, time.March, 15, 0, 1, 0, 0, time.UTC)
	noche := time.Date(2026, time.March, 15, 23, 59, 0, 0, time.UTC)

	assert.Equal(t,
		einvoice.OverdueDaysAt("2026-03-05", madrugada),
		einvoice.OverdueDaysAt("2026-03-05", noche),
		"la hora del día no debe desplazar el cómputo de días")
}

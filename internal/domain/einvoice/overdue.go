package einvoice

import (
	"strings"
	"time"

	"github.com/tu-usuario/einvoice-es/internal/domain/entity"
)

// LegalMaxDays plazo máximo legal de pago entre empresas (Ley 3/2004, art. 4).
const LegalMaxDays = 60

const isoDateLayout = "2006-01-02"

// OverdueDays devuelve los días de retraso respecto a la fecha de vencimiento
// ISO-8601 dada: positivo = días vencidos, negativo = días hasta el
// vencimiento, cero = vence hoy. Una fecha no interpretable devuelve cero;
// no es condición de error para esta función pura.
func OverdueDays(dueDate string) int {
	return OverdueDaysAt(dueDate, time.Now())
}

// OverdueDaysAt variante con reloj explícito. La aritmética es de fechas
// civiles: ambas fechas se truncan a medianoche UTC, de modo que cambios de
// hora o zona nunca desplazan un límite de severidad.
func OverdueDaysAt(dueDate string, now time.Time) int {
	due, err := time.Parse(isoDateLayout, strings.TrimSpace(dueDate))
	if err != nil {
		return 0
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(today.Sub(due).Hours() / 24)
}

// SeverityFor clasifica un número de días vencidos según los tramos de la
// Ley 3/2004 (arts. 4 y 4.3): 1–30 warning, 31–60 urgent, 61+ critical.
func SeverityFor(overdueDays int) string {
	switch {
	case overdueDays <= 0:
		return entity.SeverityNone
	case overdueDays <= 30:
		return entity.SeverityWarning
	case overdueDays <= LegalMaxDays:
		return entity.SeverityUrgent
	default:
		return entity.SeverityCritical
	}
}

// Assess calcula el resultado de morosidad completo de un documento.
func Assess(documentID, dueDate string) entity.OverdueResult {
	return AssessAt(documentID, dueDate, time.Now())
}

// AssessAt variante con reloj explícito, para informes y tests deterministas.
func AssessAt(documentID, dueDate string, now time.Time) entity.OverdueResult {
	days := OverdueDaysAt(dueDate, now)
	return entity.OverdueResult{
		DocumentID:   documentID,
		IsOverdue:    days > 0,
		OverdueDays:  days,
		Severity:     SeverityFor(days),
		LegalMaxDays: LegalMaxDays,
	}
}

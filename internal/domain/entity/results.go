package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Niveles de severidad de morosidad según Ley 3/2004 (arts. 4 y 4.3).
const (
	SeverityNone     = "none"
	SeverityWarning  = "warning"  // 1–30 días de retraso
	SeverityUrgent   = "urgent"   // 31–60 días
	SeverityCritical = "critical" // 61 días o más
)

// Estados de una presentación al punto general de entrada (SPFE).
const (
	SubmissionStatusPending    = "pending"
	SubmissionStatusProcessing = "processing"
	SubmissionStatusAccepted   = "accepted"
	SubmissionStatusRejected   = "rejected"
)

// Estados de entrega por canal (email, buzón de plataforma, SPFE, Peppol).
const (
	DeliveryStatusDelivered = "delivered"
	DeliveryStatusFailed    = "failed"
)

// ── ValidationResult ──────────────────────────────────────────────────────────

// ValidationResult resultado inmutable de una capa de validación (o de la
// combinación de todas, capa "complete").
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
	Layer    string
}

// ValidResult construye un resultado válido para la capa dada.
func ValidResult(layer string) ValidationResult {
	return ValidationResult{Valid: true, Layer: layer}
}

// InvalidResult construye un resultado inválido con los errores dados.
func InvalidResult(layer string, errs ...string) ValidationResult {
	return ValidationResult{Valid: false, Errors: errs, Layer: layer}
}

// Merge combina dos resultados: AND lógico sobre Valid y unión de errores y
// avisos. Si las capas difieren el resultado pertenece a la capa "complete";
// solo el motor de validación fusiona, y siempre fusiona las cuatro capas.
func (r ValidationResult) Merge(other ValidationResult) ValidationResult {
	merged := ValidationResult{
		Valid:    r.Valid && other.Valid,
		Errors:   append(append([]string{}, r.Errors...), other.Errors...),
		Warnings: append(append([]string{}, r.Warnings...), other.Warnings...),
		Layer:    r.Layer,
	}
	if r.Layer != other.Layer {
		merged.Layer = "complete"
	}
	return merged
}

// ToMap vista plana para logging y respuestas API.
func (r ValidationResult) ToMap() map[string]any {
	return map[string]any{
		"valid":    r.Valid,
		"errors":   append([]string{}, r.Errors...),
		"warnings": append([]string{}, r.Warnings...),
		"layer":    r.Layer,
	}
}

// ── OverdueResult ─────────────────────────────────────────────────────────────

// OverdueResult resultado del cálculo de morosidad de un documento.
// OverdueDays es con signo: positivo = días vencidos, negativo = días hasta
// el vencimiento, cero = vence hoy o fecha no interpretable.
type OverdueResult struct {
	DocumentID   string
	IsOverdue    bool
	OverdueDays  int
	Severity     string
	LegalMaxDays int // plazo máximo legal de pago (Ley 3/2004): 60 días
}

// ToMap vista plana del resultado.
func (r OverdueResult) ToMap() map[string]any {
	return map[string]any{
		"document_id":    r.DocumentID,
		"is_overdue":     r.IsOverdue,
		"overdue_days":   r.OverdueDays,
		"severity":       r.Severity,
		"legal_max_days": r.LegalMaxDays,
	}
}

// ── DeliveryResult ────────────────────────────────────────────────────────────

// DeliveryResult resultado de la entrega de un documento por un canal.
type DeliveryResult struct {
	Success      bool
	Channel      string
	Status       string
	MessageID    string
	ErrorMessage string
	HTTPStatus   int
	Metadata     map[string]string
}

// DeliverySuccess construye el resultado de una entrega correcta.
func DeliverySuccess(channel, messageID string, httpStatus int) DeliveryResult {
	return DeliveryResult{
		Success:    true,
		Channel:    channel,
		Status:     DeliveryStatusDelivered,
		MessageID:  messageID,
		HTTPStatus: httpStatus,
	}
}

// DeliveryFailure construye el resultado de una entrega fallida.
func DeliveryFailure(channel, errorMessage string, httpStatus int) DeliveryResult {
	return DeliveryResult{
		Success:      false,
		Channel:      channel,
		Status:       DeliveryStatusFailed,
		ErrorMessage: errorMessage,
		HTTPStatus:   httpStatus,
	}
}

// ToMap vista plana del resultado.
func (r DeliveryResult) ToMap() map[string]any {
	m := map[string]any{
		"success":     r.Success,
		"channel":     r.Channel,
		"status":      r.Status,
		"http_status": r.HTTPStatus,
	}
	if r.MessageID != "" {
		m["message_id"] = r.MessageID
	}
	if r.ErrorMessage != "" {
		m["error_message"] = r.ErrorMessage
	}
	for k, v := range r.Metadata {
		m[k] = v
	}
	return m
}

// ── SPFESubmission / SPFEStatus ───────────────────────────────────────────────

// SPFESubmission resultado de la presentación de un documento al punto
// general de entrada de facturas electrónicas.
type SPFESubmission struct {
	Success      bool
	SubmissionID string
	Status       string // accepted | rejected
	ErrorCode    string
	ErrorMessage string
	Timestamp    time.Time
}

// ToMap vista plana de la presentación.
func (s SPFESubmission) ToMap() map[string]any {
	m := map[string]any{
		"success":       s.Success,
		"submission_id": s.SubmissionID,
		"status":        s.Status,
		"timestamp":     s.Timestamp.Format(time.RFC3339),
	}
	if s.ErrorCode != "" {
		m["error_code"] = s.ErrorCode
	}
	if s.ErrorMessage != "" {
		m["error_message"] = s.ErrorMessage
	}
	return m
}

// SPFEStatus estado de una presentación consultada a posteriori.
type SPFEStatus struct {
	SubmissionID string
	Status       string // pending | processing | accepted | rejected
	LastUpdated  time.Time
}

// IsPending indica si la presentación sigue en tramitación.
func (s SPFEStatus) IsPending() bool {
	return s.Status == SubmissionStatusPending || s.Status == SubmissionStatusProcessing
}

// IsAccepted indica si la presentación fue aceptada.
func (s SPFEStatus) IsAccepted() bool {
	return s.Status == SubmissionStatusAccepted
}

// ToMap vista plana del estado.
func (s SPFEStatus) ToMap() map[string]any {
	return map[string]any{
		"submission_id": s.SubmissionID,
		"status":        s.Status,
		"last_updated":  s.LastUpdated.Format(time.RFC3339),
	}
}

// ── MorosityReport ────────────────────────────────────────────────────────────

// MorosityReport informe agregado de morosidad de la cartera de un tenant.
type MorosityReport struct {
	TenantID           string
	TotalInvoices      int
	OverdueInvoices    int
	OverduePercentage  decimal.Decimal // 0–100, 2 decimales
	AverageOverdueDays decimal.Decimal // media sobre documentos vencidos, 2 decimales
	CriticalCount      int
	UrgentCount        int
	WarningCount       int
	OverdueDocuments   []OverdueResult
}

// MorosityReportFromData agrega un conjunto de resultados de morosidad en el
// informe de cartera: porcentaje vencido, media de días de retraso sobre los
// documentos vencidos y recuento por severidad.
func MorosityReportFromData(tenantID string, results []OverdueResult) MorosityReport {
	report := MorosityReport{TenantID: tenantID, TotalInvoices: len(results)}

	var sumDays int64
	for _, r := range results {
		if !r.IsOverdue {
			continue
		}
		report.OverdueInvoices++
		report.OverdueDocuments = append(report.OverdueDocuments, r)
		sumDays += int64(r.OverdueDays)
		switch r.Severity {
		case SeverityCritical:
			report.CriticalCount++
		case SeverityUrgent:
			report.UrgentCount++
		case SeverityWarning:
			report.WarningCount++
		}
	}

	if report.TotalInvoices > 0 {
		report.OverduePercentage = decimal.NewFromInt(int64(report.OverdueInvoices)).
			Mul(decimal.NewFromInt(100)).
			DivRound(decimal.NewFromInt(int64(report.TotalInvoices)), 2)
	}
	if report.OverdueInvoices > 0 {
		report.AverageOverdueDays = decimal.NewFromInt(sumDays).
			DivRound(decimal.NewFromInt(int64(report.OverdueInvoices)), 2)
	}
	return report
}

// ToMap vista plana del informe.
func (r MorosityReport) ToMap() map[string]any {
	docs := make([]map[string]any, 0, len(r.OverdueDocuments))
	for _, d := range r.OverdueDocuments {
		docs = append(docs, d.ToMap())
	}
	return map[string]any{
		"tenant_id":            r.TenantID,
		"total_invoices":       r.TotalInvoices,
		"overdue_invoices":     r.OverdueInvoices,
		"overdue_percentage":   r.OverduePercentage.StringFixed(2),
		"average_overdue_days": r.AverageOverdueDays.StringFixed(2),
		"critical_count":       r.CriticalCount,
		"urgent_count":         r.UrgentCount,
		"warning_count":        r.WarningCount,
		"overdue_documents":    docs,
	}
}

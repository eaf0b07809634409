// Package billing orquesta el ciclo de emisión de una factura electrónica:
//
//	modelo neutral → render en formato destino → validación en 4 capas →
//	persistencia (puerto) → presentación al punto de entrada (puerto)
//
// El orden documento a documento es responsabilidad del llamante; el
// orquestador no mantiene cola ni planificador.
package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/tu-usuario/einvoice-es/internal/application/conversion"
	"github.com/tu-usuario/einvoice-es/internal/application/validation"
	"github.com/tu-usuario/einvoice-es/internal/domain/einvoice"
	"github.com/tu-usuario/einvoice-es/internal/domain/entity"
	"github.com/tu-usuario/einvoice-es/pkg/logger"
)

// Orchestrator coordina conversión, validación y presentación. Solo guarda
// configuración inmutable y puertos; es seguro para uso concurrente.
type Orchestrator struct {
	conv    *conversion.Converter
	engine  *validation.Engine
	gateway SubmissionGateway
	store   InvoiceStore // opcional: nil si el llamante persiste por su cuenta
	log     *logger.Logger
}

// NewOrchestrator construye el orquestador. store puede ser nil.
func NewOrchestrator(gateway SubmissionGateway, store InvoiceStore, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		conv:    conversion.NewConverter(),
		engine:  validation.NewEngine(),
		gateway: gateway,
		store:   store,
		log:     log,
	}
}

// Issue renderiza el modelo en el formato destino, lo valida por completo y
// lo presenta a través de la pasarela. Un documento inválido corta el
// pipeline con ValidationError; el XML nunca sale de la frontera sin
// certificar que es legalmente presentable.
func (o *Orchestrator) Issue(ctx context.Context, inv *entity.Invoice, targetFormat string) (*entity.SPFESubmission, error) {
	start := time.Now()

	xml, err := o.conv.Render(inv, targetFormat)
	if err != nil {
		return nil, fmt.Errorf("billing: render %s: %w", targetFormat, err)
	}

	result := o.engine.Validate(xml, targetFormat)
	if !result.Valid {
		o.log.Warn().
			Str("invoice", inv.InvoiceNumber).
			Str("format", targetFormat).
			Strs("errors", result.Errors).
			Msg("documento inválido, presentación abortada")
		return nil, &einvoice.ValidationError{Errors: result.Errors, Layer: result.Layer}
	}
	for _, w := range result.Warnings {
		o.log.Warn().Str("invoice", inv.InvoiceNumber).Str("warning", w).Msg("aviso de validación")
	}

	if o.store != nil {
		if err := o.store.SaveDocument(ctx, inv, targetFormat, xml); err != nil {
			return nil, fmt.Errorf("billing: persistir documento: %w", err)
		}
	}

	submission, err := o.gateway.Submit(ctx, xml, targetFormat)
	if err != nil {
		return nil, fmt.Errorf("billing: presentar documento: %w", err)
	}

	o.log.Info().
		Str("invoice", inv.InvoiceNumber).
		Str("format", targetFormat).
		Str("submission_id", submission.SubmissionID).
		Str("status", submission.Status).
		Dur("elapsed", time.Since(start)).
		Msg("documento presentado")
	return submission, nil
}

// MorosityReport calcula el informe de morosidad de la cartera de un tenant
// a partir de los modelos facilitados por el colaborador de persistencia.
// Las facturas sin fecha de vencimiento cuentan como no vencidas.
func (o *Orchestrator) MorosityReport(tenantID string, invoices []*entity.Invoice) entity.MorosityReport {
	now := time.Now()
	results := make([]entity.OverdueResult, 0, len(invoices))
	for _, inv := range invoices {
		results = append(results, einvoice.AssessAt(inv.InvoiceNumber, inv.DueDate, now))
	}
	report := entity.MorosityReportFromData(tenantID, results)
	o.log.Info().
		Str("tenant", tenantID).
		Int("total", report.TotalInvoices).
		Int("overdue", report.OverdueInvoices).
		Str("overdue_pct", report.OverduePercentage.StringFixed(2)).
		Msg("informe de morosidad generado")
	return report
}

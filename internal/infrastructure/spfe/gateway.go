// Package spfe contiene la pasarela simulada de presentación al punto
// general de entrada de facturas electrónicas. No realiza ninguna llamada de
// red: acepta todo documento y devuelve identificadores sintéticos. Es la
// implementación por defecto en modo desarrollo y en tests; la pasarela real
// vive fuera del núcleo y aplica sus propias políticas de reintento.
package spfe

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tu-usuario/einvoice-es/internal/domain/einvoice"
	"github.com/tu-usuario/einvoice-es/internal/domain/entity"
)

// SimulatedGateway implementa billing.SubmissionGateway en memoria.
type SimulatedGateway struct{}

// NewSimulatedGateway construye la pasarela simulada.
func NewSimulatedGateway() *SimulatedGateway { return &SimulatedGateway{} }

// Submit simula la aceptación inmediata del documento.
func (g *SimulatedGateway) Submit(ctx context.Context, xml, targetFormat string) (*entity.SPFESubmission, error) {
	if err := ctx.Err(); err != nil {
		return nil, &einvoice.ConnectionError{StatusCode: 0, Msg: "presentación cancelada", Err: err}
	}
	if xml == "" {
		return &entity.SPFESubmission{
			Success:      false,
			Status:       entity.SubmissionStatusRejected,
			ErrorCode:    "EMPTY_DOCUMENT",
			ErrorMessage: "documento vacío",
			Timestamp:    time.Now(),
		}, nil
	}
	return &entity.SPFESubmission{
		Success:      true,
		SubmissionID: uuid.NewString(),
		Status:       entity.SubmissionStatusAccepted,
		Timestamp:    time.Now(),
	}, nil
}

// Status devuelve el estado de una presentación simulada: siempre aceptada.
func (g *SimulatedGateway) Status(ctx context.Context, submissionID string) (*entity.SPFEStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, &einvoice.ConnectionError{StatusCode: 0, Msg: "consulta cancelada", Err: err}
	}
	return &entity.SPFEStatus{
		SubmissionID: submissionID,
		Status:       entity.SubmissionStatusAccepted,
		LastUpdated:  time.Now(),
	}, nil
}

package billing

import (
	"context"

	"github.com/tu-usuario/einvoice-es/internal/domain/entity"
)

// SubmissionGateway define el puerto de salida hacia el punto general de
// entrada de facturas electrónicas (SPFE, punto de acceso Peppol...).
// El núcleo solo define el contrato; la implementación real aplica sus
// propias políticas de reintento y timeout. Para tests y modo dev se
// inyecta la pasarela simulada de internal/infrastructure/spfe.
type SubmissionGateway interface {
	// Submit presenta un documento ya validado en el formato destino dado.
	Submit(ctx context.Context, xml, targetFormat string) (*entity.SPFESubmission, error)
	// Status consulta el estado de una presentación previa.
	Status(ctx context.Context, submissionID string) (*entity.SPFEStatus, error)
}

// DeliveryChannel define el puerto de entrega a un canal concreto
// (email, buzón de plataforma, SPFE, red Peppol).
type DeliveryChannel interface {
	Deliver(ctx context.Context, xml, recipient string) (*entity.DeliveryResult, error)
}

// InvoiceStore define el puerto de persistencia. El núcleo nunca lo invoca
// por iniciativa propia: solo produce los artefactos que una capa de
// persistencia almacenaría.
type InvoiceStore interface {
	SaveDocument(ctx context.Context, inv *entity.Invoice, format, xml string) error
}

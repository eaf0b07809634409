package spfe_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/einvoice-es/internal/domain/einvoice"
	"github.com/tu-usuario/einvoice-es/internal/domain/entity"
	"github.com/tu-usuario/einvoice-es/internal/infrastructure/spfe"
)

func TestSubmit_AceptaDocumento(t *testing.T) {
	gw := spfe.NewSimulatedGateway()

	submission, err := gw.Submit(context.Background(), "<Facturae/>", "facturae_3.2.2")
	require.NoError(t, err)

	assert.True(t, submission.Success)
	assert.Equal(t, entity.SubmissionStatusAccepted, submission.Status)
	assert.NotEmpty(t, submission.SubmissionID, "cada presentación recibe un id sintético")
	assert.False(t, submission.Timestamp.IsZero())
}

func TestSubmit_IdsDistintosPorPresentacion(t *testing.T) {
	gw := spfe.NewSimulatedGateway()

	s1, err := gw.Submit(context.Background(), "<Facturae/>", "facturae_3.2.2")
	require.NoError(t, err)
	s2, err := gw.Submit(context.Background(), "<Facturae/>", "facturae_3.2.2")
	require.NoError(t, err)

	assert.NotEqual(t, s1.SubmissionID, s2.SubmissionID)
}

func TestSubmit_DocumentoVacioRechazado(t *testing.T) {
	gw := spfe.NewSimulatedGateway()

	submission, err := gw.Submit(context.Background(), "", "facturae_3.2.2")
	require.NoError(t, err, "el rechazo es un resultado, no un error de transporte")

	assert.False(t, submission.Success)
	assert.Equal(t, entity.SubmissionStatusRejected, submission.Status)
	assert.Equal(t, "EMPTY_DOCUMENT", submission.ErrorCode)
}

func TestSubmit_ContextoCancelado(t *testing.T) {
	gw := spfe.NewSimulatedGateway()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gw.Submit(ctx, "<Facturae/>", "facturae_3.2.2")
	require.Error(t, err)

	var connErr *einvoice.ConnectionError
	assert.ErrorAs(t, err, &connErr)
}

func TestStatus_SiempreAceptada(t *testing.T) {
	gw := spfe.NewSimulatedGateway()

	status, err := gw.Status(context.Background(), "sub-123")
	require.NoError(t, err)

	assert.Equal(t, "sub-123", status.SubmissionID)
	assert.True(t, status.IsAccepted())
	assert.False(t, status.IsPending())
}

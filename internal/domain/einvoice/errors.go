// Package einvoice contiene las reglas de dominio transversales de la
// facturación electrónica: la taxonomía de errores del núcleo y el cálculo
// de morosidad según la Ley 3/2004.
package einvoice

import (
	"errors"
	"fmt"
)

// Errores centinela sobre los que los llamantes pueden ramificar con
// errors.Is, en lugar de comparar texto de mensajes.
var (
	// ErrUnsupportedFormat el XML de entrada no es ninguno de los formatos
	// reconocidos (UBL 2.1 o Facturae 3.2.2).
	ErrUnsupportedFormat = errors.New("einvoice: formato de documento no soportado")

	// ErrUnsupportedTarget el formato destino solicitado no es uno de los
	// formatos soportados.
	ErrUnsupportedTarget = errors.New("einvoice: formato destino no soportado")
)

// ParseError el XML de entrada está mal formado o no puede interpretarse
// como documento del formato indicado. Error de datos/programación: no se
// reintenta y nunca se devuelve un modelo parcial.
type ParseError struct {
	Format string // formato que se intentaba interpretar
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("einvoice: %s: %v", e.Msg, e.Err)
	}
	return "einvoice: " + e.Msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError se lanza únicamente para cortocircuitar un pipeline cuando
// el llamante exige un documento válido; la validación normal siempre
// devuelve el resultado como dato, nunca como error.
type ValidationError struct {
	Errors []string
	Layer  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("einvoice: documento inválido en capa %s (%d errores)", e.Layer, len(e.Errors))
}

// DeliveryError un canal de entrega no pudo aceptar el documento.
type DeliveryError struct {
	Channel string
	Msg     string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("einvoice: entrega por %s fallida: %s", e.Channel, e.Msg)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// ConnectionError fallo de conectividad con el punto de presentación.
// A diferencia de los errores de validación o formato, un reintento puede
// tener éxito.
type ConnectionError struct {
	StatusCode int
	Msg        string
	Err        error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("einvoice: conexión con el punto de presentación fallida (HTTP %d): %s", e.StatusCode, e.Msg)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

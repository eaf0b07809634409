// Package conversion detecta la sintaxis de un documento XML arbitrario y
// convierte entre UBL 2.1 y Facturae 3.2.2 a través del modelo neutral.
//
// El modelo neutral es el único punto de paso: con N formatos solo hacen
// falta N traductores desde/hacia el modelo, nunca N×N pares de conversión.
package conversion

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/tu-usuario/einvoice-es/internal/domain/einvoice"
	"github.com/tu-usuario/einvoice-es/internal/domain/entity"
	"github.com/tu-usuario/einvoice-es/internal/infrastructure/facturae"
	"github.com/tu-usuario/einvoice-es/internal/infrastructure/ubl"
)

// Identificadores de formato soportados.
const (
	FormatUBL      = "ubl_2.1"
	FormatFacturae = "facturae_3.2.2"
	FormatUnknown  = "unknown"
)

// Converter servicio de conversión sin estado; seguro para uso concurrente.
type Converter struct {
	ubl *ubl.Codec
	fac *facturae.Codec
}

// NewConverter construye el conversor con sus dos códecs.
func NewConverter() *Converter {
	return &Converter{ubl: ubl.NewCodec(), fac: facturae.NewCodec()}
}

// DetectFormat determina estructuralmente la sintaxis del documento:
// raíz Facturae (con namespace que contenga "facturae") → facturae_3.2.2,
// raíz Invoice/CreditNote con namespace UBL → ubl_2.1, cualquier otra cosa
// (incluido no-XML) → unknown. Nunca falla.
func (c *Converter) DetectFormat(xmlStr string) string {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(xmlStr); err != nil {
		return FormatUnknown
	}
	root := doc.Root()
	if root == nil {
		return FormatUnknown
	}
	ns := rootNamespace(root)
	switch root.Tag {
	case "Facturae":
		if strings.Contains(strings.ToLower(ns), "facturae") {
			return FormatFacturae
		}
	case "Invoice", "CreditNote":
		if strings.Contains(ns, "urn:oasis:names:specification:ubl") {
			return FormatUBL
		}
	}
	return FormatUnknown
}

// ToNeutralModel interpreta el XML en el formato detectado y devuelve el
// modelo neutral. Entrada de formato desconocido produce ErrUnsupportedFormat.
func (c *Converter) ToNeutralModel(xmlStr string) (*entity.Invoice, error) {
	switch c.DetectFormat(xmlStr) {
	case FormatUBL:
		return c.ubl.Parse(xmlStr)
	case FormatFacturae:
		return c.fac.Parse(xmlStr)
	default:
		return nil, fmt.Errorf("%w: el documento no es UBL 2.1 ni Facturae 3.2.2", einvoice.ErrUnsupportedFormat)
	}
}

// ConvertTo re-renderiza el documento en el formato destino indicado.
// Un destino distinto de los dos soportados produce ErrUnsupportedTarget,
// nunca un no-op silencioso.
func (c *Converter) ConvertTo(xmlStr, targetFormat string) (string, error) {
	switch targetFormat {
	case FormatUBL, FormatFacturae:
	default:
		return "", fmt.Errorf("%w: %q", einvoice.ErrUnsupportedTarget, targetFormat)
	}
	model, err := c.ToNeutralModel(xmlStr)
	if err != nil {
		return "", err
	}
	return c.Render(model, targetFormat)
}

// ConvertToFacturae convierte cualquier documento soportado a Facturae 3.2.2.
func (c *Converter) ConvertToFacturae(xmlStr string) (string, error) {
	return c.ConvertTo(xmlStr, FormatFacturae)
}

// ConvertToUBL convierte cualquier documento soportado a UBL 2.1.
func (c *Converter) ConvertToUBL(xmlStr string) (string, error) {
	return c.ConvertTo(xmlStr, FormatUBL)
}

// Render serializa un modelo neutral directamente al formato indicado.
func (c *Converter) Render(model *entity.Invoice, targetFormat string) (string, error) {
	switch targetFormat {
	case FormatUBL:
		return c.ubl.Generate(model)
	case FormatFacturae:
		return c.fac.Generate(model)
	default:
		return "", fmt.Errorf("%w: %q", einvoice.ErrUnsupportedTarget, targetFormat)
	}
}

// rootNamespace resuelve el namespace declarado para el prefijo de la raíz
// (o el namespace por defecto si la raíz no lleva prefijo).
func rootNamespace(root *etree.Element) string {
	if root.Space != "" {
		return root.SelectAttrValue("xmlns:"+root.Space, "")
	}
	return root.SelectAttrValue("xmlns", "")
}

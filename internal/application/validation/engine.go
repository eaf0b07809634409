// Package validation implementa el pipeline de validación en cuatro capas
// independientes y componibles: buena formación XSD, reglas estructurales de
// negocio (BR-*), reglas del CIUS español (ES-*) y coherencia entre campos
// (BIZ-*). La validación nunca lanza en operación normal: siempre devuelve
// el resultado como dato.
package validation

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/tu-usuario/einvoice-es/internal/application/conversion"
	"github.com/tu-usuario/einvoice-es/internal/domain/entity"
	"github.com/tu-usuario/einvoice-es/pkg/esfiscal"
)

// Nombres de capa. Un resultado con capa distinta de "complete" indica qué
// capa concreta falló o no pudo ejecutarse.
const (
	LayerXSD        = "xsd"
	LayerSchematron = "schematron"
	LayerSpanish    = "spanish_rules"
	LayerBusiness   = "business_rules"
	LayerComplete   = "complete"
)

// balanceTolerance tolerancia de redondeo para el cuadre de totales (BIZ-01).
var balanceTolerance = decimal.NewFromFloat(0.01)

// Engine motor de validación sin estado; seguro para uso concurrente.
type Engine struct {
	conv *conversion.Converter
}

// NewEngine construye el motor.
func NewEngine() *Engine {
	return &Engine{conv: conversion.NewConverter()}
}

// Validate ejecuta las cuatro capas sobre el XML y combina los resultados:
// AND lógico sobre la validez, unión de errores y avisos, capa "complete".
// El fallo de una capa nunca enmascara los hallazgos de las demás.
func (e *Engine) Validate(xmlStr, format string) entity.ValidationResult {
	merged := e.ValidateXSD(xmlStr).
		Merge(e.ValidateSchematron(xmlStr)).
		Merge(e.ValidateSpanishRules(xmlStr)).
		Merge(e.ValidateBusinessRules(xmlStr))
	merged.Layer = LayerComplete

	// El formato declarado debe coincidir con el detectado estructuralmente.
	if format != "" {
		if detected := e.conv.DetectFormat(xmlStr); detected != conversion.FormatUnknown && detected != format {
			merged.Valid = false
			merged.Errors = append(merged.Errors,
				fmt.Sprintf("el formato declarado %q no coincide con el detectado %q", format, detected))
		}
	}
	return merged
}

// ValidateXSD verifica la buena formación del documento. Sin esquema físico
// disponible la comprobación estructural se da por superada: la capa degrada
// en vez de bloquear.
func (e *Engine) ValidateXSD(xmlStr string) entity.ValidationResult {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(xmlStr); err != nil {
		return entity.InvalidResult(LayerXSD, "XSD: documento XML mal formado: "+err.Error())
	}
	if doc.Root() == nil {
		return entity.InvalidResult(LayerXSD, "XSD: documento sin elemento raíz")
	}
	return entity.ValidResult(LayerXSD)
}

// ValidateSchematron aplica las reglas estructurales de negocio del conjunto
// EN 16931. Cada violación lleva su código de regla estable para que los
// llamantes puedan filtrar programáticamente.
func (e *Engine) ValidateSchematron(xmlStr string) entity.ValidationResult {
	inv, err := e.conv.ToNeutralModel(xmlStr)
	if err != nil {
		return entity.InvalidResult(LayerSchematron, "Schematron: no se pudo interpretar el documento: "+err.Error())
	}

	var errs []string
	if strings.TrimSpace(inv.InvoiceNumber) == "" {
		errs = append(errs, "BR-01: el número de factura (BT-1) es obligatorio")
	}
	if strings.TrimSpace(inv.IssueDate) == "" {
		errs = append(errs, "BR-02: la fecha de emisión (BT-2) es obligatoria")
	}
	if inv.CurrencyCode == "" {
		errs = append(errs, "BR-05: el código de moneda (BT-5) es obligatorio")
	} else if _, err := currency.ParseISO(inv.CurrencyCode); err != nil {
		errs = append(errs, fmt.Sprintf("BR-05: el código de moneda %q no es ISO 4217", inv.CurrencyCode))
	}
	if strings.TrimSpace(inv.Seller.Name) == "" {
		errs = append(errs, "BR-06: el nombre del vendedor (BT-27) es obligatorio")
	}
	if strings.TrimSpace(inv.Buyer.Name) == "" {
		errs = append(errs, "BR-07: el nombre del comprador (BT-44) es obligatorio")
	}
	if len(inv.Lines) == 0 {
		errs = append(errs, "BR-16: la factura debe tener al menos una línea (BG-25)")
	}
	if inv.IsCreditNote() && strings.TrimSpace(inv.PrecedingInvoiceReference) == "" {
		errs = append(errs, "BR-55: la rectificativa debe referenciar la factura precedente (BT-25)")
	}

	if len(errs) > 0 {
		return entity.InvalidResult(LayerSchematron, errs...)
	}
	return entity.ValidResult(LayerSchematron)
}

// ValidateSpanishRules aplica el CIUS español. ES-01/ES-02 son errores;
// ES-03 (moneda distinta de EUR) es solo aviso: el documento sigue siendo
// válido pero queda marcado.
func (e *Engine) ValidateSpanishRules(xmlStr string) entity.ValidationResult {
	inv, err := e.conv.ToNeutralModel(xmlStr)
	if err != nil {
		return entity.InvalidResult(LayerSpanish, "CIUS-ES: no se pudo interpretar el documento: "+err.Error())
	}

	var errs, warnings []string
	sellerTaxID := strings.TrimSpace(inv.Seller.TaxID)
	if sellerTaxID == "" {
		errs = append(errs, "ES-02: el NIF del vendedor (BT-31) es obligatorio")
	} else if !esfiscal.IsValidNIF(sellerTaxID) {
		errs = append(errs, fmt.Sprintf("ES-01: el NIF del vendedor %q no tiene forma NIF/CIF/NIE válida", sellerTaxID))
	}
	if inv.CurrencyCode != "" && inv.CurrencyCode != entity.DefaultCurrency {
		warnings = append(warnings, fmt.Sprintf("ES-03: moneda %s distinta de EUR", inv.CurrencyCode))
	}

	if len(errs) > 0 {
		result := entity.InvalidResult(LayerSpanish, errs...)
		result.Warnings = warnings
		return result
	}
	result := entity.ValidResult(LayerSpanish)
	result.Warnings = warnings
	return result
}

// ValidateBusinessRules comprueba la coherencia entre campos monetarios.
func (e *Engine) ValidateBusinessRules(xmlStr string) entity.ValidationResult {
	inv, err := e.conv.ToNeutralModel(xmlStr)
	if err != nil {
		return entity.InvalidResult(LayerBusiness, "Reglas de negocio: no se pudo interpretar el documento: "+err.Error())
	}

	var errs []string
	expected := inv.TotalWithoutTax.Add(inv.TotalTax)
	if expected.Sub(inv.TotalWithTax).Abs().GreaterThan(balanceTolerance) {
		errs = append(errs, fmt.Sprintf(
			"BIZ-01: los totales no cuadran: %s + %s != %s",
			inv.TotalWithoutTax.StringFixed(2), inv.TotalTax.StringFixed(2), inv.TotalWithTax.StringFixed(2)))
	}
	if inv.AmountDue.GreaterThan(inv.TotalWithTax.Add(balanceTolerance)) {
		errs = append(errs, fmt.Sprintf(
			"BIZ-02: el importe pendiente (%s) excede el total con impuestos (%s)",
			inv.AmountDue.StringFixed(2), inv.TotalWithTax.StringFixed(2)))
	}
	if inv.AmountDue.IsNegative() {
		errs = append(errs, fmt.Sprintf("BIZ-03: el importe a pagar no puede ser negativo (%s)", inv.AmountDue.StringFixed(2)))
	}

	if len(errs) > 0 {
		return entity.InvalidResult(LayerBusiness, errs...)
	}
	return entity.ValidResult(LayerBusiness)
}

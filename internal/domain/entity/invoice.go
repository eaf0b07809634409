// Package entity define el modelo semántico neutral de factura electrónica
// según EN 16931 (términos de negocio BT-* y grupos BG-*), junto con los
// objetos de resultado inmutables que se devuelven en cada frontera.
//
// El modelo es agnóstico de sintaxis: los códecs UBL 2.1 y Facturae 3.2.2 lo
// producen y lo consumen, pero nunca lo mutan: toda conversión construye un
// modelo nuevo.
package entity

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Códigos de tipo de documento (BT-3, UNTDID 1001).
const (
	TypeCodeInvoice    = 380 // Factura comercial
	TypeCodeCreditNote = 381 // Factura rectificativa (abono)
	TypeCodeDebitNote  = 383 // Nota de cargo
	TypeCodePrepayment = 386 // Factura de anticipo
)

// DefaultCurrency es la moneda por defecto del documento (BT-5).
const DefaultCurrency = "EUR"

// Address dirección postal de una parte (BG-5 / BG-8).
type Address struct {
	Street     string
	City       string
	PostalCode string
	Country    string // ISO 3166-1 alfa-2, ej. "ES"
}

// Contact datos de contacto de una parte (BG-6 / BG-9).
type Contact struct {
	Name  string
	Phone string
	Email string
}

// Party vendedor (BG-4) o comprador (BG-7). Validación solo exige
// Name (BT-27/BT-44) y TaxID (BT-31/BT-48); el resto es opcional.
type Party struct {
	Name           string
	TaxID          string // NIF/CIF/NIE sin prefijo de país
	EndpointID     string // BT-34/BT-49
	EndpointScheme string
	Address        Address
	Contact        Contact
}

// Line línea de factura (BG-25). Al menos una línea es obligatoria
// para un documento destinado a presentación.
type Line struct {
	Description string
	Quantity    decimal.Decimal
	Unit        string // código UN/ECE rec 20, ej. "C62"
	NetAmount   decimal.Decimal
	Price       decimal.Decimal // hasta 4 decimales
	TaxPercent  decimal.Decimal
	TaxCategory string // categoría UNCL5305, ej. "S"
}

// TaxSubtotal desglose de impuestos por tipo de IVA (BG-23),
// uno por cada tipo impositivo distinto presente en las líneas.
type TaxSubtotal struct {
	TaxableAmount decimal.Decimal
	TaxAmount     decimal.Decimal
	CategoryID    string
	Percent       decimal.Decimal
}

// PaymentMeans instrucciones de pago (BG-16).
type PaymentMeans struct {
	Code      string // UNCL4461, ej. "30" transferencia
	IBAN      string
	BIC       string
	PaymentID string // referencia de remesa (BT-83)
}

// PaymentTerms condiciones de pago (BT-20).
type PaymentTerms struct {
	Note string
}

// Invoice es la representación canónica en memoria de una factura o
// rectificativa EN 16931. Inmutable una vez construida: las conversiones
// producen siempre un modelo nuevo.
//
// Los importes se mantienen como decimal.Decimal (nunca float) con escala
// fija: 2 decimales para importes, hasta 4 para precios y tipos impositivos.
// Invariante: TotalWithTax == TotalWithoutTax + TotalTax y
// AmountDue <= TotalWithTax.
type Invoice struct {
	InvoiceNumber   string // BT-1, no vacío
	IssueDate       string // BT-2, ISO-8601 (YYYY-MM-DD)
	InvoiceTypeCode int    // BT-3
	CurrencyCode    string // BT-5, ISO 4217

	TaxPointDate              string // BT-7
	DueDate                   string // BT-9
	BuyerReference            string // BT-10
	ProjectReference          string // BT-11
	ContractReference         string // BT-12
	PrecedingInvoiceReference string // BT-25; semánticamente obligatoria si tipo 381

	Seller Party
	Buyer  Party

	Lines     []Line
	TaxTotals []TaxSubtotal

	TotalWithoutTax decimal.Decimal // BT-109
	TotalTax        decimal.Decimal // BT-110
	TotalWithTax    decimal.Decimal // BT-112
	AmountDue       decimal.Decimal // BT-115

	PaymentMeans *PaymentMeans
	PaymentTerms *PaymentTerms
	Note         string // BT-22
}

// IsCreditNote indica si el documento es una rectificativa (tipo 381).
func (inv *Invoice) IsCreditNote() bool {
	return inv.InvoiceTypeCode == TypeCodeCreditNote
}

// FromMap construye el modelo a partir del mapa plano clave/valor que entrega
// el colaborador de pedidos/facturación. Claves en snake_case; las partes y
// las líneas llegan como mapas y listas de mapas anidados.
//
// Aplica valores por defecto (tipo 380, moneda EUR) y falla si falta el
// número de factura, la fecha de emisión o algún importe no es decimal.
func FromMap(data map[string]any) (*Invoice, error) {
	number := getString(data, "invoice_number")
	if number == "" {
		return nil, fmt.Errorf("entity: invoice_number es obligatorio (BT-1)")
	}
	issueDate := getString(data, "issue_date")
	if issueDate == "" {
		return nil, fmt.Errorf("entity: issue_date es obligatoria (BT-2)")
	}

	typeCode := getInt(data, "invoice_type_code", TypeCodeInvoice)
	currency := getString(data, "currency_code")
	if currency == "" {
		currency = DefaultCurrency
	}

	inv := &Invoice{
		InvoiceNumber:             number,
		IssueDate:                 issueDate,
		InvoiceTypeCode:           typeCode,
		CurrencyCode:              currency,
		TaxPointDate:              getString(data, "tax_point_date"),
		DueDate:                   getString(data, "due_date"),
		BuyerReference:            getString(data, "buyer_reference"),
		ProjectReference:          getString(data, "project_reference"),
		ContractReference:         getString(data, "contract_reference"),
		PrecedingInvoiceReference: getString(data, "preceding_invoice_reference"),
		Note:                      getString(data, "note"),
	}

	if m, ok := data["seller"].(map[string]any); ok {
		inv.Seller = partyFromMap(m)
	}
	if m, ok := data["buyer"].(map[string]any); ok {
		inv.Buyer = partyFromMap(m)
	}

	rawLines, err := getMapSlice(data, "lines")
	if err != nil {
		return nil, err
	}
	for i, lm := range rawLines {
		line, lineErr := lineFromMap(lm)
		if lineErr != nil {
			return nil, fmt.Errorf("entity: línea %d: %w", i+1, lineErr)
		}
		inv.Lines = append(inv.Lines, line)
	}
	rawTotals, err := getMapSlice(data, "tax_totals")
	if err != nil {
		return nil, err
	}
	for i, tm := range rawTotals {
		tt, ttErr := taxSubtotalFromMap(tm)
		if ttErr != nil {
			return nil, fmt.Errorf("entity: desglose de impuestos %d: %w", i+1, ttErr)
		}
		inv.TaxTotals = append(inv.TaxTotals, tt)
	}

	if inv.TotalWithoutTax, err = getDecimal(data, "total_without_tax"); err != nil {
		return nil, err
	}
	if inv.TotalTax, err = getDecimal(data, "total_tax"); err != nil {
		return nil, err
	}
	if inv.TotalWithTax, err = getDecimal(data, "total_with_tax"); err != nil {
		return nil, err
	}
	if inv.AmountDue, err = getDecimal(data, "amount_due"); err != nil {
		return nil, err
	}

	if m, ok := data["payment_means"].(map[string]any); ok {
		inv.PaymentMeans = &PaymentMeans{
			Code:      getString(m, "code"),
			IBAN:      getString(m, "iban"),
			BIC:       getString(m, "bic"),
			PaymentID: getString(m, "payment_id"),
		}
	}
	if m, ok := data["payment_terms"].(map[string]any); ok {
		inv.PaymentTerms = &PaymentTerms{Note: getString(m, "note")}
	}

	return inv, nil
}

// ToMap devuelve una vista plana del modelo para logging y respuestas API.
func (inv *Invoice) ToMap() map[string]any {
	m := map[string]any{
		"invoice_number":    inv.InvoiceNumber,
		"issue_date":        inv.IssueDate,
		"invoice_type_code": inv.InvoiceTypeCode,
		"currency_code":     inv.CurrencyCode,
		"seller_name":       inv.Seller.Name,
		"seller_tax_id":     inv.Seller.TaxID,
		"buyer_name":        inv.Buyer.Name,
		"buyer_tax_id":      inv.Buyer.TaxID,
		"line_count":        len(inv.Lines),
		"total_without_tax": inv.TotalWithoutTax.StringFixed(2),
		"total_tax":         inv.TotalTax.StringFixed(2),
		"total_with_tax":    inv.TotalWithTax.StringFixed(2),
		"amount_due":        inv.AmountDue.StringFixed(2),
	}
	if inv.DueDate != "" {
		m["due_date"] = inv.DueDate
	}
	if inv.PrecedingInvoiceReference != "" {
		m["preceding_invoice_reference"] = inv.PrecedingInvoiceReference
	}
	return m
}

// ── helpers de construcción ───────────────────────────────────────────────────

func partyFromMap(m map[string]any) Party {
	p := Party{
		Name:           getString(m, "name"),
		TaxID:          getString(m, "tax_id"),
		EndpointID:     getString(m, "endpoint_id"),
		EndpointScheme: getString(m, "endpoint_scheme"),
	}
	if am, ok := m["address"].(map[string]any); ok {
		p.Address = Address{
			Street:     getString(am, "street"),
			City:       getString(am, "city"),
			PostalCode: getString(am, "postal_code"),
			Country:    getString(am, "country"),
		}
	}
	if cm, ok := m["contact"].(map[string]any); ok {
		p.Contact = Contact{
			Name:  getString(cm, "name"),
			Phone: getString(cm, "phone"),
			Email: getString(cm, "email"),
		}
	}
	return p
}

func lineFromMap(m map[string]any) (Line, error) {
	line := Line{
		Description: getString(m, "description"),
		Unit:        getString(m, "unit"),
		TaxCategory: getString(m, "tax_category"),
	}
	var err error
	if line.Quantity, err = getDecimal(m, "quantity"); err != nil {
		return Line{}, err
	}
	if line.NetAmount, err = getDecimal(m, "net_amount"); err != nil {
		return Line{}, err
	}
	if line.Price, err = getDecimal(m, "price"); err != nil {
		return Line{}, err
	}
	if line.TaxPercent, err = getDecimal(m, "tax_percent"); err != nil {
		return Line{}, err
	}
	return line, nil
}

func taxSubtotalFromMap(m map[string]any) (TaxSubtotal, error) {
	tt := TaxSubtotal{CategoryID: getString(m, "category_id")}
	var err error
	if tt.TaxableAmount, err = getDecimal(m, "taxable_amount"); err != nil {
		return TaxSubtotal{}, err
	}
	if tt.TaxAmount, err = getDecimal(m, "tax_amount"); err != nil {
		return TaxSubtotal{}, err
	}
	if tt.Percent, err = getDecimal(m, "percent"); err != nil {
		return TaxSubtotal{}, err
	}
	return tt, nil
}

// getMapSlice lee una lista de mapas anidados. Acepta tanto
// []map[string]any como el []any que produce la decodificación JSON;
// una lista con elementos que no sean mapas, o un valor de otro tipo,
// es error explícito, nunca una lista silenciosamente vacía.
func getMapSlice(m map[string]any, key string) ([]map[string]any, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch raw := v.(type) {
	case []map[string]any:
		return raw, nil
	case []any:
		out := make([]map[string]any, 0, len(raw))
		for i, el := range raw {
			em, ok := el.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("entity: %s[%d] debe ser un mapa, recibido %T", key, i, el)
			}
			out = append(out, em)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("entity: %s debe ser una lista de mapas, recibido %T", key, v)
	}
}

func getString(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getInt(m map[string]any, key string, def int) int {
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// getDecimal lee un importe como string decimal (nunca float binario).
// Una clave ausente equivale a cero; un valor no decimal es error.
func getDecimal(m map[string]any, key string) (decimal.Decimal, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return decimal.Zero, nil
	}
	s, ok := v.(string)
	if !ok {
		return decimal.Zero, fmt.Errorf("entity: %s debe ser un string decimal, recibido %T", key, v)
	}
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("entity: %s no es un decimal válido: %w", key, err)
	}
	return d, nil
}

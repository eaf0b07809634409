// Package facturae serializa el modelo neutral al formato nacional español
// Facturae 3.2.2 y lo reconstruye desde XML Facturae.
//
// La rectificativa (tipo 381) se emite con InvoiceDocumentType "RA" y, si
// existe referencia a la factura rectificada, con el bloque Corrective;
// es regla de negocio, no cosmética.
package facturae

import (
	"strings"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/tu-usuario/einvoice-es/internal/domain/einvoice"
	"github.com/tu-usuario/einvoice-es/internal/domain/entity"
)

// Namespace oficial Facturae 3.2.2.
const (
	NsFacturae    = "http://www.facturae.gob.es/formato/Versiones/Facturaev3_2_2.xml"
	SchemaVersion = "3.2.2"

	docTypeInvoice    = "FC" // factura completa
	docTypeCorrective = "RA" // rectificativa
)

// alpha3 correspondencia ISO 3166-1 alfa-2 → alfa-3 para los países
// habituales; Facturae exige códigos de tres letras.
var alpha3 = map[string]string{
	"ES": "ESP", "FR": "FRA", "DE": "DEU", "PT": "PRT",
	"IT": "ITA", "NL": "NLD", "BE": "BEL", "GB": "GBR",
}

var alpha2 = func() map[string]string {
	m := make(map[string]string, len(alpha3))
	for k, v := range alpha3 {
		m[v] = k
	}
	return m
}()

// Codec códec Facturae 3.2.2 sin estado; seguro para uso concurrente.
type Codec struct{}

// NewCodec crea el códec.
func NewCodec() *Codec { return &Codec{} }

// ── Generación ────────────────────────────────────────────────────────────────

// Generate serializa el modelo a XML Facturae 3.2.2 con, como mínimo,
// FileHeader/SchemaVersion, Parties/SellerParty, Parties/BuyerParty, Items,
// TaxesOutputs e InvoiceTotals.
func (c *Codec) Generate(inv *entity.Invoice) (string, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("fe:Facturae")
	root.CreateAttr("xmlns:fe", NsFacturae)

	// FileHeader
	header := root.CreateElement("FileHeader")
	writeText(header, "SchemaVersion", SchemaVersion)
	writeText(header, "Modality", "I")
	writeText(header, "InvoiceIssuerType", "EM")
	batch := header.CreateElement("Batch")
	writeText(batch, "BatchIdentifier", inv.Seller.TaxID+inv.InvoiceNumber)
	writeText(batch, "InvoicesCount", "1")
	writeTotal(batch, "TotalInvoicesAmount", inv.TotalWithTax)
	writeTotal(batch, "TotalOutstandingAmount", inv.AmountDue)
	writeTotal(batch, "TotalExecutableAmount", inv.AmountDue)
	writeText(batch, "InvoiceCurrencyCode", inv.CurrencyCode)

	// Parties
	parties := root.CreateElement("Parties")
	writeParty(parties, "SellerParty", inv.Seller)
	writeParty(parties, "BuyerParty", inv.Buyer)

	// Invoices/Invoice
	invoices := root.CreateElement("Invoices")
	invoice := invoices.CreateElement("Invoice")

	invHeader := invoice.CreateElement("InvoiceHeader")
	writeText(invHeader, "InvoiceNumber", inv.InvoiceNumber)
	docType := docTypeInvoice
	invoiceClass := "OO" // original
	if inv.IsCreditNote() {
		docType = docTypeCorrective
		invoiceClass = "OR" // original rectificativa
	}
	writeText(invHeader, "InvoiceDocumentType", docType)
	writeText(invHeader, "InvoiceClass", invoiceClass)
	if inv.IsCreditNote() && inv.PrecedingInvoiceReference != "" {
		corrective := invHeader.CreateElement("Corrective")
		writeText(corrective, "InvoiceNumber", inv.PrecedingInvoiceReference)
		writeText(corrective, "ReasonCode", "01")
	}

	issueData := invoice.CreateElement("InvoiceIssueData")
	writeText(issueData, "IssueDate", inv.IssueDate)
	if inv.TaxPointDate != "" {
		writeText(issueData, "OperationDate", inv.TaxPointDate)
	}
	writeText(issueData, "InvoiceCurrencyCode", inv.CurrencyCode)
	writeText(issueData, "TaxCurrencyCode", inv.CurrencyCode)
	writeText(issueData, "LanguageName", "es")
	if inv.BuyerReference != "" {
		writeText(issueData, "ReceiverTransactionReference", inv.BuyerReference)
	}
	if inv.ContractReference != "" {
		writeText(issueData, "ReceiverContractReference", inv.ContractReference)
	}
	if inv.ProjectReference != "" {
		writeText(issueData, "FileReference", inv.ProjectReference)
	}

	taxes := invoice.CreateElement("TaxesOutputs")
	for _, tt := range inv.TaxTotals {
		tax := taxes.CreateElement("Tax")
		writeText(tax, "TaxTypeCode", "01") // 01 = IVA
		writeText(tax, "TaxRate", tt.Percent.String())
		writeTotal(tax, "TaxableBase", tt.TaxableAmount)
		writeTotal(tax, "TaxAmount", tt.TaxAmount)
	}

	totals := invoice.CreateElement("InvoiceTotals")
	writeText(totals, "TotalGrossAmount", inv.TotalWithoutTax.StringFixed(2))
	writeText(totals, "TotalGrossAmountBeforeTaxes", inv.TotalWithoutTax.StringFixed(2))
	writeText(totals, "TotalTaxOutputs", inv.TotalTax.StringFixed(2))
	writeText(totals, "TotalTaxesWithheld", "0.00")
	writeText(totals, "InvoiceTotal", inv.TotalWithTax.StringFixed(2))
	writeText(totals, "TotalOutstandingAmount", inv.AmountDue.StringFixed(2))
	writeText(totals, "TotalExecutableAmount", inv.AmountDue.StringFixed(2))

	items := invoice.CreateElement("Items")
	for _, line := range inv.Lines {
		il := items.CreateElement("InvoiceLine")
		writeText(il, "ItemDescription", line.Description)
		writeText(il, "Quantity", line.Quantity.String())
		if line.Unit != "" {
			writeText(il, "UnitOfMeasure", line.Unit)
		}
		writeText(il, "UnitPriceWithoutTax", line.Price.String())
		writeText(il, "TotalCost", line.NetAmount.StringFixed(2))
		writeText(il, "GrossAmount", line.NetAmount.StringFixed(2))
		lineTaxes := il.CreateElement("TaxesOutputs")
		lineTax := lineTaxes.CreateElement("Tax")
		writeText(lineTax, "TaxTypeCode", "01")
		writeText(lineTax, "TaxRate", line.TaxPercent.String())
		writeTotal(lineTax, "TaxableBase", line.NetAmount)
	}

	if inv.PaymentMeans != nil || inv.DueDate != "" {
		details := invoice.CreateElement("PaymentDetails")
		installment := details.CreateElement("Installment")
		if inv.DueDate != "" {
			writeText(installment, "InstallmentDueDate", inv.DueDate)
		}
		writeText(installment, "InstallmentAmount", inv.AmountDue.StringFixed(2))
		if inv.PaymentMeans != nil {
			if inv.PaymentMeans.Code != "" {
				writeText(installment, "PaymentMeans", inv.PaymentMeans.Code)
			}
			if inv.PaymentMeans.IBAN != "" {
				account := installment.CreateElement("AccountToBeCredited")
				writeText(account, "IBAN", inv.PaymentMeans.IBAN)
				if inv.PaymentMeans.BIC != "" {
					writeText(account, "BIC", inv.PaymentMeans.BIC)
				}
			}
			if inv.PaymentMeans.PaymentID != "" {
				writeText(installment, "PaymentReconciliationReference", inv.PaymentMeans.PaymentID)
			}
		}
	}

	if inv.Note != "" || (inv.PaymentTerms != nil && inv.PaymentTerms.Note != "") {
		additional := invoice.CreateElement("AdditionalData")
		note := inv.Note
		if note == "" {
			note = inv.PaymentTerms.Note
		}
		writeText(additional, "InvoiceAdditionalInformation", note)
	}

	doc.Indent(2)
	return doc.WriteToString()
}

func writeParty(parties *etree.Element, name string, p entity.Party) {
	party := parties.CreateElement(name)

	taxIdent := party.CreateElement("TaxIdentification")
	writeText(taxIdent, "PersonTypeCode", "J")
	writeText(taxIdent, "ResidenceTypeCode", "R")
	writeText(taxIdent, "TaxIdentificationNumber", p.TaxID)

	legal := party.CreateElement("LegalEntity")
	writeText(legal, "CorporateName", p.Name)
	if p.Address != (entity.Address{}) {
		address := legal.CreateElement("AddressInSpain")
		writeText(address, "Address", p.Address.Street)
		writeText(address, "PostCode", p.Address.PostalCode)
		writeText(address, "Town", p.Address.City)
		writeText(address, "Province", p.Address.City)
		writeText(address, "CountryCode", countryAlpha3(p.Address.Country))
	}
	if p.Contact != (entity.Contact{}) {
		contact := legal.CreateElement("ContactDetails")
		if p.Contact.Phone != "" {
			writeText(contact, "Telephone", p.Contact.Phone)
		}
		if p.Contact.Email != "" {
			writeText(contact, "ElectronicMail", p.Contact.Email)
		}
		if p.Contact.Name != "" {
			writeText(contact, "ContactPersons", p.Contact.Name)
		}
	}
}

// ── Parseo ────────────────────────────────────────────────────────────────────

// Parse reconstruye el modelo neutral desde XML Facturae 3.2.2. La categoría
// de IVA (UNCL5305) no existe en Facturae; se asume "S" (tipo general).
func (c *Codec) Parse(xmlStr string) (*entity.Invoice, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(xmlStr); err != nil {
		return nil, &einvoice.ParseError{Format: "facturae_3.2.2", Msg: "XML Facturae inválido", Err: err}
	}
	root := doc.Root()
	if root == nil || root.Tag != "Facturae" {
		return nil, &einvoice.ParseError{Format: "facturae_3.2.2", Msg: "XML Facturae inválido: raíz Facturae no encontrada"}
	}

	inv := &entity.Invoice{
		InvoiceTypeCode: entity.TypeCodeInvoice,
		CurrencyCode:    entity.DefaultCurrency,
	}

	if header := root.SelectElement("FileHeader"); header != nil {
		if batch := header.SelectElement("Batch"); batch != nil {
			if cc := childText(batch, "InvoiceCurrencyCode"); cc != "" {
				inv.CurrencyCode = cc
			}
		}
	}

	if parties := root.SelectElement("Parties"); parties != nil {
		if seller := parties.SelectElement("SellerParty"); seller != nil {
			inv.Seller = parseParty(seller)
		}
		if buyer := parties.SelectElement("BuyerParty"); buyer != nil {
			inv.Buyer = parseParty(buyer)
		}
	}

	invoices := root.SelectElement("Invoices")
	if invoices == nil {
		return nil, &einvoice.ParseError{Format: "facturae_3.2.2", Msg: "XML Facturae inválido: bloque Invoices ausente"}
	}
	invoice := invoices.SelectElement("Invoice")
	if invoice == nil {
		return nil, &einvoice.ParseError{Format: "facturae_3.2.2", Msg: "XML Facturae inválido: bloque Invoice ausente"}
	}

	if header := invoice.SelectElement("InvoiceHeader"); header != nil {
		inv.InvoiceNumber = childText(header, "InvoiceNumber")
		if childText(header, "InvoiceDocumentType") == docTypeCorrective {
			inv.InvoiceTypeCode = entity.TypeCodeCreditNote
		}
		if corrective := header.SelectElement("Corrective"); corrective != nil {
			inv.PrecedingInvoiceReference = childText(corrective, "InvoiceNumber")
		}
	}

	if issueData := invoice.SelectElement("InvoiceIssueData"); issueData != nil {
		inv.IssueDate = childText(issueData, "IssueDate")
		inv.TaxPointDate = childText(issueData, "OperationDate")
		if cc := childText(issueData, "InvoiceCurrencyCode"); cc != "" {
			inv.CurrencyCode = cc
		}
		inv.BuyerReference = childText(issueData, "ReceiverTransactionReference")
		inv.ContractReference = childText(issueData, "ReceiverContractReference")
		inv.ProjectReference = childText(issueData, "FileReference")
	}

	if taxes := invoice.SelectElement("TaxesOutputs"); taxes != nil {
		for _, tax := range taxes.SelectElements("Tax") {
			inv.TaxTotals = append(inv.TaxTotals, entity.TaxSubtotal{
				CategoryID:    "S",
				Percent:       childDecimal(tax, "TaxRate"),
				TaxableAmount: totalAmount(tax, "TaxableBase"),
				TaxAmount:     totalAmount(tax, "TaxAmount"),
			})
		}
	}

	if totals := invoice.SelectElement("InvoiceTotals"); totals != nil {
		inv.TotalWithoutTax = childDecimal(totals, "TotalGrossAmountBeforeTaxes")
		inv.TotalTax = childDecimal(totals, "TotalTaxOutputs")
		inv.TotalWithTax = childDecimal(totals, "InvoiceTotal")
		inv.AmountDue = childDecimal(totals, "TotalOutstandingAmount")
	}

	if items := invoice.SelectElement("Items"); items != nil {
		for _, il := range items.SelectElements("InvoiceLine") {
			inv.Lines = append(inv.Lines, entity.Line{
				Description: childText(il, "ItemDescription"),
				Quantity:    childDecimal(il, "Quantity"),
				Unit:        childText(il, "UnitOfMeasure"),
				Price:       childDecimal(il, "UnitPriceWithoutTax"),
				NetAmount:   childDecimal(il, "TotalCost"),
				TaxPercent:  lineTaxRate(il),
				TaxCategory: "S",
			})
		}
	}

	if details := invoice.SelectElement("PaymentDetails"); details != nil {
		if installment := details.SelectElement("Installment"); installment != nil {
			inv.DueDate = childText(installment, "InstallmentDueDate")
			means := &entity.PaymentMeans{
				Code:      childText(installment, "PaymentMeans"),
				PaymentID: childText(installment, "PaymentReconciliationReference"),
			}
			if account := installment.SelectElement("AccountToBeCredited"); account != nil {
				means.IBAN = childText(account, "IBAN")
				means.BIC = childText(account, "BIC")
			}
			if *means != (entity.PaymentMeans{}) {
				inv.PaymentMeans = means
			}
		}
	}

	if additional := invoice.SelectElement("AdditionalData"); additional != nil {
		inv.Note = childText(additional, "InvoiceAdditionalInformation")
	}

	return inv, nil
}

func parseParty(party *etree.Element) entity.Party {
	p := entity.Party{}
	if taxIdent := party.SelectElement("TaxIdentification"); taxIdent != nil {
		p.TaxID = childText(taxIdent, "TaxIdentificationNumber")
	}
	if legal := party.SelectElement("LegalEntity"); legal != nil {
		p.Name = childText(legal, "CorporateName")
		if address := legal.SelectElement("AddressInSpain"); address != nil {
			p.Address = entity.Address{
				Street:     childText(address, "Address"),
				PostalCode: childText(address, "PostCode"),
				City:       childText(address, "Town"),
				Country:    countryAlpha2(childText(address, "CountryCode")),
			}
		}
		if contact := legal.SelectElement("ContactDetails"); contact != nil {
			p.Contact = entity.Contact{
				Phone: childText(contact, "Telephone"),
				Email: childText(contact, "ElectronicMail"),
				Name:  childText(contact, "ContactPersons"),
			}
		}
	}
	return p
}

// ── helpers ───────────────────────────────────────────────────────────────────

func countryAlpha3(code string) string {
	if code == "" {
		return "ESP"
	}
	if a3, ok := alpha3[strings.ToUpper(code)]; ok {
		return a3
	}
	return code
}

func countryAlpha2(code string) string {
	if a2, ok := alpha2[strings.ToUpper(code)]; ok {
		return a2
	}
	return code
}

func writeText(parent *etree.Element, name, value string) {
	parent.CreateElement(name).SetText(value)
}

// writeTotal escribe un importe envuelto en TotalAmount, como exigen
// TaxableBase, TaxAmount y los totales del Batch.
func writeTotal(parent *etree.Element, name string, d decimal.Decimal) {
	parent.CreateElement(name).CreateElement("TotalAmount").SetText(d.StringFixed(2))
}

func totalAmount(e *etree.Element, tag string) decimal.Decimal {
	if wrapper := e.SelectElement(tag); wrapper != nil {
		return childDecimal(wrapper, "TotalAmount")
	}
	return decimal.Zero
}

func lineTaxRate(il *etree.Element) decimal.Decimal {
	if taxes := il.SelectElement("TaxesOutputs"); taxes != nil {
		if tax := taxes.SelectElement("Tax"); tax != nil {
			return childDecimal(tax, "TaxRate")
		}
	}
	return decimal.Zero
}

func childText(e *etree.Element, tag string) string {
	if c := e.SelectElement(tag); c != nil {
		return strings.TrimSpace(c.Text())
	}
	return ""
}

func childDecimal(e *etree.Element, tag string) decimal.Decimal {
	s := childText(e, tag)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

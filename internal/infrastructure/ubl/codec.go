// Package ubl serializa el modelo neutral a UBL 2.1 y lo reconstruye desde
// XML UBL 2.1. La raíz es Invoice (tipos 380/383/386) o CreditNote (381) y
// los nombres de línea acompañan a la raíz: InvoiceLine/CreditNoteLine.
package ubl

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/tu-usuario/einvoice-es/internal/domain/einvoice"
	"github.com/tu-usuario/einvoice-es/internal/domain/entity"
)

// Namespaces oficiales UBL 2.1.
const (
	NsInvoice    = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	NsCreditNote = "urn:oasis:names:specification:ubl:schema:xsd:CreditNote-2"
	NsCac        = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	NsCbc        = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"

	customizationID = "urn:cen.eu:en16931:2017"
)

// Codec códec UBL 2.1 sin estado; seguro para uso concurrente.
type Codec struct{}

// NewCodec crea el códec.
func NewCodec() *Codec { return &Codec{} }

// ── Generación ────────────────────────────────────────────────────────────────

// Generate serializa el modelo a XML UBL 2.1 (UTF-8, con declaración XML).
// Cada término de negocio con valor se escribe como elemento propio; los
// grupos opcionales vacíos se omiten por completo: la ausencia, no la
// etiqueta vacía, señala "no aportado".
func (c *Codec) Generate(inv *entity.Invoice) (string, error) {
	credit := inv.IsCreditNote()

	rootName, lineName, qtyName, typeCodeName, ns := "Invoice", "InvoiceLine", "InvoicedQuantity", "InvoiceTypeCode", NsInvoice
	if credit {
		rootName, lineName, qtyName, typeCodeName, ns = "CreditNote", "CreditNoteLine", "CreditedQuantity", "CreditNoteTypeCode", NsCreditNote
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement(rootName)
	root.CreateAttr("xmlns", ns)
	root.CreateAttr("xmlns:cac", NsCac)
	root.CreateAttr("xmlns:cbc", NsCbc)

	writeText(root, "cbc:CustomizationID", customizationID)
	writeText(root, "cbc:ID", inv.InvoiceNumber)
	writeText(root, "cbc:IssueDate", inv.IssueDate)
	if !credit && inv.DueDate != "" {
		writeText(root, "cbc:DueDate", inv.DueDate)
	}
	writeText(root, "cbc:"+typeCodeName, strconv.Itoa(inv.InvoiceTypeCode))
	if inv.Note != "" {
		writeText(root, "cbc:Note", inv.Note)
	}
	if inv.TaxPointDate != "" {
		writeText(root, "cbc:TaxPointDate", inv.TaxPointDate)
	}
	writeText(root, "cbc:DocumentCurrencyCode", inv.CurrencyCode)
	if inv.BuyerReference != "" {
		writeText(root, "cbc:BuyerReference", inv.BuyerReference)
	}

	if inv.PrecedingInvoiceReference != "" {
		billing := root.CreateElement("cac:BillingReference")
		docRef := billing.CreateElement("cac:InvoiceDocumentReference")
		writeText(docRef, "cbc:ID", inv.PrecedingInvoiceReference)
	}
	if inv.ContractReference != "" {
		contract := root.CreateElement("cac:ContractDocumentReference")
		writeText(contract, "cbc:ID", inv.ContractReference)
	}
	if inv.ProjectReference != "" {
		project := root.CreateElement("cac:ProjectReference")
		writeText(project, "cbc:ID", inv.ProjectReference)
	}

	writeParty(root, "cac:AccountingSupplierParty", inv.Seller)
	writeParty(root, "cac:AccountingCustomerParty", inv.Buyer)

	// CreditNote no admite cbc:DueDate; el vencimiento viaja en
	// PaymentMeans/PaymentDueDate aunque no haya instrucciones de pago.
	if inv.PaymentMeans != nil || (credit && inv.DueDate != "") {
		pm := root.CreateElement("cac:PaymentMeans")
		if inv.PaymentMeans != nil {
			writeText(pm, "cbc:PaymentMeansCode", inv.PaymentMeans.Code)
		}
		if credit && inv.DueDate != "" {
			writeText(pm, "cbc:PaymentDueDate", inv.DueDate)
		}
		if inv.PaymentMeans != nil {
			if inv.PaymentMeans.PaymentID != "" {
				writeText(pm, "cbc:PaymentID", inv.PaymentMeans.PaymentID)
			}
			if inv.PaymentMeans.IBAN != "" {
				account := pm.CreateElement("cac:PayeeFinancialAccount")
				writeText(account, "cbc:ID", inv.PaymentMeans.IBAN)
				if inv.PaymentMeans.BIC != "" {
					branch := account.CreateElement("cac:FinancialInstitutionBranch")
					writeText(branch, "cbc:ID", inv.PaymentMeans.BIC)
				}
			}
		}
	}
	if inv.PaymentTerms != nil && inv.PaymentTerms.Note != "" {
		terms := root.CreateElement("cac:PaymentTerms")
		writeText(terms, "cbc:Note", inv.PaymentTerms.Note)
	}

	taxTotal := root.CreateElement("cac:TaxTotal")
	writeAmount(taxTotal, "cbc:TaxAmount", inv.TotalTax, inv.CurrencyCode)
	for _, tt := range inv.TaxTotals {
		sub := taxTotal.CreateElement("cac:TaxSubtotal")
		writeAmount(sub, "cbc:TaxableAmount", tt.TaxableAmount, inv.CurrencyCode)
		writeAmount(sub, "cbc:TaxAmount", tt.TaxAmount, inv.CurrencyCode)
		category := sub.CreateElement("cac:TaxCategory")
		writeText(category, "cbc:ID", tt.CategoryID)
		writeText(category, "cbc:Percent", tt.Percent.String())
		scheme := category.CreateElement("cac:TaxScheme")
		writeText(scheme, "cbc:ID", "VAT")
	}

	monetary := root.CreateElement("cac:LegalMonetaryTotal")
	writeAmount(monetary, "cbc:LineExtensionAmount", inv.TotalWithoutTax, inv.CurrencyCode)
	writeAmount(monetary, "cbc:TaxExclusiveAmount", inv.TotalWithoutTax, inv.CurrencyCode)
	writeAmount(monetary, "cbc:TaxInclusiveAmount", inv.TotalWithTax, inv.CurrencyCode)
	writeAmount(monetary, "cbc:PayableAmount", inv.AmountDue, inv.CurrencyCode)

	for i, line := range inv.Lines {
		le := root.CreateElement("cac:" + lineName)
		writeText(le, "cbc:ID", strconv.Itoa(i+1))
		qty := le.CreateElement("cbc:" + qtyName)
		if line.Unit != "" {
			qty.CreateAttr("unitCode", line.Unit)
		}
		qty.SetText(line.Quantity.String())
		writeAmount(le, "cbc:LineExtensionAmount", line.NetAmount, inv.CurrencyCode)

		item := le.CreateElement("cac:Item")
		writeText(item, "cbc:Description", line.Description)
		category := item.CreateElement("cac:ClassifiedTaxCategory")
		writeText(category, "cbc:ID", line.TaxCategory)
		writeText(category, "cbc:Percent", line.TaxPercent.String())
		scheme := category.CreateElement("cac:TaxScheme")
		writeText(scheme, "cbc:ID", "VAT")

		price := le.CreateElement("cac:Price")
		writeAmount4(price, "cbc:PriceAmount", line.Price, inv.CurrencyCode)
	}

	doc.Indent(2)
	return doc.WriteToString()
}

func writeParty(root *etree.Element, containerName string, p entity.Party) {
	container := root.CreateElement(containerName)
	party := container.CreateElement("cac:Party")

	if p.EndpointID != "" {
		endpoint := party.CreateElement("cbc:EndpointID")
		if p.EndpointScheme != "" {
			endpoint.CreateAttr("schemeID", p.EndpointScheme)
		}
		endpoint.SetText(p.EndpointID)
	}
	if p.Name != "" {
		name := party.CreateElement("cac:PartyName")
		writeText(name, "cbc:Name", p.Name)
	}
	if p.Address != (entity.Address{}) {
		address := party.CreateElement("cac:PostalAddress")
		if p.Address.Street != "" {
			writeText(address, "cbc:StreetName", p.Address.Street)
		}
		if p.Address.City != "" {
			writeText(address, "cbc:CityName", p.Address.City)
		}
		if p.Address.PostalCode != "" {
			writeText(address, "cbc:PostalZone", p.Address.PostalCode)
		}
		if p.Address.Country != "" {
			country := address.CreateElement("cac:Country")
			writeText(country, "cbc:IdentificationCode", p.Address.Country)
		}
	}
	if p.TaxID != "" {
		taxScheme := party.CreateElement("cac:PartyTaxScheme")
		// El CIUS español espera el identificador IVA con prefijo de país.
		writeText(taxScheme, "cbc:CompanyID", VATIdentifier(p.TaxID))
		scheme := taxScheme.CreateElement("cac:TaxScheme")
		writeText(scheme, "cbc:ID", "VAT")
	}
	if p.Name != "" {
		legal := party.CreateElement("cac:PartyLegalEntity")
		writeText(legal, "cbc:RegistrationName", p.Name)
	}
	if p.Contact != (entity.Contact{}) {
		contact := party.CreateElement("cac:Contact")
		if p.Contact.Name != "" {
			writeText(contact, "cbc:Name", p.Contact.Name)
		}
		if p.Contact.Phone != "" {
			writeText(contact, "cbc:Telephone", p.Contact.Phone)
		}
		if p.Contact.Email != "" {
			writeText(contact, "cbc:ElectronicMail", p.Contact.Email)
		}
	}
}

// ── Parseo ────────────────────────────────────────────────────────────────────

// Parse es la inversa exacta de Generate: cada término de negocio leído
// reproduce bit a bit el valor original para campos string y decimales.
// Un XML mal formado o con raíz no UBL produce ParseError sin modelo parcial.
func (c *Codec) Parse(xmlStr string) (*entity.Invoice, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(xmlStr); err != nil {
		return nil, &einvoice.ParseError{Format: "ubl_2.1", Msg: "XML UBL inválido", Err: err}
	}
	root := doc.Root()
	if root == nil || (root.Tag != "Invoice" && root.Tag != "CreditNote") {
		return nil, &einvoice.ParseError{Format: "ubl_2.1", Msg: "XML UBL inválido: raíz Invoice o CreditNote no encontrada"}
	}
	credit := root.Tag == "CreditNote"

	typeCodeName, lineName, qtyName := "InvoiceTypeCode", "InvoiceLine", "InvoicedQuantity"
	defaultType := entity.TypeCodeInvoice
	if credit {
		typeCodeName, lineName, qtyName = "CreditNoteTypeCode", "CreditNoteLine", "CreditedQuantity"
		defaultType = entity.TypeCodeCreditNote
	}

	inv := &entity.Invoice{
		InvoiceNumber:   childText(root, "ID"),
		IssueDate:       childText(root, "IssueDate"),
		InvoiceTypeCode: defaultType,
		CurrencyCode:    childText(root, "DocumentCurrencyCode"),
		DueDate:         childText(root, "DueDate"),
		TaxPointDate:    childText(root, "TaxPointDate"),
		BuyerReference:  childText(root, "BuyerReference"),
		Note:            childText(root, "Note"),
	}
	if tc := childText(root, typeCodeName); tc != "" {
		if n, err := strconv.Atoi(tc); err == nil {
			inv.InvoiceTypeCode = n
		}
	}

	if billing := root.SelectElement("BillingReference"); billing != nil {
		if docRef := billing.SelectElement("InvoiceDocumentReference"); docRef != nil {
			inv.PrecedingInvoiceReference = childText(docRef, "ID")
		}
	}
	if contract := root.SelectElement("ContractDocumentReference"); contract != nil {
		inv.ContractReference = childText(contract, "ID")
	}
	if project := root.SelectElement("ProjectReference"); project != nil {
		inv.ProjectReference = childText(project, "ID")
	}

	if supplier := root.SelectElement("AccountingSupplierParty"); supplier != nil {
		inv.Seller = parseParty(supplier)
	}
	if customer := root.SelectElement("AccountingCustomerParty"); customer != nil {
		inv.Buyer = parseParty(customer)
	}

	if pm := root.SelectElement("PaymentMeans"); pm != nil {
		means := &entity.PaymentMeans{
			Code:      childText(pm, "PaymentMeansCode"),
			PaymentID: childText(pm, "PaymentID"),
		}
		if account := pm.SelectElement("PayeeFinancialAccount"); account != nil {
			means.IBAN = childText(account, "ID")
			if branch := account.SelectElement("FinancialInstitutionBranch"); branch != nil {
				means.BIC = childText(branch, "ID")
			}
		}
		// Un PaymentMeans que solo transporta el vencimiento de la
		// rectificativa no materializa instrucciones de pago en el modelo.
		if *means != (entity.PaymentMeans{}) {
			inv.PaymentMeans = means
		}
		if inv.DueDate == "" {
			inv.DueDate = childText(pm, "PaymentDueDate")
		}
	}
	if terms := root.SelectElement("PaymentTerms"); terms != nil {
		if note := childText(terms, "Note"); note != "" {
			inv.PaymentTerms = &entity.PaymentTerms{Note: note}
		}
	}

	if taxTotal := root.SelectElement("TaxTotal"); taxTotal != nil {
		for _, sub := range taxTotal.SelectElements("TaxSubtotal") {
			tt := entity.TaxSubtotal{
				TaxableAmount: childDecimal(sub, "TaxableAmount"),
				TaxAmount:     childDecimal(sub, "TaxAmount"),
			}
			if category := sub.SelectElement("TaxCategory"); category != nil {
				tt.CategoryID = childText(category, "ID")
				tt.Percent = childDecimal(category, "Percent")
			}
			inv.TaxTotals = append(inv.TaxTotals, tt)
		}
	}

	if monetary := root.SelectElement("LegalMonetaryTotal"); monetary != nil {
		inv.TotalWithoutTax = childDecimal(monetary, "TaxExclusiveAmount")
		inv.TotalWithTax = childDecimal(monetary, "TaxInclusiveAmount")
		inv.AmountDue = childDecimal(monetary, "PayableAmount")
		inv.TotalTax = inv.TotalWithTax.Sub(inv.TotalWithoutTax)
	}
	if taxTotal := root.SelectElement("TaxTotal"); taxTotal != nil {
		if ta := childText(taxTotal, "TaxAmount"); ta != "" {
			inv.TotalTax = mustDecimal(ta)
		}
	}

	for _, le := range root.SelectElements(lineName) {
		line := entity.Line{
			NetAmount: childDecimal(le, "LineExtensionAmount"),
		}
		if qty := le.SelectElement(qtyName); qty != nil {
			line.Quantity = mustDecimal(strings.TrimSpace(qty.Text()))
			line.Unit = qty.SelectAttrValue("unitCode", "")
		}
		if item := le.SelectElement("Item"); item != nil {
			line.Description = childText(item, "Description")
			if category := item.SelectElement("ClassifiedTaxCategory"); category != nil {
				line.TaxCategory = childText(category, "ID")
				line.TaxPercent = childDecimal(category, "Percent")
			}
		}
		if price := le.SelectElement("Price"); price != nil {
			line.Price = childDecimal(price, "PriceAmount")
		}
		inv.Lines = append(inv.Lines, line)
	}

	return inv, nil
}

func parseParty(container *etree.Element) entity.Party {
	p := entity.Party{}
	party := container.SelectElement("Party")
	if party == nil {
		return p
	}
	if endpoint := party.SelectElement("EndpointID"); endpoint != nil {
		p.EndpointID = strings.TrimSpace(endpoint.Text())
		p.EndpointScheme = endpoint.SelectAttrValue("schemeID", "")
	}
	if legal := party.SelectElement("PartyLegalEntity"); legal != nil {
		p.Name = childText(legal, "RegistrationName")
	}
	if p.Name == "" {
		if name := party.SelectElement("PartyName"); name != nil {
			p.Name = childText(name, "Name")
		}
	}
	if taxScheme := party.SelectElement("PartyTaxScheme"); taxScheme != nil {
		p.TaxID = StripVATPrefix(childText(taxScheme, "CompanyID"))
	}
	if address := party.SelectElement("PostalAddress"); address != nil {
		p.Address = entity.Address{
			Street:     childText(address, "StreetName"),
			City:       childText(address, "CityName"),
			PostalCode: childText(address, "PostalZone"),
		}
		if country := address.SelectElement("Country"); country != nil {
			p.Address.Country = childText(country, "IdentificationCode")
		}
	}
	if contact := party.SelectElement("Contact"); contact != nil {
		p.Contact = entity.Contact{
			Name:  childText(contact, "Name"),
			Phone: childText(contact, "Telephone"),
			Email: childText(contact, "ElectronicMail"),
		}
	}
	return p
}

// ── helpers ───────────────────────────────────────────────────────────────────

// VATIdentifier antepone el prefijo de país ES al identificador fiscal crudo
// (ej. "B12345678" → "ESB12345678"); si ya viene prefijado se deja tal cual.
func VATIdentifier(taxID string) string {
	if len(taxID) == 11 && strings.HasPrefix(taxID, "ES") {
		return taxID
	}
	return "ES" + taxID
}

// StripVATPrefix recupera el identificador crudo quitando el prefijo ES.
// Un NIF/CIF/NIE español tiene 9 caracteres, así que la regla de 11
// caracteres nunca recorta un identificador legítimo.
func StripVATPrefix(vatID string) string {
	if len(vatID) == 11 && strings.HasPrefix(vatID, "ES") {
		return vatID[2:]
	}
	return vatID
}

func writeText(parent *etree.Element, name, value string) {
	parent.CreateElement(name).SetText(value)
}

func writeAmount(parent *etree.Element, name string, d decimal.Decimal, currency string) {
	el := parent.CreateElement(name)
	el.CreateAttr("currencyID", currency)
	el.SetText(d.StringFixed(2))
}

// writeAmount4 conserva la escala original del valor (precios y tipos
// admiten hasta 4 decimales).
func writeAmount4(parent *etree.Element, name string, d decimal.Decimal, currency string) {
	el := parent.CreateElement(name)
	el.CreateAttr("currencyID", currency)
	el.SetText(d.String())
}

func childText(e *etree.Element, tag string) string {
	if c := e.SelectElement(tag); c != nil {
		return strings.TrimSpace(c.Text())
	}
	return ""
}

func childDecimal(e *etree.Element, tag string) decimal.Decimal {
	return mustDecimal(childText(e, tag))
}

func mustDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

package ubl

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"github.com/facturis/efactura-service/internal/domain"
)

const (
	nsInvoice = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	nsCAC     = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	nsCBC     = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
	nsXSI     = "http://www.w3.org/2001/XMLSchema-instance"
)

// Generator builds UBL 2.1 invoice XML for submission to ANAF.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Generate(invoice *domain.Invoice) ([]byte, error) {
	if invoice == nil || invoice.ID == "" {
		return nil, errors.New("invoice reference is missing")
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("ubl:Invoice")
	root.CreateAttr("xmlns:ubl", nsInvoice)
	root.CreateAttr("xmlns:cac", nsCAC)
	root.CreateAttr("xmlns:cbc", nsCBC)
	root.CreateAttr("xmlns:xsi", nsXSI)

	addText(root, "cbc:ID", invoice.ID)
	addText(root, "cbc:IssueDate", invoice.IssueDate.Format("2006-01-02"))
	addText(root, "cbc:DocumentCurrencyCode", invoice.Currency)

	addParty(root, "cac:AccountingSupplierParty", invoice.Supplier)
	addParty(root, "cac:AccountingCustomerParty", invoice.Customer)

	for _, item := range invoice.Lines {
		line := root.CreateElement("cac:InvoiceLine")
		addText(line, "cbc:ID", strconv.Itoa(item.Index))

		quantity := line.CreateElement("cbc:InvoicedQuantity")
		unitCode := item.UnitCode
		if unitCode == "" {
			unitCode = "UNIT"
		}
		quantity.CreateAttr("unitCode", unitCode)
		quantity.SetText(strconv.FormatFloat(item.Quantity, 'f', -1, 64))

		itemEl := line.CreateElement("cac:Item")
		addText(itemEl, "cbc:Name", item.ItemName)
	}

	totals := root.CreateElement("cac:LegalMonetaryTotal")
	addAmount(totals, "cbc:TaxExclusiveAmount", invoice.NetTotal, invoice.Currency)
	addAmount(totals, "cbc:TaxInclusiveAmount", invoice.Total, invoice.Currency)

	doc.Indent(2)
	return doc.WriteToBytes()
}

func addText(parent *etree.Element, tag, value string) *etree.Element {
	el := parent.CreateElement(tag)
	el.SetText(value)
	return el
}

func addAmount(parent *etree.Element, tag string, amount float64, currency string) {
	el := addText(parent, tag, strconv.FormatFloat(amount, 'f', 2, 64))
	el.CreateAttr("currencyID", currency)
}

func addParty(root *etree.Element, partyType, name string) {
	partyRoot := root.CreateElement(partyType)
	party := partyRoot.CreateElement("cac:Party")
	addText(party, "cbc:Name", name)
}

// Validator performs structural validation of generated XML before the
// signing step. Schematron rule evaluation stays with the authority's
// published tooling; this guards the structure those rules assume.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

var requiredElements = []string{
	"cbc:ID",
	"cbc:IssueDate",
	"cbc:DocumentCurrencyCode",
	"cac:AccountingSupplierParty",
	"cac:AccountingCustomerParty",
	"cac:LegalMonetaryTotal",
}

func (v *Validator) Validate(xmlData []byte) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlData); err != nil {
		return fmt.Errorf("invalid XML structure: %w", err)
	}

	root := doc.Root()
	if root == nil || root.Tag != "Invoice" {
		return errors.New("root element must be ubl:Invoice")
	}

	for _, path := range requiredElements {
		if root.FindElement(path) == nil {
			return fmt.Errorf("missing required element %s", path)
		}
	}
	if len(root.FindElements("cac:InvoiceLine")) == 0 {
		return errors.New("invoice must contain at least one line")
	}

	return nil
}

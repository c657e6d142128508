package domain

import "time"

// Invoice carries the source invoice fields UBL generation needs. The full
// invoice data model lives in the ERP; this service only references it.
type Invoice struct {
	ID        string
	IssueDate time.Time
	Currency  string
	Supplier  string
	Customer  string
	NetTotal  float64
	Total     float64
	IsReturn  bool
	Lines     []InvoiceLine
}

type InvoiceLine struct {
	Index    int
	ItemName string
	Quantity float64
	UnitCode string
}

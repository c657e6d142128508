package models

import "time"

// InvoiceModel holds the snapshot of the source invoice received at
// transaction creation. Line items are stored denormalized as jsonb since
// they are only ever read back as a whole for XML generation.
type InvoiceModel struct {
	ID        string    `gorm:"primaryKey"`
	IssueDate time.Time `gorm:"not null"`
	Currency  string    `gorm:"not null"`
	Supplier  string    `gorm:"not null"`
	Customer  string    `gorm:"not null"`
	NetTotal  float64
	Total     float64
	IsReturn  bool
	Lines     string `gorm:"type:jsonb"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

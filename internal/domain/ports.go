package domain

// XMLGenerator produces canonical UBL 2.1 XML for a source invoice.
type XMLGenerator interface {
	Generate(invoice *Invoice) ([]byte, error)
}

// XMLValidator checks generated XML before any signing attempt.
type XMLValidator interface {
	Validate(xmlData []byte) error
}

// SigningCapability is the external XML-DSig implementation. The signing
// adapter sequences it; it is not reimplemented here.
type SigningCapability interface {
	Sign(xmlData, certificatePEM, privateKeyPEM []byte) ([]byte, error)
}

// TransactionEvent is published on every lifecycle change.
type TransactionEvent struct {
	TransactionID string `json:"transaction_id"`
	InvoiceID     string `json:"invoice_id"`
	Status        string `json:"status"`
	AnafUUID      string `json:"anaf_uuid,omitempty"`
	Error         string `json:"error,omitempty"`
}

// EventPublisher pushes lifecycle events to the message bus. Publishing is
// non-critical: a publish failure never fails the operation that caused it.
type EventPublisher interface {
	PublishTransaction(event TransactionEvent) error
}

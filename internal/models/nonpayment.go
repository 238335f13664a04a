package models

// DefaultRecipientTitle is the salutation pre-filled on non-payment letters.
const DefaultRecipientTitle = "السيد /"

// Non-payment record statuses.
const (
	NonPaymentActive    = "active"
	NonPaymentCancelled = "cancelled"
)

// NonPaymentRecord marks a certificate's fees as outstanding. While active it
// excludes the certificate from revenue statistics; cancelling it (fees paid)
// puts the certificate back.
type NonPaymentRecord struct {
	ID            uint `gorm:"primaryKey" json:"id"`
	CertificateID uint `gorm:"index:idx_non_payment_cert_id" json:"certificate_id"`

	// Incoming letter
	IncomingNumber string `json:"incoming_number"`
	IncomingDate   int64  `json:"incoming_date"`

	// Establishment data, copied from the certificate at creation time
	Activity  string `json:"activity"`
	OwnerName string `json:"owner_name"`
	Location  string `json:"location"`

	// Recipient
	RecipientTitle string `json:"recipient_title"`
	RecipientName  string `json:"recipient_name"`

	CreatedAt   int64  `gorm:"autoCreateTime:false" json:"created_at"`
	CreatedBy   string `json:"created_by"`
	Status      string `gorm:"default:'active'" json:"status"`
	CancelledAt *int64 `json:"cancelled_at,omitempty"`
}

package models

// Certificate is the primary fee record for a regulated establishment.
// Timestamps are Unix milliseconds to stay compatible with the app.db image
// format; gorm's automatic time tracking is disabled and the store stamps
// every write from its injected clock.
type Certificate struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// Establishment data
	Activity string  `json:"activity"`
	Name     string  `json:"name"`
	Location string  `json:"location"`
	Area     float64 `json:"area"`

	// Fees
	PersonsCount  int     `json:"persons_count"`
	TrainingFee   float64 `json:"training_fee"`
	ConsultantFee float64 `json:"consultant_fee"`
	EvacuationFee float64 `json:"evacuation_fee"`
	InspectionFee float64 `json:"inspection_fee"`
	AreaFee       float64 `json:"area_fee"`
	MinistryFee   float64 `json:"ministry_fee"`
	GrandTotal    float64 `json:"grand_total"`
	MinistryTotal float64 `json:"ministry_total"`
	ProtectionFee float64 `gorm:"default:0" json:"protection_fee"`

	UserName string `json:"user_name"`

	// Edit tracking
	CreatedAt  int64  `gorm:"autoCreateTime:false;index:idx_certificates_status_created,priority:2" json:"created_at"`
	UpdatedAt  int64  `gorm:"autoUpdateTime:false" json:"updated_at"`
	EditCount  int    `gorm:"default:0" json:"edit_count"`
	IsModified bool   `gorm:"default:false;index:idx_certificates_modified" json:"is_modified"`
	Status     string `gorm:"default:'active';index:idx_certificates_status_created,priority:1" json:"status"`

	// Page dates: per-page "last affected" timestamps
	DateGovernorate int64 `json:"date_governorate"`
	DateTraining    int64 `json:"date_training"`
	DateMinistry    int64 `json:"date_ministry"`
	DateCertificate int64 `json:"date_certificate"`
	DateDecision    int64 `json:"date_decision"`

	HasNonPayment bool  `gorm:"default:false" json:"has_non_payment"`
	NonPaymentID  *uint `json:"non_payment_id,omitempty"`
}

// Certificate statuses.
const (
	StatusActive  = "active"
	StatusDeleted = "deleted"
)

// Page identifies one of the five downstream document pages a change can touch.
type Page string

const (
	PageGovernorate Page = "governorate"
	PageTraining    Page = "training"
	PageMinistry    Page = "ministry"
	PageCertificate Page = "certificate"
	PageDecision    Page = "decision"
)

// PageDate returns the certificate's last-affected timestamp for a page.
func (c *Certificate) PageDate(p Page) int64 {
	switch p {
	case PageGovernorate:
		return c.DateGovernorate
	case PageTraining:
		return c.DateTraining
	case PageMinistry:
		return c.DateMinistry
	case PageCertificate:
		return c.DateCertificate
	case PageDecision:
		return c.DateDecision
	}
	return 0
}

// SetPageDate sets the certificate's last-affected timestamp for a page.
func (c *Certificate) SetPageDate(p Page, ts int64) {
	switch p {
	case PageGovernorate:
		c.DateGovernorate = ts
	case PageTraining:
		c.DateTraining = ts
	case PageMinistry:
		c.DateMinistry = ts
	case PageCertificate:
		c.DateCertificate = ts
	case PageDecision:
		c.DateDecision = ts
	}
}

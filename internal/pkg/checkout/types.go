package checkout

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ManuelReschke/CourseFox/app/models"
)

const (
	MetadataCourseID = "courseId"
	MetadataUserID   = "userId"

	PaymentStatusPaid = "paid"

	SourceWebhook   = "webhook"
	SourceVerify    = "verify"
	SourceReconcile = "reconcile"
)

// Config carries the checkout settings resolved from the environment.
type Config struct {
	FrontendBaseURL  string
	Currency         string
	AllowedCountries []string
	WebhookSecret    string
	WebhookTolerance time.Duration
}

// Session is the provider-agnostic view of a hosted checkout session.
type Session struct {
	ID            string
	URL           string
	PaymentStatus string
	AmountTotal   int64
	Metadata      map[string]string
}

func (s *Session) Paid() bool {
	return s != nil && s.PaymentStatus == PaymentStatusPaid
}

// SessionRequest describes the single line item checkout for one course.
type SessionRequest struct {
	CourseID         uint
	UserID           uint
	ProductName      string
	ProductImage     string
	UnitAmount       int64
	Currency         string
	SuccessURL       string
	CancelURL        string
	AllowedCountries []string
	IdempotencyKey   string
}

// WebhookEvent is a verified gateway notification.
type WebhookEvent struct {
	ID      string
	Type    string
	Session *Session
	Payload []byte
}

// WebhookResult reports how a verified webhook delivery was handled. The
// delivery is acknowledged in every case.
type WebhookResult struct {
	EventID         string
	EventType       string
	Duplicate       bool
	Ignored         bool
	PurchaseFound   bool
	Transitioned    bool
	ProcessingError error
}

// PurchaseListing is the role dependent purchase view. For instructors it
// holds the sales of their own courses.
type PurchaseListing struct {
	Purchases    []models.Purchase
	TotalRevenue decimal.Decimal
	TotalSales   int
}

// ReconcileReport summarizes one pass over stale pending purchases.
type ReconcileReport struct {
	Checked   int
	Finalized int
	Unpaid    int
	Failed    int
}

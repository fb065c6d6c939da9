package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/ManuelReschke/CourseFox/app/models"
)

type EffectKind int

const (
	EffectUserEnrollment EffectKind = iota + 1
	EffectCourseEnrollment
)

// EnrollmentEffect is one idempotent set-add.
type EnrollmentEffect struct {
	Kind     EffectKind
	UserID   uint
	CourseID uint
}

// FinalizePlan is the outcome of PlanFinalize. Amount is nil when the gateway
// did not report an authoritative amount.
type FinalizePlan struct {
	PurchaseID uint
	Amount     *decimal.Decimal
	Transition bool
	Effects    []EnrollmentEffect
}

// PlanFinalize computes what finalizing p means without touching storage.
// amountMinor is the gateway amount in minor units; zero keeps the stored
// amount. Enrollment effects are always planned, completed or not, so a
// retried call repairs a half applied earlier one.
func PlanFinalize(p models.Purchase, amountMinor int64) FinalizePlan {
	plan := FinalizePlan{
		PurchaseID: p.ID,
		Transition: !p.IsCompleted(),
		Effects: []EnrollmentEffect{
			{Kind: EffectUserEnrollment, UserID: p.UserID, CourseID: p.CourseID},
			{Kind: EffectCourseEnrollment, UserID: p.UserID, CourseID: p.CourseID},
		},
	}
	if amountMinor > 0 {
		amount := MinorToMajor(amountMinor)
		if !amount.Equal(p.Amount) {
			plan.Amount = &amount
		}
	}
	return plan
}

// MinorToMajor converts e.g. paise to rupees.
func MinorToMajor(amountMinor int64) decimal.Decimal {
	return decimal.New(amountMinor, -2)
}

// Apply returns the purchase state after the plan, ignoring concurrent writers.
func (p FinalizePlan) Apply(purchase models.Purchase) models.Purchase {
	if p.Amount != nil {
		purchase.Amount = *p.Amount
	}
	if p.Transition {
		purchase.Status = models.PURCHASE_COMPLETED
	}
	return purchase
}

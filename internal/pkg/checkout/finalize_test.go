package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/CourseFox/app/models"
)

func TestPlanFinalize(t *testing.T) {
	pending := models.Purchase{ID: 3, UserID: 5, CourseID: 9, Amount: decimal.NewFromInt(999), Status: models.PURCHASE_PENDING}
	completed := pending
	completed.Status = models.PURCHASE_COMPLETED

	tests := []struct {
		name           string
		purchase       models.Purchase
		amountMinor    int64
		wantTransition bool
		wantAmount     string
	}{
		{name: "pending with same amount", purchase: pending, amountMinor: 99900, wantTransition: true},
		{name: "pending without gateway amount", purchase: pending, amountMinor: 0, wantTransition: true},
		{name: "pending with different amount", purchase: pending, amountMinor: 89950, wantTransition: true, wantAmount: "899.5"},
		{name: "already completed", purchase: completed, amountMinor: 99900, wantTransition: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := PlanFinalize(tt.purchase, tt.amountMinor)

			assert.Equal(t, tt.purchase.ID, plan.PurchaseID)
			assert.Equal(t, tt.wantTransition, plan.Transition)
			if tt.wantAmount == "" {
				assert.Nil(t, plan.Amount)
			} else {
				require.NotNil(t, plan.Amount)
				assert.Equal(t, tt.wantAmount, plan.Amount.String())
			}
			assert.ElementsMatch(t, []EnrollmentEffect{
				{Kind: EffectUserEnrollment, UserID: 5, CourseID: 9},
				{Kind: EffectCourseEnrollment, UserID: 5, CourseID: 9},
			}, plan.Effects)
		})
	}
}

func TestFinalizePlan_ApplyIsStable(t *testing.T) {
	p := models.Purchase{ID: 1, UserID: 2, CourseID: 3, Amount: decimal.NewFromInt(10), Status: models.PURCHASE_PENDING}

	once := PlanFinalize(p, 2500).Apply(p)
	twice := PlanFinalize(once, 2500).Apply(once)

	assert.Equal(t, models.PURCHASE_COMPLETED, once.Status)
	assert.True(t, decimal.NewFromInt(25).Equal(once.Amount))
	assert.Equal(t, once, twice)
	assert.False(t, PlanFinalize(once, 2500).Transition)
}

func TestMinorToMajor(t *testing.T) {
	assert.Equal(t, "999", MinorToMajor(99900).String())
	assert.Equal(t, "0.01", MinorToMajor(1).String())
}

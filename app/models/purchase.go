package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PURCHASE_PENDING   = "pending"
	PURCHASE_COMPLETED = "completed"
)

// Purchase tracks one checkout attempt for a course and its resolution.
// PaymentID holds the gateway session id.
type Purchase struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CourseID    uint            `gorm:"not null;index:idx_purchases_user_course_status,priority:2" json:"courseId"`
	Course      *Course         `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	UserID      uint            `gorm:"not null;index:idx_purchases_user_course_status,priority:1" json:"userId"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"amount"`
	PaymentID   *string         `gorm:"type:varchar(255);uniqueIndex" json:"paymentId,omitempty"`
	Status      string          `gorm:"type:varchar(20);not null;default:'pending';index:idx_purchases_user_course_status,priority:3" json:"status"`
	CompletedAt *time.Time      `gorm:"type:timestamp;default:null" json:"completedAt,omitempty"`
	CreatedAt   time.Time       `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (p *Purchase) IsCompleted() bool {
	return p.Status == PURCHASE_COMPLETED
}

// SessionID returns the gateway session id or "" when none was stored yet.
func (p *Purchase) SessionID() string {
	if p.PaymentID == nil {
		return ""
	}
	return *p.PaymentID
}

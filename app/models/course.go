package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	LEVEL_BEGINNER = "Beginner"
	LEVEL_MEDIUM   = "Medium"
	LEVEL_ADVANCE  = "Advance"
)

// Course is a sellable unit of lectures owned by its creator.
type Course struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	Title            string          `gorm:"type:varchar(255);not null" json:"courseTitle" validate:"required,min=3,max=255"`
	SubTitle         string          `gorm:"type:varchar(255)" json:"subTitle" validate:"max=255"`
	Description      string          `gorm:"type:text" json:"description"`
	Category         string          `gorm:"type:varchar(100);not null;index" json:"category" validate:"required,max=100"`
	Level            string          `gorm:"type:varchar(20)" json:"courseLevel" validate:"omitempty,oneof=Beginner Medium Advance"`
	Price            decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"coursePrice"`
	Thumbnail        string          `gorm:"type:varchar(500)" json:"courseThumbnail" validate:"omitempty,url,max=500"`
	CreatorID        uint            `gorm:"not null;index" json:"creatorId"`
	Creator          *User           `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	IsPublished      bool            `gorm:"default:false;index" json:"isPublished"`
	Lectures         []Lecture       `gorm:"foreignKey:CourseID" json:"lectures"`
	EnrolledStudents []uint          `gorm:"-" json:"enrolledStudents"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (c *Course) Validate() error {
	v := validator.New()

	return v.Struct(c)
}

// IsOwnedBy reports whether userID created the course.
func (c *Course) IsOwnedBy(userID uint) bool {
	return c != nil && userID != 0 && c.CreatorID == userID
}

// PriceMinorUnits converts the price into the smallest currency unit, e.g.
// rupees to paise.
func (c *Course) PriceMinorUnits() int64 {
	return c.Price.Shift(2).Round(0).IntPart()
}

// HasLecture reports whether lectureID is one of the course's lectures.
func (c *Course) HasLecture(lectureID uint) bool {
	for _, l := range c.Lectures {
		if l.ID == lectureID {
			return true
		}
	}
	return false
}

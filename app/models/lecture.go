package models

import "time"

type Lecture struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CourseID      uint      `gorm:"not null;index:idx_lectures_course_position,priority:1" json:"courseId"`
	Position      int       `gorm:"not null;default:0;index:idx_lectures_course_position,priority:2" json:"position"`
	Title         string    `gorm:"type:varchar(255);not null" json:"lectureTitle" validate:"required,min=1,max=255"`
	VideoURL      string    `gorm:"type:varchar(500)" json:"videoUrl"`
	PublicID      string    `gorm:"type:varchar(255)" json:"publicId"`
	IsPreviewFree bool      `gorm:"default:false" json:"isPreviewFree"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

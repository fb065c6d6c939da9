package models

import "time"

// UserEnrollment is one member of a user's enrolled-courses set.
type UserEnrollment struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	CourseID  uint      `gorm:"primaryKey;autoIncrement:false;index" json:"courseId"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (UserEnrollment) TableName() string {
	return "user_enrolled_courses"
}

// CourseEnrollment is one member of a course's enrolled-students set.
type CourseEnrollment struct {
	CourseID  uint      `gorm:"primaryKey;autoIncrement:false" json:"courseId"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"userId"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (CourseEnrollment) TableName() string {
	return "course_enrolled_students"
}

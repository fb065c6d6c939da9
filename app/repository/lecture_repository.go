package repository

import (
	"gorm.io/gorm"

	"github.com/ManuelReschke/CourseFox/app/models"
)

// lectureRepository implements the LectureRepository interface
type lectureRepository struct {
	db *gorm.DB
}

// NewLectureRepository creates a new lecture repository instance
func NewLectureRepository(db *gorm.DB) LectureRepository {
	return &lectureRepository{db: db}
}

// Create appends the lecture at the end of its course
func (r *lectureRepository) Create(lecture *models.Lecture) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var maxPos int
		if err := tx.Model(&models.Lecture{}).
			Where("course_id = ?", lecture.CourseID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&maxPos).Error; err != nil {
			return err
		}
		lecture.Position = maxPos + 1
		return tx.Create(lecture).Error
	})
}

// GetByID retrieves a lecture by its ID
func (r *lectureRepository) GetByID(id uint) (*models.Lecture, error) {
	var lecture models.Lecture
	err := r.db.First(&lecture, id).Error
	if err != nil {
		return nil, err
	}
	return &lecture, nil
}

// ListByCourse returns the lectures of a course in order
func (r *lectureRepository) ListByCourse(courseID uint) ([]models.Lecture, error) {
	var lectures []models.Lecture
	err := orderLectures(r.db.Where("course_id = ?", courseID)).Find(&lectures).Error
	return lectures, err
}

// Update saves title, video and preview flag of a lecture
func (r *lectureRepository) Update(lecture *models.Lecture) error {
	return r.db.Model(lecture).
		Select("title", "video_url", "public_id", "is_preview_free").
		Updates(lecture).Error
}

// Delete removes a lecture
func (r *lectureRepository) Delete(id uint) error {
	res := r.db.Delete(&models.Lecture{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

package repository

import (
	"strings"

	"gorm.io/gorm"

	"github.com/ManuelReschke/CourseFox/app/models"
)

// courseRepository implements the CourseRepository interface
type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository creates a new course repository instance
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

// Create creates a new course in the database
func (r *courseRepository) Create(course *models.Course) error {
	return r.db.Create(course).Error
}

// GetByID retrieves a course by its ID
func (r *courseRepository) GetByID(id uint) (*models.Course, error) {
	var course models.Course
	err := r.db.First(&course, id).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// GetByIDWithLectures retrieves a course with its lectures in order
func (r *courseRepository) GetByIDWithLectures(id uint) (*models.Course, error) {
	var course models.Course
	err := r.db.Preload("Lectures", orderLectures).First(&course, id).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// Update saves all editable course fields
func (r *courseRepository) Update(course *models.Course) error {
	return r.db.Model(course).
		Select("title", "sub_title", "description", "category", "level", "price", "thumbnail").
		Updates(course).Error
}

// Delete removes a course together with its lectures
func (r *courseRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("course_id = ?", id).Delete(&models.Lecture{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Course{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// SetPublished toggles the published flag
func (r *courseRepository) SetPublished(id uint, published bool) error {
	return r.db.Model(&models.Course{}).Where("id = ?", id).Update("is_published", published).Error
}

// ListByCreator returns the courses created by the given user
func (r *courseRepository) ListByCreator(creatorID uint) ([]models.Course, error) {
	var courses []models.Course
	err := r.db.Where("creator_id = ?", creatorID).Order("created_at DESC, id DESC").Find(&courses).Error
	return courses, err
}

// ListPublished returns all published courses with their creator
func (r *courseRepository) ListPublished() ([]models.Course, error) {
	var courses []models.Course
	err := r.db.Preload("Creator", models.PublicProfile).Where("is_published = ?", true).
		Order("created_at DESC, id DESC").Find(&courses).Error
	return courses, err
}

// Search filters published courses by free text, categories and price order
func (r *courseRepository) Search(search CourseSearch) ([]models.Course, error) {
	q := r.db.Preload("Creator", models.PublicProfile).Where("is_published = ?", true)

	if term := strings.ToLower(strings.TrimSpace(search.Query)); term != "" {
		like := "%" + escapeLike(term) + "%"
		q = q.Where("LOWER(title) LIKE ? ESCAPE '!' OR LOWER(sub_title) LIKE ? ESCAPE '!' OR LOWER(category) LIKE ? ESCAPE '!'", like, like, like)
	}

	categories := make([]string, 0, len(search.Categories))
	for _, c := range search.Categories {
		if c = strings.TrimSpace(c); c != "" {
			categories = append(categories, c)
		}
	}
	if len(categories) > 0 {
		q = q.Where("category IN ?", categories)
	}

	switch search.SortByPrice {
	case SortPriceLow:
		q = q.Order("price ASC")
	case SortPriceHigh:
		q = q.Order("price DESC")
	}
	q = q.Order("id DESC")

	var courses []models.Course
	err := q.Find(&courses).Error
	return courses, err
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// escapeLike makes user input match literally inside a LIKE pattern using '!'
// as the escape character.
func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}

func orderLectures(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, id ASC")
}

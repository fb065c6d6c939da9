package repository

import (
	"strings"

	"gorm.io/gorm"

	"github.com/ManuelReschke/CourseFox/app/models"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email address
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update saves name, photo and password changes of an existing user
func (r *userRepository) Update(user *models.User) error {
	return r.db.Model(user).Select("name", "photo_url", "password").Updates(user).Error
}

// GetEnrolledCourses returns the courses in the user's enrolled set
func (r *userRepository) GetEnrolledCourses(userID uint) ([]models.Course, error) {
	var courses []models.Course
	err := r.db.
		Joins("JOIN user_enrolled_courses ON user_enrolled_courses.course_id = courses.id").
		Where("user_enrolled_courses.user_id = ?", userID).
		Preload("Creator", models.PublicProfile).
		Order("user_enrolled_courses.created_at DESC").
		Find(&courses).Error
	return courses, err
}

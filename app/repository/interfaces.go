package repository

import (
	"gorm.io/gorm"

	"github.com/ManuelReschke/CourseFox/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	GetEnrolledCourses(userID uint) ([]models.Course, error)
}

// CourseSearch holds the filters of the public course search
type CourseSearch struct {
	Query       string
	Categories  []string
	SortByPrice string
}

const (
	SortPriceLow  = "low"
	SortPriceHigh = "high"
)

// CourseRepository defines the interface for course-related database operations
type CourseRepository interface {
	Create(course *models.Course) error
	GetByID(id uint) (*models.Course, error)
	GetByIDWithLectures(id uint) (*models.Course, error)
	Update(course *models.Course) error
	Delete(id uint) error
	SetPublished(id uint, published bool) error
	ListByCreator(creatorID uint) ([]models.Course, error)
	ListPublished() ([]models.Course, error)
	Search(search CourseSearch) ([]models.Course, error)
}

// LectureRepository defines the interface for lecture-related database operations
type LectureRepository interface {
	Create(lecture *models.Lecture) error
	GetByID(id uint) (*models.Lecture, error)
	ListByCourse(courseID uint) ([]models.Lecture, error)
	Update(lecture *models.Lecture) error
	Delete(id uint) error
}

// Repositories holds all repository instances
type Repositories struct {
	User    UserRepository
	Course  CourseRepository
	Lecture LectureRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:    NewUserRepository(db),
		Course:  NewCourseRepository(db),
		Lecture: NewLectureRepository(db),
	}
}

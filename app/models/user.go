package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_STUDENT    = "student"
	ROLE_INSTRUCTOR = "instructor"
)

type User struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"type:varchar(150)" json:"name" validate:"required,min=2,max=150"`
	Email           string    `gorm:"uniqueIndex;type:varchar(200)" json:"email,omitempty" validate:"required,email,min=5,max=200"`
	Password        string    `gorm:"type:text" json:"-" validate:"required,min=6"`
	Role            string    `gorm:"type:varchar(50);default:'student'" json:"role,omitempty" validate:"oneof=student instructor"`
	PhotoURL        string    `gorm:"type:varchar(255)" json:"photoUrl" validate:"omitempty,url,max=255"`
	EnrolledCourses []Course  `gorm:"-" json:"enrolledCourses"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// CreateUser builds a validated user with a hashed password. An empty role
// falls back to student.
func CreateUser(name, email, password, role string) (*User, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		role = ROLE_STUDENT
	}

	u := &User{
		Name:     strings.TrimSpace(name),
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: password,
		Role:     role,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}

	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u.Password = pw

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// PublicProfile limits a preloaded user to what other users may see.
func PublicProfile(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name", "photo_url")
}

func (u *User) IsInstructor() bool {
	return u.Role == ROLE_INSTRUCTOR
}
